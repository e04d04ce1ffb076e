// Package prettify renders a JSON trace in a diff-friendly layout: one
// array element per line, every object on a single line.
package prettify

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/buger/jsonparser"
)

// ErrTrailingData is returned when the input holds more than one JSON value.
var ErrTrailingData = errors.New("prettify: trailing data after JSON value")

const indentStep = "  "

// Value renders one JSON document. Arrays put each element on its own line
// indented by two spaces per level; objects stay on one line as
// { "k": v, ... } in input key order. Scalars are copied verbatim.
func Value(data []byte) (string, error) {
	value, typ, end, err := jsonparser.Get(data)
	if err != nil {
		return "", fmt.Errorf("prettify: %w", err)
	}
	if len(bytes.TrimSpace(data[end:])) != 0 {
		return "", ErrTrailingData
	}
	var sb strings.Builder
	p := printer{sb: &sb}
	p.value(value, typ, "")
	if p.err != nil {
		return "", p.err
	}
	return sb.String(), nil
}

type printer struct {
	sb  *strings.Builder
	err error
}

func (p *printer) fail(err error) {
	if p.err == nil && err != nil {
		p.err = fmt.Errorf("prettify: %w", err)
	}
}

func (p *printer) value(v []byte, typ jsonparser.ValueType, indent string) {
	if p.err != nil {
		return
	}
	switch typ {
	case jsonparser.Array:
		p.array(v, indent)
	case jsonparser.Object:
		p.object(v, indent)
	case jsonparser.String:
		p.sb.WriteByte('"')
		p.sb.Write(v)
		p.sb.WriteByte('"')
	case jsonparser.Number, jsonparser.Boolean:
		p.sb.Write(v)
	case jsonparser.Null:
		p.sb.WriteString("null")
	case jsonparser.NotExist, jsonparser.Unknown:
		p.fail(fmt.Errorf("unexpected value %q", v))
	}
}

func (p *printer) array(v []byte, indent string) {
	inner := indent + indentStep
	n := 0
	_, err := jsonparser.ArrayEach(v, func(el []byte, typ jsonparser.ValueType, _ int, err error) {
		if err != nil {
			p.fail(err)
			return
		}
		if n == 0 {
			p.sb.WriteString("[\n")
		} else {
			p.sb.WriteString(",\n")
		}
		n++
		p.sb.WriteString(inner)
		p.value(el, typ, inner)
	})
	p.fail(err)
	if n == 0 {
		p.sb.WriteString("[]")
		return
	}
	p.sb.WriteString("\n")
	p.sb.WriteString(indent)
	p.sb.WriteString("]")
}

// object keeps the enclosing indent for nested arrays, so an array inside
// an object closes at the object's own level.
func (p *printer) object(v []byte, indent string) {
	p.sb.WriteString("{ ")
	first := true
	err := jsonparser.ObjectEach(v, func(key, val []byte, typ jsonparser.ValueType, _ int) error {
		if !first {
			p.sb.WriteString(", ")
		}
		first = false
		p.sb.WriteByte('"')
		p.sb.Write(key)
		p.sb.WriteString(`": `)
		p.value(val, typ, indent)
		return p.err
	})
	p.fail(err)
	p.sb.WriteString(" }")
}

var absPath = regexp.MustCompile(`  \{ "Path": (?P<abs_path>.*)(?P<rel_path>/src/.*)`)

// CorrectPaths rewrites Path entries whose value contains /src/ so the
// prefix before it becomes <relative-to-this>. It only matches the
// element layout produced by Value.
func CorrectPaths(pretty string) string {
	return absPath.ReplaceAllString(pretty, `  { "Path": "<relative-to-this>${rel_path}`)
}

// File prettifies the JSON trace at src into dst with a trailing newline.
func File(src, dst string, relativePaths bool) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("prettify: read %s: %w", src, err)
	}
	out, err := Value(data)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	if relativePaths {
		out = CorrectPaths(out)
	}
	if err := os.WriteFile(dst, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("prettify: write %s: %w", dst, err)
	}
	return nil
}
