package recorder

import (
	"encoding/json"
	"fmt"
	"os"

	"codetrace/internal/trace"
)

// sideFile tracks one begin/finish pair. Each call is allowed once.
type sideFile struct {
	name     string
	path     string
	begun    bool
	finished bool
}

func (s *sideFile) begin(path string) {
	if s.begun {
		panic(fmt.Sprintf("recorder: BeginWriting%s called twice", s.name))
	}
	s.begun = true
	s.path = path
}

func (s *sideFile) finish() string {
	if !s.begun {
		panic(fmt.Sprintf("recorder: FinishWriting%s called without BeginWriting%s", s.name, s.name))
	}
	if s.finished {
		panic(fmt.Sprintf("recorder: FinishWriting%s called twice", s.name))
	}
	s.finished = true
	return s.path
}

func (r *Recorder) BeginWritingTraceMetadata(path string) error {
	r.metadataFile.begin(path)
	return nil
}

// FinishWritingTraceMetadata writes {"program","args","workdir"} to the
// path given to BeginWritingTraceMetadata.
func (r *Recorder) FinishWritingTraceMetadata() error {
	return writeJSON(r.metadataFile.finish(), r.Metadata())
}

func (r *Recorder) BeginWritingTracePaths(path string) error {
	r.pathsFile.begin(path)
	return nil
}

// FinishWritingTracePaths writes the path list, index aligned with PathID.
func (r *Recorder) FinishWritingTracePaths() error {
	return writeJSON(r.pathsFile.finish(), r.Paths())
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("recorder: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("recorder: write %s: %w", path, err)
	}
	return nil
}

// ReadMetadata loads a metadata side file.
func ReadMetadata(path string) (trace.TraceMetadata, error) {
	var md trace.TraceMetadata
	if err := readJSON(path, &md); err != nil {
		return trace.TraceMetadata{}, err
	}
	return md, nil
}

// ReadPaths loads a path list side file.
func ReadPaths(path string) ([]string, error) {
	var paths []string
	if err := readJSON(path, &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("recorder: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("recorder: decode %s: %w", path, err)
	}
	return nil
}
