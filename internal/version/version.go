package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"codetrace/internal/codec/header"
)

// Build information for the codetrace CLI, overridable via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Info is the machine readable form printed by `codetrace version --format json`.
type Info struct {
	Version        string   `json:"version"`
	GitCommit      string   `json:"git_commit,omitempty"`
	BuildDate      string   `json:"build_date,omitempty"`
	FormatVersions []string `json:"format_versions"`
}

// Current reports the build information and the binary format versions
// this build reads and writes.
func Current() Info {
	return Info{
		Version:        Version,
		GitCommit:      GitCommit,
		BuildDate:      BuildDate,
		FormatVersions: FormatVersions(),
	}
}

func FormatVersions() []string {
	return []string{header.V0.String(), header.V1.String()}
}

// Colored renders Version with the major, minor and patch parts colored.
// Versions that are not dotted triples are returned unchanged.
func Colored(v string) string {
	core, suffix, _ := strings.Cut(v, "-")
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return v
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Pretty is the human readable form printed by `codetrace version`.
func (i Info) Pretty() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "codetrace %s\n", Colored(i.Version))
	if i.GitCommit != "" {
		fmt.Fprintf(&sb, "commit:  %s\n", i.GitCommit)
	}
	if i.BuildDate != "" {
		fmt.Fprintf(&sb, "built:   %s\n", i.BuildDate)
	}
	fmt.Fprintf(&sb, "formats: %s\n", strings.Join(i.FormatVersions, ", "))
	return sb.String()
}
