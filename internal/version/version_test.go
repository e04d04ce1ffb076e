package version

import (
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
)

func TestCurrent(t *testing.T) {
	origCommit, origDate := GitCommit, BuildDate
	t.Cleanup(func() { GitCommit, BuildDate = origCommit, origDate })

	GitCommit = "abc123"
	BuildDate = ""
	info := Current()
	if info.Version == "" {
		t.Fatal("Version should have a default value")
	}
	if diff := cmp.Diff([]string{"v0", "v1"}, info.FormatVersions); diff != "" {
		t.Errorf("format versions (-want +got):\n%s", diff)
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"version":"` + info.Version + `","git_commit":"abc123","format_versions":["v0","v1"]}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestPretty(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	info := Info{Version: "1.2.3-rc.1", BuildDate: "2026-01-15", FormatVersions: []string{"v0", "v1"}}
	want := "codetrace 1.2.3-rc.1\nbuilt:   2026-01-15\nformats: v0, v1\n"
	if got := info.Pretty(); got != want {
		t.Errorf("Pretty() = %q, want %q", got, want)
	}
}

func TestColored(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	for _, v := range []string{"0.1.0-dev", "1.2.3", "dev", "1.2"} {
		if got := Colored(v); got != v {
			t.Errorf("Colored(%q) without color = %q", v, got)
		}
	}
}
