package prettify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func render(t *testing.T, in string) string {
	t.Helper()
	out, err := Value([]byte(in))
	if err != nil {
		t.Fatalf("Value(%s): %v", in, err)
	}
	return CorrectPaths(out) + "\n"
}

func TestValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single object",
			in:   `[{"Key":"val"}]`,
			want: "[\n  { \"Key\": \"val\" }\n]\n",
		},
		{
			name: "relative paths untouched",
			in:   `[{"Path":"?"},{"Path":"src/dir/main.nr"}]`,
			want: "[\n  { \"Path\": \"?\" },\n  { \"Path\": \"src/dir/main.nr\" }\n]\n",
		},
		{
			name: "absolute path rewritten",
			in:   `[{"Path":"?"},{"Path":"some/absolute/path/src/dir/main.nr"}]`,
			want: "[\n  { \"Path\": \"?\" },\n  { \"Path\": \"<relative-to-this>/src/dir/main.nr\" }\n]\n",
		},
		{
			name: "nested arrays",
			in:   `[{"arr":[{"nested_arr":[{"key":"val"}]}]}]`,
			want: `[
  { "arr": [
    { "nested_arr": [
      { "key": "val" }
    ] }
  ] }
]
`,
		},
		{
			name: "nested objects",
			in:   `[{"key":{"inner_key1":"inner_value1","inner_key2":"inner_value2"}}]`,
			want: "[\n  { \"key\": { \"inner_key1\": \"inner_value1\", \"inner_key2\": \"inner_value2\" } }\n]\n",
		},
		{
			name: "mixed",
			in: `[{"a":"111"},{"b":[]},{"c":[{"arr":"arr1", "abb" : 1},{"arr":"arr2","abb" : 2},{"arr":"arr3","abb" : 3}]},{"long":"a1","along1":"a2"},` +
				`{ "Value": { "variable_id": 0, "value": { "kind": "Int", "i": 4, "type_id": 1 } } }]`,
			want: `[
  { "a": "111" },
  { "b": [] },
  { "c": [
    { "arr": "arr1", "abb": 1 },
    { "arr": "arr2", "abb": 2 },
    { "arr": "arr3", "abb": 3 }
  ] },
  { "long": "a1", "along1": "a2" },
  { "Value": { "variable_id": 0, "value": { "kind": "Int", "i": 4, "type_id": 1 } } }
]
`,
		},
		{
			name: "empty object and scalars",
			in:   `[{},null,true,-1.5e3]`,
			want: "[\n  {  },\n  null,\n  true,\n  -1.5e3\n]\n",
		},
		{
			name: "empty root array",
			in:   " [] \n",
			want: "[]\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.in); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestValueErrors(t *testing.T) {
	if _, err := Value([]byte(`[1] [2]`)); !errors.Is(err, ErrTrailingData) {
		t.Errorf("trailing value err = %v", err)
	}
	if _, err := Value([]byte(``)); err == nil {
		t.Errorf("empty input accepted")
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.json")
	if err := os.WriteFile(src, []byte(`[{"Path":"/home/u/proj/src/main.nr"},{"Step":{"path_id":0,"line":1}}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	rel := filepath.Join(dir, "rel.json")
	if err := File(src, rel, true); err != nil {
		t.Fatalf("File: %v", err)
	}
	got, _ := os.ReadFile(rel)
	want := "[\n  { \"Path\": \"<relative-to-this>/src/main.nr\" },\n  { \"Step\": { \"path_id\": 0, \"line\": 1 } }\n]\n"
	if string(got) != want {
		t.Errorf("relative output:\n%s\nwant:\n%s", got, want)
	}

	abs := filepath.Join(dir, "abs.json")
	if err := File(src, abs, false); err != nil {
		t.Fatalf("File: %v", err)
	}
	got, _ = os.ReadFile(abs)
	want = "[\n  { \"Path\": \"/home/u/proj/src/main.nr\" },\n  { \"Step\": { \"path_id\": 0, \"line\": 1 } }\n]\n"
	if string(got) != want {
		t.Errorf("absolute output:\n%s\nwant:\n%s", got, want)
	}

	if err := File(filepath.Join(dir, "missing.json"), abs, true); err == nil {
		t.Errorf("missing source accepted")
	}
}
