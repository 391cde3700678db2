// SPDX-License-Identifier: Apache-2.0

package keybind_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/goccy/go-yaml"

	"github.com/sam-fredrickson/keybind"
)

// doc parses src into a named document.
func doc(t *testing.T, name, src string) keybind.Document {
	t.Helper()
	v, err := keybind.Parse([]byte(src))
	if err != nil {
		t.Fatalf("failed to parse %s: %v", name, err)
	}
	return keybind.Document{Name: name, Value: v}
}

// assertJSON fails unless got encodes to the same JSON document as want.
func assertJSON(t *testing.T, got any, want string) {
	t.Helper()
	encoded, err := keybind.Marshal(got, keybind.FormatJSON)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}
	if !jsonpatch.Equal(encoded, []byte(want)) {
		t.Fatalf("actual:\n%s\nexpected:\n%s", encoded, want)
	}
}

func merge(t *testing.T, opts keybind.Options, srcs ...string) any {
	t.Helper()
	docs := make([]keybind.Document, len(srcs))
	for i, src := range srcs {
		docs[i] = doc(t, "doc", src)
	}
	result, err := keybind.Merge(opts, docs...)
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestListConcat(t *testing.T) {
	result := merge(t, keybind.Options{}, `["a", "b"]`, `["c", "d"]`)
	assertJSON(t, result, `["a", "b", "c", "d"]`)
}

func TestListConcatThreeDocuments(t *testing.T) {
	result := merge(t, keybind.Options{},
		`[{"key": "ctrl+a", "command": "one"}]`,
		`[]`,
		`[{"key": "ctrl+b", "command": "two"}, {"key": "ctrl+a", "command": "three"}]`)
	assertJSON(t, result, `[
		{"key": "ctrl+a", "command": "one"},
		{"key": "ctrl+b", "command": "two"},
		{"key": "ctrl+a", "command": "three"}
	]`)
}

func TestEmptyListsMergeToEmptyList(t *testing.T) {
	result := merge(t, keybind.Options{}, `[]`, `[]`)
	encoded, err := keybind.Marshal(result, keybind.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if string(encoded) != "[]\n" {
		t.Fatalf("expected empty list, got %q", encoded)
	}
}

func TestListUnique(t *testing.T) {
	result := merge(t, keybind.Options{Unique: true}, `[{"k": 1}]`, `[{"k": 1}, {"k": 2}]`)
	assertJSON(t, result, `[{"k": 1}, {"k": 2}]`)
}

func TestListUniqueDeepEquality(t *testing.T) {
	// Key order does not matter for equality.
	result := merge(t, keybind.Options{Unique: true, KeepOrder: true},
		`[{"key": "ctrl+a", "command": "x", "args": {"a": 1, "b": [1, 2]}}]`,
		`[{"command": "x", "args": {"b": [1, 2], "a": 1}, "key": "ctrl+a"}]`)

	list := result.([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 element, got %d: %v", len(list), list)
	}
}

func TestListUniqueKeepOrder(t *testing.T) {
	result := merge(t, keybind.Options{Unique: true, KeepOrder: true}, `["c", "a", "c"]`, `["b", "a"]`)
	assertJSON(t, result, `["c", "a", "b"]`)
}

func TestListUniqueWithoutKeepOrderIsCanonical(t *testing.T) {
	result := merge(t, keybind.Options{Unique: true}, `["c", "a", "c"]`, `["b", "a"]`)
	assertJSON(t, result, `["a", "b", "c"]`)

	// The order is independent of the input order.
	again := merge(t, keybind.Options{Unique: true}, `["b", "a"]`, `["c", "a", "c"]`)
	if !reflect.DeepEqual(result, again) {
		t.Fatalf("expected %v, got %v", result, again)
	}
}

func TestListSort(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		overlay  string
		expected string
	}{
		{"strings", `["pear", "apple"]`, `["fig"]`, `["apple", "fig", "pear"]`},
		{"numbers", `[10, 2.5]`, `[-1, 3]`, `[-1, 2.5, 3, 10]`},
		{"bools", `[true, false]`, `[true]`, `[false, true, true]`},
		{
			"records by canonical encoding",
			`[{"key": "ctrl+b", "command": "b"}]`,
			`[{"key": "ctrl+a", "command": "a"}]`,
			`[{"key": "ctrl+a", "command": "a"}, {"key": "ctrl+b", "command": "b"}]`,
		},
		{"mixed scalars", `["b", 1]`, `[true]`, `["b", 1, true]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := merge(t, keybind.Options{Sort: true}, tt.base, tt.overlay)
			assertJSON(t, result, tt.expected)
		})
	}
}

func TestListSortAfterUnique(t *testing.T) {
	result := merge(t, keybind.Options{Unique: true, KeepOrder: true, Sort: true}, `[3, 1, 3]`, `[2, 1]`)
	assertJSON(t, result, `[1, 2, 3]`)
}

func TestListUniqueComparesNumbersByValue(t *testing.T) {
	result := merge(t, keybind.Options{Unique: true, KeepOrder: true},
		`[1, {"a": 1}]`,
		`[1.0, {"a": 1.0}, 1e0, 10e-1, 2]`)

	list := result.([]any)
	expected := []any{json.Number("1"), map[string]any{"a": json.Number("1")}, json.Number("2")}
	if !reflect.DeepEqual(list, expected) {
		t.Fatalf("expected %v, got %v", expected, list)
	}
}

func TestListSortNumbersExactly(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		expected []json.Number
	}{
		{
			name:     "integers beyond float64 precision",
			base:     `[9007199254740993, 9007199254740992]`,
			expected: []json.Number{"9007199254740992", "9007199254740993"},
		},
		{
			name:     "decimal and exponent spellings",
			base:     `[1e2, 0.5, 99.999999999999999999, 5e-1]`,
			expected: []json.Number{"0.5", "5e-1", "99.999999999999999999", "1e2"},
		},
		{
			name:     "negative",
			base:     `[-12345678901234567890, -12345678901234567891]`,
			expected: []json.Number{"-12345678901234567891", "-12345678901234567890"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := merge(t, keybind.Options{Sort: true}, tt.base, `[]`)
			list := result.([]any)
			if len(list) != len(tt.expected) {
				t.Fatalf("expected %d elements, got %v", len(tt.expected), list)
			}
			for i, want := range tt.expected {
				if list[i] != want {
					t.Fatalf("expected %v, got %v", tt.expected, list)
				}
			}
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b  any
		equal bool
	}{
		{json.Number("1"), json.Number("1.0"), true},
		{json.Number("1e0"), json.Number("1"), true},
		{json.Number("1"), "1", false},
		{json.Number("9007199254740993"), json.Number("9007199254740992"), false},
		{json.Number("2"), float64(2), true},
		{
			map[string]any{"a": []any{nil, json.Number("1.50")}},
			map[string]any{"a": []any{nil, json.Number("1.5")}},
			true,
		},
		{[]any{json.Number("1"), json.Number("2")}, []any{json.Number("2"), json.Number("1")}, false},
	}

	for _, tt := range tests {
		if got := keybind.Equal(tt.a, tt.b); got != tt.equal {
			t.Errorf("Equal(%v, %v) = %v, expected %v", tt.a, tt.b, got, tt.equal)
		}
	}
}

func TestShallowMappingMerge(t *testing.T) {
	result := merge(t, keybind.Options{}, `{"a": 1, "b": 2}`, `{"b": 3, "c": 4}`)
	assertJSON(t, result, `{"a": 1, "b": 3, "c": 4}`)
}

func TestShallowMappingMergeReplacesNested(t *testing.T) {
	result := merge(t, keybind.Options{}, `{"a": {"x": 1}}`, `{"a": {"y": 2}}`)
	assertJSON(t, result, `{"a": {"y": 2}}`)
}

func TestDeepMappingMerge(t *testing.T) {
	result := merge(t, keybind.Options{Deep: true}, `{"a": {"x": 1}}`, `{"a": {"y": 2}}`)
	assertJSON(t, result, `{"a": {"x": 1, "y": 2}}`)
}

func TestDeepMappingMergeNestedValues(t *testing.T) {
	base := `{
		"editor": {"fontSize": 12, "rulers": [80], "minimap": {"enabled": true}},
		"theme": "dark"
	}`
	overlay := `{
		"editor": {"fontSize": 14, "rulers": [120], "minimap": {"side": "left"}},
		"theme": {"name": "light"}
	}`

	result := merge(t, keybind.Options{Deep: true}, base, overlay)
	assertJSON(t, result, `{
		"editor": {"fontSize": 14, "rulers": [80, 120], "minimap": {"enabled": true, "side": "left"}},
		"theme": {"name": "light"}
	}`)
}

func TestDeepMappingMergeNullReplaces(t *testing.T) {
	result := merge(t, keybind.Options{Deep: true}, `{"a": {"x": 1}, "b": 2}`, `{"a": null}`)
	m := result.(map[string]any)
	if v, ok := m["a"]; !ok || v != nil {
		t.Fatalf("expected a to be null, got %v", m)
	}
	if m["b"] != json.Number("2") {
		t.Fatalf("expected b to be kept, got %v", m["b"])
	}
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	base := doc(t, "base", `{"a": {"x": 1}, "l": [1]}`)
	overlay := doc(t, "overlay", `{"a": {"y": 2}, "l": [2]}`)

	if _, err := keybind.Merge(keybind.Options{Deep: true}, base, overlay); err != nil {
		t.Fatal(err)
	}

	assertJSON(t, base.Value, `{"a": {"x": 1}, "l": [1]}`)
	assertJSON(t, overlay.Value, `{"a": {"y": 2}, "l": [2]}`)
}

func TestTypeMismatch(t *testing.T) {
	list := doc(t, "list.json", `[{"key": "a", "command": "b"}]`)
	mapping := doc(t, "mapping.json", `{"a": 1}`)

	_, err := keybind.Merge(keybind.Options{}, list, mapping)
	if !errors.Is(err, keybind.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}

	var mismatch *keybind.TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %T", err)
	}
	if mismatch.Name != "mapping.json" || mismatch.Want != keybind.KindList || mismatch.Got != keybind.KindMapping {
		t.Fatalf("unexpected error details: %+v", mismatch)
	}
}

func TestTypeMismatchNamesFirstOffender(t *testing.T) {
	docs := []keybind.Document{
		doc(t, "a.json", `{}`),
		doc(t, "b.json", `{}`),
		doc(t, "c.json", `"scalar"`),
		doc(t, "d.json", `[]`),
	}

	_, err := keybind.Merge(keybind.Options{}, docs...)
	var mismatch *keybind.TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
	if mismatch.Name != "c.json" || mismatch.Got != keybind.KindScalar {
		t.Fatalf("unexpected error details: %+v", mismatch)
	}
}

func TestScalarFirstDocument(t *testing.T) {
	_, err := keybind.Merge(keybind.Options{}, doc(t, "a", `1`), doc(t, "b", `[]`))
	if !errors.Is(err, keybind.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestExplicitTypeOverridesDetection(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		result := merge(t, keybind.Options{Type: keybind.TypeList}, `[1]`, `{"b": 3, "a": 2}`, `4`)
		assertJSON(t, result, `[1, 2, 3, 4]`)
	})

	t.Run("mapping", func(t *testing.T) {
		result := merge(t, keybind.Options{Type: keybind.TypeMapping}, `{"x": 0}`, `["a", "b"]`, `null`)
		assertJSON(t, result, `{"x": 0, "0": "a", "1": "b"}`)
	})
}

func TestNoDocuments(t *testing.T) {
	_, err := keybind.Merge(keybind.Options{})
	if !errors.Is(err, keybind.ErrInsufficientInputs) {
		t.Fatalf("expected ErrInsufficientInputs, got %v", err)
	}
}

func TestInvalidType(t *testing.T) {
	_, err := keybind.NewMerger(keybind.Options{Type: keybind.Type(42)})
	if !errors.Is(err, keybind.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		expected keybind.Type
		valid    bool
	}{
		{"", keybind.TypeAuto, true},
		{"auto", keybind.TypeAuto, true},
		{"list", keybind.TypeList, true},
		{"LIST", keybind.TypeList, true},
		{"mapping", keybind.TypeMapping, true},
		{"object", keybind.TypeMapping, true},
		{"tree", keybind.TypeAuto, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			typ, err := keybind.ParseType(tt.input)
			if (err == nil) != tt.valid {
				t.Fatalf("expected valid=%v, got error=%v", tt.valid, err)
			}
			if err != nil && !errors.Is(err, keybind.ErrInvalidMode) {
				t.Fatalf("expected ErrInvalidMode, got %v", err)
			}
			if typ != tt.expected {
				t.Fatalf("expected %v, got %v", tt.expected, typ)
			}
		})
	}
}

func TestConflicts(t *testing.T) {
	base := doc(t, "base.json", `[
		{"key": "ctrl+a", "command": "selectAll"},
		{"key": "ctrl+b", "command": "toggleSidebar"}
	]`)
	overlay := doc(t, "local.json", `[
		{"key": "ctrl+a", "command": "cursorHome"},
		{"key": "ctrl+a", "command": "selectAll"},
		{"key": "ctrl+c", "command": "copy"}
	]`)

	groups, err := keybind.Conflicts(keybind.Options{}, base, overlay)
	if err != nil {
		t.Fatal(err)
	}

	expected := []keybind.KeyGroup{
		{Key: "ctrl+a", Count: 3, Commands: []string{"selectAll", "cursorHome"}},
	}
	if !reflect.DeepEqual(groups, expected) {
		t.Fatalf("expected %+v, got %+v", expected, groups)
	}
}

func TestConflictsNone(t *testing.T) {
	groups, err := keybind.Conflicts(keybind.Options{},
		doc(t, "a", `[{"key": "a", "command": "x"}]`),
		doc(t, "b", `[{"key": "b", "command": "x"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected no conflicts, got %+v", groups)
	}
}

func TestConflictsMappingUnsupported(t *testing.T) {
	_, err := keybind.Conflicts(keybind.Options{}, doc(t, "a", `{"a": 1}`), doc(t, "b", `{"a": 2}`))
	if !errors.Is(err, keybind.ErrUnsupportedOperation) {
		t.Fatalf("expected ErrUnsupportedOperation, got %v", err)
	}

	_, err = keybind.Conflicts(keybind.Options{Type: keybind.TypeMapping}, doc(t, "a", `[]`), doc(t, "b", `[]`))
	if !errors.Is(err, keybind.ErrUnsupportedOperation) {
		t.Fatalf("expected ErrUnsupportedOperation, got %v", err)
	}
}

func TestConflictsTypeMismatch(t *testing.T) {
	_, err := keybind.Conflicts(keybind.Options{}, doc(t, "a", `[]`), doc(t, "b", `{}`))
	if !errors.Is(err, keybind.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestMergeMarshalJSON(t *testing.T) {
	base := []byte(`[{"key": "ctrl+a", "command": "selectAll"}]`)
	overlay := []byte(`[{"key": "ctrl+b", "command": "toggleSidebar"}]`)

	result, err := keybind.MergeMarshal(keybind.Options{}, json.Unmarshal, json.Marshal, base, overlay)
	if err != nil {
		t.Fatal(err)
	}

	expected := `[{"key": "ctrl+a", "command": "selectAll"}, {"key": "ctrl+b", "command": "toggleSidebar"}]`
	if !jsonpatch.Equal(result, []byte(expected)) {
		t.Fatalf("actual:\n%s\nexpected:\n%s", result, expected)
	}
}

func TestMergeMarshalYAML(t *testing.T) {
	base := []byte("editor:\n  fontSize: 12\n  rulers: [80]\n")
	overlay := []byte("editor:\n  rulers: [120]\n")

	result, err := keybind.MergeMarshal(keybind.Options{Deep: true}, yaml.Unmarshal, yaml.Marshal, base, overlay)
	if err != nil {
		t.Fatal(err)
	}

	var parsed struct {
		Editor struct {
			FontSize int   `yaml:"fontSize"`
			Rulers   []int `yaml:"rulers"`
		} `yaml:"editor"`
	}
	if err := yaml.Unmarshal(result, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Editor.FontSize != 12 || !reflect.DeepEqual(parsed.Editor.Rulers, []int{80, 120}) {
		t.Fatalf("unexpected values: %+v", parsed)
	}
}

func TestMergeMarshalEmpty(t *testing.T) {
	result, err := keybind.MergeMarshal(keybind.Options{}, json.Unmarshal, json.Marshal)
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 0 {
		t.Fatalf("expected empty result, got: %s", result)
	}
}

func TestMergeMarshalUnmarshalError(t *testing.T) {
	_, err := keybind.MergeMarshal(keybind.Options{}, json.Unmarshal, json.Marshal,
		[]byte(`[]`), []byte(`[`))
	if !errors.Is(err, keybind.ErrMarshal) {
		t.Fatalf("expected ErrMarshal, got %v", err)
	}

	var marshalErr *keybind.MarshalError
	if !errors.As(err, &marshalErr) || marshalErr.DocIndex != 1 {
		t.Fatalf("expected MarshalError for document 1, got %v", err)
	}
}

func TestMergerOptions(t *testing.T) {
	opts := keybind.Options{Type: keybind.TypeList, Unique: true}
	m, err := keybind.NewMerger(opts)
	if err != nil {
		t.Fatal(err)
	}
	if m.Options() != opts {
		t.Fatalf("expected %+v, got %+v", opts, m.Options())
	}
}

func TestMergedOutputValidates(t *testing.T) {
	tests := []struct {
		name string
		opts keybind.Options
		srcs []string
	}{
		{"list", keybind.Options{}, []string{`[{"key": "a"}]`, `[{"key": "b"}]`}},
		{"unique sorted", keybind.Options{Unique: true, Sort: true}, []string{`[3, 1]`, `[2, "x", {"y": [1]}]`}},
		{"shallow", keybind.Options{}, []string{`{"a": "<&>"}`, `{"b": 1e3}`}},
		{"deep", keybind.Options{Deep: true}, []string{`{"a": {"b": [1]}}`, `{"a": {"b": [2], "c": null}}`}},
	}

	v := keybind.NewValidator(keybind.ValidateOptions{SkipDuplicates: true})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := merge(t, tt.opts, tt.srcs...)
			encoded, err := keybind.Marshal(result, keybind.FormatJSON)
			if err != nil {
				t.Fatal(err)
			}
			if res := v.Check("merged", encoded); !res.Passed() {
				t.Fatalf("merged output failed validation: %v\n%s", res.Err, encoded)
			}
		})
	}
}
