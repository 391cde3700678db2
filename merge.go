// SPDX-License-Identifier: Apache-2.0

// Package keybind validates and merges JSON documents such as editor keybinding files.
//
// Keybinding files are lists of records shaped {"key": ..., "command": ...}.
// A [Validator] checks documents for syntax errors and for records sharing a key.
// A [Merger] concatenates lists, optionally de-duplicating and sorting them, or
// merges mappings shallowly or deeply. [Merger.Conflicts] reports keys that
// would be bound more than once by a list merge.
package keybind

import (
	"cmp"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"
)

// Type selects how documents are combined.
type Type int

const (
	// TypeAuto detects the type from the first document (default behavior).
	TypeAuto Type = iota
	// TypeList merges documents as lists.
	TypeList
	// TypeMapping merges documents as mappings.
	TypeMapping
)

func (t Type) String() string {
	switch t {
	case TypeAuto:
		return "auto"
	case TypeList:
		return "list"
	case TypeMapping:
		return "mapping"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

// ParseType parses "auto", "list" or "mapping". The empty string is [TypeAuto].
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return TypeAuto, nil
	case "list", "array":
		return TypeList, nil
	case "mapping", "object", "map":
		return TypeMapping, nil
	default:
		return TypeAuto, fmt.Errorf("%w: unknown type %q", ErrInvalidMode, s)
	}
}

// Options configures merge behavior.
//
// The zero value is valid and provides sensible defaults:
//   - The type is detected from the first document
//   - Lists are concatenated as-is
//   - Mappings are merged shallowly
type Options struct {
	// Type forces list or mapping merging. With [TypeAuto] every document
	// must have the same kind as the first one.
	Type Type

	// Deep merges nested mappings recursively and concatenates nested lists.
	// Only affects mapping merges.
	Deep bool

	// Unique removes deeply equal elements from a merged list. Numbers
	// compare by value, so 1 and 1.0 are duplicates.
	Unique bool

	// KeepOrder keeps the first occurrence order when Unique is set.
	// Otherwise de-duplicated elements come out in canonical order.
	KeepOrder bool

	// Sort orders the merged list after de-duplication.
	Sort bool
}

// Merger combines documents with the configured options.
//
// A Merger holds no state between calls and can be safely reused.
type Merger struct {
	opts Options // merge configuration
}

// NewMerger creates a new [Merger] with the given options.
// Returns an error if the options are invalid.
func NewMerger(opts Options) (*Merger, error) {
	if opts.Type < TypeAuto || opts.Type > TypeMapping {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMode, opts.Type)
	}
	return &Merger{opts: opts}, nil
}

// Options returns the merge options configured for this [Merger].
func (m *Merger) Options() Options {
	return m.opts
}

// Merge merges multiple documents. See [Merger.Merge] for details.
func Merge(opts Options, docs ...Document) (any, error) {
	m, err := NewMerger(opts)
	if err != nil {
		return nil, err
	}
	return m.Merge(docs...)
}

// Conflicts reports keys bound more than once. See [Merger.Conflicts] for details.
func Conflicts(opts Options, docs ...Document) ([]KeyGroup, error) {
	m, err := NewMerger(opts)
	if err != nil {
		return nil, err
	}
	return m.Conflicts(docs...)
}

// MergeMarshal merges byte documents using provided unmarshal and marshal functions.
// See [Merger.MergeMarshal] for details.
func MergeMarshal(
	opts Options,
	unmarshal func([]byte, any) error,
	marshal func(any) ([]byte, error),
	docs ...[]byte,
) ([]byte, error) {
	m, err := NewMerger(opts)
	if err != nil {
		return nil, err
	}
	return m.MergeMarshal(unmarshal, marshal, docs...)
}

// Merge merges documents left-to-right.
//
// Lists are concatenated in input order, then de-duplicated and sorted as
// configured. Mappings are merged so that later documents take precedence:
// shallowly by default, recursively when [Options.Deep] is set.
//
// When the type is given explicitly, documents of another kind are coerced:
// a mapping contributes its values (in key order) to a list, a list
// contributes index-keyed fields to a mapping, a scalar contributes one list
// element and nothing to a mapping.
//
// Merge accepts any non-zero number of documents; a single document is
// returned merged with nothing. Requiring at least two inputs is left to
// [LoadDocuments].
//
// Example:
//
//	base := Document{Name: "a.json", Value: map[string]any{"a": 1, "b": 2}}
//	overlay := Document{Name: "b.json", Value: map[string]any{"b": 3, "c": 4}}
//	result, _ := Merge(Options{}, base, overlay)
//	// Result: {"a": 1, "b": 3, "c": 4}
func (m *Merger) Merge(docs ...Document) (any, error) {
	kind, err := m.resolve(docs)
	if err != nil {
		return nil, err
	}
	if kind == KindList {
		return m.mergeLists(docs), nil
	}
	return m.mergeMappings(docs), nil
}

// Conflicts groups the records of all list documents by key and returns the
// keys that occur more than once, with the distinct commands bound to them.
//
// Conflict checking is only defined for lists; mapping documents return an
// error matching [ErrUnsupportedOperation].
func (m *Merger) Conflicts(docs ...Document) ([]KeyGroup, error) {
	kind, err := m.resolve(docs)
	if err != nil {
		return nil, err
	}
	if kind != KindList {
		return nil, fmt.Errorf("%w: conflict check requires list documents, got %s", ErrUnsupportedOperation, kind)
	}

	var union []any
	for _, doc := range docs {
		union = append(union, asList(doc.Value)...)
	}
	return Duplicates(union), nil
}

// MergeMarshal merges byte documents using provided unmarshal and marshal functions.
//
// Documents are unmarshaled, merged left-to-right with [Merger.Merge], then marshaled back to bytes.
//
// Returns an empty byte slice if docs is empty. Returns an error if unmarshaling,
// merging, or marshaling fails.
//
// Example:
//
//	base := []byte(`[{"key": "ctrl+a", "command": "selectAll"}]`)
//	overlay := []byte(`[{"key": "ctrl+b", "command": "toggleSidebar"}]`)
//	result, _ := MergeMarshal(Options{}, json.Unmarshal, json.Marshal, base, overlay)
func (m *Merger) MergeMarshal(
	unmarshal func([]byte, any) error,
	marshal func(any) ([]byte, error),
	docs ...[]byte,
) ([]byte, error) {
	if len(docs) == 0 {
		return []byte{}, nil
	}

	parsedDocs := make([]Document, len(docs))
	for i, doc := range docs {
		var current any
		if err := unmarshal(doc, &current); err != nil {
			return nil, &MarshalError{
				Err:      err,
				DocIndex: i,
			}
		}
		parsedDocs[i] = Document{Name: fmt.Sprintf("document %d", i), Value: current}
	}

	result, err := m.Merge(parsedDocs...)
	if err != nil {
		return nil, err
	}

	out, err := marshal(result)
	if err != nil {
		return nil, &MarshalError{Err: err, DocIndex: -1}
	}
	return out, nil
}

// resolve determines the kind all documents are merged as.
func (m *Merger) resolve(docs []Document) (Kind, error) {
	if len(docs) == 0 {
		return KindScalar, fmt.Errorf("%w: no documents", ErrInsufficientInputs)
	}

	switch m.opts.Type {
	case TypeList:
		return KindList, nil
	case TypeMapping:
		return KindMapping, nil
	}

	want := docs[0].Kind()
	if want == KindScalar {
		return KindScalar, fmt.Errorf("%w: %s is a scalar, expected a list or mapping",
			ErrTypeMismatch, docs[0].Name)
	}
	for _, doc := range docs[1:] {
		if got := doc.Kind(); got != want {
			return KindScalar, &TypeMismatchError{Name: doc.Name, Want: want, Got: got}
		}
	}
	return want, nil
}

func (m *Merger) mergeLists(docs []Document) []any {
	size := 0
	for _, doc := range docs {
		if list, ok := doc.Value.([]any); ok {
			size += len(list)
		}
	}

	result := make([]any, 0, size)
	for _, doc := range docs {
		result = append(result, asList(doc.Value)...)
	}

	if m.opts.Unique {
		result = deduplicateList(result, m.opts.KeepOrder)
	}
	if m.opts.Sort {
		sortList(result)
	}
	return result
}

func (m *Merger) mergeMappings(docs []Document) map[string]any {
	result := make(map[string]any)
	for _, doc := range docs {
		overlay := asMapping(doc.Value)
		if m.opts.Deep {
			result = mergeMaps(result, overlay)
			continue
		}
		for k, v := range overlay {
			result[k] = v
		}
	}
	return result
}

// mergeValues combines two values found under the same field in a deep merge.
func mergeValues(base, overlay any) any {
	baseMap, baseIsMap := base.(map[string]any)
	overlayMap, overlayIsMap := overlay.(map[string]any)
	if baseIsMap && overlayIsMap {
		return mergeMaps(baseMap, overlayMap)
	}

	baseSlice, baseIsSlice := base.([]any)
	overlaySlice, overlayIsSlice := overlay.([]any)
	if baseIsSlice && overlayIsSlice {
		result := make([]any, len(baseSlice)+len(overlaySlice))
		copy(result, baseSlice)
		copy(result[len(baseSlice):], overlaySlice)
		return result
	}

	// For everything else, including null, overlay wins
	return overlay
}

func mergeMaps(base, overlay map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range overlay {
		if baseVal, exists := result[k]; exists {
			result[k] = mergeValues(baseVal, v)
		} else {
			result[k] = v
		}
	}

	return result
}

// asList returns the elements v contributes to a list merge.
func asList(v any) []any {
	switch v := v.(type) {
	case []any:
		return v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = v[k]
		}
		return values
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// asMapping returns the fields v contributes to a mapping merge.
func asMapping(v any) map[string]any {
	switch v := v.(type) {
	case map[string]any:
		return v
	case []any:
		fields := make(map[string]any, len(v))
		for i, item := range v {
			fields[strconv.Itoa(i)] = item
		}
		return fields
	default:
		return nil
	}
}

// deduplicateList removes elements equal as JSON values, so 1 and 1.0 are
// duplicates. With keepOrder the first occurrence of each element is kept in
// place; otherwise the result is in canonical order.
func deduplicateList(list []any, keepOrder bool) []any {
	type entry struct {
		id   string
		item any
	}

	entries := make([]entry, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		id := canonical(item)
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		entries = append(entries, entry{id: id, item: item})
	}

	if !keepOrder {
		slices.SortStableFunc(entries, func(a, b entry) int {
			return strings.Compare(a.id, b.id)
		})
	}

	result := make([]any, len(entries))
	for i, e := range entries {
		result[i] = e.item
	}
	return result
}

// sortList sorts list in place. Lists of only strings, only numbers or only
// bools use their natural order; anything else is ordered by canonical JSON.
func sortList(list []any) {
	switch {
	case all(list, isString):
		slices.SortStableFunc(list, func(a, b any) int {
			return strings.Compare(a.(string), b.(string))
		})
	case all(list, isNumber):
		values := make([]*big.Rat, len(list))
		for i, item := range list {
			values[i], _ = ratValue(item)
		}
		sortIndexed(list, func(a, b int) int {
			return values[a].Cmp(values[b])
		})
	case all(list, isBool):
		slices.SortStableFunc(list, func(a, b any) int {
			return cmp.Compare(boolValue(a.(bool)), boolValue(b.(bool)))
		})
	default:
		ids := make([]string, len(list))
		for i, item := range list {
			ids[i] = canonical(item)
		}
		sortIndexed(list, func(a, b int) int {
			return strings.Compare(ids[a], ids[b])
		})
	}
}

// sortIndexed stably sorts list by comparing element positions, so callers
// can compare values computed once per element.
func sortIndexed(list []any, compare func(a, b int) int) {
	index := make([]int, len(list))
	for i := range index {
		index[i] = i
	}
	slices.SortStableFunc(index, compare)

	sorted := make([]any, len(list))
	for i, j := range index {
		sorted[i] = list[j]
	}
	copy(list, sorted)
}

func all(list []any, pred func(any) bool) bool {
	for _, item := range list {
		if !pred(item) {
			return false
		}
	}
	return true
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isNumber(v any) bool {
	_, ok := ratValue(v)
	return ok
}

func boolValue(b bool) int {
	if b {
		return 1
	}
	return 0
}
