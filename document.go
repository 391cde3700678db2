// SPDX-License-Identifier: Apache-2.0

package keybind

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"math/big"
	"os"
	"slices"
	"strconv"
	"strings"
)

// StdinName is the path argument that selects standard input as a document source.
const StdinName = "-"

// Kind is the top-level shape of a document.
type Kind int

const (
	// KindScalar is a string, number, bool or null.
	KindScalar Kind = iota
	// KindList is a JSON array.
	KindList
	// KindMapping is a JSON object.
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// KindOf reports the kind of a decoded value.
func KindOf(v any) Kind {
	switch v.(type) {
	case []any:
		return KindList
	case map[string]any:
		return KindMapping
	default:
		return KindScalar
	}
}

// Document is a decoded JSON value together with the name of its source.
type Document struct {
	// Name is the file path the document was read from, or [StdinName].
	Name string
	// Value is []any, map[string]any, string, [json.Number], bool or nil.
	Value any
}

// Kind reports the kind of the document's value.
func (d Document) Kind() Kind {
	return KindOf(d.Value)
}

// Parse decodes exactly one JSON value from data.
//
// Numbers are decoded as [json.Number] so they are written back unchanged.
// Failures are reported as a [*SyntaxError].
func Parse(data []byte) (any, error) {
	return parse("document", data)
}

func parse(name string, data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SyntaxError{Name: name, Offset: 0, Err: errors.New("empty document")}
		}
		offset := int64(-1)
		var se *json.SyntaxError
		if errors.As(err, &se) {
			offset = se.Offset
		}
		return nil, &SyntaxError{Name: name, Offset: offset, Err: err}
	}

	// Anything other than whitespace after the value is an error.
	offset := dec.InputOffset()
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, &SyntaxError{Name: name, Offset: offset, Err: err}
	}
	return v, nil
}

// ReadDocument reads and parses the JSON file at path.
//
// The path must name an existing regular file, otherwise the returned error
// matches [ErrFileNotFound].
func ReadDocument(path string) (Document, error) {
	data, err := readFile(path)
	if err != nil {
		return Document{}, err
	}
	v, err := parse(path, data)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: path, Value: v}, nil
}

// LoadDocuments reads every source in paths, in order.
//
// A path equal to [StdinName] reads from stdin; it may appear at most once.
// Without a standard-input source at least two paths are required.
func LoadDocuments(paths []string, stdin io.Reader) ([]Document, error) {
	stdinCount := 0
	for _, p := range paths {
		if p == StdinName {
			stdinCount++
		}
	}
	if stdinCount > 1 {
		return nil, fmt.Errorf("%w: standard input given %d times", ErrInvalidMode, stdinCount)
	}
	if stdinCount == 0 && len(paths) < 2 {
		return nil, fmt.Errorf("%w: need at least two files, got %d", ErrInsufficientInputs, len(paths))
	}

	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		if p != StdinName {
			doc, err := ReadDocument(p)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		if stdin == nil {
			return nil, fmt.Errorf("%w: standard input is not available", ErrFileNotFound)
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		v, err := parse(StdinName, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Name: StdinName, Value: v})
	}
	return docs, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrFileNotFound, path)
	}
	return os.ReadFile(path)
}

// Equal reports whether a and b are the same JSON value. Object field order
// is ignored and numbers compare by value, so 1, 1.0 and 1e0 are equal.
func Equal(a, b any) bool {
	return canonical(a) == canonical(b)
}

// canonical returns a deterministic encoding of v used for equality and
// ordering. Object keys are sorted and numbers are written as exact
// fractions, so equal numbers encode the same regardless of spelling.
func canonical(v any) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch v := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case string:
		b.WriteString(encodeJSON(v))
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	case map[string]any:
		b.WriteByte('{')
		for i, k := range slices.Sorted(maps.Keys(v)) {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(encodeJSON(k))
			b.WriteByte(':')
			writeCanonical(b, v[k])
		}
		b.WriteByte('}')
	default:
		if r, ok := ratValue(v); ok {
			b.WriteString(r.RatString())
			return
		}
		b.WriteString(encodeJSON(v))
	}
}

// encodeJSON returns the compact JSON encoding of v for display.
func encodeJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}

// maxExponent bounds the decimal exponents converted to exact values.
// Larger ones are compared by their text.
const maxExponent = 4096

// ratValue converts the numeric types produced by JSON, YAML and TOML
// decoders to an exact rational.
func ratValue(v any) (*big.Rat, bool) {
	switch n := v.(type) {
	case json.Number:
		s := n.String()
		if i := strings.IndexAny(s, "eE"); i >= 0 {
			exp, err := strconv.Atoi(s[i+1:])
			if err != nil || exp > maxExponent || exp < -maxExponent {
				return nil, false
			}
		}
		return new(big.Rat).SetString(s)
	case float64:
		r := new(big.Rat).SetFloat64(n)
		return r, r != nil
	case float32:
		r := new(big.Rat).SetFloat64(float64(n))
		return r, r != nil
	case int:
		return new(big.Rat).SetInt64(int64(n)), true
	case int64:
		return new(big.Rat).SetInt64(n), true
	case uint64:
		return new(big.Rat).SetInt(new(big.Int).SetUint64(n)), true
	default:
		return nil, false
	}
}
