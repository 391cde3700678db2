// SPDX-License-Identifier: Apache-2.0

package keybind

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// Format is an output serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat parses a format name. The empty string is [FormatJSON].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", ErrInvalidMode, s)
	}
}

// Marshal encodes doc in format f.
//
// JSON output is indented by two spaces, leaves characters such as '<' and
// '&' unescaped and ends with a newline. Mapping fields are written in sorted
// order in every format. TOML requires a mapping at the root.
func Marshal(doc any, f Format) ([]byte, error) {
	switch f {
	case FormatJSON, "":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYAML:
		return yaml.Marshal(plain(doc))
	case FormatTOML:
		if _, ok := doc.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: toml requires a mapping at the root, got a %s",
				ErrUnsupportedOperation, KindOf(doc))
		}
		return toml.Marshal(plain(doc))
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidMode, string(f))
	}
}

// plain replaces [json.Number] values with int64 or float64 so that
// encoders without knowledge of encoding/json write them as numbers.
func plain(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = plain(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = plain(val)
		}
		return out
	default:
		return v
	}
}
