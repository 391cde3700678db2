// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/sam-fredrickson/keybind"
)

// writePatch writes the JSON merge patch (RFC 7386) that turns the first
// input into the merged document.
//
// Merge patches describe mappings only. A null in the merged document is
// written as null, which a merge patch reads as a deletion.
func writePatch(cfg config, first keybind.Document, merged any, output io.Writer) error {
	_, firstIsMapping := first.Value.(map[string]any)
	_, mergedIsMapping := merged.(map[string]any)
	if !firstIsMapping || !mergedIsMapping {
		return fmt.Errorf("%w: -patch requires mapping documents", keybind.ErrUnsupportedOperation)
	}

	before, err := json.Marshal(first.Value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", first.Name, err)
	}
	after, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return fmt.Errorf("failed to create merge patch: %w", err)
	}

	v, err := keybind.Parse(patch)
	if err != nil {
		return err
	}
	out, err := keybind.Marshal(v, cfg.Format)
	if err != nil {
		return fmt.Errorf("failed to marshal patch as %s: %w", cfg.Format, err)
	}
	if _, err := output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
