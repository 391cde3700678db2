// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sam-fredrickson/keybind/internal/term"
)

// lineDiff compares before and after line by line.
func lineDiff(before, after string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

// writeDiff prints every line of before and after, prefixed with "-", "+"
// or a space.
func writeDiff(w io.Writer, paint *term.Painter, before, after string) error {
	for _, d := range lineDiff(before, after) {
		for _, line := range splitLines(d.Text) {
			var err error
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				_, err = fmt.Fprintln(w, paint.Pass("+ "+line))
			case diffmatchpatch.DiffDelete:
				_, err = fmt.Fprintln(w, paint.Fail("- "+line))
			default:
				_, err = fmt.Fprintln(w, "  "+line)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
