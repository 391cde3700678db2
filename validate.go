// SPDX-License-Identifier: Apache-2.0

package keybind

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ValidateOptions configures validation.
//
// The zero value checks syntax and duplicate keys of the named files only.
type ValidateOptions struct {
	// Recursive expands directory arguments to every *.json file beneath them.
	Recursive bool
	// SkipDuplicates disables the duplicate key check on list documents.
	SkipDuplicates bool
}

// FileResult is the outcome of validating one input.
type FileResult struct {
	// Name is the validated path.
	Name string
	// Kind is the document's top-level kind. Only meaningful when the
	// document parsed.
	Kind Kind
	// Err is nil when every check passed. Otherwise it matches one of
	// [ErrFileNotFound], [ErrSyntax] or [ErrDuplicateKey].
	Err error
}

// Passed reports whether the input passed every check.
func (r FileResult) Passed() bool {
	return r.Err == nil
}

// Report collects the results of a validation run.
type Report struct {
	Results []FileResult
}

// OK reports whether every input passed.
func (r *Report) OK() bool {
	return r.Failed() == 0
}

// Failed returns the number of inputs that failed.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed() {
			n++
		}
	}
	return n
}

// Validator checks JSON documents for syntax errors and duplicate keys.
//
// A Validator holds no state between calls and is safe to reuse.
type Validator struct {
	opts ValidateOptions
}

// NewValidator creates a new [Validator] with the given options.
func NewValidator(opts ValidateOptions) *Validator {
	return &Validator{opts: opts}
}

// Options returns the options configured for this [Validator].
func (v *Validator) Options() ValidateOptions {
	return v.opts
}

// Validate checks every path and returns one result per file.
//
// Failures of individual files are recorded in the report and do not stop
// the run. The returned error is non-nil only if a directory could not be
// walked.
func (v *Validator) Validate(paths ...string) (*Report, error) {
	files, err := ExpandPaths(paths, v.opts.Recursive)
	if err != nil {
		return nil, err
	}

	report := &Report{Results: make([]FileResult, 0, len(files))}
	for _, file := range files {
		report.Results = append(report.Results, v.checkFile(file))
	}
	return report, nil
}

// Check validates an in-memory document. The name is used for reporting.
func (v *Validator) Check(name string, data []byte) FileResult {
	value, err := parse(name, data)
	if err != nil {
		return FileResult{Name: name, Err: err}
	}

	res := FileResult{Name: name, Kind: KindOf(value)}
	if v.opts.SkipDuplicates {
		return res
	}

	// Mappings and scalars have no records to compare.
	list, ok := value.([]any)
	if !ok {
		return res
	}
	if groups := Duplicates(list); len(groups) > 0 {
		res.Err = &DuplicateKeyError{Name: name, Groups: groups}
	}
	return res
}

// ValidateReader reads a document from r and validates it like [Validator.Check].
func (v *Validator) ValidateReader(name string, r io.Reader) FileResult {
	data, err := io.ReadAll(r)
	if err != nil {
		return FileResult{Name: name, Err: fmt.Errorf("failed to read %s: %w", name, err)}
	}
	return v.Check(name, data)
}

func (v *Validator) checkFile(path string) FileResult {
	data, err := readFile(path)
	if err != nil {
		return FileResult{Name: path, Err: err}
	}
	return v.Check(path, data)
}

// ExpandPaths returns the files to validate for the given arguments.
//
// When recursive is set, each directory is replaced by the *.json files
// beneath it in lexical order. Otherwise, and for arguments that do not
// exist, paths are returned unchanged so they can be reported individually.
func ExpandPaths(paths []string, recursive bool) ([]string, error) {
	if !recursive {
		return paths, nil
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".json" {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
