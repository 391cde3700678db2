// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sam-fredrickson/keybind"
	"github.com/sam-fredrickson/keybind/internal/term"
)

var version = "dev"

// config holds the parsed command line.
type config struct {
	Options    keybind.Options
	Check      bool
	OutputPath string
	InPlace    bool
	Diff       bool
	Patch      bool
	Format     keybind.Format
	Quiet      bool
	Color      term.ColorMode
}

func main() {
	program := os.Args[0]
	cfg, files, err := parseArgs(program, os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return
	case errors.Is(err, errVersion):
		fmt.Println(version)
		return
	case err != nil:
		os.Exit(2)
	}

	ok, err := Run(cfg, files, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		_, _ = fmt.Fprintf(os.Stderr, "usage: %s [flags] FILE...\n", program)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

var errVersion = errors.New("version requested")

func parseArgs(program string, args []string, errOut io.Writer) (config, []string, error) {
	var cfg config
	var typ docType
	var outFormat format
	var showVersion bool

	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "usage: %s [flags] FILE... [-]\n\n", program)
		fmt.Fprintf(out, "Merges JSON lists or mappings. A FILE of - reads standard input.\n\n")
		fmt.Fprintf(out, "Example:\n")
		fmt.Fprintf(out, "  # combine keybinding files, dropping exact duplicates\n")
		fmt.Fprintf(out, "  %s -unique -keep-order -out keybindings.json base.json local.json\n\n", program)
		fmt.Fprintf(out, "  # report keys bound more than once across files\n")
		fmt.Fprintf(out, "  %s -check base.json local.json\n\n", program)
		fmt.Fprintf(out, "Flags:\n")
		fs.PrintDefaults()
	}

	fs.Var(&typ, "type", `document type [list, mapping, auto] (default "auto")`)
	fs.BoolVar(&cfg.Options.Deep, "deep", false, "merge nested mappings recursively")
	fs.BoolVar(&cfg.Options.Unique, "unique", false, "remove duplicate list elements")
	fs.BoolVar(&cfg.Options.KeepOrder, "keep-order", false, "keep first occurrence order with -unique")
	fs.BoolVar(&cfg.Options.Sort, "sort", false, "sort the merged list")
	fs.BoolVar(&cfg.Check, "check", false, "report keys bound more than once instead of merging")
	fs.StringVar(&cfg.OutputPath, "out", "", "output file path (defaults to stdout)")
	fs.StringVar(&cfg.OutputPath, "o", "", "shorthand for -out")
	fs.BoolVar(&cfg.InPlace, "in-place", false, "overwrite the first file with the result")
	fs.BoolVar(&cfg.InPlace, "i", false, "shorthand for -in-place")
	fs.BoolVar(&cfg.Diff, "diff", false, "show changes to the first file instead of writing")
	fs.BoolVar(&cfg.Patch, "patch", false, "print the JSON merge patch from the first file to the result")
	fs.Var(&outFormat, "format", `output format [json, yaml, toml] (default "json")`)
	fs.BoolVar(&cfg.Quiet, "quiet", false, "suppress status messages")
	fs.BoolVar(&cfg.Quiet, "q", false, "shorthand for -quiet")
	fs.Var(&cfg.Color, "color", `colour output [auto, always, never] (default "auto")`)
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, nil, err
	}
	if showVersion {
		return cfg, nil, errVersion
	}
	cfg.Options.Type = typ.Type()
	cfg.Format = outFormat.Format()
	return cfg, fs.Args(), nil
}

// validate rejects flag combinations that select more than one output.
func (c config) validate(files []string) error {
	var selected []string
	if c.Check {
		selected = append(selected, "-check")
	}
	if c.OutputPath != "" {
		selected = append(selected, "-out")
	}
	if c.InPlace {
		selected = append(selected, "-in-place")
	}
	if c.Diff {
		selected = append(selected, "-diff")
	}
	if c.Patch {
		selected = append(selected, "-patch")
	}
	if len(selected) > 1 {
		return fmt.Errorf("%w: %s are mutually exclusive", keybind.ErrInvalidMode, strings.Join(selected, ", "))
	}
	if (c.InPlace || c.Diff) && len(files) > 0 && files[0] == keybind.StdinName {
		return fmt.Errorf("%w: the first input must be a file with -in-place or -diff", keybind.ErrInvalidMode)
	}
	return nil
}

// Run merges files, or checks them for conflicts, as configured.
// It returns false if a conflict check found conflicts.
func Run(cfg config, files []string, stdin io.Reader, stdout, stderr io.Writer) (bool, error) {
	if err := cfg.validate(files); err != nil {
		return false, err
	}
	merger, err := keybind.NewMerger(cfg.Options)
	if err != nil {
		return false, err
	}
	docs, err := keybind.LoadDocuments(files, stdin)
	if err != nil {
		return false, err
	}

	if cfg.Check {
		groups, err := merger.Conflicts(docs...)
		if err != nil {
			return false, err
		}
		if err := writeConflicts(cfg, groups, stdout); err != nil {
			return false, fmt.Errorf("failed to write output: %w", err)
		}
		return len(groups) == 0, nil
	}

	merged, err := merger.Merge(docs...)
	if err != nil {
		return false, fmt.Errorf("merge failed while processing files %v: %w", files, err)
	}
	marshaled, err := keybind.Marshal(merged, cfg.Format)
	if err != nil {
		return false, fmt.Errorf("failed to marshal result as %s: %w", cfg.Format, err)
	}

	switch {
	case cfg.Patch:
		if err := writePatch(cfg, docs[0], merged, stdout); err != nil {
			return false, err
		}
	case cfg.Diff:
		before, err := keybind.Marshal(docs[0].Value, cfg.Format)
		if err != nil {
			return false, fmt.Errorf("failed to marshal %s as %s: %w", docs[0].Name, cfg.Format, err)
		}
		paint := term.NewPainter(stdout, cfg.Color)
		if err := writeDiff(stdout, paint, string(before), string(marshaled)); err != nil {
			return false, fmt.Errorf("failed to write diff: %w", err)
		}
	case cfg.InPlace:
		return true, writeInPlace(cfg, docs[0], merged, marshaled, stderr)
	case cfg.OutputPath != "":
		if err := os.WriteFile(cfg.OutputPath, marshaled, 0o644); err != nil {
			return false, fmt.Errorf("failed to write output: %w", err)
		}
	default:
		if _, err := stdout.Write(marshaled); err != nil {
			return false, fmt.Errorf("failed to write output: %w", err)
		}
	}
	return true, nil
}

// writeInPlace overwrites the first input with the merged document unless
// the two are already equal as JSON values. Equal numbers spelled
// differently, such as 1 and 1.0, do not cause a rewrite.
func writeInPlace(cfg config, first keybind.Document, merged any, marshaled []byte, stderr io.Writer) error {
	if cfg.Format == keybind.FormatJSON && keybind.Equal(first.Value, merged) {
		if !cfg.Quiet {
			_, _ = fmt.Fprintf(stderr, "%s unchanged\n", first.Name)
		}
		return nil
	}

	info, err := os.Stat(first.Name)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", first.Name, err)
	}
	if err := os.WriteFile(first.Name, marshaled, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", first.Name, err)
	}
	if !cfg.Quiet {
		_, _ = fmt.Fprintf(stderr, "%s updated (%s)\n", first.Name, describe(merged))
	}
	return nil
}

func describe(doc any) string {
	switch doc := doc.(type) {
	case []any:
		return fmt.Sprintf("%d elements", len(doc))
	case map[string]any:
		return fmt.Sprintf("%d fields", len(doc))
	default:
		return keybind.KindOf(doc).String()
	}
}

func writeConflicts(cfg config, groups []keybind.KeyGroup, output io.Writer) error {
	paint := term.NewPainter(output, cfg.Color)
	if len(groups) == 0 {
		if cfg.Quiet {
			return nil
		}
		_, err := fmt.Fprintln(output, paint.Pass("no conflicts"))
		return err
	}

	for _, g := range groups {
		_, err := fmt.Fprintf(output, "%s: %d bindings [%s]\n",
			paint.Warn(g.KeyString()), g.Count, strings.Join(g.Commands, ", "))
		if err != nil {
			return err
		}
	}
	if cfg.Quiet {
		return nil
	}
	_, err := fmt.Fprintln(output, paint.Fail(fmt.Sprintf("%d conflicting keys", len(groups))))
	return err
}

type docType keybind.Type

func (t *docType) String() string {
	return keybind.Type(*t).String()
}

func (t *docType) Set(value string) error {
	typ, err := keybind.ParseType(value)
	if err != nil {
		return err
	}
	*t = docType(typ)
	return nil
}

func (t *docType) Type() keybind.Type {
	return keybind.Type(*t)
}

type format keybind.Format

func (f *format) String() string {
	return string(*f)
}

func (f *format) Set(value string) error {
	parsed, err := keybind.ParseFormat(value)
	if err != nil {
		return err
	}
	*f = format(parsed)
	return nil
}

func (f *format) Format() keybind.Format {
	if *f == "" {
		return keybind.FormatJSON
	}
	return keybind.Format(*f)
}
