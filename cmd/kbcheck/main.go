// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sam-fredrickson/keybind"
	"github.com/sam-fredrickson/keybind/internal/term"
)

var version = "dev"

// config holds the parsed command line.
type config struct {
	Recursive      bool
	Quiet          bool
	Verbose        bool
	SkipDuplicates bool
	Color          term.ColorMode
}

func main() {
	program := os.Args[0]
	cfg, paths, err := parseArgs(program, os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return
	case errors.Is(err, errVersion):
		fmt.Println(version)
		return
	case err != nil:
		os.Exit(2)
	}

	ok, err := Run(cfg, paths, os.Stdin, os.Stdout)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

var errVersion = errors.New("version requested")

func parseArgs(program string, args []string, errOut io.Writer) (config, []string, error) {
	var cfg config
	var showVersion bool

	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "usage: %s [flags] PATH...\n\n", program)
		fmt.Fprintf(out, "Checks JSON files for syntax errors and duplicate \"key\" values.\n")
		fmt.Fprintf(out, "A PATH of - reads standard input.\n\n")
		fmt.Fprintf(out, "Example:\n")
		fmt.Fprintf(out, "  # check every keybinding file under keybindings/\n")
		fmt.Fprintf(out, "  %s -r keybindings\n\n", program)
		fmt.Fprintf(out, "Flags:\n")
		fs.PrintDefaults()
	}

	fs.BoolVar(&cfg.Recursive, "recursive", false, "expand directories to the *.json files beneath them")
	fs.BoolVar(&cfg.Recursive, "r", false, "shorthand for -recursive")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "only report failures")
	fs.BoolVar(&cfg.Quiet, "q", false, "shorthand for -quiet")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "show parser messages and document kinds")
	fs.BoolVar(&cfg.Verbose, "v", false, "shorthand for -verbose")
	fs.BoolVar(&cfg.SkipDuplicates, "skip-duplicates", false, "only check syntax")
	fs.Var(&cfg.Color, "color", `colour output [auto, always, never] (default "auto")`)
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, nil, err
	}
	if showVersion {
		return cfg, nil, errVersion
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return cfg, nil, fmt.Errorf("no files to check")
	}
	if cfg.Quiet && cfg.Verbose {
		_, _ = fmt.Fprintln(errOut, "-quiet and -verbose are mutually exclusive")
		return cfg, nil, fmt.Errorf("%w: -quiet and -verbose", keybind.ErrInvalidMode)
	}
	return cfg, fs.Args(), nil
}

// Run validates paths and writes a report to output.
// It returns false if any file failed a check.
func Run(cfg config, paths []string, stdin io.Reader, output io.Writer) (bool, error) {
	v := keybind.NewValidator(keybind.ValidateOptions{
		Recursive:      cfg.Recursive,
		SkipDuplicates: cfg.SkipDuplicates,
	})

	if n := countStdin(paths); n > 1 {
		return false, fmt.Errorf("%w: standard input given %d times", keybind.ErrInvalidMode, n)
	}

	var results []keybind.FileResult
	for _, p := range paths {
		if p == keybind.StdinName {
			results = append(results, v.ValidateReader(p, stdin))
			continue
		}
		report, err := v.Validate(p)
		if err != nil {
			return false, fmt.Errorf("failed to expand %s: %w", p, err)
		}
		results = append(results, report.Results...)
	}

	report := &keybind.Report{Results: results}
	if err := writeReport(cfg, report, output); err != nil {
		return false, fmt.Errorf("failed to write report: %w", err)
	}
	return report.OK(), nil
}

func countStdin(paths []string) int {
	n := 0
	for _, p := range paths {
		if p == keybind.StdinName {
			n++
		}
	}
	return n
}

func writeReport(cfg config, report *keybind.Report, output io.Writer) error {
	paint := term.NewPainter(output, cfg.Color)
	w := &errWriter{w: output}

	for _, res := range report.Results {
		if res.Passed() {
			if cfg.Quiet {
				continue
			}
			if cfg.Verbose {
				w.printf("%s %s %s\n", paint.Pass("PASS"), res.Name, paint.Faint("("+res.Kind.String()+")"))
			} else {
				w.printf("%s %s\n", paint.Pass("PASS"), res.Name)
			}
			continue
		}

		w.printf("%s %s: %s\n", paint.Fail("FAIL"), res.Name, reason(res.Err))
		var dupErr *keybind.DuplicateKeyError
		var synErr *keybind.SyntaxError
		switch {
		case errors.As(res.Err, &dupErr):
			for _, g := range dupErr.Groups {
				w.printf("    %s bound %d times\n", paint.Warn(g.KeyString()), g.Count)
			}
		case errors.As(res.Err, &synErr) && cfg.Verbose:
			if synErr.Offset >= 0 {
				w.printf("    offset %d: %v\n", synErr.Offset, synErr.Err)
			} else {
				w.printf("    %v\n", synErr.Err)
			}
		case cfg.Verbose && !errors.Is(res.Err, keybind.ErrSyntax):
			w.printf("    %v\n", res.Err)
		}
	}

	if !cfg.Quiet {
		failed := report.Failed()
		summary := fmt.Sprintf("%d checked, %d failed", len(report.Results), failed)
		if failed == 0 {
			summary = paint.Pass(summary)
		} else {
			summary = paint.Fail(summary)
		}
		w.printf("\n%s\n", summary)
	}
	return w.err
}

func reason(err error) string {
	switch {
	case errors.Is(err, keybind.ErrFileNotFound):
		return "file not found"
	case errors.Is(err, keybind.ErrSyntax):
		return "invalid JSON"
	case errors.Is(err, keybind.ErrDuplicateKey):
		return "duplicate keys"
	default:
		return err.Error()
	}
}

// errWriter remembers the first write error so reports can be printed
// without checking every call.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
