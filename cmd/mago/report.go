package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/pipeline"
)

const (
	colorReset  = "\x1b[0m"
	colorBold   = "\x1b[1m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"
	colorDim    = "\x1b[2m"
)

type reporter struct {
	out     io.Writer
	colored bool
	lines   map[string][]int // path -> byte offset of each line start
}

func newReporter(out io.Writer) *reporter {
	colored := false
	if f, ok := out.(*os.File); ok {
		colored = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &reporter{out: out, colored: colored, lines: make(map[string][]int)}
}

func (r *reporter) paint(color, s string) string {
	if !r.colored {
		return s
	}
	return color + s + colorReset
}

// position converts a byte offset into 1-based line:column, reading the
// file on first use. Falls back to the raw offset when unreadable.
func (r *reporter) position(path string, offset int) string {
	starts, ok := r.lines[path]
	if !ok {
		content, err := os.ReadFile(path)
		if err == nil {
			starts = []int{0}
			for i, b := range content {
				if b == '\n' {
					starts = append(starts, i+1)
				}
			}
		}
		r.lines[path] = starts
	}
	if len(starts) == 0 {
		return fmt.Sprintf("@%d", offset)
	}
	line := sort.Search(len(starts), func(i int) bool { return starts[i] > offset })
	return fmt.Sprintf("%d:%d", line, offset-starts[line-1]+1)
}

func (r *reporter) levelLabel(level diagnostics.Level) string {
	switch level {
	case diagnostics.LevelError:
		return r.paint(colorRed, "error")
	case diagnostics.LevelWarning:
		return r.paint(colorYellow, "warning")
	default:
		return r.paint(colorCyan, "note")
	}
}

func (r *reporter) printDiagnostic(path string, d *diagnostics.Diagnostic) {
	pos := r.position(path, int(d.Primary.Span.Start))
	fmt.Fprintf(r.out, "%s %s %s %s\n",
		r.paint(colorBold, path+":"+pos),
		r.levelLabel(d.Level),
		r.paint(colorDim, "["+string(d.Code)+"]"),
		d.Message)
	if d.Primary.Message != "" {
		fmt.Fprintf(r.out, "    = %s\n", d.Primary.Message)
	}
	for _, sec := range d.Secondary {
		fmt.Fprintf(r.out, "    = %s (%s)\n", sec.Message, r.position(path, int(sec.Span.Start)))
	}
	for _, note := range d.Notes {
		fmt.Fprintf(r.out, "    %s %s\n", r.paint(colorDim, "note:"), note)
	}
	if d.Help != "" {
		fmt.Fprintf(r.out, "    %s %s\n", r.paint(colorDim, "help:"), d.Help)
	}
}

func (r *reporter) print(report *pipeline.Report) {
	total := 0
	for _, f := range report.Files {
		for _, d := range f.Diagnostics {
			r.printDiagnostic(f.Path, d)
			total++
		}
	}

	errors, warnings, notes := report.Counts()
	if total == 0 {
		fmt.Fprintf(r.out, "%s %d files analyzed\n", r.paint(colorBold, "OK"), len(report.Files))
		return
	}

	var parts []string
	if errors > 0 {
		parts = append(parts, r.paint(colorRed, fmt.Sprintf("%d errors", errors)))
	}
	if warnings > 0 {
		parts = append(parts, r.paint(colorYellow, fmt.Sprintf("%d warnings", warnings)))
	}
	if notes > 0 {
		parts = append(parts, fmt.Sprintf("%d notes", notes))
	}
	fmt.Fprintf(r.out, "\n%s in %d files\n", strings.Join(parts, ", "), len(report.Files))
}
