// Package pipeline orchestrates a whole-project run: parse and scan
// every file into the shared codebase index, then analyze each file on
// a bounded worker pool. Diagnostics are buffered per file and emitted
// atomically, so output is deterministic regardless of scheduling.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mago-lang/mago/internal/analyzer"
	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/cache"
	"github.com/mago-lang/mago/internal/codebase"
	"github.com/mago-lang/mago/internal/config"
	"github.com/mago-lang/mago/internal/diagnostics"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/names"
	"github.com/mago-lang/mago/internal/parser"
	"github.com/mago-lang/mago/internal/token"
)

// File is one source file to analyze.
type File struct {
	Path    string
	Content string
}

// FileReport is the per-file analysis outcome.
type FileReport struct {
	Path        string
	Diagnostics []*diagnostics.Diagnostic
	Unchanged   bool
}

// Report is the whole-run outcome. Files appear sorted by path.
type Report struct {
	RunID string
	Files []FileReport
}

// Counts tallies diagnostics by level.
func (r *Report) Counts() (errors, warnings, notes int) {
	for _, f := range r.Files {
		for _, d := range f.Diagnostics {
			switch d.Level {
			case diagnostics.LevelError:
				errors++
			case diagnostics.LevelWarning:
				warnings++
			default:
				notes++
			}
		}
	}
	return
}

// ExitCode maps the report onto the process exit policy: errors fail
// the run, warnings fail it only under strict.
func (r *Report) ExitCode(strict bool) int {
	errors, warnings, _ := r.Counts()
	if errors > 0 {
		return 1
	}
	if strict && warnings > 0 {
		return 1
	}
	return 0
}

// Runner drives runs with fixed settings.
type Runner struct {
	settings *config.Settings
	store    *cache.Store // nil disables fingerprinting
}

func NewRunner(settings *config.Settings) *Runner {
	return &Runner{settings: settings}
}

// WithCache attaches a fingerprint store; unchanged files are flagged
// in the report.
func (r *Runner) WithCache(store *cache.Store) *Runner {
	r.store = store
	return r
}

type parsedFile struct {
	file    File
	id      token.FileId
	program *ast.Program
	table   *names.Table
	diags   *diagnostics.Collector
}

// Run analyzes the files and returns the per-file reports.
func (r *Runner) Run(ctx context.Context, files []File) (*Report, error) {
	// Stable file ids: sort inputs by path first, so a file's id (and
	// with it every span) is independent of argument order.
	sorted := append([]File{}, files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	ir := interner.New()

	// Phase 1: parse and resolve concurrently; each worker owns its
	// slot, so no locking.
	parsed := make([]parsedFile, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.settings.Threads)
	for i, f := range sorted {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			diags := diagnostics.NewCollector()
			id := token.FileId(i + 1)
			program := parser.New(id, f.Content, diags).ParseProgram()
			parsed[i] = parsedFile{
				file:    f,
				id:      id,
				program: program,
				table:   names.Resolve(ir, program),
				diags:   diags,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Scan into the index sequentially: metadata merging has one owner,
	// and file order is already canonical.
	buildDiags := diagnostics.NewCollector()
	builder := codebase.NewBuilder(ir, buildDiags)
	for _, p := range parsed {
		builder.AddFile(p.program, p.table)
	}
	cb := builder.Build()

	// Build diagnostics carry their file in the span; hand them to the
	// right per-file collector.
	byFile := make(map[token.FileId][]*diagnostics.Diagnostic)
	for _, d := range buildDiags.Finish() {
		byFile[d.Primary.Span.File] = append(byFile[d.Primary.Span.File], d)
	}

	// Phase 2: analyze each file on the pool.
	reports := make([]FileReport, len(parsed))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(r.settings.Threads)
	for i, p := range parsed {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for _, d := range byFile[p.id] {
				p.diags.Report(d)
			}
			analyzer.New(gctx, ir, cb, p.table, p.diags, r.analyzerOptions()).Analyze(p.program)

			rep := FileReport{Path: p.file.Path, Diagnostics: p.diags.Finish()}
			if r.store != nil {
				unchanged, err := r.store.Unchanged(gctx, p.file.Path, cache.Fingerprint([]byte(p.file.Content)))
				if err != nil {
					return fmt.Errorf("%s: %w", p.file.Path, err)
				}
				rep.Unchanged = unchanged
				if !unchanged {
					if err := r.store.Remember(gctx, p.file.Path, cache.Fingerprint([]byte(p.file.Content))); err != nil {
						return fmt.Errorf("%s: %w", p.file.Path, err)
					}
				}
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if r.store != nil {
		if _, err := r.store.Sweep(ctx); err != nil {
			return nil, err
		}
	}

	return &Report{RunID: uuid.NewString(), Files: reports}, nil
}

func (r *Runner) analyzerOptions() analyzer.Options {
	return analyzer.Options{
		MaxClauses:                      r.settings.MaxClauses,
		LiteralLimit:                    r.settings.LiteralLimit,
		LoopPasses:                      r.settings.LoopPasses,
		AllowPossiblyUndefinedArrayKeys: r.settings.AllowPossiblyUndefinedArrayKeys,
		MemoizeProperties:               r.settings.MemoizeProperties,
	}
}
