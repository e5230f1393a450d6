package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"

	"github.com/mago-lang/mago/internal/cache"
	"github.com/mago-lang/mago/internal/config"
	"github.com/mago-lang/mago/internal/diagnostics"
)

func filesFromTxtar(t *testing.T, src string) []File {
	t.Helper()
	archive := txtar.Parse([]byte(src))
	files := make([]File, 0, len(archive.Files))
	for _, f := range archive.Files {
		files = append(files, File{Path: f.Name, Content: string(f.Data)})
	}
	return files
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	s, err := config.Parse([]byte("threads: 4\n"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCrossFileAnalysis(t *testing.T) {
	files := filesFromTxtar(t, `
-- src/greeter.php --
<?php
class Greeter {
    public function hi(): string { return 'hi'; }
}
-- src/main.php --
<?php
function greet(): string {
    $g = new Greeter();
    return $g->hi();
}
`)
	report, err := NewRunner(testSettings(t)).Run(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range report.Files {
		for _, d := range f.Diagnostics {
			t.Errorf("%s: unexpected %s: %s", f.Path, d.Code, d.Message)
		}
	}
	if len(report.Files) != 2 {
		t.Fatalf("want 2 file reports, got %d", len(report.Files))
	}
	if report.Files[0].Path != "src/greeter.php" {
		t.Error("reports must be ordered by path")
	}
}

func TestRunIsDeterministic(t *testing.T) {
	files := filesFromTxtar(t, `
-- src/b.php --
<?php
function useThings(bool $c): void {
    if ($c) { $x = 1; }
    $y = $x;
    $m = new Missing();
}
-- src/a.php --
<?php
class Thing {
    public function go(): int { return 1; }
}
`)
	run := func() []FileReport {
		report, err := NewRunner(testSettings(t)).Run(context.Background(), files)
		if err != nil {
			t.Fatal(err)
		}
		return report.Files
	}

	first := run()
	for i := 0; i < 4; i++ {
		if diff := cmp.Diff(first, run()); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i+1, diff)
		}
	}
}

func TestExitCodePolicy(t *testing.T) {
	errorFiles := filesFromTxtar(t, `
-- src/bad.php --
<?php
function f(): void {
    $m = new Missing();
}
`)
	warningFiles := filesFromTxtar(t, `
-- src/warn.php --
<?php
function f(bool $c): void {
    if ($c) { $x = 1; }
    $y = $x;
}
`)

	withErrors, err := NewRunner(testSettings(t)).Run(context.Background(), errorFiles)
	if err != nil {
		t.Fatal(err)
	}
	if got := withErrors.ExitCode(false); got != 1 {
		t.Errorf("errors must fail the run, got exit %d", got)
	}

	withWarnings, err := NewRunner(testSettings(t)).Run(context.Background(), warningFiles)
	if err != nil {
		t.Fatal(err)
	}
	errors, warnings, _ := withWarnings.Counts()
	if errors != 0 || warnings == 0 {
		t.Fatalf("fixture should produce only warnings, got %d errors %d warnings", errors, warnings)
	}
	if got := withWarnings.ExitCode(false); got != 0 {
		t.Errorf("warnings pass by default, got exit %d", got)
	}
	if got := withWarnings.ExitCode(true); got != 1 {
		t.Errorf("strict mode fails on warnings, got exit %d", got)
	}
}

func TestCacheMarksUnchangedFiles(t *testing.T) {
	ctx := context.Background()
	store, err := cache.Open(ctx, filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	files := filesFromTxtar(t, `
-- src/a.php --
<?php
class A {}
`)
	runner := NewRunner(testSettings(t)).WithCache(store)

	first, err := runner.Run(ctx, files)
	if err != nil {
		t.Fatal(err)
	}
	if first.Files[0].Unchanged {
		t.Error("first run must not report unchanged")
	}

	second, err := runner.Run(ctx, files)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Files[0].Unchanged {
		t.Error("second run over identical content must report unchanged")
	}
}

func TestCancelledRunFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(testSettings(t)).Run(ctx, filesFromTxtar(t, `
-- src/a.php --
<?php
class A {}
`))
	if err == nil {
		t.Fatal("cancelled context must abort the run")
	}
}

func TestBuildDiagnosticsLandInTheRightFile(t *testing.T) {
	files := filesFromTxtar(t, `
-- src/first.php --
<?php
class Dup {}
-- src/second.php --
<?php
class Dup {}
`)
	report, err := NewRunner(testSettings(t)).Run(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}

	var carrier []string
	for _, f := range report.Files {
		for _, d := range f.Diagnostics {
			if d.Code == diagnostics.DuplicateClassLike {
				carrier = append(carrier, f.Path)
			}
		}
	}
	if len(carrier) != 1 || carrier[0] != "src/second.php" {
		t.Errorf("duplicate reported in %v, want only the second declaration site", carrier)
	}
}
