package diagnostics

import (
	"testing"

	"github.com/mago-lang/mago/internal/token"
)

func span(start, end uint32) token.Span {
	return token.Span{Start: start, End: end, StartLine: 1}
}

func TestDeduplication(t *testing.T) {
	c := NewCollector()
	c.Report(New(UnknownClass, span(10, 20), "unknown class Foo"))
	c.Report(New(UnknownClass, span(10, 20), "unknown class Foo (again)"))
	c.Report(New(UnknownClass, span(30, 40), "unknown class Bar"))

	got := c.Finish()
	if len(got) != 2 {
		t.Fatalf("got %d diagnostics, want 2", len(got))
	}
	if got[0].Message != "unknown class Foo" {
		t.Errorf("first report should win, got %q", got[0].Message)
	}
}

func TestSortedByStartThenCode(t *testing.T) {
	c := NewCollector()
	c.Report(New(UnknownMethod, span(50, 60), "b"))
	c.Report(New(UnknownClass, span(50, 60), "a"))
	c.Report(New(UnknownClass, span(5, 8), "c"))

	got := c.Finish()
	if len(got) != 3 {
		t.Fatalf("got %d diagnostics, want 3", len(got))
	}
	if got[0].Primary.Span.Start != 5 {
		t.Errorf("expected earliest span first, got start=%d", got[0].Primary.Span.Start)
	}
	if got[1].Code != UnknownClass || got[2].Code != UnknownMethod {
		t.Errorf("ties broken by code: got %s then %s", got[1].Code, got[2].Code)
	}
}

func TestMute(t *testing.T) {
	c := NewCollector()
	restore := c.Mute()
	c.Report(New(UnknownClass, span(1, 2), "hidden"))
	restore()
	c.Report(New(UnknownClass, span(3, 4), "visible"))

	got := c.Finish()
	if len(got) != 1 || got[0].Message != "visible" {
		t.Fatalf("mute did not suppress: %v", got)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		ds     []*Diagnostic
		strict bool
		want   int
	}{
		{"empty", nil, false, 0},
		{"note", []*Diagnostic{New(RedundantElvis, span(0, 1), "x")}, false, 0},
		{"warning", []*Diagnostic{New(PossiblyNullDereference, span(0, 1), "x")}, false, 0},
		{"warning strict", []*Diagnostic{New(PossiblyNullDereference, span(0, 1), "x")}, true, 1},
		{"error", []*Diagnostic{New(InvalidThrow, span(0, 1), "x")}, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.ds, tt.strict); got != tt.want {
				t.Errorf("ExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}
