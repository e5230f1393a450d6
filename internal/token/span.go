package token

import "fmt"

// FileId identifies a source file within one analysis run.
type FileId uint32

// Span is a half-open byte range [Start, End) in a single source file.
// StartLine is the 1-based line of the first byte, kept for reporting so
// consumers do not need to re-scan the file.
type Span struct {
	File      FileId
	Start     uint32
	End       uint32
	StartLine uint32
}

// Key is a compact map key for span-indexed tables (expression types,
// data-flow nodes). Two distinct expressions never share (Start, End)
// within one file.
type Key uint64

func (s Span) Key() Key {
	return Key(uint64(s.Start)<<32 | uint64(s.End))
}

// Join returns the smallest span covering both s and other.
func (s Span) Join(other Span) Span {
	out := s
	if other.Start < out.Start {
		out.Start = other.Start
		out.StartLine = other.StartLine
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

// Contains reports whether other lies entirely within s.
func (s Span) Contains(other Span) bool {
	return s.File == other.File && s.Start <= other.Start && other.End <= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.StartLine, s.Start, s.End)
}
