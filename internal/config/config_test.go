package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	s := Default()
	if s.Threads <= 0 {
		t.Error("threads must default to a positive worker count")
	}
	if s.StackSize != DefaultStackSize {
		t.Errorf("stack size default: got %d", s.StackSize)
	}
	if s.PHPVersion != DefaultPHPVersion || s.Version() == nil {
		t.Errorf("php version default: got %q", s.PHPVersion)
	}
	if s.MaxClauses != DefaultMaxClauses || s.LiteralLimit != DefaultLiteralLimit {
		t.Error("analyzer thresholds not defaulted")
	}
	if len(s.Paths) != 1 || s.Paths[0] != "." {
		t.Errorf("paths default: got %v", s.Paths)
	}
}

func TestStackSizeClamping(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"below minimum", 1 << 20, MinStackSize},
		{"above maximum", 1 << 30, MaxStackSize},
		{"in range", 64 << 20, 64 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settings{StackSize: tt.in}
			if err := s.applyDefaults(); err != nil {
				t.Fatal(err)
			}
			if s.StackSize != tt.want {
				t.Errorf("got %d, want %d", s.StackSize, tt.want)
			}
		})
	}
}

func TestParseRejectsBadVersion(t *testing.T) {
	if _, err := Parse([]byte("php_version: not-a-version\n")); err == nil {
		t.Fatal("invalid php_version must be rejected at load time")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mago.yaml")
	src := `
paths:
  - src
  - lib
threads: 3
php_version: "8.1.2"
strict: true
max_clauses: 50
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Threads != 3 || !s.Strict || s.MaxClauses != 50 {
		t.Errorf("loaded settings wrong: %+v", s)
	}
	if len(s.Paths) != 2 || s.Paths[0] != "src" {
		t.Errorf("paths: %v", s.Paths)
	}
	if s.Version().Minor() != 1 {
		t.Errorf("version: %s", s.Version())
	}
}

func TestFeatureGates(t *testing.T) {
	s80, err := Parse([]byte(`php_version: "8.0"`))
	if err != nil {
		t.Fatal(err)
	}
	s82, err := Parse([]byte(`php_version: "8.2"`))
	if err != nil {
		t.Fatal(err)
	}

	if !s80.Supports(FeatureNamedArguments) {
		t.Error("8.0 has named arguments")
	}
	if s80.Supports(FeatureEnums) {
		t.Error("8.0 has no enums")
	}
	if !s82.Supports(FeatureEnums) || !s82.Supports(FeatureConstantsInTraits) {
		t.Error("8.2 gates wrong")
	}
}
