// Package config loads mago.yaml and applies the analyzer's defaults.
//
// Every knob has a documented default; Load never returns a partially
// populated Settings value. The php_version field is validated eagerly
// with semver so feature gates downstream can assume a parsed version.
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultStackSize is the per-worker stack budget in bytes.
	DefaultStackSize = 32 << 20

	// MinStackSize and MaxStackSize clamp the configured stack budget.
	MinStackSize = 8 << 20
	MaxStackSize = 256 << 20

	// DefaultPHPVersion is assumed when mago.yaml does not pin one.
	DefaultPHPVersion = "8.2.0"

	// DefaultMaxClauses bounds CNF growth during condition analysis.
	DefaultMaxClauses = 100

	// DefaultLiteralLimit collapses literal unions past this cardinality.
	DefaultLiteralLimit = 8

	// DefaultLoopPasses bounds the loop fixpoint iteration.
	DefaultLoopPasses = 2
)

// Settings is the top-level mago.yaml configuration.
type Settings struct {
	// Paths are the source roots to scan. Defaults to ".".
	Paths []string `yaml:"paths,omitempty"`

	// Threads is the analysis worker count. 0 means one per CPU.
	Threads int `yaml:"threads,omitempty"`

	// StackSize is the per-worker stack budget in bytes, clamped to
	// [MinStackSize, MaxStackSize].
	StackSize int `yaml:"stack_size,omitempty"`

	// PHPVersion is the targeted language version ("8.1", "8.2.3", ...).
	PHPVersion string `yaml:"php_version,omitempty"`

	// MaxClauses aborts clause reconciliation past this count.
	MaxClauses int `yaml:"max_clauses,omitempty"`

	// LiteralLimit collapses literal unions past this cardinality.
	LiteralLimit int `yaml:"literal_limit,omitempty"`

	// LoopPasses bounds the loop fixpoint iteration.
	LoopPasses int `yaml:"loop_passes,omitempty"`

	// AllowPossiblyUndefinedArrayKeys demotes possibly-undefined array
	// key reads from warnings to silence.
	AllowPossiblyUndefinedArrayKeys bool `yaml:"allow_possibly_undefined_array_keys,omitempty"`

	// MemoizeProperties makes repeated property reads within one
	// invocation yield one type.
	MemoizeProperties bool `yaml:"memoize_properties,omitempty"`

	// PerformHeapAnalysis enables the cross-function data-flow pass.
	PerformHeapAnalysis bool `yaml:"perform_heap_analysis,omitempty"`

	// CachePath is the sqlite index cache location. Empty disables the
	// cache.
	CachePath string `yaml:"cache_path,omitempty"`

	// Strict makes warnings affect the exit code like errors.
	Strict bool `yaml:"strict,omitempty"`

	version *semver.Version
}

// Default returns the settings used when no mago.yaml exists.
func Default() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

// Load reads and validates a mago.yaml file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates raw yaml configuration bytes.
func Parse(data []byte) (*Settings, error) {
	s := &Settings{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := s.applyDefaults(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyDefaults() error {
	if len(s.Paths) == 0 {
		s.Paths = []string{"."}
	}
	if s.Threads <= 0 {
		s.Threads = runtime.NumCPU()
	}
	if s.StackSize == 0 {
		s.StackSize = DefaultStackSize
	}
	if s.StackSize < MinStackSize {
		s.StackSize = MinStackSize
	}
	if s.StackSize > MaxStackSize {
		s.StackSize = MaxStackSize
	}
	if s.PHPVersion == "" {
		s.PHPVersion = DefaultPHPVersion
	}
	v, err := semver.NewVersion(s.PHPVersion)
	if err != nil {
		return fmt.Errorf("invalid php_version %q: %w", s.PHPVersion, err)
	}
	s.version = v
	if s.MaxClauses <= 0 {
		s.MaxClauses = DefaultMaxClauses
	}
	if s.LiteralLimit <= 0 {
		s.LiteralLimit = DefaultLiteralLimit
	}
	if s.LoopPasses <= 0 {
		s.LoopPasses = DefaultLoopPasses
	}
	return nil
}

// Version returns the parsed php_version.
func (s *Settings) Version() *semver.Version { return s.version }

// Feature is a language capability gated on php_version.
type Feature int

const (
	FeatureNamedArguments Feature = iota // 8.0
	FeatureNullsafeOperator              // 8.0
	FeatureEnums                         // 8.1
	FeatureReadonlyProperties            // 8.1
	FeatureConstantsInTraits             // 8.2
)

var featureConstraints = map[Feature]string{
	FeatureNamedArguments:     ">= 8.0.0-0",
	FeatureNullsafeOperator:   ">= 8.0.0-0",
	FeatureEnums:              ">= 8.1.0-0",
	FeatureReadonlyProperties: ">= 8.1.0-0",
	FeatureConstantsInTraits:  ">= 8.2.0-0",
}

// Supports reports whether the configured language version has the
// feature.
func (s *Settings) Supports(f Feature) bool {
	raw, ok := featureConstraints[f]
	if !ok {
		return true
	}
	c, err := semver.NewConstraint(raw)
	if err != nil {
		return true
	}
	return c.Check(s.version)
}
