package typesystem

import (
	"testing"

	"github.com/mago-lang/mago/internal/interner"
)

func TestToTruthy(t *testing.T) {
	ir := interner.New()
	obj := ir.Intern("Foo")
	tests := []struct {
		name string
		in   *Union
		want string
	}{
		{"string narrows to non-empty", String(), "non-empty-string"},
		{"nullable string drops null", Nullable(String()), "non-empty-string"},
		{"bool narrows to true", Bool(), "true"},
		{"false drops out entirely", False(), "never"},
		{"zero literal drops out", IntLiteral(0), "never"},
		{"nonzero literal survives", IntLiteral(5), "int(5)"},
		{"zero string drops out", StringLiteral("0"), "never"},
		{"object survives untouched", NamedObject(obj), "Foo"},
		{"null drops out", Null(), "never"},
		{"mixed becomes truthy-mixed", Mixed(), "truthy-mixed"},
		{"empty array drops out", EmptyArray(), "never"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToTruthy(tt.in)
			if got.Id(ir) != tt.want {
				t.Errorf("ToTruthy(%s) = %s, want %s", tt.in.Id(ir), got.Id(ir), tt.want)
			}
		})
	}
}

func TestToTruthyClearsPossiblyUndefined(t *testing.T) {
	ir := interner.New()
	u := String().Clone()
	u.PossiblyUndefined = true
	got := ToTruthy(u)
	if got.PossiblyUndefined {
		t.Error("truthiness proves the variable is defined")
	}
	_ = ir
}

func TestToFalsy(t *testing.T) {
	ir := interner.New()
	obj := ir.Intern("Foo")
	tests := []struct {
		name string
		in   *Union
		want string
	}{
		{"string keeps its falsy pair", String(), `string("")|string("0")`},
		{"non-empty-string keeps zero", NonEmptyString(), `string("0")`},
		{"bool narrows to false", Bool(), "false"},
		{"int narrows to zero", Int(), "int(0)"},
		{"null survives", Null(), "null"},
		{"object drops out", NamedObject(obj), "never"},
		{"true drops out", True(), "never"},
		{"mixed becomes falsy-mixed", Mixed(), "falsy-mixed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToFalsy(tt.in)
			if got.Id(ir) != tt.want {
				t.Errorf("ToFalsy(%s) = %s, want %s", tt.in.Id(ir), got.Id(ir), tt.want)
			}
		})
	}
}

// Combining the truthy and falsy faces of a type must land inside the
// original: refinement never invents values.
func TestTruthyFalsyPartition(t *testing.T) {
	ir := interner.New()
	for name, u := range testUnions(ir) {
		t.Run(name, func(t *testing.T) {
			truthy := ToTruthy(u)
			falsy := ToFalsy(u)
			joined := Combine(ir, nil, truthy, falsy, 0)
			if !IsContainedBy(ir, nil, joined, u, nil) {
				t.Errorf("truthy|falsy of %s escapes the original: %s", u.Id(ir), joined.Id(ir))
			}
		})
	}
}

// Where the type admits an exact split, the two faces are disjoint.
func TestTruthyFalsyDisjointForBool(t *testing.T) {
	ir := interner.New()
	truthy := ToTruthy(Bool())
	falsy := ToFalsy(Bool())
	if g := Intersect(ir, nil, truthy, falsy); g != nil {
		t.Errorf("true and false overlap on %s", g.Id(ir))
	}
}
