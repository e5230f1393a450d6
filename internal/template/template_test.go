package template

import (
	"testing"

	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/typesystem"
)

func TestLowerBoundDepthPreference(t *testing.T) {
	ir := interner.New()
	res := typesystem.NopResolver()
	tid := ir.Intern("T")
	fid := ir.Intern("map")

	r := NewResult([]Param{{Name: tid, Entity: fid}})

	r.AddLowerBound(ir, res, tid, fid, typesystem.String(), 1)
	if b, _ := r.LowerBound(tid, fid); b.Id(ir) != "string" {
		t.Fatalf("bound = %s", b.Id(ir))
	}

	// Deeper evidence never displaces shallower.
	r.AddLowerBound(ir, res, tid, fid, typesystem.Int(), 2)
	if b, _ := r.LowerBound(tid, fid); b.Id(ir) != "string" {
		t.Errorf("deeper evidence displaced shallower: %s", b.Id(ir))
	}

	// Equal depth combines.
	r.AddLowerBound(ir, res, tid, fid, typesystem.Int(), 1)
	if b, _ := r.LowerBound(tid, fid); b.Id(ir) != "int|string" {
		t.Errorf("equal-depth evidence did not combine: %s", b.Id(ir))
	}

	// Shallower evidence replaces.
	r.AddLowerBound(ir, res, tid, fid, typesystem.Bool(), 0)
	if b, _ := r.LowerBound(tid, fid); b.Id(ir) != "bool" {
		t.Errorf("shallower evidence did not replace: %s", b.Id(ir))
	}
}

func TestReadonlyResultIgnoresBounds(t *testing.T) {
	ir := interner.New()
	tid := ir.Intern("T")
	fid := ir.Intern("fst")

	r := NewResult([]Param{{Name: tid, Entity: fid}})
	r.Readonly = true
	r.AddLowerBound(ir, typesystem.NopResolver(), tid, fid, typesystem.Int(), 0)
	if r.HasLowerBound(tid, fid) {
		t.Error("readonly result accepted a bound")
	}
}

// Generic identity: fn<T>(T $x): T called with int(5) returns int(5).
func TestInferredReplaceIdentity(t *testing.T) {
	ir := interner.New()
	res := typesystem.NopResolver()
	tid := ir.Intern("T")
	fid := ir.Intern("identity")

	r := NewResult([]Param{{Name: tid, Entity: fid}})
	r.AddLowerBound(ir, res, tid, fid, typesystem.IntLiteral(5), 0)

	declared := typesystem.NewUnion(typesystem.TGenericParam{Name: tid, DefiningEntity: fid})
	got := InferredReplace(ir, res, declared, r)
	if got.Id(ir) != "int(5)" {
		t.Errorf("return type = %s, want int(5)", got.Id(ir))
	}
}

func TestInferredReplaceDefaultsToDeclaredBound(t *testing.T) {
	ir := interner.New()
	res := typesystem.NopResolver()
	tid := ir.Intern("T")
	fid := ir.Intern("make")

	r := NewResult([]Param{{Name: tid, Entity: fid, Bound: typesystem.String()}})

	declared := typesystem.NewUnion(typesystem.TGenericParam{Name: tid, DefiningEntity: fid})
	got := InferredReplace(ir, res, declared, r)
	if got.Id(ir) != "string" {
		t.Errorf("unbound parameter = %s, want declared bound string", got.Id(ir))
	}
}

func TestStandinReplacePrefersLowerThenUpper(t *testing.T) {
	ir := interner.New()
	res := typesystem.NopResolver()
	tid := ir.Intern("T")
	fid := ir.Intern("walk")

	r := NewResult([]Param{{Name: tid, Entity: fid}})
	r.AddUpperBound(ir, res, tid, fid, typesystem.String(), 0)

	param := typesystem.NewUnion(typesystem.TGenericParam{Name: tid, DefiningEntity: fid})
	if got := StandinReplace(ir, res, param, r); got.Id(ir) != "string" {
		t.Errorf("upper bound not used: %s", got.Id(ir))
	}

	r.AddLowerBound(ir, res, tid, fid, typesystem.Int(), 0)
	if got := StandinReplace(ir, res, param, r); got.Id(ir) != "int" {
		t.Errorf("lower bound not preferred: %s", got.Id(ir))
	}
}

func TestReplaceRecursesIntoStructure(t *testing.T) {
	ir := interner.New()
	res := typesystem.NopResolver()
	tid := ir.Intern("T")
	eid := ir.Intern("Collection")

	r := NewResult([]Param{{Name: tid, Entity: eid}})
	r.AddLowerBound(ir, res, tid, eid, typesystem.String(), 0)

	inner := typesystem.NewUnion(typesystem.TGenericParam{Name: tid, DefiningEntity: eid})
	u := typesystem.NewUnion(
		typesystem.TArray{Key: typesystem.Int(), Value: inner, IsList: true},
		typesystem.TNamedObject{Name: eid, TypeParams: []*typesystem.Union{inner}},
	)
	got := InferredReplace(ir, res, u, r)

	arr := got.Atomics[0].(typesystem.TArray)
	if arr.Value.Id(ir) != "string" {
		t.Errorf("array value = %s", arr.Value.Id(ir))
	}
	obj := got.Atomics[1].(typesystem.TNamedObject)
	if obj.TypeParams[0].Id(ir) != "string" {
		t.Errorf("type param = %s", obj.TypeParams[0].Id(ir))
	}
}

func TestLowerBoundsForClassLike(t *testing.T) {
	ir := interner.New()
	res := typesystem.NopResolver()
	tid := ir.Intern("T")
	vid := ir.Intern("V")
	cid := ir.Intern("Map")
	other := ir.Intern("Seq")

	r := NewResult([]Param{
		{Name: tid, Entity: cid},
		{Name: vid, Entity: cid},
	})
	r.AddLowerBound(ir, res, tid, cid, typesystem.Int(), 0)
	r.AddLowerBound(ir, res, vid, cid, typesystem.String(), 0)

	bounds, ok := r.LowerBoundsForClassLike(cid)
	if !ok || len(bounds) != 2 {
		t.Fatalf("bounds = %v", bounds)
	}
	if bounds[tid].Id(ir) != "int" || bounds[vid].Id(ir) != "string" {
		t.Errorf("bounds = {T: %s, V: %s}", bounds[tid].Id(ir), bounds[vid].Id(ir))
	}
	if _, ok := r.LowerBoundsForClassLike(other); ok {
		t.Error("unrelated class-like reported bounds")
	}
}
