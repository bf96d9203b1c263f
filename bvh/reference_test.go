package bvh

import "testing"

func TestPrimTypePacking(t *testing.T) {
	specs := []struct {
		kind      PrimType
		segment   int
		kindIndex int
		curve     bool
		motion    bool
	}{
		{PrimTriangle, 0, 0, false, false},
		{PrimMotionTriangle, 0, 1, false, true},
		{PrimCurve, 7, 2, true, false},
		{PrimMotionCurve, 1023, 3, true, true},
	}

	for specIndex, spec := range specs {
		packed := PackSegment(spec.kind, spec.segment)
		if packed.Kind() != spec.kind {
			t.Fatalf("[spec %d] expected kind %s; got %s", specIndex, spec.kind, packed.Kind())
		}
		if packed.Segment() != spec.segment {
			t.Fatalf("[spec %d] expected segment %d; got %d", specIndex, spec.segment, packed.Segment())
		}
		if packed.KindIndex() != spec.kindIndex {
			t.Fatalf("[spec %d] expected kind index %d; got %d", specIndex, spec.kindIndex, packed.KindIndex())
		}
		if packed.IsCurve() != spec.curve || packed.IsTriangle() == spec.curve {
			t.Fatalf("[spec %d] expected curve flag to be %t", specIndex, spec.curve)
		}
		if packed.IsMotion() != spec.motion {
			t.Fatalf("[spec %d] expected motion flag to be %t", specIndex, spec.motion)
		}
	}

	if PrimNone.String() != "object" {
		t.Fatalf("expected object prim type name; got %q", PrimNone.String())
	}
}

func TestParamsNormalize(t *testing.T) {
	params := Params{TopLevel: true, UseSpatialSplit: true, SpatialHeadroom: 0.5}.Normalize()
	def := DefaultParams()

	if params.UseSpatialSplit {
		t.Fatal("expected spatial splits to be disabled for top-level trees")
	}
	if params.SpatialHeadroom != 1 {
		t.Fatalf("expected headroom to be clamped to 1; got %f", params.SpatialHeadroom)
	}
	if params.MaxDepth != def.MaxDepth || params.MinLeafSize != def.MinLeafSize {
		t.Fatalf("expected depth and leaf size defaults; got %d, %d", params.MaxDepth, params.MinLeafSize)
	}
	if params.ThreadTaskSize != DefaultThreadTaskSize {
		t.Fatalf("expected thread task size %d; got %d", DefaultThreadTaskSize, params.ThreadTaskSize)
	}

	if !params.SmallEnoughForLeaf(1, 0) || !params.SmallEnoughForLeaf(100, params.MaxDepth) || params.SmallEnoughForLeaf(2, 0) {
		t.Fatal("unexpected SmallEnoughForLeaf result")
	}
}
