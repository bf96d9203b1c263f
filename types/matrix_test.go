package types

import "testing"

func TestMatrixTransforms(t *testing.T) {
	m := Translate4(XYZ(1, 2, 3)).Mul4(Scale4(XYZ(2, 3, 4)))

	type spec struct {
		in, expOut Vec3
	}
	specs := []spec{
		{XYZ(0, 0, 0), XYZ(1, 2, 3)},
		{XYZ(1, 1, 1), XYZ(3, 5, 7)},
		{XYZ(-1, 0, 2), XYZ(-1, 2, 11)},
	}
	for idx, s := range specs {
		if out := m.MulPoint(s.in); out != s.expOut {
			t.Fatalf("[spec %d] expected %v; got %v", idx, s.expOut, out)
		}
	}

	if !Ident4().IsIdent() || m.IsIdent() {
		t.Fatal("expected only the identity matrix to be reported as identity")
	}
	if out := Ident4().Mul4(m); out != m {
		t.Fatalf("expected identity product to leave the matrix unchanged; got %v", out)
	}
}

func TestQuaternionMatrix(t *testing.T) {
	type spec struct {
		axis       Vec3
		degrees    float32
		in, expOut Vec3
	}
	specs := []spec{
		{XYZ(0, 1, 0), 90, XYZ(1, 0, 0), XYZ(0, 0, -1)},
		{XYZ(0, 0, 2), 90, XYZ(1, 0, 0), XYZ(0, 1, 0)},
		{XYZ(1, 0, 0), 180, XYZ(0, 1, 0), XYZ(0, -1, 0)},
		{XYZ(1, 0, 0), 0, XYZ(4, 5, 6), XYZ(4, 5, 6)},
	}

	for idx, s := range specs {
		m := QuatFromAxisAngle(s.axis, s.degrees*3.14159265/180).Mat4()
		if out := m.MulPoint(s.in); out.Sub(s.expOut).Len() > 1e-5 {
			t.Fatalf("[spec %d] expected %v; got %v", idx, s.expOut, out)
		}
	}
}

func TestNormalize(t *testing.T) {
	if v := XYZ(3, 0, 4).Normalize(); v.Sub(XYZ(0.6, 0, 0.8)).Len() > 1e-6 {
		t.Fatalf("expected normalized vector to be (0.6, 0, 0.8); got %v", v)
	}
	if v := (Vec3{}).Normalize(); v != (Vec3{}) {
		t.Fatalf("expected zero vector to normalize to zero; got %v", v)
	}
}
