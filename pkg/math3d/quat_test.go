package math3d

import (
	"math"
	"testing"
)

func TestQIdentityRotateVec3(t *testing.T) {
	v := V3(1, 2, 3)
	r := QIdentity().RotateVec3(v)
	if math.Abs(r.X-v.X) > 1e-9 || math.Abs(r.Y-v.Y) > 1e-9 || math.Abs(r.Z-v.Z) > 1e-9 {
		t.Errorf("identity rotation = %v, want %v", r, v)
	}
}

func TestQFromAxisAngleRotatesQuarterTurn(t *testing.T) {
	// Rotating +X by 90 degrees around +Y should give -Z (right-handed).
	q := QFromAxisAngle(V3(0, 1, 0), math.Pi/2)
	r := q.RotateVec3(V3(1, 0, 0))

	if math.Abs(r.X) > 1e-9 || math.Abs(r.Y) > 1e-9 || math.Abs(r.Z-(-1)) > 1e-9 {
		t.Errorf("rotated vector = %v, want (0, 0, -1)", r)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{1, 2, 3, 4}.Normalize()
	if math.Abs(q.Len()-1) > 1e-9 {
		t.Errorf("normalized length = %v, want 1", q.Len())
	}

	if z := (Quat{}).Normalize(); z != QIdentity() {
		t.Errorf("Normalize of zero quaternion = %v, want identity", z)
	}
}

func TestQuatMulIdentity(t *testing.T) {
	q := QFromAxisAngle(V3(0, 0, 1), 1.234)
	if got := q.Mul(QIdentity()); !quatApproxEqual(got, q) {
		t.Errorf("q * identity = %v, want %v", got, q)
	}
	if got := QIdentity().Mul(q); !quatApproxEqual(got, q) {
		t.Errorf("identity * q = %v, want %v", got, q)
	}
}

func TestQuatConjugateIsInverseForUnitQuat(t *testing.T) {
	q := QFromAxisAngle(V3(1, 1, 0), 0.7)
	inv := q.Conjugate()
	identity := q.Mul(inv)

	if !quatApproxEqual(identity, QIdentity()) {
		t.Errorf("q * conjugate(q) = %v, want identity", identity)
	}
}

func TestQuatToMat4MatchesRotateY(t *testing.T) {
	angle := 0.6
	fromQuat := QFromAxisAngle(Up(), angle).ToMat4()
	fromMat := RotateY(angle)

	v := V3(1, 2, 3)
	a := fromQuat.MulVec3(v)
	b := fromMat.MulVec3(v)

	if math.Abs(a.X-b.X) > 1e-9 || math.Abs(a.Y-b.Y) > 1e-9 || math.Abs(a.Z-b.Z) > 1e-9 {
		t.Errorf("quaternion rotation = %v, matrix rotation = %v, want equal", a, b)
	}
}

func TestQuatSlerpEndpoints(t *testing.T) {
	a := QFromAxisAngle(V3(0, 1, 0), 0)
	b := QFromAxisAngle(V3(0, 1, 0), math.Pi/2)

	if got := a.Slerp(b, 0); !quatApproxEqual(got, a) {
		t.Errorf("Slerp(0) = %v, want %v", got, a)
	}
	if got := a.Slerp(b, 1); !quatApproxEqual(got, b) {
		t.Errorf("Slerp(1) = %v, want %v", got, b)
	}
}

func TestQuatSlerpHalfway(t *testing.T) {
	a := QFromAxisAngle(V3(0, 1, 0), 0)
	b := QFromAxisAngle(V3(0, 1, 0), math.Pi/2)
	want := QFromAxisAngle(V3(0, 1, 0), math.Pi/4)

	got := a.Slerp(b, 0.5)
	if !quatApproxEqual(got, want) {
		t.Errorf("Slerp(0.5) = %v, want %v", got, want)
	}
}

func quatApproxEqual(a, b Quat) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.Z-b.Z) < eps && math.Abs(a.W-b.W) < eps
}
