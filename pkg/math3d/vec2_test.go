package math3d

import (
	"math"
	"testing"
)

func TestVec2Basics(t *testing.T) {
	a := V2(1, 2)
	b := V2(3, 4)

	if sum := a.Add(b); sum != V2(4, 6) {
		t.Errorf("Add = %v, want (4, 6)", sum)
	}
	if diff := b.Sub(a); diff != V2(2, 2) {
		t.Errorf("Sub = %v, want (2, 2)", diff)
	}
	if s := a.Scale(2); s != V2(2, 4) {
		t.Errorf("Scale = %v, want (2, 4)", s)
	}
	if d := a.Dot(b); d != 11 {
		t.Errorf("Dot = %v, want 11", d)
	}
}

func TestVec2Normalize(t *testing.T) {
	tests := []struct {
		name string
		v    Vec2
	}{
		{"unit X", V2(5, 0)},
		{"diagonal", V2(3, 4)},
		{"negative", V2(-2, -2)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := tc.v.Normalize()
			if math.Abs(n.Len()-1) > 1e-9 {
				t.Errorf("Normalize length = %v, want 1", n.Len())
			}
		})
	}

	if z := Zero2().Normalize(); z != (Vec2{}) {
		t.Errorf("Normalize of zero vector = %v, want zero", z)
	}
}

func TestVec2Lerp(t *testing.T) {
	a := V2(0, 0)
	b := V2(10, 20)

	tests := []struct {
		t    float64
		want Vec2
	}{
		{0, V2(0, 0)},
		{1, V2(10, 20)},
		{0.5, V2(5, 10)},
	}
	for _, tc := range tests {
		if got := a.Lerp(b, tc.t); got != tc.want {
			t.Errorf("Lerp(%v) = %v, want %v", tc.t, got, tc.want)
		}
	}
}

func TestVec2Clamp01(t *testing.T) {
	tests := []struct {
		name string
		v    Vec2
		want Vec2
	}{
		{"within range", V2(0.5, 0.25), V2(0.5, 0.25)},
		{"below zero", V2(-1, -0.5), V2(0, 0)},
		{"above one", V2(1.5, 2), V2(1, 1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.v.Clamp01(); got != tc.want {
				t.Errorf("Clamp01 = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVec2LenSq(t *testing.T) {
	v := V2(3, 4)
	if got := v.LenSq(); got != 25 {
		t.Errorf("LenSq = %v, want 25", got)
	}
}
