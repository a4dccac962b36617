package common

import (
	"math"
	"testing"
)

func TestFlt(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{nil, 0},
		{3.5, 3.5},
		{float32(2), 2},
		{7, 7},
		{int64(9), 9},
		{true, 1},
		{false, 0},
		{" 12.5 ", 12.5},
		{"abc", 0},
		{"", 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{[]int{1}, 0},
	}
	for _, tc := range cases {
		if got := Flt(tc.in); got != tc.want {
			t.Fatalf("Flt(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCintTruncates(t *testing.T) {
	if got := Cint("3.9"); got != 3 {
		t.Fatalf("Cint(3.9) = %d, want truncation toward zero", got)
	}
	if got := Cint(-2.7); got != -2 {
		t.Fatalf("Cint(-2.7) = %d, want -2", got)
	}
}

func TestNonNeg(t *testing.T) {
	if got := NonNeg(-5); got != 0 {
		t.Fatalf("NonNeg(-5) = %v", got)
	}
	if got := NonNeg(math.NaN()); got != 0 {
		t.Fatalf("NonNeg(NaN) = %v", got)
	}
	if got := NonNeg(4); got != 4 {
		t.Fatalf("NonNeg(4) = %v", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Fatalf("Clamp(5,0,10) = %v", got)
	}
	if got := Clamp(-1, 0, 10); got != 0 {
		t.Fatalf("Clamp(-1,0,10) = %v", got)
	}
	if got := Clamp(11, 0, 10); got != 10 {
		t.Fatalf("Clamp(11,0,10) = %v", got)
	}
}

func TestAtoiDefault(t *testing.T) {
	if got := AtoiDefault("25", 10); got != 25 {
		t.Fatalf("AtoiDefault(25) = %d", got)
	}
	if got := AtoiDefault("", 10); got != 10 {
		t.Fatalf("AtoiDefault(empty) = %d", got)
	}
	if got := AtoiDefault("x", 10); got != 10 {
		t.Fatalf("AtoiDefault(x) = %d", got)
	}
}
