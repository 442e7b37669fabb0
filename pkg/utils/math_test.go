package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("got %v, want [0.6 0.8]", v)
	}
}

func TestNormalizeL2_Zero(t *testing.T) {
	v := []float32{0, 0, 0}
	NormalizeL2(v)
	for i, x := range v {
		if x != 0 {
			t.Errorf("v[%d]=%f, zero vector should stay zero", i, x)
		}
	}
}

func TestNormalizedCopy(t *testing.T) {
	v := []float32{0, 2}
	out := NormalizedCopy(v)
	if v[1] != 2 {
		t.Error("input should not be modified")
	}
	if out[1] != 1 {
		t.Errorf("got %v", out)
	}
}

func TestNormalizeL2_ExtremeScales(t *testing.T) {
	for _, s := range []float32{1e-30, 1e-20, 1e19, 1e20, 3e38} {
		v := []float32{s, s}
		NormalizeL2(v)
		want := 1 / math.Sqrt2
		for i, x := range v {
			if math.Abs(float64(x)-want) > 1e-6 {
				t.Errorf("scale %g: v[%d]=%g, want %g", s, i, x, want)
			}
		}
	}
}
