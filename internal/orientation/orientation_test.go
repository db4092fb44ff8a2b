package orientation

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		v    []float64
		want Plane
	}{
		{"coronal", []float64{1, 0, 0, 0, 0, 0}, Coronal},
		{"sagittal", []float64{0, 1, 0, 0, 0, 0}, Sagittal},
		{"axial", []float64{1, 0, 0, 0, 1, 0}, Axial},
		{"unknown", []float64{0, 0, 1, 1, 0, 0}, Unknown},
		{"axial near unit", []float64{0.9998, 0.0174, 0, -0.0174, 0.9998, 0}, Axial},
		{"coronal typical", []float64{1, 0, 0, 0, 0, -1}, Coronal},
		{"sagittal typical", []float64{0, 1, 0, 0, 0, -1}, Sagittal},
		{"negative row x", []float64{-1, 0, 0, 0, 1, 0}, Unknown},
		{"all zero", []float64{0, 0, 0, 0, 0, 0}, Unknown},
		{"half rounds to even", []float64{0.5, 0, 0, 0, 0, 0}, Unknown},
		{"one and a half rounds to two", []float64{1.5, 0, 0, 0, 1, 0}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.v)
			if err != nil {
				t.Fatalf("Classify(%v) returned error: %v", tt.v, err)
			}
			if got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.v, got, tt.want)
			}
		})
	}
}

// The z components never influence the result.
func TestClassify_IgnoresZ(t *testing.T) {
	base := []Plane{Coronal, Sagittal, Axial}
	vectors := [][]float64{
		{1, 0, 0, 0, 0, 0},
		{0, 1, 0, 0, 0, 0},
		{1, 0, 0, 0, 1, 0},
	}
	for i, v := range vectors {
		for _, rowZ := range []float64{-1, 0, 1} {
			for _, colZ := range []float64{-1, 0, 1} {
				w := append([]float64(nil), v...)
				w[2], w[5] = rowZ, colZ
				got, err := Classify(w)
				if err != nil {
					t.Fatalf("Classify(%v) returned error: %v", w, err)
				}
				if got != base[i] {
					t.Errorf("Classify(%v) = %q, want %q", w, got, base[i])
				}
			}
		}
	}
}

func TestClassify_InvalidShape(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 7, 12} {
		v := make([]float64, n)
		_, err := Classify(v)
		if !errors.Is(err, ErrInvalidInputShape) {
			t.Errorf("Classify(len=%d) error = %v, want ErrInvalidInputShape", n, err)
		}
	}
}

func TestClassify_AlwaysReturnsKnownLabel(t *testing.T) {
	valid := make(map[Plane]bool)
	for _, p := range All() {
		valid[p] = true
	}

	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 2000; i++ {
		v := make([]float64, VectorLength)
		for j := range v {
			v[j] = float64(rng.IntN(5)-2) + (rng.Float64()-0.5)*0.4
		}
		got, err := Classify(v)
		if err != nil {
			t.Fatalf("Classify(%v) returned error: %v", v, err)
		}
		if !valid[got] {
			t.Fatalf("Classify(%v) = %q, not a known plane", v, got)
		}
	}
}

// Exhaustive check over every integer vector in {-1,0,1}^6 against the
// decision table, evaluated in order.
func TestClassify_FirstMatchWins(t *testing.T) {
	values := []float64{-1, 0, 1}
	count := 0
	for _, a := range values {
		for _, b := range values {
			for _, c := range values {
				for _, d := range values {
					for _, e := range values {
						for _, f := range values {
							v := []float64{a, b, c, d, e, f}
							want := Unknown
							switch {
							case a == 1 && b == 0 && d == 0 && e == 0:
								want = Coronal
							case a == 0 && b == 1 && d == 0 && e == 0:
								want = Sagittal
							case a == 1 && b == 0 && d == 0 && e == 1:
								want = Axial
							}
							got, err := Classify(v)
							if err != nil {
								t.Fatalf("Classify(%v) returned error: %v", v, err)
							}
							if got != want {
								t.Errorf("Classify(%v) = %q, want %q", v, got, want)
							}
							count++
						}
					}
				}
			}
		}
	}
	if count != 729 {
		t.Errorf("checked %d vectors, want 729", count)
	}
}
