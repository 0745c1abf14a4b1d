package unitcell

import (
	"math"
	"testing"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestInvert3x3(t *testing.T) {
	m := [3][3]float64{{2, 1, 0}, {1, 3, 1}, {0, 1, 4}}
	inv, err := Invert3x3(m)
	if err != nil {
		t.Fatal(err)
	}

	// M·M⁻¹ must be the identity.
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += m[i][k] * inv[k][j]
			}
			want := 0.0
			if i == j {
				want = 1.0
			}
			if !near(s, want, 1e-5) {
				t.Errorf("(M·M⁻¹)[%d][%d] = %g; want %g", i, j, s, want)
			}
		}
	}
}

func TestInvert3x3Singular(t *testing.T) {
	m := [3][3]float64{{1, 2, 3}, {2, 4, 6}, {0, 0, 1}}
	_, err := Invert3x3(m)
	if err == nil {
		t.Fatal("expected an error for a singular matrix")
	}
}

func TestNewDegenerate(t *testing.T) {
	// Triclinic (off-diagonal terms over the tolerance) and singular.
	m := [3][3]float64{{1, 2, 3}, {2, 4, 6}, {0, 0, 1}}
	_, err := New(m)
	if err == nil {
		t.Fatal("expected a degenerate unit cell error")
	}
}

func TestNewClassification(t *testing.T) {
	ortho := [3][3]float64{{10, 0, 0}, {0, 12, 0}, {0, 0, 14}}
	c, err := New(ortho)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Ortho() {
		t.Error("diagonal cell classified as triclinic")
	}

	tric := [3][3]float64{{10, 0, 0}, {2, 9, 0}, {1, 1, 8}}
	c, err = New(tric)
	if err != nil {
		t.Fatal(err)
	}
	if c.Ortho() {
		t.Error("sheared cell classified as orthogonal")
	}
}

func TestMinImageSquaredOrtho(t *testing.T) {
	box := [3]float64{10, 10, 10}
	p := [3]float64{1, 1, 1}
	q := [3]float64{9, 9, 9}

	// Each separation wraps from -8 to 2.
	if d2 := MinImageSquaredOrtho(p, q, box); !near(d2, 12, 1e-12) {
		t.Errorf("MinImageSquaredOrtho = %g; want 12", d2)
	}
}

func TestMinImageSymmetry(t *testing.T) {
	box := [3]float64{10, 12, 14}
	p := [3]float64{0.3, 11.2, 1.7}
	q := [3]float64{9.1, 2.5, 13.9}

	a := MinImageSquaredOrtho(p, q, box)
	b := MinImageSquaredOrtho(q, p, box)
	if !near(a, b, 1e-12) {
		t.Errorf("orthogonal path not symmetric: %g vs %g", a, b)
	}

	cell := [3][3]float64{{10, 0, 0}, {2, 9, 0}, {1, 1, 8}}
	inv, err := Invert3x3(cell)
	if err != nil {
		t.Fatal(err)
	}
	a = MinImageSquaredTriclinic(p, q, cell, inv)
	b = MinImageSquaredTriclinic(q, p, cell, inv)
	if !near(a, b, 1e-9) {
		t.Errorf("triclinic path not symmetric: %g vs %g", a, b)
	}
}

func TestMinImagePeriodicInvariance(t *testing.T) {
	cell := [3][3]float64{{10, 0, 0}, {2, 9, 0}, {1, 1, 8}}
	inv, err := Invert3x3(cell)
	if err != nil {
		t.Fatal(err)
	}

	p := [3]float64{1.1, 2.2, 3.3}
	q := [3]float64{4.4, 5.5, 6.6}
	ref := MinImageSquaredTriclinic(p, q, cell, inv)

	// Translating q by any integer combination of the cell vectors must not
	// change the minimum image distance.
	for _, n := range [][3]float64{{1, 0, 0}, {0, -1, 0}, {2, 1, -1}, {-1, 2, 3}} {
		var qt [3]float64
		for k := 0; k < 3; k++ {
			qt[k] = q[k] + n[0]*cell[0][k] + n[1]*cell[1][k] + n[2]*cell[2][k]
		}
		if d2 := MinImageSquaredTriclinic(p, qt, cell, inv); !near(d2, ref, 1e-6) {
			t.Errorf("translation %v: %g; want %g", n, d2, ref)
		}
	}
}

func TestMinImageEdgeVector(t *testing.T) {
	// The rows of the cell matrix are the edge vectors: a point and its image
	// shifted by one full edge vector coincide.
	cell := [3][3]float64{{10, 0, 0}, {2, 9, 0}, {1, 1, 8}}
	inv, err := Invert3x3(cell)
	if err != nil {
		t.Fatal(err)
	}

	p := [3]float64{1.1, 2.2, 3.3}
	for r := 0; r < 3; r++ {
		q := [3]float64{p[0] + cell[r][0], p[1] + cell[r][1], p[2] + cell[r][2]}
		if d2 := MinImageSquaredTriclinic(p, q, cell, inv); !near(d2, 0, 1e-9) {
			t.Errorf("edge vector %d: %g; want 0", r, d2)
		}
	}
}

func TestOrthoTriclinicAgreement(t *testing.T) {
	cell := [3][3]float64{{10, 0, 0}, {0, 12, 0}, {0, 0, 14}}
	inv, err := Invert3x3(cell)
	if err != nil {
		t.Fatal(err)
	}
	box := [3]float64{10, 12, 14}

	pairs := [][2][3]float64{
		{{1, 1, 1}, {9, 11, 13}},
		{{0.5, 6.1, 7.2}, {9.9, 0.3, 13.5}},
		{{5, 6, 7}, {5.1, 6.2, 7.3}},
		{{2.5, 3.5, 4.5}, {8.5, 9.5, 10.5}},
	}
	for _, pq := range pairs {
		a := MinImageSquaredOrtho(pq[0], pq[1], box)
		b := MinImageSquaredTriclinic(pq[0], pq[1], cell, inv)
		if !near(a, b, 1e-9) {
			t.Errorf("p=%v q=%v: ortho %g, triclinic %g", pq[0], pq[1], a, b)
		}
	}
}

func TestCellDispatch(t *testing.T) {
	c, err := New([3][3]float64{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}})
	if err != nil {
		t.Fatal(err)
	}

	p := [3]float64{1, 1, 1}
	q := [3]float64{9, 9, 9}
	if d2 := c.MinImageSquared(p, q); !near(d2, 12, 1e-12) {
		t.Errorf("MinImageSquared = %g; want 12", d2)
	}
}

func TestDist(t *testing.T) {
	p := [3]float64{0, 0, 0}
	q := [3]float64{1, 2, 2}
	if d := Dist(p, q); !near(d, 3, 1e-12) {
		t.Errorf("Dist = %g; want 3", d)
	}
	if d2 := DistSquared(p, q); !near(d2, 9, 1e-12) {
		t.Errorf("DistSquared = %g; want 9", d2)
	}
}

func TestMulVec(t *testing.T) {
	m := [3][3]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	v := [3]float64{1, 0, -1}
	got := MulVec(m, v)
	want := [3]float64{-2, -2, -2}
	for k := 0; k < 3; k++ {
		if !near(got[k], want[k], 1e-12) {
			t.Errorf("MulVec[%d] = %g; want %g", k, got[k], want[k])
		}
	}

	got = MulVecT(m, v)
	want = [3]float64{-6, -6, -6}
	for k := 0; k < 3; k++ {
		if !near(got[k], want[k], 1e-12) {
			t.Errorf("MulVecT[%d] = %g; want %g", k, got[k], want[k])
		}
	}
}
