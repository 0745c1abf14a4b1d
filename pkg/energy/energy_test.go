package energy

import (
	"math"
	"testing"

	"github.com/kpotier/gistsolv/pkg/unitcell"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestPairwise(t *testing.T) {
	// Two atoms 2.0 apart: Coulomb q/sqrt(d²) = 0.5 and Lennard-Jones
	// 100/2¹² − 10/2⁶ ≈ −0.1319.
	dist := [][]float64{{4.0}}
	chg := [][]float64{{1.0}}
	acoeff := [][]float64{{100.0}}
	bcoeff := [][]float64{{10.0}}

	Pairwise(5, []int{2}, dist, chg, acoeff, bcoeff)

	if !near(chg[0][0], 0.5, 1e-12) {
		t.Errorf("Coulomb term = %g; want 0.5", chg[0][0])
	}
	if !near(acoeff[0][0], -0.1319, 1e-4) {
		t.Errorf("Lennard-Jones term = %g; want -0.1319", acoeff[0][0])
	}
	if bcoeff[0][0] != 10.0 {
		t.Errorf("B coefficients mutated: %g", bcoeff[0][0])
	}
}

func TestPairwiseSelfSkipped(t *testing.T) {
	// The pair whose target atom is the site atom itself stays untouched; the
	// other columns are converted.
	dist := [][]float64{{0, 4}}
	chg := [][]float64{{7, 1}}
	acoeff := [][]float64{{3, 100}}
	bcoeff := [][]float64{{2, 10}}

	Pairwise(0, []int{0, 3}, dist, chg, acoeff, bcoeff)

	if chg[0][0] != 7 || acoeff[0][0] != 3 {
		t.Errorf("self pair mutated: chg %g, acoeff %g", chg[0][0], acoeff[0][0])
	}
	if !near(chg[0][1], 0.5, 1e-12) {
		t.Errorf("Coulomb term = %g; want 0.5", chg[0][1])
	}
}

func TestPairwiseColumnNotSelf(t *testing.T) {
	// A column whose index happens to equal the site atom id is still a real
	// pair when its target atom differs: it must be converted.
	dist := [][]float64{{4.0}}
	chg := [][]float64{{1.0}}
	acoeff := [][]float64{{100.0}}
	bcoeff := [][]float64{{10.0}}

	Pairwise(0, []int{1}, dist, chg, acoeff, bcoeff)

	if !near(chg[0][0], 0.5, 1e-12) {
		t.Errorf("Coulomb term = %g; want 0.5", chg[0][0])
	}
	if !near(acoeff[0][0], 100.0/4096-10.0/64, 1e-12) {
		t.Errorf("Lennard-Jones term = %g; want %g", acoeff[0][0], 100.0/4096-10.0/64)
	}
}

func TestAccumulateDistances(t *testing.T) {
	cell, err := unitcell.New([3][3]float64{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}})
	if err != nil {
		t.Fatal(err)
	}

	coords := [][3]float32{{1, 1, 1}, {9, 9, 9}}
	acc := [][]float64{{0}}

	// The separations wrap: each axis contributes 2² = 4.
	if err := AccumulateDistances(0, []int{1}, coords, cell, acc); err != nil {
		t.Fatal(err)
	}
	if !near(acc[0][0], 12, 1e-5) {
		t.Errorf("acc = %g; want 12", acc[0][0])
	}

	// Accumulation over a second configuration is a plain sum.
	if err := AccumulateDistances(0, []int{1}, coords, cell, acc); err != nil {
		t.Fatal(err)
	}
	if !near(acc[0][0], 24, 1e-5) {
		t.Errorf("acc = %g; want 24", acc[0][0])
	}
}

func TestAccumulateDistancesTriclinic(t *testing.T) {
	cell, err := unitcell.New([3][3]float64{{10, 0, 0}, {2, 9, 0}, {1, 1, 8}})
	if err != nil {
		t.Fatal(err)
	}

	coords := [][3]float32{{1.5, 2.5, 3.5}, {8.5, 7.5, 6.5}}
	acc := [][]float64{{0}}
	if err := AccumulateDistances(0, []int{1}, coords, cell, acc); err != nil {
		t.Fatal(err)
	}

	p := [3]float64{1.5, 2.5, 3.5}
	q := [3]float64{8.5, 7.5, 6.5}
	want := cell.MinImageSquared(p, q)
	if !near(acc[0][0], want, 1e-5) {
		t.Errorf("acc = %g; want %g", acc[0][0], want)
	}
}

func TestAccumulateDistancesErrors(t *testing.T) {
	cell, err := unitcell.New([3][3]float64{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}})
	if err != nil {
		t.Fatal(err)
	}
	coords := [][3]float32{{1, 1, 1}, {2, 2, 2}}

	if err := AccumulateDistances(5, []int{1}, coords, cell, [][]float64{{0}}); err == nil {
		t.Error("expected an error for a site outside of the configuration")
	}
	if err := AccumulateDistances(0, []int{9}, coords, cell, [][]float64{{0}}); err == nil {
		t.Error("expected an error for a target outside of the configuration")
	}
	if err := AccumulateDistances(0, []int{1, 0}, coords, cell, [][]float64{{0}}); err == nil {
		t.Error("expected an error for a misshaped accumulator")
	}
}
