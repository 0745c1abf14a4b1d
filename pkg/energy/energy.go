// Package energy accumulates pairwise minimum image distances between the
// solvent sites and the target atoms of a configuration and converts squared
// distance matrices into Lennard-Jones 12-6 and Coulomb energies.
package energy

import (
	"fmt"
	"math"

	"github.com/kpotier/gistsolv/pkg/unitcell"
	"github.com/kpotier/gistsolv/pkg/util"
)

// AccumulateDistances adds, for one configuration, the squared minimum image
// distance between every solvent site and every target atom into acc. The
// sites are the consecutive atoms siteBase, siteBase+1, ... siteBase+len(acc)-1.
// The caller divides by the number of configurations to obtain a mean squared
// distance field. Accumulation over configurations is associative, so frames
// may be spread over partial accumulators merged at the end.
func AccumulateDistances(siteBase int, targets []int, coords [][3]float32, cell *unitcell.Cell, acc [][]float64) error {
	for i := range acc {
		id := siteBase + i
		if id < 0 || id >= len(coords) {
			return fmt.Errorf("solvent site %d outside of the configuration (%d atoms)", id, len(coords))
		}
		if len(acc[i]) != len(targets) {
			return fmt.Errorf("accumulator row %d has %d columns (expected %d)", i, len(acc[i]), len(targets))
		}

		p := toFloat64(coords[id])
		for j, t := range targets {
			if t < 0 || t >= len(coords) {
				return fmt.Errorf("target atom %d outside of the configuration (%d atoms)", t, len(coords))
			}
			acc[i][j] += cell.MinImageSquared(p, toFloat64(coords[t]))
		}
	}
	return nil
}

// Pairwise converts, in place, the coefficient matrices of one solvation site
// block into pairwise energies: every A coefficient becomes the 12-6
// Lennard-Jones term A·d⁻¹² − B·d⁻⁶ and every charge product becomes the
// Coulomb term q/√d, d being the squared distance of the matching entry of
// dist. Column j describes the target atom targets[j]; the self pairs
// (targets[j] == siteBase+i) are skipped. The caller reads the results from
// the chg and acoeff buffers it passed in.
func Pairwise(siteBase int, targets []int, dist, chg, acoeff, bcoeff [][]float64) {
	for i := range dist {
		ati := siteBase + i
		for j := range dist[i] {
			if targets[j] == ati {
				continue
			}

			d := dist[i][j]
			dInv := 1 / d
			d6 := util.Pow(dInv, 3)
			d12 := d6 * d6

			acoeff[i][j] = acoeff[i][j]*d12 - bcoeff[i][j]*d6
			chg[i][j] /= math.Sqrt(d)
		}
	}
}

func toFloat64(v [3]float32) [3]float64 {
	return [3]float64{float64(v[0]), float64(v[1]), float64(v[2])}
}
