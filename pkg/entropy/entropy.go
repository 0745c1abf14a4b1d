// Package entropy implements the nearest neighbour entropy estimators of the
// solvent grid: an orientational estimator over Euler angles and a combined
// translational, orientational and six dimensional estimator over oxygen
// positions and orientation quaternions. Both derive a differential entropy
// from the distance to the nearest sample in the relevant metric space.
package entropy

import (
	"errors"
	"math"
	"runtime"
	"sync"

	"github.com/kpotier/gistsolv/pkg/voxel"
)

const (
	// GasKcal is the gas constant in kcal/(mol·K).
	GasKcal = 0.0019872041
	// EulerMasc is the Euler-Mascheroni constant.
	EulerMasc = 0.5772156649

	twoPi = 2 * math.Pi

	// nnInit is the sentinel a nearest neighbour distance starts from. A
	// water contributes only when its nearest neighbour came under it.
	nnInit = 10000
)

// Orientational returns the raw orientational entropy sum of one voxel,
// given the Euler angle triples of its waters. For every water, the closest
// other water of the same voxel under the angular metric (difference of the
// cosine of the first angle, wrapped differences of the other two) is found
// and ln(N·NNor³/(3·2π)) is accumulated. Referencing to the temperature
// happens in the caller.
func Orientational(eulers [][3]float64) float64 {
	n := float64(len(eulers))
	var sum float64

	for i := range eulers {
		nn := float64(nnInit)
		for j := range eulers {
			if j == i {
				continue
			}

			rx := math.Cos(eulers[j][0]) - math.Cos(eulers[i][0])
			ry := eulers[j][1] - eulers[i][1]
			rz := eulers[j][2] - eulers[i][2]
			if ry > math.Pi {
				ry = twoPi - ry
			} else if ry < -math.Pi {
				ry = twoPi + ry
			}
			if rz > math.Pi {
				rz = twoPi - rz
			} else if rz < -math.Pi {
				rz = twoPi + rz
			}

			dw := math.Sqrt(rx*rx + ry*ry + rz*rz)
			if dw > 0 && dw < nn {
				nn = dw
			}
		}

		if nn > 0 && nn < nnInit-1 {
			sum += math.Log(n * nn * nn * nn / (3 * twoPi))
		}
	}

	return sum
}

// Totals holds the grid totals of the combined estimator. Trans and Orient
// are the voxel volume weighted sums of the density fields, in kcal/mol.
// TransOne, OrientOne and SixOne are the limits obtained by treating every
// contributing water as part of a single voxel.
type Totals struct {
	Trans  float64
	Orient float64

	TransOne  float64
	OrientOne float64
	SixOne    float64

	Waters float64
}

// Estimator computes the translational, orientational and six dimensional
// nearest neighbour entropies of a populated grid.
type Estimator struct {
	NumFrames   int
	VoxelVolume float64
	RefDensity  float64
	Temperature float64
}

// partial is the per worker share of the grid totals.
type partial struct {
	transDens  float64
	orientDens float64

	trans  float64
	orient float64
	six    float64

	nwts float64
	nwtt float64
}

// Combined runs the nearest neighbour search over every voxel of the grid
// and converts the distances found into entropies. For every water of a
// voxel the nearest neighbour is searched among the other waters of the
// voxel and, for interior voxels, among the waters of the 26 surrounding
// voxels, in the translational (squared Euclidean), rotational (quaternion
// angle, own voxel only) and combined six dimensional metrics. Boundary
// voxels get no translational or six dimensional contribution.
//
// The populations of the grid must be complete before the call: the search
// reads the neighbour voxels concurrently and only writes the record of its
// own voxel, so the voxels are processed on all the threads available.
func (e *Estimator) Combined(g *voxel.Grid) (Totals, error) {
	if e.NumFrames <= 0 {
		return Totals{}, errors.New("NumFrames must be greater than 0")
	}
	if e.VoxelVolume <= 0 {
		return Totals{}, errors.New("VoxelVolume must be greater than 0")
	}
	if e.RefDensity <= 0 {
		return Totals{}, errors.New("RefDensity must be greater than 0")
	}

	var (
		mux  sync.Mutex
		wg   sync.WaitGroup
		next int
		tot  partial
	)
	n := g.NumVoxels()

	work := func() {
		defer wg.Done()
		var loc partial
		nbrs := make([]int, 0, 26)

		for {
			mux.Lock()
			v := next
			next++
			mux.Unlock()
			if v >= n {
				break
			}
			e.voxel(g, v, &loc, &nbrs)
		}

		mux.Lock()
		tot.transDens += loc.transDens
		tot.orientDens += loc.orientDens
		tot.trans += loc.trans
		tot.orient += loc.orient
		tot.six += loc.six
		tot.nwts += loc.nwts
		tot.nwtt += loc.nwtt
		mux.Unlock()
	}

	for i := 0; i < runtime.NumCPU()-1; i++ {
		wg.Add(1)
		go work()
	}
	wg.Add(1)
	work()
	wg.Wait()

	res := Totals{
		Trans:  tot.transDens * e.VoxelVolume,
		Orient: tot.orientDens * e.VoxelVolume,
		Waters: tot.nwtt,
	}
	rt := GasKcal * e.Temperature
	if tot.nwts > 0 {
		res.TransOne = rt * (tot.trans/tot.nwts + EulerMasc)
		res.SixOne = rt * (tot.six/tot.nwts + EulerMasc)
	}
	if tot.nwtt > 0 {
		res.OrientOne = rt * (tot.orient/tot.nwtt + EulerMasc)
	}

	return res, nil
}

// voxel searches the nearest neighbours of every water of the voxel v and
// fills its record.
func (e *Estimator) voxel(g *voxel.Grid, v int, acc *partial, nbrs *[]int) {
	rec := &g.Records[v]
	pop := &g.Pops[v]
	nw := pop.Len()
	fnw := float64(nw)

	frames := float64(e.NumFrames)
	acc.nwtt += fnw
	rec.GO += fnw / (frames * e.VoxelVolume) / e.RefDensity

	boundary := g.Boundary(v)
	if !boundary {
		*nbrs = g.Neighbors(v, (*nbrs)[:0])
	}

	for n0 := 0; n0 < nw; n0++ {
		p0 := pop.Coord(n0)
		q0 := pop.Quat(n0)
		nnd := float64(nnInit)
		nns := float64(nnInit)
		nnr := float64(nnInit)

		for n1 := 0; n1 < nw; n1++ {
			if n1 == n0 {
				continue
			}
			dd, rr, ds := distances(p0, q0, pop, n1)
			if dd > 0 && dd < nnd {
				nnd = dd
			}
			if ds > 0 && ds < nns {
				nns = ds
			}
			if rr > 0 && rr < nnr {
				nnr = rr
			}
		}

		if nw > 1 && nnr > 0 && nnr < nnInit-1 {
			dbl := math.Log(nnr * nnr * nnr * fnw / (3 * twoPi))
			rec.OrientNorm += dbl
			acc.orient += dbl
		}

		if boundary {
			continue
		}

		for _, nb := range *nbrs {
			np := &g.Pops[nb]
			for n1 := 0; n1 < np.Len(); n1++ {
				dd, _, ds := distances(p0, q0, np, n1)
				if dd > 0 && dd < nnd {
					nnd = dd
				}
				if ds > 0 && ds < nns {
					nns = ds
				}
			}
		}

		nnd = math.Sqrt(nnd)
		nns = math.Sqrt(nns)
		if nnd > 0 && nnd < 3 {
			dbl := math.Log(nnd * nnd * nnd * frames * 4 * math.Pi * e.RefDensity / 3)
			rec.TransNorm += dbl
			acc.trans += dbl

			dbl = math.Log(nns * nns * nns * nns * nns * nns * frames * math.Pi * e.RefDensity / 48)
			rec.SixNorm += dbl
			acc.six += dbl
		}
	}

	// Replace the raw log-term sums by their referenced values and derive
	// the density weighted fields.
	rt := GasKcal * e.Temperature
	weight := fnw / (frames * e.VoxelVolume)

	if rec.OrientNorm != 0 {
		rec.OrientNorm = rt * (rec.OrientNorm/fnw + EulerMasc)
		rec.OrientDens = rec.OrientNorm * weight
	}
	acc.orientDens += rec.OrientDens

	if rec.TransNorm != 0 {
		acc.nwts += fnw
		rec.TransNorm = rt * (rec.TransNorm/fnw + EulerMasc)
		rec.SixNorm = rt * (rec.SixNorm/fnw + EulerMasc)
	}
	rec.TransDens = rec.TransNorm * weight
	rec.SixDens = rec.SixNorm * weight
	acc.transDens += rec.TransDens
}

// distances returns the squared translational distance, the quaternion angle
// and the combined six dimensional metric between the water (p0, q0) and the
// water n1 of the population pop.
func distances(p0 [3]float64, q0 [4]float64, pop *voxel.Population, n1 int) (dd, rr, ds float64) {
	p1 := pop.Coord(n1)
	dx := p0[0] - p1[0]
	dy := p0[1] - p1[1]
	dz := p0[2] - p1[2]
	dd = dx*dx + dy*dy + dz*dz

	q1 := pop.Quat(n1)
	dot := q0[0]*q1[0] + q0[1]*q1[1] + q0[2]*q1[2] + q0[3]*q1[3]
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	rr = 2 * math.Acos(dot)

	ds = rr*rr + dd
	return
}
