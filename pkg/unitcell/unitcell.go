// Package unitcell provides the periodic geometry of a simulation cell. It
// computes Euclidean and minimum image distances for orthogonal and triclinic
// unit cells. The minimum image distance of a triclinic cell is found by a
// brute force search over the 27 periodic replicas because the nearest
// replica of such a cell is not necessarily the axis-wise nearest one.
package unitcell

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// orthoTol is the tolerance under which an off-diagonal term of the cell
// matrix is considered zero.
const orthoTol = 1e-6

// Cell is the unit cell of one configuration. The rows of M are the cell edge
// vectors. Triclinic cells keep the inverse of M so the conversion to
// fractional coordinates is only computed once per cell.
type Cell struct {
	M     [3][3]float64
	Inv   [3][3]float64
	ortho bool
}

// New returns an instance of the Cell structure. The cell is classified as
// orthogonal when its six off-diagonal terms are within 1e-6 of zero. A
// triclinic cell requires an inverse matrix; if the matrix is singular or
// near singular, an error is returned.
func New(m [3][3]float64) (*Cell, error) {
	c := &Cell{M: m}

	c.ortho = math.Abs(m[0][1]) < orthoTol && math.Abs(m[0][2]) < orthoTol &&
		math.Abs(m[1][0]) < orthoTol && math.Abs(m[1][2]) < orthoTol &&
		math.Abs(m[2][0]) < orthoTol && math.Abs(m[2][1]) < orthoTol

	if !c.ortho {
		inv, err := Invert3x3(m)
		if err != nil {
			return nil, err
		}
		c.Inv = inv
	}

	return c, nil
}

// Ortho reports whether the cell was classified as orthogonal.
func (c *Cell) Ortho() bool {
	return c.ortho
}

// Lengths returns the diagonal of the cell matrix. It is only meaningful for
// an orthogonal cell.
func (c *Cell) Lengths() [3]float64 {
	return [3]float64{c.M[0][0], c.M[1][1], c.M[2][2]}
}

// MinImageSquared returns the squared minimum image distance between p and q.
// It dispatches to the cheap orthogonal path when the cell is orthogonal and
// to the 27 replicas search otherwise.
func (c *Cell) MinImageSquared(p, q [3]float64) float64 {
	if c.ortho {
		return MinImageSquaredOrtho(p, q, c.Lengths())
	}
	return MinImageSquaredTriclinic(p, q, c.M, c.Inv)
}

// Invert3x3 returns the inverse of a 3x3 matrix through a LU decomposition.
// It returns an error if the matrix is singular or near singular (degenerate
// unit cell).
func Invert3x3(m [3][3]float64) ([3][3]float64, error) {
	var inv [3][3]float64

	a := mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})

	var b mat.Dense
	err := b.Inverse(a)
	if err != nil {
		return inv, fmt.Errorf("degenerate unit cell: %w", err)
	}

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			inv[i][j] = b.At(i, j)
		}
	}

	return inv, nil
}

// MulVec returns the product M·v.
func MulVec(m [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// MulVecT returns the product Mᵀ·v, the row vector v times M. The rows of a
// cell matrix are its edge vectors, so a fractional coordinate triple maps to
// Cartesian space through the transpose.
func MulVecT(m [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[1][0]*v[1] + m[2][0]*v[2],
		m[0][1]*v[0] + m[1][1]*v[1] + m[2][1]*v[2],
		m[0][2]*v[0] + m[1][2]*v[1] + m[2][2]*v[2],
	}
}

// Dist returns the Euclidean distance between p and q.
func Dist(p, q [3]float64) float64 {
	return math.Sqrt(DistSquared(p, q))
}

// DistSquared returns the squared Euclidean distance between p and q. It
// avoids the square root for the accumulation hot paths.
func DistSquared(p, q [3]float64) float64 {
	dx := p[0] - q[0]
	dy := p[1] - q[1]
	dz := p[2] - q[2]
	return dx*dx + dy*dy + dz*dz
}

// MinImageSquaredOrtho returns the squared minimum image distance between p
// and q in an orthogonal cell of box lengths box. Each component of the
// separation is wrapped once into [-L/2, L/2]. It is only valid when the
// minimum image displacement never exceeds one full box length.
func MinImageSquaredOrtho(p, q, box [3]float64) float64 {
	var d2 float64
	for k := 0; k < 3; k++ {
		d := p[k] - q[k]
		if d > box[k]/2 {
			d -= box[k]
		} else if d < -box[k]/2 {
			d += box[k]
		}
		d2 += d * d
	}
	return d2
}

// MinImageSquaredTriclinic returns the squared minimum image distance between
// p and q in a triclinic cell whose rows are the cell edge vectors. Both
// points are converted to fractional coordinates, folded back into the origin
// cell, and the 27 periodic replicas of q are searched exhaustively.
func MinImageSquaredTriclinic(p, q [3]float64, cell, inv [3][3]float64) float64 {
	pf := MulVecT(inv, p)
	qf := MulVecT(inv, q)

	for k := 0; k < 3; k++ {
		pf[k] -= math.Floor(pf[k])
		qf[k] -= math.Floor(qf[k])
	}

	pr := MulVecT(cell, pf)
	min := DistSquared(pr, MulVecT(cell, qf))

	for i := -1; i <= 1; i++ {
		for j := -1; j <= 1; j++ {
			for k := -1; k <= 1; k++ {
				r := MulVecT(cell, [3]float64{qf[0] + float64(i), qf[1] + float64(j), qf[2] + float64(k)})
				if d2 := DistSquared(pr, r); d2 < min {
					min = d2
				}
			}
		}
	}

	return min
}
