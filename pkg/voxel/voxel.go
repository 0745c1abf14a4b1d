// Package voxel maps solvent molecules into an axis aligned rectilinear grid
// of fixed 0.5 length voxels and holds the per voxel accumulators and solvent
// populations filled during the analysis.
package voxel

import (
	"errors"
	"fmt"
)

// Edge is the voxel edge length in the length units of the trajectory.
const Edge = 0.5

// Volume is the volume of one voxel.
const Volume = Edge * Edge * Edge

// lowBound is the lower bound of the assignment window on each axis. The
// window is wider than the grid itself so positions just outside due to
// wrapping are still tested against the voxel indices.
const lowBound = -1.5

// Assignment binds a water oxygen to the voxel that contains it for one
// configuration.
type Assignment struct {
	Voxel int
	Atom  int
}

// Record is the accumulator row of one voxel. The Norm fields hold the raw
// accumulated log-terms during the entropy pass; they are replaced in place
// by their temperature scaled values once the pass is over. The Dens fields
// are the density weighted derivatives of the Norm fields.
type Record struct {
	Occupancy float64
	GO        float64 // occupancy referenced to the bulk solvent density

	TransNorm  float64
	TransDens  float64
	OrientNorm float64
	OrientDens float64
	SixNorm    float64
	SixDens    float64
}

// Population holds the oxygen positions and the orientation quaternions of
// every water assigned to one voxel, aggregated over the whole trajectory.
// Position i and quaternion i describe the same water-in-voxel instance. The
// data is stored flat (x y z triples, w x y z quadruples) so the entropy pass
// can read it without pointer chasing.
type Population struct {
	Coords []float64
	Quats  []float64
}

// Len returns the number of waters in the population.
func (p *Population) Len() int {
	return len(p.Coords) / 3
}

// Coord returns the oxygen position of water i.
func (p *Population) Coord(i int) [3]float64 {
	return [3]float64{p.Coords[3*i], p.Coords[3*i+1], p.Coords[3*i+2]}
}

// Quat returns the orientation quaternion of water i.
func (p *Population) Quat(i int) [4]float64 {
	return [4]float64{p.Quats[4*i], p.Quats[4*i+1], p.Quats[4*i+2], p.Quats[4*i+3]}
}

// Grid is the rectilinear voxel grid. It owns one Record and one Population
// per voxel. Records and populations are created once and mutated during the
// assignment and entropy passes; they are never deleted before the end of the
// analysis.
type Grid struct {
	Dims   [3]int
	Origin [3]float64
	Max    [3]float64

	Records []Record
	Pops    []Population
}

// New returns a Grid of dims voxels per axis centered on center. The origin
// is the lower corner of the grid and the assignment window extends lowBound
// under it and Edge*dims + 1.5 over it on each axis.
func New(center [3]float64, dims [3]int) (*Grid, error) {
	for k := 0; k < 3; k++ {
		if dims[k] <= 0 {
			return nil, errors.New("every grid dimension must be greater than 0")
		}
	}

	g := &Grid{Dims: dims}
	for k := 0; k < 3; k++ {
		g.Origin[k] = center[k] - float64(dims[k])*Edge/2
		g.Max[k] = float64(dims[k])*Edge + 1.5
	}

	n := dims[0] * dims[1] * dims[2]
	g.Records = make([]Record, n)
	g.Pops = make([]Population, n)
	return g, nil
}

// NumVoxels returns the number of voxels of the grid.
func (g *Grid) NumVoxels() int {
	return g.Dims[0] * g.Dims[1] * g.Dims[2]
}

// Index returns the linear index of the voxel (ix, iy, iz).
func (g *Grid) Index(ix, iy, iz int) int {
	return (ix*g.Dims[1]+iy)*g.Dims[2] + iz
}

// Coords returns the (ix, iy, iz) coordinates of the voxel v.
func (g *Grid) Coords(v int) (ix, iy, iz int) {
	iz = v % g.Dims[2]
	v /= g.Dims[2]
	iy = v % g.Dims[1]
	ix = v / g.Dims[1]
	return
}

// Boundary reports whether any of the six axis neighbours of the voxel v
// falls outside the grid. Boundary voxels are excluded from the cross voxel
// nearest neighbour search.
func (g *Grid) Boundary(v int) bool {
	ix, iy, iz := g.Coords(v)
	return ix == 0 || ix == g.Dims[0]-1 ||
		iy == 0 || iy == g.Dims[1]-1 ||
		iz == 0 || iz == g.Dims[2]-1
}

// neighborOffsets spans the 26 voxels surrounding a voxel: the six axis
// neighbours, the twelve edge neighbours and the eight corner neighbours.
var neighborOffsets = [26][3]int{
	{0, 0, 1}, {0, 0, -1}, {0, 1, 0}, {0, -1, 0}, {1, 0, 0}, {-1, 0, 0},
	{0, 1, 1}, {0, 1, -1}, {0, -1, 1}, {0, -1, -1},
	{1, 0, 1}, {1, 0, -1}, {-1, 0, 1}, {-1, 0, -1},
	{1, 1, 0}, {1, -1, 0}, {-1, 1, 0}, {-1, -1, 0},
	{1, 1, 1}, {1, 1, -1}, {1, -1, 1}, {1, -1, -1},
	{-1, 1, 1}, {-1, 1, -1}, {-1, -1, 1}, {-1, -1, -1},
}

// Neighbors appends to nbrs the linear indices of the voxels surrounding v
// and returns the extended slice. Offsets that leave the grid are skipped;
// for an interior voxel (Boundary(v) == false) all 26 neighbours are
// returned.
func (g *Grid) Neighbors(v int, nbrs []int) []int {
	ix, iy, iz := g.Coords(v)
	for _, off := range neighborOffsets {
		jx, jy, jz := ix+off[0], iy+off[1], iz+off[2]
		if jx < 0 || jx >= g.Dims[0] || jy < 0 || jy >= g.Dims[1] ||
			jz < 0 || jz >= g.Dims[2] {
			continue
		}
		nbrs = append(nbrs, g.Index(jx, jy, jz))
	}
	return nbrs
}

// Assign bins the oxygen of every listed water into the grid for one
// configuration. A water whose translated position lies outside the
// assignment window, or whose voxel index reaches the grid dimensions, is
// skipped without error. The assignments are returned in the order of the
// oxygens list. Assign only reads the grid, so configurations may be
// assigned concurrently; the caller applies the assignments to the records
// and populations under its own lock.
func (g *Grid) Assign(coords [][3]float32, oxygens []int) ([]Assignment, error) {
	var asgn []Assignment
	for _, id := range oxygens {
		if id < 0 || id >= len(coords) {
			return nil, fmt.Errorf("water oxygen %d outside of the configuration (%d atoms)", id, len(coords))
		}

		var t [3]float64
		for k := 0; k < 3; k++ {
			t[k] = float64(coords[id][k]) - g.Origin[k]
		}

		if t[0] > g.Max[0] || t[1] > g.Max[1] || t[2] > g.Max[2] ||
			t[0] < lowBound || t[1] < lowBound || t[2] < lowBound {
			continue
		}
		if t[0] < 0 || t[1] < 0 || t[2] < 0 {
			continue
		}

		ix := int(t[0] / Edge)
		iy := int(t[1] / Edge)
		iz := int(t[2] / Edge)
		if ix >= g.Dims[0] || iy >= g.Dims[1] || iz >= g.Dims[2] {
			continue
		}

		asgn = append(asgn, Assignment{Voxel: g.Index(ix, iy, iz), Atom: id})
	}

	return asgn, nil
}

// Push appends one water (oxygen position and orientation quaternion) to the
// population of the voxel v.
func (g *Grid) Push(v int, pos [3]float64, quat [4]float64) {
	p := &g.Pops[v]
	p.Coords = append(p.Coords, pos[0], pos[1], pos[2])
	p.Quats = append(p.Quats, quat[0], quat[1], quat[2], quat[3])
}
