// Package gist calculates the grid inhomogeneous solvation thermodynamics of
// a solvent around a solute: a per voxel solvent density and the nearest
// neighbour translational, orientational and six dimensional entropies.
package gist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/kpotier/gistsolv/pkg/entropy"
	"github.com/kpotier/gistsolv/pkg/util"
	"github.com/kpotier/gistsolv/pkg/voxel"

	"github.com/pelletier/go-toml"
	"gonum.org/v1/gonum/floats"
)

// Type is the type of calculation.
var Type = "gist"

// GIST is a structure containing the parameters that can be parsed from a
// TOML configuration file. This structure can be instanced through the New
// method. It also contains other unexported informations like the voxel grid
// and the per voxel populations. CfgStart must be lower than CfgEnd. The
// grid center and dimensions must have 3 components; the voxel edge length
// is fixed to 0.5.
type GIST struct {
	FileIn  string `toml:"gist.file_in"`
	FileOut string `toml:"gist.file_out"`

	CfgStart int `toml:"gist.cfg_start"`
	CfgEnd   int `toml:"gist.cfg_end"`

	GridCenter []float64 `toml:"gist.grid_center"`
	GridDims   []int     `toml:"gist.grid_dims"`

	RefDensity  float64 `toml:"gist.ref_density"`
	Temperature float64 `toml:"gist.temperature"`

	grid   *voxel.Grid
	eulers [][][3]float64

	cfg int
	err error
	mux sync.Mutex
	wg  sync.WaitGroup
}

// New returns an instance of the GIST structure. It reads and parses the
// configuration file given in argument. The file must be a TOML file.
func New(path string) (*GIST, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var gist GIST
	dec := toml.NewDecoder(f)
	err = dec.Decode(&gist)
	if err != nil {
		return nil, err
	}

	if gist.CfgStart >= gist.CfgEnd {
		return nil, errors.New("CfgStart is greater or equal than CfgEnd")
	}

	if len(gist.GridCenter) != 3 || len(gist.GridDims) != 3 {
		return nil, errors.New("length of GridCenter or GridDims is not equal to 3")
	}

	if gist.RefDensity <= 0 {
		return nil, errors.New("RefDensity must be greater than 0")
	}

	if gist.Temperature <= 0 {
		return nil, errors.New("Temperature must be greater than 0")
	}

	gist.grid, err = voxel.New(
		[3]float64{gist.GridCenter[0], gist.GridCenter[1], gist.GridCenter[2]},
		[3]int{gist.GridDims[0], gist.GridDims[1], gist.GridDims[2]})
	if err != nil {
		return nil, err
	}

	gist.eulers = make([][][3]float64, gist.grid.NumVoxels())
	return &gist, nil
}

// Start performs the calculation. It is a thread blocking method. The
// configurations are assigned to the grid on all the threads available, then
// the entropy pass walks the voxels, also on all the threads available. The
// populations of the grid are complete before the entropy pass begins.
func (g *GIST) Start() error {
	in, err := util.Open(g.FileIn)
	if err != nil {
		return err
	}
	defer in.Close()
	r := bufio.NewReader(in)

	err = util.SkipCfg(r, g.CfgStart)
	if err != nil {
		return fmt.Errorf("SkipCfg: %w", err)
	}

	g.cfg = g.CfgStart
	for i := 0; i < (runtime.NumCPU() - 1); i++ {
		g.wg.Add(1)
		go g.start(r)
	}

	g.wg.Add(1)
	g.start(r)
	g.wg.Wait()

	if g.err != nil {
		return g.err
	}

	est := &entropy.Estimator{
		NumFrames:   g.CfgEnd - g.CfgStart,
		VoxelVolume: voxel.Volume,
		RefDensity:  g.RefDensity,
		Temperature: g.Temperature,
	}
	tot, err := est.Combined(g.grid)
	if err != nil {
		return fmt.Errorf("Combined: %w", err)
	}

	out, err := util.Write(g.FileOut, g)
	if err != nil {
		return fmt.Errorf("Write: %w", err)
	}
	defer out.Close()

	return g.write(out, tot)
}

// start assigns configurations to the grid until there is none left. The
// reader is shared; it is only accessed under the lock.
func (g *GIST) start(r *bufio.Reader) {
	for {
		g.mux.Lock()
		if g.cfg >= g.CfgEnd || g.err != nil {
			break
		}
		g.cfg++

		cfg := g.cfg
		coords, waters, err := readCfg(r)
		if err != nil {
			if g.err == nil {
				g.err = fmt.Errorf("readCfg (step %d): %w", cfg, err)
			}
			break
		}
		g.mux.Unlock()

		g.calc(coords, waters)
	}

	g.mux.Unlock()
	g.wg.Done()
}

// calc assigns the waters of one configuration to the grid and fills the
// populations of the voxels they landed in.
func (g *GIST) calc(coords [][3]float32, waters []Water) {
	oxygens := make([]int, len(waters))
	for i, w := range waters {
		oxygens[i] = w.Oxygen
	}

	asgn, err := g.grid.Assign(coords, oxygens)
	if err != nil {
		g.mux.Lock()
		if g.err == nil {
			g.err = fmt.Errorf("Assign: %w", err)
		}
		g.mux.Unlock()
		return
	}

	g.mux.Lock()
	defer g.mux.Unlock()

	// Assign keeps the order of the oxygens list, so the waters are walked
	// with a cursor instead of a lookup.
	w := 0
	for _, a := range asgn {
		for waters[w].Oxygen != a.Atom {
			w++
		}

		pos := [3]float64{
			float64(coords[a.Atom][0]),
			float64(coords[a.Atom][1]),
			float64(coords[a.Atom][2]),
		}
		g.grid.Records[a.Voxel].Occupancy++
		g.grid.Push(a.Voxel, pos, waters[w].Quat)
		g.eulers[a.Voxel] = append(g.eulers[a.Voxel], waters[w].Euler)
		w++
	}
}

// write writes the results of this calculation into a file: one row per
// voxel and the grid totals.
func (g *GIST) write(w io.Writer, tot entropy.Totals) error {
	fmt.Fprint(w, "voxel ix iy iz nwat gO dTStrans-dens dTStrans-norm"+
		" dTSorient-dens dTSorient-norm dTSsix-dens dTSsix-norm dTSeuler-norm\n")

	frames := float64(g.CfgEnd - g.CfgStart)
	occ := make([]float64, g.grid.NumVoxels())

	for v := 0; v < g.grid.NumVoxels(); v++ {
		rec := g.grid.Records[v]
		occ[v] = rec.Occupancy

		// Orientational entropy over the Euler angle metric, referenced the
		// same way as the quaternion based field.
		var euler float64
		if sum := entropy.Orientational(g.eulers[v]); sum != 0 {
			euler = entropy.GasKcal * g.Temperature *
				(sum/float64(len(g.eulers[v])) + entropy.EulerMasc)
		}

		ix, iy, iz := g.grid.Coords(v)
		fmt.Fprint(w, v, " ", ix, " ", iy, " ", iz, " ", rec.Occupancy, " ", rec.GO, " ",
			rec.TransDens, " ", rec.TransNorm, " ",
			rec.OrientDens, " ", rec.OrientNorm, " ",
			rec.SixDens, " ", rec.SixNorm, " ", euler, "\n")
	}

	fmt.Fprintf(w, "\nwaters_on_grid %g\n", floats.Sum(occ))
	fmt.Fprintf(w, "waters_per_cfg %g\n", floats.Sum(occ)/frames)
	fmt.Fprintf(w, "dTStrans_total %g\n", tot.Trans)
	fmt.Fprintf(w, "dTSorient_total %g\n", tot.Orient)
	fmt.Fprintf(w, "dTStrans_one_voxel %g\n", tot.TransOne)
	fmt.Fprintf(w, "dTSorient_one_voxel %g\n", tot.OrientOne)
	fmt.Fprintf(w, "dTSsix_one_voxel %g\n", tot.SixOne)
	return nil
}
