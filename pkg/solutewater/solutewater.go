// Package solutewater accumulates the minimum image squared distances
// between the solvation site atoms and the solute atoms over a trajectory,
// and converts them into nonbonded Lennard-Jones and Coulomb energies when
// coefficient tables are given.
package solutewater

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kpotier/gistsolv/pkg/energy"
	"github.com/kpotier/gistsolv/pkg/unitcell"
	"github.com/kpotier/gistsolv/pkg/util"

	"github.com/pelletier/go-toml"
)

// Type is the type of calculation.
var Type = "solute_water"

// SoluteWater is a structure containing the parameters that can be parsed
// from a TOML configuration file. This structure can be instanced through the
// New method. CfgStart must be lower than CfgEnd. The solvation sites are the
// Sites consecutive atoms starting at SiteBase. The three coefficient files
// (charge products, Lennard-Jones A and B) are optional but must be given
// together; each holds one row per site and one column per target atom.
type SoluteWater struct {
	FileIn  string `toml:"solute_water.file_in"`
	FileOut string `toml:"solute_water.file_out"`

	CfgStart int `toml:"solute_water.cfg_start"`
	CfgEnd   int `toml:"solute_water.cfg_end"`

	SiteBase int   `toml:"solute_water.site_base"`
	Sites    int   `toml:"solute_water.sites"`
	Targets  []int `toml:"solute_water.targets"`

	FileChg string `toml:"solute_water.file_chg"`
	FileA   string `toml:"solute_water.file_a"`
	FileB   string `toml:"solute_water.file_b"`

	withEnergy bool

	msd  [][]float64
	elec [][]float64
	vdw  [][]float64

	chg    [][]float64
	acoeff [][]float64
	bcoeff [][]float64
}

// New returns an instance of the SoluteWater structure. It reads and parses
// the configuration file given in argument. The file must be a TOML file.
func New(path string) (*SoluteWater, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sw SoluteWater
	dec := toml.NewDecoder(f)
	err = dec.Decode(&sw)
	if err != nil {
		return nil, err
	}

	if sw.CfgStart >= sw.CfgEnd {
		return nil, errors.New("CfgStart is greater or equal than CfgEnd")
	}

	if sw.Sites <= 0 {
		return nil, errors.New("Sites must be greater than 0")
	}

	if len(sw.Targets) == 0 {
		return nil, errors.New("at least one target atom is needed")
	}

	given := 0
	for _, p := range []string{sw.FileChg, sw.FileA, sw.FileB} {
		if p != "" {
			given++
		}
	}
	switch given {
	case 0:
	case 3:
		sw.withEnergy = true
	default:
		return nil, errors.New("the three coefficient files must be given together")
	}

	sw.msd = newMatrix(sw.Sites, len(sw.Targets))
	if sw.withEnergy {
		sw.elec = newMatrix(sw.Sites, len(sw.Targets))
		sw.vdw = newMatrix(sw.Sites, len(sw.Targets))
	}

	return &sw, nil
}

// Start performs the calculation. It is a thread blocking method. It is a
// fast calculation. This calculation only use one thread.
func (s *SoluteWater) Start() error {
	if s.withEnergy {
		var err error
		s.chg, err = readMatrix(s.FileChg, s.Sites, len(s.Targets))
		if err != nil {
			return fmt.Errorf("readMatrix (chg): %w", err)
		}
		s.acoeff, err = readMatrix(s.FileA, s.Sites, len(s.Targets))
		if err != nil {
			return fmt.Errorf("readMatrix (A): %w", err)
		}
		s.bcoeff, err = readMatrix(s.FileB, s.Sites, len(s.Targets))
		if err != nil {
			return fmt.Errorf("readMatrix (B): %w", err)
		}
	}

	in, err := util.Open(s.FileIn)
	if err != nil {
		return err
	}
	defer in.Close()
	r := bufio.NewReader(in)

	err = util.SkipCfg(r, s.CfgStart)
	if err != nil {
		return fmt.Errorf("SkipCfg: %w", err)
	}

	dist := newMatrix(s.Sites, len(s.Targets))
	for cfg := s.CfgStart; cfg < s.CfgEnd; cfg++ {
		err = s.calc(r, dist)
		if err != nil {
			return fmt.Errorf("calc (step %d): %w", cfg, err)
		}
	}

	out, err := util.Write(s.FileOut, s)
	if err != nil {
		return fmt.Errorf("Write: %w", err)
	}
	defer out.Close()

	return s.write(out)
}

// calc reads one configuration and accumulates its squared distances and, if
// the coefficient tables were given, its pairwise energies. The dist scratch
// matrix is zeroed and reused between configurations.
func (s *SoluteWater) calc(r *bufio.Reader, dist [][]float64) error {
	m, err := util.Header(r)
	if err != nil {
		return fmt.Errorf("Header: %w", err)
	}

	cell, err := unitcell.New(m)
	if err != nil {
		return err
	}

	coords, err := util.Atoms(r)
	if err != nil {
		return fmt.Errorf("Atoms: %w", err)
	}

	err = util.SkipSection(r, "waters")
	if err != nil {
		return fmt.Errorf("SkipSection: %w", err)
	}

	for i := range dist {
		for j := range dist[i] {
			dist[i][j] = 0
		}
	}

	err = energy.AccumulateDistances(s.SiteBase, s.Targets, coords, cell, dist)
	if err != nil {
		return fmt.Errorf("AccumulateDistances: %w", err)
	}

	for i := range dist {
		for j := range dist[i] {
			s.msd[i][j] += dist[i][j]
		}
	}

	if !s.withEnergy {
		return nil
	}

	// Pairwise mutates its buffers, so the coefficient tables are copied for
	// every configuration. The self pairs are skipped by Pairwise and must be
	// skipped here as well: their entries hold the raw coefficients.
	chg := copyMatrix(s.chg)
	acoeff := copyMatrix(s.acoeff)
	energy.Pairwise(s.SiteBase, s.Targets, dist, chg, acoeff, s.bcoeff)

	for i := range dist {
		for j := range dist[i] {
			if s.Targets[j] == s.SiteBase+i {
				continue
			}
			s.elec[i][j] += chg[i][j]
			s.vdw[i][j] += acoeff[i][j]
		}
	}

	return nil
}

// write writes the results of this calculation into a file: the mean squared
// distance matrix and, if requested, the mean energy matrices.
func (s *SoluteWater) write(w io.Writer) error {
	cfgs := float64(s.CfgEnd - s.CfgStart)

	writeMatrix(w, "msd", s.msd, cfgs)
	if s.withEnergy {
		writeMatrix(w, "elec", s.elec, cfgs)
		writeMatrix(w, "vdw", s.vdw, cfgs)
	}

	return nil
}

// writeMatrix writes one site per row, every entry divided by div.
func writeMatrix(w io.Writer, name string, m [][]float64, div float64) {
	fmt.Fprintf(w, "%s\n", name)
	for _, row := range m {
		for j, v := range row {
			if j > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprint(w, v/div)
		}
		fmt.Fprint(w, "\n")
	}
}

func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func copyMatrix(m [][]float64) [][]float64 {
	c := make([][]float64, len(m))
	for i := range m {
		c[i] = append([]float64(nil), m[i]...)
	}
	return c
}
