package gist

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/kpotier/gistsolv/pkg/util"
)

// Water is one solvent molecule of a configuration: the atom id of its
// oxygen, its orientation quaternion (w x y z, unit norm) and its Euler
// angles, both extracted from the raw trajectory by the extraction step.
type Water struct {
	Oxygen int
	Quat   [4]float64
	Euler  [3]float64
}

// readCfg reads one configuration of the frame dump: the header with the
// unit cell, the atom coordinates and the waters block. The unit cell is read
// and discarded as the grid assignment works on unwrapped coordinates.
func readCfg(r *bufio.Reader) (coords [][3]float32, waters []Water, err error) {
	_, err = util.Header(r)
	if err != nil {
		err = fmt.Errorf("Header: %w", err)
		return
	}

	coords, err = util.Atoms(r)
	if err != nil {
		err = fmt.Errorf("Atoms: %w", err)
		return
	}

	waters, err = readWaters(r)
	if err != nil {
		err = fmt.Errorf("readWaters: %w", err)
		return
	}

	return
}

// readWaters reads the waters block: one row per solvent molecule with the
// oxygen atom id, the four quaternion components and the three Euler angles.
func readWaters(r *bufio.Reader) ([]Water, error) {
	n, err := util.Count(r, "waters")
	if err != nil {
		return nil, err
	}

	waters := make([]Water, n)
	for i := 0; i < n; i++ {
		b, _ := r.ReadSlice('\n')
		fields := strings.Fields(string(b))
		if len(fields) != 8 {
			return nil, fmt.Errorf("water row %d: expected 8 columns; got %d", i, len(fields))
		}

		waters[i].Oxygen, err = strconv.Atoi(fields[0])
		if err != nil {
			return nil, err
		}
		for k := 0; k < 4; k++ {
			waters[i].Quat[k], err = strconv.ParseFloat(fields[k+1], 64)
			if err != nil {
				return nil, err
			}
		}
		for k := 0; k < 3; k++ {
			waters[i].Euler[k], err = strconv.ParseFloat(fields[k+5], 64)
			if err != nil {
				return nil, err
			}
		}
	}

	return waters, nil
}
