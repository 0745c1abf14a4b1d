package util

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// The frame dumps consumed by the calculations are produced by the extraction
// step that pulls coordinates, unit cells and water orientations out of the
// raw trajectory. One configuration is laid out as:
//
//	cfg <index>
//	cell
//	<ax> <ay> <az>
//	<bx> <by> <bz>
//	<cx> <cy> <cz>
//	atoms <n>
//	<id> <x> <y> <z>       (n rows, in id order)
//	waters <m>
//	<oxygen-id> <qw> <qx> <qy> <qz> <theta> <phi> <psi>
//
// The cell rows are the edge vectors of the unit cell of that configuration.

// Header reads the cfg line and the unit cell block of a configuration. It
// returns the 3x3 cell matrix (row vectors are the cell edges).
func Header(r *bufio.Reader) (cell [3][3]float64, err error) {
	b, _ := r.ReadSlice('\n')
	fields := strings.Fields(string(b))
	if len(fields) < 1 || fields[0] != "cfg" {
		err = fmt.Errorf("expected a cfg line; got `%s`", strings.TrimSpace(string(b)))
		return
	}

	b, _ = r.ReadSlice('\n')
	if strings.TrimSpace(string(b)) != "cell" {
		err = fmt.Errorf("expected a cell line; got `%s`", strings.TrimSpace(string(b)))
		return
	}

	for i := 0; i < 3; i++ {
		b, _ = r.ReadSlice('\n')
		fields = strings.Fields(string(b))
		if len(fields) != 3 {
			err = fmt.Errorf("cell row %d: expected 3 columns; got %d", i, len(fields))
			return
		}
		for j := 0; j < 3; j++ {
			cell[i][j], err = strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return
			}
		}
	}

	return
}

// Count reads a section line of the form `name <n>` and returns n.
func Count(r *bufio.Reader, name string) (int, error) {
	b, _ := r.ReadSlice('\n')
	fields := strings.Fields(string(b))
	if len(fields) != 2 || fields[0] != name {
		return 0, fmt.Errorf("expected a `%s <n>` line; got `%s`", name, strings.TrimSpace(string(b)))
	}
	return strconv.Atoi(fields[1])
}

// Atoms reads the atoms block of a configuration. The coordinates are kept in
// single precision like the raw trajectory stores them; the rows must be in
// atom id order.
func Atoms(r *bufio.Reader) ([][3]float32, error) {
	n, err := Count(r, "atoms")
	if err != nil {
		return nil, err
	}

	coords := make([][3]float32, n)
	for i := 0; i < n; i++ {
		b, _ := r.ReadSlice('\n')
		fields := strings.Fields(string(b))
		if len(fields) != 4 {
			return nil, fmt.Errorf("atom row %d: expected 4 columns; got %d", i, len(fields))
		}
		for k := 0; k < 3; k++ {
			v, err := strconv.ParseFloat(fields[k+1], 32)
			if err != nil {
				return nil, err
			}
			coords[i][k] = float32(v)
		}
	}

	return coords, nil
}

// SkipSection reads a `name <n>` line and discards the n rows that follow.
func SkipSection(r *bufio.Reader, name string) error {
	n, err := Count(r, name)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		r.ReadSlice('\n')
	}
	return nil
}

// SkipCfg skips x whole configurations. These configurations won't be taken
// into account. It is a very fast method.
func SkipCfg(r *bufio.Reader, x int) error {
	for i := 0; i < x; i++ {
		_, err := Header(r)
		if err != nil {
			return err
		}
		if err = SkipSection(r, "atoms"); err != nil {
			return err
		}
		if err = SkipSection(r, "waters"); err != nil {
			return err
		}
	}
	return nil
}
