package solutewater

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/kpotier/gistsolv/pkg/util"
)

// readMatrix reads a coefficient table: one row per solvation site, one
// column per target atom, whitespace separated.
func readMatrix(path string, rows, cols int) ([][]float64, error) {
	f, err := util.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := make([][]float64, rows)
	sc := bufio.NewScanner(f)
	for i := 0; i < rows; i++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%s: %d rows instead of %d", path, i, rows)
		}

		fields := strings.Fields(sc.Text())
		if len(fields) != cols {
			return nil, fmt.Errorf("%s: row %d has %d columns instead of %d",
				path, i, len(fields), cols)
		}

		m[i] = make([]float64, cols)
		for j, s := range fields {
			m[i][j], err = strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: %w", path, i, err)
			}
		}
	}

	return m, nil
}
