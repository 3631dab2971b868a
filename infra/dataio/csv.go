// Package dataio loads observation and adjacency matrices from CSV files.
// The core pipeline only ever sees in-memory matrices; this package is the
// host-side collaborator that produces them.
package dataio

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Options controls how a CSV file is interpreted.
type Options struct {
	// SkipHeader drops the first row before parsing.
	SkipHeader bool
	// Transpose swaps rows and columns after parsing, for files stored as
	// timesteps x sensors instead of sensors x timesteps.
	Transpose bool
}

// LoadMatrix reads a dense numeric matrix from a CSV file. Every row must
// have the same number of fields.
func LoadMatrix(path string, opts Options) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if opts.SkipHeader && len(records) > 0 {
		records = records[1:]
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("%s: empty matrix", path)
	}

	rows, cols := len(records), len(records[0])
	m := mat.NewDense(rows, cols, nil)
	for i, rec := range records {
		if len(rec) != cols {
			return nil, fmt.Errorf("%s row %d: %d fields, expected %d", path, i+1, len(rec), cols)
		}
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %d: %w", path, i+1, j+1, err)
			}
			m.Set(i, j, v)
		}
	}

	if opts.Transpose {
		return mat.DenseCopyOf(m.T()), nil
	}
	return m, nil
}
