// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"
)

// matrix is an owned, column-major matrix of float64 values with
// optional column names.
type matrix struct {
	rows  int
	names []string    // nil if the source had no column names
	cols  [][]float64 // cols[j][i] is the value at row i, column j
}

func (m *matrix) Dims() (rows, cols int) {
	return m.rows, len(m.cols)
}

// removeColumn deletes the named column, if there is one.
func (m *matrix) removeColumn(name string) {
	for j, n := range m.names {
		if n == name {
			m.names = append(m.names[:j:j], m.names[j+1:]...)
			m.cols = append(m.cols[:j:j], m.cols[j+1:]...)
			return
		}
	}
}

// removeIDColumns deletes the sample identifier columns written by
// plink and UK Biobank exports.
func (m *matrix) removeIDColumns() {
	m.removeColumn("eid")
	m.removeColumn("IID")
}

// colNames returns the column names, or "1", "2", ... if the source
// had none.
func (m *matrix) colNames() []string {
	if m.names != nil {
		return m.names
	}
	names := make([]string, len(m.cols))
	for j := range names {
		names[j] = strconv.Itoa(j + 1)
	}
	return names
}

// dense copies m into a row-major gonum matrix.
func (m *matrix) dense() *mat.Dense {
	d := mat.NewDense(m.rows, len(m.cols), nil)
	for j, col := range m.cols {
		d.SetCol(j, col)
	}
	return d
}

// matrixExtensions are the recognized file name suffixes, longest
// first.
var matrixExtensions = []string{
	".csv.gz", ".tsv.gz", ".txt.gz", ".npy.gz",
	".csv", ".tsv", ".txt", ".npy",
}

func trimMatrixExtension(fnm string) string {
	for _, ext := range matrixExtensions {
		if strings.HasSuffix(fnm, ext) && len(fnm) > len(ext) {
			return fnm[:len(fnm)-len(ext)]
		}
	}
	return fnm
}

// loadMatrix reads a whole matrix file. Compressed (.gz) input and
// Arvados collection paths are handled by zopen.
func loadMatrix(fnm string) (*matrix, error) {
	base := strings.TrimSuffix(fnm, ".gz")
	var parse func(io.Reader) (*matrix, error)
	switch {
	case strings.HasSuffix(base, ".npy"):
		parse = readNumpyMatrix
	case strings.HasSuffix(base, ".csv"):
		parse = func(r io.Reader) (*matrix, error) { return readDelimitedMatrix(r, ',') }
	case strings.HasSuffix(base, ".tsv"), strings.HasSuffix(base, ".txt"):
		parse = func(r io.Reader) (*matrix, error) { return readDelimitedMatrix(r, '\t') }
	default:
		return nil, fmt.Errorf("%s: unsupported matrix file type", fnm)
	}
	f, err := zopen(fnm)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := parse(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	return m, f.Close()
}

func readNumpyMatrix(r io.Reader) (*matrix, error) {
	npy, err := gonpy.NewReader(r)
	if err != nil {
		return nil, err
	}
	var rows, cols int
	switch len(npy.Shape) {
	case 1:
		rows, cols = npy.Shape[0], 1
	case 2:
		rows, cols = npy.Shape[0], npy.Shape[1]
	default:
		return nil, fmt.Errorf("unsupported numpy shape %v", npy.Shape)
	}
	data, err := numpyFloat64(npy)
	if err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("numpy data has %d values, shape %v", len(data), npy.Shape)
	}
	m := &matrix{rows: rows, cols: make([][]float64, cols)}
	for j := range m.cols {
		col := make([]float64, rows)
		for i := range col {
			if npy.ColumnMajor {
				col[i] = data[j*rows+i]
			} else {
				col[i] = data[i*cols+j]
			}
		}
		m.cols[j] = col
	}
	return m, nil
}

// numpyFloat64 returns the array data converted to float64,
// whatever the stored dtype.
func numpyFloat64(npy *gonpy.NpyReader) ([]float64, error) {
	switch dtype := strings.TrimLeft(npy.Dtype, "<>|="); dtype {
	case "f8":
		return npy.GetFloat64()
	case "f4":
		v, err := npy.GetFloat32()
		return convertFloat64(v), err
	case "i1":
		v, err := npy.GetInt8()
		return convertFloat64(v), err
	case "i2":
		v, err := npy.GetInt16()
		return convertFloat64(v), err
	case "i4":
		v, err := npy.GetInt32()
		return convertFloat64(v), err
	case "i8":
		v, err := npy.GetInt64()
		return convertFloat64(v), err
	case "u1":
		v, err := npy.GetUint8()
		return convertFloat64(v), err
	case "u2":
		v, err := npy.GetUint16()
		return convertFloat64(v), err
	case "u4":
		v, err := npy.GetUint32()
		return convertFloat64(v), err
	case "u8":
		v, err := npy.GetUint64()
		return convertFloat64(v), err
	default:
		return nil, fmt.Errorf("unsupported numpy dtype %q", npy.Dtype)
	}
}

func convertFloat64[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// readDelimitedMatrix parses a header line of column names followed
// by one line per row. Empty, "NA" and "NaN" cells are missing
// values.
func readDelimitedMatrix(r io.Reader, delim rune) (*matrix, error) {
	rdr := csv.NewReader(r)
	rdr.Comma = delim
	rdr.ReuseRecord = true
	header, err := rdr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	} else if err != nil {
		return nil, err
	}
	m := &matrix{
		names: append([]string(nil), header...),
		cols:  make([][]float64, len(header)),
	}
	for line := 2; ; line++ {
		record, err := rdr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		for j, cell := range record {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, m.names[j], err)
			}
			m.cols[j] = append(m.cols[j], v)
		}
		m.rows++
	}
	return m, nil
}

func parseCell(s string) (float64, error) {
	switch s = strings.TrimSpace(s); s {
	case "", "NA", "NaN", "nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
