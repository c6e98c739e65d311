// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var errNoVariants = errors.New("no variant columns left after filtering")

// normalizeBlock prepares a gene block for regression: check the row
// count, drop identifier columns, impute missing values with the
// column mean, drop columns whose sum is below minSum (and constant
// columns), and standardize what is left. The block is modified in
// place and returned.
func normalizeBlock(block *matrix, nrows int, minSum float64) (*matrix, error) {
	if block.rows != nrows {
		return nil, fmt.Errorf("%w: expected %d rows, found %d", ErrRowCountMismatch, nrows, block.rows)
	}
	block.removeIDColumns()
	for _, col := range block.cols {
		imputeMean(col)
	}
	block.filterColumns(func(col []float64) bool {
		return floats.Sum(col) >= minSum
	})
	block.filterColumns(standardize)
	if len(block.cols) == 0 {
		return nil, errNoVariants
	}
	return block, nil
}

// imputeMean replaces NaN values with the mean of the other values
// in col, or 0 if there are none.
func imputeMean(col []float64) {
	var sum float64
	var n, missing int
	for _, v := range col {
		if math.IsNaN(v) {
			missing++
		} else {
			sum += v
			n++
		}
	}
	if missing == 0 {
		return
	}
	var mean float64
	if n > 0 {
		mean = sum / float64(n)
	}
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = mean
		}
	}
}

// filterColumns keeps the columns for which keep returns true, in
// their original order.
func (m *matrix) filterColumns(keep func([]float64) bool) {
	cols := m.cols[:0]
	var names []string
	for j, col := range m.cols {
		if !keep(col) {
			continue
		}
		cols = append(cols, col)
		if m.names != nil {
			names = append(names, m.names[j])
		}
	}
	for j := len(cols); j < len(m.cols); j++ {
		m.cols[j] = nil
	}
	m.cols = cols
	if m.names != nil {
		if names == nil {
			names = []string{}
		}
		m.names = names
	}
}
