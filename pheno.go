// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrRowCountMismatch = errors.New("row count mismatch")
	ErrNaN              = errors.New("NaN value in phenotype")
)

// phenotype is a standardized phenotype matrix. It is not modified
// after loadPhenotypes returns, so workers share it without locking.
type phenotype struct {
	file   string
	traits []string
	data   *matrix
}

// loadPhenotypes reads, validates and standardizes the given
// phenotype files. All files must have the same number of rows (the
// cohort size) and no missing values.
func loadPhenotypes(files []string, threads int, logger logrus.FieldLogger) ([]phenotype, error) {
	if len(files) == 0 {
		return nil, errors.New("no phenotype files given")
	}
	mtxs := make([]*matrix, len(files))
	var eg errgroup.Group
	eg.SetLimit(threads)
	for i, fnm := range files {
		i, fnm := i, fnm
		eg.Go(func() error {
			m, err := loadMatrix(fnm)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"file": fnm,
				"rows": m.rows,
				"cols": len(m.cols),
			}).Debug("loaded phenotype")
			mtxs[i] = m
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	nrows := mtxs[0].rows
	for i, m := range mtxs {
		if m.rows != nrows {
			return nil, fmt.Errorf("%w: %s has %d rows, %s has %d rows", ErrRowCountMismatch, files[0], nrows, files[i], m.rows)
		}
		for j, col := range m.cols {
			for row, v := range col {
				if math.IsNaN(v) {
					return nil, fmt.Errorf("%w: %s row %d column %q", ErrNaN, files[i], row+1, m.colNames()[j])
				}
			}
		}
	}

	phenos := make([]phenotype, len(files))
	for i, m := range mtxs {
		m.removeIDColumns()
		for j, col := range m.cols {
			if !standardize(col) {
				logger.Warnf("%s: trait %q has zero variance", files[i], m.colNames()[j])
			}
		}
		phenos[i] = phenotype{
			file:   files[i],
			traits: m.colNames(),
			data:   m,
		}
	}
	return phenos, nil
}

// standardize rescales col in place to mean 0 and sample variance 1.
// A constant column is only centered, and standardize returns false.
func standardize(col []float64) bool {
	if len(col) == 0 {
		return false
	}
	mean, std := stat.MeanStdDev(col, nil)
	if !(std > 0) || math.IsInf(std, 0) {
		for i := range col {
			col[i] = 0
		}
		return false
	}
	for i, x := range col {
		col[i] = (x - mean) / std
	}
	return true
}
