// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var ErrDegreesOfFreedom = errors.New("not enough individuals for the number of variants")

// blockStat holds the statistics derived from one block/trait R².
type blockStat struct {
	r2            float64
	adjR2         float64
	adjR2PerVar   float64
	blockVarR2    float64
	blockVarAdjR2 float64
}

// checkDegreesOfFreedom returns an error unless a regression of n
// observations on m predictors leaves residual degrees of freedom.
func checkDegreesOfFreedom(n, m int) error {
	if m < 1 || n-m-1 <= 0 {
		return fmt.Errorf("%w: n=%d m=%d", ErrDegreesOfFreedom, n, m)
	}
	return nil
}

// blockStats derives adjusted R² and the asymptotic variances of R²
// and adjusted R² for a regression of n observations on m
// predictors.
func blockStats(r2 float64, n, m int) (blockStat, error) {
	if err := checkDegreesOfFreedom(n, m); err != nil {
		return blockStat{}, err
	}
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return blockStat{}, fmt.Errorf("invalid r2 %v", r2)
	}
	nf, mf := float64(n), float64(m)
	dfResid := nf - mf - 1
	adjR2 := 1 - (1-r2)*(nf-1)/dfResid
	varR2 := 4 * r2 * (1 - r2) * (1 - r2) * dfResid * dfResid / ((nf*nf - 1) * (nf + 3))
	st := blockStat{
		r2:            r2,
		adjR2:         adjR2,
		adjR2PerVar:   adjR2 / mf,
		blockVarR2:    varR2,
		blockVarAdjR2: math.Pow((nf-1)/dfResid, 2) * varR2,
	}
	for _, v := range []float64{st.adjR2, st.adjR2PerVar, st.blockVarR2, st.blockVarAdjR2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return blockStat{}, fmt.Errorf("non-finite statistic for r2=%v n=%d m=%d", r2, n, m)
		}
	}
	return st, nil
}

// fTestPValue returns the p-value of the overall F test of a
// regression with the given R², i.e., the probability of an R² at
// least this large if no predictor is associated with the response.
func fTestPValue(r2 float64, n, m int) float64 {
	dfResid := float64(n - m - 1)
	if r2 >= 1 {
		return 0
	}
	f := (r2 / float64(m)) / ((1 - r2) / dfResid)
	return distuv.F{D1: float64(m), D2: dfResid}.Survival(f)
}
