// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/check.v1"
)

type regressionSuite struct{}

var _ = check.Suite(&regressionSuite{})

// standardizedMatrix returns a standardized copy of cols as a
// gonum matrix.
func standardizedMatrix(cols ...[]float64) *mat.Dense {
	m := &matrix{rows: len(cols[0])}
	for _, col := range cols {
		col = append([]float64(nil), col...)
		standardize(col)
		m.cols = append(m.cols, col)
	}
	return m.dense()
}

func (s *regressionSuite) TestSinglePredictor(c *check.C) {
	rnd := rand.New(rand.NewSource(3))
	n := 80
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = rnd.NormFloat64()
		y[i] = 0.5*x[i] + rnd.NormFloat64()
	}
	corr := stat.Correlation(x, y, nil)
	for _, kernel := range []string{"svd", "glm"} {
		reg, err := newRegressor(kernel)
		c.Assert(err, check.IsNil)
		fit, err := reg.fit(standardizedMatrix(x))
		c.Assert(err, check.IsNil)
		r2, err := fit.r2(y)
		c.Assert(err, check.IsNil)
		c.Check(math.Abs(r2-corr*corr) < 1e-6, check.Equals, true, check.Commentf("%s: r2 %v corr² %v", kernel, r2, corr*corr))
	}
}

func (s *regressionSuite) TestPerfectFit(c *check.C) {
	a := []float64{0, 1, 0, 0, 1, 0, 1, 0}
	b := []float64{1, 0, 0, 1, 0, 0, 0, 1}
	y := make([]float64, len(a))
	for i := range y {
		y[i] = 3*a[i] - 2*b[i] + 7
	}
	fit, err := svdRegressor{}.fit(standardizedMatrix(a, b))
	c.Assert(err, check.IsNil)
	r2, err := fit.r2(y)
	c.Assert(err, check.IsNil)
	c.Check(math.Abs(r2-1) < 1e-9, check.Equals, true, check.Commentf("r2 %v", r2))
	c.Check(r2 <= 1, check.Equals, true)
}

func (s *regressionSuite) TestCollinearPredictors(c *check.C) {
	rnd := rand.New(rand.NewSource(4))
	n := 40
	a := make([]float64, n)
	b := make([]float64, n)
	y := make([]float64, n)
	for i := range a {
		if i%5 == 0 {
			a[i] = 1
		}
		if i%7 == 0 {
			b[i] = 1
		}
		y[i] = a[i] + b[i] + rnd.NormFloat64()
	}
	single, err := svdRegressor{}.fit(standardizedMatrix(a, b))
	c.Assert(err, check.IsNil)
	expect, err := single.r2(y)
	c.Assert(err, check.IsNil)

	// a duplicated column does not add information
	dup, err := svdRegressor{}.fit(standardizedMatrix(a, b, a))
	c.Assert(err, check.IsNil)
	got, err := dup.r2(y)
	c.Assert(err, check.IsNil)
	c.Check(math.Abs(got-expect) < 1e-9, check.Equals, true, check.Commentf("got %v expect %v", got, expect))
}

func (s *regressionSuite) TestZeroVarianceResponse(c *check.C) {
	fit, err := svdRegressor{}.fit(standardizedMatrix([]float64{1, 0, 1, 0}))
	c.Assert(err, check.IsNil)
	_, err = fit.r2([]float64{0, 0, 0, 0})
	c.Check(err, check.Equals, errZeroVariance)
}

func (s *regressionSuite) TestRankZero(c *check.C) {
	_, err := svdRegressor{}.fit(mat.NewDense(4, 1, []float64{0, 0, 0, 0}))
	c.Check(err, check.NotNil)
}

func (s *regressionSuite) TestUnknownKernel(c *check.C) {
	_, err := newRegressor("qr")
	c.Check(err, check.ErrorMatches, `unknown regression kernel "qr"`)
}

func (s *regressionSuite) TestConcurrentUse(c *check.C) {
	rnd := rand.New(rand.NewSource(5))
	n := 50
	x := make([]float64, n)
	ys := make([][]float64, 20)
	for i := range x {
		x[i] = float64(i % 3)
	}
	for t := range ys {
		ys[t] = make([]float64, n)
		for i := range ys[t] {
			ys[t][i] = rnd.NormFloat64()
		}
	}
	fit, err := svdRegressor{}.fit(standardizedMatrix(x))
	c.Assert(err, check.IsNil)
	expect := make([]float64, len(ys))
	for t, y := range ys {
		expect[t], err = fit.r2(y)
		c.Assert(err, check.IsNil)
	}
	got := make([]float64, len(ys))
	var tasks []func()
	for t := range ys {
		t := t
		tasks = append(tasks, func() { got[t], _ = fit.r2(ys[t]) })
	}
	newComputePool(4).Run(tasks)
	c.Check(got, check.DeepEquals, expect)
}
