// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/check.v1"
)

type normalizeSuite struct{}

var _ = check.Suite(&normalizeSuite{})

func (s *normalizeSuite) TestMinSumBoundary(c *check.C) {
	block := &matrix{
		rows:  4,
		names: []string{"exact", "below", "above"},
		cols: [][]float64{
			{1, 0, 1, 0},
			{0.999, 0, 1, 0},
			{2, 1, 0, 0},
		},
	}
	block, err := normalizeBlock(block, 4, 2.0)
	c.Assert(err, check.IsNil)
	c.Check(block.names, check.DeepEquals, []string{"exact", "above"})
	c.Check(block.cols, check.HasLen, 2)
}

func (s *normalizeSuite) TestStandardized(c *check.C) {
	block := &matrix{
		rows:  6,
		names: []string{"a", "b"},
		cols: [][]float64{
			{0, 1, 0, 2, 0, 1},
			{1, 1, 0, 0, 0, 1},
		},
	}
	block, err := normalizeBlock(block, 6, 2.0)
	c.Assert(err, check.IsNil)
	for _, col := range block.cols {
		mean, variance := stat.MeanVariance(col, nil)
		c.Check(math.Abs(mean) < 1e-9, check.Equals, true, check.Commentf("mean %v", mean))
		c.Check(math.Abs(variance-1) < 1e-9, check.Equals, true, check.Commentf("variance %v", variance))
	}
}

func (s *normalizeSuite) TestImputeMean(c *check.C) {
	col := []float64{1, math.NaN(), 1, 0}
	imputeMean(col)
	c.Check(col[1], check.Equals, 2.0/3)

	col = []float64{math.NaN(), math.NaN()}
	imputeMean(col)
	c.Check(col, check.DeepEquals, []float64{0, 0})

	// imputed values count toward the min sum
	block := &matrix{
		rows:  4,
		names: []string{"a"},
		cols:  [][]float64{{1, math.NaN(), 1, 0}},
	}
	block, err := normalizeBlock(block, 4, 2.5)
	c.Assert(err, check.IsNil)
	c.Check(block.cols, check.HasLen, 1)
	for _, v := range block.cols[0] {
		c.Check(math.IsNaN(v), check.Equals, false)
	}
}

func (s *normalizeSuite) TestDropsIDAndConstantColumns(c *check.C) {
	block := &matrix{
		rows:  4,
		names: []string{"eid", "all", "v", "IID"},
		cols: [][]float64{
			{101, 102, 103, 104},
			{1, 1, 1, 1},
			{1, 1, 0, 0},
			{1, 2, 3, 4},
		},
	}
	block, err := normalizeBlock(block, 4, 2.0)
	c.Assert(err, check.IsNil)
	c.Check(block.names, check.DeepEquals, []string{"v"})
}

func (s *normalizeSuite) TestUnnamedColumns(c *check.C) {
	block := &matrix{
		rows: 3,
		cols: [][]float64{{1, 0, 0}, {1, 1, 0}},
	}
	block, err := normalizeBlock(block, 3, 2.0)
	c.Assert(err, check.IsNil)
	c.Check(block.names, check.IsNil)
	c.Check(block.cols, check.HasLen, 1)
}

func (s *normalizeSuite) TestRowMismatch(c *check.C) {
	block := &matrix{rows: 3, names: []string{"a"}, cols: [][]float64{{1, 1, 0}}}
	_, err := normalizeBlock(block, 4, 2.0)
	c.Check(errors.Is(err, ErrRowCountMismatch), check.Equals, true)
	c.Check(err, check.ErrorMatches, `.*expected 4 rows, found 3`)
}

func (s *normalizeSuite) TestNothingLeft(c *check.C) {
	block := &matrix{
		rows:  4,
		names: []string{"a", "b"},
		cols:  [][]float64{{1, 0, 0, 0}, {0, 0, 0, 0}},
	}
	_, err := normalizeBlock(block, 4, 2.0)
	c.Check(err, check.Equals, errNoVariants)
}
