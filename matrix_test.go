// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/kshedden/gonpy"
	"gopkg.in/check.v1"
)

type matrixSuite struct{}

var _ = check.Suite(&matrixSuite{})

func (s *matrixSuite) TestDelimited(c *check.C) {
	m, err := readDelimitedMatrix(strings.NewReader("eid,a,b\n1,0,NA\n2,1,\n3,2.5,1\n"), ',')
	c.Assert(err, check.IsNil)
	c.Check(m.rows, check.Equals, 3)
	c.Check(m.names, check.DeepEquals, []string{"eid", "a", "b"})
	c.Check(m.cols[1], check.DeepEquals, []float64{0, 1, 2.5})
	c.Check(math.IsNaN(m.cols[2][0]), check.Equals, true)
	c.Check(math.IsNaN(m.cols[2][1]), check.Equals, true)
	c.Check(m.cols[2][2], check.Equals, 1.0)

	m.removeIDColumns()
	c.Check(m.names, check.DeepEquals, []string{"a", "b"})
	c.Check(m.cols, check.HasLen, 2)
	m.removeColumn("nonexistent")
	c.Check(m.cols, check.HasLen, 2)

	rows, cols := m.Dims()
	c.Check(rows, check.Equals, 3)
	c.Check(cols, check.Equals, 2)
	c.Check(m.dense().At(2, 0), check.Equals, 2.5)
}

func (s *matrixSuite) TestDelimitedErrors(c *check.C) {
	_, err := readDelimitedMatrix(strings.NewReader(""), ',')
	c.Check(err, check.ErrorMatches, `empty file`)
	_, err = readDelimitedMatrix(strings.NewReader("a\tb\n1\tx\n"), '\t')
	c.Check(err, check.ErrorMatches, `line 2 column "b": .*`)
	_, err = readDelimitedMatrix(strings.NewReader("a,b\n1,2,3\n"), ',')
	c.Check(err, check.NotNil)
}

func (s *matrixSuite) TestLoadFormats(c *check.C) {
	dir := c.MkDir()
	cols := [][]float64{{1, 0, 2}, {0, 0, 1}}
	for _, fnm := range []string{"m.csv", "m.csv.gz", "m.tsv", "m.tsv.gz", "m.txt"} {
		writeDelimited(c, dir+"/"+fnm, []string{"x", "y"}, cols)
		m, err := loadMatrix(dir + "/" + fnm)
		c.Assert(err, check.IsNil, check.Commentf("%s", fnm))
		c.Check(m.names, check.DeepEquals, []string{"x", "y"}, check.Commentf("%s", fnm))
		c.Check(m.cols, check.DeepEquals, cols, check.Commentf("%s", fnm))
	}

	writeNumpyInt16(c, dir+"/m.npy", cols)
	m, err := loadMatrix(dir + "/m.npy")
	c.Assert(err, check.IsNil)
	c.Check(m.names, check.IsNil)
	c.Check(m.colNames(), check.DeepEquals, []string{"1", "2"})
	c.Check(m.cols, check.DeepEquals, cols)

	_, err = loadMatrix(dir + "/m.parquet")
	c.Check(err, check.ErrorMatches, `.*unsupported matrix file type`)
	_, err = loadMatrix(dir + "/nonexistent.csv")
	c.Check(errors.Is(err, fs.ErrNotExist), check.Equals, true)
}

func (s *matrixSuite) TestNumpyFloat64(c *check.C) {
	fnm := c.MkDir() + "/f.npy"
	f, err := os.Create(fnm)
	c.Assert(err, check.IsNil)
	defer f.Close()
	npw, err := gonpy.NewWriter(f)
	c.Assert(err, check.IsNil)
	npw.Shape = []int{2, 3}
	c.Assert(npw.WriteFloat64([]float64{1, 2, 3, 4, 5, math.NaN()}), check.IsNil)

	m, err := loadMatrix(fnm)
	c.Assert(err, check.IsNil)
	c.Check(m.rows, check.Equals, 2)
	c.Check(m.cols[0], check.DeepEquals, []float64{1, 4})
	c.Check(m.cols[1], check.DeepEquals, []float64{2, 5})
	c.Check(m.cols[2][0], check.Equals, 3.0)
	c.Check(math.IsNaN(m.cols[2][1]), check.Equals, true)
}

func (s *matrixSuite) TestTrimExtension(c *check.C) {
	for in, out := range map[string]string{
		"BRCA1.csv":    "BRCA1",
		"BRCA1.tsv.gz": "BRCA1",
		"BRCA1.npy":    "BRCA1",
		"BRCA1.bin":    "BRCA1.bin",
		".csv":         ".csv",
	} {
		c.Check(trimMatrixExtension(in), check.Equals, out)
	}
}
