// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var errZeroVariance = errors.New("response has zero variance")

// A regressor prepares a predictor matrix once, so R² can then be
// computed for many responses. Predictor columns must be centered.
type regressor interface {
	fit(x *mat.Dense) (fittedModel, error)
}

// A fittedModel is safe for concurrent use.
type fittedModel interface {
	// r2 returns the coefficient of determination of the
	// least-squares regression of y on all predictor columns.
	r2(y []float64) (float64, error)
}

func newRegressor(kernel string) (regressor, error) {
	switch kernel {
	case "svd":
		return svdRegressor{}, nil
	case "glm":
		return glmRegressor{}, nil
	default:
		return nil, fmt.Errorf("unknown regression kernel %q", kernel)
	}
}

// centered returns a copy of y with its mean subtracted, and the
// total sum of squares.
func centered(y []float64) ([]float64, float64, error) {
	yc := make([]float64, len(y))
	mean := floats.Sum(y) / float64(len(y))
	var tss float64
	for i, v := range y {
		yc[i] = v - mean
		tss += yc[i] * yc[i]
	}
	if !(tss > 0) {
		return nil, 0, errZeroVariance
	}
	return yc, tss, nil
}

func clampR2(r2 float64) float64 {
	return math.Max(0, math.Min(1, r2))
}

// svdRegressor projects responses onto the column space of the
// predictors, using an orthonormal basis from a thin SVD. Collinear
// predictors (e.g., two rare variants carried by the same
// individuals) reduce the rank but don't break the fit.
type svdRegressor struct{}

type svdFit struct {
	basis *mat.Dense // n × rank
}

func (svdRegressor) fit(x *mat.Dense) (fittedModel, error) {
	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return nil, errors.New("SVD factorization failed")
	}
	values := svd.Values(nil)
	n, m := x.Dims()
	if len(values) == 0 {
		return nil, errors.New("empty predictor matrix")
	}
	tol := values[0] * float64(max(n, m)) * 0x1p-52
	rank := 0
	for _, s := range values {
		if s > tol {
			rank++
		}
	}
	if rank == 0 {
		return nil, errors.New("predictor matrix has rank 0")
	}
	var u mat.Dense
	svd.UTo(&u)
	return &svdFit{basis: mat.DenseCopyOf(u.Slice(0, n, 0, rank))}, nil
}

func (f *svdFit) r2(y []float64) (float64, error) {
	yc, tss, err := centered(y)
	if err != nil {
		return 0, err
	}
	var proj mat.VecDense
	proj.MulVec(f.basis.T(), mat.NewVecDense(len(yc), yc))
	return clampR2(mat.Dot(&proj, &proj) / tss), nil
}

var glmConfig = &glm.Config{
	Family:    glm.NewFamily(glm.GaussianFamily),
	FitMethod: "IRLS",
	Log:       log.New(io.Discard, "", 0),
}

// glmRegressor fits a Gaussian GLM (ordinary least squares) for each
// response. It is much slower than svdRegressor, and fails on
// collinear predictors.
type glmRegressor struct{}

type glmFit struct {
	cols  [][]statmodel.Dtype
	names []string
}

func (glmRegressor) fit(x *mat.Dense) (fittedModel, error) {
	_, m := x.Dims()
	f := &glmFit{names: []string{"response"}}
	for j := 0; j < m; j++ {
		f.cols = append(f.cols, mat.Col(nil, j, x))
		f.names = append(f.names, "x"+strconv.Itoa(j))
	}
	return f, nil
}

func (f *glmFit) r2(y []float64) (r2 float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			// typically "matrix singular or near-singular"
			err = fmt.Errorf("glm: %v", r)
		}
	}()
	yc, tss, err := centered(y)
	if err != nil {
		return 0, err
	}
	data := append([][]statmodel.Dtype{yc}, f.cols...)
	model, err := glm.NewGLM(statmodel.NewDataset(data, f.names), "response", f.names[1:], glmConfig)
	if err != nil {
		return 0, err
	}
	params := model.Fit().Params()
	if len(params) != len(f.cols) {
		return 0, fmt.Errorf("glm: got %d params for %d predictors", len(params), len(f.cols))
	}
	var rss float64
	for i, v := range yc {
		pred := 0.0
		for j, col := range f.cols {
			pred += params[j] * col[i]
		}
		rss += (v - pred) * (v - pred)
	}
	return clampR2(1 - rss/tss), nil
}
