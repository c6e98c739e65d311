// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"errors"
	"io/fs"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// jobStack is the shared list of gene blocks waiting to be
// processed. Workers pop from the end; no ordering is promised.
type jobStack struct {
	mtx  sync.Mutex
	jobs []geneBlock
}

func (js *jobStack) pop() (geneBlock, bool) {
	js.mtx.Lock()
	defer js.mtx.Unlock()
	if len(js.jobs) == 0 {
		return geneBlock{}, false
	}
	gb := js.jobs[len(js.jobs)-1]
	js.jobs = js.jobs[:len(js.jobs)-1]
	return gb, true
}

// analysis is the state of one run. Everything except results and
// the job stack is read-only once the workers start.
type analysis struct {
	cfg     Config
	logger  *logrus.Logger
	phenos  []phenotype
	nrows   int
	kernel  regressor
	pool    *computePool
	results resultSet
	done    int64
}

// RunAnalysis computes R² statistics for every gene block under
// rootDir (in subdirectories chr_01 ... chr_22) against every trait
// in every phenotype file.
//
// Phenotype validation failures are returned as errors before any
// block is processed. Problems with individual blocks (missing file,
// wrong row count, no informative columns) are logged and the block
// is skipped.
func RunAnalysis(rootDir string, phenoFiles []string, cfg Config) ([]Result, error) {
	// cfg is our own copy from here on.
	if err := cfg.check(); err != nil {
		return nil, err
	}
	kernel, err := newRegressor(cfg.Kernel)
	if err != nil {
		return nil, err
	}
	a := &analysis{
		cfg:    cfg,
		logger: cfg.newLogger(),
		kernel: kernel,
		pool:   newComputePool(cfg.ComputeThreads),
	}

	a.logger.Infof("reading phenotypes")
	a.phenos, err = loadPhenotypes(phenoFiles, cfg.ComputeThreads, a.logger)
	if err != nil {
		return nil, err
	}
	a.nrows = a.phenos[0].data.rows

	a.logger.Infof("reading data from %s", rootDir)
	blocks, err := scanBlocks(rootDir, cfg.ScanRoot, a.logger)
	if err != nil {
		return nil, err
	}
	return a.run(flattenBlocks(blocks)), nil
}

// run processes all jobs and returns when every worker has finished.
func (a *analysis) run(jobs []geneBlock) []Result {
	stack := &jobStack{jobs: jobs}
	total := len(jobs)
	workers := a.cfg.Workers
	if workers > total {
		workers = total
	}
	if workers < 1 {
		a.logger.Warn("no gene blocks found")
		return nil
	}
	a.logger.WithFields(logrus.Fields{
		"genes":      total,
		"workers":    workers,
		"threads":    a.cfg.ComputeThreads,
		"phenotypes": len(a.phenos),
	}).Info("calculating RARity")

	outer := throttle{Max: workers}
	for w := 0; w < workers; w++ {
		outer.Go(func() error {
			for {
				gb, ok := stack.pop()
				if !ok {
					return nil
				}
				a.processBlock(gb)
				a.logger.Debugf("processed %s (%d/%d)", gb.gene, atomic.AddInt64(&a.done, 1), total)
			}
		})
	}
	outer.Wait()
	a.logger.Info("returning results")
	return a.results.sorted()
}

// processBlock computes and stores the results for one gene block.
// Errors are logged, not returned: a bad block must not stop the
// scan.
func (a *analysis) processBlock(gb geneBlock) {
	logger := a.logger.WithFields(logrus.Fields{
		"chr":  gb.chr,
		"gene": gb.gene,
	})
	logger.Debug("processing gene")
	block, err := gb.load()
	if errors.Is(err, fs.ErrNotExist) {
		logger.Infof("gene %s not found", gb.gene)
		return
	} else if err != nil {
		logger.Errorf("error reading block: %s", err)
		return
	}
	block, err = normalizeBlock(block, a.nrows, a.cfg.MinSum)
	if errors.Is(err, errNoVariants) {
		logger.Debug(err)
		return
	} else if err != nil {
		logger.Errorf("skipping block: %s", err)
		return
	}
	n, m := block.Dims()
	if err := checkDegreesOfFreedom(n, m); err != nil {
		logger.Warnf("skipping block: %s", err)
		return
	}
	var fit fittedModel
	a.pool.Run([]func(){
		func() { fit, err = a.kernel.fit(block.dense()) },
	})
	if err != nil {
		logger.Errorf("skipping block: %s", err)
		return
	}

	var tasks []func()
	var rows [][]Result
	for _, pheno := range a.phenos {
		for t := range pheno.traits {
			pheno, t := pheno, t
			i := len(rows)
			rows = append(rows, nil)
			tasks = append(tasks, func() {
				r, err := a.traitResult(fit, pheno, t, gb, n, m)
				if errors.Is(err, errZeroVariance) {
					// already reported by loadPhenotypes
					return
				} else if err != nil {
					logger.WithFields(logrus.Fields{
						"pheno_file": pheno.file,
						"trait":      pheno.traits[t],
					}).Warnf("skipping trait: %s", err)
					return
				}
				rows[i] = []Result{r}
			})
		}
	}
	a.pool.Run(tasks)

	var out []Result
	for _, r := range rows {
		out = append(out, r...)
	}
	a.results.add(out...)
	logger.Debugf("%d results", len(out))
}

func (a *analysis) traitResult(fit fittedModel, pheno phenotype, t int, gb geneBlock, n, m int) (Result, error) {
	r2, err := fit.r2(pheno.data.cols[t])
	if err != nil {
		return Result{}, err
	}
	st, err := blockStats(r2, n, m)
	if err != nil {
		return Result{}, err
	}
	r := Result{
		PhenoFile:     pheno.file,
		TraitName:     pheno.traits[t],
		Chr:           gb.chr,
		Gene:          gb.gene,
		NbIndividuals: n,
		NbRVs:         m,
		R2:            st.r2,
		AdjR2:         st.adjR2,
		AdjR2PerVar:   st.adjR2PerVar,
		BlockVarR2:    st.blockVarR2,
		BlockVarAdjR2: st.blockVarAdjR2,
	}
	if a.cfg.PValues {
		r.PValue = fTestPValue(r2, n, m)
	}
	return r, nil
}
