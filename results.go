// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Result holds the statistics for one (phenotype file, trait, gene)
// combination.
type Result struct {
	PhenoFile     string
	TraitName     string
	Chr           int
	Gene          string
	NbIndividuals int
	NbRVs         int
	R2            float64
	AdjR2         float64
	AdjR2PerVar   float64
	BlockVarR2    float64
	BlockVarAdjR2 float64

	// F-test p-value, only computed if Config.PValues is set.
	PValue float64
}

// resultSet collects results from concurrent workers.
type resultSet struct {
	mtx  sync.Mutex
	rows []Result
}

func (rs *resultSet) add(rows ...Result) {
	if len(rows) == 0 {
		return
	}
	rs.mtx.Lock()
	rs.rows = append(rs.rows, rows...)
	rs.mtx.Unlock()
}

// sorted returns the collected results ordered by chromosome, gene,
// phenotype file and trait. It must not be called while workers are
// still adding results.
func (rs *resultSet) sorted() []Result {
	rs.mtx.Lock()
	defer rs.mtx.Unlock()
	out := append([]Result(nil), rs.rows...)
	sortResults(out)
	return out
}

func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		switch {
		case a.Chr != b.Chr:
			return a.Chr < b.Chr
		case a.Gene != b.Gene:
			return a.Gene < b.Gene
		case a.PhenoFile != b.PhenoFile:
			return a.PhenoFile < b.PhenoFile
		default:
			return a.TraitName < b.TraitName
		}
	})
}

var resultColumns = []string{
	"pheno_file", "trait_name", "chr", "gene", "nb_individuals", "nb_rvs",
	"r2", "adj_r2", "adj_r2_per_var", "block_var_r2", "block_var_adj_r2",
}

// writeResultsTSV writes a header line and one tab-separated line
// per result.
func writeResultsTSV(w io.Writer, results []Result, withPValues bool) error {
	bufw := bufio.NewWriterSize(w, 1<<20)
	header := strings.Join(resultColumns, "\t")
	if withPValues {
		header += "\tpvalue"
	}
	fmt.Fprintln(bufw, header)
	for _, r := range results {
		fmt.Fprintf(bufw, "%s\t%s\t%d\t%s\t%d\t%d\t%g\t%g\t%g\t%g\t%g",
			r.PhenoFile, r.TraitName, r.Chr, r.Gene, r.NbIndividuals, r.NbRVs,
			r.R2, r.AdjR2, r.AdjR2PerVar, r.BlockVarR2, r.BlockVarAdjR2)
		if withPValues {
			fmt.Fprintf(bufw, "\t%g", r.PValue)
		}
		fmt.Fprintln(bufw)
	}
	return bufw.Flush()
}
