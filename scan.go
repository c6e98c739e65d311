// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
)

const maxChromosome = 22

// geneBlock identifies one gene's block file. It is only a
// descriptor: the matrix is read by load(), in the worker that
// processes the block, so at most one block per worker is resident.
type geneBlock struct {
	chr  int
	gene string
	path string
}

func (gb geneBlock) load() (*matrix, error) {
	return loadMatrix(gb.path)
}

// chromosomeDir returns the directory holding chromosome chr's gene
// blocks. Chromosome 0 means the root directory itself.
func chromosomeDir(root string, chr int) string {
	if chr == 0 {
		return root
	}
	return filepath.Join(root, fmt.Sprintf("chr_%02d", chr))
}

// scanBlocks returns the gene blocks found under root, indexed by
// chromosome. A missing chromosome directory contributes no genes.
func scanBlocks(root string, scanRoot bool, logger logrus.FieldLogger) ([][]geneBlock, error) {
	blocks := make([][]geneBlock, maxChromosome+1)
	for chr := 0; chr <= maxChromosome; chr++ {
		if chr == 0 && !scanRoot {
			continue
		}
		dir := chromosomeDir(root, chr)
		found, err := scanDir(dir, chr, logger)
		if err != nil {
			return nil, err
		}
		blocks[chr] = found
	}
	return blocks, nil
}

// scanDir lists the gene blocks in dir. If two files have the same
// gene name (e.g., geneA.csv and geneA.npy), only the first in name
// order is used.
func scanDir(dir string, chr int, logger logrus.FieldLogger) ([]geneBlock, error) {
	f, err := open(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()
	fis, err := f.Readdir(-1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	sort.Slice(fis, func(i, j int) bool { return fis[i].Name() < fis[j].Name() })
	var found []geneBlock
	seen := map[string]string{}
	for _, fi := range fis {
		if !fi.Mode().IsRegular() {
			continue
		}
		gene := trimMatrixExtension(fi.Name())
		if prev, ok := seen[gene]; ok {
			logger.Warnf("%s: ignoring %s, gene %s already read from %s", dir, fi.Name(), gene, prev)
			continue
		}
		seen[gene] = fi.Name()
		found = append(found, geneBlock{
			chr:  chr,
			gene: gene,
			path: filepath.Join(dir, fi.Name()),
		})
	}
	return found, nil
}

func flattenBlocks(blocks [][]geneBlock) []geneBlock {
	var all []geneBlock
	for _, chrBlocks := range blocks {
		all = append(all, chrBlocks...)
	}
	return all
}
