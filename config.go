// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"flag"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
)

const (
	defaultMinSum  = 2.0
	defaultWorkers = 16
)

// Config holds the tunables of one analysis run. RunAnalysis works on
// its own copy, so changing a Config after a run has started only
// affects subsequent runs.
type Config struct {
	// Drop block columns whose sum (a minor allele count proxy) is
	// below MinSum.
	MinSum float64

	// Number of gene blocks processed (and resident in memory)
	// at once.
	Workers int

	// Number of regression tasks (block fits and per-trait R²)
	// running at once, shared by all workers. Zero means
	// runtime.NumCPU().
	ComputeThreads int

	// logrus level name: "debug", "info", "warn", "error".
	LogLevel string

	// Treat regular files directly inside the root directory as
	// chromosome 0.
	ScanRoot bool

	// Regression kernel: "svd" or "glm".
	Kernel string

	// Add an F-test p-value to each result.
	PValues bool
}

// DefaultConfig returns the configuration used when nothing is
// overridden.
func DefaultConfig() Config {
	return Config{
		MinSum:         defaultMinSum,
		Workers:        defaultWorkers,
		ComputeThreads: runtime.NumCPU(),
		LogLevel:       "info",
		Kernel:         "svd",
	}
}

// ConfigFromEnv returns DefaultConfig, overridden by RARITY_MIN_SUM,
// RARITY_BLOCKS_PER_CHUNK, RARITY_NUM_THREADS and RARITY_LOG where
// set.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if s := os.Getenv("RARITY_MIN_SUM"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return cfg, fmt.Errorf("RARITY_MIN_SUM: %w", err)
		}
		cfg.MinSum = v
	}
	if s := os.Getenv("RARITY_BLOCKS_PER_CHUNK"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return cfg, fmt.Errorf("RARITY_BLOCKS_PER_CHUNK: %w", err)
		}
		cfg.Workers = v
	}
	if s := os.Getenv("RARITY_NUM_THREADS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return cfg, fmt.Errorf("RARITY_NUM_THREADS: %w", err)
		}
		cfg.ComputeThreads = v
	}
	if s := os.Getenv("RARITY_LOG"); s != "" {
		cfg.LogLevel = s
	}
	return cfg, nil
}

func (cfg *Config) Flags(flags *flag.FlagSet) {
	flags.Float64Var(&cfg.MinSum, "min-sum", cfg.MinSum, "drop variant columns whose sum is below `N`")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of gene blocks to process concurrently")
	flags.IntVar(&cfg.ComputeThreads, "threads", cfg.ComputeThreads, "number of concurrent regression tasks (0 = number of CPUs)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log `level` (debug, info, warn, error)")
	flags.BoolVar(&cfg.ScanRoot, "scan-root", cfg.ScanRoot, "treat files directly in root dir as chromosome 0")
	flags.StringVar(&cfg.Kernel, "kernel", cfg.Kernel, "regression `kernel` (svd or glm)")
	flags.BoolVar(&cfg.PValues, "pvalues", cfg.PValues, "add F-test p-value column")
}

// Args returns command line flags that reproduce cfg.
func (cfg *Config) Args() []string {
	return []string{
		fmt.Sprintf("-min-sum=%v", cfg.MinSum),
		fmt.Sprintf("-workers=%d", cfg.Workers),
		fmt.Sprintf("-threads=%d", cfg.ComputeThreads),
		"-log-level=" + cfg.LogLevel,
		fmt.Sprintf("-scan-root=%v", cfg.ScanRoot),
		"-kernel=" + cfg.Kernel,
		fmt.Sprintf("-pvalues=%v", cfg.PValues),
	}
}

// check fills in zero-valued fields and rejects unusable values.
func (cfg *Config) check() error {
	if math.IsNaN(cfg.MinSum) || math.IsInf(cfg.MinSum, 0) {
		return fmt.Errorf("invalid min sum %v", cfg.MinSum)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("invalid worker count %d", cfg.Workers)
	} else if cfg.Workers == 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.ComputeThreads < 0 {
		return fmt.Errorf("invalid thread count %d", cfg.ComputeThreads)
	} else if cfg.ComputeThreads == 0 {
		cfg.ComputeThreads = runtime.NumCPU()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.Kernel == "" {
		cfg.Kernel = "svd"
	}
	if _, err := newRegressor(cfg.Kernel); err != nil {
		return err
	}
	return nil
}

// newLogger returns a logger that writes where the standard logger
// does, at cfg's level.
func (cfg *Config) newLogger() *logrus.Logger {
	std := logrus.StandardLogger()
	logger := logrus.New()
	logger.Out = std.Out
	logger.Formatter = std.Formatter
	logger.Level, _ = logrus.ParseLevel(cfg.LogLevel)
	return logger
}
