// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"flag"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"gopkg.in/check.v1"
)

type configSuite struct{}

var _ = check.Suite(&configSuite{})

var configEnvVars = []string{"RARITY_MIN_SUM", "RARITY_BLOCKS_PER_CHUNK", "RARITY_NUM_THREADS", "RARITY_LOG"}

func (s *configSuite) SetUpTest(c *check.C) {
	for _, k := range configEnvVars {
		os.Unsetenv(k)
	}
}

func (s *configSuite) TearDownTest(c *check.C) {
	s.SetUpTest(c)
}

func (s *configSuite) TestDefaults(c *check.C) {
	cfg, err := ConfigFromEnv()
	c.Assert(err, check.IsNil)
	c.Check(cfg, check.DeepEquals, DefaultConfig())
	c.Check(cfg.MinSum, check.Equals, 2.0)
	c.Check(cfg.Workers, check.Equals, 16)
	c.Check(cfg.Kernel, check.Equals, "svd")
}

func (s *configSuite) TestEnv(c *check.C) {
	os.Setenv("RARITY_MIN_SUM", "5")
	os.Setenv("RARITY_BLOCKS_PER_CHUNK", "3")
	os.Setenv("RARITY_NUM_THREADS", "7")
	os.Setenv("RARITY_LOG", "debug")
	cfg, err := ConfigFromEnv()
	c.Assert(err, check.IsNil)
	c.Check(cfg.MinSum, check.Equals, 5.0)
	c.Check(cfg.Workers, check.Equals, 3)
	c.Check(cfg.ComputeThreads, check.Equals, 7)
	c.Check(cfg.LogLevel, check.Equals, "debug")
	c.Check(cfg.newLogger().Level, check.Equals, logrus.DebugLevel)

	os.Setenv("RARITY_BLOCKS_PER_CHUNK", "lots")
	_, err = ConfigFromEnv()
	c.Check(err, check.ErrorMatches, `RARITY_BLOCKS_PER_CHUNK: .*`)
}

func (s *configSuite) TestArgsRoundTrip(c *check.C) {
	cfg := Config{
		MinSum:         3.5,
		Workers:        5,
		ComputeThreads: 9,
		LogLevel:       "warn",
		ScanRoot:       true,
		Kernel:         "glm",
		PValues:        true,
	}
	var parsed Config
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	parsed.Flags(flags)
	c.Assert(flags.Parse(cfg.Args()), check.IsNil)
	c.Check(parsed, check.DeepEquals, cfg)
}

func (s *configSuite) TestCheck(c *check.C) {
	var cfg Config
	c.Assert(cfg.check(), check.IsNil)
	c.Check(cfg.MinSum, check.Equals, 0.0)
	c.Check(cfg.Workers, check.Equals, 16)
	c.Check(cfg.ComputeThreads, check.Equals, runtime.NumCPU())
	c.Check(cfg.LogLevel, check.Equals, "info")
	c.Check(cfg.Kernel, check.Equals, "svd")

	cfg = Config{LogLevel: "loud"}
	c.Check(cfg.check(), check.NotNil)
	cfg = Config{Kernel: "lasso"}
	c.Check(cfg.check(), check.ErrorMatches, `unknown regression kernel "lasso"`)
}
