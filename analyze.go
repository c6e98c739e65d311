// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"

	"git.arvados.org/arvados.git/sdk/go/arvados"
	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

type analyzeCmd struct{}

func (cmd *analyzeCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if errors.Is(err, errUsage) {
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage error")

func (cmd *analyzeCmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return err
	}
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [options] phenotype-file [phenotype-file ...]\n", prog)
		flags.PrintDefaults()
	}
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	runlocal := flags.Bool("local", false, "run on local host (default: run in an arvados container)")
	arvadosRAM := flags.Int64("arvados-ram", 64<<30, "amount of memory to request for arvados container (`bytes`)")
	arvadosVCPUs := flags.Int("arvados-vcpus", 32, "number of VCPUs to request for arvados container")
	projectUUID := flags.String("project", "", "project `UUID` for output data")
	priority := flags.Int("priority", 500, "container request priority")
	preemptible := flags.Bool("preemptible", true, "request preemptible instance")
	rootDir := flags.String("root-dir", "./in", "gene block root `directory` (with chr_01 ... chr_22 subdirectories)")
	outputFilename := flags.String("o", "-", "output `file` (tab-separated, gzip-compressed if name ends in .gz)")
	cfg.Flags(flags)
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return errUsage
	}
	phenoFiles := flags.Args()
	if len(phenoFiles) == 0 {
		flags.Usage()
		return errUsage
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	if !*runlocal {
		if *outputFilename != "-" {
			return errors.New("cannot specify output file in container mode: not implemented")
		}
		runner := arvadosContainerRunner{
			Name:        "rarity analyze",
			Client:      arvados.NewClientFromEnv(),
			ProjectUUID: *projectUUID,
			RAM:         *arvadosRAM,
			VCPUs:       *arvadosVCPUs,
			Priority:    *priority,
			KeepCache:   2,
			Preemptible: *preemptible,
		}
		paths := []*string{rootDir}
		for i := range phenoFiles {
			paths = append(paths, &phenoFiles[i])
		}
		err = runner.TranslatePaths(paths...)
		if err != nil {
			return err
		}
		runner.Args = append([]string{"analyze", "-local=true",
			"-root-dir=" + *rootDir,
			"-o=/mnt/output/rarity.tsv",
		}, cfg.Args()...)
		runner.Args = append(runner.Args, phenoFiles...)
		output, err := runner.Run()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, output+"/rarity.tsv")
		return nil
	}

	results, err := RunAnalysis(*rootDir, phenoFiles, cfg)
	if err != nil {
		return err
	}

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.Create(*outputFilename)
		if err != nil {
			return err
		}
		defer output.Close()
	}
	w := io.Writer(output)
	var gzw *pgzip.Writer
	if strings.HasSuffix(*outputFilename, ".gz") {
		gzw = pgzip.NewWriter(output)
		w = gzw
	}
	log.Infof("writing %d results to %s", len(results), *outputFilename)
	err = writeResultsTSV(w, results, cfg.PValues)
	if err != nil {
		return err
	}
	if gzw != nil {
		err = gzw.Close()
		if err != nil {
			return err
		}
	}
	return output.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
