// Copyright 2018 Fabian Wenzelmann
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/tilt-a-whirl/rebuilder"
	"github.com/tilt-a-whirl/rebuilder/store"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

type s3Flags struct {
	bucket, prefix, endpoint, region, accessKey, secretKey string
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] <SOURCE> <DESTINATION>\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Rebuilds DESTINATION from tiles cut out of SOURCE.")
	fmt.Fprintln(os.Stderr, "Types: l(uminance) h(ue) s(aturation) v(alue) r(ed) g(reen) b(lue)")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func main() {
	cfg := rebuilder.DefaultConfig()
	var s3 s3Flags
	var verbose bool

	flag.IntVarP(&cfg.BlockSize, "block", "b", rebuilder.DefaultBlockSize, "block size in pixels")
	flag.StringVarP(&cfg.Types, "types", "t", "", "channel letters to combine, empty for all combinations")
	flag.BoolVarP(&cfg.ColorOnly, "color", "c", false, "generate the color-only mosaic")
	flag.BoolVarP(&cfg.NonUniform, "nonuniform", "n", false, "move cell boundaries randomly")
	flag.BoolVarP(&cfg.Detail, "detail", "d", false, "add medium and high detail passes")
	flag.IntVarP(&cfg.MedThreshold, "med", "m", rebuilder.DefaultMedThreshold, "variance threshold (1-10) for the medium pass")
	flag.IntVarP(&cfg.SmallThreshold, "small", "s", rebuilder.DefaultSmallThreshold, "variance threshold (1-10) for the high pass")
	flag.StringVar(&cfg.OutDir, "out", rebuilder.DefaultOutDir, "output directory")
	flag.UintVar(&cfg.Interpolation, "interp", 0, "interpolation quality for resizing tiles (0-5)")
	flag.IntVar(&cfg.NumRoutines, "routines", cfg.NumRoutines, "number of combinations processed concurrently")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed of the random generators")
	flag.BoolVarP(&verbose, "verbose", "v", false, "print debug messages")
	flag.StringVar(&s3.bucket, "s3-bucket", "", "upload mosaics to this bucket instead of the output directory")
	flag.StringVar(&s3.prefix, "s3-prefix", "", "key prefix of uploaded mosaics")
	flag.StringVar(&s3.endpoint, "s3-endpoint", "", "endpoint of an S3 compatible service")
	flag.StringVar(&s3.region, "s3-region", "us-east-1", "S3 region")
	flag.StringVar(&s3.accessKey, "s3-access-key", "", "S3 access key, empty for the default credential chain")
	flag.StringVar(&s3.secretKey, "s3-secret-key", "", "S3 secret key")
	flag.Usage = usage
	flag.Parse()

	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if flag.NArg() != 2 {
		usage()
		os.Exit(1)
	}
	cfg.Source, cfg.Dest = flag.Arg(0), flag.Arg(1)
	if err := cfg.Normalize(); err != nil {
		log.WithField(log.ErrorKey, err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := rebuilder.NewRunner(cfg, nil)
	outputStore, storeErr := createStore(ctx, cfg, s3, runner)
	if storeErr != nil {
		log.WithField(log.ErrorKey, storeErr).Fatal("Can't create output store")
	}
	runner.Store = outputStore
	total := len(cfg.Combinations()) * len(rebuilder.Policies)
	if verbose {
		runner.Progress = rebuilder.LoggerProgressFunc("Mosaics", total, 1)
	} else {
		runner.Progress = rebuilder.StdProgressFunc(os.Stdout, "Mosaics", total, 1)
	}

	log.WithFields(log.Fields{
		"run":      runner.RunID,
		"source":   cfg.Source,
		"dest":     cfg.Dest,
		"block":    cfg.BlockSize,
		"mosaics":  total,
		"routines": cfg.NumRoutines,
		"interp":   rebuilder.InterPString(rebuilder.GetInterP(cfg.Interpolation)),
	}).Info("Starting")
	start := time.Now()
	saved, runErr := runner.Run(ctx)
	if runErr != nil {
		log.WithFields(log.Fields{
			log.ErrorKey: runErr,
			"saved":      saved,
		}).Fatal("Rebuilding failed")
	}
	log.WithFields(log.Fields{
		"saved": saved,
		"time":  time.Since(start),
	}).Info("Done")
}

func createStore(ctx context.Context, cfg rebuilder.Config, s3 s3Flags, runner *rebuilder.Runner) (rebuilder.OutputStore, error) {
	if s3.bucket == "" {
		return store.NewFSStore(cfg.OutDir), nil
	}
	s3Cfg := store.S3Config{
		Endpoint:  s3.endpoint,
		Region:    s3.region,
		AccessKey: s3.accessKey,
		SecretKey: s3.secretKey,
		Bucket:    s3.bucket,
		Prefix:    s3.prefix,
	}
	client, err := store.NewS3Client(ctx, s3Cfg)
	if err != nil {
		return nil, err
	}
	s3Store := store.NewS3Store(client, s3Cfg)
	s3Store.Metadata["run-id"] = runner.RunID.String()
	if err := s3Store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s3Store, nil
}
