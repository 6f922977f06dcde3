// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// create_tfrecord converts a directory of labeled images into sharded TFRecord files.
//
// The dataset directory must have one subdirectory per class, holding the images of that class:
//
//	create_tfrecord -dataset_dir=~/data/flowers -validation_size=0.2 -num_shards=4 -random_seed=42
//
// It writes <prefix>_train_NNNNN-of-MMMMM.tfrecord (and the same for "validation" if -validation_size > 0),
// image_ids.csv (and image_ids_validation.csv) and labels.txt into the dataset directory.
// If the train shards already exist it does nothing.
//
// Flags can also be given in a YAML file with -config; flags set explicitly in the command line take precedence.
// With -verify it checks the files of a previous conversion instead of converting.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gomlx/imagerecords/pkg/dataset"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// options parsed from the command line.
type options struct {
	cfg    dataset.Config
	verify bool
}

// parseFlags parses args (without the program name) into the configuration.
// klog flags are registered in the same flag set.
func parseFlags(args []string, output io.Writer) (*options, error) {
	defaults := dataset.DefaultConfig()
	fs := flag.NewFlagSet("create_tfrecord", flag.ContinueOnError)
	fs.SetOutput(output)
	klog.InitFlags(fs)

	var cfg dataset.Config
	fs.StringVar(&cfg.DatasetDir, "dataset_dir", "", "String: Your dataset directory, with one subdirectory per class.")
	fs.Float64Var(&cfg.ValidationSize, "validation_size", defaults.ValidationSize,
		"Float: The proportion of examples in the dataset to be used for validation, in [0, 1].")
	fs.IntVar(&cfg.NumShards, "num_shards", defaults.NumShards, "Int: Number of shards to split the TFRecord files into.")
	fs.Int64Var(&cfg.RandomSeed, "random_seed", defaults.RandomSeed, "Int: Random seed to use for repeatability.")
	fs.StringVar(&cfg.Prefix, "prefix", defaults.Prefix, "String: Prefix of the TFRecord file names.")
	fs.BoolVar(&cfg.Verbose, "verbose", defaults.Verbose, "Display a progress bar and a summary of the conversion.")
	configPath := fs.String("config", "", "YAML file with the configuration. Flags set explicitly override its values.")
	verify := fs.Bool("verify", false, "Verify the files of a previous conversion instead of converting.")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Wrapf(dataset.ErrInvalidConfig, "unexpected arguments %q", fs.Args())
	}

	if *configPath != "" {
		fromFile, err := dataset.LoadConfig(*configPath, defaults)
		if err != nil {
			return nil, err
		}
		// Overlay only the flags explicitly set.
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "dataset_dir":
				fromFile.DatasetDir = cfg.DatasetDir
			case "validation_size":
				fromFile.ValidationSize = cfg.ValidationSize
			case "num_shards":
				fromFile.NumShards = cfg.NumShards
			case "random_seed":
				fromFile.RandomSeed = cfg.RandomSeed
			case "prefix":
				fromFile.Prefix = cfg.Prefix
			case "verbose":
				fromFile.Verbose = cfg.Verbose
			}
		})
		cfg = fromFile
	}
	return &options{cfg: cfg, verify: *verify}, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		klog.Exitf("Invalid arguments: %v", err)
	}
	defer klog.Flush()

	if opts.verify {
		report, err := dataset.Verify(opts.cfg)
		if err != nil {
			klog.Fatalf("Verification failed: %+v", err)
		}
		fmt.Printf("%d classes\n", report.NumClasses)
		for _, split := range report.Splits {
			fmt.Printf("%s: %d images in %d shards\n", split.Split, split.NumImages, split.NumShards)
		}
		return
	}

	if _, err = dataset.Run(opts.cfg, os.Stdout); err != nil {
		if errors.Is(err, dataset.ErrInvalidConfig) || errors.Is(err, dataset.ErrLocked) {
			klog.Exitf("%v", err)
		}
		klog.Fatalf("Failed to convert dataset: %+v", err)
	}
}
