// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dataset converts a directory of labeled images, one subdirectory per class, into sharded
// TFRecord files for a train and an optional validation split.
//
// Besides the shards it writes image_ids.csv (and image_ids_validation.csv) mapping each image file
// to its stable id, and labels.txt mapping label indices to class names.
package dataset

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/gomlx/imagerecords/pkg/support/fsutil"
	"github.com/gomlx/imagerecords/ui/commandline"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// LockFileName is created in the dataset directory while a conversion runs.
const LockFileName = ".create_tfrecord.lock"

// ErrLocked is returned by Run if another conversion holds the lock on the dataset directory.
var ErrLocked = fsutil.ErrLocked

// Messages printed to the user.
const (
	ExistsMessage   = "Dataset files already exist. Exiting without re-creating them."
	FinishedMessage = "\nFinished converting the dataset!"
)

// Result of Run.
type Result struct {
	// Skipped is true if the dataset files already existed and nothing was written.
	Skipped bool

	// ClassNames sorted, the label of each class is its index.
	ClassNames []string

	// Train and Validation records, in the order they were written.
	Train, Validation []ImageRecord

	// Stats of the converted splits: train, and validation if it was written.
	Stats []SplitStats
}

// Run converts the dataset configured by cfg. Notices, the progress bar and the summary (if cfg.Verbose)
// are printed to out.
//
// If the train shards for cfg.NumShards already exist, it prints a notice and returns a Result with
// Skipped set, without writing anything.
func Run(cfg Config, out io.Writer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg, err := cfg.expandDatasetDir()
	if err != nil {
		return nil, err
	}
	isDir, err := fsutil.IsDir(cfg.DatasetDir)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, errors.Wrapf(ErrInvalidConfig, "dataset_dir %q is not a directory", cfg.DatasetDir)
	}

	// A finished dataset is skipped without touching the directory, not even for the lock.
	skipped, err := skipIfExists(cfg, out)
	if err != nil {
		return nil, err
	}
	if skipped {
		return &Result{Skipped: true}, nil
	}

	lock, err := fsutil.AcquireLock(filepath.Join(cfg.DatasetDir, LockFileName))
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Acquired lock %q", lock.Path())
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			klog.Errorf("%+v", releaseErr)
		}
	}()

	// Check again: another run may have finished while we were not holding the lock.
	skipped, err = skipIfExists(cfg, out)
	if err != nil {
		return nil, err
	}
	if skipped {
		return &Result{Skipped: true}, nil
	}
	return convert(cfg, out)
}

// skipIfExists prints ExistsMessage and returns true if the train shards of cfg already exist.
func skipIfExists(cfg Config, out io.Writer) (bool, error) {
	exists, err := DatasetExists(cfg.DatasetDir, cfg.Prefix, cfg.NumShards)
	if err != nil || !exists {
		return false, err
	}
	_, _ = fmt.Fprintln(out, ExistsMessage)
	return true, nil
}

// convert runs the conversion proper, once the directory is locked.
func convert(cfg Config, out io.Writer) (*Result, error) {
	records, classNames, err := Enumerate(cfg.DatasetDir)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Found %d images in %d classes in %q", len(records), len(classNames), cfg.DatasetDir)
	classIndex := ClassIndex(classNames)

	result := &Result{ClassNames: classNames}
	result.Train, result.Validation = Split(records, cfg.ValidationSize, cfg.RandomSeed)

	splits := []struct {
		name    string
		records []ImageRecord
	}{
		{TrainSplit, result.Train},
		{ValidationSplit, result.Validation},
	}
	for _, split := range splits {
		if split.name == ValidationSplit && len(split.records) == 0 {
			break
		}
		var pBar *commandline.ProgressBar
		if cfg.Verbose {
			pBar = commandline.NewProgressBar(out, split.name, len(split.records))
		}
		stats, err := ConvertSplit(split.name, split.records, classIndex, cfg, pBar)
		pBar.Finish()
		if err != nil {
			return nil, err
		}
		result.Stats = append(result.Stats, stats)
		if err = WriteIDMapping(split.records, cfg.DatasetDir, IDMappingFileName(split.name)); err != nil {
			return nil, err
		}
	}

	if err = WriteLabelFile(classNames, cfg.DatasetDir); err != nil {
		return nil, err
	}
	if cfg.Verbose {
		summaries := make([]commandline.SplitSummary, 0, len(result.Stats))
		for _, stats := range result.Stats {
			summaries = append(summaries, commandline.SplitSummary{
				Split:     stats.Split,
				NumImages: stats.NumImages,
				NumShards: stats.NumShards,
				Bytes:     stats.Bytes,
				Elapsed:   stats.Elapsed,
			})
		}
		_, _ = fmt.Fprintln(out, commandline.SummaryTable(summaries))
	}
	_, _ = fmt.Fprintln(out, FinishedMessage)
	return result, nil
}
