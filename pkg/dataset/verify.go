// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"os"
	"path"
	"path/filepath"

	"github.com/gomlx/imagerecords/pkg/support/fsutil"
	"github.com/gomlx/imagerecords/pkg/tfrecord"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// SplitReport is what Verify found for one split.
type SplitReport struct {
	Split     string
	NumImages int
	NumShards int
	Bytes     int64
}

// Report of Verify.
type Report struct {
	NumClasses int
	Splits     []SplitReport
}

// Verify reads back the files of a converted dataset and checks they are consistent: every shard record
// passes its checksums, its id and file name match the split's id mapping (each id exactly once), and its
// label maps to the class directory of its file in labels.txt.
//
// The validation split is only checked if its id mapping exists.
func Verify(cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg, err := cfg.expandDatasetDir()
	if err != nil {
		return nil, err
	}
	labels, err := ReadLabelFile(filepath.Join(cfg.DatasetDir, LabelsFileName))
	if err != nil {
		return nil, err
	}
	for label := range int64(len(labels)) {
		if _, found := labels[label]; !found {
			return nil, errors.Errorf("label file has %d entries but no label %d", len(labels), label)
		}
	}

	report := &Report{NumClasses: len(labels)}
	for _, split := range []string{TrainSplit, ValidationSplit} {
		idsPath := filepath.Join(cfg.DatasetDir, IDMappingFileName(split))
		exists, err := fsutil.FileExists(idsPath)
		if err != nil {
			return nil, err
		}
		if !exists {
			if split == TrainSplit {
				return nil, errors.Errorf("id mapping %q for the train split is missing", idsPath)
			}
			continue
		}
		splitReport, err := verifySplit(cfg, split, idsPath, labels)
		if err != nil {
			return nil, errors.WithMessagef(err, "split %s", split)
		}
		report.Splits = append(report.Splits, splitReport)
	}
	return report, nil
}

func verifySplit(cfg Config, split, idsPath string, labels map[int64]string) (SplitReport, error) {
	splitReport := SplitReport{Split: split, NumShards: cfg.NumShards}
	records, err := ReadIDMapping(idsPath)
	if err != nil {
		return splitReport, err
	}
	pathByID := make(map[int64]string, len(records))
	for _, record := range records {
		pathByID[record.ID] = record.Path
	}
	seen := make(map[int64]bool, len(records))

	for _, shardPath := range ShardPaths(cfg.DatasetDir, cfg.Prefix, split, cfg.NumShards) {
		f, err := os.Open(shardPath)
		if err != nil {
			return splitReport, errors.Wrapf(err, "failed to open shard")
		}
		examples, err := tfrecord.ReadAllExamples(f)
		_ = f.Close()
		if err != nil {
			return splitReport, errors.WithMessagef(err, "shard %q", shardPath)
		}
		if info, statErr := os.Stat(shardPath); statErr == nil {
			splitReport.Bytes += info.Size()
		}
		for _, example := range examples {
			if err = checkExample(example, pathByID, seen, labels); err != nil {
				return splitReport, errors.WithMessagef(err, "shard %q", shardPath)
			}
		}
		klog.V(1).Infof("Verified %d records in %q", len(examples), shardPath)
		splitReport.NumImages += len(examples)
	}
	if splitReport.NumImages != len(records) {
		return splitReport, errors.Errorf("shards hold %d records, but %q lists %d images",
			splitReport.NumImages, idsPath, len(records))
	}
	return splitReport, nil
}

func checkExample(example *tfrecord.Example, pathByID map[int64]string, seen map[int64]bool, labels map[int64]string) error {
	id, found := example.Int64(FeatureID)
	if !found {
		return errors.Errorf("record without %q", FeatureID)
	}
	fileName := string(example.Bytes(FeatureFileName))
	wantFileName, found := pathByID[id]
	if !found {
		return errors.Errorf("record %q has id %d, not in the id mapping", fileName, id)
	}
	if fileName != wantFileName {
		return errors.Errorf("record with id %d is %q, but the id mapping has %q", id, fileName, wantFileName)
	}
	if seen[id] {
		return errors.Errorf("id %d (%q) stored more than once", id, fileName)
	}
	seen[id] = true
	label, found := example.Int64(FeatureLabel)
	if !found {
		return errors.Errorf("record %q without %q", fileName, FeatureLabel)
	}
	className, found := labels[label]
	if !found {
		return errors.Errorf("record %q has label %d, not in the label file", fileName, label)
	}
	if className != path.Dir(fileName) {
		return errors.Errorf("record %q has label %d (%q), but it is in directory %q",
			fileName, label, className, path.Dir(fileName))
	}
	if len(example.Bytes(FeatureEncoded)) == 0 {
		return errors.Errorf("record %q has no encoded image", fileName)
	}
	return nil
}
