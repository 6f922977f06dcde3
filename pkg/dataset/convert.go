// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/imagerecords/pkg/support/fsutil"
	"github.com/gomlx/imagerecords/pkg/tfrecord"
	"github.com/gomlx/imagerecords/ui/commandline"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	_ "golang.org/x/image/webp"
)

// Names of the features stored in each tf.Example.
const (
	FeatureEncoded  = "image/encoded"
	FeatureFormat   = "image/format"
	FeatureLabel    = "image/class/label"
	FeatureHeight   = "image/height"
	FeatureWidth    = "image/width"
	FeatureID       = "image/id"
	FeatureFileName = "image/filename"
)

// SplitStats reports what ConvertSplit wrote.
type SplitStats struct {
	Split     string
	NumImages int
	NumShards int
	Bytes     int64
	Elapsed   time.Duration
}

// ConvertSplit writes the records of one split into cfg.NumShards TFRecord files in cfg.DatasetDir.
//
// Records are assigned to shards in order, ceil(len(records)/NumShards) per shard, and every shard file is
// created even if it ends up empty. Each shard is written to a temporary file and renamed when complete.
//
// pBar may be nil.
func ConvertSplit(split string, records []ImageRecord, classIndex map[string]int64, cfg Config,
	pBar *commandline.ProgressBar) (stats SplitStats, err error) {
	start := time.Now()
	stats = SplitStats{Split: split, NumImages: len(records), NumShards: cfg.NumShards}
	for shardID, shardPath := range ShardPaths(cfg.DatasetDir, cfg.Prefix, split, cfg.NumShards) {
		first, last := ShardRange(len(records), shardID, cfg.NumShards)
		klog.V(1).Infof("Writing %s shard %d/%d with %d images to %q", split, shardID+1, cfg.NumShards, last-first, shardPath)
		var shardBytes int64
		err = fsutil.WriteFileAtomically(shardPath, func(w io.Writer) error {
			var err error
			shardBytes, err = writeShard(w, cfg.DatasetDir, records[first:last], classIndex, pBar)
			return err
		})
		if err != nil {
			return stats, errors.WithMessagef(err, "failed to convert %s shard %d", split, shardID)
		}
		stats.Bytes += shardBytes
	}
	stats.Elapsed = time.Since(start)
	klog.V(1).Infof("Split %s: %d images, %s in %d shards", split, stats.NumImages, humanize.Bytes(uint64(stats.Bytes)), stats.NumShards)
	return stats, nil
}

// writeShard writes one tf.Example per record to w, and returns the number of bytes written.
func writeShard(w io.Writer, datasetDir string, records []ImageRecord, classIndex map[string]int64,
	pBar *commandline.ProgressBar) (int64, error) {
	buffered := bufio.NewWriter(w)
	writer := tfrecord.NewWriter(buffered)
	for _, record := range records {
		example, err := NewImageExample(datasetDir, record, classIndex)
		if err != nil {
			return writer.BytesWritten(), err
		}
		before := writer.BytesWritten()
		if err = writer.WriteExample(example); err != nil {
			return writer.BytesWritten(), err
		}
		pBar.Add(1, writer.BytesWritten()-before)
	}
	if err := buffered.Flush(); err != nil {
		return writer.BytesWritten(), errors.Wrap(err, "failed to flush shard")
	}
	klog.V(2).Infof("Wrote %d records, %s", writer.Count(), humanize.Bytes(uint64(writer.BytesWritten())))
	return writer.BytesWritten(), nil
}

// NewImageExample reads the image of record and builds its tf.Example.
// The image is decoded to find its dimensions, which also validates it.
func NewImageExample(datasetDir string, record ImageRecord, classIndex map[string]int64) (*tfrecord.Example, error) {
	label, found := classIndex[record.ClassName]
	if !found {
		return nil, errors.Errorf("image %q has unknown class %q", record.Path, record.ClassName)
	}
	imagePath := filepath.Join(datasetDir, filepath.FromSlash(record.Path))
	encoded, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image %q", imagePath)
	}
	img, err := imaging.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %q", imagePath)
	}
	size := img.Bounds().Size()
	return tfrecord.NewExample().
		Set(FeatureEncoded, tfrecord.BytesFeature(encoded)).
		Set(FeatureFormat, tfrecord.BytesFeature([]byte(ImageFormat(record.Path)))).
		Set(FeatureLabel, tfrecord.Int64Feature(label)).
		Set(FeatureHeight, tfrecord.Int64Feature(int64(size.Y))).
		Set(FeatureWidth, tfrecord.Int64Feature(int64(size.X))).
		Set(FeatureID, tfrecord.Int64Feature(record.ID)).
		Set(FeatureFileName, tfrecord.BytesFeature([]byte(record.Path))), nil
}
