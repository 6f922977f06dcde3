// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/gomlx/imagerecords/pkg/support/fsutil"
)

// Split names.
const (
	TrainSplit      = "train"
	ValidationSplit = "validation"
)

// ShardFileName returns the name of the shard file shardID (0-based) of a split written in numShards files.
func ShardFileName(prefix, split string, shardID, numShards int) string {
	return fmt.Sprintf("%s_%s_%05d-of-%05d.tfrecord", prefix, split, shardID, numShards)
}

// ShardPaths returns the paths of all the shard files of a split.
func ShardPaths(dir, prefix, split string, numShards int) []string {
	paths := make([]string, numShards)
	for shardID := range numShards {
		paths[shardID] = filepath.Join(dir, ShardFileName(prefix, split, shardID, numShards))
	}
	return paths
}

// ShardRange returns the [start, end) range of records that go into shard shardID, when n records are
// split into numShards shards of ceil(n/numShards) records each. Trailing shards may be empty.
func ShardRange(n, shardID, numShards int) (start, end int) {
	perShard := (n + numShards - 1) / numShards
	start = min(shardID*perShard, n)
	end = min(start+perShard, n)
	return
}

// DatasetExists returns whether all the train shard files for numShards already exist in dir.
//
// The train split is written by every conversion, so its complete set of shards marks a finished
// conversion. Shards are renamed into place only when complete, so existing shards are never partial.
func DatasetExists(dir, prefix string, numShards int) (bool, error) {
	return fsutil.AllFilesExist(ShardPaths(dir, prefix, TrainSplit, numShards)...)
}
