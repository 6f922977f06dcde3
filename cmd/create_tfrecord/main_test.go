// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/imagerecords/pkg/dataset"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags([]string{"-dataset_dir=/data/pets"}, io.Discard)
	require.NoError(t, err)
	want := dataset.DefaultConfig()
	want.DatasetDir = "/data/pets"
	assert.Equal(t, want, opts.cfg)
	assert.False(t, opts.verify)
}

func TestParseFlagsWithConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"dataset_dir: /data/flowers\nvalidation_size: 0.3\nnum_shards: 8\nrandom_seed: 5\n"), 0644))

	opts, err := parseFlags([]string{"-config", configPath, "-num_shards=4", "-verify"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "/data/flowers", opts.cfg.DatasetDir)
	assert.Equal(t, 0.3, opts.cfg.ValidationSize)
	assert.Equal(t, 4, opts.cfg.NumShards, "explicit flag overrides the file")
	assert.Equal(t, int64(5), opts.cfg.RandomSeed)
	assert.True(t, opts.verify)
}

func TestParseFlagsErrors(t *testing.T) {
	_, err := parseFlags([]string{"-num_shards=two"}, io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"extra"}, io.Discard)
	assert.True(t, errors.Is(err, dataset.ErrInvalidConfig))

	_, err = parseFlags([]string{"-help"}, io.Discard)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestParseFlagsVerbose(t *testing.T) {
	// Same name in the YAML file and in the command line.
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("dataset_dir: /data/flowers\nverbose: false\n"), 0644))
	opts, err := parseFlags([]string{"-config", configPath}, io.Discard)
	require.NoError(t, err)
	assert.False(t, opts.cfg.Verbose)

	opts, err = parseFlags([]string{"-config", configPath, "-verbose=true"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.cfg.Verbose)

	opts, err = parseFlags([]string{"-dataset_dir=/data", "-verbose=false"}, io.Discard)
	require.NoError(t, err)
	assert.False(t, opts.cfg.Verbose)
}
