// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bytes"
	"io"
	"math"
	"os"
	"strings"

	"github.com/gomlx/imagerecords/pkg/support/fsutil"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every configuration error returned by Config.Validate and LoadConfig.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config of a conversion run. It is passed by value and never modified by the conversion.
type Config struct {
	// DatasetDir is the root directory, with one subdirectory per class. Outputs are written here too.
	DatasetDir string `yaml:"dataset_dir"`

	// ValidationSize is the fraction of images, in [0, 1], held out for the validation split.
	ValidationSize float64 `yaml:"validation_size"`

	// NumShards is the number of TFRecord files each split is written to.
	NumShards int `yaml:"num_shards"`

	// RandomSeed for the shuffle, so splits are reproducible.
	RandomSeed int64 `yaml:"random_seed"`

	// Prefix of the shard file names.
	Prefix string `yaml:"prefix"`

	// Verbose enables the progress bar and the summary table on stdout.
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the configuration with default values. DatasetDir is left empty: it must be set.
func DefaultConfig() Config {
	return Config{
		ValidationSize: 0,
		NumShards:      2,
		RandomSeed:     0,
		Prefix:         "images",
		Verbose:        true,
	}
}

// Validate returns an error wrapping ErrInvalidConfig if the configuration can't be used.
func (c Config) Validate() error {
	if c.DatasetDir == "" {
		return errors.Wrap(ErrInvalidConfig, "dataset_dir is empty. Please state a dataset_dir argument.")
	}
	if math.IsNaN(c.ValidationSize) || c.ValidationSize < 0 || c.ValidationSize > 1 {
		return errors.Wrapf(ErrInvalidConfig, "validation_size=%g must be in the range [0, 1]", c.ValidationSize)
	}
	if c.NumShards <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "num_shards=%d must be > 0", c.NumShards)
	}
	if c.Prefix == "" || strings.ContainsAny(c.Prefix, `/\`) {
		return errors.Wrapf(ErrInvalidConfig, "prefix=%q must be a non-empty file name without path separators", c.Prefix)
	}
	return nil
}

// expandDatasetDir returns a copy of the config with "~" in DatasetDir replaced by the home directory.
func (c Config) expandDatasetDir() (Config, error) {
	dir, err := fsutil.ReplaceTildeInDir(c.DatasetDir)
	if err != nil {
		return c, errors.Wrapf(ErrInvalidConfig, "dataset_dir=%q: %v", c.DatasetDir, err)
	}
	c.DatasetDir = dir
	return c, nil
}

// LoadConfig reads the YAML file at configPath and overlays the keys it sets on base.
// Unknown keys are reported as errors.
func LoadConfig(configPath string, base Config) (Config, error) {
	contents, err := os.ReadFile(configPath)
	if err != nil {
		return base, errors.Wrapf(err, "failed to read configuration file %q", configPath)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	decoder.KnownFields(true)
	cfg := base
	if err = decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file: nothing to overlay.
			return base, nil
		}
		return base, errors.Wrapf(ErrInvalidConfig, "failed to parse configuration file %q: %v", configPath, err)
	}
	return cfg, nil
}
