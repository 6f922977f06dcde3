// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gomlx/imagerecords/pkg/support/fsutil"
	"github.com/pkg/errors"
)

// LabelsFileName is the name of the file mapping label indices to class names.
const LabelsFileName = "labels.txt"

// WriteLabelFile writes dir/labels.txt with one "<index>:<class name>" line per class, where the index
// is the position in classNames.
func WriteLabelFile(classNames []string, dir string) error {
	return fsutil.WriteFileAtomically(filepath.Join(dir, LabelsFileName), func(w io.Writer) error {
		buffered := bufio.NewWriter(w)
		for label, className := range classNames {
			if _, err := fmt.Fprintf(buffered, "%d:%s\n", label, className); err != nil {
				return err
			}
		}
		return buffered.Flush()
	})
}

// ReadLabelFile parses a file written by WriteLabelFile into a map of label index to class name.
func ReadLabelFile(filePath string) (map[int64]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open label file %q", filePath)
	}
	defer func() { _ = f.Close() }()

	labels := make(map[int64]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		indexStr, className, found := strings.Cut(line, ":")
		if !found {
			return nil, errors.Errorf("label file %q line %d: missing \":\" in %q", filePath, lineNum, line)
		}
		index, err := strconv.ParseInt(indexStr, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "label file %q line %d: invalid index", filePath, lineNum)
		}
		labels[index] = className
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read label file %q", filePath)
	}
	return labels, nil
}
