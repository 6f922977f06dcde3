// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bytes"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/imagerecords/pkg/support/fsutil"
	"github.com/pkg/errors"
)

// Names of the id-mapping files, for the train and validation splits.
const (
	ImageIDsFileName           = "image_ids.csv"
	ImageIDsValidationFileName = "image_ids_validation.csv"
)

// Columns of the id-mapping files.
const (
	FileNameColumn = "filename"
	IDColumn       = "id"
)

// IDMappingFileName returns the name of the id-mapping file of split.
func IDMappingFileName(split string) string {
	if split == ValidationSplit {
		return ImageIDsValidationFileName
	}
	return ImageIDsFileName
}

// WriteIDMapping writes a CSV file dir/fileName with a header and one "filename,id" row per record,
// in the order given.
func WriteIDMapping(records []ImageRecord, dir, fileName string) error {
	fileNames := make([]string, len(records))
	ids := make([]int, len(records))
	for ii, record := range records {
		fileNames[ii] = record.Path
		ids[ii] = int(record.ID)
	}
	df := dataframe.New(
		series.New(fileNames, series.String, FileNameColumn),
		series.New(ids, series.Int, IDColumn),
	)
	if df.Err != nil {
		return errors.Wrapf(df.Err, "failed to build id mapping for %q", fileName)
	}
	filePath := filepath.Join(dir, fileName)
	return fsutil.WriteFileAtomically(filePath, func(w io.Writer) error {
		return df.WriteCSV(w)
	})
}

// ReadIDMapping reads back a file written by WriteIDMapping.
// The class name of each record is taken from the directory part of its file name.
func ReadIDMapping(filePath string) ([]ImageRecord, error) {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read id mapping %q", filePath)
	}
	if lines := bytes.Split(bytes.TrimSpace(contents), []byte("\n")); len(lines) <= 1 {
		// Header only: no records.
		return nil, nil
	}
	df := dataframe.ReadCSV(bytes.NewReader(contents),
		dataframe.WithTypes(map[string]series.Type{FileNameColumn: series.String, IDColumn: series.Int}))
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "failed to parse id mapping %q", filePath)
	}
	fileNames := df.Col(FileNameColumn)
	if fileNames.Err != nil {
		return nil, errors.Wrapf(fileNames.Err, "id mapping %q has no %q column", filePath, FileNameColumn)
	}
	idsCol := df.Col(IDColumn)
	if idsCol.Err != nil {
		return nil, errors.Wrapf(idsCol.Err, "id mapping %q has no %q column", filePath, IDColumn)
	}
	ids, err := idsCol.Int()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid ids in id mapping %q", filePath)
	}
	records := make([]ImageRecord, df.Nrow())
	for ii, fileName := range fileNames.Records() {
		records[ii] = ImageRecord{Path: fileName, ID: int64(ids[ii]), ClassName: path.Dir(fileName)}
	}
	return records, nil
}
