// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ImageRecord is one image of the dataset.
type ImageRecord struct {
	// Path of the image relative to the dataset directory, always "/" separated: "<class>/<file>".
	Path string

	// ID is 1 + the position of the image in the enumeration order. It is never changed by shuffling.
	ID int64

	// ClassName is the name of the subdirectory holding the image.
	ClassName string
}

// ImageExtensions maps the accepted (lower-case) file extensions to the format name stored in the records.
var ImageExtensions = map[string]string{
	".jpg":  "jpg",
	".jpeg": "jpg",
	".png":  "png",
	".gif":  "gif",
	".bmp":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
	".webp": "webp",
}

// ImageFormat returns the format name of an image file, based on its extension, or "" if not supported.
func ImageFormat(fileName string) string {
	return ImageExtensions[strings.ToLower(filepath.Ext(fileName))]
}

// Enumerate the images under dir: each immediate subdirectory is a class and its image files are
// the examples of that class.
//
// The order is fixed: classes sorted by name, and within each class files sorted by name.
// IDs are assigned 1, 2, 3, ... in this order. classNames is sorted, and includes classes without images.
//
// Hidden entries (starting with ".") are ignored, and so are files in dir itself (that's where
// the outputs are written). Non-image files and nested directories are skipped with a warning.
func Enumerate(dir string) (records []ImageRecord, classNames []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to list dataset directory %q", dir)
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		isDir, err := isDirectory(filepath.Join(dir, name), entry)
		if err != nil {
			return nil, nil, err
		}
		if isDir {
			classNames = append(classNames, name)
		}
	}
	slices.Sort(classNames)

	for _, className := range classNames {
		classDir := filepath.Join(dir, className)
		fileNames, err := listImages(classDir)
		if err != nil {
			return nil, nil, err
		}
		for _, fileName := range fileNames {
			records = append(records, ImageRecord{
				Path:      path.Join(className, fileName),
				ID:        int64(len(records) + 1),
				ClassName: className,
			})
		}
	}
	return records, classNames, nil
}

// listImages returns the sorted names of the image files in classDir.
func listImages(classDir string) ([]string, error) {
	entries, err := os.ReadDir(classDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list class directory %q", classDir)
	}
	fileNames := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		filePath := filepath.Join(classDir, name)
		if strings.HasPrefix(name, ".") {
			klog.V(1).Infof("Skipping hidden file %q", filePath)
			continue
		}
		isDir, err := isDirectory(filePath, entry)
		if err != nil {
			return nil, err
		}
		if isDir {
			klog.Warningf("Skipping nested directory %q: only files directly under a class directory are used", filePath)
			continue
		}
		if ImageFormat(name) == "" {
			klog.Warningf("Skipping %q: not a supported image file extension", filePath)
			continue
		}
		fileNames = append(fileNames, name)
	}
	slices.Sort(fileNames)
	return fileNames, nil
}

// isDirectory follows symbolic links.
func isDirectory(entryPath string, entry os.DirEntry) (bool, error) {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.IsDir(), nil
	}
	info, err := os.Stat(entryPath)
	if err != nil {
		return false, errors.Wrapf(err, "failed to follow symbolic link %q", entryPath)
	}
	return info.IsDir(), nil
}

// ClassIndex maps each class name to its position in classNames, the dense label index in [0, len(classNames)).
func ClassIndex(classNames []string) map[string]int64 {
	index := make(map[string]int64, len(classNames))
	for ii, name := range classNames {
		index[name] = int64(ii)
	}
	return index
}
