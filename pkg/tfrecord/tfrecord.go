// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tfrecord reads and writes TensorFlow's TFRecord files, and encodes/decodes the
// `tensorflow.Example` protocol buffer stored in them.
//
// Each record is framed as:
//
//	uint64 length
//	uint32 masked_crc32c(length)
//	byte   data[length]
//	uint32 masked_crc32c(data)
//
// All integers are little-endian.
package tfrecord

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"

	"github.com/pkg/errors"
)

// ErrCorrupted is returned by Reader when a record fails its checksum or is truncated.
var ErrCorrupted = errors.New("tfrecord: corrupted record")

const (
	headerSize = 8 + 4
	footerSize = 4
	maskDelta  = 0xa282ead8
)

// MaxRecordSize is the largest record length Reader accepts. Longer lengths are reported as ErrCorrupted.
const MaxRecordSize = math.MaxInt32

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// MaskedCRC returns the masked CRC-32C of data, as stored in TFRecord files.
func MaskedCRC(data []byte) uint32 {
	crc := crc32.Checksum(data, castagnoli)
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Writer writes framed records to an underlying io.Writer.
// It does no buffering of its own, wrap the target in a bufio.Writer if needed.
type Writer struct {
	w            io.Writer
	header       [headerSize]byte
	footer       [footerSize]byte
	count        int
	bytesWritten int64
}

// NewWriter returns a Writer that frames records into w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write frames and writes one record.
func (w *Writer) Write(record []byte) error {
	binary.LittleEndian.PutUint64(w.header[:8], uint64(len(record)))
	binary.LittleEndian.PutUint32(w.header[8:], MaskedCRC(w.header[:8]))
	binary.LittleEndian.PutUint32(w.footer[:], MaskedCRC(record))
	for _, part := range [][]byte{w.header[:], record, w.footer[:]} {
		n, err := w.w.Write(part)
		w.bytesWritten += int64(n)
		if err != nil {
			return errors.Wrapf(err, "failed to write record #%d", w.count)
		}
	}
	w.count++
	return nil
}

// WriteExample marshals the example and writes it as one record.
func (w *Writer) WriteExample(example *Example) error {
	data, err := example.Marshal()
	if err != nil {
		return err
	}
	return w.Write(data)
}

// Count returns the number of records written so far.
func (w *Writer) Count() int { return w.count }

// BytesWritten returns the number of bytes written so far, framing included.
func (w *Writer) BytesWritten() int64 { return w.bytesWritten }

// Reader reads framed records from an underlying io.Reader.
type Reader struct {
	r      io.Reader
	header [headerSize]byte
	footer [footerSize]byte
	count  int
}

// NewReader returns a Reader of the records in r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next returns the next record. It returns io.EOF if the input ends cleanly at a record boundary,
// and an error wrapping ErrCorrupted if a record is truncated or fails its checksum.
func (r *Reader) Next() ([]byte, error) {
	n, err := io.ReadFull(r.r, r.header[:])
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupted, "record #%d: truncated header (%d bytes)", r.count, n)
	}
	length := binary.LittleEndian.Uint64(r.header[:8])
	if crc := binary.LittleEndian.Uint32(r.header[8:]); crc != MaskedCRC(r.header[:8]) {
		return nil, errors.Wrapf(ErrCorrupted, "record #%d: length checksum mismatch", r.count)
	}
	if length > MaxRecordSize {
		return nil, errors.Wrapf(ErrCorrupted, "record #%d: length %d is larger than the maximum %d", r.count, length, MaxRecordSize)
	}
	// Read incrementally, so a truncated file doesn't allocate the full length upfront.
	data, err := io.ReadAll(io.LimitReader(r.r, int64(length)))
	if err != nil || uint64(len(data)) != length {
		return nil, errors.Wrapf(ErrCorrupted, "record #%d: truncated data, expected %d bytes, got %d", r.count, length, len(data))
	}
	if _, err = io.ReadFull(r.r, r.footer[:]); err != nil {
		return nil, errors.Wrapf(ErrCorrupted, "record #%d: truncated footer", r.count)
	}
	if crc := binary.LittleEndian.Uint32(r.footer[:]); crc != MaskedCRC(data) {
		return nil, errors.Wrapf(ErrCorrupted, "record #%d: data checksum mismatch", r.count)
	}
	r.count++
	return data, nil
}

// NextExample reads the next record and decodes it as an Example.
func (r *Reader) NextExample() (*Example, error) {
	data, err := r.Next()
	if err != nil {
		return nil, err
	}
	example, err := UnmarshalExample(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "record #%d", r.count-1)
	}
	return example, nil
}

// ReadAllExamples reads and decodes every record until the end of r.
func ReadAllExamples(r io.Reader) ([]*Example, error) {
	reader := NewReader(r)
	var examples []*Example
	for {
		example, err := reader.NextExample()
		if err == io.EOF {
			return examples, nil
		}
		if err != nil {
			return examples, err
		}
		examples = append(examples, example)
	}
}
