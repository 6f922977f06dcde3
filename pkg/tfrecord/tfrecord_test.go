// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tfrecord

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestMaskedCRC(t *testing.T) {
	// CRC-32C of "123456789" is the standard check value 0xe3069283.
	crc := uint32(0xe3069283)
	want := ((crc >> 15) | (crc << 17)) + maskDelta
	assert.Equal(t, want, MaskedCRC([]byte("123456789")))
}

func TestWriterReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	records := [][]byte{[]byte("first"), {}, bytes.Repeat([]byte{0xAB}, 1000)}
	for _, record := range records {
		require.NoError(t, w.Write(record))
	}
	assert.Equal(t, 3, w.Count())
	wantBytes := int64(0)
	for _, record := range records {
		wantBytes += headerSize + int64(len(record)) + footerSize
	}
	assert.Equal(t, wantBytes, w.BytesWritten())
	assert.Equal(t, int(wantBytes), buf.Len())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	for ii, want := range records {
		got, err := r.Next()
		require.NoErrorf(t, err, "record #%d", ii)
		assert.Equal(t, want, got)
	}
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)

	// Length header layout.
	assert.Equal(t, uint64(len("first")), binary.LittleEndian.Uint64(buf.Bytes()[:8]))
}

func TestReaderCorruption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).Write([]byte("some payload")))
	valid := buf.Bytes()

	// Flip a byte in the payload.
	corrupted := bytes.Clone(valid)
	corrupted[headerSize+2] ^= 0xFF
	_, err := NewReader(bytes.NewReader(corrupted)).Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupted))

	// Flip a byte in the length.
	corrupted = bytes.Clone(valid)
	corrupted[0] ^= 0x01
	_, err = NewReader(bytes.NewReader(corrupted)).Next()
	assert.True(t, errors.Is(err, ErrCorrupted))

	// Truncated data.
	_, err = NewReader(bytes.NewReader(valid[:len(valid)-3])).Next()
	assert.True(t, errors.Is(err, ErrCorrupted))

	// Truncated header.
	_, err = NewReader(bytes.NewReader(valid[:5])).Next()
	assert.True(t, errors.Is(err, ErrCorrupted))

	// Huge length with a valid length checksum: rejected before reading the data.
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(header[:8], 1<<62)
	binary.LittleEndian.PutUint32(header[8:], MaskedCRC(header[:8]))
	_, err = NewReader(bytes.NewReader(header)).Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupted))
	assert.Contains(t, err.Error(), "larger than the maximum")

	// Plausible length but the file ends early.
	binary.LittleEndian.PutUint64(header[:8], 1<<20)
	binary.LittleEndian.PutUint32(header[8:], MaskedCRC(header[:8]))
	_, err = NewReader(bytes.NewReader(append(header, "short"...))).Next()
	assert.True(t, errors.Is(err, ErrCorrupted))
}

func TestExampleRoundTrip(t *testing.T) {
	example := NewExample().
		Set("image/encoded", BytesFeature([]byte{0, 1, 2, 3})).
		Set("image/format", BytesFeature([]byte("png"))).
		Set("image/class/label", Int64Feature(2)).
		Set("image/id", Int64Feature(-7, 1<<40)).
		Set("scores", &Feature{FloatList: []float32{0.5, -1.25}}).
		Set("empty", Int64Feature())

	data, err := example.Marshal()
	require.NoError(t, err)

	// Deterministic encoding.
	again, err := example.Marshal()
	require.NoError(t, err)
	assert.Equal(t, data, again)

	decoded, err := UnmarshalExample(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3}, decoded.Bytes("image/encoded"))
	assert.Equal(t, "png", string(decoded.Bytes("image/format")))
	label, found := decoded.Int64("image/class/label")
	assert.True(t, found)
	assert.Equal(t, int64(2), label)
	assert.Equal(t, []int64{-7, 1 << 40}, decoded.Features["image/id"].Int64List)
	assert.Equal(t, []float32{0.5, -1.25}, decoded.Features["scores"].FloatList)
	assert.Empty(t, decoded.Features["empty"].Int64List)
	_, found = decoded.Int64("missing")
	assert.False(t, found)
}

func TestExampleInvalidFeature(t *testing.T) {
	_, err := NewExample().Set("both", &Feature{Int64List: []int64{1}, FloatList: []float32{1}}).Marshal()
	assert.Error(t, err)
	_, err = NewExample().Set("none", &Feature{}).Marshal()
	assert.Error(t, err)
}

func TestUnmarshalUnpackedInt64(t *testing.T) {
	// Int64List with unpacked values, as older writers produce.
	var list []byte
	for _, v := range []uint64{3, 5} {
		list = protowire.AppendTag(list, listValueField, protowire.VarintType)
		list = protowire.AppendVarint(list, v)
	}
	var feature []byte
	feature = protowire.AppendTag(feature, int64ListField, protowire.BytesType)
	feature = protowire.AppendBytes(feature, list)
	var entry []byte
	entry = protowire.AppendTag(entry, mapKeyField, protowire.BytesType)
	entry = protowire.AppendString(entry, "ids")
	entry = protowire.AppendTag(entry, mapValueField, protowire.BytesType)
	entry = protowire.AppendBytes(entry, feature)
	var features []byte
	features = protowire.AppendTag(features, featuresMapField, protowire.BytesType)
	features = protowire.AppendBytes(features, entry)
	var data []byte
	// An unknown field before the features, which must be skipped.
	data = protowire.AppendTag(data, 7, protowire.VarintType)
	data = protowire.AppendVarint(data, 42)
	data = protowire.AppendTag(data, exampleFeaturesField, protowire.BytesType)
	data = protowire.AppendBytes(data, features)

	example, err := UnmarshalExample(data)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5}, example.Features["ids"].Int64List)
}

func TestReadAllExamples(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for ii := int64(0); ii < 4; ii++ {
		require.NoError(t, w.WriteExample(NewExample().Set("id", Int64Feature(ii))))
	}
	examples, err := ReadAllExamples(&buf)
	require.NoError(t, err)
	require.Len(t, examples, 4)
	for ii, example := range examples {
		id, _ := example.Int64("id")
		assert.Equal(t, int64(ii), id)
	}

	_, err = UnmarshalExample([]byte{0xFF})
	assert.Error(t, err)
}
