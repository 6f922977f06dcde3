// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tfrecord

import (
	"math"
	"slices"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the `tensorflow.Example` family of messages (tensorflow/core/example/feature.proto).
const (
	exampleFeaturesField protowire.Number = 1 // Example.features
	featuresMapField     protowire.Number = 1 // Features.feature (map<string, Feature>)
	mapKeyField          protowire.Number = 1
	mapValueField        protowire.Number = 2
	bytesListField       protowire.Number = 1 // Feature.bytes_list
	floatListField       protowire.Number = 2 // Feature.float_list
	int64ListField       protowire.Number = 3 // Feature.int64_list
	listValueField       protowire.Number = 1 // {Bytes,Float,Int64}List.value
)

// Feature is one value of an Example: exactly one of the lists is set.
type Feature struct {
	BytesList [][]byte
	FloatList []float32
	Int64List []int64
}

// BytesFeature returns a Feature holding a list of byte strings.
func BytesFeature(values ...[]byte) *Feature {
	if values == nil {
		values = [][]byte{}
	}
	return &Feature{BytesList: values}
}

// Int64Feature returns a Feature holding a list of int64.
func Int64Feature(values ...int64) *Feature {
	if values == nil {
		values = []int64{}
	}
	return &Feature{Int64List: values}
}

func (f *Feature) numKinds() (n int) {
	if f.BytesList != nil {
		n++
	}
	if f.FloatList != nil {
		n++
	}
	if f.Int64List != nil {
		n++
	}
	return
}

// Example is the Go version of `tensorflow.Example`: a map of named features.
type Example struct {
	Features map[string]*Feature
}

// NewExample returns an empty Example.
func NewExample() *Example {
	return &Example{Features: make(map[string]*Feature)}
}

// Set the feature under the given key. Returns itself, to allow cascading calls.
func (e *Example) Set(key string, feature *Feature) *Example {
	if e.Features == nil {
		e.Features = make(map[string]*Feature)
	}
	e.Features[key] = feature
	return e
}

// Bytes returns the first value of a bytes feature, or nil if missing.
func (e *Example) Bytes(key string) []byte {
	f := e.Features[key]
	if f == nil || len(f.BytesList) == 0 {
		return nil
	}
	return f.BytesList[0]
}

// Int64 returns the first value of an int64 feature, and whether it was present.
func (e *Example) Int64(key string) (int64, bool) {
	f := e.Features[key]
	if f == nil || len(f.Int64List) == 0 {
		return 0, false
	}
	return f.Int64List[0], true
}

// Marshal encodes the example in protobuf wire format.
// Features are written in sorted key order, so the output is deterministic.
func (e *Example) Marshal() ([]byte, error) {
	keys := make([]string, 0, len(e.Features))
	for key := range e.Features {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var features []byte
	for _, key := range keys {
		feature := e.Features[key]
		if feature == nil || feature.numKinds() != 1 {
			return nil, errors.Errorf("feature %q must have exactly one of bytes, float or int64 lists set", key)
		}
		var entry []byte
		entry = protowire.AppendTag(entry, mapKeyField, protowire.BytesType)
		entry = protowire.AppendString(entry, key)
		entry = protowire.AppendTag(entry, mapValueField, protowire.BytesType)
		entry = protowire.AppendBytes(entry, feature.marshal())

		features = protowire.AppendTag(features, featuresMapField, protowire.BytesType)
		features = protowire.AppendBytes(features, entry)
	}

	var out []byte
	out = protowire.AppendTag(out, exampleFeaturesField, protowire.BytesType)
	out = protowire.AppendBytes(out, features)
	return out, nil
}

func (f *Feature) marshal() []byte {
	var list []byte
	var field protowire.Number
	switch {
	case f.BytesList != nil:
		field = bytesListField
		for _, value := range f.BytesList {
			list = protowire.AppendTag(list, listValueField, protowire.BytesType)
			list = protowire.AppendBytes(list, value)
		}
	case f.FloatList != nil:
		field = floatListField
		if len(f.FloatList) > 0 {
			var packed []byte
			for _, value := range f.FloatList {
				packed = protowire.AppendFixed32(packed, math.Float32bits(value))
			}
			list = protowire.AppendTag(list, listValueField, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}
	default:
		field = int64ListField
		if len(f.Int64List) > 0 {
			var packed []byte
			for _, value := range f.Int64List {
				packed = protowire.AppendVarint(packed, uint64(value))
			}
			list = protowire.AppendTag(list, listValueField, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}
	}
	var out []byte
	out = protowire.AppendTag(out, field, protowire.BytesType)
	out = protowire.AppendBytes(out, list)
	return out
}

// UnmarshalExample decodes an Example from protobuf wire format.
// Unknown fields are skipped.
func UnmarshalExample(data []byte) (*Example, error) {
	e := NewExample()
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, value []byte) error {
		if num != exampleFeaturesField || typ != protowire.BytesType {
			return nil
		}
		return forEachField(value, func(num protowire.Number, typ protowire.Type, entry []byte) error {
			if num != featuresMapField || typ != protowire.BytesType {
				return nil
			}
			return e.unmarshalEntry(entry)
		})
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to unmarshal tensorflow.Example")
	}
	return e, nil
}

func (e *Example) unmarshalEntry(entry []byte) error {
	var key string
	feature := &Feature{}
	err := forEachField(entry, func(num protowire.Number, typ protowire.Type, value []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case mapKeyField:
			key = string(value)
		case mapValueField:
			return feature.unmarshal(value)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.Features[key] = feature
	return nil
}

func (f *Feature) unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, list []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case bytesListField:
			f.BytesList = [][]byte{}
			return forEachField(list, func(num protowire.Number, typ protowire.Type, value []byte) error {
				if num == listValueField && typ == protowire.BytesType {
					f.BytesList = append(f.BytesList, slices.Clone(value))
				}
				return nil
			})
		case floatListField:
			f.FloatList = []float32{}
			return forEachScalar(list, protowire.Fixed32Type, func(v uint64) {
				f.FloatList = append(f.FloatList, math.Float32frombits(uint32(v)))
			})
		case int64ListField:
			f.Int64List = []int64{}
			return forEachScalar(list, protowire.VarintType, func(v uint64) {
				f.Int64List = append(f.Int64List, int64(v))
			})
		}
		return nil
	})
}

// forEachField iterates over the top-level fields of a message. For length-delimited fields the
// value passed is the payload; for others it is nil.
func forEachField(data []byte, fn func(num protowire.Number, typ protowire.Type, value []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		var value []byte
		if typ == protowire.BytesType {
			value, n = protowire.ConsumeBytes(data)
		} else {
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if err := fn(num, typ, value); err != nil {
			return err
		}
	}
	return nil
}

// forEachScalar decodes the `value` field of a FloatList or Int64List, in either packed or unpacked encoding.
func forEachScalar(data []byte, scalarType protowire.Type, fn func(v uint64)) error {
	consume := func(b []byte) (uint64, int) {
		if scalarType == protowire.Fixed32Type {
			v, n := protowire.ConsumeFixed32(b)
			return uint64(v), n
		}
		return protowire.ConsumeVarint(b)
	}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == listValueField && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
			for len(packed) > 0 {
				v, m := consume(packed)
				if m < 0 {
					return protowire.ParseError(m)
				}
				packed = packed[m:]
				fn(v)
			}
		case num == listValueField && typ == scalarType:
			v, n := consume(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
			fn(v)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}
