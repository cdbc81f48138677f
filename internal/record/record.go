// Package record decodes SQLite record payloads (cell bodies) into ordered
// rows of typed values, per the serial-type scheme in spec §3/§4.3.
package record

import (
	"encoding/binary"
	"fmt"

	"github.com/halvorsen-io/litequery/internal/varint"
)

// Kind discriminates the values this tool needs to represent. Blob is kept
// as its own discriminant (sum types over subclassing, per spec §9) even
// though no covered scenario produces one: a blob column decodes into a
// KindBlob value holding its raw bytes, and String renders those bytes
// as-is.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindText
	KindBlob
)

// Value is one decoded column value.
type Value struct {
	Kind Kind
	Int  int64
	Text string
	Blob []byte
}

// NullValue is the zero Value (Kind defaults to KindNull).
var NullValue = Value{Kind: KindNull}

// IntegerValue builds an integer Value.
func IntegerValue(v int64) Value { return Value{Kind: KindInteger, Int: v} }

// TextValue builds a text Value.
func TextValue(v string) Value { return Value{Kind: KindText, Text: v} }

// String renders a value the way the CLI projects it (§6 output format):
// NULL columns render as the empty string, everything else as its native
// text form.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindText:
		return v.Text
	case KindBlob:
		return string(v.Blob)
	default:
		return ""
	}
}

// Row is an ordered sequence of typed values, one per declared column.
type Row []Value

// ErrUnknownSerialType is returned by Decode when a serial type outside the
// documented set (spec §3) is encountered.
var ErrUnknownSerialType = fmt.Errorf("unknown serial type")

// ErrTruncated is returned when the payload ends before the header or body
// it declares is fully readable.
var ErrTruncated = fmt.Errorf("truncated record")

// serialTypeSize returns the number of body bytes a serial type occupies,
// and whether the type is recognized. Per spec §3/§4.3 only serial types 0,
// 1, 2, 3, 8, 9 and the text/blob families are documented; types 4-7
// (4/6/8-byte integers and floats) are explicitly out of scope ("large
// varint (>3-byte integer) columns beyond those documented" is a Non-goal)
// and report as unknown rather than silently widened.
func serialTypeSize(t uint64) (size int, ok bool) {
	switch t {
	case 0, 8, 9:
		return 0, true
	case 1:
		return 1, true
	case 2:
		return 2, true
	case 3:
		return 3, true
	}
	if t >= 12 && t%2 == 0 {
		return int((t - 12) / 2), true
	}
	if t >= 13 && t%2 == 1 {
		return int((t - 13) / 2), true
	}
	return 0, false
}

func decodeBody(serialType uint64, data []byte) (Value, error) {
	switch serialType {
	case 0:
		return NullValue, nil
	case 8:
		return IntegerValue(0), nil
	case 9:
		return IntegerValue(1), nil
	case 1:
		return IntegerValue(int64(int8(data[0]))), nil
	case 2:
		return IntegerValue(int64(int16(binary.BigEndian.Uint16(data)))), nil
	case 3:
		v := int32(data[0])<<16 | int32(data[1])<<8 | int32(data[2])
		if data[0]&0x80 != 0 {
			v |= ^int32(0xffffff)
		}
		return IntegerValue(int64(v)), nil
	}
	if serialType >= 13 && serialType%2 == 1 {
		return TextValue(string(data)), nil
	}
	if serialType >= 12 && serialType%2 == 0 {
		blob := make([]byte, len(data))
		copy(blob, data)
		return Value{Kind: KindBlob, Blob: blob}, nil
	}
	return Value{}, ErrUnknownSerialType
}

// Decode parses a cell payload ([header-length varint][serial-type
// varint]*[body bytes]*, spec §3) into a Row.
//
// rowidAliasIndex, when >= 0, names the column position materialized from
// rowid rather than its stored serial type (the INTEGER PRIMARY KEY rowid
// alias rule, spec §4.3): a serial type of 0 there becomes rowid instead of
// NULL. Pass -1 when the table has no such column, or when decoding an
// index record (index records carry no rowid-alias column).
func Decode(payload []byte, rowid uint64, rowidAliasIndex int) (Row, error) {
	headerLen, n, err := varint.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode header length: %w", err)
	}
	if int(headerLen) > len(payload) {
		return nil, ErrTruncated
	}

	var serialTypes []uint64
	offset := n
	for offset < int(headerLen) {
		st, m, err := varint.Decode(payload[offset:])
		if err != nil {
			return nil, fmt.Errorf("decode serial type: %w", err)
		}
		serialTypes = append(serialTypes, st)
		offset += m
	}

	row := make(Row, len(serialTypes))
	bodyOffset := int(headerLen)
	for i, st := range serialTypes {
		size, ok := serialTypeSize(st)
		if !ok {
			return nil, ErrUnknownSerialType
		}
		if bodyOffset+size > len(payload) {
			return nil, ErrTruncated
		}
		data := payload[bodyOffset : bodyOffset+size]

		if st == 0 && i == rowidAliasIndex {
			row[i] = IntegerValue(int64(rowid))
			bodyOffset += size
			continue
		}

		val, err := decodeBody(st, data)
		if err != nil {
			return nil, err
		}
		row[i] = val
		bodyOffset += size
	}

	return row, nil
}
