package pager

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size of the SQLite database file header (spec §3).
const HeaderSize = 100

var magic = [16]byte{'S', 'Q', 'L', 'i', 't', 'e', ' ', 'f', 'o', 'r', 'm', 'a', 't', ' ', '3', 0}

// Header is the subset of the 100-byte file header this tool needs.
type Header struct {
	// PageSize is the resolved page size in bytes (512-65536, a power of
	// two). The on-disk field is a big-endian uint16 where 1 means 65536;
	// callers never need to know about that encoding quirk.
	PageSize int
}

// ParseHeader validates the magic number and extracts the page size (bytes
// 16-17, big-endian, spec §6).
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: file header needs %d bytes, got %d", ErrShortRead, HeaderSize, len(buf))
	}
	for i := 0; i < 15; i++ {
		if buf[i] != magic[i] {
			return Header{}, fmt.Errorf("%w: not a SQLite database file", ErrMalformedDatabase)
		}
	}

	raw := binary.BigEndian.Uint16(buf[16:18])
	pageSize := int(raw)
	if raw == 1 {
		pageSize = 65536
	}
	if pageSize < 512 || pageSize > 65536 || pageSize&(pageSize-1) != 0 {
		return Header{}, fmt.Errorf("%w: invalid page size %d", ErrMalformedDatabase, pageSize)
	}

	return Header{PageSize: pageSize}, nil
}
