// Package btree walks table and index B-trees directly over pager-supplied
// page bytes (spec §4.5, §4.6): full scans, rowid seeks, and index
// key-equality search. Nodes are never held as an in-memory pointer graph —
// each traversal step asks the pager for a fresh byte slice and operates on
// it locally (spec §9, "arena/index over references").
package btree

import (
	"encoding/binary"
	"fmt"
)

// Page types (spec §3).
const (
	TypeInteriorIndex = 0x02
	TypeInteriorTable = 0x05
	TypeLeafIndex     = 0x0a
	TypeLeafTable     = 0x0d
)

var ErrUnsupportedPageType = fmt.Errorf("unsupported page type")

// pageHeader is the parsed B-tree page header (spec §3).
type pageHeader struct {
	Type              byte
	CellCount         uint16
	RightmostChild    uint32 // only meaningful for interior pages
	cellPointerOffset int    // offset, within pageData, of the cell pointer array
}

// parsePageHeader reads the B-tree header for pageData. pageNum is needed
// because page 1 carries the header at byte offset 100 (after the file
// header) while every other page carries it at offset 0.
func parsePageHeader(pageData []byte, pageNum uint32) (pageHeader, error) {
	base := 0
	if pageNum == 1 {
		base = 100
	}
	if len(pageData) < base+8 {
		return pageHeader{}, fmt.Errorf("%w: page %d too small for header", ErrUnsupportedPageType, pageNum)
	}

	h := pageHeader{
		Type:      pageData[base],
		CellCount: binary.BigEndian.Uint16(pageData[base+3 : base+5]),
	}

	switch h.Type {
	case TypeLeafTable, TypeLeafIndex:
		h.cellPointerOffset = base + 8
	case TypeInteriorTable, TypeInteriorIndex:
		if len(pageData) < base+12 {
			return pageHeader{}, fmt.Errorf("%w: interior page %d too small", ErrUnsupportedPageType, pageNum)
		}
		h.RightmostChild = binary.BigEndian.Uint32(pageData[base+8 : base+12])
		h.cellPointerOffset = base + 12
	default:
		return pageHeader{}, fmt.Errorf("%w: 0x%02x", ErrUnsupportedPageType, h.Type)
	}

	return h, nil
}

// PageCellCount reports the cell count and page type of the given page,
// without decoding any cell. Used for the `.dbinfo` table-count
// approximation and the `SELECT COUNT(*)` leaf-root approximation (spec
// §4.8 items 1 and 3).
func PageCellCount(p Pager, pageNum uint32) (count int, pageType byte, err error) {
	pageData, err := p.ReadPage(pageNum)
	if err != nil {
		return 0, 0, err
	}
	header, err := parsePageHeader(pageData, pageNum)
	if err != nil {
		return 0, 0, err
	}
	return int(header.CellCount), header.Type, nil
}

// cellOffset returns the byte offset (from the start of pageData) of the
// i-th cell, per the 2-byte big-endian cell pointer array (spec §3).
func (h pageHeader) cellOffset(pageData []byte, i int) (int, error) {
	pos := h.cellPointerOffset + i*2
	if pos+2 > len(pageData) {
		return 0, fmt.Errorf("%w: cell pointer %d out of range", ErrUnsupportedPageType, i)
	}
	off := int(binary.BigEndian.Uint16(pageData[pos : pos+2]))
	if off <= 0 || off >= len(pageData) {
		return 0, fmt.Errorf("%w: cell pointer %d references invalid offset %d", ErrUnsupportedPageType, i, off)
	}
	return off, nil
}
