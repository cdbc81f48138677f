package btree

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/halvorsen-io/litequery/internal/record"
	"github.com/halvorsen-io/litequery/internal/varint"
)

// Pager is the subset of pager.Pager the walkers need, so this package
// doesn't import pager directly and stays testable against tiny in-memory
// page sets.
type Pager interface {
	ReadPage(n uint32) ([]byte, error)
}

// Table walks the table B-tree rooted at a given page (spec §4.5): a
// full-scan in ascending rowid order, and a rowid seek that visits exactly
// one root-to-leaf path.
type Table struct {
	pager           Pager
	root            uint32
	rowidAliasIndex int // column index materialized from rowid; -1 if none
}

// NewTable returns a walker over the table B-tree rooted at root.
// rowidAliasIndex names the INTEGER PRIMARY KEY column position (spec
// §4.3's rowid-alias rule), or -1 if the table declares none.
func NewTable(pager Pager, root uint32, rowidAliasIndex int) *Table {
	return &Table{pager: pager, root: root, rowidAliasIndex: rowidAliasIndex}
}

// ErrNotFound is returned by nothing directly (Seek reports absence via its
// bool return) but is kept here as the documented name for that condition.
var ErrNotFound = fmt.Errorf("rowid not found")

// Scan visits every row in the subtree in ascending rowid order, calling
// yield for each. Returning a non-nil error from yield aborts the scan and
// that error propagates out of Scan. ctx is checked before each page read
// (teacher's database_raw.go pattern), so a canceled query stops descending
// instead of running to completion.
func (t *Table) Scan(ctx context.Context, yield func(rowid uint64, row record.Row) error) error {
	return t.scanPage(ctx, t.root, yield)
}

func (t *Table) scanPage(ctx context.Context, pageNum uint32, yield func(uint64, record.Row) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pageData, err := t.pager.ReadPage(pageNum)
	if err != nil {
		return err
	}
	header, err := parsePageHeader(pageData, pageNum)
	if err != nil {
		return err
	}

	switch header.Type {
	case TypeLeafTable:
		for i := 0; i < int(header.CellCount); i++ {
			off, err := header.cellOffset(pageData, i)
			if err != nil {
				return err
			}
			rowid, row, err := parseLeafTableCell(pageData, off, t.rowidAliasIndex)
			if err != nil {
				return err
			}
			if err := yield(rowid, row); err != nil {
				return err
			}
		}
		return nil

	case TypeInteriorTable:
		for i := 0; i < int(header.CellCount); i++ {
			off, err := header.cellOffset(pageData, i)
			if err != nil {
				return err
			}
			child, _, err := parseInteriorTableCell(pageData, off)
			if err != nil {
				return err
			}
			if err := t.scanPage(ctx, child, yield); err != nil {
				return err
			}
		}
		return t.scanPage(ctx, header.RightmostChild, yield)

	default:
		return fmt.Errorf("%w: table walker hit page type 0x%02x", ErrUnsupportedPageType, header.Type)
	}
}

// ScanAll materializes the full scan as a slice, for call sites (and tests)
// that need the whole table in memory. Scan is preferred where streaming
// matters (spec §9 notes an eager vector is valid but heavier).
func (t *Table) ScanAll(ctx context.Context) ([]uint64, []record.Row, error) {
	var rowids []uint64
	var rows []record.Row
	err := t.Scan(ctx, func(rowid uint64, row record.Row) error {
		rowids = append(rowids, rowid)
		rows = append(rows, row)
		return nil
	})
	return rowids, rows, err
}

// Seek looks up the row with the given rowid, descending exactly one
// root-to-leaf path (spec §4.5). found is false when no such rowid exists.
func (t *Table) Seek(ctx context.Context, target uint64) (row record.Row, found bool, err error) {
	return t.seekPage(ctx, t.root, target)
}

func (t *Table) seekPage(ctx context.Context, pageNum uint32, target uint64) (record.Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	pageData, err := t.pager.ReadPage(pageNum)
	if err != nil {
		return nil, false, err
	}
	header, err := parsePageHeader(pageData, pageNum)
	if err != nil {
		return nil, false, err
	}

	switch header.Type {
	case TypeLeafTable:
		for i := 0; i < int(header.CellCount); i++ {
			off, err := header.cellOffset(pageData, i)
			if err != nil {
				return nil, false, err
			}
			rowid, row, err := parseLeafTableCell(pageData, off, t.rowidAliasIndex)
			if err != nil {
				return nil, false, err
			}
			if rowid == target {
				return row, true, nil
			}
		}
		return nil, false, nil

	case TypeInteriorTable:
		for i := 0; i < int(header.CellCount); i++ {
			off, err := header.cellOffset(pageData, i)
			if err != nil {
				return nil, false, err
			}
			child, key, err := parseInteriorTableCell(pageData, off)
			if err != nil {
				return nil, false, err
			}
			if target <= key {
				return t.seekPage(ctx, child, target)
			}
		}
		return t.seekPage(ctx, header.RightmostChild, target)

	default:
		return nil, false, fmt.Errorf("%w: table walker hit page type 0x%02x", ErrUnsupportedPageType, header.Type)
	}
}

// parseLeafTableCell decodes a table-leaf cell:
// [payload-length varint][rowid varint][record] (spec §3).
func parseLeafTableCell(pageData []byte, offset int, rowidAliasIndex int) (uint64, record.Row, error) {
	payloadSize, n, err := varint.Decode(pageData[offset:])
	if err != nil {
		return 0, nil, fmt.Errorf("decode payload length: %w", err)
	}
	rowid, m, err := varint.Decode(pageData[offset+n:])
	if err != nil {
		return 0, nil, fmt.Errorf("decode rowid: %w", err)
	}

	payloadStart := offset + n + m
	payloadEnd := payloadStart + int(payloadSize)
	if payloadEnd > len(pageData) {
		return 0, nil, fmt.Errorf("%w: table leaf cell payload extends beyond page", ErrUnsupportedPageType)
	}

	row, err := record.Decode(pageData[payloadStart:payloadEnd], rowid, rowidAliasIndex)
	if err != nil {
		return 0, nil, err
	}
	return rowid, row, nil
}

// parseInteriorTableCell decodes a table-interior cell:
// [left-child u32][rowid-key varint] (spec §3).
func parseInteriorTableCell(pageData []byte, offset int) (child uint32, key uint64, err error) {
	if offset+4 > len(pageData) {
		return 0, 0, fmt.Errorf("%w: interior table cell truncated", ErrUnsupportedPageType)
	}
	child = binary.BigEndian.Uint32(pageData[offset : offset+4])
	key, _, err = varint.Decode(pageData[offset+4:])
	if err != nil {
		return 0, 0, fmt.Errorf("decode separator key: %w", err)
	}
	return child, key, nil
}
