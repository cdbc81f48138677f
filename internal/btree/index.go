package btree

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/halvorsen-io/litequery/internal/record"
	"github.com/halvorsen-io/litequery/internal/varint"
)

// Index walks the index B-tree rooted at a given page (spec §4.6): an
// equality search over the indexed key, descending only the subtrees whose
// separator range can hold the key (one root-to-leaf path, plus the
// neighboring subtrees of any separator equal to the key) and yielding
// every matching rowid along the way.
//
// Index cell payloads are records whose columns are [indexed column(s)...,
// rowid]; the rowid is always the last value in the payload record.
type Index struct {
	pager Pager
	root  uint32
}

// NewIndex returns a walker over the index B-tree rooted at root.
func NewIndex(pager Pager, root uint32) *Index {
	return &Index{pager: pager, root: root}
}

// Find returns the rowids of every entry whose indexed key equals target,
// in ascending key order. An index's keys are themselves stored in sorted
// order, so this never needs to look outside the one matching path plus
// its immediate neighbors.
func (x *Index) Find(ctx context.Context, target record.Value) ([]uint64, error) {
	var rowids []uint64
	err := x.findPage(ctx, x.root, target, &rowids)
	return rowids, err
}

// findPage descends the index tree applying the half-open separator range
// rule: on an interior page, a cell with separator key K covers the range
// (previous separator, K]. The first cell whose key is >= target is where
// target could live, so its left child is descended. If no cell qualifies,
// target is greater than every separator on this page, so the right-most
// child must be descended — a case the reference implementation this was
// ported from omitted, addressed here as the corrected behavior.
func (x *Index) findPage(ctx context.Context, pageNum uint32, target record.Value, out *[]uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pageData, err := x.pager.ReadPage(pageNum)
	if err != nil {
		return err
	}
	header, err := parsePageHeader(pageData, pageNum)
	if err != nil {
		return err
	}

	switch header.Type {
	case TypeLeafIndex:
		for i := 0; i < int(header.CellCount); i++ {
			off, err := header.cellOffset(pageData, i)
			if err != nil {
				return err
			}
			key, rowid, err := parseIndexCellPayload(pageData, off, false)
			if err != nil {
				return err
			}
			if compareValues(key, target) == 0 {
				*out = append(*out, rowid)
			}
		}
		return nil

	case TypeInteriorIndex:
		for i := 0; i < int(header.CellCount); i++ {
			off, err := header.cellOffset(pageData, i)
			if err != nil {
				return err
			}
			child, err := parseIndexInteriorChild(pageData, off)
			if err != nil {
				return err
			}
			key, rowid, err := parseIndexCellPayload(pageData, off, true)
			if err != nil {
				return err
			}

			cmp := compareValues(key, target)
			if cmp == 0 {
				// This separator itself matches; it belongs to the result,
				// and target may also appear in the left subtree (other
				// equal keys sort before it) or the immediate right
				// neighbor, so visit the left child too.
				*out = append(*out, rowid)
				if err := x.findPage(ctx, child, target, out); err != nil {
					return err
				}
				continue
			}
			if cmp > 0 {
				return x.findPage(ctx, child, target, out)
			}
		}
		return x.findPage(ctx, header.RightmostChild, target, out)

	default:
		return fmt.Errorf("%w: index walker hit page type 0x%02x", ErrUnsupportedPageType, header.Type)
	}
}

// parseIndexInteriorChild reads the left-child page number that precedes
// the payload on an interior index cell.
func parseIndexInteriorChild(pageData []byte, offset int) (uint32, error) {
	if offset+4 > len(pageData) {
		return 0, fmt.Errorf("%w: interior index cell truncated", ErrUnsupportedPageType)
	}
	return binary.BigEndian.Uint32(pageData[offset : offset+4]), nil
}

// parseIndexCellPayload decodes an index cell's record payload and splits
// it into (key, rowid): the first column is the key compared against, the
// last column is always the rowid (spec §4.6). hasChildPointer skips
// the 4-byte left-child field interior cells carry before the payload.
func parseIndexCellPayload(pageData []byte, offset int, hasChildPointer bool) (record.Value, uint64, error) {
	if hasChildPointer {
		offset += 4
	}

	payloadSize, n, err := varint.Decode(pageData[offset:])
	if err != nil {
		return record.Value{}, 0, fmt.Errorf("decode payload length: %w", err)
	}
	payloadStart := offset + n
	payloadEnd := payloadStart + int(payloadSize)
	if payloadEnd > len(pageData) {
		return record.Value{}, 0, fmt.Errorf("%w: index cell payload extends beyond page", ErrUnsupportedPageType)
	}

	row, err := record.Decode(pageData[payloadStart:payloadEnd], 0, -1)
	if err != nil {
		return record.Value{}, 0, err
	}
	if len(row) < 2 {
		return record.Value{}, 0, fmt.Errorf("%w: index payload has no rowid column", ErrUnsupportedPageType)
	}

	rowidValue := row[len(row)-1]
	if rowidValue.Kind != record.KindInteger {
		return record.Value{}, 0, fmt.Errorf("%w: index rowid column is not an integer", ErrUnsupportedPageType)
	}

	// Multi-column index keys compare on the leading column only; this is
	// sufficient for every index shape this package constructs (spec §4.7
	// extracts single-column indexes).
	key := row[0]
	return key, uint64(rowidValue.Int), nil
}

// compareValues orders two index key values. Integers compare
// numerically, text compares byte-wise; comparing across kinds is not
// meaningful for the indexes this package builds and returns 0.
func compareValues(a, b record.Value) int {
	switch {
	case a.Kind == record.KindInteger && b.Kind == record.KindInteger:
		ai, bi := a.Int, b.Int
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	case a.Kind == record.KindText && b.Kind == record.KindText:
		switch {
		case a.Text < b.Text:
			return -1
		case a.Text > b.Text:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}
