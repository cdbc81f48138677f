package btree

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/halvorsen-io/litequery/internal/record"
	"github.com/halvorsen-io/litequery/internal/varint"
)

const testPageSize = 512

// fakePager is an in-memory Pager backing hand-built pages, so the walkers
// can be exercised without a real database file or the pager package.
type fakePager struct {
	pages map[uint32][]byte
}

func (f *fakePager) ReadPage(n uint32) ([]byte, error) {
	p, ok := f.pages[n]
	if !ok {
		return nil, fmt.Errorf("fakePager: no page %d", n)
	}
	return p, nil
}

func newPage() []byte { return make([]byte, testPageSize) }

func putCellPointers(page []byte, headerSize int, pointers []int) {
	for i, off := range pointers {
		binary.BigEndian.PutUint16(page[headerSize+i*2:], uint16(off))
	}
}

// textRecordPayload builds a single-column text record payload.
func textRecordPayload(s string) []byte {
	serialType := uint64(13 + 2*len(s))
	header := varint.Encode(serialType)
	headerLen := varint.Encode(uint64(len(header) + 1))
	payload := append(headerLen, header...)
	payload = append(payload, []byte(s)...)
	return payload
}

// writeLeafTablePage builds a table-leaf page (type 0x0d) with one text
// column per row, keyed by the given rowids (already in ascending order).
func writeLeafTablePage(rowids []int64, texts []string) []byte {
	page := newPage()
	page[0] = TypeLeafTable
	binary.BigEndian.PutUint16(page[3:5], uint16(len(rowids)))

	cellEnd := testPageSize
	pointers := make([]int, len(rowids))
	for i := range rowids {
		payload := textRecordPayload(texts[i])
		cell := append(varint.Encode(uint64(len(payload))), varint.Encode(uint64(rowids[i]))...)
		cell = append(cell, payload...)
		cellEnd -= len(cell)
		copy(page[cellEnd:], cell)
		pointers[i] = cellEnd
	}
	putCellPointers(page, 8, pointers)
	return page
}

// writeInteriorTablePage builds a table-interior page (type 0x05) with
// cells [(childPage, separatorRowid)] plus a right-most child.
func writeInteriorTablePage(children []uint32, separators []int64, rightmost uint32) []byte {
	page := newPage()
	page[0] = TypeInteriorTable
	binary.BigEndian.PutUint16(page[3:5], uint16(len(children)))
	binary.BigEndian.PutUint32(page[8:12], rightmost)

	cellEnd := testPageSize
	pointers := make([]int, len(children))
	for i := range children {
		cell := make([]byte, 4)
		binary.BigEndian.PutUint32(cell, children[i])
		cell = append(cell, varint.Encode(uint64(separators[i]))...)
		cellEnd -= len(cell)
		copy(page[cellEnd:], cell)
		pointers[i] = cellEnd
	}
	putCellPointers(page, 12, pointers)
	return page
}

func buildTableFixture() *fakePager {
	leaf1 := writeLeafTablePage([]int64{1, 2, 3}, []string{"apple", "banana", "cherry"})
	leaf2 := writeLeafTablePage([]int64{4, 5}, []string{"date", "elderberry"})
	root := writeInteriorTablePage([]uint32{2}, []int64{3}, 3)

	// The root lives on page 4, not page 1: page 1's B-tree header sits
	// after the 100-byte file header, which these fixtures don't carry.
	return &fakePager{pages: map[uint32][]byte{
		4: root,
		2: leaf1,
		3: leaf2,
	}}
}

func TestTableScanOrdersAcrossInteriorPages(t *testing.T) {
	table := NewTable(buildTableFixture(), 4, -1)

	var rowids []uint64
	var texts []string
	err := table.Scan(context.Background(), func(rowid uint64, row record.Row) error {
		rowids = append(rowids, rowid)
		texts = append(texts, row[0].Text)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	wantRowids := []uint64{1, 2, 3, 4, 5}
	wantTexts := []string{"apple", "banana", "cherry", "date", "elderberry"}
	if len(rowids) != len(wantRowids) {
		t.Fatalf("got %d rows, want %d", len(rowids), len(wantRowids))
	}
	for i := range wantRowids {
		if rowids[i] != wantRowids[i] || texts[i] != wantTexts[i] {
			t.Errorf("row %d = (%d, %q), want (%d, %q)", i, rowids[i], texts[i], wantRowids[i], wantTexts[i])
		}
	}
}

func TestTableSeekFindsRowAcrossInteriorPages(t *testing.T) {
	table := NewTable(buildTableFixture(), 4, -1)

	row, found, err := table.Seek(context.Background(), 4)
	if err != nil {
		t.Fatalf("Seek(4) error = %v", err)
	}
	if !found {
		t.Fatal("Seek(4) found = false, want true")
	}
	if row[0].Text != "date" {
		t.Errorf("Seek(4) = %q, want %q", row[0].Text, "date")
	}
}

func TestTableSeekMissingRowid(t *testing.T) {
	table := NewTable(buildTableFixture(), 4, -1)

	_, found, err := table.Seek(context.Background(), 99)
	if err != nil {
		t.Fatalf("Seek(99) error = %v", err)
	}
	if found {
		t.Error("Seek(99) found = true, want false")
	}
}

// writeLeafIndexPage builds an index-leaf page (type 0x0a). Each entry's
// payload record is [key, rowid].
func writeLeafIndexPage(keys []string, rowids []int64) []byte {
	page := newPage()
	page[0] = TypeLeafIndex
	binary.BigEndian.PutUint16(page[3:5], uint16(len(keys)))

	cellEnd := testPageSize
	pointers := make([]int, len(keys))
	for i := range keys {
		keySerial := uint64(13 + 2*len(keys[i]))
		header := append(varint.Encode(keySerial), varint.Encode(1)...) // rowid: serial type 1 (1-byte int)
		headerLen := varint.Encode(uint64(len(header) + 1))
		payload := append(headerLen, header...)
		payload = append(payload, []byte(keys[i])...)
		payload = append(payload, byte(rowids[i]))

		cell := append(varint.Encode(uint64(len(payload))), payload...)
		cellEnd -= len(cell)
		copy(page[cellEnd:], cell)
		pointers[i] = cellEnd
	}
	putCellPointers(page, 8, pointers)
	return page
}

func buildIndexFixture() *fakePager {
	leaf := writeLeafIndexPage([]string{"apple", "banana", "cherry", "date"}, []int64{1, 2, 3, 4})
	return &fakePager{pages: map[uint32][]byte{2: leaf}}
}

func TestIndexFindMatch(t *testing.T) {
	idx := NewIndex(buildIndexFixture(), 2)

	rowids, err := idx.Find(context.Background(), record.TextValue("cherry"))
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(rowids) != 1 || rowids[0] != 3 {
		t.Errorf("Find(cherry) = %v, want [3]", rowids)
	}
}

func TestIndexFindNoMatch(t *testing.T) {
	idx := NewIndex(buildIndexFixture(), 2)

	rowids, err := idx.Find(context.Background(), record.TextValue("fig"))
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(rowids) != 0 {
		t.Errorf("Find(fig) = %v, want empty", rowids)
	}
}

func TestIndexFindAcrossInteriorRightmostChild(t *testing.T) {
	// Root has a single separator "banana" pointing left to a leaf holding
	// keys <= "banana", with everything greater living under the
	// right-most child — the case the corrected descent rule must handle.
	leftLeaf := writeLeafIndexPage([]string{"apple"}, []int64{1})
	rightLeaf := writeLeafIndexPage([]string{"cherry", "date"}, []int64{3, 4})

	root := newPage()
	root[0] = TypeInteriorIndex
	binary.BigEndian.PutUint16(root[3:5], 1)
	binary.BigEndian.PutUint32(root[8:12], 3) // right-most child: page 3

	keySerial := uint64(13 + 2*len("banana"))
	header := append(varint.Encode(keySerial), varint.Encode(1)...)
	headerLen := varint.Encode(uint64(len(header) + 1))
	payload := append(headerLen, header...)
	payload = append(payload, []byte("banana")...)
	payload = append(payload, byte(2))

	cell := make([]byte, 4)
	binary.BigEndian.PutUint32(cell, 2) // left child: page 2
	cell = append(cell, varint.Encode(uint64(len(payload)))...)
	cell = append(cell, payload...)

	cellEnd := testPageSize - len(cell)
	copy(root[cellEnd:], cell)
	putCellPointers(root, 12, []int{cellEnd})

	pager := &fakePager{pages: map[uint32][]byte{
		4: root,
		2: leftLeaf,
		3: rightLeaf,
	}}
	idx := NewIndex(pager, 4)

	rowids, err := idx.Find(context.Background(), record.TextValue("date"))
	if err != nil {
		t.Fatalf("Find(date) error = %v", err)
	}
	if len(rowids) != 1 || rowids[0] != 4 {
		t.Errorf("Find(date) = %v, want [4]", rowids)
	}

	rowids, err = idx.Find(context.Background(), record.TextValue("banana"))
	if err != nil {
		t.Fatalf("Find(banana) error = %v", err)
	}
	if len(rowids) != 1 || rowids[0] != 2 {
		t.Errorf("Find(banana) = %v, want [2]", rowids)
	}
}
