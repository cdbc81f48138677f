package pager

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMinimalDB(t *testing.T, pageSize int, pageCount int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	buf := make([]byte, pageSize*pageCount)
	copy(buf, "SQLite format 3\x00")
	buf[16] = byte(pageSize >> 8)
	buf[17] = byte(pageSize)
	for p := 1; p < pageCount; p++ {
		buf[p*pageSize] = byte(0xaa + p) // page marker so we can tell pages apart; page 1 keeps the magic
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write test db: %v", err)
	}
	return path
}

func TestOpenParsesHeader(t *testing.T) {
	path := writeMinimalDB(t, 4096, 2)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer p.Close()

	if p.Header.PageSize != 4096 {
		t.Errorf("Header.PageSize = %d, want 4096", p.Header.PageSize)
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.db")
	if err := os.WriteFile(path, make([]byte, 200), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open() on non-SQLite file should fail")
	}
}

func TestReadPage(t *testing.T) {
	path := writeMinimalDB(t, 512, 3)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer p.Close()

	page2, err := p.ReadPage(2)
	if err != nil {
		t.Fatalf("ReadPage(2) error = %v", err)
	}
	if len(page2) != 512 {
		t.Fatalf("ReadPage(2) len = %d, want 512", len(page2))
	}
	if page2[0] != 0xaa+1 {
		t.Errorf("ReadPage(2)[0] = 0x%x, want 0x%x", page2[0], 0xaa+1)
	}
}

func TestReadPageCountsReads(t *testing.T) {
	path := writeMinimalDB(t, 512, 3)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer p.Close()

	if _, err := p.ReadPage(1); err != nil {
		t.Fatalf("ReadPage(1): %v", err)
	}
	if _, err := p.ReadPage(2); err != nil {
		t.Fatalf("ReadPage(2): %v", err)
	}
	if got := p.ReadCount(); got != 2 {
		t.Errorf("ReadCount() = %d, want 2", got)
	}
}

func TestReadPageWithCacheAvoidsRereads(t *testing.T) {
	path := writeMinimalDB(t, 512, 2)
	p, err := Open(path, WithPageCache(8))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer p.Close()

	for i := 0; i < 5; i++ {
		if _, err := p.ReadPage(1); err != nil {
			t.Fatalf("ReadPage(1): %v", err)
		}
	}
	if got := p.ReadCount(); got != 1 {
		t.Errorf("ReadCount() = %d, want 1 (cached hits shouldn't count)", got)
	}
}

func TestReadPageOutOfRange(t *testing.T) {
	path := writeMinimalDB(t, 512, 1)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer p.Close()

	if _, err := p.ReadPage(99); err == nil {
		t.Error("ReadPage(99) on a 1-page file should fail")
	}
}
