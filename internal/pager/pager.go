// Package pager maps page numbers to fixed-size byte slices via positioned
// reads against the database file (spec §4.2), plus the 100-byte file
// header (spec §3).
package pager

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Option configures a Pager at construction time (teacher's functional-options
// pattern, generalized from per-database config to the pager specifically,
// since the pager is the only component with a tunable resource: its
// optional page cache).
type Option func(*Pager)

// WithPageCache enables a bounded LRU cache of size n pages. The pager has
// no cache by default (spec §4.2: "every call re-reads"); this is a
// permissible optimization, never required for correctness.
func WithPageCache(n int) Option {
	return func(p *Pager) {
		if n > 0 {
			p.cache = newLRU(n)
		}
	}
}

// WithLogger overrides the pager's diagnostic logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pager) { p.logger = logger }
}

// Pager owns the sole file handle for one query (spec §5: only one logical
// query in flight at a time, no shared mutable state across queries).
type Pager struct {
	file      *os.File
	Header    Header
	cache     *lru
	readCount int64
	logger    *slog.Logger
}

// Open opens path, parses the file header, and returns a ready Pager.
func Open(path string, opts ...Option) (*Pager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	headerBuf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBuf, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: read file header: %v", ErrIO, err)
	}
	header, err := ParseHeader(headerBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	p := &Pager{file: f, Header: header, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger.Debug("opened database", "path", path, "page_size", header.PageSize)
	return p, nil
}

// ReadPage returns the bytes of page n (1-based). Page 1 includes the
// 100-byte file header as its first 100 bytes, per spec §3.
func (p *Pager) ReadPage(n uint32) ([]byte, error) {
	if n == 0 {
		return nil, fmt.Errorf("%w: page numbers are 1-based, got 0", ErrMalformedDatabase)
	}

	if p.cache != nil {
		if data, ok := p.cache.get(n); ok {
			return data, nil
		}
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}
	atomic.AddInt64(&p.readCount, 1)
	size := p.Header.PageSize
	buf := make([]byte, size)
	offset := int64(n-1) * int64(size)

	got, err := p.file.ReadAt(buf, offset)
	if err != nil && got != size && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: page %d at offset %d: %v", ErrIO, n, offset, err)
	}
	if got != size {
		return nil, fmt.Errorf("%w: page %d: wanted %d bytes, got %d", ErrShortRead, n, size, got)
	}

	if p.cache != nil {
		p.cache.put(n, buf)
	}
	p.logger.Debug("read page", "page", n, "offset", offset, "reads_so_far", p.readCount)
	return buf, nil
}

// ReadCount returns the number of positioned reads issued so far (not
// counting cache hits). It lets a caller observe how many pages a lookup
// read, e.g. that an index-based lookup (spec §8 scenario 6) reads
// O(height) pages rather than scanning.
func (p *Pager) ReadCount() int64 {
	return atomic.LoadInt64(&p.readCount)
}

// Close releases the file handle. Safe to call more than once.
func (p *Pager) Close() error {
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}
