package pager

import "errors"

// Sentinel error kinds (spec §7). Wrap these with fmt.Errorf("...: %w", ...)
// for context; callers distinguish kinds with errors.Is.
var (
	ErrIO                = errors.New("io error")
	ErrShortRead         = errors.New("short read")
	ErrMalformedDatabase = errors.New("malformed database")
)
