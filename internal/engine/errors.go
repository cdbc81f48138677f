package engine

import (
	"fmt"

	"github.com/halvorsen-io/litequery/internal/btree"
	"github.com/halvorsen-io/litequery/internal/pager"
	"github.com/halvorsen-io/litequery/internal/record"
	"github.com/halvorsen-io/litequery/internal/schema"
	"github.com/halvorsen-io/litequery/internal/varint"
)

// Sentinel error kinds (spec §7). Several are re-exported from the package
// that actually detects them so every layer wraps the same sentinel; the
// three kinds with no natural lower-layer home (BadArgs, UnknownColumn,
// UnknownCommand) are defined here.
var (
	ErrBadArgs            = fmt.Errorf("bad arguments")
	ErrIO                 = pager.ErrIO
	ErrShortRead          = pager.ErrShortRead
	ErrMalformedVarint    = varint.ErrMalformed
	ErrUnknownSerialType  = record.ErrUnknownSerialType
	ErrUnsupportedPageType = btree.ErrUnsupportedPageType
	ErrUnknownTable       = schema.ErrUnknownTable
	ErrUnknownColumn      = fmt.Errorf("unknown column")
	ErrUnknownCommand     = fmt.Errorf("unknown command")
)

// DatabaseError wraps one of the sentinels above with the operation that
// raised it and free-form context for diagnostics (teacher's errors.go
// DatabaseError pattern, kept verbatim in shape).
type DatabaseError struct {
	Operation string
	Err       error
	Context   map[string]any
}

func (e *DatabaseError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s: %v (%+v)", e.Operation, e.Err, e.Context)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// NewDatabaseError constructs a DatabaseError.
func NewDatabaseError(operation string, err error, context map[string]any) *DatabaseError {
	return &DatabaseError{Operation: operation, Err: err, Context: context}
}
