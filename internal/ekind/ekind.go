// Package ekind classifies the core's sentinel errors into the kinds
// named by the error taxonomy (spec.md §7), so callers (the CLI
// collaborator, in particular) can map any error returned by the
// engine to an exit code and a user-facing category without string
// matching on its message.
package ekind

import "errors"

// Kind names a category of error from the taxonomy. It is not a Go
// error type itself; sentinel errors are classified by Of below.
type Kind int

// Error kinds, grouped as in spec.md §7.
const (
	Unknown Kind = iota

	// Invariant violation.
	ClipOverlap
	ClipNotFound
	TrackNotFound
	InvalidTimeRange
	InvalidDuration
	CircularDependency
	AssetInUse
	AssetNotFound
	DuplicateAsset

	// Operational.
	InvalidOperation
	UndoNotSupported
	NothingToUndo
	NothingToRedo

	// Transactional.
	TransactionAlreadyActive
	NoActiveTransaction

	// Persistence.
	IncompatibleFormat
	UnsupportedVersion
	MalformedDocument

	// Planning/Rendering.
	MissingAsset
	EncoderFailure
	Cancelled
)

var names = map[Kind]string{
	Unknown:                  "unknown",
	ClipOverlap:              "clip overlap",
	ClipNotFound:             "clip not found",
	TrackNotFound:            "track not found",
	InvalidTimeRange:         "invalid time range",
	InvalidDuration:          "invalid duration",
	CircularDependency:       "circular dependency",
	AssetInUse:               "asset in use",
	AssetNotFound:            "asset not found",
	DuplicateAsset:           "duplicate asset",
	InvalidOperation:         "invalid operation",
	UndoNotSupported:         "undo not supported",
	NothingToUndo:            "nothing to undo",
	NothingToRedo:            "nothing to redo",
	TransactionAlreadyActive: "transaction already active",
	NoActiveTransaction:      "no active transaction",
	IncompatibleFormat:       "incompatible format",
	UnsupportedVersion:       "unsupported version",
	MalformedDocument:        "malformed document",
	MissingAsset:             "missing asset",
	EncoderFailure:           "encoder failure",
	Cancelled:                "cancelled",
}

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown"
}

// classified pairs a sentinel error with its taxonomy kind.
type classified struct {
	err  error
	kind Kind
}

func (c classified) Error() string { return c.err.Error() }
func (c classified) Unwrap() error { return c.err }

// New builds a sentinel error tagged with kind. Use with errors.New-style
// package-level vars, e.g.:
//
//	var ErrClipOverlap = ekind.New(ekind.ClipOverlap, "clip overlap")
func New(kind Kind, msg string) error {
	return classified{err: errors.New(msg), kind: kind}
}

// Of returns the taxonomy Kind of err, walking the Unwrap chain. It
// returns Unknown if err (or nothing in its chain) was built with New.
func Of(err error) Kind {
	var c classified
	for err != nil {
		if cl, ok := err.(classified); ok { //nolint:errorlint
			c = cl
			return c.kind
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}
