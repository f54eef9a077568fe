package service

import (
	"errors"
	"fmt"
)

// Kind classifies service failures so callers can branch without parsing messages.
type Kind string

const (
	// KindValidation: bad input, rejected before any store I/O.
	KindValidation Kind = "validation"
	// KindStorageWrite: the blob store rejected or failed the write; no record exists.
	KindStorageWrite Kind = "storage_write"
	// KindMetadataWrite: the blob was written but the record was not. See Error.OrphanBlobKey.
	KindMetadataWrite Kind = "metadata_write"
	// KindMetadataRead: the metadata store failed a lookup or listing.
	KindMetadataRead Kind = "metadata_read"
	// KindNotFound: no record exists for the id.
	KindNotFound Kind = "not_found"
	// KindBlobMissing: the record exists but its blob does not. Needs an operator.
	KindBlobMissing Kind = "blob_missing"
	// KindSigning: the blob store could not issue a URL.
	KindSigning Kind = "signing"
)

// Error is the only error type returned by DocumentService methods.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error

	// OrphanBlobKey is set when a failed commit could not remove its blob,
	// either because the delete failed or because the record lookup did.
	// The blob must be reconciled by an operator.
	OrphanBlobKey   string
	CompensationErr error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.OrphanBlobKey != "" {
		msg += fmt.Sprintf("; blob %q left for reconciliation: %v", e.OrphanBlobKey, e.CompensationErr)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Orphaned reports whether this failure left a blob with no record.
func (e *Error) Orphaned() bool { return e.OrphanBlobKey != "" }

// KindOf returns the Kind of err, or "" when err is nil or not a service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err is a service error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

func validationError(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}
