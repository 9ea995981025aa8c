package provenance

import "errors"

// Fatal: the run cannot proceed.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrInventoryList  = errors.New("inventory listing failed")
)

// Per-resource: recorded in the run summary, the run continues.
var (
	ErrAuditQuery    = errors.New("audit query failed")
	ErrWriteConflict = errors.New("tag write conflict")
	ErrWriteFailed   = errors.New("tag write failed")
)
