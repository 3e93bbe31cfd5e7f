package entitystore

import "errors"

var (
	// ErrUnknownDriver is returned by Open for a driver other than sqlite or postgres.
	ErrUnknownDriver = errors.New("unknown entity store driver")
	// ErrEmptyID is returned when writing an entity without an id.
	ErrEmptyID = errors.New("entity id is empty")
	// ErrUnknownFormat is returned by Import for a format other than json or csv.
	ErrUnknownFormat = errors.New("unknown import format")
	// ErrBadRecord is returned by Import for a record it cannot parse.
	ErrBadRecord = errors.New("bad import record")
)
