package core

import "errors"

// Common errors.
var (
	ErrReadOnly          = errors.New("store is in read-only mode")
	ErrMissingCredential = errors.New("missing credential")
	ErrMissingIdentity   = errors.New("missing dataset identity")
	ErrInvalidDocument   = errors.New("invalid document")
)
