package core

import "errors"

// Common errors.
var (
	ErrReadOnly       = errors.New("repository is in read-only mode")
	ErrNoSuchRecord   = errors.New("no such record")
	ErrMalformedStore = errors.New("malformed store: missing status column")
	ErrAlreadyDone    = errors.New("record is already done")
	ErrInvalidExpense = errors.New("expense amount must not be negative")
)
