// Package apperr holds the sentinel errors shared across frontedit packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// Schema inference.
	ErrCircularReference = errors.New("circular reference detected")

	// Field mutation.
	ErrMissingIdentifier = errors.New("field has neither id nor name")
	ErrTypeMismatch      = errors.New("field type mismatch")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrProtected         = errors.New("field is protected")
	ErrFieldNotFound     = errors.New("field not found")
	ErrInvalidPath       = errors.New("invalid field path")

	// History.
	ErrNoHistory = errors.New("no further history")

	// Submission.
	ErrInvalidDocument = errors.New("could not construct document from form")
	ErrValidation      = errors.New("validation failed")
)
