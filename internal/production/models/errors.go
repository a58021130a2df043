package models

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidArgument    = errors.New("invalid arguments")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrUnavailable        = errors.New("collaborator unavailable")
)
