package domain

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorize access")
	ErrForbidden    = errors.New("forbidden access")
	ErrConflict     = errors.New("already exists")
	ErrInvalid      = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)
