package auth

import (
	"context"
	"errors"
)

// Identity is what a verified bearer token proves about the caller.
type Identity struct {
	UID   string
	Email string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrNoEmail      = errors.New("auth: token carries no email")
	ErrUnverified   = errors.New("auth: email not verified")
)
