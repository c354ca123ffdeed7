// Package auth verifies customer session tokens issued by the auth service.
package auth

import (
	"errors"
	"time"
)

var ErrInvalidToken = errors.New("invalid auth token")

// Strategy resolves a bearer token to a customer id. IssueToken exists for
// tooling and tests; production tokens come from the auth service.
type Strategy interface {
	IssueToken(userID int64) (string, error)
	ParseToken(token string) (int64, error)
	Name() string
}

type Options struct {
	TTL time.Duration
	Now func() time.Time
}
