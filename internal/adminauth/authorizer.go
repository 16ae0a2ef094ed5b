// Package adminauth guards administrator-only pricing endpoints.
package adminauth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/jewelcraft/metalpricing/internal/platform/httpx"
	"github.com/jewelcraft/metalpricing/internal/shared"
)

// DefaultActor is recorded when an authorised request does not name its operator.
const DefaultActor = "admin"

// ErrMissingToken is returned when no bearer token accompanies the request.
var ErrMissingToken = fmt.Errorf("%w: bearer token required", httpx.ErrUnauthorized)

// ErrInvalidToken is returned when the token does not match the configured hash.
var ErrInvalidToken = fmt.Errorf("%w: invalid admin token", httpx.ErrForbidden)

// Authorizer resolves a bearer token into an administrator.
type Authorizer interface {
	Authorize(ctx context.Context, token, actorHint string) (shared.Actor, error)
}

// TokenAuthorizer compares bearer tokens against a bcrypt hash.
type TokenAuthorizer struct {
	hash []byte

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

// NewTokenAuthorizer validates the bcrypt hash and returns the authorizer.
func NewTokenAuthorizer(hash string) (*TokenAuthorizer, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, errors.New("adminauth: token hash required")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("adminauth: parse token hash: %w", err)
	}
	return &TokenAuthorizer{
		hash:     []byte(hash),
		verified: make(map[[sha256.Size]byte]struct{}),
	}, nil
}

// Authorize checks token and returns the actor named by actorHint.
func (a *TokenAuthorizer) Authorize(ctx context.Context, token, actorHint string) (shared.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return shared.Actor{}, ErrMissingToken
	}
	digest := sha256.Sum256([]byte(token))
	if !a.known(digest) {
		if err := bcrypt.CompareHashAndPassword(a.hash, []byte(token)); err != nil {
			return shared.Actor{}, ErrInvalidToken
		}
		a.mu.Lock()
		a.verified[digest] = struct{}{}
		a.mu.Unlock()
	}
	actor := strings.TrimSpace(actorHint)
	if actor == "" {
		actor = DefaultActor
	}
	return shared.Actor{ID: actor, IsAdmin: true}, nil
}

func (a *TokenAuthorizer) known(digest [sha256.Size]byte) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.verified[digest]
	return ok
}
