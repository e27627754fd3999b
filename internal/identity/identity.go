package identity

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNoIdentity is returned when no credential carries a cart identifier
// and the resolver has no minting policy to fall back on.
var ErrNoIdentity = errors.New("no cart identity available")

// MintFunc produces a fresh cart identifier.
type MintFunc func() string

// Resolver derives a cart identifier from inbound credentials. A
// cookie-carried identifier is authoritative; otherwise a verified
// principal binds the cart to the user; otherwise Mint is consulted.
// Resolution is a pure derivation with no side effects.
type Resolver struct {
	Mint MintFunc
}

// Default returns a resolver that mints random UUIDs for first-time
// visitors.
func Default() Resolver {
	return Resolver{Mint: uuid.NewString}
}

func (r Resolver) Resolve(cookieID, principal string) (string, error) {
	if cookieID != "" {
		return cookieID, nil
	}
	if principal != "" {
		return principal, nil
	}
	if r.Mint == nil {
		return "", ErrNoIdentity
	}
	return r.Mint(), nil
}
