// Package identity is the boundary to the actor-identity collaborator.
// The core only needs a stable actor id and display name per credential,
// plus the shared system credential that marks automated placements.
package identity

import (
	"context"
	"crypto/subtle"
	"errors"
)

// ErrUnauthenticated is returned when no credential resolves to an actor.
var ErrUnauthenticated = errors.New("unauthenticated")

// Actor is a resolved identity. System actors bypass quota enforcement and
// are recorded without an actor id on their placements.
type Actor struct {
	ID          string
	DisplayName string
	System      bool
}

// Provider resolves a bearer token to an actor.
type Provider interface {
	Resolve(ctx context.Context, token string) (*Actor, error)
}

// Credential carries whatever the transport extracted from the request.
type Credential struct {
	Token     string // per-actor session/API token
	SystemKey string // shared bot credential, if presented
}

// Authenticator checks the system key first, then delegates to the provider.
type Authenticator struct {
	provider  Provider
	systemKey string
}

// NewAuthenticator creates an Authenticator. An empty systemKey disables the
// system bypass entirely.
func NewAuthenticator(provider Provider, systemKey string) *Authenticator {
	return &Authenticator{provider: provider, systemKey: systemKey}
}

func (a *Authenticator) Authenticate(ctx context.Context, cred Credential) (*Actor, error) {
	if a.systemKey != "" && cred.SystemKey != "" {
		if subtle.ConstantTimeCompare([]byte(cred.SystemKey), []byte(a.systemKey)) == 1 {
			return &Actor{ID: "system", DisplayName: "system", System: true}, nil
		}
	}
	if cred.Token == "" {
		return nil, ErrUnauthenticated
	}
	return a.provider.Resolve(ctx, cred.Token)
}
