// internal/auth/resolver.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/models"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Resolver turns a request token into an actor. A valid JWT yields a registered
// user; anything else is tried as a guest session key.
type Resolver struct {
	Issuer    *Issuer
	TempUsers TempUserStore
}

func NewResolver(issuer *Issuer, tempUsers TempUserStore) *Resolver {
	return &Resolver{Issuer: issuer, TempUsers: tempUsers}
}

// Resolve returns ErrUnauthenticated when token identifies no one.
func (r *Resolver) Resolve(ctx context.Context, token string) (models.Actor, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	if r.Issuer != nil {
		if sub, err := r.Issuer.AuthenticateJWT(token); err == nil {
			id, err := uuid.Parse(sub)
			if err != nil {
				return nil, ErrUnauthenticated
			}
			return &models.User{ID: id}, nil
		}
	}

	if r.TempUsers == nil {
		return nil, ErrUnauthenticated
	}
	u, err := r.TempUsers.GetTempUserBySessionKey(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTempUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return u, nil
}

// TokenFromRequest extracts the caller's token: an Authorization bearer header,
// then the access_token query parameter, then the auth_token cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if t := r.URL.Query().Get("access_token"); t != "" {
		return t
	}
	if c, err := r.Cookie("auth_token"); err == nil {
		return c.Value
	}
	return ""
}
