// internal/client/current_user.go
package client

import (
	"context"
	"errors"
	"sync"

	"github.com/nuno-online/nuno/internal/realtime"
	log "github.com/sirupsen/logrus"
)

// CurrentUser holds the client's identity. It satisfies realtime.Credentials:
// the hub connection waits on the initial check and reads the token on every
// connect attempt.
type CurrentUser struct {
	api *API

	mu        sync.RWMutex
	token     string
	sessionID string
	user      *TempUserView

	checkOnce sync.Once
	checked   chan struct{}
}

// NewCurrentUser starts with an optional bearer token and guest session id.
func NewCurrentUser(api *API, token, sessionID string) *CurrentUser {
	return &CurrentUser{
		api:       api,
		token:     token,
		sessionID: sessionID,
		checked:   make(chan struct{}),
	}
}

// Check validates a stored guest session id against the server. A rejected id
// is cleared. Check completes the initial check whatever the outcome; only the
// first call has any effect.
func (u *CurrentUser) Check(ctx context.Context) error {
	var err error
	u.checkOnce.Do(func() {
		defer close(u.checked)
		sid := u.SessionID()
		if sid == "" || u.Token() != "" {
			return
		}
		var view *TempUserView
		view, err = u.api.CurrentTempUser(ctx, sid)
		switch {
		case errors.Is(err, ErrUnauthorized):
			log.Info("stored guest session rejected, clearing it")
			u.mu.Lock()
			u.sessionID = ""
			u.mu.Unlock()
		case err != nil:
			log.WithError(err).Warn("guest session check failed")
		default:
			u.mu.Lock()
			u.user = view
			u.mu.Unlock()
		}
	})
	return err
}

// LoginGuest creates a guest on the server and adopts its session id. It also
// completes the initial check.
func (u *CurrentUser) LoginGuest(ctx context.Context, username string) (*TempUserView, error) {
	view, err := u.api.CreateTempUser(ctx, username)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	u.sessionID = view.SessionID
	u.user = view
	u.mu.Unlock()
	u.checkOnce.Do(func() { close(u.checked) })
	return view, nil
}

// AwaitInitialCheckCompleted blocks until Check or LoginGuest has finished.
func (u *CurrentUser) AwaitInitialCheckCompleted(ctx context.Context) error {
	select {
	case <-u.checked:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetToken replaces the bearer token, e.g. after a refresh.
func (u *CurrentUser) SetToken(token string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.token = token
}

func (u *CurrentUser) Token() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.token
}

func (u *CurrentUser) SessionID() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.sessionID
}

// AccessToken is what API calls authenticate with: the bearer token, else the
// guest session id.
func (u *CurrentUser) AccessToken() string {
	if t := u.Token(); t != "" {
		return t
	}
	return u.SessionID()
}

// User returns the last known guest view, or nil.
func (u *CurrentUser) User() *TempUserView {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.user
}

var _ realtime.Credentials = (*CurrentUser)(nil)
