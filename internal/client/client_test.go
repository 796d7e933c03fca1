// internal/client/client_test.go
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers the temp user endpoints for a single known session key.
func fakeServer(t *testing.T, validKey string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/temp/create", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TempUserView{SessionID: validKey, Username: req.Username, Role: "guest"})
	})
	mux.HandleFunc("GET /users/temp/current", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+validKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(TempUserView{SessionID: validKey, Username: "guest", Role: "guest"})
	})
	mux.HandleFunc("POST /game/start", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": false})
	})
	mux.HandleFunc("GET /game/cards", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session not found", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckKeepsValidSession(t *testing.T) {
	srv := fakeServer(t, "key-1")
	u := NewCurrentUser(NewAPI(srv.URL, nil), "", "key-1")

	require.NoError(t, u.Check(context.Background()))
	require.NoError(t, u.AwaitInitialCheckCompleted(context.Background()))
	assert.Equal(t, "key-1", u.SessionID())
	require.NotNil(t, u.User())
	assert.Equal(t, "guest", u.User().Username)
}

func TestCheckClearsRejectedSession(t *testing.T) {
	srv := fakeServer(t, "key-1")
	u := NewCurrentUser(NewAPI(srv.URL, nil), "", "stale")

	err := u.Check(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, u.SessionID())
	require.NoError(t, u.AwaitInitialCheckCompleted(context.Background()))
}

func TestAwaitBlocksUntilCheck(t *testing.T) {
	u := NewCurrentUser(NewAPI("http://unused", nil), "", "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, u.AwaitInitialCheckCompleted(ctx), context.DeadlineExceeded)

	// nothing stored, nothing to ask the server
	require.NoError(t, u.Check(context.Background()))
	require.NoError(t, u.AwaitInitialCheckCompleted(context.Background()))
}

func TestLoginGuest(t *testing.T) {
	srv := fakeServer(t, "key-2")
	u := NewCurrentUser(NewAPI(srv.URL, nil), "", "")

	view, err := u.LoginGuest(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Username)
	assert.Equal(t, "key-2", u.SessionID())
	assert.Equal(t, "key-2", u.AccessToken())

	u.SetToken("jwt")
	assert.Equal(t, "jwt", u.AccessToken(), "bearer token wins")
	require.NoError(t, u.AwaitInitialCheckCompleted(context.Background()))
}

func TestAPIErrors(t *testing.T) {
	srv := fakeServer(t, "key-3")
	api := NewAPI(srv.URL, nil)

	ok, err := api.StartGame(context.Background(), "key-3", uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = api.Cards(context.Background(), "key-3", uuid.New())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)

	assert.Equal(t, srv.URL+"/hubs/players?sessionId="+uuid.Nil.String(), api.HubURL(uuid.Nil))
}
