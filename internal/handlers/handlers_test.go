// internal/handlers/handlers_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/auth"
	"github.com/nuno-online/nuno/internal/game"
	"github.com/nuno-online/nuno/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router http.Handler
	issuer *auth.Issuer
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	issuer, err := auth.NewIssuer(0)
	require.NoError(t, err)
	guests := auth.NewMemoryTempUserStore()
	store := game.NewSessionStore()

	gs := &GameServer{
		Sessions:  store,
		Logic:     game.NewLogic(store, game.NewSeededEngine(7), nil, nil),
		Resolver:  auth.NewResolver(issuer, guests),
		TempUsers: guests,
		Rules:     models.DefaultRuleset(),
	}
	return &apiFixture{router: NewRouter(gs, http.NotFoundHandler(), logger), issuer: issuer}
}

func (f *apiFixture) call(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) guest(t *testing.T, name string) string {
	t.Helper()
	w := f.call(t, http.MethodPost, "/users/temp/create", "", map[string]string{"username": name})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view tempUserView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, name, view.Username)
	assert.Equal(t, models.RoleGuest, view.Role)
	return view.SessionID
}

func TestTempUserEndpoints(t *testing.T) {
	f := setupAPI(t)
	key := f.guest(t, "alice")

	w := f.call(t, http.MethodGet, "/users/temp/current", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	w = f.call(t, http.MethodGet, "/users/temp/current", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// a registered user is not a temp user
	token, err := f.issuer.CreateJWT(uuid.NewString())
	require.NoError(t, err)
	w = f.call(t, http.MethodGet, "/users/temp/current", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.call(t, http.MethodPost, "/users/temp/create", "", map[string]string{"username": "a@b"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGameFlow(t *testing.T) {
	f := setupAPI(t)
	host := f.guest(t, "host")
	other := f.guest(t, "other")

	w := f.call(t, http.MethodPost, "/session/create", host, map[string]int{"startCardCount": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created struct {
		SessionID uuid.UUID `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	sid := created.SessionID.String()

	// one player cannot start
	w = f.call(t, http.MethodPost, "/game/start", host, map[string]string{"sessionId": sid})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false}`, w.Body.String())

	w = f.call(t, http.MethodPost, "/session/join", other, map[string]string{"sessionId": sid})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = f.call(t, http.MethodGet, "/session/players?sessionId="+sid, host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var players []models.PlayerView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &players))
	require.Len(t, players, 2)
	assert.Equal(t, "host", players[0].Username)

	w = f.call(t, http.MethodPost, "/game/start", host, map[string]string{"sessionId": sid})
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = f.call(t, http.MethodPost, "/session/join", f.guest(t, "late"), map[string]string{"sessionId": sid})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.call(t, http.MethodGet, "/game/current-card?sessionId="+sid, host, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.call(t, http.MethodGet, "/game/cards?sessionId="+sid, host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hand []game.CardView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hand))
	require.Len(t, hand, 5)

	// not other's turn yet
	w = f.call(t, http.MethodPost, "/game/draw", other, map[string]string{"sessionId": sid})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.call(t, http.MethodPost, "/game/play", host, map[string]any{"sessionId": sid, "cardId": hand[0].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.call(t, http.MethodGet, "/game/current-card?sessionId="+sid, host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var top game.CardView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &top))
	assert.Equal(t, hand[0].ID, top.ID)

	w = f.call(t, http.MethodPost, "/game/draw", other, map[string]string{"sessionId": sid})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGameErrors(t *testing.T) {
	f := setupAPI(t)
	key := f.guest(t, "solo")

	w := f.call(t, http.MethodGet, "/game/cards?sessionId=bad", key, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.call(t, http.MethodGet, "/game/cards?sessionId="+uuid.NewString(), key, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.call(t, http.MethodPost, "/game/start", key, map[string]string{"sessionId": uuid.NewString()})
	assert.JSONEq(t, `{"success":false}`, w.Body.String())

	w = f.call(t, http.MethodPost, "/game/draw", "", map[string]string{"sessionId": uuid.NewString()})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateSessionRejectsStartCardCount(t *testing.T) {
	f := setupAPI(t)
	key := f.guest(t, "host")

	for _, n := range []int{-1, game.DeckSize/2 + 1, 1 << 45} {
		w := f.call(t, http.MethodPost, "/session/create", key, map[string]int{"startCardCount": n})
		assert.Equal(t, http.StatusBadRequest, w.Code, "startCardCount %d", n)
	}

	w := f.call(t, http.MethodPost, "/session/create", key, map[string]int{"startCardCount": game.DeckSize / 2})
	assert.Equal(t, http.StatusOK, w.Code)
}
