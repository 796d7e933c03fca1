// internal/client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/game"
	"github.com/nuno-online/nuno/internal/models"
)

// ErrUnauthorized is returned for 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError carries a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Body)
}

// TempUserView mirrors the guest view model returned by /users/temp/*.
type TempUserView struct {
	SessionID string      `json:"sessionId"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
}

// API talks to the game service's HTTP endpoints.
type API struct {
	baseURL string
	http    *http.Client
}

// NewAPI returns a client for baseURL, e.g. "http://localhost:8080".
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// HubURL returns the players hub URL for a session.
func (a *API) HubURL(sessionID uuid.UUID) string {
	return a.baseURL + "/hubs/players?sessionId=" + url.QueryEscape(sessionID.String())
}

func (a *API) CreateTempUser(ctx context.Context, username string) (*TempUserView, error) {
	var out TempUserView
	err := a.do(ctx, http.MethodPost, "/users/temp/create", "", map[string]string{"username": username}, &out)
	return &out, err
}

func (a *API) CurrentTempUser(ctx context.Context, token string) (*TempUserView, error) {
	var out TempUserView
	err := a.do(ctx, http.MethodGet, "/users/temp/current", token, nil, &out)
	return &out, err
}

func (a *API) CreateSession(ctx context.Context, token string, startCardCount int) (uuid.UUID, error) {
	var out struct {
		SessionID uuid.UUID `json:"sessionId"`
	}
	body := map[string]int{}
	if startCardCount > 0 {
		body["startCardCount"] = startCardCount
	}
	err := a.do(ctx, http.MethodPost, "/session/create", token, body, &out)
	return out.SessionID, err
}

func (a *API) JoinSession(ctx context.Context, token string, sessionID uuid.UUID) error {
	return a.do(ctx, http.MethodPost, "/session/join", token, map[string]uuid.UUID{"sessionId": sessionID}, nil)
}

func (a *API) Players(ctx context.Context, token string, sessionID uuid.UUID) ([]models.PlayerView, error) {
	var out []models.PlayerView
	err := a.do(ctx, http.MethodGet, "/session/players?sessionId="+sessionID.String(), token, nil, &out)
	return out, err
}

// StartGame reports the server's boolean start outcome.
func (a *API) StartGame(ctx context.Context, token string, sessionID uuid.UUID) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	err := a.do(ctx, http.MethodPost, "/game/start", token, map[string]uuid.UUID{"sessionId": sessionID}, &out)
	return out.Success, err
}

func (a *API) Cards(ctx context.Context, token string, sessionID uuid.UUID) ([]game.CardView, error) {
	var out []game.CardView
	err := a.do(ctx, http.MethodGet, "/game/cards?sessionId="+sessionID.String(), token, nil, &out)
	return out, err
}

func (a *API) Draw(ctx context.Context, token string, sessionID uuid.UUID) (game.CardView, error) {
	var out game.CardView
	err := a.do(ctx, http.MethodPost, "/game/draw", token, map[string]uuid.UUID{"sessionId": sessionID}, &out)
	return out, err
}

func (a *API) Play(ctx context.Context, token string, sessionID uuid.UUID, cardID int) (game.CardView, error) {
	var out game.CardView
	body := map[string]any{"sessionId": sessionID, "cardId": cardID}
	err := a.do(ctx, http.MethodPost, "/game/play", token, body, &out)
	return out, err
}

func (a *API) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
