// internal/game/logic_test.go
package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEvent struct {
	sessionID uuid.UUID
	userID    uuid.UUID // uuid.Nil for session-wide events
	name      string
	payload   any
}

// mockNotifier collects events instead of sending them over the hub.
type mockNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (m *mockNotifier) SendToSession(sessionID uuid.UUID, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, sentEvent{sessionID: sessionID, name: event, payload: payload})
}

func (m *mockNotifier) SendToUser(sessionID, userID uuid.UUID, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, sentEvent{sessionID: sessionID, userID: userID, name: event, payload: payload})
}

func (m *mockNotifier) named(name string) []sentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentEvent
	for _, ev := range m.events {
		if ev.name == name {
			out = append(out, ev)
		}
	}
	return out
}

type mockRecorder struct {
	records chan ActionRecord
}

func (m *mockRecorder) Record(_ context.Context, rec ActionRecord) error {
	m.records <- rec
	return nil
}

func setupLogic(t *testing.T) (*Logic, *SessionStore, *mockNotifier, *mockRecorder) {
	t.Helper()
	store := NewSessionStore()
	n := &mockNotifier{}
	r := &mockRecorder{records: make(chan ActionRecord, 16)}
	return NewLogic(store, NewSeededEngine(1), n, r), store, n, r
}

func TestStartGameScenario(t *testing.T) {
	l, store, n, r := setupLogic(t)

	host := &models.Player{UserID: uuid.New(), Username: "host"}
	sess := store.Create(host, models.Ruleset{StartCardCount: 7})
	for i := 0; i < 3; i++ {
		require.NoError(t, sess.AddPlayer(&models.Player{UserID: uuid.New()}))
	}

	ok := l.StartGame(context.Background(), sess.ID)
	require.True(t, ok)

	assert.True(t, sess.JoinLocked())
	assert.Equal(t, 80, sess.DeckSize())
	for _, p := range sess.Players() {
		assert.Equal(t, 7, p.CardCount)
	}

	turns := n.named(EventMyTurn)
	require.Len(t, turns, 1)
	assert.Equal(t, host.UserID, turns[0].userID)
	assert.Len(t, n.named(EventGameStarted), 1)

	select {
	case rec := <-r.records:
		assert.Equal(t, "game_start", rec.ActionType)
		assert.Equal(t, sess.ID, rec.SessionID)
	case <-time.After(time.Second):
		t.Fatal("expected game_start action to be recorded")
	}
}

func TestStartGameFailures(t *testing.T) {
	l, store, n, _ := setupLogic(t)

	assert.False(t, l.StartGame(context.Background(), uuid.New()), "unknown session")

	sess := store.Create(&models.Player{UserID: uuid.New()}, models.DefaultRuleset())
	assert.False(t, l.StartGame(context.Background(), sess.ID), "single player")
	assert.False(t, sess.JoinLocked())
	assert.Equal(t, 0, sess.DeckSize())

	assert.Empty(t, n.named(EventMyTurn))
}

func TestPlayCardNotifiesNextPlayer(t *testing.T) {
	l, store, n, _ := setupLogic(t)

	a := &models.Player{UserID: uuid.New()}
	b := &models.Player{UserID: uuid.New()}
	sess := store.Create(a, models.DefaultRuleset())
	require.NoError(t, sess.AddPlayer(b))
	require.True(t, l.StartGame(context.Background(), sess.ID))

	hand, err := l.Hand(sess.ID, a.UserID)
	require.NoError(t, err)

	played, err := l.PlayCard(context.Background(), sess.ID, a.UserID, hand[0].ID)
	require.NoError(t, err)
	assert.Equal(t, hand[0].ID, played.ID)

	cards := n.named(EventNewCurrentCard)
	require.Len(t, cards, 1)
	assert.Equal(t, NewCardView(played), cards[0].payload)

	turns := n.named(EventMyTurn)
	require.Len(t, turns, 2)
	assert.Equal(t, b.UserID, turns[1].userID)

	top, ok, err := l.CurrentCard(sess.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, played, top)

	_, err = l.PlayCard(context.Background(), sess.ID, a.UserID, hand[1].ID)
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestDrawCardUnknownSession(t *testing.T) {
	l, _, _, _ := setupLogic(t)
	_, err := l.DrawCard(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = l.Hand(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDrawCardGrowsHand(t *testing.T) {
	l, store, n, _ := setupLogic(t)
	a := &models.Player{UserID: uuid.New()}
	sess := store.Create(a, models.DefaultRuleset())
	require.NoError(t, sess.AddPlayer(&models.Player{UserID: uuid.New()}))
	require.True(t, l.StartGame(context.Background(), sess.ID))

	_, err := l.DrawCard(context.Background(), sess.ID, a.UserID)
	require.NoError(t, err)

	hand, err := l.Hand(sess.ID, a.UserID)
	require.NoError(t, err)
	assert.Len(t, hand, 8)
	assert.NotEmpty(t, n.named(EventPlayersChanged))
}

func TestJoinSession(t *testing.T) {
	l, store, n, _ := setupLogic(t)
	sess := store.Create(&models.Player{UserID: uuid.New()}, models.DefaultRuleset())

	p := &models.Player{UserID: uuid.New(), Username: "late"}
	require.NoError(t, l.JoinSession(context.Background(), sess.ID, p))
	assert.ErrorIs(t, l.JoinSession(context.Background(), sess.ID, p), ErrAlreadyJoined)
	assert.ErrorIs(t, l.JoinSession(context.Background(), uuid.New(), p), ErrSessionNotFound)

	changed := n.named(EventPlayersChanged)
	require.Len(t, changed, 1)
	assert.Len(t, changed[0].payload, 2)

	require.True(t, l.StartGame(context.Background(), sess.ID))
	err := l.JoinSession(context.Background(), sess.ID, &models.Player{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrJoinLocked)
}

func TestActionIndicesArePerSessionAndOrdered(t *testing.T) {
	store := NewSessionStore()
	r := &mockRecorder{records: make(chan ActionRecord, 64)}
	l := NewLogic(store, NewSeededEngine(1), nil, r)

	a := store.Create(&models.Player{UserID: uuid.New()}, models.DefaultRuleset())
	b := store.Create(&models.Player{UserID: uuid.New()}, models.DefaultRuleset())

	var wg sync.WaitGroup
	for _, sess := range []*Session{a, b} {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				assert.NoError(t, l.JoinSession(context.Background(), id, &models.Player{UserID: uuid.New()}))
			}
		}(sess.ID)
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Close(ctx))
	close(r.records)

	got := map[uuid.UUID][]int64{}
	for rec := range r.records {
		got[rec.SessionID] = append(got[rec.SessionID], rec.ActionIndex)
	}
	want := []int64{1, 2, 3, 4, 5}
	assert.Equal(t, want, got[a.ID])
	assert.Equal(t, want, got[b.ID])
}

func TestCloseStopsRecording(t *testing.T) {
	l, store, _, r := setupLogic(t)
	sess := store.Create(&models.Player{UserID: uuid.New()}, models.DefaultRuleset())

	require.NoError(t, l.Close(context.Background()))
	require.NoError(t, l.JoinSession(context.Background(), sess.ID, &models.Player{UserID: uuid.New()}))
	assert.Empty(t, r.records)
}
