// internal/auth/temp_user.go
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/models"
)

var (
	ErrTempUserNotFound = errors.New("temp user not found")
	ErrInvalidUsername  = errors.New("username must be non-empty and must not contain '@'")
)

// TempUserStore persists guest identities keyed by their session key.
type TempUserStore interface {
	CreateTempUser(ctx context.Context, u *models.TempUser) error
	GetTempUserBySessionKey(ctx context.Context, key string) (*models.TempUser, error)
}

// NewSessionKey returns an opaque, url-safe guest session key.
func NewSessionKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateUsername applies the only rule guest creation enforces.
func ValidateUsername(name string) error {
	if strings.TrimSpace(name) == "" || strings.Contains(name, "@") {
		return ErrInvalidUsername
	}
	return nil
}

// CreateTempUser builds a guest with a fresh id and session key and stores it.
func CreateTempUser(ctx context.Context, store TempUserStore, username string) (*models.TempUser, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	key, err := NewSessionKey()
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}

	u := &models.TempUser{
		ID:         id,
		SessionKey: key,
		Username:   strings.TrimSpace(username),
		Role:       models.RoleGuest,
		CreatedAt:  time.Now().Unix(),
	}
	if err := store.CreateTempUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to store temp user: %w", err)
	}
	return u, nil
}

// MemoryTempUserStore keeps guests in process memory.
type MemoryTempUserStore struct {
	mu    sync.RWMutex
	byKey map[string]*models.TempUser
}

func NewMemoryTempUserStore() *MemoryTempUserStore {
	return &MemoryTempUserStore{byKey: make(map[string]*models.TempUser)}
}

func (m *MemoryTempUserStore) CreateTempUser(_ context.Context, u *models.TempUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byKey[u.SessionKey]; exists {
		return fmt.Errorf("session key already in use")
	}
	cp := *u
	m.byKey[u.SessionKey] = &cp
	return nil
}

func (m *MemoryTempUserStore) GetTempUserBySessionKey(_ context.Context, key string) (*models.TempUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byKey[key]
	if !ok {
		return nil, ErrTempUserNotFound
	}
	cp := *u
	return &cp, nil
}
