// Package store provides the backing implementations of the core store
// contracts: an in-memory store for tests and development, and a Postgres
// store for production.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathanlei/messagely/internal/core"
)

// MemoryUsers implements core.UserStore on a map. Safe for concurrent use.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]core.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[string]core.User)}
}

func (s *MemoryUsers) Create(ctx context.Context, u *core.User) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return nil, core.InvalidInputf("username %q is already taken", u.Username)
	}
	now := time.Now().UTC()
	stored := *u
	stored.JoinAt = now
	stored.LastLoginAt = &now
	s.users[u.Username] = stored
	return &stored, nil
}

func (s *MemoryUsers) Get(ctx context.Context, username string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, core.NotFoundf("no user %q", username)
	}
	return &u, nil
}

func (s *MemoryUsers) All(ctx context.Context) ([]core.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.UserSummary, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, summary(u))
	}
	return out, nil
}

func (s *MemoryUsers) FindPhone(ctx context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok || u.Phone == "" {
		return "", core.NotFoundf("no phone on file for %q", username)
	}
	return u.Phone, nil
}

func (s *MemoryUsers) Exists(ctx context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok, nil
}

func (s *MemoryUsers) TouchLastLogin(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return core.NotFoundf("no user %q", username)
	}
	now := time.Now().UTC()
	u.LastLoginAt = &now
	s.users[username] = u
	return nil
}

func (s *MemoryUsers) card(username string) core.UserSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return summary(s.users[username])
}

// MemoryMessages implements core.MessageStore on a map, joining against a
// MemoryUsers for the embedded contact cards.
type MemoryMessages struct {
	mu       sync.RWMutex
	users    *MemoryUsers
	messages map[string]core.Message
}

func NewMemoryMessages(users *MemoryUsers) *MemoryMessages {
	return &MemoryMessages{users: users, messages: make(map[string]core.Message)}
}

func (s *MemoryMessages) Insert(ctx context.Context, from, to, body string, sentAt time.Time) (*core.Message, error) {
	// Emulates the relational foreign keys on from/to.
	for _, username := range []string{from, to} {
		ok, _ := s.users.Exists(ctx, username)
		if !ok {
			return nil, core.NotFoundf("no user %q", username)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := core.Message{
		ID:           uuid.NewString(),
		FromUsername: from,
		ToUsername:   to,
		Body:         body,
		SentAt:       sentAt,
	}
	s.messages[msg.ID] = msg
	return &msg, nil
}

func (s *MemoryMessages) Get(ctx context.Context, id string) (*core.MessageDetail, error) {
	s.mu.RLock()
	msg, ok := s.messages[id]
	s.mu.RUnlock()
	if !ok {
		return nil, core.NotFoundf("no such message: %s", id)
	}
	return &core.MessageDetail{
		ID:       msg.ID,
		FromUser: s.users.card(msg.FromUsername),
		ToUser:   s.users.card(msg.ToUsername),
		Body:     msg.Body,
		SentAt:   msg.SentAt,
		ReadAt:   msg.ReadAt,
	}, nil
}

func (s *MemoryMessages) MarkRead(ctx context.Context, id string) (*core.ReadReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, core.NotFoundf("no such message: %s", id)
	}
	// Re-stamps on repeat calls, same as the single-row UPDATE in Postgres.
	now := time.Now().UTC()
	msg.ReadAt = &now
	s.messages[id] = msg
	return &core.ReadReceipt{ID: id, ReadAt: now}, nil
}

func (s *MemoryMessages) ListSentBy(ctx context.Context, username string) ([]core.SentMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.SentMessage
	for _, msg := range s.messages {
		if msg.FromUsername != username {
			continue
		}
		out = append(out, core.SentMessage{
			ID:     msg.ID,
			ToUser: s.users.card(msg.ToUsername),
			Body:   msg.Body,
			SentAt: msg.SentAt,
			ReadAt: msg.ReadAt,
		})
	}
	return out, nil
}

func (s *MemoryMessages) ListReceivedBy(ctx context.Context, username string) ([]core.ReceivedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.ReceivedMessage
	for _, msg := range s.messages {
		if msg.ToUsername != username {
			continue
		}
		out = append(out, core.ReceivedMessage{
			ID:       msg.ID,
			FromUser: s.users.card(msg.FromUsername),
			Body:     msg.Body,
			SentAt:   msg.SentAt,
			ReadAt:   msg.ReadAt,
		})
	}
	return out, nil
}

func summary(u core.User) core.UserSummary {
	return core.UserSummary{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
