package core

import (
	"context"
	"time"
)

// IdentityStore is the narrow contact-lookup contract the send pipeline
// depends on. UserStore is a superset; the same implementation backs both.
type IdentityStore interface {
	// FindPhone returns the phone on file for username. It fails with
	// ErrNotFound when the username is unknown or has no phone.
	FindPhone(ctx context.Context, username string) (string, error)

	// Exists reports whether username is registered.
	Exists(ctx context.Context, username string) (bool, error)
}

// UserStore holds user records.
type UserStore interface {
	IdentityStore

	// Create inserts a new user. A duplicate username fails with
	// ErrInvalidInput.
	Create(ctx context.Context, u *User) (*User, error)

	// Get returns the full record for username, ErrNotFound if unknown.
	Get(ctx context.Context, username string) (*User, error)

	// All returns basic info on every user. No ordering is guaranteed.
	All(ctx context.Context) ([]UserSummary, error)

	// TouchLastLogin stamps last_login_at with the current time.
	TouchLastLogin(ctx context.Context, username string) error
}

// MessageStore holds delivered messages. Implementations assign opaque ids
// on insert and guarantee no result ordering on the listing calls; callers
// wanting chronological order sort by SentAt themselves.
type MessageStore interface {
	// Insert durably stores a delivered message and returns the stored
	// record with its assigned id.
	Insert(ctx context.Context, from, to, body string, sentAt time.Time) (*Message, error)

	// Get returns the message with both participants' contact cards,
	// ErrNotFound if id is absent.
	Get(ctx context.Context, id string) (*MessageDetail, error)

	// MarkRead stamps read_at with the current time. Marking an
	// already-read message re-stamps it and succeeds; this mirrors the
	// store's single-row UPDATE and is a deliberate simplicity choice.
	MarkRead(ctx context.Context, id string) (*ReadReceipt, error)

	// ListSentBy returns all messages sent by username.
	ListSentBy(ctx context.Context, username string) ([]SentMessage, error)

	// ListReceivedBy returns all messages received by username.
	ListReceivedBy(ctx context.Context, username string) ([]ReceivedMessage, error)
}
