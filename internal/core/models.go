package core

import (
	"time"
)

// User is a registered account. Username is the immutable identifier;
// PasswordHash is a bcrypt digest and never leaves the server.
type User struct {
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Phone        string     `json:"phone"`
	JoinAt       time.Time  `json:"join_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// UserSummary is the contact card embedded into message listings.
type UserSummary struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Message is a delivered message. SentAt carries the gateway's delivery
// confirmation timestamp, not the local clock at insert time. ReadAt is nil
// until the recipient marks the message read.
type Message struct {
	ID           string     `json:"id"`
	FromUsername string     `json:"from_username"`
	ToUsername   string     `json:"to_username"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
}

// MessageDetail is a Message with both participants' contact cards attached,
// as returned by MessageStore.Get.
type MessageDetail struct {
	ID       string      `json:"id"`
	FromUser UserSummary `json:"from_user"`
	ToUser   UserSummary `json:"to_user"`
	Body     string      `json:"body"`
	SentAt   time.Time   `json:"sent_at"`
	ReadAt   *time.Time  `json:"read_at,omitempty"`
}

// SentMessage is a listing row for messages sent by a user, with the
// recipient's contact card embedded.
type SentMessage struct {
	ID     string      `json:"id"`
	ToUser UserSummary `json:"to_user"`
	Body   string      `json:"body"`
	SentAt time.Time   `json:"sent_at"`
	ReadAt *time.Time  `json:"read_at,omitempty"`
}

// ReceivedMessage is the symmetric listing row for messages received by a user.
type ReceivedMessage struct {
	ID       string      `json:"id"`
	FromUser UserSummary `json:"from_user"`
	Body     string      `json:"body"`
	SentAt   time.Time   `json:"sent_at"`
	ReadAt   *time.Time  `json:"read_at,omitempty"`
}

// ReadReceipt is the result of marking a message read.
type ReadReceipt struct {
	ID     string    `json:"id"`
	ReadAt time.Time `json:"read_at"`
}
