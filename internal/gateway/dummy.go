package gateway

import (
	"context"
	"math/rand"
	"time"
)

// Dummy confirms every message after a short simulated round trip. Used for
// local development when no provider credentials are configured.
type Dummy struct{}

func NewDummy() *Dummy { return &Dummy{} }

func (d *Dummy) Send(ctx context.Context, from, to, body string) (Confirmation, error) {
	select {
	case <-ctx.Done():
		return Confirmation{}, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	return Confirmation{ConfirmedAt: time.Now().UTC(), ProviderID: "dummy-" + randomID()}, nil
}

func randomID() string {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return string(b)
}
