// Package gateway wraps the external SMS delivery provider. The core calls
// through the Client interface; adapters translate provider responses into a
// Confirmation or a RejectError.
package gateway

import (
	"context"
	"fmt"
	"time"
)

// Confirmation is a provider-accepted delivery. ConfirmedAt is the
// provider's authoritative send timestamp.
type Confirmation struct {
	ConfirmedAt time.Time
	ProviderID  string
}

// RejectError is a provider-level rejection (non-sent status). Transport
// failures are returned as plain errors, not RejectError.
type RejectError struct {
	Reason string
	Code   string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("gateway rejected message: %s (code %s)", e.Reason, e.Code)
}

// Client sends a single message through the provider. Implementations must
// honor ctx cancellation; the caller imposes the send timeout.
type Client interface {
	Send(ctx context.Context, from, to, body string) (Confirmation, error)
}
