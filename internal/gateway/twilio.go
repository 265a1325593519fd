package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com"

// Twilio sends messages through the Twilio Messages REST resource.
type Twilio struct {
	accountSID string
	authToken  string
	baseURL    string
	httpc      *http.Client
}

// NewTwilio builds a client for the given account credentials.
func NewTwilio(accountSID, authToken string) *Twilio {
	return &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    twilioBaseURL,
		httpc:      &http.Client{},
	}
}

// NewTwilioWithBaseURL points the client at an alternate endpoint, used by
// tests against an httptest server.
func NewTwilioWithBaseURL(accountSID, authToken, baseURL string) *Twilio {
	t := NewTwilio(accountSID, authToken)
	t.baseURL = strings.TrimRight(baseURL, "/")
	return t
}

type twilioMessage struct {
	SID          string  `json:"sid"`
	Status       string  `json:"status"`
	DateSent     *string `json:"date_sent"`
	ErrorMessage *string `json:"error_message"`
	ErrorCode    *json.Number `json:"error_code"`
}

// Send posts the message and gates acceptance on status "sent", taking the
// provider's date_sent as the confirmation timestamp.
func (t *Twilio) Send(ctx context.Context, from, to, body string) (Confirmation, error) {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Confirmation{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.httpc.Do(req)
	if err != nil {
		return Confirmation{}, fmt.Errorf("twilio request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var msg twilioMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return Confirmation{}, fmt.Errorf("decode twilio response: %w", err)
	}

	if msg.Status != "sent" {
		rej := &RejectError{Reason: "message not sent, status " + msg.Status}
		if msg.ErrorMessage != nil {
			rej.Reason = *msg.ErrorMessage
		}
		if msg.ErrorCode != nil {
			rej.Code = msg.ErrorCode.String()
		}
		return Confirmation{}, rej
	}

	confirmedAt := time.Now().UTC()
	if msg.DateSent != nil {
		// Twilio reports date_sent in RFC 2822.
		if ts, err := time.Parse(time.RFC1123Z, *msg.DateSent); err == nil {
			confirmedAt = ts
		}
	}
	return Confirmation{ConfirmedAt: confirmedAt, ProviderID: msg.SID}, nil
}
