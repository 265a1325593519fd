package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonathanlei/messagely/internal/core"
	"github.com/jonathanlei/messagely/internal/gateway"
	httpapi "github.com/jonathanlei/messagely/internal/http"
	"github.com/jonathanlei/messagely/internal/store"
)

type scriptedGateway struct {
	conf gateway.Confirmation
	err  error
}

func (g *scriptedGateway) Send(ctx context.Context, from, to, body string) (gateway.Confirmation, error) {
	if g.err != nil {
		return gateway.Confirmation{}, g.err
	}
	return g.conf, nil
}

func newAPI(t *testing.T, gw gateway.Client) http.Handler {
	t.Helper()
	users := store.NewMemoryUsers()
	messages := store.NewMemoryMessages(users)
	pipeline := core.NewPipeline(users, messages, gw, core.PipelineOptions{SendTimeout: time.Second}, slog.Default())
	srv := httpapi.NewServer(core.NewUsers(users), messages, pipeline, []byte("test-secret"), time.Hour, slog.Default())
	return srv.Router()
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, h http.Handler, username, phone string) string {
	t.Helper()
	w := do(t, h, "POST", "/auth/register", "",
		`{"username":"`+username+`","password":"pw","first_name":"F","last_name":"L","phone":"`+phone+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out["token"])
	return out["token"]
}

func TestSendGetAndMarkRead(t *testing.T) {
	confirmedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := newAPI(t, &scriptedGateway{conf: gateway.Confirmation{ConfirmedAt: confirmedAt, ProviderID: "SM1"}})

	alice := registerUser(t, h, "alice", "+15551112222")
	bob := registerUser(t, h, "bob", "+15553334444")
	mallory := registerUser(t, h, "mallory", "+15555556666")

	// alice sends to bob
	w := do(t, h, "POST", "/messages", alice, `{"to_username":"bob","body":"hi"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Message core.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "alice", created.Message.FromUsername)
	require.Equal(t, "bob", created.Message.ToUsername)
	require.Equal(t, "hi", created.Message.Body)
	require.True(t, created.Message.SentAt.Equal(confirmedAt))
	require.Nil(t, created.Message.ReadAt)
	id := created.Message.ID

	// both participants may view, a third user may not
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/messages/"+id, alice, "").Code)
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/messages/"+id, bob, "").Code)
	require.Equal(t, http.StatusUnauthorized, do(t, h, "GET", "/messages/"+id, mallory, "").Code)

	// only the recipient may mark read
	require.Equal(t, http.StatusUnauthorized, do(t, h, "POST", "/messages/"+id+"/read", alice, "").Code)
	w = do(t, h, "POST", "/messages/"+id+"/read", bob, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var read struct {
		Message core.ReadReceipt `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &read))
	require.Equal(t, id, read.Message.ID)
	require.False(t, read.Message.ReadAt.IsZero())

	// repeat mark-read succeeds again
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/messages/"+id+"/read", bob, "").Code)

	// listings
	w = do(t, h, "GET", "/users/alice/from", alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	var sent struct {
		Messages []core.SentMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
	require.Len(t, sent.Messages, 1)
	require.Equal(t, "bob", sent.Messages[0].ToUser.Username)
	require.NotNil(t, sent.Messages[0].ReadAt)

	// only the owner may list
	require.Equal(t, http.StatusUnauthorized, do(t, h, "GET", "/users/alice/from", bob, "").Code)
	require.Equal(t, http.StatusUnauthorized, do(t, h, "GET", "/users/alice/to", bob, "").Code)
}

func TestSendRejectedByGateway(t *testing.T) {
	h := newAPI(t, &scriptedGateway{err: &gateway.RejectError{Reason: "invalid number", Code: "21211"}})

	alice := registerUser(t, h, "alice", "+15551112222")
	bob := registerUser(t, h, "bob", "+15553334444")

	w := do(t, h, "POST", "/messages", alice, `{"to_username":"bob","body":"hi"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, "delivery_failed", out["kind"])
	require.Equal(t, "invalid number", out["reason"])
	require.Equal(t, "21211", out["code"])

	// nothing stored
	w = do(t, h, "GET", "/users/bob/to", bob, "")
	require.Equal(t, http.StatusOK, w.Code)
	var recv struct {
		Messages []core.ReceivedMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recv))
	require.Empty(t, recv.Messages)
}

func TestSendErrors(t *testing.T) {
	h := newAPI(t, &scriptedGateway{conf: gateway.Confirmation{ConfirmedAt: time.Now().UTC()}})
	alice := registerUser(t, h, "alice", "+15551112222")

	// unknown recipient
	w := do(t, h, "POST", "/messages", alice, `{"to_username":"nobody","body":"hi"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	// empty body
	w = do(t, h, "POST", "/messages", alice, `{"to_username":"alice","body":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// missing token
	require.Equal(t, http.StatusUnauthorized, do(t, h, "POST", "/messages", "", `{"to_username":"alice","body":"hi"}`).Code)
	// garbage token
	require.Equal(t, http.StatusUnauthorized, do(t, h, "POST", "/messages", "garbage", `{"to_username":"alice","body":"hi"}`).Code)

	// unknown message id
	require.Equal(t, http.StatusNotFound, do(t, h, "GET", "/messages/missing", alice, "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, "POST", "/messages/missing/read", alice, "").Code)
}

func TestLoginAndUsers(t *testing.T) {
	h := newAPI(t, &scriptedGateway{})
	registerUser(t, h, "alice", "+15551112222")

	w := do(t, h, "POST", "/auth/login", "", `{"username":"alice","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, "POST", "/auth/login", "", `{"username":"alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	token := out["token"]
	require.NotEmpty(t, token)

	// duplicate registration
	w = do(t, h, "POST", "/auth/register", "",
		`{"username":"alice","password":"pw","first_name":"F","last_name":"L","phone":"+15551112222"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "GET", "/users", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var users struct {
		Users []core.UserSummary `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users.Users, 1)

	w = do(t, h, "GET", "/users/alice", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		User core.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "alice", got.User.Username)
	require.NotNil(t, got.User.LastLoginAt)
}

func TestHealth(t *testing.T) {
	h := newAPI(t, &scriptedGateway{})
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/healthz", "", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/readyz", "", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, "GET", "/metrics", "", "").Code)
}
