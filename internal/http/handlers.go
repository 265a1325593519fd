package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jonathanlei/messagely/internal/auth"
	"github.com/jonathanlei/messagely/internal/core"
)

type Server struct {
	Users    *core.Users
	Messages core.MessageStore
	Pipeline *core.Pipeline

	// Ready reports whether dependencies (the DB) answer; nil means
	// always ready.
	Ready func(ctx context.Context) error

	secret        []byte
	tokenValidity time.Duration
	log           *slog.Logger
}

func NewServer(users *core.Users, messages core.MessageStore, pipeline *core.Pipeline, secret []byte, tokenValidity time.Duration, log *slog.Logger) *Server {
	return &Server{
		Users:         users,
		Messages:      messages,
		Pipeline:      pipeline,
		secret:        secret,
		tokenValidity: tokenValidity,
		log:           log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, instrument)

	s.mountHealth(r)
	s.mountMetrics(r)

	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/users", s.listUsers)
		r.Get("/users/{username}", s.getUser)
		r.Get("/users/{username}/from", s.messagesFrom)
		r.Get("/users/{username}/to", s.messagesTo)

		r.Post("/messages", s.postMessage)
		r.Get("/messages/{id}", s.getMessage)
		r.Post("/messages/{id}/read", s.markRead)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the core error taxonomy onto status codes and emits a
// structured {kind, error} body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var delivery *core.DeliveryError
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errBody("invalid_input", err))
	case errors.Is(err, core.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errBody("unauthorized", err))
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errBody("not_found", err))
	case errors.As(err, &delivery):
		body := errBody("delivery_failed", err)
		body["reason"] = delivery.Reason
		body["code"] = delivery.Code
		writeJSON(w, http.StatusBadGateway, body)
	default:
		s.log.Error("internal error", "err", err)
		writeJSON(w, http.StatusInternalServerError, errBody("internal", errors.New("internal error")))
	}
}

func errBody(kind string, err error) map[string]string {
	return map[string]string{"kind": kind, "error": err.Error()}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in core.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid_input", errors.New("invalid body")))
		return
	}
	user, err := s.Users.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.issueToken(w, r, user.Username, http.StatusCreated)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid_input", errors.New("invalid body")))
		return
	}
	ok, err := s.Users.Authenticate(r.Context(), in.Username, in.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errBody("unauthorized", errors.New("invalid username/password")))
		return
	}
	s.issueToken(w, r, in.Username, http.StatusOK)
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, username string, status int) {
	token, err := auth.GenerateToken(username, s.secret, s.tokenValidity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.Users.TouchLastLogin(r.Context(), username); err != nil {
		s.log.Warn("touch last login", "username", username, "err", err)
	}
	writeJSON(w, status, map[string]string{"token": token})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Users.All(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// requireSelf allows a user resource to be read only by its owner.
func (s *Server) requireSelf(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := chi.URLParam(r, "username")
	if principal(r.Context()) != username {
		writeJSON(w, http.StatusUnauthorized, errBody("unauthorized", errors.New("not your resource")))
		return "", false
	}
	return username, true
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireSelf(w, r)
	if !ok {
		return
	}
	user, err := s.Users.Get(r.Context(), username)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) messagesFrom(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireSelf(w, r)
	if !ok {
		return
	}
	msgs, err := s.Messages.ListSentBy(r.Context(), username)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) messagesTo(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireSelf(w, r)
	if !ok {
		return
	}
	msgs, err := s.Messages.ListReceivedBy(r.Context(), username)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ToUsername string `json:"to_username"`
		Body       string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid_input", errors.New("invalid body")))
		return
	}
	msg, err := s.Pipeline.SendMessage(r.Context(), principal(r.Context()), in.ToUsername, in.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": msg})
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.Messages.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !core.CanView(principal(r.Context()), msg) {
		writeJSON(w, http.StatusUnauthorized, errBody("unauthorized", errors.New("not a participant of this message")))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msg, err := s.Messages.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !core.CanMarkRead(principal(r.Context()), msg) {
		writeJSON(w, http.StatusUnauthorized, errBody("unauthorized", errors.New("only the recipient may mark a message read")))
		return
	}
	receipt, err := s.Messages.MarkRead(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": receipt})
}
