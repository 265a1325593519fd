package core

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// E.164-ish: leading + and 8..15 digits. Checked at registration only; the
// pipeline trusts phones already on file.
var phoneRe = regexp.MustCompile(`^\+[0-9]{8,15}$`)

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Users implements registration and credential checks on top of a UserStore.
type Users struct {
	store UserStore
}

func NewUsers(store UserStore) *Users {
	return &Users{store: store}
}

// Register hashes the password and creates the user. Duplicate usernames and
// malformed phones fail with ErrInvalidInput.
func (u *Users) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, InvalidInputf("username and password are required")
	}
	if !phoneRe.MatchString(req.Phone) {
		return nil, InvalidInputf("phone %q is not a valid E.164 number", req.Phone)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return u.store.Create(ctx, &User{
		Username:     req.Username,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
	})
}

// Authenticate reports whether username/password is a valid credential pair.
// An unknown username is not an error, just false.
func (u *Users) Authenticate(ctx context.Context, username, password string) (bool, error) {
	user, err := u.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil, nil
}

// TouchLastLogin stamps last_login_at after a successful authentication.
func (u *Users) TouchLastLogin(ctx context.Context, username string) error {
	return u.store.TouchLastLogin(ctx, username)
}

// Get returns the full user record.
func (u *Users) Get(ctx context.Context, username string) (*User, error) {
	return u.store.Get(ctx, username)
}

// All returns basic info on every registered user.
func (u *Users) All(ctx context.Context) ([]UserSummary, error) {
	return u.store.All(ctx)
}
