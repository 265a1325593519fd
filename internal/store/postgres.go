package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathanlei/messagely/internal/core"
)

const (
	pgUniqueViolation = "23505"
	pgInvalidTextRepr = "22P02" // malformed uuid in the id position
)

// PostgresUsers implements core.UserStore against the users table.
type PostgresUsers struct {
	DB *pgxpool.Pool
}

func NewPostgresUsers(db *pgxpool.Pool) *PostgresUsers { return &PostgresUsers{DB: db} }

func (s *PostgresUsers) Create(ctx context.Context, u *core.User) (*core.User, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO users (username, password, first_name, last_name, phone, join_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, current_timestamp, current_timestamp)
		RETURNING username, password, first_name, last_name, phone, join_at, last_login_at
	`, u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Phone)

	stored, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, core.InvalidInputf("username %q is already taken", u.Username)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return stored, nil
}

func (s *PostgresUsers) Get(ctx context.Context, username string) (*core.User, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT username, password, first_name, last_name, phone, join_at, last_login_at
		FROM users WHERE username = $1
	`, username)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.NotFoundf("no user %q", username)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (s *PostgresUsers) All(ctx context.Context) ([]core.UserSummary, error) {
	rows, err := s.DB.Query(ctx, `SELECT username, first_name, last_name, phone FROM users`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []core.UserSummary
	for rows.Next() {
		var u core.UserSummary
		if err := rows.Scan(&u.Username, &u.FirstName, &u.LastName, &u.Phone); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresUsers) FindPhone(ctx context.Context, username string) (string, error) {
	var phone *string
	err := s.DB.QueryRow(ctx, `SELECT phone FROM users WHERE username = $1`, username).Scan(&phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", core.NotFoundf("no user %q", username)
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	if phone == nil || *phone == "" {
		return "", core.NotFoundf("no phone on file for %q", username)
	}
	return *phone, nil
}

func (s *PostgresUsers) Exists(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := s.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (s *PostgresUsers) TouchLastLogin(ctx context.Context, username string) error {
	tag, err := s.DB.Exec(ctx, `UPDATE users SET last_login_at = current_timestamp WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NotFoundf("no user %q", username)
	}
	return nil
}

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	if err := row.Scan(&u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.JoinAt, &u.LastLoginAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// PostgresMessages implements core.MessageStore against the messages table.
type PostgresMessages struct {
	DB *pgxpool.Pool
}

func NewPostgresMessages(db *pgxpool.Pool) *PostgresMessages { return &PostgresMessages{DB: db} }

func (s *PostgresMessages) Insert(ctx context.Context, from, to, body string, sentAt time.Time) (*core.Message, error) {
	var m core.Message
	err := s.DB.QueryRow(ctx, `
		INSERT INTO messages (from_username, to_username, body, sent_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, from_username, to_username, body, sent_at, read_at
	`, from, to, body, sentAt).Scan(&m.ID, &m.FromUsername, &m.ToUsername, &m.Body, &m.SentAt, &m.ReadAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &m, nil
}

func (s *PostgresMessages) Get(ctx context.Context, id string) (*core.MessageDetail, error) {
	var m core.MessageDetail
	err := s.DB.QueryRow(ctx, `
		SELECT m.id,
		       f.username, f.first_name, f.last_name, f.phone,
		       t.username, t.first_name, t.last_name, t.phone,
		       m.body, m.sent_at, m.read_at
		FROM messages AS m
		JOIN users AS f ON m.from_username = f.username
		JOIN users AS t ON m.to_username = t.username
		WHERE m.id = $1
	`, id).Scan(&m.ID,
		&m.FromUser.Username, &m.FromUser.FirstName, &m.FromUser.LastName, &m.FromUser.Phone,
		&m.ToUser.Username, &m.ToUser.FirstName, &m.ToUser.LastName, &m.ToUser.Phone,
		&m.Body, &m.SentAt, &m.ReadAt)
	if err != nil {
		if isMissingMessage(err) {
			return nil, core.NotFoundf("no such message: %s", id)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &m, nil
}

// isMissingMessage treats a malformed uuid the same as an absent row: the
// caller supplied an id that cannot name any message.
func isMissingMessage(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepr
}

func (s *PostgresMessages) MarkRead(ctx context.Context, id string) (*core.ReadReceipt, error) {
	var r core.ReadReceipt
	err := s.DB.QueryRow(ctx, `
		UPDATE messages SET read_at = current_timestamp
		WHERE id = $1
		RETURNING id, read_at
	`, id).Scan(&r.ID, &r.ReadAt)
	if err != nil {
		if isMissingMessage(err) {
			return nil, core.NotFoundf("no such message: %s", id)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &r, nil
}

func (s *PostgresMessages) ListSentBy(ctx context.Context, username string) ([]core.SentMessage, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT m.id, m.to_username, u.first_name, u.last_name, u.phone,
		       m.body, m.sent_at, m.read_at
		FROM messages AS m
		JOIN users AS u ON m.to_username = u.username
		WHERE m.from_username = $1
	`, username)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []core.SentMessage
	for rows.Next() {
		var m core.SentMessage
		if err := rows.Scan(&m.ID, &m.ToUser.Username, &m.ToUser.FirstName, &m.ToUser.LastName, &m.ToUser.Phone,
			&m.Body, &m.SentAt, &m.ReadAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresMessages) ListReceivedBy(ctx context.Context, username string) ([]core.ReceivedMessage, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT m.id, m.from_username, u.first_name, u.last_name, u.phone,
		       m.body, m.sent_at, m.read_at
		FROM messages AS m
		JOIN users AS u ON m.from_username = u.username
		WHERE m.to_username = $1
	`, username)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []core.ReceivedMessage
	for rows.Next() {
		var m core.ReceivedMessage
		if err := rows.Scan(&m.ID, &m.FromUser.Username, &m.FromUser.FirstName, &m.FromUser.LastName, &m.FromUser.Phone,
			&m.Body, &m.SentAt, &m.ReadAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
