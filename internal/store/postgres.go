package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
)

// PostgresStore keeps the records in Postgres. The status counter row is
// locked for the length of a registration so concurrent registrations queue up.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection; the schema must already be migrated.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, name, age, region, phone, status`

func (s *PostgresStore) Load(ctx context.Context) (*Document, error) {
	doc := NewDocument()
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		doc.Users[key(u.ID)] = u
	}
	topics, err := s.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range topics {
		doc.TopicMessages[key(t.Number)] = t.Message
	}
	if err := s.db.GetContext(ctx, &doc.NextStatus, `SELECT next_status FROM store_meta WHERE id = 1`); err != nil {
		return nil, fmt.Errorf("store: read counter: %w", err)
	}
	doc.normalize()
	return doc, nil
}

// Save replaces all rows with the document content in one transaction.
func (s *PostgresStore) Save(ctx context.Context, doc *Document) error {
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM topics`); err != nil {
			return err
		}
		for _, u := range doc.users() {
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO users (`+userColumns+`) VALUES (:id, :name, :age, :region, :phone, :status)`, u); err != nil {
				return err
			}
		}
		for _, t := range doc.topics() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO topics (number, message) VALUES ($1, $2)`, t.Number, t.Message); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `UPDATE store_meta SET next_status = $1 WHERE id = 1`, max(doc.NextStatus, 1))
		return err
	})
}

func (s *PostgresStore) tx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("store: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Status(ctx context.Context, id int64) (int64, bool, error) {
	var status int64
	err := s.db.GetContext(ctx, &status, `SELECT status FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("store: status: %w", err)
	}
	return status, true, nil
}

func (s *PostgresStore) Register(ctx context.Context, id int64, reg Registration) (int64, error) {
	var status int64
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var next int64
		if err := tx.GetContext(ctx, &next, `SELECT next_status FROM store_meta WHERE id = 1 FOR UPDATE`); err != nil {
			return err
		}
		err := tx.GetContext(ctx, &status, `SELECT status FROM users WHERE id = $1`, id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		status = next
		u := User{ID: id, Name: reg.Name, Age: reg.Age, Region: reg.Region, Phone: reg.Phone, Status: status}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (:id, :name, :age, :region, :phone, :status)`, u); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE store_meta SET next_status = $1 WHERE id = 1`, next+1)
		return err
	})
	if err != nil {
		return 0, err
	}
	logger.Debug(ctx, logger.CompStore, "store.register",
		slog.String("status", "ok"),
		slog.String("driver", "postgres"),
		slog.Int64("user_status", status),
	)
	return status, nil
}

func (s *PostgresStore) User(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("store: user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) FindIDByStatus(ctx context.Context, status int64) (int64, bool, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `SELECT id FROM users WHERE status = $1`, status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("store: find by status: %w", err)
	}
	return id, true, nil
}

func (s *PostgresStore) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY status`); err != nil {
		return nil, fmt.Errorf("store: users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) AddTopic(ctx context.Context, number int64, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topics (number, message) VALUES ($1, $2)
		ON CONFLICT (number) DO UPDATE SET message = EXCLUDED.message, updated_at = now()`,
		number, message)
	if err != nil {
		return fmt.Errorf("store: add topic: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTopic(ctx context.Context, number int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM topics WHERE number = $1`, number)
	if err != nil {
		return false, fmt.Errorf("store: delete topic: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete topic: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) Topic(ctx context.Context, number int64) (string, bool, error) {
	var msg string
	err := s.db.GetContext(ctx, &msg, `SELECT message FROM topics WHERE number = $1`, number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: topic: %w", err)
	}
	return msg, true, nil
}

func (s *PostgresStore) ListTopics(ctx context.Context) ([]Topic, error) {
	var topics []Topic
	if err := s.db.SelectContext(ctx, &topics, `SELECT number, message FROM topics ORDER BY number`); err != nil {
		return nil, fmt.Errorf("store: list topics: %w", err)
	}
	return topics, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the connection belongs to the bootstrap result.
func (s *PostgresStore) Close() error { return nil }
