package store

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/xojiakbarxolboyev/telegrambot/core/database"
)

// newPostgresStore connects to TEST_DATABASE_DSN (a postgres:// URL) and resets the schema.
func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	ctx := context.Background()
	require.NoError(t, coredatabase.RunMigrationsURL(ctx, dsn, Migrations, MigrationsDir))

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, `TRUNCATE users, topics; UPDATE store_meta SET next_status = 1`)
	require.NoError(t, err)
	return NewPostgresStore(db)
}

func TestPostgresRegister(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(t)

	first, err := s.Register(ctx, 42, Registration{Name: "Ali"})
	require.NoError(t, err)
	again, err := s.Register(ctx, 42, Registration{Name: "Vali"})
	require.NoError(t, err)
	other, err := s.Register(ctx, 7, Registration{Name: "Soli"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, first, again)
	assert.Equal(t, int64(2), other)

	id, ok, err := s.FindIDByStatus(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestPostgresTopicsAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(t)

	require.NoError(t, s.AddTopic(ctx, 5, "five"))
	require.NoError(t, s.AddTopic(ctx, 1, "one"))
	deleted, err := s.DeleteTopic(ctx, 99)
	require.NoError(t, err)
	assert.False(t, deleted)
	_, err = s.Register(ctx, 3, Registration{Name: "Ali"})
	require.NoError(t, err)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, doc))
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, again)
	assert.Equal(t, int64(2), again.NextStatus)

	topics, err := s.ListTopics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Topic{{1, "one"}, {5, "five"}}, topics)
}
