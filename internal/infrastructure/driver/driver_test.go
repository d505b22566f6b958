package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDSN(t *testing.T) {
	cfg := &DBConfig{User: "u", Password: "p", Host: "db", Port: 5432, Schema: "learnhub"}
	assert.Equal(t, "postgres://u:p@db:5432/learnhub", getDSN(cfg))

	cfg.Query = "sslmode=disable"
	assert.Equal(t, "postgres://u:p@db:5432/learnhub?sslmode=disable", getDSN(cfg))
}

func TestGetDBConnectionUnsupported(t *testing.T) {
	for _, name := range []string{"sqlite", "mysql"} {
		_, err := GetDBConnection(context.Background(), &DBConfig{Driver: name})
		assert.EqualError(t, err, "unsupported driver: "+name)
	}
}

func TestPgTxOptionAdapter(t *testing.T) {
	opts := pgTxOptionAdapter(&TxOptions{Isolation: sql.LevelRepeatableRead, AccessMode: AccessReadOnly})
	assert.Equal(t, pgx.RepeatableRead, opts.IsoLevel)
	assert.Equal(t, pgx.ReadOnly, opts.AccessMode)
	assert.Equal(t, pgx.NotDeferrable, opts.DeferrableMode)

	assert.Equal(t, pgx.TxIsoLevel(""), pgTxOptionAdapter(&TxOptions{}).IsoLevel)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestLogQueryArgsTruncates(t *testing.T) {
	long := strings.Repeat("a", 80)
	out := logQueryArgs([]interface{}{long, []byte{0x01}, 3})
	assert.Contains(t, out[0], "truncated 16 bytes")
	assert.Equal(t, "01", out[1])
	assert.Equal(t, 3, out[2])
}

func TestMemoryKV(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	kv := NewMemoryKV()
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.SetEX(ctx, "a", "1", time.Minute))
	v, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	now = now.Add(time.Minute)
	_, err = kv.Get(ctx, "a")
	assert.Equal(t, ErrKeyNotFound, err)

	require.NoError(t, kv.SetEX(ctx, "b", "2", 0))
	ok, _ := kv.Exists(ctx, "b")
	assert.True(t, ok)
	require.NoError(t, kv.Delete(ctx, "b"))
	ok, _ = kv.Exists(ctx, "b")
	assert.False(t, ok)
}
