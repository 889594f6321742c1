package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveConn(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, dbURL)
	require.NoError(t, err)
	assert.True(t, liveConn(ctx, conn))

	require.NoError(t, conn.Close(ctx))
	assert.False(t, liveConn(ctx, conn))
}
