//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensetrack/expensetrack/internal/testutil"
)

func TestIntegrationMigration_Schema(t *testing.T) {
	ctx, pool, _ := migratedDB(t)

	want := map[string][]string{
		"users":          {"id", "username", "email", "password_hash", "created_at", "updated_at"},
		"expenses":       {"id", "user_id", "title", "description", "amount", "category", "created_at", "updated_at"},
		"refresh_tokens": {"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"},
	}
	for table, columns := range want {
		assert.Subset(t, publicColumns(ctx, t, pool, table), columns, "columns of %s", table)
	}
}

func TestIntegrationMigration_ExpenseChecks(t *testing.T) {
	ctx, pool, _ := migratedDB(t)

	userID := "8b8f3c62-2f1a-4d55-9d3b-7b1f1c6f9a10"
	_, err := pool.Exec(ctx, `INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, 'constraint', 'constraint@example.com', 'x')`, userID)
	require.NoError(t, err)

	insert := func(title, amount, category string) error {
		_, err := pool.Exec(ctx, `INSERT INTO expenses (id, user_id, title, amount, category)
			VALUES (gen_random_uuid(), $1, $2, $3::numeric, $4)`, userID, title, amount, category)
		return err
	}

	require.NoError(t, insert("Lunch", "12.50", "food"))
	assert.Error(t, insert("Lunch", "0", "food"), "zero amount")
	assert.Error(t, insert("Lunch", "-5", "food"), "negative amount")
	assert.Error(t, insert("", "5", "food"), "empty title")
	assert.Error(t, insert("Lunch", "5", "fo"), "short category")
}

func TestIntegrationMigration_VersionAndRerun(t *testing.T) {
	_, _, dbURL := migratedDB(t)

	version, dirty, err := MigrationVersion(dbURL)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 3, version)

	require.NoError(t, Migrate(dbURL), "a second run has nothing to apply")
	again, _, err := MigrationVersion(dbURL)
	require.NoError(t, err)
	assert.Equal(t, version, again)
}

func publicColumns(ctx context.Context, t *testing.T, pool *pgxpool.Pool, table string) []string {
	t.Helper()
	rows, err := pool.Query(ctx, `SELECT column_name FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1`, table)
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		columns = append(columns, name)
	}
	require.NoError(t, rows.Err())
	require.NotEmpty(t, columns, "table %s is missing", table)
	return columns
}

// migratedDB resets the schema under the shared advisory lock.
func migratedDB(t *testing.T) (context.Context, *pgxpool.Pool, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	require.NoError(t, err)
	t.Cleanup(func() { _ = unlock() })

	require.NoError(t, ResetSchema(dbURL))
	return ctx, pool, dbURL
}
