package database

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfig_DataSourceName(t *testing.T) {
	pg := Config{
		Driver:   "postgres",
		Host:     "db",
		Port:     5432,
		User:     "u",
		Password: "p",
		DBName:   "streamline",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=streamline sslmode=disable", pg.DataSourceName())

	lite := Config{Driver: "sqlite3", DBName: "streamline.db"}
	assert.Equal(t, "file:streamline.db?_fk=1", lite.DataSourceName())

	override := Config{Driver: "postgres", DSN: "postgres://x"}
	assert.Equal(t, "postgres://x", override.DataSourceName())
}

func TestDialect(t *testing.T) {
	d, err := Dialect("postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d)

	d, err = Dialect("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", d)

	_, err = Dialect("mysql")
	assert.Error(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"}, testLogger())
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite3", DSN: "file:migrate_test?mode=memory&cache=shared"}, testLogger())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	var n int
	require.NoError(t, db.GetContext(ctx, &n, "SELECT COUNT(*) FROM tasks"))
	assert.Equal(t, 0, n)
	require.NoError(t, db.GetContext(ctx, &n, "SELECT COUNT(*) FROM task_events"))
	assert.Equal(t, 0, n)
	require.NoError(t, db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, 0, n)
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements()
	require.Len(t, stmts, 8)
	for _, s := range stmts {
		assert.NotContains(t, s, ";")
	}
}
