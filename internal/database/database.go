package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Config for database connection
type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// DSN overrides the individual connection fields when set.
	DSN string
}

// DataSourceName builds the driver specific connection string.
func (c Config) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == dialect.SQLite {
		return fmt.Sprintf("file:%s?_fk=1", c.DBName)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Open connects to the configured database and verifies the connection.
func Open(cfg Config, logger *slog.Logger) (*sqlx.DB, error) {
	if _, err := Dialect(cfg.Driver); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure connection pool
	if cfg.Driver == dialect.SQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("connected to database",
		slog.String("driver", cfg.Driver),
		slog.String("name", cfg.DBName),
	)
	return db, nil
}

// Dialect maps a database/sql driver name onto the SQL builder dialect.
func Dialect(driver string) (string, error) {
	switch driver {
	case dialect.Postgres:
		return dialect.Postgres, nil
	case dialect.SQLite:
		return dialect.SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("run migration statement: %w", err)
		}
	}
	return nil
}

func schemaStatements() []string {
	var stmts []string
	for _, part := range strings.Split(schemaSQL, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
