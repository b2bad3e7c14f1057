package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements RecordStore with PostgreSQL persistence, for
// deployments that run more than one server replica against shared state.
type PostgresStore struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`

	// Retention overrides the default 30-day retention window when non-zero.
	Retention time.Duration `yaml:"retention"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore connects to PostgreSQL and runs the schema migration.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{
		db:        db,
		retention: cfg.Retention,
		now:       time.Now,
	}
	if s.retention == 0 {
		s.retention = DefaultRetentionWindow
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS room_records (
		key VARCHAR(64) PRIMARY KEY,
		payload BYTEA NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_room_records_created ON room_records(created_at);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Put stores the record under key, replacing any previous value.
func (s *PostgresStore) Put(key string, rec Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO room_records (key, payload, created_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE SET
		payload = EXCLUDED.payload,
		created_at = EXCLUDED.created_at
	`

	_, err := s.db.ExecContext(ctx, query, key, rec.Payload, rec.CreatedAt)
	return err
}

// Get returns the record for key, evicting it first if it has outlived the
// retention window.
func (s *PostgresStore) Get(key string) (Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var rec Record
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, created_at FROM room_records WHERE key = $1", key).
		Scan(&rec.Payload, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	if expired(rec, s.now(), s.retention) {
		if _, err := s.Delete(key); err != nil {
			return Record{}, err
		}
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Delete removes the record for key and reports whether one existed.
func (s *PostgresStore) Delete(key string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx, "DELETE FROM room_records WHERE key = $1", key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error { return s.db.Close() }
