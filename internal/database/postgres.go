package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const pingTimeout = 5 * time.Second

// NewPostgres opens the movement store. Every handler run holds at most one
// connection for its session, so the pool size caps concurrent recordings.
func NewPostgres(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return db, nil
}

// Migrate creates the movements table. Ids are not unique: a redelivered
// command is recorded again and compensation updates every copy.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS movements (
			id TEXT NOT NULL,
			credit_card_number TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			destination TEXT NOT NULL DEFAULT '',
			transaction_datetime TIMESTAMP WITH TIME ZONE NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT '',
			status TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_movements_id ON movements(id);
		CREATE INDEX IF NOT EXISTS idx_movements_card_datetime ON movements(credit_card_number, transaction_datetime);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}
	return nil
}
