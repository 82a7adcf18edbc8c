package db_client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(host, port, user, pass, database string) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		user, pass, host, port, database,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetConnMaxIdleTime(time.Minute)
	return db, db.Ping()
}

// EnsureSchema creates the chat tables when they do not exist yet.
// Safe to run on every boot. One statement per Exec: pgx's extended
// protocol rejects multi-statement strings.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
		    id            SERIAL PRIMARY KEY,
		    username      TEXT NOT NULL UNIQUE,
		    password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS channels (
		    id    SERIAL PRIMARY KEY,
		    name  TEXT NOT NULL,
		    topic TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
		    id         SERIAL PRIMARY KEY,
		    user_id    INT  NOT NULL REFERENCES users(id),
		    channel_id INT  NOT NULL REFERENCES channels(id),
		    message    TEXT NOT NULL,
		    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
