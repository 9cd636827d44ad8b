package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping db: %v", err)
	}

	migration := `
	CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		document TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		balance NUMERIC(19,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		kind TEXT NOT NULL CHECK (kind IN ('personal', 'merchant')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS transfers (
		id UUID PRIMARY KEY,
		sender_id UUID NOT NULL REFERENCES accounts(id),
		receiver_id UUID NOT NULL REFERENCES accounts(id),
		amount NUMERIC(19,2) NOT NULL CHECK (amount > 0),
		reversed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS idempotency_keys (
		key_id TEXT PRIMARY KEY,
		response_status INT NOT NULL,
		response_body BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	if _, err := db.Exec(migration); err != nil {
		log.Fatalf("failed to execute migration: %v", err)
	}

	fmt.Println("Migration executed successfully")
}
