package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mwasomola/malipo/internal/core/domain"
)

const accountColumns = `id, first_name, last_name, document, email, password_hash, balance, kind, created_at`

// Account fetches an account by id. Inside a unit of work the row is locked
// until the unit commits.
func (s *PostgresStore) Account(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	if s.inTx {
		query += ` FOR UPDATE`
	}

	var acc domain.Account
	var kind string
	err := s.db.QueryRow(ctx, query, id).Scan(
		&acc.ID, &acc.FirstName, &acc.LastName, &acc.Document, &acc.Email,
		&acc.PasswordHash, &acc.Balance, &kind, &acc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	acc.Kind = domain.AccountKind(kind)
	return &acc, nil
}

// SaveAccount upserts the account record.
func (s *PostgresStore) SaveAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			balance = EXCLUDED.balance,
			kind = EXCLUDED.kind
	`
	_, err := s.db.Exec(ctx, query,
		account.ID, account.FirstName, account.LastName, account.Document,
		account.Email, account.PasswordHash, account.Balance,
		string(account.Kind), account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}
