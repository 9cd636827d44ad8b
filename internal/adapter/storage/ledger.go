package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mwasomola/malipo/internal/core/domain"
)

const transferColumns = `id, sender_id, receiver_id, amount, reversed, created_at`

// InsertTransfer appends a new record to the ledger. Records are immutable
// after this point except for the reversed flag.
func (s *PostgresStore) InsertTransfer(ctx context.Context, transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.Exec(ctx, query,
		transfer.ID, transfer.SenderID, transfer.ReceiverID,
		transfer.Amount, transfer.Reversed, transfer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// Transfer fetches a ledger record by id. Inside a unit of work the row is
// locked until the unit commits, which is what makes a reversal exactly-once.
func (s *PostgresStore) Transfer(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	if s.inTx {
		query += ` FOR UPDATE`
	}

	var tr domain.Transfer
	err := s.db.QueryRow(ctx, query, id).Scan(
		&tr.ID, &tr.SenderID, &tr.ReceiverID, &tr.Amount, &tr.Reversed, &tr.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch transfer: %w", err)
	}
	return &tr, nil
}

// MarkReversed flips the reversed flag on an original transfer.
func (s *PostgresStore) MarkReversed(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `UPDATE transfers SET reversed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark reversed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransferNotFound
	}
	return nil
}

// ListTransfers returns the full ledger, oldest first.
func (s *PostgresStore) ListTransfers(ctx context.Context) ([]*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*domain.Transfer
	for rows.Next() {
		var tr domain.Transfer
		if err := rows.Scan(&tr.ID, &tr.SenderID, &tr.ReceiverID, &tr.Amount, &tr.Reversed, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfers = append(transfers, &tr)
	}
	return transfers, rows.Err()
}
