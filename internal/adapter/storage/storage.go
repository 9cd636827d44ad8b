package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/mwasomola/malipo/internal/core/domain"
)

// Store persists accounts and the transfer ledger.
//
// WithinTx runs fn against a Store whose writes commit together: if fn
// returns an error, nothing it wrote becomes visible. Account and transfer
// reads inside a unit take update locks, so two units touching the same rows
// serialize instead of racing their read-modify-write sequences.
type Store interface {
	Account(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	SaveAccount(ctx context.Context, account *domain.Account) error

	InsertTransfer(ctx context.Context, transfer *domain.Transfer) error
	Transfer(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	MarkReversed(ctx context.Context, id uuid.UUID) error
	ListTransfers(ctx context.Context) ([]*domain.Transfer, error)

	WithinTx(ctx context.Context, fn func(Store) error) error
}
