package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mwasomola/malipo/internal/adapter/storage"
	"github.com/mwasomola/malipo/internal/core/domain"
)

// Authorizer approves or denies a transfer independently of balance checks.
type Authorizer interface {
	Authorize(ctx context.Context, senderID uuid.UUID, amount decimal.Decimal) error
}

// Notifier delivers a message to a user's contact address.
type Notifier interface {
	Send(ctx context.Context, recipient, message string) error
}

// Settlement moves money between accounts: it validates a transfer, obtains
// external authorization, mutates both balances and persists the ledger
// record as one unit, and supports reversing a settled transfer exactly once.
type Settlement struct {
	store    storage.Store
	auth     Authorizer
	notifier Notifier
}

func NewSettlement(store storage.Store, auth Authorizer, notifier Notifier) *Settlement {
	return &Settlement{store: store, auth: auth, notifier: notifier}
}

// CreateTransfer settles a transfer from sender to receiver. No balance is
// touched until authorization has been granted; after that the debit, the
// credit and the ledger record commit together or not at all.
func (s *Settlement) CreateTransfer(ctx context.Context, senderID, receiverID uuid.UUID, amount decimal.Decimal) (*domain.Transfer, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	sender, err := s.store.Account(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.store.Account(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateTransfer(sender, amount); err != nil {
		return nil, err
	}

	if err := s.auth.Authorize(ctx, sender.ID, amount); err != nil {
		return nil, err
	}

	transfer := &domain.Transfer{
		ID:         uuid.New(),
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Amount:     amount,
		CreatedAt:  time.Now().UTC(),
	}

	err = s.store.WithinTx(ctx, func(tx storage.Store) error {
		// Re-read under lock: the balance may have moved while
		// authorization was in flight.
		sender, receiver, err = lockAccounts(ctx, tx, senderID, receiverID)
		if err != nil {
			return err
		}
		if sender.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}

		sender.Balance = sender.Balance.Sub(amount)
		receiver.Balance = receiver.Balance.Add(amount)

		if err := tx.InsertTransfer(ctx, transfer); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, sender); err != nil {
			return err
		}
		return tx.SaveAccount(ctx, receiver)
	})
	if err != nil {
		return nil, asPersistence(err)
	}

	s.notify(ctx, sender, fmt.Sprintf("You sent %s to %s", amount.StringFixed(2), receiver.FullName()))
	s.notify(ctx, receiver, fmt.Sprintf("You received %s from %s", amount.StringFixed(2), sender.FullName()))

	return transfer, nil
}

// ListTransfers returns the full ledger, reversal entries included.
func (s *Settlement) ListTransfers(ctx context.Context) ([]*domain.Transfer, error) {
	return s.store.ListTransfers(ctx)
}

// notify is best-effort: a delivery failure is logged and swallowed, the
// settlement already committed.
func (s *Settlement) notify(ctx context.Context, account *domain.Account, message string) {
	if err := s.notifier.Send(ctx, account.Email, message); err != nil {
		slog.Error("notification delivery failed",
			"recipient", account.Email,
			"error", err,
		)
	}
}

// domainErrs are surfaced to callers as-is; anything else that escapes a unit
// of work is a storage failure and must not leak its details.
var domainErrs = []error{
	domain.ErrAccountNotFound,
	domain.ErrTransferNotFound,
	domain.ErrInsufficientFunds,
	domain.ErrMerchantNotPermitted,
	domain.ErrAlreadyReversed,
	domain.ErrInvalidReversalState,
	domain.ErrInsufficientFundsForReversal,
}

func asPersistence(err error) error {
	for _, de := range domainErrs {
		if errors.Is(err, de) {
			return err
		}
	}
	// A cancelled request is not a storage failure.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
}

// lockAccounts reads both account rows inside the unit of work in ascending
// id order, so that two opposite-direction settlements acquire their row
// locks in the same order and cannot deadlock each other. The accounts come
// back in the caller's order.
func lockAccounts(ctx context.Context, tx storage.Store, firstID, secondID uuid.UUID) (*domain.Account, *domain.Account, error) {
	a, b := firstID, secondID
	if bytes.Compare(b[:], a[:]) < 0 {
		a, b = b, a
	}

	lockedA, err := tx.Account(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	lockedB, err := tx.Account(ctx, b)
	if err != nil {
		return nil, nil, err
	}

	if lockedA.ID == firstID {
		return lockedA, lockedB, nil
	}
	return lockedB, lockedA, nil
}
