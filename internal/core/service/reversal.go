package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwasomola/malipo/internal/adapter/storage"
	"github.com/mwasomola/malipo/internal/core/domain"
)

// RevertTransfer undoes a settled transfer: the receiver is debited, the
// sender credited, the original record is flagged reversed and a linked
// reversal entry is appended to the ledger. The whole movement runs in one
// unit of work with the original row locked, so exactly one reversal can
// succeed per transfer; later attempts fail with ErrAlreadyReversed.
func (s *Settlement) RevertTransfer(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error) {
	var (
		reversal *domain.Transfer
		sender   *domain.Account
		receiver *domain.Account
	)

	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		original, err := tx.Transfer(ctx, transferID)
		if err != nil {
			return err
		}
		if original.Reversed {
			return domain.ErrAlreadyReversed
		}
		if original.SenderID == uuid.Nil || original.ReceiverID == uuid.Nil || !original.Amount.IsPositive() {
			return domain.ErrInvalidReversalState
		}

		sender, receiver, err = lockAccounts(ctx, tx, original.SenderID, original.ReceiverID)
		if err != nil {
			return err
		}

		// The receiver may have spent the money since the settlement.
		if receiver.Balance.LessThan(original.Amount) {
			return domain.ErrInsufficientFundsForReversal
		}

		receiver.Balance = receiver.Balance.Sub(original.Amount)
		sender.Balance = sender.Balance.Add(original.Amount)

		if err := tx.MarkReversed(ctx, original.ID); err != nil {
			return err
		}

		// The reversal entry is born reversed, so it can never itself
		// be reversed.
		reversal = &domain.Transfer{
			ID:         uuid.New(),
			SenderID:   original.ReceiverID,
			ReceiverID: original.SenderID,
			Amount:     original.Amount,
			Reversed:   true,
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.InsertTransfer(ctx, reversal); err != nil {
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

	s.notify(ctx, sender, fmt.Sprintf("Transfer of %s to %s was reversed", reversal.Amount.StringFixed(2), receiver.FullName()))
	s.notify(ctx, receiver, fmt.Sprintf("Transfer of %s from %s was reversed", reversal.Amount.StringFixed(2), sender.FullName()))

	return reversal, nil
}
