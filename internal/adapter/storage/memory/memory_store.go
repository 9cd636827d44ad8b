// Package memory provides an in-memory Store used by the tests and for
// running the API without a database.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mwasomola/malipo/internal/adapter/storage"
	"github.com/mwasomola/malipo/internal/core/domain"
)

// Store keeps accounts and transfers in maps. A single mutex serializes
// units of work, giving WithinTx the same all-or-nothing and no-lost-update
// guarantees the Postgres store gets from transactions and row locks.
type Store struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]*domain.Account
	transfers map[uuid.UUID]*domain.Transfer
	order     []uuid.UUID
}

func NewStore() *Store {
	return &Store{
		accounts:  make(map[uuid.UUID]*domain.Account),
		transfers: make(map[uuid.UUID]*domain.Transfer),
	}
}

// Seed loads accounts directly, bypassing the unit-of-work machinery.
func (s *Store) Seed(accounts ...*domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range accounts {
		c := *acc
		s.accounts[acc.ID] = &c
	}
}

func (s *Store) Account(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account(id)
}

func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *account
	s.accounts[account.ID] = &c
	return nil
}

func (s *Store) InsertTransfer(ctx context.Context, transfer *domain.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTransfer(transfer)
}

func (s *Store) Transfer(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfer(id)
}

func (s *Store) MarkReversed(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.transfers[id]
	if !ok {
		return domain.ErrTransferNotFound
	}
	tr.Reversed = true
	return nil
}

func (s *Store) ListTransfers(ctx context.Context) ([]*domain.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]*domain.Transfer, 0, len(s.order))
	for _, id := range s.order {
		c := *s.transfers[id]
		list = append(list, &c)
	}
	return list, nil
}

// WithinTx holds the store lock for the whole unit and stages writes in a
// view; they are applied only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &txView{
		store:     s,
		accounts:  make(map[uuid.UUID]*domain.Account),
		transfers: make(map[uuid.UUID]*domain.Transfer),
	}
	if err := fn(view); err != nil {
		return err
	}
	view.commit()
	return nil
}

func (s *Store) account(id uuid.UUID) (*domain.Account, error) {
	acc, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	c := *acc
	return &c, nil
}

func (s *Store) transfer(id uuid.UUID) (*domain.Transfer, error) {
	tr, ok := s.transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	c := *tr
	return &c, nil
}

func (s *Store) insertTransfer(transfer *domain.Transfer) error {
	if _, exists := s.transfers[transfer.ID]; exists {
		return fmt.Errorf("transfer %s already recorded", transfer.ID)
	}
	c := *transfer
	s.transfers[transfer.ID] = &c
	s.order = append(s.order, transfer.ID)
	return nil
}

// txView is the staged state of one unit of work. The parent store's mutex
// is held for the view's entire lifetime.
type txView struct {
	store     *Store
	accounts  map[uuid.UUID]*domain.Account
	transfers map[uuid.UUID]*domain.Transfer
	inserted  []uuid.UUID
}

func (v *txView) Account(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if acc, ok := v.accounts[id]; ok {
		c := *acc
		return &c, nil
	}
	return v.store.account(id)
}

func (v *txView) SaveAccount(ctx context.Context, account *domain.Account) error {
	c := *account
	v.accounts[account.ID] = &c
	return nil
}

func (v *txView) InsertTransfer(ctx context.Context, transfer *domain.Transfer) error {
	if _, exists := v.transfers[transfer.ID]; exists {
		return fmt.Errorf("transfer %s already recorded", transfer.ID)
	}
	if _, exists := v.store.transfers[transfer.ID]; exists {
		return fmt.Errorf("transfer %s already recorded", transfer.ID)
	}
	c := *transfer
	v.transfers[transfer.ID] = &c
	v.inserted = append(v.inserted, transfer.ID)
	return nil
}

func (v *txView) Transfer(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	if tr, ok := v.transfers[id]; ok {
		c := *tr
		return &c, nil
	}
	return v.store.transfer(id)
}

func (v *txView) MarkReversed(ctx context.Context, id uuid.UUID) error {
	tr, err := v.Transfer(ctx, id)
	if err != nil {
		return err
	}
	tr.Reversed = true
	v.transfers[id] = tr
	return nil
}

func (v *txView) ListTransfers(ctx context.Context) ([]*domain.Transfer, error) {
	list := make([]*domain.Transfer, 0, len(v.store.order)+len(v.inserted))
	for _, id := range v.store.order {
		tr, _ := v.Transfer(ctx, id)
		list = append(list, tr)
	}
	for _, id := range v.inserted {
		c := *v.transfers[id]
		list = append(list, &c)
	}
	return list, nil
}

func (v *txView) WithinTx(ctx context.Context, fn func(storage.Store) error) error {
	return fn(v)
}

func (v *txView) commit() {
	for id, acc := range v.accounts {
		v.store.accounts[id] = acc
	}
	for id, tr := range v.transfers {
		v.store.transfers[id] = tr
	}
	v.store.order = append(v.store.order, v.inserted...)
}
