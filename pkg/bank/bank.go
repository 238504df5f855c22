// Package bank is the account registry: it issues account ids, keeps
// accounts in creation order and captures or replaces its whole state
// as a storage.Snapshot.
package bank

import (
	"fmt"
	"time"

	"bank-ledger/pkg/ledger"
	"bank-ledger/pkg/storage"

	"github.com/google/uuid"
)

// Bank is not safe for concurrent use.
type Bank struct {
	lastID   int
	accounts []*ledger.Account
	byID     map[int]*ledger.Account

	config ledger.Config
	clock  ledger.Clock
}

// Option configures a Bank.
type Option func(*Bank)

// WithConfig sets the terms used for new accounts.
func WithConfig(cfg ledger.Config) Option {
	return func(b *Bank) { b.config = cfg }
}

// WithClock sets the clock used to date transactions entered without a date.
func WithClock(c ledger.Clock) Option {
	return func(b *Bank) { b.clock = c }
}

// New returns an empty bank using ledger.DefaultConfig and the system clock
// unless overridden.
func New(opts ...Option) *Bank {
	b := &Bank{
		byID:   make(map[int]*ledger.Account),
		config: ledger.DefaultConfig(),
		clock:  ledger.SystemClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewAccount creates an empty account of kind with the next id.
func (b *Bank) NewAccount(kind ledger.Kind) (*ledger.Account, error) {
	acct, err := b.build(kind)
	if err != nil {
		return nil, err
	}
	b.register(acct)
	return acct, nil
}

// OpenAccount creates an account and applies initial to it. The account is
// registered, and its id consumed, only if initial is accepted.
func (b *Bank) OpenAccount(kind ledger.Kind, initial ledger.Transaction) (*ledger.Account, error) {
	acct, err := b.build(kind)
	if err != nil {
		return nil, err
	}
	if err := acct.AddTransaction(initial); err != nil {
		return nil, err
	}
	b.register(acct)
	return acct, nil
}

func (b *Bank) build(kind ledger.Kind) (*ledger.Account, error) {
	terms, err := b.config.TermsFor(kind)
	if err != nil {
		return nil, err
	}
	return ledger.NewAccount(b.lastID+1, kind, terms)
}

func (b *Bank) register(acct *ledger.Account) {
	b.lastID = acct.ID()
	b.accounts = append(b.accounts, acct)
	b.byID[acct.ID()] = acct
}

// Select returns the account with id, or false if there is none.
func (b *Bank) Select(id int) (*ledger.Account, bool) {
	acct, ok := b.byID[id]
	return acct, ok
}

// Accounts returns the accounts in creation order.
func (b *Bank) Accounts() []*ledger.Account {
	out := make([]*ledger.Account, len(b.accounts))
	copy(out, b.accounts)
	return out
}

// LastID returns the most recently issued account id, 0 if none.
func (b *Bank) LastID() int {
	return b.lastID
}

func (b *Bank) Clock() ledger.Clock {
	return b.clock
}

func (b *Bank) Config() ledger.Config {
	return b.config
}

// Snapshot captures every account and the id counter.
func (b *Bank) Snapshot() storage.Snapshot {
	snap := storage.Snapshot{
		Meta: storage.Meta{
			Version:    storage.CurrentVersion,
			SnapshotID: uuid.NewString(),
			CreatedAt:  time.Now().UTC(),
		},
		LastID:   b.lastID,
		Accounts: make([]storage.PersistAccount, len(b.accounts)),
	}
	for i, acct := range b.accounts {
		snap.Accounts[i] = storage.FromAccountState(acct.State())
	}
	return snap
}

// Restore replaces the bank's accounts and id counter with those in snap.
// On error the bank is left unchanged.
func (b *Bank) Restore(snap storage.Snapshot) error {
	if err := snap.CheckVersion(); err != nil {
		return err
	}

	accounts := make([]*ledger.Account, 0, len(snap.Accounts))
	byID := make(map[int]*ledger.Account, len(snap.Accounts))
	maxID := 0
	for _, pa := range snap.Accounts {
		if _, dup := byID[pa.ID]; dup {
			return fmt.Errorf("bank: duplicate account id %d in snapshot", pa.ID)
		}
		acct, err := ledger.RestoreAccount(pa.AccountState())
		if err != nil {
			return fmt.Errorf("bank: restore account %d: %w", pa.ID, err)
		}
		accounts = append(accounts, acct)
		byID[acct.ID()] = acct
		if acct.ID() > maxID {
			maxID = acct.ID()
		}
	}

	lastID := snap.LastID
	if lastID < maxID {
		lastID = maxID
	}

	b.accounts = accounts
	b.byID = byID
	b.lastID = lastID
	return nil
}
