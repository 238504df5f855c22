package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"bank-ledger/pkg/ledger"

	"github.com/shopspring/decimal"
)

// CurrentVersion is the snapshot schema version written by this package.
const CurrentVersion = 1

// Meta describes where and when a snapshot was produced.
type Meta struct {
	// Storage names the backend that last wrote the snapshot (e.g. "file", "redis")
	Storage string `json:"storage"`

	// Version is the schema version; readers reject versions they do not know
	Version int `json:"version"`

	// SnapshotID uniquely identifies this capture
	SnapshotID string `json:"snapshot_id"`

	// CreatedAt is when the bank state was captured
	CreatedAt time.Time `json:"created_at"`

	Note string `json:"note,omitempty"`
}

// PersistTransaction is the stored form of a ledger.Transaction.
type PersistTransaction struct {
	Amount decimal.Decimal `json:"amount"`
	Date   ledger.Date     `json:"date"`
	Exempt bool            `json:"exempt,omitempty"`
}

// PersistAccount is the stored form of a ledger.Account.
type PersistAccount struct {
	ID                  int                  `json:"id"`
	Kind                ledger.Kind          `json:"kind"`
	Terms               ledger.Terms         `json:"terms"`
	LastTransactionDate ledger.Date          `json:"last_transaction_date"`
	FeesApplied         bool                 `json:"fees_applied"`
	Transactions        []PersistTransaction `json:"transactions"`
}

// Snapshot is the full state of a bank: every account and the id counter.
type Snapshot struct {
	Meta     Meta             `json:"_meta"`
	LastID   int              `json:"last_id"`
	Accounts []PersistAccount `json:"accounts"`
}

// FromAccountState converts a captured account into its stored form.
func FromAccountState(s ledger.AccountState) PersistAccount {
	pa := PersistAccount{
		ID:                  s.ID,
		Kind:                s.Kind,
		Terms:               s.Terms,
		LastTransactionDate: s.LastTransactionDate,
		FeesApplied:         s.FeesApplied,
		Transactions:        make([]PersistTransaction, len(s.Transactions)),
	}
	for i, t := range s.Transactions {
		pa.Transactions[i] = PersistTransaction{
			Amount: t.Amount(),
			Date:   t.Date(),
			Exempt: t.Exempt(),
		}
	}
	return pa
}

// AccountState converts the stored form back into a ledger.AccountState.
func (pa PersistAccount) AccountState() ledger.AccountState {
	s := ledger.AccountState{
		ID:                  pa.ID,
		Kind:                pa.Kind,
		Terms:               pa.Terms,
		LastTransactionDate: pa.LastTransactionDate,
		FeesApplied:         pa.FeesApplied,
		Transactions:        make([]ledger.Transaction, len(pa.Transactions)),
	}
	for i, t := range pa.Transactions {
		s.Transactions[i] = ledger.NewTransaction(t.Amount, t.Date, t.Exempt)
	}
	return s
}

// CheckVersion rejects snapshots written by an unknown schema.
func (s Snapshot) CheckVersion() error {
	if s.Meta.Version < 1 || s.Meta.Version > CurrentVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Meta.Version)
	}
	return nil
}

// Encode serializes a snapshot as JSON.
func Encode(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a JSON snapshot and checks its version.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("storage: failed to unmarshal snapshot: %w", err)
	}
	if err := s.CheckVersion(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
