// Package teller serializes access to a bank for the text menu and the HTTP
// API. It parses user input, applies the ledger rules through the bank, and
// handles logging, metrics, id lookups and persistence around each operation.
package teller

import (
	"context"
	"errors"
	"sync"
	"time"

	"bank-ledger/pkg/bank"
	"bank-ledger/pkg/ledger"
	"bank-ledger/pkg/logging"
	"bank-ledger/pkg/metrics"
	"bank-ledger/pkg/storage"
	"bank-ledger/pkg/writer"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrAccountNotFound is returned for ids the bank never issued
	ErrAccountNotFound = errors.New("teller: account not found")

	// ErrNoStore is returned by Save and Load when no store is configured
	ErrNoStore = errors.New("teller: no snapshot store configured")
)

// AccountSummary is a point-in-time view of an account.
type AccountSummary struct {
	ID                  int             `json:"id"`
	Kind                ledger.Kind     `json:"kind"`
	Balance             decimal.Decimal `json:"balance"`
	LastTransactionDate ledger.Date     `json:"last_transaction_date"`
	FeesApplied         bool            `json:"fees_applied"`
	Transactions        int             `json:"transactions"`
	Display             string          `json:"display"`
}

func summarize(a *ledger.Account) AccountSummary {
	return AccountSummary{
		ID:                  a.ID(),
		Kind:                a.Kind(),
		Balance:             a.CurrentBalance(),
		LastTransactionDate: a.LastTransactionDate(),
		FeesApplied:         a.FeesApplied(),
		Transactions:        a.Len(),
		Display:             a.String(),
	}
}

// Config wires optional collaborators into a Teller.
type Config struct {
	// Store is used by Save and Load. Nil disables both.
	Store storage.Store

	// Autosave, if set, receives a snapshot after every successful change.
	Autosave *writer.AsyncWriter

	Metrics metrics.MetricsCollector
	Logger  *logging.Logger

	// ExpectedAccounts sizes the id filter (default 10000).
	ExpectedAccounts uint
}

// Teller is safe for concurrent use.
type Teller struct {
	mu   sync.Mutex
	bank *bank.Bank

	store    storage.Store
	autosave *writer.AsyncWriter
	ids      *idFilter
	metrics  metrics.MetricsCollector
	logger   *logging.Logger
}

// New returns a teller over b.
func New(b *bank.Bank, config Config) *Teller {
	if config.Metrics == nil {
		config.Metrics = metrics.NoOpCollector{}
	}
	if config.Logger == nil {
		config.Logger = logging.Global()
	}

	t := &Teller{
		bank:     b,
		store:    config.Store,
		autosave: config.Autosave,
		ids:      newIDFilter(config.ExpectedAccounts, 0.01),
		metrics:  config.Metrics,
		logger:   config.Logger.Named("teller"),
	}
	t.ids.reset(accountIDs(b))
	return t
}

func accountIDs(b *bank.Bank) []int {
	accounts := b.Accounts()
	ids := make([]int, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID()
	}
	return ids
}

// OpenAccount creates an account of kind funded by an initial transaction
// parsed from amount and date. An empty date means today.
func (t *Teller) OpenAccount(ctx context.Context, kind, amount, date string) (AccountSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k, err := ledger.ParseKind(kind)
	if err != nil {
		return AccountSummary{}, err
	}
	initial, err := ledger.ParseTransaction(amount, date, t.bank.Clock())
	if err != nil {
		return AccountSummary{}, err
	}

	acct, err := t.bank.OpenAccount(k, initial)
	t.metrics.RecordTransaction(string(k), ledger.ClassifyError(err))
	if err != nil {
		t.logger.Info("account opening rejected",
			logging.Kind(string(k)),
			logging.Amount(initial.Amount()),
			zap.Error(err),
		)
		return AccountSummary{}, err
	}

	t.ids.add(acct.ID())
	t.metrics.RecordAccountOpened(string(k))
	t.logger.ForAccount(acct.ID(), string(k)).Info("account opened", logging.Amount(initial.Amount()))

	t.queueAutosave(ctx)
	return summarize(acct), nil
}

// lookup returns the account with id. Caller holds t.mu.
func (t *Teller) lookup(id int) (*ledger.Account, error) {
	if !t.ids.mayContain(id) {
		t.metrics.RecordLookup(metrics.LookupFiltered)
		return nil, ErrAccountNotFound
	}

	acct, ok := t.bank.Select(id)
	if !ok {
		t.ids.falsePositive()
		t.metrics.RecordLookup(metrics.LookupMissing)
		return nil, ErrAccountNotFound
	}

	t.metrics.RecordLookup(metrics.LookupFound)
	return acct, nil
}

// Account returns a summary of the account with id.
func (t *Teller) Account(id int) (AccountSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acct, err := t.lookup(id)
	if err != nil {
		return AccountSummary{}, err
	}
	return summarize(acct), nil
}

// Accounts returns summaries of every account in creation order.
func (t *Teller) Accounts() []AccountSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	accounts := t.bank.Accounts()
	out := make([]AccountSummary, len(accounts))
	for i, a := range accounts {
		out[i] = summarize(a)
	}
	return out
}

// Transactions returns the account's history ordered by date.
func (t *Teller) Transactions(id int) ([]ledger.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acct, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	return acct.OrderedTransactions(), nil
}

// Post adds a transaction parsed from amount and date to the account with id.
func (t *Teller) Post(ctx context.Context, id int, amount, date string) (AccountSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acct, err := t.lookup(id)
	if err != nil {
		return AccountSummary{}, err
	}

	tr, err := ledger.ParseTransaction(amount, date, t.bank.Clock())
	if err != nil {
		return AccountSummary{}, err
	}

	err = acct.AddTransaction(tr)
	t.metrics.RecordTransaction(string(acct.Kind()), ledger.ClassifyError(err))
	if err != nil {
		t.logger.Info("transaction rejected",
			logging.AccountID(id),
			logging.Amount(tr.Amount()),
			logging.Date("date", tr.Date()),
			zap.String("reason", ledger.ClassifyError(err)),
		)
		return AccountSummary{}, err
	}

	t.logger.Debug("transaction posted",
		logging.AccountID(id),
		logging.Amount(tr.Amount()),
		logging.Date("date", tr.Date()),
	)

	t.queueAutosave(ctx)
	return summarize(acct), nil
}

// Accrue applies interest and fees to the account with id.
func (t *Teller) Accrue(ctx context.Context, id int) (ledger.Accrual, AccountSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acct, err := t.lookup(id)
	if err != nil {
		return ledger.Accrual{}, AccountSummary{}, err
	}

	accrual, err := acct.Accrue()
	if err != nil {
		t.metrics.RecordTransaction(string(acct.Kind()), ledger.ClassifyError(err))
		t.logger.Info("accrual rejected", logging.AccountID(id), zap.Error(err))
		return ledger.Accrual{}, AccountSummary{}, err
	}

	t.metrics.RecordAccrual(string(acct.Kind()), accrual.FeeCharged)
	t.logger.Info("interest and fees applied",
		logging.AccountID(id),
		logging.Date("period_end", accrual.PeriodEnd),
		zap.String("interest", accrual.Interest.Amount().String()),
		zap.Bool("fee_charged", accrual.FeeCharged),
	)

	t.queueAutosave(ctx)
	return accrual, summarize(acct), nil
}

// queueAutosave hands a snapshot to the autosave writer. Caller holds t.mu.
func (t *Teller) queueAutosave(ctx context.Context) {
	if t.autosave == nil {
		return
	}
	if err := t.autosave.Write(ctx, t.bank.Snapshot()); err != nil {
		t.logger.Warn("autosave not queued", zap.Error(err))
	}
}

// Save writes the whole bank to the configured store.
func (t *Teller) Save(ctx context.Context) (storage.Meta, error) {
	if t.store == nil {
		return storage.Meta{}, ErrNoStore
	}

	t.mu.Lock()
	snap := t.bank.Snapshot()
	t.mu.Unlock()

	start := time.Now()
	if err := t.store.Save(ctx, snap); err != nil {
		t.logger.Error("save failed", logging.Store(t.store.Name()), zap.Error(err))
		return storage.Meta{}, err
	}

	t.logger.Info("ledger saved",
		logging.Store(t.store.Name()),
		logging.SnapshotID(snap.Meta.SnapshotID),
		zap.Int("accounts", len(snap.Accounts)),
		zap.Duration("duration", time.Since(start)),
	)
	snap.Meta.Storage = t.store.Name()
	return snap.Meta, nil
}

// Load replaces the bank's state with the latest snapshot in the configured store.
func (t *Teller) Load(ctx context.Context) (storage.Meta, error) {
	if t.store == nil {
		return storage.Meta{}, ErrNoStore
	}

	snap, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Error("load failed", logging.Store(t.store.Name()), zap.Error(err))
		return storage.Meta{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.bank.Restore(snap); err != nil {
		t.logger.Error("restore failed", logging.SnapshotID(snap.Meta.SnapshotID), zap.Error(err))
		return storage.Meta{}, err
	}
	t.ids.reset(accountIDs(t.bank))

	t.logger.Info("ledger loaded",
		logging.Store(t.store.Name()),
		logging.SnapshotID(snap.Meta.SnapshotID),
		zap.Int("accounts", len(snap.Accounts)),
	)
	return snap.Meta, nil
}

// FilterStats reports how the account id filter has performed.
func (t *Teller) FilterStats() FilterStats {
	return t.ids.stats()
}

// Today returns the bank clock's date.
func (t *Teller) Today() ledger.Date {
	return t.bank.Clock().Today()
}
