package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Account is a single ledger of dated transactions with the rules of its kind.
// An Account is not safe for concurrent use.
type Account struct {
	id    int
	kind  Kind
	terms Terms

	limits LimitPolicy
	fees   FeePolicy

	transactions []Transaction

	// lastDate is the date of the most recently accepted transaction,
	// or the period end of the last accrual.
	lastDate Date

	// feesApplied is set by Accrue and cleared by the next non-exempt transaction.
	feesApplied bool
}

// Accrual describes what a successful Accrue appended.
type Accrual struct {
	PeriodEnd Date
	Interest  Transaction
	Fee       Transaction
	// FeeCharged reports whether Fee was appended.
	FeeCharged bool
}

// NewAccount returns an empty account of kind with the given terms.
func NewAccount(id int, kind Kind, terms Terms) (*Account, error) {
	if id <= 0 {
		return nil, fmt.Errorf("ledger: account id must be positive, got %d", id)
	}
	if err := terms.Validate(kind); err != nil {
		return nil, err
	}

	limits, fees, err := policiesFor(kind, terms)
	if err != nil {
		return nil, err
	}

	return &Account{
		id:     id,
		kind:   kind,
		terms:  terms,
		limits: limits,
		fees:   fees,
	}, nil
}

func (a *Account) ID() int                   { return a.id }
func (a *Account) Kind() Kind                { return a.kind }
func (a *Account) Terms() Terms              { return a.terms }
func (a *Account) LastTransactionDate() Date { return a.lastDate }
func (a *Account) FeesApplied() bool         { return a.feesApplied }
func (a *Account) Len() int                  { return len(a.transactions) }

// CurrentBalance sums the full transaction history on every call.
func (a *Account) CurrentBalance() decimal.Decimal {
	return Sum(a.transactions)
}

// AddTransaction appends t if it passes, in order, the overdraft check, the
// kind's frequency limits (skipped for exempt t) and the date sequencing
// check. A rejected transaction leaves the account unchanged.
func (a *Account) AddTransaction(t Transaction) error {
	if a.CurrentBalance().Add(t.Amount()).IsNegative() {
		return ErrOverdraw
	}

	if !t.Exempt() {
		if err := a.limits.CheckLimits(a.transactions, t); err != nil {
			return err
		}
	}

	if t.Date().Before(a.lastDate) {
		return &TransactionSequenceError{AsOf: a.lastDate}
	}

	a.transactions = append(a.transactions, t)
	if !t.Exempt() {
		a.feesApplied = false
	}
	a.lastDate = t.Date()
	return nil
}

// Accrue posts interest, and any fee the kind charges, dated at the end of
// the month holding the last transaction. It fails with a
// TransactionSequenceError if it already ran since the last non-exempt
// transaction.
func (a *Account) Accrue() (Accrual, error) {
	if a.feesApplied {
		return Accrual{}, &TransactionSequenceError{AsOf: a.lastDate}
	}

	periodEnd := a.lastDate.EndOfMonth()
	interest := NewTransaction(a.terms.InterestRate.Mul(a.CurrentBalance()), periodEnd, true)
	a.transactions = append(a.transactions, interest)
	a.feesApplied = true
	a.lastDate = periodEnd

	result := Accrual{PeriodEnd: periodEnd, Interest: interest}

	if amount, charged := a.fees.Fee(a.CurrentBalance()); charged {
		fee := NewTransaction(amount, periodEnd, true)
		a.transactions = append(a.transactions, fee)
		a.lastDate = periodEnd
		result.Fee = fee
		result.FeeCharged = true
	}

	return result, nil
}

// Transactions returns a copy of the history in insertion order.
func (a *Account) Transactions() []Transaction {
	out := make([]Transaction, len(a.transactions))
	copy(out, a.transactions)
	return out
}

// OrderedTransactions returns a copy of the history sorted by date.
func (a *Account) OrderedTransactions() []Transaction {
	return SortByDate(a.transactions)
}

// String renders "Checking#000000001, balance: $50.00".
func (a *Account) String() string {
	return fmt.Sprintf("%s#%09d, balance: %s", a.kind.Title(), a.id, FormatMoney(a.CurrentBalance()))
}

// AccountState is the complete persistent state of an Account.
type AccountState struct {
	ID                  int
	Kind                Kind
	Terms               Terms
	Transactions        []Transaction
	LastTransactionDate Date
	FeesApplied         bool
}

// State captures a copy of the account's state.
func (a *Account) State() AccountState {
	return AccountState{
		ID:                  a.id,
		Kind:                a.kind,
		Terms:               a.terms,
		Transactions:        a.Transactions(),
		LastTransactionDate: a.lastDate,
		FeesApplied:         a.feesApplied,
	}
}

// RestoreAccount rebuilds an account from a captured state without
// re-running the acceptance rules.
func RestoreAccount(s AccountState) (*Account, error) {
	a, err := NewAccount(s.ID, s.Kind, s.Terms)
	if err != nil {
		return nil, err
	}

	a.transactions = make([]Transaction, len(s.Transactions))
	copy(a.transactions, s.Transactions)
	a.lastDate = s.LastTransactionDate
	a.feesApplied = s.FeesApplied
	return a, nil
}
