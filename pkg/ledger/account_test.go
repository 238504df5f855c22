package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return MustParseAmount(s)
}

func tx(amount, date string) Transaction {
	return NewTransaction(dec(amount), MustParseDate(date), false)
}

func newChecking(t *testing.T) *Account {
	t.Helper()
	a, err := NewAccount(1, KindChecking, DefaultCheckingTerms())
	if err != nil {
		t.Fatalf("NewAccount(checking): %v", err)
	}
	return a
}

func newSavings(t *testing.T) *Account {
	t.Helper()
	a, err := NewAccount(2, KindSavings, DefaultSavingsTerms())
	if err != nil {
		t.Fatalf("NewAccount(savings): %v", err)
	}
	return a
}

func mustAdd(t *testing.T, a *Account, txs ...Transaction) {
	t.Helper()
	for _, x := range txs {
		if err := a.AddTransaction(x); err != nil {
			t.Fatalf("AddTransaction(%s): %v", x, err)
		}
	}
}

func assertBalance(t *testing.T, a *Account, want string) {
	t.Helper()
	if got := a.CurrentBalance(); !got.Equal(dec(want)) {
		t.Errorf("balance = %s, want %s", got, want)
	}
}

func TestNewAccount(t *testing.T) {
	tests := []struct {
		name    string
		id      int
		kind    Kind
		terms   Terms
		wantErr error
	}{
		{"checking", 1, KindChecking, DefaultCheckingTerms(), nil},
		{"savings", 2, KindSavings, DefaultSavingsTerms(), nil},
		{"zero id", 0, KindChecking, DefaultCheckingTerms(), nil},
		{"unknown kind", 3, Kind("brokerage"), DefaultCheckingTerms(), ErrUnknownAccountKind},
		{"savings without limits", 4, KindSavings, Terms{}, ErrInvalidTerms},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAccount(tt.id, tt.kind, tt.terms)
			if tt.id <= 0 {
				if err == nil {
					t.Fatal("expected error for non-positive id")
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewAccount() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewAccount() unexpected error: %v", err)
			}
			if a.ID() != tt.id || a.Kind() != tt.kind {
				t.Errorf("got id=%d kind=%s, want id=%d kind=%s", a.ID(), a.Kind(), tt.id, tt.kind)
			}
			if !a.CurrentBalance().IsZero() || a.Len() != 0 {
				t.Errorf("new account should be empty, got balance %s len %d", a.CurrentBalance(), a.Len())
			}
		})
	}
}

func TestAccount_CheckingOverdraw(t *testing.T) {
	a := newChecking(t)
	mustAdd(t, a, tx("100", "2023-01-10"), tx("-50", "2023-01-15"))
	assertBalance(t, a, "50")

	err := a.AddTransaction(tx("-80", "2023-01-16"))
	if !errors.Is(err, ErrOverdraw) {
		t.Fatalf("expected ErrOverdraw, got %v", err)
	}
	assertBalance(t, a, "50")
	if a.Len() != 2 {
		t.Errorf("rejected transaction was stored: len = %d", a.Len())
	}
	if !a.LastTransactionDate().Equal(MustParseDate("2023-01-15")) {
		t.Errorf("last date moved to %s", a.LastTransactionDate())
	}
}

func TestAccount_OverdrawToExactlyZero(t *testing.T) {
	a := newChecking(t)
	mustAdd(t, a, tx("25.50", "2023-01-10"), tx("-25.50", "2023-01-10"))
	assertBalance(t, a, "0")
}

func TestAccount_ExactDecimalBalance(t *testing.T) {
	a := newChecking(t)
	mustAdd(t, a,
		tx("0.1", "2023-01-01"),
		tx("0.2", "2023-01-02"),
		tx("1000000.01", "2023-01-03"),
		tx("-0.3", "2023-01-04"),
	)
	assertBalance(t, a, "1000000.01")

	if got := Sum(a.Transactions()); !got.Equal(a.CurrentBalance()) {
		t.Errorf("Sum(transactions) = %s, balance = %s", got, a.CurrentBalance())
	}
}

func TestAccount_SavingsDailyLimit(t *testing.T) {
	a := newSavings(t)
	mustAdd(t, a, tx("10", "2023-03-01"), tx("10", "2023-03-01"))

	err := a.AddTransaction(tx("10", "2023-03-01"))
	var limitErr *TransactionLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected TransactionLimitError, got %v", err)
	}
	if limitErr.Limit != 2 || limitErr.Period != PeriodDay {
		t.Errorf("got limit %d per %s, want 2 per day", limitErr.Limit, limitErr.Period)
	}
	if !errors.Is(err, ErrTransactionLimit) {
		t.Error("TransactionLimitError should match ErrTransactionLimit")
	}
	assertBalance(t, a, "20")
}

func TestAccount_SavingsMonthlyLimit(t *testing.T) {
	a := newSavings(t)
	mustAdd(t, a,
		tx("10", "2023-03-01"),
		tx("10", "2023-03-01"),
		tx("10", "2023-03-02"),
		tx("10", "2023-03-02"),
		tx("10", "2023-03-03"),
	)

	err := a.AddTransaction(tx("10", "2023-03-04"))
	var limitErr *TransactionLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected TransactionLimitError, got %v", err)
	}
	if limitErr.Limit != 5 || limitErr.Period != PeriodMonth {
		t.Errorf("got limit %d per %s, want 5 per month", limitErr.Limit, limitErr.Period)
	}

	// A new month starts a new count.
	if err := a.AddTransaction(tx("10", "2023-04-01")); err != nil {
		t.Fatalf("first transaction of April rejected: %v", err)
	}
}

func TestAccount_SavingsMonthIsPerYear(t *testing.T) {
	a := newSavings(t)
	for _, d := range []string{"2022-03-01", "2022-03-01", "2022-03-02", "2022-03-02", "2022-03-03"} {
		mustAdd(t, a, tx("1", d))
	}
	if err := a.AddTransaction(tx("1", "2023-03-04")); err != nil {
		t.Fatalf("March of a different year should not count: %v", err)
	}
}

func TestAccount_CheckingHasNoLimits(t *testing.T) {
	a := newChecking(t)
	for i := 0; i < 10; i++ {
		mustAdd(t, a, tx("1", "2023-03-01"))
	}
	assertBalance(t, a, "10")
}

func TestAccount_ExemptBypassesLimits(t *testing.T) {
	a := newSavings(t)
	mustAdd(t, a, tx("10", "2023-03-01"), tx("10", "2023-03-01"))

	exempt := NewTransaction(dec("1"), MustParseDate("2023-03-01"), true)
	if err := a.AddTransaction(exempt); err != nil {
		t.Fatalf("exempt transaction should bypass limits: %v", err)
	}

	// Exempt transactions are still subject to overdraft.
	overdraw := NewTransaction(dec("-100"), MustParseDate("2023-03-01"), true)
	if err := a.AddTransaction(overdraw); !errors.Is(err, ErrOverdraw) {
		t.Fatalf("expected ErrOverdraw for exempt withdrawal, got %v", err)
	}
}

func TestAccount_Sequencing(t *testing.T) {
	a := newChecking(t)
	mustAdd(t, a, tx("100", "2023-03-10"))

	err := a.AddTransaction(tx("5", "2023-03-05"))
	var seqErr *TransactionSequenceError
	if !errors.As(err, &seqErr) {
		t.Fatalf("expected TransactionSequenceError, got %v", err)
	}
	if !seqErr.AsOf.Equal(MustParseDate("2023-03-10")) {
		t.Errorf("AsOf = %s, want 2023-03-10", seqErr.AsOf)
	}

	// Same date is allowed.
	mustAdd(t, a, tx("5", "2023-03-10"))
	assertBalance(t, a, "105")
}

func TestAccount_CheckPrecedence(t *testing.T) {
	t.Run("overdraw before limit", func(t *testing.T) {
		a := newSavings(t)
		mustAdd(t, a, tx("10", "2023-03-01"), tx("10", "2023-03-01"))
		err := a.AddTransaction(tx("-50", "2023-03-01"))
		if !errors.Is(err, ErrOverdraw) {
			t.Fatalf("expected ErrOverdraw, got %v", err)
		}
	})

	t.Run("limit before sequence", func(t *testing.T) {
		a := newSavings(t)
		mustAdd(t, a, tx("10", "2023-03-01"), tx("10", "2023-03-01"), tx("10", "2023-03-05"))
		// Back-dated and over the daily limit for 2023-03-01.
		err := a.AddTransaction(tx("10", "2023-03-01"))
		if !errors.Is(err, ErrTransactionLimit) {
			t.Fatalf("expected ErrTransactionLimit, got %v", err)
		}
	})

	t.Run("overdraw before sequence", func(t *testing.T) {
		a := newChecking(t)
		mustAdd(t, a, tx("10", "2023-03-05"))
		err := a.AddTransaction(tx("-50", "2023-03-01"))
		if !errors.Is(err, ErrOverdraw) {
			t.Fatalf("expected ErrOverdraw, got %v", err)
		}
	})
}

func TestAccount_AccrueChecking(t *testing.T) {
	a := newChecking(t)
	mustAdd(t, a, tx("50", "2023-01-15"))

	acc, err := a.Accrue()
	if err != nil {
		t.Fatalf("Accrue: %v", err)
	}

	end := MustParseDate("2023-01-31")
	if !acc.PeriodEnd.Equal(end) {
		t.Errorf("PeriodEnd = %s, want %s", acc.PeriodEnd, end)
	}
	if !acc.Interest.Amount().Equal(dec("0.06")) || !acc.Interest.Exempt() {
		t.Errorf("interest = %s exempt=%v, want 0.06 exempt", acc.Interest.Amount(), acc.Interest.Exempt())
	}
	if !acc.FeeCharged || !acc.Fee.Amount().Equal(dec("-10")) || !acc.Fee.Exempt() {
		t.Errorf("fee = %+v charged=%v, want exempt -10", acc.Fee, acc.FeeCharged)
	}
	if !acc.Fee.Date().Equal(end) || !acc.Interest.Date().Equal(end) {
		t.Errorf("accrual entries should be dated %s", end)
	}

	assertBalance(t, a, "40.06")
	if a.Len() != 3 {
		t.Errorf("len = %d, want 3", a.Len())
	}
	if !a.LastTransactionDate().Equal(end) || !a.FeesApplied() {
		t.Errorf("last date = %s feesApplied = %v", a.LastTransactionDate(), a.FeesApplied())
	}

	_, err = a.Accrue()
	var seqErr *TransactionSequenceError
	if !errors.As(err, &seqErr) {
		t.Fatalf("second Accrue should fail with TransactionSequenceError, got %v", err)
	}
	if !seqErr.AsOf.Equal(end) {
		t.Errorf("AsOf = %s, want %s", seqErr.AsOf, end)
	}
	if a.Len() != 3 {
		t.Errorf("failed accrual mutated account: len = %d", a.Len())
	}

	// Back-dated entries are blocked once accrual advanced the clock.
	if err := a.AddTransaction(tx("5", "2023-01-20")); !errors.Is(err, ErrTransactionSequence) {
		t.Fatalf("expected ErrTransactionSequence, got %v", err)
	}

	// A real transaction opens the next period.
	mustAdd(t, a, tx("100", "2023-02-03"))
	if a.FeesApplied() {
		t.Error("non-exempt transaction should reset the fee flag")
	}
	acc, err = a.Accrue()
	if err != nil {
		t.Fatalf("Accrue in February: %v", err)
	}
	if !acc.PeriodEnd.Equal(MustParseDate("2023-02-28")) {
		t.Errorf("PeriodEnd = %s, want 2023-02-28", acc.PeriodEnd)
	}
	if acc.FeeCharged {
		t.Errorf("balance above threshold should not be charged, got fee %s", acc.Fee)
	}
}

func TestAccount_AccrueSavings(t *testing.T) {
	a := newSavings(t)
	mustAdd(t, a, tx("1000", "2024-02-10"))

	acc, err := a.Accrue()
	if err != nil {
		t.Fatalf("Accrue: %v", err)
	}
	if !acc.PeriodEnd.Equal(MustParseDate("2024-02-29")) {
		t.Errorf("PeriodEnd = %s, want leap day", acc.PeriodEnd)
	}
	if acc.FeeCharged {
		t.Error("savings accounts are never charged a fee")
	}
	assertBalance(t, a, "1029")
}

func TestAccount_AccrualEntriesDoNotCountTowardLimits(t *testing.T) {
	a := newSavings(t)
	mustAdd(t, a, tx("10", "2023-03-31"))
	if _, err := a.Accrue(); err != nil {
		t.Fatalf("Accrue: %v", err)
	}

	// One non-exempt and one exempt entry share 2023-03-31.
	if err := a.AddTransaction(tx("10", "2023-03-31")); err != nil {
		t.Fatalf("exempt interest should not count toward the daily limit: %v", err)
	}
}

func TestAccount_AccrueHalfCentRendering(t *testing.T) {
	a := newSavings(t)
	mustAdd(t, a, tx("5", "2023-01-10"))

	acc, err := a.Accrue()
	if err != nil {
		t.Fatalf("Accrue: %v", err)
	}
	if !acc.Interest.Amount().Equal(dec("0.145")) {
		t.Fatalf("interest = %s, want exact 0.145", acc.Interest.Amount())
	}
	if got, want := acc.Interest.String(), "2023-01-31, $0.15"; got != want {
		t.Errorf("interest String() = %q, want %q", got, want)
	}
	if got, want := a.String(), "Savings#000000002, balance: $5.15"; got != want {
		t.Errorf("account String() = %q, want %q", got, want)
	}
}

func TestAccount_AccrueCrossesYearEnd(t *testing.T) {
	a := newChecking(t)
	mustAdd(t, a, tx("500", "2023-12-05"))
	acc, err := a.Accrue()
	if err != nil {
		t.Fatalf("Accrue: %v", err)
	}
	if !acc.PeriodEnd.Equal(MustParseDate("2023-12-31")) {
		t.Errorf("PeriodEnd = %s, want 2023-12-31", acc.PeriodEnd)
	}
	mustAdd(t, a, tx("1", "2024-01-01"))
}

func TestAccount_OrderedTransactions(t *testing.T) {
	state := AccountState{
		ID:    7,
		Kind:  KindChecking,
		Terms: DefaultCheckingTerms(),
		Transactions: []Transaction{
			tx("3", "2023-05-03"),
			tx("1", "2023-05-01"),
			tx("2", "2023-05-02"),
			tx("20", "2023-05-02"),
		},
	}

	a, err := RestoreAccount(state)
	if err != nil {
		t.Fatalf("RestoreAccount: %v", err)
	}

	ordered := a.OrderedTransactions()
	want := []string{"1", "2", "20", "3"}
	if len(ordered) != len(want) {
		t.Fatalf("len = %d, want %d", len(ordered), len(want))
	}
	for i, w := range want {
		if !ordered[i].Amount().Equal(dec(w)) {
			t.Errorf("ordered[%d] = %s, want %s", i, ordered[i].Amount(), w)
		}
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Before(ordered[i-1]) {
			t.Errorf("not sorted at %d: %s before %s", i, ordered[i], ordered[i-1])
		}
	}

	// The stored order is untouched.
	if !a.Transactions()[0].Amount().Equal(dec("3")) {
		t.Error("OrderedTransactions must not reorder the stored history")
	}
	if !Sum(ordered).Equal(a.CurrentBalance()) {
		t.Error("ordering must preserve the multiset of amounts")
	}
}

func TestAccount_String(t *testing.T) {
	a := newChecking(t)
	mustAdd(t, a, tx("1234.5", "2023-01-01"))
	if got, want := a.String(), "Checking#000000001, balance: $1,234.50"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	s := newSavings(t)
	if got, want := s.String(), "Savings#000000002, balance: $0.00"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestAccount_StateRoundTrip(t *testing.T) {
	a := newChecking(t)
	mustAdd(t, a, tx("50", "2023-01-15"))
	if _, err := a.Accrue(); err != nil {
		t.Fatalf("Accrue: %v", err)
	}

	b, err := RestoreAccount(a.State())
	if err != nil {
		t.Fatalf("RestoreAccount: %v", err)
	}
	if b.String() != a.String() || b.Len() != a.Len() {
		t.Errorf("restored %q len %d, want %q len %d", b, b.Len(), a, a.Len())
	}
	if !b.LastTransactionDate().Equal(a.LastTransactionDate()) || b.FeesApplied() != a.FeesApplied() {
		t.Error("restored account lost its sequencing state")
	}
	if _, err := b.Accrue(); !errors.Is(err, ErrTransactionSequence) {
		t.Errorf("restored account should still refuse a second accrual, got %v", err)
	}
}
