package ledger

import "github.com/shopspring/decimal"

// LimitPolicy checks a proposed non-exempt transaction against the
// account's existing history.
type LimitPolicy interface {
	CheckLimits(existing []Transaction, proposed Transaction) error
}

// FeePolicy decides whether a fee is charged once interest has been posted.
type FeePolicy interface {
	Fee(balance decimal.Decimal) (amount decimal.Decimal, charged bool)
}

// NoLimits never restricts transaction frequency.
type NoLimits struct{}

// CheckLimits always passes.
func (NoLimits) CheckLimits([]Transaction, Transaction) error {
	return nil
}

// SavingsLimits caps non-exempt transactions per calendar day and per calendar month.
type SavingsLimits struct {
	Daily   int
	Monthly int
}

// CheckLimits counts existing non-exempt transactions on the proposed date
// and in its month. The daily cap is checked first.
func (l SavingsLimits) CheckLimits(existing []Transaction, proposed Transaction) error {
	daily, monthly := 0, 0
	for _, t := range existing {
		if t.Exempt() {
			continue
		}
		if t.Date().Equal(proposed.Date()) {
			daily++
		}
		if t.SameMonth(proposed) {
			monthly++
		}
	}

	if daily >= l.Daily {
		return &TransactionLimitError{Limit: l.Daily, Period: PeriodDay}
	}
	if monthly >= l.Monthly {
		return &TransactionLimitError{Limit: l.Monthly, Period: PeriodMonth}
	}
	return nil
}

// NoFee never charges.
type NoFee struct{}

// Fee always reports no charge.
func (NoFee) Fee(decimal.Decimal) (decimal.Decimal, bool) {
	return decimal.Zero, false
}

// LowBalanceFee charges Amount when the balance is below Threshold.
type LowBalanceFee struct {
	Threshold decimal.Decimal
	Amount    decimal.Decimal
}

// Fee returns Amount if balance < Threshold.
func (f LowBalanceFee) Fee(balance decimal.Decimal) (decimal.Decimal, bool) {
	if balance.LessThan(f.Threshold) {
		return f.Amount, true
	}
	return decimal.Zero, false
}

// policiesFor composes the limit and fee capabilities for kind.
func policiesFor(kind Kind, terms Terms) (LimitPolicy, FeePolicy, error) {
	switch kind {
	case KindChecking:
		return NoLimits{}, LowBalanceFee{Threshold: terms.LowBalanceThreshold, Amount: terms.LowBalanceFee}, nil
	case KindSavings:
		return SavingsLimits{Daily: terms.DailyLimit, Monthly: terms.MonthlyLimit}, NoFee{}, nil
	default:
		return nil, nil, ErrUnknownAccountKind
	}
}
