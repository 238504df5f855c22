package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies an account variant.
type Kind string

const (
	KindChecking Kind = "checking"
	KindSavings  Kind = "savings"
)

// ParseKind accepts exactly "checking" or "savings".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.TrimSpace(s)); k {
	case KindChecking, KindSavings:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAccountKind, s)
	}
}

// Title is the display name used in account summaries.
func (k Kind) Title() string {
	switch k {
	case KindChecking:
		return "Checking"
	case KindSavings:
		return "Savings"
	default:
		return string(k)
	}
}

// Terms holds the rates and limits an account is opened with.
// Fields that do not apply to a kind are left zero.
type Terms struct {
	// InterestRate is applied to the balance at each accrual
	InterestRate decimal.Decimal `json:"interest_rate"`

	// DailyLimit and MonthlyLimit cap non-exempt savings transactions
	DailyLimit   int `json:"daily_limit,omitempty"`
	MonthlyLimit int `json:"monthly_limit,omitempty"`

	// LowBalanceThreshold and LowBalanceFee drive the checking fee:
	// a balance under the threshold after interest is charged the fee.
	LowBalanceThreshold decimal.Decimal `json:"low_balance_threshold"`
	LowBalanceFee       decimal.Decimal `json:"low_balance_fee"`
}

// Config holds the terms new accounts of each kind are opened with.
type Config struct {
	Checking Terms
	Savings  Terms
}

// DefaultCheckingTerms returns the standard checking terms.
func DefaultCheckingTerms() Terms {
	return Terms{
		InterestRate:        decimal.RequireFromString("0.0012"),
		LowBalanceThreshold: decimal.NewFromInt(100),
		LowBalanceFee:       decimal.NewFromInt(-10),
	}
}

// DefaultSavingsTerms returns the standard savings terms.
func DefaultSavingsTerms() Terms {
	return Terms{
		InterestRate: decimal.RequireFromString("0.029"),
		DailyLimit:   2,
		MonthlyLimit: 5,
	}
}

// DefaultConfig returns the standard terms for both kinds.
func DefaultConfig() Config {
	return Config{
		Checking: DefaultCheckingTerms(),
		Savings:  DefaultSavingsTerms(),
	}
}

// TermsFor returns the configured terms for kind.
func (c Config) TermsFor(kind Kind) (Terms, error) {
	switch kind {
	case KindChecking:
		return c.Checking, nil
	case KindSavings:
		return c.Savings, nil
	default:
		return Terms{}, fmt.Errorf("%w: %q", ErrUnknownAccountKind, kind)
	}
}

// Validate checks both kinds' terms.
func (c Config) Validate() error {
	if err := c.Checking.Validate(KindChecking); err != nil {
		return err
	}
	return c.Savings.Validate(KindSavings)
}

// Validate checks that the terms make sense for kind.
func (t Terms) Validate(kind Kind) error {
	if t.InterestRate.IsNegative() {
		return fmt.Errorf("%w: %s interest rate is negative", ErrInvalidTerms, kind)
	}

	switch kind {
	case KindSavings:
		if t.DailyLimit <= 0 || t.MonthlyLimit <= 0 {
			return fmt.Errorf("%w: savings limits must be positive", ErrInvalidTerms)
		}
		if t.DailyLimit > t.MonthlyLimit {
			return fmt.Errorf("%w: daily limit exceeds monthly limit", ErrInvalidTerms)
		}
	case KindChecking:
		if t.LowBalanceThreshold.IsNegative() {
			return fmt.Errorf("%w: low balance threshold is negative", ErrInvalidTerms)
		}
		if t.LowBalanceFee.IsPositive() {
			return fmt.Errorf("%w: low balance fee must not be positive", ErrInvalidTerms)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAccountKind, kind)
	}

	return nil
}
