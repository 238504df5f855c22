package ledger

import (
	"errors"
	"fmt"
)

// Ledger rule and input errors.
// Typed errors below unwrap to these so callers can match with errors.Is.
var (
	// ErrInvalidAmount is returned when an amount is not an exact decimal number
	ErrInvalidAmount = errors.New("ledger: invalid amount")

	// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form
	ErrInvalidDate = errors.New("ledger: invalid date")

	// ErrOverdraw is returned when a transaction would make the balance negative
	ErrOverdraw = errors.New("ledger: transaction would overdraw account")

	// ErrTransactionLimit is returned when a frequency limit has been reached
	ErrTransactionLimit = errors.New("ledger: transaction limit reached")

	// ErrTransactionSequence is returned when a transaction is dated before the
	// account's last transaction, or when accrual already ran this period
	ErrTransactionSequence = errors.New("ledger: transaction out of sequence")

	// ErrUnknownAccountKind is returned for any kind other than checking or savings
	ErrUnknownAccountKind = errors.New("ledger: unknown account kind")

	// ErrInvalidTerms is returned when account terms fail validation
	ErrInvalidTerms = errors.New("ledger: invalid account terms")
)

// Period names the window a frequency limit applies to.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// TransactionLimitError reports which limit was hit.
type TransactionLimitError struct {
	Limit  int
	Period Period
}

func (e *TransactionLimitError) Error() string {
	return fmt.Sprintf("ledger: transaction limit reached: %d per %s", e.Limit, e.Period)
}

// Unwrap lets errors.Is match ErrTransactionLimit.
func (e *TransactionLimitError) Unwrap() error {
	return ErrTransactionLimit
}

// TransactionSequenceError carries the account's low-water mark at the time
// of the rejected operation.
type TransactionSequenceError struct {
	AsOf Date
}

func (e *TransactionSequenceError) Error() string {
	return fmt.Sprintf("ledger: transaction out of sequence: as of %s", e.AsOf)
}

// Unwrap lets errors.Is match ErrTransactionSequence.
func (e *TransactionSequenceError) Unwrap() error {
	return ErrTransactionSequence
}

// IsOverdraw reports whether err was caused by an overdraft.
func IsOverdraw(err error) bool {
	return errors.Is(err, ErrOverdraw)
}

// IsLimit reports whether err was caused by a frequency limit.
func IsLimit(err error) bool {
	return errors.Is(err, ErrTransactionLimit)
}

// IsSequence reports whether err was caused by date sequencing or a repeated accrual.
func IsSequence(err error) bool {
	return errors.Is(err, ErrTransactionSequence)
}

// IsInvalidInput reports whether err came from malformed transaction input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInvalidDate)
}

// ClassifyError returns a short label for err, suitable as a metrics label value.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, ErrOverdraw):
		return "overdraw"
	case errors.Is(err, ErrTransactionLimit):
		return "limit"
	case errors.Is(err, ErrTransactionSequence):
		return "sequence"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrUnknownAccountKind):
		return "unknown_kind"
	default:
		return "other"
	}
}
