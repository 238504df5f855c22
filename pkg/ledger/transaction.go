package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable dated amount. Positive amounts are deposits,
// negative amounts are withdrawals or fees. Exempt transactions are
// generated by accrual and never count toward frequency limits.
type Transaction struct {
	amount decimal.Decimal
	date   Date
	exempt bool
}

// NewTransaction builds a transaction from typed values.
func NewTransaction(amount decimal.Decimal, date Date, exempt bool) Transaction {
	return Transaction{amount: amount, date: date, exempt: exempt}
}

// ParseTransaction builds a non-exempt transaction from user input.
// An empty amount means zero; an empty date means clock.Today().
func ParseTransaction(amount, date string, clock Clock) (Transaction, error) {
	amt := decimal.Zero
	if strings.TrimSpace(amount) != "" {
		parsed, err := ParseAmount(amount)
		if err != nil {
			return Transaction{}, err
		}
		amt = parsed
	}

	var d Date
	if date == "" {
		if clock == nil {
			clock = SystemClock{}
		}
		d = clock.Today()
	} else {
		parsed, err := ParseDate(date)
		if err != nil {
			return Transaction{}, err
		}
		d = parsed
	}

	return NewTransaction(amt, d, false), nil
}

func (t Transaction) Amount() decimal.Decimal { return t.amount }
func (t Transaction) Date() Date              { return t.date }
func (t Transaction) Exempt() bool            { return t.exempt }

// Before orders transactions by date only.
func (t Transaction) Before(o Transaction) bool {
	return t.date.Before(o.date)
}

// SameMonth reports whether t and o share a calendar month and year.
func (t Transaction) SameMonth(o Transaction) bool {
	return t.date.SameMonth(o.date)
}

// String renders "2023-01-10, $1,000.00".
func (t Transaction) String() string {
	return t.date.String() + ", " + FormatMoney(t.amount)
}

// SortByDate returns a date-ordered copy of ts; same-date entries keep their order.
func SortByDate(ts []Transaction) []Transaction {
	out := make([]Transaction, len(ts))
	copy(out, ts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}

// Sum adds up the amounts of ts exactly.
func Sum(ts []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range ts {
		total = total.Add(t.amount)
	}
	return total
}
