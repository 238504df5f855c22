package ledger

import (
	"errors"
	"testing"
	"time"
)

func TestParseTransaction(t *testing.T) {
	clock := FixedClock(NewDate(2023, time.June, 15))

	tests := []struct {
		name       string
		amount     string
		date       string
		wantAmount string
		wantDate   string
		wantErr    error
	}{
		{"deposit with date", "100", "2023-01-10", "100", "2023-01-10", nil},
		{"withdrawal", "-12.345", "2023-01-10", "-12.345", "2023-01-10", nil},
		{"exponent form", "1e3", "2023-01-10", "1000", "2023-01-10", nil},
		{"padded amount", " 42.00 ", "2023-01-10", "42", "2023-01-10", nil},
		{"default date", "5", "", "5", "2023-06-15", nil},
		{"default amount", "", "2023-01-10", "0", "2023-01-10", nil},
		{"bad amount", "ten", "2023-01-10", "", "", ErrInvalidAmount},
		{"thousands separator", "1,000", "2023-01-10", "", "", ErrInvalidAmount},
		{"bad date", "5", "2023/01/10", "", "", ErrInvalidDate},
		{"short month", "5", "2023-1-10", "", "", ErrInvalidDate},
		{"impossible date", "5", "2023-02-30", "", "", ErrInvalidDate},
		{"date with time", "5", "2023-01-10T10:00:00", "", "", ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTransaction(tt.amount, tt.date, clock)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseTransaction() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTransaction() unexpected error: %v", err)
			}
			if !got.Amount().Equal(dec(tt.wantAmount)) {
				t.Errorf("amount = %s, want %s", got.Amount(), tt.wantAmount)
			}
			if got.Date().String() != tt.wantDate {
				t.Errorf("date = %s, want %s", got.Date(), tt.wantDate)
			}
			if got.Exempt() {
				t.Error("parsed transactions are never exempt")
			}
		})
	}
}

func TestParseTransaction_NilClockUsesToday(t *testing.T) {
	got, err := ParseTransaction("1", "", nil)
	if err != nil {
		t.Fatalf("ParseTransaction: %v", err)
	}
	if !got.Date().Equal(DateOf(time.Now())) {
		t.Errorf("date = %s, want today", got.Date())
	}
}

func TestTransaction_String(t *testing.T) {
	tests := []struct {
		amount string
		date   string
		want   string
	}{
		{"100", "2023-01-10", "2023-01-10, $100.00"},
		{"1234567.891", "2023-01-10", "2023-01-10, $1,234,567.89"},
		{"-10", "2023-01-31", "2023-01-31, $-10.00"},
		{"0.06", "2023-01-31", "2023-01-31, $0.06"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tx(tt.amount, tt.date).String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransaction_Ordering(t *testing.T) {
	early := tx("1", "2023-01-01")
	late := tx("1", "2023-02-01")
	sameDay := tx("99", "2023-01-01")

	if !early.Before(late) || late.Before(early) {
		t.Error("ordering should follow dates")
	}
	if early.Before(sameDay) || sameDay.Before(early) {
		t.Error("same-date transactions are unordered")
	}
	if !early.SameMonth(sameDay) || early.SameMonth(late) {
		t.Error("SameMonth mismatch")
	}
}

func TestSortByDate_Stable(t *testing.T) {
	in := []Transaction{
		tx("3", "2023-01-03"),
		tx("1", "2023-01-01"),
		tx("2", "2023-01-01"),
	}
	out := SortByDate(in)

	want := []string{"1", "2", "3"}
	for i, w := range want {
		if !out[i].Amount().Equal(dec(w)) {
			t.Errorf("out[%d] = %s, want %s", i, out[i].Amount(), w)
		}
	}
	if !in[0].Amount().Equal(dec("3")) {
		t.Error("SortByDate must not modify its input")
	}
}
