package ledger

import (
	"errors"
	"testing"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"999.999", "$1,000.00"},
		{"1000", "$1,000.00"},
		{"12345.6", "$12,345.60"},
		{"1234567.891", "$1,234,567.89"},
		{"-10", "$-10.00"},
		{"-1234.5", "$-1,234.50"},
		{"0.125", "$0.13"},
		{"0.135", "$0.14"},
		{"0.145", "$0.15"},
		{"-0.125", "$-0.13"},
		{"-1234.565", "$-1,234.57"},
		{"100000", "$100,000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FormatMoney(dec(tt.in)); got != tt.want {
				t.Errorf("FormatMoney(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"100", false},
		{"-0.01", false},
		{".5", false},
		{"2.5e2", false},
		{"", true},
		{"abc", true},
		{"$5", true},
		{"NaN", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseAmount(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("ParseAmount(%q) error = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseAmount(%q) unexpected error: %v", tt.in, err)
			}
		})
	}
}
