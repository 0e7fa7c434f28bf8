package format

import (
	"testing"
	"time"

	"github.com/luthenlog/luthen/pkg/api"
)

func TestFormTime(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 1, 15, 9, 5, 0, 0, time.UTC), "09:05"},
		{time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC), "23:59"},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "00:00"},
	}
	for _, tc := range tests {
		if got := FormTime(tc.in); got != tc.want {
			t.Errorf("FormTime(%v): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTableDate(t *testing.T) {
	tests := []struct {
		name   string
		date   string
		locale string
		want   string
	}{
		{"spanish default", "2024-01-15", "", "lun, 15 ene 2024"},
		{"venezuelan spanish", "2024-09-07", "es-VE", "sáb, 07 sept 2024"},
		{"timestamp", "2024-03-03T18:30:00Z", "es", "dom, 03 mar 2024"},
		{"english", "2024-01-15", "en-US", "Mon, Jan 15, 2024"},
		{"unsupported falls back to spanish", "2024-12-25", "de-DE", "mié, 25 dic 2024"},
		{"malformed locale falls back to spanish", "2024-12-25", "???", "mié, 25 dic 2024"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TableDate(tc.date, tc.locale)
			if err != nil {
				t.Fatalf("TableDate: %v", err)
			}
			if got != tc.want {
				t.Errorf("TableDate(%q, %q): got %q, want %q", tc.date, tc.locale, got, tc.want)
			}
		})
	}

	if _, err := TableDate("yesterday", "es"); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1234.56", "USD", "$1,234.56"},
		{"-5", "USD", "-$5.00"},
		{"0.005", "usd", "$0.01"},
		{"10.5", "ZZZ", "10.50 ZZZ"},
	}

	for _, tc := range tests {
		t.Run(tc.amount+tc.currency, func(t *testing.T) {
			if got := Amount(api.MustAmount(tc.amount), tc.currency); got != tc.want {
				t.Errorf("Amount(%s, %s): got %q, want %q", tc.amount, tc.currency, got, tc.want)
			}
		})
	}
}

func TestType(t *testing.T) {
	transfer := api.Record{FundID: "a", CorrelatedFundID: "b", Type: api.Debit}
	if got := Type(transfer); got != "transfer" {
		t.Errorf("transfer: got %q", got)
	}
	if got := Type(api.Record{Type: api.Credit}); got != "credit" {
		t.Errorf("credit: got %q", got)
	}
}
