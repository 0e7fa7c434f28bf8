package api

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is an exact monetary value in major units. It is encoded as a bare
// JSON number and accepts both numbers and strings when decoding.
type Amount struct {
	decimal.Decimal
}

// NewAmount returns the amount closest to f.
func NewAmount(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

// ParseAmount parses a decimal string such as "-12.50".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return Amount{d}, nil
}

// MustAmount is like ParseAmount but panics on error. For literals only.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Equal compares the numeric values, ignoring representation ("5" == "5.00").
func (a Amount) Equal(b Amount) bool { return a.Decimal.Equal(b.Decimal) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}
