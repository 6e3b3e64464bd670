package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidAmount is returned when a decimal string is not a non-negative
	// amount with at most two fractional digits.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountTooLarge is returned for amounts above MaxMoney.
	ErrAmountTooLarge = errors.New("amount too large")
)

// MaxMoney is the largest amount a NUMERIC(10,2) column holds.
const MaxMoney Money = 99999999_99

var amountPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// Money is an amount held in cents so that two-decimal values never drift.
type Money int64

// ParseMoney converts a decimal string such as "19.99" into Money.
//
//	ParseMoney("19.99")     -> 1999, nil
//	ParseMoney("5")         -> 500, nil
//	ParseMoney("1.234")     -> 0, ErrInvalidAmount
//	ParseMoney("100000000") -> 0, ErrAmountTooLarge
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return 0, ErrInvalidAmount
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	// The pattern admits only digits, so a parse error means out of range.
	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || units > int64(MaxMoney/100) {
		return 0, ErrAmountTooLarge
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}
	cents, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return Money(units*100 + cents), nil
}

// ValidAmount reports whether s is a well-formed amount. It does not check
// the upper bound; see ParseMoney.
func ValidAmount(s string) bool {
	return amountPattern.MatchString(strings.TrimSpace(s))
}

// MoneyFromFloat rounds f to the nearest cent.
func MoneyFromFloat(f float64) Money {
	return Money(math.Round(f * 100))
}

// Cents returns the raw amount in cents.
func (m Money) Cents() int64 { return int64(m) }

// Float64 returns the amount in currency units.
func (m Money) Float64() float64 { return float64(m) / 100 }

// Mul multiplies the amount by a quantity, e.g. a seat count.
func (m Money) Mul(n int64) Money { return m * Money(n) }

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	sign := ""
	c := int64(m)
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// MarshalJSON encodes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Float64(), 'f', -1, 64)), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw DecimalInput
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, raw)
	}
	*m = MoneyFromFloat(f)
	return nil
}

// Value stores the amount as a decimal string, which numeric columns accept.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan reads numeric columns and aggregates. Drivers return them as text,
// bytes, floats or integers depending on the backend.
func (m *Money) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = 0
	case int64:
		*m = Money(v * 100)
	case float64:
		*m = MoneyFromFloat(v)
	case []byte:
		return m.scanText(string(v))
	case string:
		return m.scanText(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
	return nil
}

func (m *Money) scanText(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("cannot scan %q into Money: %w", s, err)
	}
	*m = MoneyFromFloat(f)
	return nil
}

// DecimalInput keeps the literal text of a submitted amount, whether it was
// sent as a JSON number or as a string, so it can be validated textually.
type DecimalInput string

// UnmarshalJSON stores strings unquoted and any other literal verbatim.
func (d *DecimalInput) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = DecimalInput(s)
		return nil
	}
	*d = DecimalInput(data)
	return nil
}

// String returns the submitted text.
func (d DecimalInput) String() string { return string(d) }
