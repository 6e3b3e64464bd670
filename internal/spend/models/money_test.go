package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr error
	}{
		{name: "two decimals", input: "19.99", want: 1999},
		{name: "whole units", input: "5", want: 500},
		{name: "one decimal", input: "0.5", want: 50},
		{name: "surrounding space", input: " 12.30 ", want: 1230},
		{name: "column maximum", input: "99999999.99", want: MaxMoney},
		{name: "three decimals", input: "1.234", wantErr: ErrInvalidAmount},
		{name: "negative", input: "-1", wantErr: ErrInvalidAmount},
		{name: "exponent", input: "1e3", wantErr: ErrInvalidAmount},
		{name: "empty", input: "", wantErr: ErrInvalidAmount},
		{name: "one above column maximum", input: "100000000", wantErr: ErrAmountTooLarge},
		{name: "far above column maximum", input: "123456789012.50", wantErr: ErrAmountTooLarge},
		{name: "beyond int64", input: "92233720368547758079", wantErr: ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "19.99", Money(1999).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "99999999.99", MaxMoney.String())
}
