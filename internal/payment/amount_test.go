package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		decimals uint8
		want     uint64
		wantErr  error
	}{
		{name: "whole", amount: "3", decimals: 6, want: 3_000_000},
		{name: "fractional", amount: "12.5", decimals: 6, want: 12_500_000},
		{name: "one base unit", amount: "0.000001", decimals: 6, want: 1},
		{name: "zero decimals mint", amount: "42", decimals: 0, want: 42},
		{name: "zero", amount: "0", decimals: 6, wantErr: ErrNonPositiveAmount},
		{name: "negative", amount: "-1.5", decimals: 6, wantErr: ErrNonPositiveAmount},
		{name: "sub base unit", amount: "0.0000001", decimals: 6, wantErr: ErrAmountPrecision},
		{name: "extra precision on whole part", amount: "1.0000005", decimals: 6, wantErr: ErrAmountPrecision},
		{name: "overflow", amount: "18446744073709.551616", decimals: 6, wantErr: ErrAmountRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tc.amount)
			require.NoError(t, err)

			got, err := ToBaseUnits(amount, tc.decimals)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestFromBaseUnitsRoundTrips(t *testing.T) {
	amount := decimal.RequireFromString("12.5")
	units, err := ToBaseUnits(amount, 6)
	require.NoError(t, err)
	require.True(t, amount.Equal(FromBaseUnits(units, 6)))
}
