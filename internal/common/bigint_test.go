package common

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int
		want     string
	}{
		{"10000", 6, "10000000000"},
		{"6105.78", 6, "6105780000"},
		{"1500.21", 6, "1500210000"},
		{"0.0000001", 6, "0"},
		{"1.9999999", 6, "1999999"},
		{"25", 0, "25"},
		{"1", 18, "1000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			v, err := ToUnits(decimal.RequireFromString(tt.amount), tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}

	_, err := ToUnits(decimal.RequireFromString("-1"), 6)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestFromUnits(t *testing.T) {
	assert.True(t, decimal.RequireFromString("6105.78").Equal(FromUnits(big.NewInt(6105780000), 6)))
	assert.True(t, decimal.Zero.Equal(FromUnits(nil, 6)))
}
