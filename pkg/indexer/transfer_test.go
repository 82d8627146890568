package indexer

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticHash(t *testing.T) {
	a := SyntheticHash("opencollective", "abc")
	b := SyntheticHash("opencollective", "abc")

	assert.Equal(t, a, b)
	assert.Len(t, a, 66)
	assert.Equal(t, "0x", a[:2])

	assert.NotEqual(t, a, SyntheticHash("giveth", "abc"))
	// parts are separated so they cannot shift into each other
	assert.NotEqual(t, SyntheticHash("ab", "c"), SyntheticHash("a", "bc"))
}

func TestTransferStatusFromString(t *testing.T) {
	cases := map[string]TransferStatus{
		"sending": TransferStatusSending,
		"pending": TransferStatusPending,
		"success": TransferStatusSuccess,
		"fail":    TransferStatusFail,
		"failed":  TransferStatusFail,
	}

	for in, want := range cases {
		got, err := TransferStatusFromString(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := TransferStatusFromString("verified")
	assert.Error(t, err)
}

func TestClone(t *testing.T) {
	usd := decimal.NewFromInt(10)
	tx := &Transfer{
		Hash:        "0x1",
		CreatedAt:   time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC),
		Value:       big.NewInt(100),
		Data:        &TransferData{Description: "coffee", ValueUSD: &usd},
		Status:      TransferStatusSuccess,
		FromProfile: &TransferProfile{Name: "Alice"},
	}

	c := tx.Clone()
	require.Equal(t, tx, c)

	c.Value.SetInt64(5)
	c.Data.Description = "tea"
	c.FromProfile.Name = "Bob"

	assert.Equal(t, int64(100), tx.Value.Int64())
	assert.Equal(t, "coffee", tx.Data.Description)
	assert.Equal(t, "Alice", tx.FromProfile.Name)
}

func TestUpdate(t *testing.T) {
	tx := &Transfer{Hash: "0x1", Status: TransferStatusPending, Value: big.NewInt(1)}
	tx.Update(&Transfer{Hash: "0x1", TxHash: "0xabc", Status: TransferStatusSuccess, Value: big.NewInt(2)})

	assert.Equal(t, "0xabc", tx.TxHash)
	assert.Equal(t, TransferStatusSuccess, tx.Status)
	assert.Equal(t, int64(2), tx.Value.Int64())
}

func TestValueOrZero(t *testing.T) {
	assert.Equal(t, int64(0), (&Transfer{}).ValueOrZero().Int64())
	assert.Equal(t, int64(7), (&Transfer{Value: big.NewInt(7)}).ValueOrZero().Int64())
}

func TestTransferData(t *testing.T) {
	amount := decimal.RequireFromString("10.5")
	td := TransferData{Description: "Donation of 10.5 DAI", Amount: &amount, Currency: "DAI", Via: "giveth"}

	v, err := td.Value()
	require.NoError(t, err)

	b, ok := v.([]byte)
	require.True(t, ok)
	// the amount keeps the "value" key the presentation reads
	assert.Contains(t, string(b), `"value":"10.5"`)

	var scanned TransferData
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, td.Description, scanned.Description)
	assert.Equal(t, td.Currency, scanned.Currency)
	assert.Equal(t, td.Via, scanned.Via)
	require.NotNil(t, scanned.Amount)
	assert.True(t, amount.Equal(*scanned.Amount))
	assert.Nil(t, scanned.ValueUSD)

	var empty TransferData
	assert.NoError(t, empty.Scan(nil))
	assert.Error(t, empty.Scan("not bytes"))
}
