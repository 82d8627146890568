package giveth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const regenVillage = "0x32330e05494177CF452F4093290306c4598ddA98"

const donationsBody = `{
	"transfers": [
		{
			"id": 88123,
			"transactionId": "0x8f2c",
			"amount": 120.5,
			"currency": "DAI",
			"valueUsd": 120.43,
			"createdAt": "2024-07-12T18:04:05.000Z",
			"fromWalletAddress": "0x0000000000000000000000000000000000000abc",
			"status": "verified",
			"user": {"name": "Alice", "avatar": "https://giveth.io/alice.png"}
		}
	]
}`

func TestGetDonations(t *testing.T) {
	from := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1871", q.Get("projectId"))
		assert.Equal(t, regenVillage, q.Get("projectAddress"))
		assert.Equal(t, "2024-07-01T00:00:00Z", q.Get("fromDate"))
		assert.Equal(t, "100", q.Get("take"))
		assert.Equal(t, "200", q.Get("skip"))

		w.Write([]byte(donationsBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	ds, err := c.GetDonations(context.Background(), Query{
		ProjectID:      1871,
		ProjectAddress: regenVillage,
		FromDate:       from,
		Take:           100,
		Skip:           200,
	})
	require.NoError(t, err)
	require.Len(t, ds, 1)

	d, err := ParseDonation(ds[0])
	require.NoError(t, err)
	assert.Equal(t, "88123", d.ID.String())
	assert.Equal(t, "120.5", d.Amount.String())
	assert.Equal(t, "120.43", d.ValueUSD.String())
	assert.Equal(t, "verified", d.Status)
	assert.Equal(t, "Alice", d.User.Name)
}

func TestParseDonation(t *testing.T) {
	_, err := ParseDonation([]byte(`{"id": 1, "amount": "oops", "status": "verified"}`))
	assert.Error(t, err)

	_, err = ParseDonation([]byte(`{"id": 1, "amount": 1, "createdAt": "last week"}`))
	assert.Error(t, err)
}

func TestGetDonationsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetDonations(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
