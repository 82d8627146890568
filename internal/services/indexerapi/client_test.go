package indexerapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/citizenwallet/feed/pkg/feed"
	"github.com/citizenwallet/feed/pkg/indexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	token   = "0x5815E61eF72c9E6107b5c5A05FD121F334f7a7f1"
	account = "0xE5c30d9f83C2FfFf6995d27F340F2BdBB997747E"
)

const transfersResponse = `{
	"response_type": "array",
	"array": [
		{
			"hash": "0xabc",
			"tx_hash": "0xdef",
			"token_id": 0,
			"created_at": "2024-07-04T12:00:00Z",
			"from": "0x0000000000000000000000000000000000000001",
			"to": "0xE5c30d9f83C2FfFf6995d27F340F2BdBB997747E",
			"nonce": 3,
			"value": 1500000,
			"data": null,
			"status": "success"
		}
	],
	"meta": {"limit": 10, "offset": 0, "total": 1}
}`

func TestGetNewTransfers(t *testing.T) {
	from := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logs/v2/transfers/"+token+"/"+account+"/new", r.URL.Path)
		assert.Equal(t, "2024-07-01T00:00:00Z", r.URL.Query().Get("fromDate"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "20", r.URL.Query().Get("offset"))
		assert.Equal(t, "Bearer secret", r.Header.Get(indexer.AuthorizationHeader))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(transfersResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret")

	page, err := c.GetNewTransfers(context.Background(), token, account, feed.Params{FromDate: from, Limit: 10, Offset: 20})
	require.NoError(t, err)

	txs := page.Transfers
	require.Len(t, txs, 1)
	assert.Equal(t, "0xabc", txs[0].Hash)
	assert.Equal(t, int64(1500000), txs[0].Value.Int64())
	assert.Equal(t, indexer.TransferStatusSuccess, txs[0].Status)
	assert.Equal(t, time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC), txs[0].CreatedAt.UTC())
	assert.Nil(t, txs[0].Data)

	require.NotNil(t, page.Meta)
	assert.Equal(t, 1, page.Meta.Total)
	assert.Zero(t, page.Dropped)
}

func TestGetAllNewTransfers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logs/v2/transfers/"+token+"/new", r.URL.Path)
		assert.Empty(t, r.Header.Get(indexer.AuthorizationHeader))

		w.Write([]byte(`{"response_type": "array", "array": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")

	page, err := c.GetAllNewTransfers(context.Background(), token, feed.Params{FromDate: time.Now(), Limit: 100})
	require.NoError(t, err)
	assert.NotNil(t, page.Transfers)
	assert.Empty(t, page.Transfers)
	assert.Nil(t, page.Meta)
}

func TestGetTransfersErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "").GetAllNewTransfers(context.Background(), token, feed.Params{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("object response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response_type": "object", "object": {}}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "").GetAllNewTransfers(context.Background(), token, feed.Params{})
		assert.ErrorIs(t, err, ErrUnexpectedResponse)
	})

	t.Run("malformed array", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response_type": "array", "array": {"hash": "0xabc"}}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "").GetAllNewTransfers(context.Background(), token, feed.Params{})
		assert.Error(t, err)
	})
}

func TestGetTransfersSkipsBadRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"response_type": "array",
			"array": [
				{"hash": "0x01", "created_at": "2024-07-04T12:00:00Z", "value": 1, "status": "success"},
				{"hash": "0x02", "created_at": "2024-07-04T11:00:00Z", "value": "nope", "status": "success"},
				null,
				{"hash": "0x04", "created_at": "2024-07-04T10:00:00Z", "value": 4, "status": "success"}
			]
		}`))
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL, "").GetAllNewTransfers(context.Background(), token, feed.Params{Limit: 4})
	require.NoError(t, err)

	require.Len(t, page.Transfers, 2)
	assert.Equal(t, "0x01", page.Transfers[0].Hash)
	assert.Equal(t, "0x04", page.Transfers[1].Hash)
	assert.Equal(t, 2, page.Dropped)

	for _, tx := range page.Transfers {
		assert.NotNil(t, tx)
	}
}

func TestParseTransfer(t *testing.T) {
	_, err := ParseTransfer([]byte(`null`))
	assert.Error(t, err)

	_, err = ParseTransfer([]byte(`{"value": "nope"}`))
	assert.Error(t, err)

	tx, err := ParseTransfer([]byte(`{"hash": "0xabc", "value": 7, "status": "pending"}`))
	require.NoError(t, err)
	assert.Equal(t, "0xabc", tx.Hash)
	assert.Equal(t, int64(7), tx.Value.Int64())
	assert.Equal(t, indexer.TransferStatusPending, tx.Status)
}

func TestIndexerSource(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(transfersResponse))
	}))
	defer srv.Close()

	src := feed.NewIndexerSource("indexer", token, NewClient(srv.URL, ""))

	page, err := src.FetchWindow(context.Background(), feed.Window{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Transfers, 1)

	_, err = src.FetchWindow(context.Background(), feed.Window{Account: account, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/logs/v2/transfers/" + token + "/new",
		"/logs/v2/transfers/" + token + "/" + account + "/new",
	}, paths)
}
