package sponsors

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/citizenwallet/feed/pkg/feed"
	"github.com/citizenwallet/feed/pkg/indexer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const regenVillage = "0x32330e05494177CF452F4093290306c4598ddA98"

const sponsorsJSON = `[
	{"name": "Superchain", "date": "2024-07-04", "amount": 10000, "avatar": "https://example.com/superchain.png"},
	{"name": "Tickets via lu.ma", "date": "2024-07-11", "amount": 6105.78, "avatar": "https://example.com/luma.png"},
	{"name": "Broken date", "date": "July 4th", "amount": 10, "avatar": ""}
]`

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sponsors.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

func TestLoad(t *testing.T) {
	records, err := Load(writeFile(t, sponsorsJSON))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Tickets via lu.ma", records[1].Name)
	assert.Equal(t, "6105.78", records[1].Amount.String())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Load(writeFile(t, "{"))
	assert.Error(t, err)
}

func TestSource(t *testing.T) {
	records, err := Load(writeFile(t, sponsorsJSON))
	require.NoError(t, err)

	src := NewSource(records, regenVillage, 6, DefaultRate, zaptest.NewLogger(t))
	assert.Equal(t, SourceName, src.Name())

	page, err := src.FetchWindow(context.Background(), feed.Window{Limit: 100})
	require.NoError(t, err)

	require.Len(t, page.Transfers, 2)

	tx := page.Transfers[1]
	assert.Equal(t, "Tickets via lu.ma", tx.From)
	assert.Equal(t, regenVillage, tx.To)
	assert.Equal(t, time.Date(2024, 7, 11, 0, 0, 0, 0, time.UTC), tx.CreatedAt)
	assert.Equal(t, "6105780000", tx.Value.String())
	assert.Equal(t, indexer.TransferStatusSuccess, tx.Status)
	assert.Equal(t, "Sponsorship of 6105.78 euros", tx.Data.Description)
	assert.Equal(t, "EUR", tx.Data.Currency)
	assert.Equal(t, "IBAN", tx.Data.Via)
	// round(1.08 * 6105.78) = round(6594.2424)
	assert.Equal(t, "6594", tx.Data.ValueUSD.String())
	assert.Equal(t, "https://example.com/luma.png", tx.FromProfile.ImgSrc)
}

func TestSourceDeterministic(t *testing.T) {
	records := []Record{{Name: "Gnosis", Date: "2024-07-04", Amount: decimal.NewFromInt(5000)}}

	a := NewSource(records, regenVillage, 6, DefaultRate, nil)
	b := NewSource(records, regenVillage, 6, DefaultRate, nil)

	pa, err := a.FetchWindow(context.Background(), feed.Window{})
	require.NoError(t, err)
	pb, err := b.FetchWindow(context.Background(), feed.Window{})
	require.NoError(t, err)

	assert.Equal(t, pa.Transfers[0].Hash, pb.Transfers[0].Hash)

	// records differing in amount do not collide
	c := NewSource([]Record{{Name: "Gnosis", Date: "2024-07-04", Amount: decimal.NewFromInt(5001)}}, regenVillage, 6, DefaultRate, nil)
	pc, err := c.FetchWindow(context.Background(), feed.Window{})
	require.NoError(t, err)
	assert.NotEqual(t, pa.Transfers[0].Hash, pc.Transfers[0].Hash)
}

func TestSourceReturnsCopies(t *testing.T) {
	src := NewSource([]Record{{Name: "Octant", Date: "2024-07-04", Amount: decimal.NewFromInt(5000)}}, regenVillage, 6, DefaultRate, nil)

	page, err := src.FetchWindow(context.Background(), feed.Window{})
	require.NoError(t, err)
	page.Transfers[0].Value.SetInt64(1)

	page, err = src.FetchWindow(context.Background(), feed.Window{})
	require.NoError(t, err)
	assert.Equal(t, "5000000000", page.Transfers[0].Value.String())
}
