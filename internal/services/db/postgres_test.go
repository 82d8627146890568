package db

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNameSuffix(t *testing.T) {
	d := NewPostgresDBFromConn(nil, big.NewInt(42220), nil)

	suffix, err := d.TableNameSuffix("0x5815E61eF72c9E6107b5c5A05FD121F334f7a7f1")
	require.NoError(t, err)
	assert.Equal(t, "42220_0x5815e61ef72c9e6107b5c5a05fd121f334f7a7f1", suffix)

	for _, bad := range []string{"", "0x123", "5815E61eF72c9E6107b5c5A05FD121F334f7a7f1", "0x5815E61eF72c9E6107b5c5A05FD121F334f7a7f1; DROP TABLE x"} {
		_, err := d.TableNameSuffix(bad)
		assert.ErrorIs(t, err, ErrBadContract, bad)
	}
}

func TestGetTransferDBBadContract(t *testing.T) {
	d := NewPostgresDBFromConn(nil, big.NewInt(42220), nil)

	_, err := d.GetTransferDB(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, ErrBadContract)
	assert.Empty(t, d.TransferDB)
}

func TestConnString(t *testing.T) {
	assert.Equal(t,
		"user=feed password=secret dbname=indexer host=localhost port=5432 sslmode=disable",
		ConnString("feed", "secret", "indexer", "localhost"))
}
