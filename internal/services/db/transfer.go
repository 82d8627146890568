package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/citizenwallet/feed/pkg/indexer"
)

const transferColumns = `hash, tx_hash, token_id, created_at, from_addr, to_addr, nonce, value, data, status`

type TransferDB struct {
	suffix string
	rdb    *sql.DB
}

// NewTransferDB creates a reader for one transfer table
func NewTransferDB(rdb *sql.DB, name string) *TransferDB {
	return &TransferDB{
		suffix: name,
		rdb:    rdb,
	}
}

// GetAllNewTransfers returns the transfers from a given date
func (db *TransferDB) GetAllNewTransfers(ctx context.Context, tokenId int64, fromDate time.Time, limit, offset int) ([]*indexer.Transfer, error) {
	rows, err := db.rdb.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM t_transfers_%s
		WHERE created_at >= $1 AND token_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
		`, transferColumns, db.suffix), fromDate, tokenId, limit, offset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*indexer.Transfer{}, nil
		}

		return nil, err
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// GetNewTransfers returns the transfers for a given from_addr or to_addr from a given date
func (db *TransferDB) GetNewTransfers(ctx context.Context, tokenId int64, addr string, fromDate time.Time, limit, offset int) ([]*indexer.Transfer, error) {
	rows, err := db.rdb.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM t_transfers_%s
		WHERE created_at >= $1 AND token_id = $2 AND from_addr = $3
		UNION ALL
		SELECT %s
		FROM t_transfers_%s
		WHERE created_at >= $1 AND token_id = $2 AND to_addr = $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
		`, transferColumns, db.suffix, transferColumns, db.suffix), fromDate, tokenId, addr, limit, offset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*indexer.Transfer{}, nil
		}

		return nil, err
	}
	defer rows.Close()

	return scanTransfers(rows)
}

func scanTransfers(rows *sql.Rows) ([]*indexer.Transfer, error) {
	transfers := []*indexer.Transfer{}

	for rows.Next() {
		var transfer indexer.Transfer
		var value string

		err := rows.Scan(&transfer.Hash, &transfer.TxHash, &transfer.TokenID, &transfer.CreatedAt, &transfer.From, &transfer.To, &transfer.Nonce, &value, &transfer.Data, &transfer.Status)
		if err != nil {
			return nil, err
		}

		v, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return nil, fmt.Errorf("transfer %s: bad value %q", transfer.Hash, value)
		}
		transfer.Value = v

		transfers = append(transfers, &transfer)
	}

	return transfers, rows.Err()
}
