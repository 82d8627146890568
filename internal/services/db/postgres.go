package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"sync"

	"github.com/citizenwallet/feed/internal/common"
	"github.com/citizenwallet/feed/pkg/feed"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	ErrBadContract     = errors.New("bad contract address")
	ErrTransferTable   = errors.New("transfer table does not exist")
	contractAddressExp = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")
)

// PostgresDB reads the transfer tables the indexer writes. It never writes.
type PostgresDB struct {
	chainID *big.Int
	tokenID int64
	logger  *zap.Logger

	mu sync.Mutex
	db *sql.DB

	TransferDB map[string]*TransferDB
}

func ConnString(username, password, name, host string) string {
	return fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=5432 sslmode=disable", username, password, name, host)
}

func NewPostgresDB(ctx context.Context, chainID *big.Int, username, password, name, host string, logger *zap.Logger) (*PostgresDB, error) {
	db, err := sql.Open("postgres", ConnString(username, password, name, host))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresDBFromConn(db, chainID, logger), nil
}

// NewPostgresDBFromConn wraps an open connection
func NewPostgresDBFromConn(db *sql.DB, chainID *big.Int, logger *zap.Logger) *PostgresDB {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PostgresDB{
		chainID:    chainID,
		logger:     logger,
		db:         db,
		TransferDB: map[string]*TransferDB{},
	}
}

// TransferTableExists checks if a table exists in the database
func (d *PostgresDB) TransferTableExists(ctx context.Context, suffix string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `
    SELECT EXISTS (
        SELECT 1
        FROM information_schema.tables
        WHERE table_schema = 'public'
        AND table_name = $1
    );
    `, fmt.Sprintf("t_transfers_%s", suffix)).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// TableNameSuffix returns the name of the transfer db for the given contract
func (d *PostgresDB) TableNameSuffix(contract string) (string, error) {
	suffix := fmt.Sprintf("%v_%s", d.chainID, strings.ToLower(contract))

	if !contractAddressExp.MatchString(contract) {
		return suffix, ErrBadContract
	}

	return suffix, nil
}

// GetTransferDB returns the transfer db for the given contract, the table is checked
// the first time it is requested
func (d *PostgresDB) GetTransferDB(ctx context.Context, contract string) (*TransferDB, error) {
	name, err := d.TableNameSuffix(contract)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if txdb, ok := d.TransferDB[name]; ok {
		return txdb, nil
	}

	exists, err := d.TransferTableExists(ctx, name)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, fmt.Errorf("%w: t_transfers_%s", ErrTransferTable, name)
	}

	d.logger.Info("opening transfer db", zap.String("table", name))

	txdb := NewTransferDB(d.db, name)
	d.TransferDB[name] = txdb

	return txdb, nil
}

// GetNewTransfers returns the transfers of account on the token contract created from the given date
func (d *PostgresDB) GetNewTransfers(ctx context.Context, tokenAddress, account string, p feed.Params) (*feed.Page, error) {
	txdb, err := d.GetTransferDB(ctx, tokenAddress)
	if err != nil {
		return nil, err
	}

	txs, err := txdb.GetNewTransfers(ctx, d.tokenID, common.ChecksumAddress(account), p.FromDate, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}

	return &feed.Page{Transfers: txs, Meta: &common.Pagination{Limit: p.Limit, Offset: p.Offset, Total: len(txs)}}, nil
}

// GetAllNewTransfers returns the transfers on the token contract created from the given date
func (d *PostgresDB) GetAllNewTransfers(ctx context.Context, tokenAddress string, p feed.Params) (*feed.Page, error) {
	txdb, err := d.GetTransferDB(ctx, tokenAddress)
	if err != nil {
		return nil, err
	}

	txs, err := txdb.GetAllNewTransfers(ctx, d.tokenID, p.FromDate, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}

	return &feed.Page{Transfers: txs, Meta: &common.Pagination{Limit: p.Limit, Offset: p.Offset, Total: len(txs)}}, nil
}

// Close closes the db
func (d *PostgresDB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name := range d.TransferDB {
		delete(d.TransferDB, name)
	}

	return d.db.Close()
}
