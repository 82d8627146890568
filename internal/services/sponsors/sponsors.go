package sponsors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/citizenwallet/feed/internal/common"
	"github.com/citizenwallet/feed/internal/metrics"
	"github.com/citizenwallet/feed/internal/storage"
	"github.com/citizenwallet/feed/pkg/feed"
	"github.com/citizenwallet/feed/pkg/indexer"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	SourceName = "sponsors"
	currency   = "EUR"
	via        = "IBAN"
	dateLayout = "2006-01-02"
)

// DefaultRate converts euros to dollars for the valueUsd annotation
var DefaultRate = decimal.RequireFromString("1.08")

var ErrNotFound = errors.New("sponsors file not found")

// Record is a sponsorship paid outside of the chain
type Record struct {
	Name   string          `json:"name"`
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Avatar string          `json:"avatar"`
}

// Load reads the records from a json file
func Load(path string) ([]Record, error) {
	if !storage.Exists(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	b, err := storage.Read(path)
	if err != nil {
		return nil, err
	}

	var records []Record
	err = json.Unmarshal(b, &records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return records, nil
}

// Source serves a fixed list of sponsorships. It ignores the window: the records are
// meant to be merged once per backfill, along with its first page.
type Source struct {
	transfers []*indexer.Transfer
}

// NewSource normalizes the records once, records that cannot be normalized are dropped
func NewSource(records []Record, account string, decimals int, rate decimal.Decimal, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}

	txs := make([]*indexer.Transfer, 0, len(records))
	for _, r := range records {
		tx, err := normalize(r, account, decimals, rate)
		if err != nil {
			logger.Warn("dropping sponsorship", zap.String("source", SourceName), zap.String("name", r.Name), zap.Error(err))
			metrics.SourceRecordsDropped.WithLabelValues(SourceName).Inc()
			continue
		}

		txs = append(txs, tx)
	}

	return &Source{transfers: txs}
}

func (s *Source) Name() string {
	return SourceName
}

func (s *Source) FetchWindow(ctx context.Context, w feed.Window) (*feed.Page, error) {
	txs := make([]*indexer.Transfer, 0, len(s.transfers))
	for _, tx := range s.transfers {
		txs = append(txs, tx.Clone())
	}

	return &feed.Page{Transfers: txs}, nil
}

func normalize(r Record, account string, decimals int, rate decimal.Decimal) (*indexer.Transfer, error) {
	if r.Name == "" {
		return nil, errors.New("missing name")
	}

	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", r.Date, err)
	}

	value, err := common.ToUnits(r.Amount, decimals)
	if err != nil {
		return nil, fmt.Errorf("amount %s: %w", r.Amount, err)
	}

	amount := r.Amount
	usd := rate.Mul(amount).Round(0)

	hash := indexer.SyntheticHash(SourceName, r.Name, r.Date, r.Amount.String())

	return &indexer.Transfer{
		Hash:      hash,
		TxHash:    hash,
		CreatedAt: date,
		From:      r.Name,
		To:        account,
		Value:     value,
		Status:    indexer.TransferStatusSuccess,
		Data: &indexer.TransferData{
			Description: fmt.Sprintf("Sponsorship of %s euros", amount.String()),
			Amount:      &amount,
			Currency:    currency,
			ValueUSD:    &usd,
			Via:         via,
		},
		FromProfile: &indexer.TransferProfile{
			Name:   r.Name,
			ImgSrc: r.Avatar,
		},
	}, nil
}
