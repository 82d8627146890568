package opencollective

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/citizenwallet/feed/internal/common"
	"github.com/citizenwallet/feed/internal/metrics"
	"github.com/citizenwallet/feed/pkg/feed"
	"github.com/citizenwallet/feed/pkg/indexer"
	"go.uber.org/zap"
)

const (
	SourceName = "opencollective"
	via        = "opencollective"
)

var (
	ErrMissingID   = errors.New("missing transaction id")
	ErrMissingDate = errors.New("missing transaction date")
)

// TransactionGetter is the part of the OpenCollective api the source needs
type TransactionGetter interface {
	GetTransactions(ctx context.Context, slug string, fromDate time.Time, offset, limit int) ([]json.RawMessage, error)
}

type Source struct {
	client   TransactionGetter
	slug     string
	account  string
	decimals int
	logger   *zap.Logger
}

// NewSource credits the transactions of the collective slug to account
func NewSource(client TransactionGetter, slug, account string, decimals int, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Source{
		client:   client,
		slug:     slug,
		account:  account,
		decimals: decimals,
		logger:   logger.With(zap.String("source", SourceName), zap.String("slug", slug)),
	}
}

func (s *Source) Name() string {
	return SourceName
}

func (s *Source) FetchWindow(ctx context.Context, w feed.Window) (*feed.Page, error) {
	nodes, err := s.client.GetTransactions(ctx, s.slug, w.FromDate, w.Offset, w.Limit)
	if err != nil {
		return nil, err
	}

	transfers := make([]*indexer.Transfer, 0, len(nodes))
	for i, raw := range nodes {
		tx, err := ParseTransaction(raw)
		if err != nil {
			s.logger.Warn("dropping malformed transaction", zap.Int("index", i), zap.Error(err))
			metrics.SourceRecordsDropped.WithLabelValues(SourceName).Inc()
			continue
		}

		t, err := s.normalize(tx)
		if err != nil {
			s.logger.Warn("dropping transaction", zap.String("id", tx.ID), zap.Error(err))
			metrics.SourceRecordsDropped.WithLabelValues(SourceName).Inc()
			continue
		}

		transfers = append(transfers, t)
	}

	return &feed.Page{Transfers: transfers}, nil
}

func (s *Source) normalize(tx Transaction) (*indexer.Transfer, error) {
	if tx.ID == "" {
		return nil, ErrMissingID
	}

	if tx.CreatedAt.IsZero() {
		return nil, ErrMissingDate
	}

	value, err := common.ToUnits(tx.Amount.Value, s.decimals)
	if err != nil {
		return nil, fmt.Errorf("amount %s: %w", tx.Amount.Value, err)
	}

	from := s.slug
	var profile *indexer.TransferProfile
	if tx.FromAccount != nil {
		from = tx.FromAccount.Name
		if from == "" {
			from = tx.FromAccount.Slug
		}

		profile = &indexer.TransferProfile{
			Name:   from,
			ImgSrc: tx.FromAccount.ImageURL,
		}
	}

	amount := tx.Amount.Value

	return &indexer.Transfer{
		Hash:      indexer.SyntheticHash(SourceName + ":" + tx.ID),
		CreatedAt: tx.CreatedAt,
		From:      from,
		To:        s.account,
		Value:     value,
		Status:    indexer.TransferStatusSuccess,
		Data: &indexer.TransferData{
			Description: tx.Description,
			Amount:      &amount,
			Currency:    tx.Amount.Currency,
			Via:         via,
		},
		FromProfile: profile,
	}, nil
}
