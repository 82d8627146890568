package giveth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/citizenwallet/feed/internal/common"
	"github.com/citizenwallet/feed/internal/metrics"
	"github.com/citizenwallet/feed/pkg/feed"
	"github.com/citizenwallet/feed/pkg/indexer"
	"go.uber.org/zap"
)

const (
	SourceName = "giveth"
	via        = "giveth"
)

var (
	ErrMissingID     = errors.New("missing donation id")
	ErrMissingDate   = errors.New("missing donation date")
	ErrUnknownStatus = errors.New("unknown donation status")
)

// DonationGetter is the part of the Giveth api the source needs
type DonationGetter interface {
	GetDonations(ctx context.Context, q Query) ([]json.RawMessage, error)
}

type Source struct {
	client    DonationGetter
	projectID int
	account   string
	decimals  int
	logger    *zap.Logger
}

// NewSource credits the donations of the project to account, the project address of
// the donations endpoint is the account itself
func NewSource(client DonationGetter, projectID int, account string, decimals int, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Source{
		client:    client,
		projectID: projectID,
		account:   account,
		decimals:  decimals,
		logger:    logger.With(zap.String("source", SourceName), zap.Int("project_id", projectID)),
	}
}

func (s *Source) Name() string {
	return SourceName
}

func (s *Source) FetchWindow(ctx context.Context, w feed.Window) (*feed.Page, error) {
	records, err := s.client.GetDonations(ctx, Query{
		ProjectID:      s.projectID,
		ProjectAddress: s.account,
		FromDate:       w.FromDate,
		Take:           w.Limit,
		Skip:           w.Offset,
	})
	if err != nil {
		return nil, err
	}

	transfers := make([]*indexer.Transfer, 0, len(records))
	for i, raw := range records {
		d, err := ParseDonation(raw)
		if err != nil {
			s.logger.Warn("dropping malformed donation", zap.Int("index", i), zap.Error(err))
			metrics.SourceRecordsDropped.WithLabelValues(SourceName).Inc()
			continue
		}

		t, err := s.normalize(d)
		if err != nil {
			s.logger.Warn("dropping donation", zap.String("id", d.ID.String()), zap.Error(err))
			metrics.SourceRecordsDropped.WithLabelValues(SourceName).Inc()
			continue
		}

		transfers = append(transfers, t)
	}

	return &feed.Page{Transfers: transfers}, nil
}

func status(s string) (indexer.TransferStatus, error) {
	if s == "verified" {
		return indexer.TransferStatusSuccess, nil
	}

	st, err := indexer.TransferStatusFromString(s)
	if err != nil {
		return indexer.TransferStatusUnknown, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}

	return st, nil
}

func (s *Source) normalize(d Donation) (*indexer.Transfer, error) {
	if d.ID == "" {
		return nil, ErrMissingID
	}

	if d.CreatedAt.IsZero() {
		return nil, ErrMissingDate
	}

	st, err := status(d.Status)
	if err != nil {
		return nil, err
	}

	value, err := common.ToUnits(d.Amount, s.decimals)
	if err != nil {
		return nil, fmt.Errorf("amount %s: %w", d.Amount, err)
	}

	from := d.FromWalletAddress
	var profile *indexer.TransferProfile
	if d.User != nil && d.User.Name != "" {
		from = d.User.Name
		profile = &indexer.TransferProfile{
			Name:   d.User.Name,
			ImgSrc: d.User.Avatar,
		}
	}

	amount := d.Amount

	return &indexer.Transfer{
		Hash:      indexer.SyntheticHash(SourceName + ":" + d.ID.String()),
		TxHash:    d.TransactionID,
		CreatedAt: d.CreatedAt,
		From:      from,
		To:        s.account,
		Value:     value,
		Status:    st,
		Data: &indexer.TransferData{
			Description: fmt.Sprintf("Donation of %s %s", amount.String(), d.Currency),
			Amount:      &amount,
			Currency:    d.Currency,
			ValueUSD:    d.ValueUSD,
			Via:         via,
		},
		FromProfile: profile,
	}, nil
}
