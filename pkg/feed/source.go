package feed

import (
	"context"
	"time"

	"github.com/citizenwallet/feed/internal/common"
	"github.com/citizenwallet/feed/pkg/indexer"
)

// Window describes one page of a source, anchored at FromDate
type Window struct {
	Account  string
	FromDate time.Time
	Limit    int
	Offset   int
}

type Page struct {
	Transfers []*indexer.Transfer
	Meta      *common.Pagination

	// Dropped counts records the source returned but could not decode, they still
	// count toward the page size when deciding whether more pages follow
	Dropped int
}

// Source fetches one window of transfer-like records and normalizes them into transfers
type Source interface {
	Name() string
	FetchWindow(ctx context.Context, w Window) (*Page, error)
}

// Params are the query parameters understood by the indexer
type Params struct {
	FromDate time.Time
	Limit    int
	Offset   int
}

// TransferIndexer is the primary indexer as the feed consumes it
type TransferIndexer interface {
	GetNewTransfers(ctx context.Context, tokenAddress, account string, p Params) (*Page, error)
	GetAllNewTransfers(ctx context.Context, tokenAddress string, p Params) (*Page, error)
}

type indexerSource struct {
	name         string
	tokenAddress string
	idx          TransferIndexer
}

// NewIndexerSource wraps the primary indexer. When the window carries an account only
// the transfers of that account are queried, otherwise all transfers of the token.
func NewIndexerSource(name, tokenAddress string, idx TransferIndexer) Source {
	return &indexerSource{
		name:         name,
		tokenAddress: tokenAddress,
		idx:          idx,
	}
}

func (s *indexerSource) Name() string {
	return s.name
}

func (s *indexerSource) FetchWindow(ctx context.Context, w Window) (*Page, error) {
	p := Params{
		FromDate: w.FromDate,
		Limit:    w.Limit,
		Offset:   w.Offset,
	}

	var page *Page
	var err error
	if w.Account != "" {
		page, err = s.idx.GetNewTransfers(ctx, s.tokenAddress, w.Account, p)
	} else {
		page, err = s.idx.GetAllNewTransfers(ctx, s.tokenAddress, p)
	}
	if err != nil {
		return nil, err
	}

	if page == nil {
		page = &Page{}
	}
	if page.Transfers == nil {
		page.Transfers = []*indexer.Transfer{}
	}

	return page, nil
}
