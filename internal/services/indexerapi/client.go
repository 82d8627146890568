package indexerapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/citizenwallet/feed/internal/common"
	"github.com/citizenwallet/feed/internal/metrics"
	"github.com/citizenwallet/feed/internal/ratelimit"
	"github.com/citizenwallet/feed/pkg/feed"
	"github.com/citizenwallet/feed/pkg/indexer"
)

const SourceName = "indexer"

var ErrUnexpectedResponse = errors.New("unexpected indexer response")

// Client reads transfers from the logs api of a citizen wallet indexer
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *ratelimit.Limiter
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// SetRateLimiter paces every request of the client
func (c *Client) SetRateLimiter(l *ratelimit.Limiter) {
	c.limiter = l
}

// GetNewTransfers returns the transfers of account created from p.FromDate, newest first
func (c *Client) GetNewTransfers(ctx context.Context, tokenAddress, account string, p feed.Params) (*feed.Page, error) {
	return c.getTransfers(ctx, fmt.Sprintf("/logs/v2/transfers/%s/%s/new", tokenAddress, account), p)
}

// GetAllNewTransfers returns the transfers of the token created from p.FromDate, newest first
func (c *Client) GetAllNewTransfers(ctx context.Context, tokenAddress string, p feed.Params) (*feed.Page, error) {
	return c.getTransfers(ctx, fmt.Sprintf("/logs/v2/transfers/%s/new", tokenAddress), p)
}

func (c *Client) getTransfers(ctx context.Context, path string, p feed.Params) (*feed.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("fromDate", p.FromDate.UTC().Format(time.RFC3339Nano))
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("offset", strconv.Itoa(p.Offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(indexer.AuthorizationHeader, "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var r common.Response
	err = json.Unmarshal(body, &r)
	if err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if r.ResponseType != common.ResponseTypeArray {
		return nil, fmt.Errorf("%w: response type %q", ErrUnexpectedResponse, r.ResponseType)
	}

	var raws []json.RawMessage
	if len(r.Array) > 0 {
		err = json.Unmarshal(r.Array, &raws)
		if err != nil {
			return nil, fmt.Errorf("unmarshal transfers: %w", err)
		}
	}

	// a record that does not decode is skipped, the rest of the page is still usable
	page := &feed.Page{Transfers: make([]*indexer.Transfer, 0, len(raws))}
	for _, raw := range raws {
		tx, err := ParseTransfer(raw)
		if err != nil {
			page.Dropped++
			metrics.SourceRecordsDropped.WithLabelValues(SourceName).Inc()
			continue
		}

		page.Transfers = append(page.Transfers, tx)
	}

	if len(r.Meta) > 0 && string(r.Meta) != "null" {
		page.Meta = &common.Pagination{}
		err = json.Unmarshal(r.Meta, page.Meta)
		if err != nil {
			return nil, fmt.Errorf("unmarshal meta: %w", err)
		}
	}

	return page, nil
}

// ParseTransfer decodes a single transfer of a logs response, null is rejected
func ParseTransfer(raw json.RawMessage) (*indexer.Transfer, error) {
	var tx *indexer.Transfer
	err := json.Unmarshal(raw, &tx)
	if err != nil {
		return nil, err
	}

	if tx == nil {
		return nil, errors.New("null transfer")
	}

	return tx, nil
}
