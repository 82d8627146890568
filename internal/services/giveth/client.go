package giveth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/citizenwallet/feed/internal/ratelimit"
	"github.com/shopspring/decimal"
)

type User struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Donation is one donation to a Giveth project
type Donation struct {
	ID                json.Number      `json:"id"`
	TransactionID     string           `json:"transactionId"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency"`
	ValueUSD          *decimal.Decimal `json:"valueUsd"`
	CreatedAt         time.Time        `json:"createdAt"`
	FromWalletAddress string           `json:"fromWalletAddress"`
	Status            string           `json:"status"`
	User              *User            `json:"user"`
}

// records are decoded one by one so a malformed donation does not fail the page
type donationsResponse struct {
	Transfers []json.RawMessage `json:"transfers"`
}

// ParseDonation decodes one record returned by GetDonations
func ParseDonation(raw json.RawMessage) (Donation, error) {
	var d Donation
	err := json.Unmarshal(raw, &d)
	if err != nil {
		return Donation{}, err
	}

	return d, nil
}

// Query selects the donations of one project
type Query struct {
	ProjectID      int
	ProjectAddress string
	FromDate       time.Time
	Take           int
	Skip           int
}

// Client reads donations from a Giveth donations endpoint
type Client struct {
	httpClient *http.Client
	endpoint   string
	limiter    *ratelimit.Limiter
}

func NewClient(endpoint string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: endpoint,
	}
}

func (c *Client) SetRateLimiter(l *ratelimit.Limiter) {
	c.limiter = l
}

// GetDonations returns the raw donation records of a project, see ParseDonation
func (c *Client) GetDonations(ctx context.Context, q Query) ([]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	v := url.Values{}
	v.Set("projectId", strconv.Itoa(q.ProjectID))
	v.Set("projectAddress", q.ProjectAddress)
	v.Set("fromDate", q.FromDate.UTC().Format(time.RFC3339Nano))
	v.Set("take", strconv.Itoa(q.Take))
	v.Set("skip", strconv.Itoa(q.Skip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+v.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

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

	var r donationsResponse
	err = json.Unmarshal(body, &r)
	if err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return r.Transfers, nil
}
