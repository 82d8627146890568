package opencollective

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/citizenwallet/feed/internal/ratelimit"
	"github.com/shopspring/decimal"
)

const DefaultURL = "https://api.opencollective.com/graphql/v2"

const transactionsQuery = `query transactions($slug: String!, $dateFrom: DateTime, $limit: Int, $offset: Int) {
  transactions(account: {slug: $slug}, dateFrom: $dateFrom, limit: $limit, offset: $offset, type: CREDIT) {
    totalCount
    nodes {
      id
      createdAt
      description
      amount {
        value
        currency
      }
      fromAccount {
        name
        slug
        imageUrl
      }
    }
  }
}`

type Amount struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

type Account struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ImageURL string `json:"imageUrl"`
}

// Transaction is a credit on a collective
type Transaction struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Description string    `json:"description"`
	Amount      Amount    `json:"amount"`
	FromAccount *Account  `json:"fromAccount"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type transactionsResponse struct {
	Data *struct {
		Transactions struct {
			TotalCount int               `json:"totalCount"`
			Nodes      []json.RawMessage `json:"nodes"`
		} `json:"transactions"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

var ErrNoData = errors.New("opencollective: response has no data")

// ParseTransaction decodes one node returned by GetTransactions
func ParseTransaction(raw json.RawMessage) (Transaction, error) {
	var tx Transaction
	err := json.Unmarshal(raw, &tx)
	if err != nil {
		return Transaction{}, err
	}

	return tx, nil
}

// Client queries the OpenCollective GraphQL api
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	limiter    *ratelimit.Limiter
}

func NewClient(url, apiKey string) *Client {
	if url == "" {
		url = DefaultURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		url:    url,
		apiKey: apiKey,
	}
}

func (c *Client) SetRateLimiter(l *ratelimit.Limiter) {
	c.limiter = l
}

// GetTransactions returns the raw credits of the collective slug created from fromDate.
// Nodes are decoded with ParseTransaction so a malformed one does not fail the page.
func (c *Client) GetTransactions(ctx context.Context, slug string, fromDate time.Time, offset, limit int) ([]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(graphQLRequest{
		Query: transactionsQuery,
		Variables: map[string]any{
			"slug":     slug,
			"dateFrom": fromDate.UTC().Format(time.RFC3339),
			"limit":    limit,
			"offset":   offset,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Personal-Token", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var r transactionsResponse
	err = json.Unmarshal(respBody, &r)
	if err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(r.Errors) > 0 {
		msgs := make([]string, 0, len(r.Errors))
		for _, e := range r.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("opencollective: %s", strings.Join(msgs, "; "))
	}

	if r.Data == nil {
		return nil, ErrNoData
	}

	return r.Data.Transactions.Nodes, nil
}
