// Package stellar implements the explorer client for the stellar family
// against a horizon-compatible REST API, plus the public directory used to
// suggest memo requirements for well-known recipients.
package stellar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"

	"github.com/walletd-network/walletd/pkg/circuitbreaker"
	"github.com/walletd-network/walletd/pkg/httputil"
)

// ErrAccountNotFound is returned when horizon does not know the address,
// ie. the account has no on-chain presence yet.
var ErrAccountNotFound = fmt.Errorf("account not found on chain")

// Client talks to a horizon-compatible API.
type Client struct {
	apiURL  string
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// NewClient returns a stellar explorer client after checking the endpoint
// is reachable.
func NewClient(apiURL string) (*Client, error) {
	client := &Client{
		apiURL:  apiURL,
		cb:      circuitbreaker.NewCircuitBreaker("stellar-explorer"),
		limiter: ratelimit.New(10),
	}
	if err := client.healthCheck(); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	return client, nil
}

func (c *Client) healthCheck() error {
	status, _, err := httputil.Get(
		context.Background(), fmt.Sprintf("%s/fee_stats", c.apiURL), nil,
	)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("endpoint returned status %d", status)
	}
	return nil
}

// FetchAccount returns the on-chain state of the address, or
// ErrAccountNotFound for addresses horizon does not know.
func (c *Client) FetchAccount(ctx context.Context, address string) (*Account, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/accounts/%s", c.apiURL, address))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, ErrAccountNotFound
	}

	var account Account
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("parsing account: %w", err)
	}
	return &account, nil
}

// FetchPayments walks the paginated payment history of the address, newest
// first, following the opaque next links in server order, for as long as
// shouldFetchMore says so given the number collected.
func (c *Client) FetchPayments(
	ctx context.Context, address string, shouldFetchMore func(count int) bool,
) ([]Payment, error) {
	next := fmt.Sprintf(
		"%s/accounts/%s/payments?order=desc&limit=100", c.apiURL, address,
	)
	payments := []Payment{}

	for next != "" && shouldFetchMore(len(payments)) {
		body, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}
		if body == nil {
			// A brand new account has no payments page.
			break
		}

		var page paymentsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parsing payments: %w", err)
		}
		if len(page.Embedded.Records) == 0 {
			break
		}

		payments = append(payments, page.Embedded.Records...)
		next = page.Links.Next.Href
	}
	return payments, nil
}

// FetchFeeStats returns the base fee currently suggested by the network,
// in stroops.
func (c *Client) FetchFeeStats(ctx context.Context) (int64, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/fee_stats", c.apiURL))
	if err != nil {
		return 0, err
	}

	var stats struct {
		LastLedgerBaseFee int64 `json:"last_ledger_base_fee,string"`
	}
	if err := json.Unmarshal(body, &stats); err != nil {
		return 0, fmt.Errorf("parsing fee stats: %w", err)
	}
	return stats.LastLedgerBaseFee, nil
}

// SubmitTransaction posts a base64 transaction envelope. A structured
// rejection is surfaced through SubmitReply rather than an error.
func (c *Client) SubmitTransaction(
	ctx context.Context, envelope string,
) (*SubmitReply, error) {
	form := url.Values{"tx": {envelope}}

	c.limiter.Take()
	res, err := c.cb.Execute(func() (interface{}, error) {
		status, resp, err := httputil.Post(ctx,
			fmt.Sprintf("%s/transactions", c.apiURL),
			[]byte(form.Encode()),
			map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
		if err != nil {
			return nil, err
		}
		// Horizon answers rejections with a problem document, still
		// parseable.
		if status != http.StatusOK && status != http.StatusBadRequest {
			return nil, fmt.Errorf("submit: status %d", status)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	var reply SubmitReply
	if err := json.Unmarshal(res.([]byte), &reply); err != nil {
		return nil, fmt.Errorf("parsing submit reply: %w", err)
	}
	return &reply, nil
}

// get returns (nil, nil) on a 404 so callers can distinguish a missing
// resource from a transport failure.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	c.limiter.Take()
	body, err := c.cb.Execute(func() (interface{}, error) {
		status, resp, err := httputil.Get(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			return []byte(nil), nil
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("GET %s: status %d", url, status)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("http GET %s", url)
	if b, ok := body.([]byte); ok && b != nil {
		return b, nil
	}
	return nil, nil
}
