// Package cosmos implements the explorer client for the cosmos family
// against a cosmos-sdk light client daemon REST API.
package cosmos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"

	"github.com/walletd-network/walletd/pkg/circuitbreaker"
	"github.com/walletd-network/walletd/pkg/httputil"
)

// Client talks to an LCD-compatible gateway.
type Client struct {
	apiURL  string
	chainID string
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// NewClient returns a cosmos explorer client after checking the endpoint
// is reachable and resolving the chain id.
func NewClient(apiURL string) (*Client, error) {
	client := &Client{
		apiURL:  apiURL,
		cb:      circuitbreaker.NewCircuitBreaker("cosmos-explorer"),
		limiter: ratelimit.New(10),
	}

	info, err := client.fetchNodeInfo()
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	client.chainID = info.Network
	return client, nil
}

// ChainID returns the network identifier the endpoint serves.
func (c *Client) ChainID() string {
	return c.chainID
}

type nodeInfo struct {
	Network string `json:"network"`
}

func (c *Client) fetchNodeInfo() (*nodeInfo, error) {
	status, body, err := httputil.Get(
		context.Background(), fmt.Sprintf("%s/node_info", c.apiURL), nil,
	)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned status %d", status)
	}

	var payload struct {
		NodeInfo nodeInfo `json:"node_info"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing node info: %w", err)
	}
	return &payload.NodeInfo, nil
}

// FetchAccount returns the auth record of the address, or nil when the
// account has no on-chain presence yet.
func (c *Client) FetchAccount(ctx context.Context, address string) (*Account, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/auth/accounts/%s", c.apiURL, address))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var payload struct {
		Result struct {
			Value Account `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing account: %w", err)
	}
	if payload.Result.Value.Address == "" {
		return nil, nil
	}
	return &payload.Result.Value, nil
}

// FetchTransactions collects the send transactions involving the address,
// both directions, walking pages in server order for as long as
// shouldFetchMore says so given the number collected.
func (c *Client) FetchTransactions(
	ctx context.Context, address string, shouldFetchMore func(count int) bool,
) ([]Tx, error) {
	txs := []Tx{}
	for _, query := range []string{
		fmt.Sprintf("message.sender=%s", address),
		fmt.Sprintf("transfer.recipient=%s", address),
	} {
		page := 1
		for shouldFetchMore(len(txs)) {
			body, err := c.get(ctx, fmt.Sprintf(
				"%s/txs?%s&limit=100&page=%d", c.apiURL, query, page,
			))
			if err != nil {
				return nil, err
			}
			if body == nil {
				break
			}

			var result txsPage
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, fmt.Errorf("parsing transactions: %w", err)
			}
			if len(result.Txs) == 0 {
				break
			}

			txs = append(txs, result.Txs...)
			if page >= result.PageTotal {
				break
			}
			page++
		}
	}
	return txs, nil
}

// Broadcast submits a signed standard transaction and returns the node's
// verdict.
func (c *Client) Broadcast(ctx context.Context, tx *StdTx) (*BroadcastReply, error) {
	payload, err := json.Marshal(broadcastReq{Tx: tx, Mode: "sync"})
	if err != nil {
		return nil, err
	}

	c.limiter.Take()
	res, err := c.cb.Execute(func() (interface{}, error) {
		status, resp, err := httputil.Post(ctx,
			fmt.Sprintf("%s/txs", c.apiURL), payload,
			map[string]string{"Content-Type": "application/json"})
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("broadcast: status %d", status)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	var reply BroadcastReply
	if err := json.Unmarshal(res.([]byte), &reply); err != nil {
		return nil, fmt.Errorf("parsing broadcast reply: %w", err)
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
