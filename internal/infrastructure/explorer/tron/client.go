// Package tron implements the explorer client for the tron family against
// a trongrid-compatible REST API.
package tron

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
	"github.com/walletd-network/walletd/pkg/tronaddr"
)

// Client talks to a trongrid-compatible node gateway.
type Client struct {
	apiURL  string
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// NewClient returns a tron explorer client after checking the endpoint is
// reachable.
func NewClient(apiURL string) (*Client, error) {
	client := &Client{
		apiURL:  apiURL,
		cb:      circuitbreaker.NewCircuitBreaker("tron-explorer"),
		limiter: ratelimit.New(10),
	}
	if err := client.healthCheck(); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	return client, nil
}

func (c *Client) healthCheck() error {
	status, _, err := httputil.Post(
		context.Background(), fmt.Sprintf("%s/wallet/getnowblock", c.apiURL),
		nil, nil,
	)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("endpoint returned status %d", status)
	}
	return nil
}

// FetchAccount returns the on-chain state of the address, or nil when the
// account has no on-chain presence yet.
func (c *Client) FetchAccount(ctx context.Context, address string) (*Account, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s", c.apiURL, address)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []Account `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing account: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, nil
	}
	return &payload.Data[0], nil
}

// FetchTransactions walks the paginated transaction history of the
// address, following the opaque next links in server order, for as long as
// shouldFetchMore says so given the number collected.
func (c *Client) FetchTransactions(
	ctx context.Context, address string, shouldFetchMore func(count int) bool,
) ([]Tx, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/transactions?limit=200", c.apiURL, address)
	txs := []Tx{}

	for shouldFetchMore(len(txs)) {
		body, err := c.get(ctx, url)
		if err != nil {
			return nil, err
		}

		var payload struct {
			Data []Tx `json:"data"`
			Meta struct {
				Links struct {
					Next string `json:"next"`
				} `json:"links"`
			} `json:"meta"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("parsing transactions: %w", err)
		}
		if len(payload.Data) == 0 {
			break
		}

		txs = append(txs, payload.Data...)
		if payload.Meta.Links.Next == "" {
			break
		}
		url = payload.Meta.Links.Next
	}
	return txs, nil
}

// FetchNetworkInfo returns the bandwidth accounting of the address.
func (c *Client) FetchNetworkInfo(ctx context.Context, address string) (*AccountNet, error) {
	hexAddr, err := tronaddr.Decode(address)
	if err != nil {
		return nil, err
	}
	body, err := c.post(ctx, fmt.Sprintf("%s/wallet/getaccountnet", c.apiURL),
		map[string]interface{}{"address": hexAddr})
	if err != nil {
		return nil, err
	}

	var net AccountNet
	if err := json.Unmarshal(body, &net); err != nil {
		return nil, fmt.Errorf("parsing account net: %w", err)
	}
	return &net, nil
}

// CreateTransaction asks the node to assemble an unsigned transfer, of the
// native coin or of a TRC10 asset when tokenId is set.
func (c *Client) CreateTransaction(
	ctx context.Context, from, to string, amount int64, tokenId string,
) (*CreatedTx, error) {
	fromHex, err := tronaddr.Decode(from)
	if err != nil {
		return nil, fmt.Errorf("owner address: %w", err)
	}
	toHex, err := tronaddr.Decode(to)
	if err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}

	reqBody := map[string]interface{}{
		"owner_address": fromHex,
		"to_address":    toHex,
		"amount":        amount,
	}
	url := fmt.Sprintf("%s/wallet/createtransaction", c.apiURL)
	if tokenId != "" {
		reqBody["asset_name"] = fmt.Sprintf("%x", tokenId)
		url = fmt.Sprintf("%s/wallet/transferasset", c.apiURL)
	}

	body, err := c.post(ctx, url, reqBody)
	if err != nil {
		return nil, err
	}

	var created CreatedTx
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("parsing created transaction: %w", err)
	}
	if created.TxID == "" || created.RawDataHex == "" {
		return nil, fmt.Errorf("node did not return a transaction")
	}
	return &created, nil
}

// Broadcast submits a signed transaction and returns the node's verdict.
func (c *Client) Broadcast(ctx context.Context, tx *SignedTx) (*BroadcastReply, error) {
	body, err := c.post(ctx,
		fmt.Sprintf("%s/wallet/broadcasttransaction", c.apiURL), tx)
	if err != nil {
		return nil, err
	}

	var reply BroadcastReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("parsing broadcast reply: %w", err)
	}
	return &reply, nil
}

// ValidateAddress asks the node whether the address is well formed.
func (c *Client) ValidateAddress(ctx context.Context, address string) (bool, error) {
	hexAddr, err := tronaddr.Decode(address)
	if err != nil {
		return false, nil
	}
	body, err := c.post(ctx, fmt.Sprintf("%s/wallet/validateaddress", c.apiURL),
		map[string]interface{}{"address": hexAddr})
	if err != nil {
		return false, err
	}

	var reply struct {
		Result bool `json:"result"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return false, fmt.Errorf("parsing validation reply: %w", err)
	}
	return reply.Result, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	c.limiter.Take()
	body, err := c.cb.Execute(func() (interface{}, error) {
		status, resp, err := httputil.Get(ctx, url, nil)
		if err != nil {
			return nil, err
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
	return body.([]byte), nil
}

func (c *Client) post(ctx context.Context, url string, reqBody interface{}) ([]byte, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	c.limiter.Take()
	body, err := c.cb.Execute(func() (interface{}, error) {
		status, resp, err := httputil.Post(ctx, url, payload,
			map[string]string{"Content-Type": "application/json"})
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("POST %s: status %d", url, status)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("http POST %s", url)
	return body.([]byte), nil
}
