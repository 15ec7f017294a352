package cosmos

import (
	"math/big"
	"time"
)

// Account is the auth module's view of an address.
type Account struct {
	Address       string `json:"address"`
	AccountNumber string `json:"account_number"`
	Sequence      string `json:"sequence"`
	Coins         []Coin `json:"coins"`
}

// Coin is an amount in a given denomination, amount as a decimal string.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// BalanceOf returns the held amount of denom, zero when absent.
func (a *Account) BalanceOf(denom string) *big.Int {
	for _, coin := range a.Coins {
		if coin.Denom != denom {
			continue
		}
		if amount, ok := new(big.Int).SetString(coin.Amount, 10); ok {
			return amount
		}
	}
	return new(big.Int)
}

// MsgSendType is the amino route of a bank send message.
const MsgSendType = "cosmos-sdk/MsgSend"

// Msg is a single message inside a standard transaction.
type Msg struct {
	Type  string   `json:"type"`
	Value MsgValue `json:"value"`
}

// MsgValue carries the send fields. Fields are declared in key order so
// the marshalled form is already canonical.
type MsgValue struct {
	Amount      []Coin `json:"amount,omitempty"`
	FromAddress string `json:"from_address,omitempty"`
	ToAddress   string `json:"to_address,omitempty"`
}

// StdFee is the declared fee and gas limit of a transaction.
type StdFee struct {
	Amount []Coin `json:"amount"`
	Gas    string `json:"gas"`
}

// StdSignature is a signature with the public key that produced it.
type StdSignature struct {
	PubKey    PubKey `json:"pub_key"`
	Signature string `json:"signature"`
}

// PubKey is an amino-encoded public key.
type PubKey struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// StdTxValue is the body of a standard transaction.
type StdTxValue struct {
	Msg        []Msg          `json:"msg"`
	Fee        StdFee         `json:"fee"`
	Signatures []StdSignature `json:"signatures"`
	Memo       string         `json:"memo"`
}

// StdTx wraps the body with its amino type for broadcasting.
type StdTx struct {
	Type  string     `json:"type"`
	Value StdTxValue `json:"value"`
}

type broadcastReq struct {
	Tx   *StdTx `json:"tx"`
	Mode string `json:"mode"`
}

// BroadcastReply is the node's answer to a broadcast. A non-zero code
// means the transaction was rejected and RawLog says why.
type BroadcastReply struct {
	TxHash string `json:"txhash"`
	Code   int    `json:"code"`
	RawLog string `json:"raw_log"`
}

// Accepted reports whether the node took the transaction.
func (r *BroadcastReply) Accepted() bool {
	return r.Code == 0
}

// Tx is a confirmed transaction as returned by the txs endpoint.
type Tx struct {
	TxHash    string    `json:"txhash"`
	Height    string    `json:"height"`
	Timestamp time.Time `json:"timestamp"`
	TxBody    struct {
		Value StdTxValue `json:"value"`
	} `json:"tx"`
}

type txsPage struct {
	TotalCount string `json:"total_count"`
	Count      string `json:"count"`
	PageNumber int    `json:"page_number,string"`
	PageTotal  int    `json:"page_total,string"`
	Txs        []Tx   `json:"txs"`
}
