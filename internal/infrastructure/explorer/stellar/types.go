package stellar

import "time"

// Account is the raw horizon account record. Balances are in the display
// denomination; Sequence is the current sequence number of the account.
type Account struct {
	AccountID     string    `json:"account_id"`
	Sequence      int64     `json:"sequence,string"`
	SubentryCount int       `json:"subentry_count"`
	Balances      []Balance `json:"balances"`
	LastModified  time.Time `json:"last_modified_time"`
}

// Balance is one asset balance of the account.
type Balance struct {
	AssetType string `json:"asset_type"`
	Balance   string `json:"balance"`
}

// NativeBalance returns the display-denomination balance of the native
// asset.
func (a Account) NativeBalance() string {
	for _, b := range a.Balances {
		if b.AssetType == "native" {
			return b.Balance
		}
	}
	return "0"
}

// Payment is one raw payment record. Type distinguishes regular payments
// from the create_account operations funding new accounts.
type Payment struct {
	ID              string    `json:"id"`
	PagingToken     string    `json:"paging_token"`
	Type            string    `json:"type"`
	TransactionHash string    `json:"transaction_hash"`
	AssetType       string    `json:"asset_type"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Amount          string    `json:"amount"`
	Funder          string    `json:"funder"`
	Account         string    `json:"account"`
	StartingBalance string    `json:"starting_balance"`
	CreatedAt       time.Time `json:"created_at"`
}

type paymentsPage struct {
	Links struct {
		Next struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
	Embedded struct {
		Records []Payment `json:"records"`
	} `json:"_embedded"`
}

// SubmitReply is horizon's answer to a transaction submission. On success
// Hash is set; on rejection the result code states the reason.
type SubmitReply struct {
	Hash   string `json:"hash"`
	Ledger int64  `json:"ledger"`
	Title  string `json:"title"`
	Extras struct {
		ResultCodes struct {
			Transaction string   `json:"transaction"`
			Operations  []string `json:"operations"`
		} `json:"result_codes"`
	} `json:"extras"`
}

// Accepted reports whether the network accepted the transaction.
func (r SubmitReply) Accepted() bool {
	return r.Hash != ""
}

// RejectionReason returns the provider's stated reason for a rejection.
func (r SubmitReply) RejectionReason() string {
	if r.Extras.ResultCodes.Transaction != "" {
		return r.Extras.ResultCodes.Transaction
	}
	return r.Title
}
