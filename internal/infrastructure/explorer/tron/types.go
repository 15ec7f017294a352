package tron

// Account is the raw on-chain account record.
type Account struct {
	Address string         `json:"address"`
	Balance int64          `json:"balance"`
	Frozen  []Frozen       `json:"frozen"`
	AssetV2 []AssetBalance `json:"assetV2"`
}

// Frozen is a staked slice of the balance, still owned but not spendable.
type Frozen struct {
	FrozenBalance int64 `json:"frozen_balance"`
	ExpireTime    int64 `json:"expire_time"`
}

// AssetBalance is a TRC10 token balance keyed by token id.
type AssetBalance struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// Tx is a raw chain transaction as returned by the history endpoint. One
// transaction holds one or more contracts; only transfer contracts are
// relevant to the wallet.
type Tx struct {
	TxID           string `json:"txID"`
	BlockNumber    uint64 `json:"blockNumber"`
	BlockTimestamp int64  `json:"block_timestamp"`
	RawData        struct {
		Contract []Contract `json:"contract"`
	} `json:"raw_data"`
}

// Contract types carrying value transfers.
const (
	ContractTransfer      = "TransferContract"
	ContractTransferAsset = "TransferAssetContract"
)

// Contract is one effect inside a transaction.
type Contract struct {
	Type      string `json:"type"`
	Parameter struct {
		Value ContractValue `json:"value"`
	} `json:"parameter"`
}

// ContractValue carries the transfer fields; addresses are in hex form.
type ContractValue struct {
	Amount       int64  `json:"amount"`
	OwnerAddress string `json:"owner_address"`
	ToAddress    string `json:"to_address"`
	AssetName    string `json:"asset_name"`
}

// AccountNet is the bandwidth accounting of an account.
type AccountNet struct {
	FreeNetUsed  int64 `json:"freeNetUsed"`
	FreeNetLimit int64 `json:"freeNetLimit"`
	NetUsed      int64 `json:"NetUsed"`
	NetLimit     int64 `json:"NetLimit"`
}

// FreeBandwidth returns the remaining free bandwidth points.
func (n AccountNet) FreeBandwidth() int64 {
	remaining := n.FreeNetLimit - n.FreeNetUsed + n.NetLimit - n.NetUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CreatedTx is an unsigned transaction assembled by the node.
type CreatedTx struct {
	TxID       string `json:"txID"`
	RawDataHex string `json:"raw_data_hex"`
}

// SignedTx is a created transaction plus its signature, ready for
// broadcast.
type SignedTx struct {
	TxID       string   `json:"txID"`
	RawDataHex string   `json:"raw_data_hex"`
	Signature  []string `json:"signature"`
}

// BroadcastReply is the node's verdict on a submitted transaction.
type BroadcastReply struct {
	Result  bool   `json:"result"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
