package cosmos

import "encoding/json"

// StdSignDoc is the canonical document a signer commits to. Fields are
// declared in key order because the scheme requires sorted keys and no
// extra whitespace, which is exactly what json.Marshal produces here.
type StdSignDoc struct {
	AccountNumber string `json:"account_number"`
	ChainID       string `json:"chain_id"`
	Fee           StdFee `json:"fee"`
	Memo          string `json:"memo"`
	Msgs          []Msg  `json:"msgs"`
	Sequence      string `json:"sequence"`
}

// SignBytes returns the exact byte string to be signed.
func (d *StdSignDoc) SignBytes() ([]byte, error) {
	return json.Marshal(d)
}
