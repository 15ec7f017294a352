// Package tronaddr converts tron addresses between their base58check
// display form and the 0x41-prefixed hex form the node API speaks.
package tronaddr

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Tron addresses are 34 characters in base58check and decode to a 20-byte
// payload behind the 0x41 version prefix.
const (
	AddressLength = 34
	prefixByte    = 0x41
)

// Decode converts a base58check address into its hex form, prefix byte
// included.
func Decode(address string) (string, error) {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return "", fmt.Errorf("decoding address: %w", err)
	}
	if version != prefixByte || len(address) != AddressLength {
		return "", fmt.Errorf("not a tron address: %s", address)
	}
	return hex.EncodeToString(append([]byte{version}, payload...)), nil
}

// Encode converts a 0x41-prefixed hex address into its base58check form.
func Encode(hexAddress string) (string, error) {
	raw, err := hex.DecodeString(hexAddress)
	if err != nil {
		return "", fmt.Errorf("decoding hex address: %w", err)
	}
	if len(raw) == 0 || raw[0] != prefixByte {
		return "", fmt.Errorf("not a tron hex address: %s", hexAddress)
	}
	return base58.CheckEncode(raw[1:], raw[0]), nil
}

// IsValid reports whether the address parses as a tron base58check
// address.
func IsValid(address string) bool {
	_, err := Decode(address)
	return err == nil
}
