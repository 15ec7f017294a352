// Package stellarxdr implements the subset of the stellar XDR wire format
// needed to compose, sign and submit single-operation payment
// transactions: strkey account ids, the transaction body, its signature
// base and the signed envelope.
package stellarxdr

import (
	"encoding/base32"
	"fmt"
)

// ed25519 public keys are carried in strkeys with the 'G' version byte.
const versionByteAccountID = 6 << 3

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// DecodeAccountID parses a G... strkey into the raw ed25519 public key.
func DecodeAccountID(address string) ([32]byte, error) {
	var key [32]byte

	raw, err := b32.DecodeString(address)
	if err != nil {
		return key, fmt.Errorf("decoding strkey: %w", err)
	}
	if len(raw) != 1+32+2 {
		return key, fmt.Errorf("wrong strkey length %d", len(raw))
	}
	if raw[0] != versionByteAccountID {
		return key, fmt.Errorf("wrong strkey version 0x%02x", raw[0])
	}

	payload := raw[:len(raw)-2]
	want := uint16(raw[len(raw)-2]) | uint16(raw[len(raw)-1])<<8
	if crc16(payload) != want {
		return key, fmt.Errorf("strkey checksum mismatch")
	}

	copy(key[:], raw[1:33])
	return key, nil
}

// IsValidAccountID reports whether the address parses as an ed25519
// account strkey.
func IsValidAccountID(address string) bool {
	_, err := DecodeAccountID(address)
	return err == nil
}

// EncodeAccountID renders a raw ed25519 public key as a G... strkey.
func EncodeAccountID(key [32]byte) string {
	payload := append([]byte{versionByteAccountID}, key[:]...)
	sum := crc16(payload)
	payload = append(payload, byte(sum&0xff), byte(sum>>8))
	return b32.EncodeToString(payload)
}

// crc16 is the XModem variant (poly 0x1021) used by strkey checksums.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
