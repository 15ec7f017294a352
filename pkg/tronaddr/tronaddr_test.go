package tronaddr_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/walletd-network/walletd/pkg/tronaddr"
)

func TestRoundTrip(t *testing.T) {
	// 20 zero bytes behind the 0x41 prefix.
	hexAddr := "41" + strings.Repeat("00", 20)

	b58, err := tronaddr.Encode(hexAddr)
	require.NoError(t, err)
	require.Len(t, b58, tronaddr.AddressLength)
	require.True(t, strings.HasPrefix(b58, "T"))

	back, err := tronaddr.Decode(b58)
	require.NoError(t, err)
	require.Equal(t, hexAddr, back)
	require.True(t, tronaddr.IsValid(b58))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"empty", ""},
		{"not_base58", "0x1234"},
		{"bad_checksum", "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8"},
		{"wrong_prefix", "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tronaddr.Decode(tt.address)
			require.Error(t, err)
			require.False(t, tronaddr.IsValid(tt.address))
		})
	}
}

func TestEncodeRejectsWrongPrefix(t *testing.T) {
	_, err := tronaddr.Encode("00" + strings.Repeat("00", 20))
	require.Error(t, err)
}
