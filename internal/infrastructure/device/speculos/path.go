package speculos

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

const hardenedBit = 0x80000000

// serializePath converts a BIP32 derivation path like "44'/195'/0'/0/0"
// into its device form: a component count followed by each component as a
// big-endian uint32, the hardened ones with the high bit set.
func serializePath(path string) ([]byte, error) {
	path = strings.TrimPrefix(path, "m/")
	if path == "" {
		return nil, fmt.Errorf("empty derivation path")
	}

	parts := strings.Split(path, "/")
	if len(parts) > 10 {
		return nil, fmt.Errorf("derivation path too deep: %s", path)
	}

	out := []byte{byte(len(parts))}
	for _, part := range parts {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		if hardened {
			part = part[:len(part)-1]
		}
		index, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad path component %q: %w", part, err)
		}
		if index >= hardenedBit {
			return nil, fmt.Errorf("path component out of range: %s", part)
		}
		if hardened {
			index |= hardenedBit
		}

		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(index))
		out = append(out, buf[:]...)
	}
	return out, nil
}
