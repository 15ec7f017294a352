package stellarxdr

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Memo types as encoded on the wire.
const (
	MemoTypeNone   = "NONE"
	MemoTypeText   = "MEMO_TEXT"
	MemoTypeID     = "MEMO_ID"
	MemoTypeHash   = "MEMO_HASH"
	MemoTypeReturn = "MEMO_RETURN"
)

// MaxMemoTextLength bounds MEMO_TEXT values.
const MaxMemoTextLength = 28

const (
	envelopeTypeTx = 2

	memoNone   = 0
	memoText   = 1
	memoID     = 2
	memoHash   = 3
	memoReturn = 4

	opCreateAccount = 0
	opPayment       = 1

	assetTypeNative = 0
)

// Memo is the optional memo attached to a transaction.
type Memo struct {
	Type string
	// Text holds the MEMO_TEXT value, or the decimal rendering of a
	// MEMO_ID, or the 32-byte value of MEMO_HASH/MEMO_RETURN.
	Text string
	ID   uint64
	Hash [32]byte
}

// Transaction is a single-operation payment ready to be encoded. When
// CreateAccount is set the operation funds a not-yet-existing destination
// instead of paying an existing one.
type Transaction struct {
	Source         string
	Fee            uint32
	SequenceNumber int64
	Memo           Memo
	Destination    string
	Amount         int64
	CreateAccount  bool
}

// Encode serializes the transaction body to XDR.
func (t Transaction) Encode() ([]byte, error) {
	source, err := DecodeAccountID(t.Source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	destination, err := DecodeAccountID(t.Destination)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	var buf []byte
	// MuxedAccount, KEY_TYPE_ED25519.
	buf = appendUint32(buf, 0)
	buf = append(buf, source[:]...)
	buf = appendUint32(buf, t.Fee)
	buf = appendInt64(buf, t.SequenceNumber)
	// Preconditions: PRECOND_NONE.
	buf = appendUint32(buf, 0)

	buf, err = appendMemo(buf, t.Memo)
	if err != nil {
		return nil, err
	}

	// One operation, no per-operation source account.
	buf = appendUint32(buf, 1)
	buf = appendUint32(buf, 0)
	if t.CreateAccount {
		buf = appendUint32(buf, opCreateAccount)
		buf = appendUint32(buf, 0) // AccountID, ed25519
		buf = append(buf, destination[:]...)
		buf = appendInt64(buf, t.Amount)
	} else {
		buf = appendUint32(buf, opPayment)
		buf = appendUint32(buf, 0) // MuxedAccount, ed25519
		buf = append(buf, destination[:]...)
		buf = appendUint32(buf, assetTypeNative)
		buf = appendInt64(buf, t.Amount)
	}

	// Reserved extension point.
	buf = appendUint32(buf, 0)
	return buf, nil
}

// SignatureBase returns the bytes the device signs: the network id, the
// TX envelope type discriminant and the encoded transaction.
func SignatureBase(networkPassphrase string, txXDR []byte) []byte {
	networkID := sha256.Sum256([]byte(networkPassphrase))
	base := append([]byte{}, networkID[:]...)
	base = appendUint32(base, envelopeTypeTx)
	return append(base, txXDR...)
}

// EncodeEnvelope wraps the transaction and its device signature into a
// base64 TransactionEnvelope ready for submission. The signature hint is
// the tail of the signing public key.
func EncodeEnvelope(txXDR []byte, sourceKey [32]byte, signature []byte) string {
	var buf []byte
	buf = appendUint32(buf, envelopeTypeTx)
	buf = append(buf, txXDR...)
	// One decorated signature.
	buf = appendUint32(buf, 1)
	buf = append(buf, sourceKey[28:32]...)
	buf = appendOpaque(buf, signature)
	return base64.StdEncoding.EncodeToString(buf)
}

func appendMemo(buf []byte, memo Memo) ([]byte, error) {
	switch memo.Type {
	case MemoTypeNone, "":
		return appendUint32(buf, memoNone), nil
	case MemoTypeText:
		if len(memo.Text) > MaxMemoTextLength {
			return nil, fmt.Errorf("memo text longer than %d bytes", MaxMemoTextLength)
		}
		buf = appendUint32(buf, memoText)
		return appendOpaque(buf, []byte(memo.Text)), nil
	case MemoTypeID:
		buf = appendUint32(buf, memoID)
		return appendUint64(buf, memo.ID), nil
	case MemoTypeHash:
		buf = appendUint32(buf, memoHash)
		return append(buf, memo.Hash[:]...), nil
	case MemoTypeReturn:
		buf = appendUint32(buf, memoReturn)
		return append(buf, memo.Hash[:]...), nil
	default:
		return nil, fmt.Errorf("unknown memo type %q", memo.Type)
	}
}

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func appendUint64(buf []byte, v uint64) []byte {
	buf = appendUint32(buf, uint32(v>>32))
	return appendUint32(buf, uint32(v))
}

func appendInt64(buf []byte, v int64) []byte {
	return appendUint64(buf, uint64(v))
}

// appendOpaque encodes variable-length opaque data: length prefix plus
// zero padding to a 4-byte boundary.
func appendOpaque(buf []byte, data []byte) []byte {
	buf = appendUint32(buf, uint32(len(data)))
	buf = append(buf, data...)
	if pad := len(data) % 4; pad != 0 {
		buf = append(buf, make([]byte, 4-pad)...)
	}
	return buf
}
