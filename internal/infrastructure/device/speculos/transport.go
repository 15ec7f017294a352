// Package speculos implements the device transport against the TCP APDU
// endpoint exposed by a speculos emulator or an APDU proxy in front of a
// physical device. Every request is a length-prefixed APDU; the reply is
// length-prefixed response data followed by a two-byte status word.
package speculos

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/walletd-network/walletd/internal/core/domain"
	"github.com/walletd-network/walletd/internal/core/ports"
)

const (
	claApp  = 0xe0
	insSign = 0x04
	// insProvideExtra feeds companion records (eg. token metadata) to the
	// app before the signing APDUs.
	insProvideExtra = 0x0a

	p1First = 0x00
	p1More  = 0x80

	maxChunkSize = 255

	swOK      = 0x9000
	swRefused = 0x6985
)

// Connector opens TCP transports towards the device endpoint.
type Connector struct{}

// NewConnector returns a speculos connector.
func NewConnector() *Connector {
	return &Connector{}
}

// Open dials the device endpoint. The returned transport owns the
// connection until closed.
func (c *Connector) Open(
	ctx context.Context, deviceAddr string,
) (ports.DeviceTransport, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", deviceAddr)
	if err != nil {
		return nil, fmt.Errorf("dialing device at %s: %w", deviceAddr, err)
	}

	log.WithField("device", deviceAddr).Debug("device transport open")
	return &transport{conn: conn}, nil
}

type transport struct {
	conn      net.Conn
	closeOnce sync.Once
	closeErr  error
}

// SignTransaction streams the derivation path and the payload to the app
// in chunked APDUs and returns the signature from the final reply. extra
// records are provided to the app first.
func (t *transport) SignTransaction(
	ctx context.Context, path string, payload []byte, extra [][]byte,
) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}

	for _, record := range extra {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := t.exchange(buildAPDU(insProvideExtra, p1First, record)); err != nil {
			return nil, err
		}
	}

	pathBytes, err := serializePath(path)
	if err != nil {
		return nil, err
	}

	chunks := chunkPayload(pathBytes, payload)
	var reply []byte
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p1 := byte(p1First)
		if i > 0 {
			p1 = p1More
		}
		reply, err = t.exchange(buildAPDU(insSign, p1, chunk))
		if err != nil {
			return nil, err
		}
	}
	return reply, nil
}

// Close tears down the connection. Safe to call multiple times.
func (t *transport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

// exchange performs one length-prefixed APDU round-trip and maps the
// status word to an error.
func (t *transport) exchange(apdu []byte) ([]byte, error) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(apdu)))
	if _, err := t.conn.Write(lenBuf[:]); err != nil {
		return nil, fmt.Errorf("writing apdu length: %w", err)
	}
	if _, err := t.conn.Write(apdu); err != nil {
		return nil, fmt.Errorf("writing apdu: %w", err)
	}

	if _, err := io.ReadFull(t.conn, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("reading reply length: %w", err)
	}
	data := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(t.conn, data); err != nil {
		return nil, fmt.Errorf("reading reply: %w", err)
	}
	var swBuf [2]byte
	if _, err := io.ReadFull(t.conn, swBuf[:]); err != nil {
		return nil, fmt.Errorf("reading status word: %w", err)
	}

	switch sw := binary.BigEndian.Uint16(swBuf[:]); sw {
	case swOK:
		return data, nil
	case swRefused:
		return nil, domain.ErrRefusedOnDevice
	default:
		return nil, &domain.DeviceError{StatusWord: sw}
	}
}

func buildAPDU(ins, p1 byte, data []byte) []byte {
	apdu := []byte{claApp, ins, p1, 0x00, byte(len(data))}
	return append(apdu, data...)
}

// chunkPayload prepends the serialized path to the payload and splits the
// stream into APDU-sized chunks.
func chunkPayload(pathBytes, payload []byte) [][]byte {
	stream := make([]byte, 0, len(pathBytes)+len(payload))
	stream = append(stream, pathBytes...)
	stream = append(stream, payload...)

	chunks := [][]byte{}
	for len(stream) > 0 {
		size := len(stream)
		if size > maxChunkSize {
			size = maxChunkSize
		}
		chunks = append(chunks, stream[:size])
		stream = stream[size:]
	}
	if len(chunks) == 0 {
		chunks = append(chunks, []byte{})
	}
	return chunks
}
