package bridge

import (
	"context"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/walletd-network/walletd/internal/core/ports"
)

// SigningSession is the cancellable unit of work owning the device
// transport for the duration of one signing. Device requests are strictly
// sequential, the cancellation context is re-checked at every checkpoint
// between device round-trips, and the transport is released exactly once
// whatever the outcome.
type SigningSession struct {
	id        string
	transport ports.DeviceTransport

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewSigningSession wraps an open transport into a session.
func NewSigningSession(transport ports.DeviceTransport) *SigningSession {
	return &SigningSession{
		id:        uuid.New().String(),
		transport: transport,
	}
}

// Id returns the session identifier, used for log correlation.
func (s *SigningSession) Id() string {
	return s.id
}

// Checkpoint reports whether the session was cancelled. Bridges call it
// after every potentially slow device round-trip; once it returns an error
// no further device write may happen.
func (s *SigningSession) Checkpoint(ctx context.Context) error {
	return ctx.Err()
}

// Sign performs one signing round-trip with the device. Hardware
// transports are single-channel, so concurrent calls are serialized.
func (s *SigningSession) Sign(
	ctx context.Context, path string, payload []byte, extra [][]byte,
) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.WithField("session", s.id).Debug("requesting signature from device")
	return s.transport.SignTransaction(ctx, path, payload, extra)
}

// Close releases the device transport. Safe to call multiple times; only
// the first call reaches the transport.
func (s *SigningSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.transport.Close()
	})
	return s.closeErr
}
