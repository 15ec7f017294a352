package ports

import "context"

// DeviceConnector opens transports towards a hardware signing device.
type DeviceConnector interface {
	// Open acquires the device at the given address. The returned
	// transport is exclusively owned by the caller until closed.
	Open(ctx context.Context, deviceAddr string) (DeviceTransport, error)
}

// DeviceTransport is a single-channel connection to the signing app of a
// hardware device. Requests must be strictly sequential, and Close must be
// invoked exactly once regardless of outcome.
type DeviceTransport interface {
	// SignTransaction asks the device to sign the family-serialized
	// payload with the key at the given derivation path. extra carries
	// family-specific companion records (eg. token metadata).
	SignTransaction(
		ctx context.Context, path string, payload []byte, extra [][]byte,
	) ([]byte, error)
	Close() error
}
