package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRecipientRequired is thrown when validating a draft with no recipient
	ErrRecipientRequired = errors.New("recipient is required")
	// ErrInvalidAddress is thrown when the recipient is not a valid address for the family
	ErrInvalidAddress = errors.New("recipient is not a valid address")
	// ErrSourceEqualsDestination is thrown when the recipient is the account's own address
	ErrSourceEqualsDestination = errors.New("recipient must not be the source address")
	// ErrAmountRequired is thrown when validating a draft with a zero amount
	ErrAmountRequired = errors.New("amount is required")
	// ErrNotEnoughBalance is thrown when amount plus fees plus reserve exceeds the balance
	ErrNotEnoughBalance = errors.New("not enough balance")
	// ErrFeeNotLoaded is thrown when validating a draft before its fees were prepared
	ErrFeeNotLoaded = errors.New("fees are not loaded")
	// ErrWrongMemoFormat is thrown when the memo value does not match its declared type
	ErrWrongMemoFormat = errors.New("memo format is not valid")
	// ErrNewAccountMinimum is thrown when sending less than the activation minimum to an address with no on-chain presence
	ErrNewAccountMinimum = errors.New("amount is below the minimum for a new account")
	// ErrMinimumBalanceWarning warns that spending all leaves only the reserve on the account
	ErrMinimumBalanceWarning = errors.New("balance will be left at the minimum reserve")
	// ErrRefusedOnDevice is thrown when the user rejects the transaction on the hardware device
	ErrRefusedOnDevice = errors.New("transaction refused on device")
	// ErrUnsupportedFamily is thrown when no bridge is registered for a family tag
	ErrUnsupportedFamily = errors.New("unsupported currency family")
	// ErrAccountNotFound ...
	ErrAccountNotFound = errors.New("account not found")
	// ErrSubAccountNotFound ...
	ErrSubAccountNotFound = errors.New("sub-account not found")
)

// BroadcastError carries the reason stated by the network provider when it
// rejects a signed payload. The reason is surfaced verbatim.
type BroadcastError struct {
	Reason string
}

func (e *BroadcastError) Error() string {
	return e.Reason
}

// NewBroadcastError returns a BroadcastError with the provider's stated
// reason, or a generic one when the provider gave none.
func NewBroadcastError(reason string) error {
	if reason == "" {
		reason = "transaction rejected by network"
	}
	return &BroadcastError{Reason: reason}
}

// DeviceError wraps a failure reported by the hardware device, distinct
// from a user cancellation.
type DeviceError struct {
	StatusWord uint16
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device returned status 0x%04x", e.StatusWord)
}
