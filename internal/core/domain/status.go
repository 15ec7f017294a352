package domain

import "math/big"

// Keys under which validation errors and warnings are reported in a
// TransactionStatus.
const (
	StatusKeyRecipient   = "recipient"
	StatusKeyAmount      = "amount"
	StatusKeyFee         = "fee"
	StatusKeyTransaction = "transaction"
)

// TransactionStatus is the validation result of a draft against an
// account. It is recomputed on demand and never persisted. Errors block
// signing, warnings are advisory only.
type TransactionStatus struct {
	Errors        map[string]error
	Warnings      map[string]error
	EstimatedFees *big.Int
	Amount        *big.Int
	TotalSpent    *big.Int
}

// NewTransactionStatus returns an empty status with zeroed numeric facts.
func NewTransactionStatus() *TransactionStatus {
	return &TransactionStatus{
		Errors:        make(map[string]error),
		Warnings:      make(map[string]error),
		EstimatedFees: new(big.Int),
		Amount:        new(big.Int),
		TotalSpent:    new(big.Int),
	}
}

// SetError records an error for the given field unless one is already set.
// Checks run in a fixed order and an earlier error on a field wins.
func (s *TransactionStatus) SetError(key string, err error) {
	if _, ok := s.Errors[key]; ok {
		return
	}
	s.Errors[key] = err
}

// SetWarning records a warning for the given field unless one is already
// set.
func (s *TransactionStatus) SetWarning(key string, err error) {
	if _, ok := s.Warnings[key]; ok {
		return
	}
	s.Warnings[key] = err
}

// Blocked reports whether any populated error forbids the draft from
// proceeding to signing.
func (s *TransactionStatus) Blocked() bool {
	return len(s.Errors) > 0
}
