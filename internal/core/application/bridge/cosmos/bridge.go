// Package cosmos implements the transaction bridge for the cosmos family.
// Fees are gas metered: the declared gas limit times a configured gas
// price, with a safety adjustment applied to the base gas estimate. The
// signed payload is the canonical sign document, broadcast as a standard
// transaction through the LCD gateway.
package cosmos

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/walletd-network/walletd/internal/core/application/bridge"
	"github.com/walletd-network/walletd/internal/core/domain"
	"github.com/walletd-network/walletd/internal/core/ports"
	cosmosexplorer "github.com/walletd-network/walletd/internal/infrastructure/explorer/cosmos"
)

// FamilyCosmos is the family tag served by this bridge.
const FamilyCosmos = "cosmos"

const (
	addressPrefix = "cosmos"
	denom         = "uatom"
	// baseGas is the gas a plain send consumes before adjustment.
	baseGas = 100_000
	// pubKeyType is the amino route of secp256k1 keys.
	pubKeyType = "tendermint/PubKeySecp256k1"
	stdTxType  = "cosmos-sdk/StdTx"
)

// Explorer is the LCD gateway surface the bridge consumes.
type Explorer interface {
	ChainID() string
	FetchAccount(ctx context.Context, address string) (*cosmosexplorer.Account, error)
	FetchTransactions(
		ctx context.Context, address string, shouldFetchMore func(count int) bool,
	) ([]cosmosexplorer.Tx, error)
	Broadcast(ctx context.Context, tx *cosmosexplorer.StdTx) (*cosmosexplorer.BroadcastReply, error)
}

type cosmosBridge struct {
	explorer      Explorer
	gasPrice      *big.Int
	gasAdjustment decimal.Decimal
	maxTxs        int
	now           func() time.Time
}

// NewBridge returns the cosmos bridge backed by the given explorer.
// gasPrice is the price of one gas unit in the smallest denomination and
// gasAdjustment scales the base gas estimate up to absorb estimation
// drift. maxTxs bounds how much history a sync pass pulls.
func NewBridge(
	explorer Explorer, gasPrice *big.Int, gasAdjustment decimal.Decimal,
	maxTxs int,
) (bridge.Bridge, error) {
	if explorer == nil {
		return nil, fmt.Errorf("missing explorer")
	}
	if gasPrice == nil || gasPrice.Sign() <= 0 {
		return nil, fmt.Errorf("gas price must be positive")
	}
	if gasAdjustment.LessThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("gas adjustment must be at least 1")
	}
	if maxTxs <= 0 {
		maxTxs = 1000
	}
	return &cosmosBridge{
		explorer:      explorer,
		gasPrice:      gasPrice,
		gasAdjustment: gasAdjustment,
		maxTxs:        maxTxs,
		now:           time.Now,
	}, nil
}

func (b *cosmosBridge) Family() string {
	return FamilyCosmos
}

func (b *cosmosBridge) CreateTransaction() domain.Transaction {
	return domain.Transaction{
		Family: FamilyCosmos,
		Amount: new(big.Int),
	}
}

func (b *cosmosBridge) UpdateTransaction(
	t domain.Transaction, patch domain.TransactionPatch,
) domain.Transaction {
	next := t.Apply(patch)
	// A user-chosen gas limit voids the previously derived fee.
	if patch.GasLimit != nil && patch.Fees == nil {
		next.Fees = nil
	}
	return next
}

func (b *cosmosBridge) PrepareTransaction(
	_ context.Context, _ *domain.Account, t domain.Transaction,
) (domain.Transaction, error) {
	if t.NetworkInfo != nil && t.GasLimit != nil && t.Fees != nil {
		return t, nil
	}
	next := t

	if next.NetworkInfo == nil {
		next.NetworkInfo = &domain.NetworkInfo{
			Family:   FamilyCosmos,
			GasPrice: b.gasPrice,
			BaseGas:  baseGas,
		}
	}
	if next.GasLimit == nil {
		adjusted := decimal.NewFromInt(baseGas).Mul(b.gasAdjustment).Ceil()
		next.GasLimit = adjusted.BigInt()
	}
	if next.Fees == nil {
		next.Fees = new(big.Int).Mul(next.GasLimit, b.gasPrice)
	}

	if next.Equal(t) {
		return t, nil
	}
	return next, nil
}

func (b *cosmosBridge) GetTransactionStatus(
	_ context.Context, account *domain.Account, t domain.Transaction,
) (*domain.TransactionStatus, error) {
	status := domain.NewTransactionStatus()

	switch {
	case t.Recipient == "":
		status.SetError(domain.StatusKeyRecipient, domain.ErrRecipientRequired)
	case !isValidAddress(t.Recipient):
		status.SetError(domain.StatusKeyRecipient, domain.ErrInvalidAddress)
	case t.Recipient == account.Address:
		status.SetError(domain.StatusKeyRecipient, domain.ErrSourceEqualsDestination)
	}

	fees := t.Fees
	if fees == nil {
		status.SetError(domain.StatusKeyFee, domain.ErrFeeNotLoaded)
		fees = new(big.Int)
	}
	status.EstimatedFees = fees

	amount := t.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	if t.UseAllAmount {
		amount = new(big.Int).Sub(account.SpendableBalance, fees)
		if amount.Sign() < 0 {
			amount.SetInt64(0)
		}
	}
	if amount.Sign() == 0 && !t.UseAllAmount {
		status.SetError(domain.StatusKeyAmount, domain.ErrAmountRequired)
	}

	totalSpent := new(big.Int).Add(amount, fees)
	if totalSpent.Cmp(account.SpendableBalance) > 0 {
		status.SetError(domain.StatusKeyAmount, domain.ErrNotEnoughBalance)
	}

	status.Amount = amount
	status.TotalSpent = totalSpent
	return status, nil
}

// isValidAddress checks the bech32 form and the account prefix.
func isValidAddress(address string) bool {
	hrp, _, err := bech32.Decode(address)
	return err == nil && hrp == addressPrefix
}

func (b *cosmosBridge) SignOperation(
	ctx context.Context, account *domain.Account, t domain.Transaction,
	transport ports.DeviceTransport,
) (*bridge.SignedOperation, error) {
	session := bridge.NewSigningSession(transport)
	defer session.Close()

	onchain, err := b.explorer.FetchAccount(ctx, account.Address)
	if err != nil {
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	if onchain == nil {
		return nil, domain.ErrAccountNotFound
	}

	fees := t.Fees
	if fees == nil {
		return nil, domain.ErrFeeNotLoaded
	}
	gasLimit := t.GasLimit
	if gasLimit == nil {
		return nil, domain.ErrFeeNotLoaded
	}
	amount := t.Amount
	if t.UseAllAmount {
		amount = new(big.Int).Sub(account.SpendableBalance, fees)
	}

	msg := cosmosexplorer.Msg{
		Type: cosmosexplorer.MsgSendType,
		Value: cosmosexplorer.MsgValue{
			Amount:      []cosmosexplorer.Coin{{Denom: denom, Amount: amount.String()}},
			FromAddress: account.Address,
			ToAddress:   t.Recipient,
		},
	}
	fee := cosmosexplorer.StdFee{
		Amount: []cosmosexplorer.Coin{{Denom: denom, Amount: fees.String()}},
		Gas:    gasLimit.String(),
	}
	signDoc := &cosmosexplorer.StdSignDoc{
		AccountNumber: onchain.AccountNumber,
		ChainID:       b.explorer.ChainID(),
		Fee:           fee,
		Memo:          t.MemoValue,
		Msgs:          []cosmosexplorer.Msg{msg},
		Sequence:      onchain.Sequence,
	}
	signBytes, err := signDoc.SignBytes()
	if err != nil {
		return nil, fmt.Errorf("encoding sign doc: %w", err)
	}

	if err := session.Checkpoint(ctx); err != nil {
		return nil, err
	}
	signature, err := session.Sign(ctx, account.DerivationPath, signBytes, nil)
	if err != nil {
		return nil, err
	}
	if err := session.Checkpoint(ctx); err != nil {
		return nil, err
	}

	stdTx := &cosmosexplorer.StdTx{
		Type: stdTxType,
		Value: cosmosexplorer.StdTxValue{
			Msg: []cosmosexplorer.Msg{msg},
			Fee: fee,
			Signatures: []cosmosexplorer.StdSignature{{
				PubKey:    cosmosexplorer.PubKey{Type: pubKeyType, Value: account.PublicKey},
				Signature: base64.StdEncoding.EncodeToString(signature),
			}},
			Memo: t.MemoValue,
		},
	}
	rawPayload, err := json.Marshal(stdTx)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"session":  session.Id(),
		"sequence": onchain.Sequence,
	}).Debug("transaction signed")

	// The hash is only known once the node accepts the transaction.
	op := bridge.OptimisticOperation(account, t, fees, "", b.now())
	return &bridge.SignedOperation{
		Operation:  op,
		Signature:  signature,
		RawPayload: rawPayload,
	}, nil
}

func (b *cosmosBridge) Broadcast(
	ctx context.Context, account *domain.Account, signed *bridge.SignedOperation,
) (*domain.Operation, error) {
	var tx cosmosexplorer.StdTx
	if err := json.Unmarshal(signed.RawPayload, &tx); err != nil {
		return nil, fmt.Errorf("decoding signed payload: %w", err)
	}

	reply, err := b.explorer.Broadcast(ctx, &tx)
	if err != nil {
		return nil, fmt.Errorf("broadcasting: %w", err)
	}
	if !reply.Accepted() {
		return nil, domain.NewBroadcastError(reply.RawLog)
	}

	op := signed.Operation
	op.Hash = reply.TxHash
	op.Id = domain.NewOperationId(op.AccountId, reply.TxHash, op.Type)
	return &op, nil
}

func (b *cosmosBridge) Sync(
	ctx context.Context, account *domain.Account,
) (*domain.Account, error) {
	shape := bridge.AccountShape{
		Balance:          new(big.Int),
		SpendableBalance: new(big.Int),
	}

	onchain, err := b.explorer.FetchAccount(ctx, account.Address)
	if err != nil {
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	if onchain != nil {
		balance := onchain.BalanceOf(denom)
		shape.Balance = balance
		shape.SpendableBalance = balance
	}

	txs, err := b.explorer.FetchTransactions(
		ctx, account.Address,
		func(count int) bool { return count < b.maxTxs },
	)
	if err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}
	for _, tx := range txs {
		for _, op := range txToOperations(account, tx) {
			if op.BlockHeight != nil && *op.BlockHeight > shape.BlockHeight {
				shape.BlockHeight = *op.BlockHeight
			}
			shape.Operations = append(shape.Operations, op)
		}
	}

	return bridge.ApplyShape(account, shape, b.now()), nil
}

// txToOperations projects a chain transaction onto the account, one
// operation per send message that involves it.
func txToOperations(account *domain.Account, tx cosmosexplorer.Tx) []domain.Operation {
	height, err := strconv.ParseUint(tx.Height, 10, 64)
	if err != nil {
		log.WithField("txhash", tx.TxHash).Warn("skipping record with bad height")
		return nil
	}

	ops := []domain.Operation{}
	for _, msg := range tx.TxBody.Value.Msg {
		if msg.Type != cosmosexplorer.MsgSendType {
			continue
		}

		var typ domain.OperationType
		switch account.Address {
		case msg.Value.FromAddress:
			typ = domain.OperationTypeOut
		case msg.Value.ToAddress:
			typ = domain.OperationTypeIn
		default:
			continue
		}

		value := new(big.Int)
		for _, coin := range msg.Value.Amount {
			if coin.Denom != denom {
				continue
			}
			if amount, ok := new(big.Int).SetString(coin.Amount, 10); ok {
				value.Add(value, amount)
			}
		}

		blockHeight := height
		ops = append(ops, domain.Operation{
			Id:          domain.NewOperationId(account.Id, tx.TxHash, typ),
			AccountId:   account.Id,
			Hash:        tx.TxHash,
			Type:        typ,
			Value:       value,
			Fee:         new(big.Int),
			Senders:     []string{msg.Value.FromAddress},
			Recipients:  []string{msg.Value.ToAddress},
			BlockHeight: &blockHeight,
			Date:        tx.Timestamp.UTC(),
			Extra:       map[string]string{},
		})
	}
	return ops
}
