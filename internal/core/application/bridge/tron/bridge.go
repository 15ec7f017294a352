// Package tron implements the transaction bridge for the tron family.
// Unsigned transfers are assembled by the node itself, fees are a matter
// of bandwidth points and the activation cost of unfunded recipients, and
// TRC10 balances surface as token sub-accounts.
package tron

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/walletd-network/walletd/internal/core/application/bridge"
	"github.com/walletd-network/walletd/internal/core/domain"
	"github.com/walletd-network/walletd/internal/core/ports"
	tronexplorer "github.com/walletd-network/walletd/internal/infrastructure/explorer/tron"
	"github.com/walletd-network/walletd/pkg/tronaddr"
)

// FamilyTron is the family tag served by this bridge.
const FamilyTron = "tron"

const (
	// estimatedTxSize is the bandwidth footprint assumed for a transfer
	// before it is assembled, in bytes.
	estimatedTxSize = 250
	// sunPerBandwidthPoint is the price of one bandwidth point once the
	// free allowance is exhausted.
	sunPerBandwidthPoint = 10
	// accountActivationFee is charged when the recipient has no on-chain
	// presence yet, in sun.
	accountActivationFee = 100_000
)

// Explorer is the node gateway surface the bridge consumes.
type Explorer interface {
	FetchAccount(ctx context.Context, address string) (*tronexplorer.Account, error)
	FetchTransactions(
		ctx context.Context, address string, shouldFetchMore func(count int) bool,
	) ([]tronexplorer.Tx, error)
	FetchNetworkInfo(ctx context.Context, address string) (*tronexplorer.AccountNet, error)
	CreateTransaction(
		ctx context.Context, from, to string, amount int64, tokenId string,
	) (*tronexplorer.CreatedTx, error)
	Broadcast(ctx context.Context, tx *tronexplorer.SignedTx) (*tronexplorer.BroadcastReply, error)
}

type tronBridge struct {
	explorer Explorer
	maxTxs   int
	now      func() time.Time
}

// NewBridge returns the tron bridge backed by the given explorer. maxTxs
// bounds how much history a sync pass pulls.
func NewBridge(explorer Explorer, maxTxs int) (bridge.Bridge, error) {
	if explorer == nil {
		return nil, fmt.Errorf("missing explorer")
	}
	if maxTxs <= 0 {
		maxTxs = 1000
	}
	return &tronBridge{
		explorer: explorer,
		maxTxs:   maxTxs,
		now:      time.Now,
	}, nil
}

func (b *tronBridge) Family() string {
	return FamilyTron
}

func (b *tronBridge) CreateTransaction() domain.Transaction {
	return domain.Transaction{
		Family: FamilyTron,
		Amount: new(big.Int),
	}
}

func (b *tronBridge) UpdateTransaction(
	t domain.Transaction, patch domain.TransactionPatch,
) domain.Transaction {
	next := t.Apply(patch)
	// The activation surcharge depends on who receives the funds, so a new
	// recipient invalidates the resolved fee, unless the same patch sets one.
	if patch.Recipient != nil && *patch.Recipient != t.Recipient && patch.Fees == nil {
		next.Fees = nil
	}
	return next
}

func (b *tronBridge) PrepareTransaction(
	ctx context.Context, account *domain.Account, t domain.Transaction,
) (domain.Transaction, error) {
	if t.NetworkInfo != nil && t.Fees != nil {
		return t, nil
	}
	next := t

	if next.NetworkInfo == nil {
		net, err := b.explorer.FetchNetworkInfo(ctx, account.Address)
		if err != nil {
			return t, fmt.Errorf("fetching network info: %w", err)
		}
		next.NetworkInfo = &domain.NetworkInfo{
			Family:        FamilyTron,
			FreeBandwidth: net.FreeBandwidth(),
		}
	}

	if next.Fees == nil {
		fee, err := b.estimateFee(ctx, next)
		if err != nil {
			return t, err
		}
		next.Fees = fee
	}

	if next.Equal(t) {
		return t, nil
	}
	return next, nil
}

// estimateFee prices the draft: the bandwidth beyond the free allowance,
// plus the activation surcharge when a native transfer targets an address
// with no on-chain presence.
func (b *tronBridge) estimateFee(
	ctx context.Context, t domain.Transaction,
) (*big.Int, error) {
	fee := new(big.Int)
	if t.NetworkInfo.FreeBandwidth < estimatedTxSize {
		fee.SetInt64(estimatedTxSize * sunPerBandwidthPoint)
	}

	if t.Recipient == "" || !tronaddr.IsValid(t.Recipient) || t.SubAccountId != "" {
		return fee, nil
	}
	recipient, err := b.explorer.FetchAccount(ctx, t.Recipient)
	if err != nil {
		return nil, fmt.Errorf("fetching recipient: %w", err)
	}
	if recipient == nil {
		fee.Add(fee, big.NewInt(accountActivationFee))
	}
	return fee, nil
}

func (b *tronBridge) GetTransactionStatus(
	ctx context.Context, account *domain.Account, t domain.Transaction,
) (*domain.TransactionStatus, error) {
	status := domain.NewTransactionStatus()

	switch {
	case t.Recipient == "":
		status.SetError(domain.StatusKeyRecipient, domain.ErrRecipientRequired)
	case !tronaddr.IsValid(t.Recipient):
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

	var spendable *big.Int
	var sub *domain.SubAccount
	if t.SubAccountId != "" {
		if sub = account.FindSubAccount(t.SubAccountId); sub == nil {
			return nil, domain.ErrSubAccountNotFound
		}
		spendable = sub.Balance
	} else {
		spendable = account.SpendableBalance
	}

	amount := t.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	if t.UseAllAmount {
		amount = new(big.Int).Set(spendable)
		if sub == nil {
			amount.Sub(amount, fees)
			if amount.Sign() < 0 {
				amount.SetInt64(0)
			}
		}
	}
	if amount.Sign() == 0 && !t.UseAllAmount {
		status.SetError(domain.StatusKeyAmount, domain.ErrAmountRequired)
	}
	status.Amount = amount

	totalSpent := new(big.Int).Add(amount, fees)
	if sub != nil {
		// Token transfers move token units, the fee is paid by the parent.
		totalSpent = new(big.Int).Set(amount)
		if fees.Cmp(account.SpendableBalance) > 0 {
			status.SetError(domain.StatusKeyAmount, domain.ErrNotEnoughBalance)
		}
	}
	if totalSpent.Cmp(spendable) > 0 {
		status.SetError(domain.StatusKeyAmount, domain.ErrNotEnoughBalance)
	}
	status.TotalSpent = totalSpent

	return status, nil
}

func (b *tronBridge) SignOperation(
	ctx context.Context, account *domain.Account, t domain.Transaction,
	transport ports.DeviceTransport,
) (*bridge.SignedOperation, error) {
	session := bridge.NewSigningSession(transport)
	defer session.Close()

	amount, tokenId, err := b.resolveSpend(account, t)
	if err != nil {
		return nil, err
	}

	created, err := b.explorer.CreateTransaction(
		ctx, account.Address, t.Recipient, amount.Int64(), tokenId,
	)
	if err != nil {
		return nil, fmt.Errorf("assembling transaction: %w", err)
	}
	payload, err := hex.DecodeString(created.RawDataHex)
	if err != nil {
		return nil, fmt.Errorf("decoding raw transaction: %w", err)
	}

	if err := session.Checkpoint(ctx); err != nil {
		return nil, err
	}
	signature, err := session.Sign(ctx, account.DerivationPath, payload, nil)
	if err != nil {
		return nil, err
	}
	if err := session.Checkpoint(ctx); err != nil {
		return nil, err
	}

	signedTx := &tronexplorer.SignedTx{
		TxID:       created.TxID,
		RawDataHex: created.RawDataHex,
		Signature:  []string{hex.EncodeToString(signature)},
	}
	rawPayload, err := json.Marshal(signedTx)
	if err != nil {
		return nil, err
	}

	op := bridge.OptimisticOperation(account, t, t.Fees, created.TxID, b.now())
	if t.SubAccountId != "" {
		op.AccountId = t.SubAccountId
		op.Id = domain.NewOperationId(t.SubAccountId, created.TxID, domain.OperationTypeOut)
		op.Extra["tokenId"] = tokenId
	}

	log.WithFields(log.Fields{
		"session": session.Id(),
		"txid":    created.TxID,
	}).Debug("transaction signed")

	return &bridge.SignedOperation{
		Operation:  op,
		Signature:  signature,
		RawPayload: rawPayload,
	}, nil
}

// resolveSpend returns the amount actually moved and, for token drafts,
// the TRC10 token id.
func (b *tronBridge) resolveSpend(
	account *domain.Account, t domain.Transaction,
) (*big.Int, string, error) {
	if t.SubAccountId != "" {
		sub := account.FindSubAccount(t.SubAccountId)
		if sub == nil {
			return nil, "", domain.ErrSubAccountNotFound
		}
		amount := t.Amount
		if t.UseAllAmount {
			amount = sub.Balance
		}
		return amount, sub.TokenId, nil
	}

	amount := t.Amount
	if t.UseAllAmount {
		fees := t.Fees
		if fees == nil {
			fees = new(big.Int)
		}
		amount = new(big.Int).Sub(account.SpendableBalance, fees)
	}
	return amount, "", nil
}

func (b *tronBridge) Broadcast(
	ctx context.Context, account *domain.Account, signed *bridge.SignedOperation,
) (*domain.Operation, error) {
	var tx tronexplorer.SignedTx
	if err := json.Unmarshal(signed.RawPayload, &tx); err != nil {
		return nil, fmt.Errorf("decoding signed payload: %w", err)
	}

	reply, err := b.explorer.Broadcast(ctx, &tx)
	if err != nil {
		return nil, fmt.Errorf("broadcasting: %w", err)
	}
	if !reply.Result {
		return nil, domain.NewBroadcastError(decodeNodeMessage(reply.Message))
	}

	op := signed.Operation
	op.Hash = tx.TxID
	return &op, nil
}

// decodeNodeMessage unwraps the hex encoding tron nodes apply to their
// rejection messages, falling back to the raw string.
func decodeNodeMessage(message string) string {
	if raw, err := hex.DecodeString(message); err == nil && len(raw) > 0 {
		return string(raw)
	}
	return message
}

func (b *tronBridge) Sync(
	ctx context.Context, account *domain.Account,
) (*domain.Account, error) {
	raw, err := b.explorer.FetchAccount(ctx, account.Address)
	if err != nil {
		return nil, fmt.Errorf("fetching account: %w", err)
	}

	shape := bridge.AccountShape{
		Balance:          new(big.Int),
		SpendableBalance: new(big.Int),
	}
	if raw != nil {
		spendable := big.NewInt(raw.Balance)
		total := new(big.Int).Set(spendable)
		for _, frozen := range raw.Frozen {
			total.Add(total, big.NewInt(frozen.FrozenBalance))
		}
		shape.Balance = total
		shape.SpendableBalance = spendable
		shape.SubAccounts = b.subAccountShapes(account, raw)
	}

	txs, err := b.explorer.FetchTransactions(
		ctx, account.Address,
		func(count int) bool { return count < b.maxTxs },
	)
	if err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}

	for _, tx := range txs {
		if tx.BlockNumber > shape.BlockHeight {
			shape.BlockHeight = tx.BlockNumber
		}
		for _, op := range txToOperations(account, tx) {
			if tokenId, ok := op.Extra["tokenId"]; ok {
				attachTokenOperation(&shape, account.Id, tokenId, op)
				continue
			}
			shape.Operations = append(shape.Operations, op)
		}
	}

	return bridge.ApplyShape(account, shape, b.now()), nil
}

func (b *tronBridge) subAccountShapes(
	account *domain.Account, raw *tronexplorer.Account,
) []domain.SubAccount {
	subs := make([]domain.SubAccount, 0, len(raw.AssetV2))
	for _, asset := range raw.AssetV2 {
		subs = append(subs, domain.SubAccount{
			Id:       domain.NewSubAccountId(account.Id, asset.Key),
			ParentId: account.Id,
			TokenId:  asset.Key,
			Balance:  big.NewInt(asset.Value),
		})
	}
	return subs
}

// attachTokenOperation routes a token operation to its sub-account shape,
// creating the shape when the balance endpoint did not report the token.
func attachTokenOperation(
	shape *bridge.AccountShape, accountId, tokenId string, op domain.Operation,
) {
	subId := domain.NewSubAccountId(accountId, tokenId)
	for i := range shape.SubAccounts {
		if shape.SubAccounts[i].Id == subId {
			shape.SubAccounts[i].Operations = append(shape.SubAccounts[i].Operations, op)
			return
		}
	}
	shape.SubAccounts = append(shape.SubAccounts, domain.SubAccount{
		Id:         subId,
		ParentId:   accountId,
		TokenId:    tokenId,
		Balance:    new(big.Int),
		Operations: []domain.Operation{op},
	})
}

// txToOperations projects a raw chain transaction onto the account,
// yielding one operation per transfer contract that involves it.
func txToOperations(account *domain.Account, tx tronexplorer.Tx) []domain.Operation {
	ops := []domain.Operation{}
	for _, contract := range tx.RawData.Contract {
		if contract.Type != tronexplorer.ContractTransfer &&
			contract.Type != tronexplorer.ContractTransferAsset {
			continue
		}
		value := contract.Parameter.Value

		sender, err := tronaddr.Encode(value.OwnerAddress)
		if err != nil {
			continue
		}
		recipient, err := tronaddr.Encode(value.ToAddress)
		if err != nil {
			continue
		}

		var typ domain.OperationType
		switch account.Address {
		case sender:
			typ = domain.OperationTypeOut
		case recipient:
			typ = domain.OperationTypeIn
		default:
			continue
		}

		opAccountId := account.Id
		extra := map[string]string{}
		if contract.Type == tronexplorer.ContractTransferAsset {
			tokenId, err := decodeAssetName(value.AssetName)
			if err != nil {
				continue
			}
			opAccountId = domain.NewSubAccountId(account.Id, tokenId)
			extra["tokenId"] = tokenId
		}

		height := tx.BlockNumber
		ops = append(ops, domain.Operation{
			Id:          domain.NewOperationId(opAccountId, tx.TxID, typ),
			AccountId:   opAccountId,
			Hash:        tx.TxID,
			Type:        typ,
			Value:       big.NewInt(value.Amount),
			Fee:         new(big.Int),
			Senders:     []string{sender},
			Recipients:  []string{recipient},
			BlockHeight: &height,
			Date:        time.UnixMilli(tx.BlockTimestamp).UTC(),
			Extra:       extra,
		})
	}
	return ops
}

// decodeAssetName unwraps the hex encoding of TRC10 token ids found in
// history records, falling back to the raw string for endpoints that
// return them plain.
func decodeAssetName(assetName string) (string, error) {
	if assetName == "" {
		return "", fmt.Errorf("missing asset name")
	}
	if raw, err := hex.DecodeString(assetName); err == nil {
		return string(raw), nil
	}
	return assetName, nil
}
