// Package stellar implements the transaction bridge for the stellar
// family. Fees follow the network's suggested base fee, every account must
// keep a reserve proportional to its subentries, sends to unfunded
// addresses become create-account operations with an activation minimum,
// and well-known recipients may require a memo, resolved through a public
// directory and cached.
package stellar

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/walletd-network/walletd/internal/core/application/bridge"
	"github.com/walletd-network/walletd/internal/core/domain"
	"github.com/walletd-network/walletd/internal/core/ports"
	stellarexplorer "github.com/walletd-network/walletd/internal/infrastructure/explorer/stellar"
	"github.com/walletd-network/walletd/pkg/asynccache"
	"github.com/walletd-network/walletd/pkg/stellarxdr"
)

// FamilyStellar is the family tag served by this bridge.
const FamilyStellar = "stellar"

const (
	// stroopsPerUnit converts the display denomination to stroops.
	stroopsPerUnit = 7
	// baseReserveStroops is the reserve charged per ledger entry. An
	// account holds two base entries plus one per subentry.
	baseReserveStroops = 5_000_000
	// newAccountMinimum is the smallest amount that can fund an address
	// with no on-chain presence.
	newAccountMinimum = 10_000_000
	// memoCacheSize and memoCacheAge bound the directory lookup cache.
	memoCacheSize = 300
	memoCacheAge  = 3 * time.Hour
)

var memoIDPattern = regexp.MustCompile(`^\d+$`)

// Explorer is the horizon surface the bridge consumes.
type Explorer interface {
	FetchAccount(ctx context.Context, address string) (*stellarexplorer.Account, error)
	FetchPayments(
		ctx context.Context, address string, shouldFetchMore func(count int) bool,
	) ([]stellarexplorer.Payment, error)
	FetchFeeStats(ctx context.Context) (int64, error)
	SubmitTransaction(ctx context.Context, envelope string) (*stellarexplorer.SubmitReply, error)
}

// MemoDirectory resolves the memo type a well-known recipient expects.
type MemoDirectory interface {
	SuggestedMemoType(ctx context.Context, address string) (string, error)
}

type stellarBridge struct {
	explorer   Explorer
	memoCache  *asynccache.Cache[string, string]
	passphrase string
	maxTxs     int
	now        func() time.Time
}

// NewBridge returns the stellar bridge backed by the given explorer and
// memo directory. networkPassphrase identifies the network signatures
// commit to; maxTxs bounds how much history a sync pass pulls. cacheOpts
// optionally overrides the memo cache bounds.
func NewBridge(
	explorer Explorer, directory MemoDirectory, networkPassphrase string,
	maxTxs int, cacheOpts ...asynccache.Options,
) (bridge.Bridge, error) {
	if explorer == nil {
		return nil, fmt.Errorf("missing explorer")
	}
	if directory == nil {
		return nil, fmt.Errorf("missing memo directory")
	}
	if networkPassphrase == "" {
		return nil, fmt.Errorf("missing network passphrase")
	}
	if maxTxs <= 0 {
		maxTxs = 1000
	}

	cacheOptions := asynccache.Options{MaxEntries: memoCacheSize, MaxAge: memoCacheAge}
	if len(cacheOpts) > 0 {
		cacheOptions = cacheOpts[0]
	}
	memoCache := asynccache.New(
		directory.SuggestedMemoType,
		func(address string) string { return address },
		cacheOptions,
	)
	return &stellarBridge{
		explorer:   explorer,
		memoCache:  memoCache,
		passphrase: networkPassphrase,
		maxTxs:     maxTxs,
		now:        time.Now,
	}, nil
}

// HydrateMemoCache preloads a directory verdict, letting callers restore
// persisted lookups without hitting the network.
func (b *stellarBridge) HydrateMemoCache(address, memoType string) {
	b.memoCache.Hydrate(address, memoType)
}

func (b *stellarBridge) Family() string {
	return FamilyStellar
}

func (b *stellarBridge) CreateTransaction() domain.Transaction {
	return domain.Transaction{
		Family: FamilyStellar,
		Amount: new(big.Int),
	}
}

func (b *stellarBridge) UpdateTransaction(
	t domain.Transaction, patch domain.TransactionPatch,
) domain.Transaction {
	next := t.Apply(patch)
	// The recommended memo policy belongs to the recipient; a new one
	// voids the resolved type unless the patch set it explicitly.
	if patch.Recipient != nil && *patch.Recipient != t.Recipient &&
		patch.MemoType == nil {
		next.MemoType = nil
	}
	return next
}

func (b *stellarBridge) PrepareTransaction(
	ctx context.Context, account *domain.Account, t domain.Transaction,
) (domain.Transaction, error) {
	if t.NetworkInfo != nil && t.Fees != nil && t.MemoType != nil {
		return t, nil
	}
	next := t

	if next.NetworkInfo == nil || next.Fees == nil {
		baseFee, err := b.explorer.FetchFeeStats(ctx)
		if err != nil {
			return t, fmt.Errorf("fetching fee stats: %w", err)
		}
		sender, err := b.explorer.FetchAccount(ctx, account.Address)
		if err != nil {
			return t, fmt.Errorf("fetching account: %w", err)
		}
		reserve := big.NewInt(int64(2+sender.SubentryCount) * baseReserveStroops)

		next.NetworkInfo = &domain.NetworkInfo{
			Family:      FamilyStellar,
			Fees:        big.NewInt(baseFee),
			BaseReserve: reserve,
		}
		if next.Fees == nil {
			next.Fees = big.NewInt(baseFee)
		}
	}

	if next.MemoType == nil && stellarxdr.IsValidAccountID(next.Recipient) {
		memoType, err := b.memoCache.Get(ctx, next.Recipient)
		if err != nil {
			log.WithError(err).Debug("memo directory lookup failed")
			memoType = ""
		}
		next.MemoType = &memoType
	}

	if next.Equal(t) {
		return t, nil
	}
	return next, nil
}

func (b *stellarBridge) GetTransactionStatus(
	ctx context.Context, account *domain.Account, t domain.Transaction,
) (*domain.TransactionStatus, error) {
	status := domain.NewTransactionStatus()

	switch {
	case t.Recipient == "":
		status.SetError(domain.StatusKeyRecipient, domain.ErrRecipientRequired)
	case !stellarxdr.IsValidAccountID(t.Recipient):
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

	reserve := new(big.Int)
	if t.NetworkInfo != nil && t.NetworkInfo.BaseReserve != nil {
		reserve = t.NetworkInfo.BaseReserve
	}

	amount := t.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	if t.UseAllAmount {
		amount = new(big.Int).Sub(account.Balance, reserve)
		amount.Sub(amount, fees)
		if amount.Sign() < 0 {
			amount.SetInt64(0)
		}
		status.SetWarning(domain.StatusKeyAmount, domain.ErrMinimumBalanceWarning)
	}
	totalSpent := new(big.Int).Add(amount, fees)

	if new(big.Int).Add(totalSpent, reserve).Cmp(account.Balance) > 0 {
		status.SetError(domain.StatusKeyAmount, domain.ErrNotEnoughBalance)
		amount = new(big.Int)
		totalSpent = new(big.Int)
	}
	if amount.Sign() == 0 && !t.UseAllAmount {
		status.SetError(domain.StatusKeyAmount, domain.ErrAmountRequired)
	}

	if _, blocked := status.Errors[domain.StatusKeyRecipient]; !blocked &&
		amount.Sign() > 0 && amount.Cmp(big.NewInt(newAccountMinimum)) < 0 {
		if funded, err := b.recipientFunded(ctx, t.Recipient); err == nil && !funded {
			status.SetError(domain.StatusKeyAmount, domain.ErrNewAccountMinimum)
		}
	}

	if err := validateMemo(t); err != nil {
		status.SetError(domain.StatusKeyTransaction, err)
	}

	status.Amount = amount
	status.TotalSpent = totalSpent
	return status, nil
}

func (b *stellarBridge) recipientFunded(ctx context.Context, address string) (bool, error) {
	_, err := b.explorer.FetchAccount(ctx, address)
	if err == stellarexplorer.ErrAccountNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// validateMemo checks the memo value against its declared type.
func validateMemo(t domain.Transaction) error {
	if t.MemoType == nil || t.MemoValue == "" {
		return nil
	}
	switch *t.MemoType {
	case stellarxdr.MemoTypeText:
		if len(t.MemoValue) > stellarxdr.MaxMemoTextLength {
			return domain.ErrWrongMemoFormat
		}
	case stellarxdr.MemoTypeID:
		if !memoIDPattern.MatchString(t.MemoValue) {
			return domain.ErrWrongMemoFormat
		}
	case stellarxdr.MemoTypeHash, stellarxdr.MemoTypeReturn:
		raw, err := base64.StdEncoding.DecodeString(t.MemoValue)
		if err != nil || len(raw) != 32 {
			return domain.ErrWrongMemoFormat
		}
	}
	return nil
}

func (b *stellarBridge) SignOperation(
	ctx context.Context, account *domain.Account, t domain.Transaction,
	transport ports.DeviceTransport,
) (*bridge.SignedOperation, error) {
	session := bridge.NewSigningSession(transport)
	defer session.Close()

	sender, err := b.explorer.FetchAccount(ctx, account.Address)
	if err != nil {
		return nil, fmt.Errorf("fetching sequence number: %w", err)
	}
	funded, err := b.recipientFunded(ctx, t.Recipient)
	if err != nil {
		return nil, fmt.Errorf("probing recipient: %w", err)
	}

	fees := t.Fees
	if fees == nil {
		return nil, domain.ErrFeeNotLoaded
	}
	// The envelope carries the fee as a uint32, so an oversized value would
	// silently wrap once encoded.
	if !fees.IsUint64() || fees.Uint64() > math.MaxUint32 {
		return nil, fmt.Errorf("fee %s overflows the stellar fee field", fees)
	}
	amount := t.Amount
	if t.UseAllAmount {
		reserve := new(big.Int)
		if t.NetworkInfo != nil && t.NetworkInfo.BaseReserve != nil {
			reserve = t.NetworkInfo.BaseReserve
		}
		amount = new(big.Int).Sub(account.Balance, reserve)
		amount.Sub(amount, fees)
	}

	memo, err := buildMemo(t)
	if err != nil {
		return nil, err
	}
	tx := stellarxdr.Transaction{
		Source:         account.Address,
		Fee:            uint32(fees.Uint64()),
		SequenceNumber: sender.Sequence + 1,
		Memo:           memo,
		Destination:    t.Recipient,
		Amount:         amount.Int64(),
		CreateAccount:  !funded,
	}
	txXDR, err := tx.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}

	if err := session.Checkpoint(ctx); err != nil {
		return nil, err
	}
	signature, err := session.Sign(
		ctx, account.DerivationPath,
		stellarxdr.SignatureBase(b.passphrase, txXDR), nil,
	)
	if err != nil {
		return nil, err
	}
	if err := session.Checkpoint(ctx); err != nil {
		return nil, err
	}

	sourceKey, err := stellarxdr.DecodeAccountID(account.Address)
	if err != nil {
		return nil, err
	}
	envelope := stellarxdr.EncodeEnvelope(txXDR, sourceKey, signature)

	log.WithFields(log.Fields{
		"session":        session.Id(),
		"create_account": !funded,
	}).Debug("transaction signed")

	// The final hash is only known once horizon accepts the envelope.
	op := bridge.OptimisticOperation(account, t, fees, "", b.now())
	return &bridge.SignedOperation{
		Operation:  op,
		Signature:  signature,
		RawPayload: []byte(envelope),
	}, nil
}

func buildMemo(t domain.Transaction) (stellarxdr.Memo, error) {
	if t.MemoType == nil || *t.MemoType == "" || t.MemoValue == "" {
		return stellarxdr.Memo{Type: stellarxdr.MemoTypeNone}, nil
	}
	memo := stellarxdr.Memo{Type: *t.MemoType}
	switch *t.MemoType {
	case stellarxdr.MemoTypeText:
		memo.Text = t.MemoValue
	case stellarxdr.MemoTypeID:
		var id uint64
		if _, err := fmt.Sscanf(t.MemoValue, "%d", &id); err != nil {
			return memo, domain.ErrWrongMemoFormat
		}
		memo.ID = id
	case stellarxdr.MemoTypeHash, stellarxdr.MemoTypeReturn:
		raw, err := base64.StdEncoding.DecodeString(t.MemoValue)
		if err != nil || len(raw) != 32 {
			return memo, domain.ErrWrongMemoFormat
		}
		copy(memo.Hash[:], raw)
	default:
		return memo, domain.ErrWrongMemoFormat
	}
	return memo, nil
}

func (b *stellarBridge) Broadcast(
	ctx context.Context, account *domain.Account, signed *bridge.SignedOperation,
) (*domain.Operation, error) {
	reply, err := b.explorer.SubmitTransaction(ctx, string(signed.RawPayload))
	if err != nil {
		return nil, fmt.Errorf("submitting transaction: %w", err)
	}
	if !reply.Accepted() {
		return nil, domain.NewBroadcastError(reply.RejectionReason())
	}

	op := signed.Operation
	op.Hash = reply.Hash
	op.Id = domain.NewOperationId(op.AccountId, reply.Hash, op.Type)
	return &op, nil
}

func (b *stellarBridge) Sync(
	ctx context.Context, account *domain.Account,
) (*domain.Account, error) {
	shape := bridge.AccountShape{
		Balance:          new(big.Int),
		SpendableBalance: new(big.Int),
	}

	raw, err := b.explorer.FetchAccount(ctx, account.Address)
	switch err {
	case nil:
		balance, err := parseNativeAmount(raw.NativeBalance())
		if err != nil {
			return nil, fmt.Errorf("parsing balance: %w", err)
		}
		reserve := big.NewInt(int64(2+raw.SubentryCount) * baseReserveStroops)
		spendable := new(big.Int).Sub(balance, reserve)
		if spendable.Sign() < 0 {
			spendable = new(big.Int)
		}
		shape.Balance = balance
		shape.SpendableBalance = spendable
	case stellarexplorer.ErrAccountNotFound:
		// Unfunded accounts are valid, they just have nothing yet.
	default:
		return nil, fmt.Errorf("fetching account: %w", err)
	}

	payments, err := b.explorer.FetchPayments(
		ctx, account.Address,
		func(count int) bool { return count < b.maxTxs },
	)
	if err != nil {
		return nil, fmt.Errorf("fetching payments: %w", err)
	}
	for _, payment := range payments {
		op, err := paymentToOperation(account, payment)
		if err != nil {
			log.WithError(err).WithField("payment", payment.ID).
				Warn("skipping unparseable payment")
			continue
		}
		if op != nil {
			shape.Operations = append(shape.Operations, *op)
		}
	}

	return bridge.ApplyShape(account, shape, b.now()), nil
}

// paymentToOperation projects a horizon payment record onto the account.
// Records that do not concern it (eg. non-native assets) yield nil.
func paymentToOperation(
	account *domain.Account, payment stellarexplorer.Payment,
) (*domain.Operation, error) {
	var sender, recipient string
	var rawAmount string

	switch payment.Type {
	case "payment":
		if payment.AssetType != "native" {
			return nil, nil
		}
		sender, recipient, rawAmount = payment.From, payment.To, payment.Amount
	case "create_account":
		sender, recipient, rawAmount = payment.Funder, payment.Account, payment.StartingBalance
	default:
		return nil, nil
	}

	var typ domain.OperationType
	switch account.Address {
	case sender:
		typ = domain.OperationTypeOut
	case recipient:
		typ = domain.OperationTypeIn
	default:
		return nil, nil
	}

	value, err := parseNativeAmount(rawAmount)
	if err != nil {
		return nil, err
	}

	// Horizon only serves ingested (confirmed) records on this endpoint.
	height := uint64(0)
	return &domain.Operation{
		Id:          domain.NewOperationId(account.Id, payment.TransactionHash, typ),
		AccountId:   account.Id,
		Hash:        payment.TransactionHash,
		Type:        typ,
		Value:       value,
		Fee:         new(big.Int),
		Senders:     []string{sender},
		Recipients:  []string{recipient},
		BlockHeight: &height,
		Date:        payment.CreatedAt.UTC(),
		Extra:       map[string]string{},
	}, nil
}

// parseNativeAmount converts a display-denomination decimal string to
// stroops.
func parseNativeAmount(raw string) (*big.Int, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return d.Shift(stroopsPerUnit).BigInt(), nil
}
