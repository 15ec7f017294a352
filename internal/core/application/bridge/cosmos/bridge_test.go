package cosmos_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/walletd-network/walletd/internal/core/application/bridge"
	"github.com/walletd-network/walletd/internal/core/application/bridge/cosmos"
	"github.com/walletd-network/walletd/internal/core/domain"
	cosmosexplorer "github.com/walletd-network/walletd/internal/infrastructure/explorer/cosmos"
)

const (
	testPrefix = "cosmos"
	testDenom  = "uatom"
)

func testAddress(t *testing.T, fill byte) string {
	t.Helper()
	data, err := bech32.ConvertBits(bytes.Repeat([]byte{fill}, 20), 8, 5, true)
	require.NoError(t, err)
	addr, err := bech32.Encode(testPrefix, data)
	require.NoError(t, err)
	return addr
}

type fakeExplorer struct {
	account    *cosmosexplorer.Account
	txs        []cosmosexplorer.Tx
	broadcast  *cosmosexplorer.BroadcastReply
	broadcasts []*cosmosexplorer.StdTx
}

func (f *fakeExplorer) ChainID() string {
	return "testhub-1"
}

func (f *fakeExplorer) FetchAccount(
	_ context.Context, _ string,
) (*cosmosexplorer.Account, error) {
	return f.account, nil
}

func (f *fakeExplorer) FetchTransactions(
	_ context.Context, _ string, shouldFetchMore func(count int) bool,
) ([]cosmosexplorer.Tx, error) {
	if !shouldFetchMore(0) {
		return nil, nil
	}
	return f.txs, nil
}

func (f *fakeExplorer) Broadcast(
	_ context.Context, tx *cosmosexplorer.StdTx,
) (*cosmosexplorer.BroadcastReply, error) {
	f.broadcasts = append(f.broadcasts, tx)
	return f.broadcast, nil
}

type fakeTransport struct {
	signature []byte
	payloads  [][]byte
	closed    int
}

func (f *fakeTransport) SignTransaction(
	_ context.Context, _ string, payload []byte, _ [][]byte,
) ([]byte, error) {
	f.payloads = append(f.payloads, payload)
	return f.signature, nil
}

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

func newTestAccount(t *testing.T) *domain.Account {
	t.Helper()
	account := domain.NewAccount(
		cosmos.FamilyCosmos, "atom", testAddress(t, 1), "44'/118'/0'/0/0",
	)
	account.PublicKey = "A0b1c2d3"
	account.Balance = big.NewInt(10_000_000)
	account.SpendableBalance = big.NewInt(10_000_000)
	return account
}

func newTestBridge(t *testing.T, explorer cosmos.Explorer) bridge.Bridge {
	t.Helper()
	b, err := cosmos.NewBridge(explorer, big.NewInt(25), decimal.NewFromFloat(1.4), 100)
	require.NoError(t, err)
	return b
}

func TestPrepareTransaction(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(t)
	b := newTestBridge(t, &fakeExplorer{})

	tx := b.CreateTransaction()
	prepared, err := b.PrepareTransaction(ctx, account, tx)
	require.NoError(t, err)

	require.NotNil(t, prepared.NetworkInfo)
	require.Equal(t, big.NewInt(25), prepared.NetworkInfo.GasPrice)
	// 100_000 base gas times the 1.4 adjustment.
	require.Equal(t, big.NewInt(140_000), prepared.GasLimit)
	require.Equal(t, big.NewInt(3_500_000), prepared.Fees)

	again, err := b.PrepareTransaction(ctx, account, prepared)
	require.NoError(t, err)
	require.True(t, again.Equal(prepared))
}

func TestUpdateTransactionGasLimitResetsFees(t *testing.T) {
	account := newTestAccount(t)
	b := newTestBridge(t, &fakeExplorer{})

	tx := b.CreateTransaction()
	prepared, err := b.PrepareTransaction(context.Background(), account, tx)
	require.NoError(t, err)

	updated := b.UpdateTransaction(prepared, domain.TransactionPatch{
		GasLimit: big.NewInt(200_000),
	})
	require.Nil(t, updated.Fees)

	reprepared, err := b.PrepareTransaction(context.Background(), account, updated)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5_000_000), reprepared.Fees)
}

func TestGetTransactionStatus(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(t)
	recipient := testAddress(t, 2)
	b := newTestBridge(t, &fakeExplorer{})

	tests := []struct {
		name      string
		tx        domain.Transaction
		wantKey   string
		wantError error
	}{
		{
			name:      "missing recipient",
			tx:        domain.Transaction{Family: cosmos.FamilyCosmos, Amount: big.NewInt(1)},
			wantKey:   domain.StatusKeyRecipient,
			wantError: domain.ErrRecipientRequired,
		},
		{
			name: "invalid recipient",
			tx: domain.Transaction{
				Family: cosmos.FamilyCosmos, Amount: big.NewInt(1), Recipient: "cosmos1nope",
			},
			wantKey:   domain.StatusKeyRecipient,
			wantError: domain.ErrInvalidAddress,
		},
		{
			name: "self send",
			tx: domain.Transaction{
				Family: cosmos.FamilyCosmos, Amount: big.NewInt(1), Recipient: account.Address,
			},
			wantKey:   domain.StatusKeyRecipient,
			wantError: domain.ErrSourceEqualsDestination,
		},
		{
			name: "fee not loaded",
			tx: domain.Transaction{
				Family: cosmos.FamilyCosmos, Amount: big.NewInt(1), Recipient: recipient,
			},
			wantKey:   domain.StatusKeyFee,
			wantError: domain.ErrFeeNotLoaded,
		},
		{
			name: "amount required",
			tx: domain.Transaction{
				Family: cosmos.FamilyCosmos, Amount: new(big.Int), Recipient: recipient,
				Fees: big.NewInt(3_500_000),
			},
			wantKey:   domain.StatusKeyAmount,
			wantError: domain.ErrAmountRequired,
		},
		{
			name: "not enough balance",
			tx: domain.Transaction{
				Family: cosmos.FamilyCosmos, Amount: big.NewInt(9_000_000), Recipient: recipient,
				Fees: big.NewInt(3_500_000),
			},
			wantKey:   domain.StatusKeyAmount,
			wantError: domain.ErrNotEnoughBalance,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := b.GetTransactionStatus(ctx, account, tt.tx)
			require.NoError(t, err)
			require.True(t, status.Blocked())
			require.Equal(t, tt.wantError, status.Errors[tt.wantKey])
		})
	}

	t.Run("use all amount deducts fees", func(t *testing.T) {
		status, err := b.GetTransactionStatus(ctx, account, domain.Transaction{
			Family: cosmos.FamilyCosmos, Amount: new(big.Int), UseAllAmount: true,
			Recipient: recipient, Fees: big.NewInt(3_500_000),
		})
		require.NoError(t, err)
		require.False(t, status.Blocked())
		require.Equal(t, big.NewInt(6_500_000), status.Amount)
		require.Equal(t, big.NewInt(10_000_000), status.TotalSpent)
	})
}

func TestSignOperation(t *testing.T) {
	account := newTestAccount(t)
	recipient := testAddress(t, 2)
	tx := domain.Transaction{
		Family: cosmos.FamilyCosmos, Amount: big.NewInt(1_000_000), Recipient: recipient,
		Fees: big.NewInt(3_500_000), GasLimit: big.NewInt(140_000),
		MemoValue: "invoice 42",
	}
	explorer := &fakeExplorer{
		account: &cosmosexplorer.Account{
			Address:       account.Address,
			AccountNumber: "7",
			Sequence:      "3",
		},
	}

	t.Run("signs the canonical document", func(t *testing.T) {
		b := newTestBridge(t, explorer)
		transport := &fakeTransport{signature: make([]byte, 64)}

		signed, err := b.SignOperation(context.Background(), account, tx, transport)
		require.NoError(t, err)
		require.Equal(t, 1, transport.closed)
		require.Len(t, transport.payloads, 1)

		// The device sees the sign document with sorted keys and the
		// on-chain sequence.
		doc := string(transport.payloads[0])
		require.True(t, strings.HasPrefix(doc, `{"account_number":"7"`))
		require.Contains(t, doc, `"chain_id":"testhub-1"`)
		require.Contains(t, doc, `"sequence":"3"`)
		require.Contains(t, doc, `"memo":"invoice 42"`)

		var stdTx cosmosexplorer.StdTx
		require.NoError(t, json.Unmarshal(signed.RawPayload, &stdTx))
		require.Len(t, stdTx.Value.Signatures, 1)
		require.Equal(t, account.PublicKey, stdTx.Value.Signatures[0].PubKey.Value)
		require.Equal(t, big.NewInt(4_500_000), signed.Operation.Value)
	})

	t.Run("cancelled before signing leaves the device untouched", func(t *testing.T) {
		b := newTestBridge(t, explorer)
		transport := &fakeTransport{}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := b.SignOperation(ctx, account, tx, transport)
		require.ErrorIs(t, err, context.Canceled)
		require.Empty(t, transport.payloads)
		require.Equal(t, 1, transport.closed)
	})
}

func TestBroadcast(t *testing.T) {
	account := newTestAccount(t)
	payload, err := json.Marshal(&cosmosexplorer.StdTx{Type: "cosmos-sdk/StdTx"})
	require.NoError(t, err)
	signed := &bridge.SignedOperation{
		Operation:  domain.Operation{AccountId: account.Id, Type: domain.OperationTypeOut},
		RawPayload: payload,
	}

	t.Run("accepted sets the final hash", func(t *testing.T) {
		explorer := &fakeExplorer{
			broadcast: &cosmosexplorer.BroadcastReply{TxHash: "CAFE", Code: 0},
		}
		b := newTestBridge(t, explorer)

		op, err := b.Broadcast(context.Background(), account, signed)
		require.NoError(t, err)
		require.Equal(t, "CAFE", op.Hash)
		require.Len(t, explorer.broadcasts, 1)
	})

	t.Run("rejected surfaces the raw log verbatim", func(t *testing.T) {
		explorer := &fakeExplorer{
			broadcast: &cosmosexplorer.BroadcastReply{
				Code: 5, RawLog: "insufficient funds",
			},
		}
		b := newTestBridge(t, explorer)

		_, err := b.Broadcast(context.Background(), account, signed)
		require.Error(t, err)
		require.Equal(t, "insufficient funds", err.Error())
	})
}

func TestSync(t *testing.T) {
	account := newTestAccount(t)
	recipient := testAddress(t, 2)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	sendTx := func(hash, height string, ts time.Time, from, to string, amount string) cosmosexplorer.Tx {
		tx := cosmosexplorer.Tx{TxHash: hash, Height: height, Timestamp: ts}
		tx.TxBody.Value = cosmosexplorer.StdTxValue{
			Msg: []cosmosexplorer.Msg{{
				Type: cosmosexplorer.MsgSendType,
				Value: cosmosexplorer.MsgValue{
					Amount:      []cosmosexplorer.Coin{{Denom: testDenom, Amount: amount}},
					FromAddress: from,
					ToAddress:   to,
				},
			}},
		}
		return tx
	}

	explorer := &fakeExplorer{
		account: &cosmosexplorer.Account{
			Address: account.Address,
			Coins:   []cosmosexplorer.Coin{{Denom: testDenom, Amount: "12000000"}},
		},
		txs: []cosmosexplorer.Tx{
			sendTx("A1", "100", base, account.Address, recipient, "1000000"),
			sendTx("B2", "90", base.Add(-time.Hour), recipient, account.Address, "2000000"),
		},
	}
	b := newTestBridge(t, explorer)

	synced, err := b.Sync(context.Background(), account)
	require.NoError(t, err)

	require.Equal(t, big.NewInt(12_000_000), synced.Balance)
	require.Equal(t, uint64(100), synced.BlockHeight)

	require.Len(t, synced.Operations, 2)
	require.Equal(t, domain.OperationTypeOut, synced.Operations[0].Type)
	require.Equal(t, big.NewInt(1_000_000), synced.Operations[0].Value)
	require.Equal(t, domain.OperationTypeIn, synced.Operations[1].Type)

	again, err := b.Sync(context.Background(), synced)
	require.NoError(t, err)
	require.Len(t, again.Operations, 2)
}
