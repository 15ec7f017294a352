package tron_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/walletd-network/walletd/internal/core/application/bridge"
	"github.com/walletd-network/walletd/internal/core/application/bridge/tron"
	"github.com/walletd-network/walletd/internal/core/domain"
	tronexplorer "github.com/walletd-network/walletd/internal/infrastructure/explorer/tron"
	"github.com/walletd-network/walletd/pkg/tronaddr"
)

var (
	senderHex    = "41" + strings.Repeat("01", 20)
	recipientHex = "41" + strings.Repeat("02", 20)
)

func mustEncode(t *testing.T, hexAddr string) string {
	t.Helper()
	addr, err := tronaddr.Encode(hexAddr)
	require.NoError(t, err)
	return addr
}

type fakeExplorer struct {
	account       *tronexplorer.Account
	recipient     *tronexplorer.Account
	accountNet    tronexplorer.AccountNet
	txs           []tronexplorer.Tx
	created       *tronexplorer.CreatedTx
	broadcast     *tronexplorer.BroadcastReply
	netInfoCalls  int
	accountCalls  int
	createCalls   int
	broadcastReqs []*tronexplorer.SignedTx
}

func (f *fakeExplorer) FetchAccount(
	_ context.Context, address string,
) (*tronexplorer.Account, error) {
	f.accountCalls++
	if f.account != nil && f.account.Address == address {
		return f.account, nil
	}
	return f.recipient, nil
}

func (f *fakeExplorer) FetchTransactions(
	_ context.Context, _ string, shouldFetchMore func(count int) bool,
) ([]tronexplorer.Tx, error) {
	if !shouldFetchMore(0) {
		return nil, nil
	}
	return f.txs, nil
}

func (f *fakeExplorer) FetchNetworkInfo(
	_ context.Context, _ string,
) (*tronexplorer.AccountNet, error) {
	f.netInfoCalls++
	return &f.accountNet, nil
}

func (f *fakeExplorer) CreateTransaction(
	_ context.Context, _, _ string, _ int64, _ string,
) (*tronexplorer.CreatedTx, error) {
	f.createCalls++
	return f.created, nil
}

func (f *fakeExplorer) Broadcast(
	_ context.Context, tx *tronexplorer.SignedTx,
) (*tronexplorer.BroadcastReply, error) {
	f.broadcastReqs = append(f.broadcastReqs, tx)
	return f.broadcast, nil
}

type fakeTransport struct {
	signature []byte
	signCalls int
	closed    int
}

func (f *fakeTransport) SignTransaction(
	_ context.Context, _ string, _ []byte, _ [][]byte,
) ([]byte, error) {
	f.signCalls++
	return f.signature, nil
}

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

func signedOp(hash string, payload []byte) *bridge.SignedOperation {
	return &bridge.SignedOperation{
		Operation:  domain.Operation{Hash: hash, Type: domain.OperationTypeOut},
		RawPayload: payload,
	}
}

func transferTx(
	id string, height uint64, ts int64, typ string, value tronexplorer.ContractValue,
) tronexplorer.Tx {
	tx := tronexplorer.Tx{TxID: id, BlockNumber: height, BlockTimestamp: ts}
	contract := tronexplorer.Contract{Type: typ}
	contract.Parameter.Value = value
	tx.RawData.Contract = []tronexplorer.Contract{contract}
	return tx
}

func newTestAccount(t *testing.T) *domain.Account {
	t.Helper()
	account := domain.NewAccount(
		tron.FamilyTron, "trx", mustEncode(t, senderHex), "44'/195'/0'/0/0",
	)
	account.Balance = big.NewInt(5_000_000)
	account.SpendableBalance = big.NewInt(5_000_000)
	return account
}

func TestPrepareTransaction(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(t)
	recipient := mustEncode(t, recipientHex)

	t.Run("resolves network info and fees once", func(t *testing.T) {
		explorer := &fakeExplorer{
			accountNet: tronexplorer.AccountNet{FreeNetLimit: 5000},
			recipient:  &tronexplorer.Account{Address: recipient, Balance: 1},
		}
		b, err := tron.NewBridge(explorer, 100)
		require.NoError(t, err)

		tx := b.CreateTransaction()
		tx = b.UpdateTransaction(tx, domain.TransactionPatch{
			Amount:    big.NewInt(1000),
			Recipient: &recipient,
		})

		prepared, err := b.PrepareTransaction(ctx, account, tx)
		require.NoError(t, err)
		require.NotNil(t, prepared.NetworkInfo)
		require.Equal(t, int64(5000), prepared.NetworkInfo.FreeBandwidth)
		require.NotNil(t, prepared.Fees)
		require.Zero(t, prepared.Fees.Sign())
		require.Equal(t, 1, explorer.netInfoCalls)

		again, err := b.PrepareTransaction(ctx, account, prepared)
		require.NoError(t, err)
		require.True(t, again.Equal(prepared))
		require.Equal(t, 1, explorer.netInfoCalls)
		require.Equal(t, 1, explorer.accountCalls)
	})

	t.Run("charges bandwidth when allowance exhausted", func(t *testing.T) {
		explorer := &fakeExplorer{
			accountNet: tronexplorer.AccountNet{FreeNetLimit: 100, FreeNetUsed: 100},
			recipient:  &tronexplorer.Account{Address: recipient, Balance: 1},
		}
		b, err := tron.NewBridge(explorer, 100)
		require.NoError(t, err)

		tx := b.CreateTransaction()
		tx = b.UpdateTransaction(tx, domain.TransactionPatch{Recipient: &recipient})

		prepared, err := b.PrepareTransaction(ctx, account, tx)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(2500), prepared.Fees)
	})

	t.Run("adds activation fee for unfunded recipient", func(t *testing.T) {
		explorer := &fakeExplorer{
			accountNet: tronexplorer.AccountNet{FreeNetLimit: 5000},
		}
		b, err := tron.NewBridge(explorer, 100)
		require.NoError(t, err)

		tx := b.CreateTransaction()
		tx = b.UpdateTransaction(tx, domain.TransactionPatch{Recipient: &recipient})

		prepared, err := b.PrepareTransaction(ctx, account, tx)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(100_000), prepared.Fees)
	})

	t.Run("changing recipient resets fees", func(t *testing.T) {
		explorer := &fakeExplorer{
			accountNet: tronexplorer.AccountNet{FreeNetLimit: 5000},
			recipient:  &tronexplorer.Account{Address: recipient, Balance: 1},
		}
		b, err := tron.NewBridge(explorer, 100)
		require.NoError(t, err)

		tx := b.CreateTransaction()
		tx = b.UpdateTransaction(tx, domain.TransactionPatch{Recipient: &recipient})
		prepared, err := b.PrepareTransaction(ctx, account, tx)
		require.NoError(t, err)
		require.NotNil(t, prepared.Fees)

		other := mustEncode(t, "41"+strings.Repeat("03", 20))
		updated := b.UpdateTransaction(prepared, domain.TransactionPatch{Recipient: &other})
		require.Nil(t, updated.Fees)
	})

	t.Run("explicit fees survive a recipient change", func(t *testing.T) {
		b, err := tron.NewBridge(&fakeExplorer{}, 100)
		require.NoError(t, err)

		tx := b.CreateTransaction()
		tx = b.UpdateTransaction(tx, domain.TransactionPatch{Recipient: &recipient})

		other := mustEncode(t, "41"+strings.Repeat("03", 20))
		updated := b.UpdateTransaction(tx, domain.TransactionPatch{
			Recipient: &other,
			Fees:      big.NewInt(2600),
		})
		require.Equal(t, big.NewInt(2600), updated.Fees)
	})
}

func TestGetTransactionStatus(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(t)
	recipient := mustEncode(t, recipientHex)

	b, err := tron.NewBridge(&fakeExplorer{}, 100)
	require.NoError(t, err)

	tests := []struct {
		name      string
		tx        domain.Transaction
		wantKey   string
		wantError error
	}{
		{
			name:      "missing recipient",
			tx:        domain.Transaction{Family: tron.FamilyTron, Amount: big.NewInt(1)},
			wantKey:   domain.StatusKeyRecipient,
			wantError: domain.ErrRecipientRequired,
		},
		{
			name: "invalid recipient",
			tx: domain.Transaction{
				Family: tron.FamilyTron, Amount: big.NewInt(1), Recipient: "nope",
			},
			wantKey:   domain.StatusKeyRecipient,
			wantError: domain.ErrInvalidAddress,
		},
		{
			name: "self send",
			tx: domain.Transaction{
				Family: tron.FamilyTron, Amount: big.NewInt(1), Recipient: account.Address,
			},
			wantKey:   domain.StatusKeyRecipient,
			wantError: domain.ErrSourceEqualsDestination,
		},
		{
			name: "fee not loaded",
			tx: domain.Transaction{
				Family: tron.FamilyTron, Amount: big.NewInt(1), Recipient: recipient,
			},
			wantKey:   domain.StatusKeyFee,
			wantError: domain.ErrFeeNotLoaded,
		},
		{
			name: "amount required",
			tx: domain.Transaction{
				Family: tron.FamilyTron, Amount: new(big.Int), Recipient: recipient,
				Fees: new(big.Int),
			},
			wantKey:   domain.StatusKeyAmount,
			wantError: domain.ErrAmountRequired,
		},
		{
			name: "not enough balance",
			tx: domain.Transaction{
				Family: tron.FamilyTron, Amount: big.NewInt(10_000_000),
				Recipient: recipient, Fees: new(big.Int),
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

	t.Run("valid draft", func(t *testing.T) {
		status, err := b.GetTransactionStatus(ctx, account, domain.Transaction{
			Family: tron.FamilyTron, Amount: big.NewInt(1000), Recipient: recipient,
			Fees: big.NewInt(100),
		})
		require.NoError(t, err)
		require.False(t, status.Blocked())
		require.Equal(t, big.NewInt(1000), status.Amount)
		require.Equal(t, big.NewInt(1100), status.TotalSpent)
	})

	t.Run("use all amount deducts fees", func(t *testing.T) {
		status, err := b.GetTransactionStatus(ctx, account, domain.Transaction{
			Family: tron.FamilyTron, Amount: new(big.Int), Recipient: recipient,
			Fees: big.NewInt(100_000), UseAllAmount: true,
		})
		require.NoError(t, err)
		require.False(t, status.Blocked())
		require.Equal(t, big.NewInt(4_900_000), status.Amount)
		require.Equal(t, big.NewInt(5_000_000), status.TotalSpent)
	})
}

func TestSignOperation(t *testing.T) {
	account := newTestAccount(t)
	recipient := mustEncode(t, recipientHex)
	tx := domain.Transaction{
		Family: tron.FamilyTron, Amount: big.NewInt(1000), Recipient: recipient,
		Fees: big.NewInt(0),
	}

	t.Run("signs and records an optimistic operation", func(t *testing.T) {
		explorer := &fakeExplorer{
			created: &tronexplorer.CreatedTx{TxID: "abcd", RawDataHex: "0a02b0c4"},
		}
		b, err := tron.NewBridge(explorer, 100)
		require.NoError(t, err)
		transport := &fakeTransport{signature: []byte{0xde, 0xad}}

		signed, err := b.SignOperation(context.Background(), account, tx, transport)
		require.NoError(t, err)
		require.Equal(t, 1, transport.signCalls)
		require.Equal(t, 1, transport.closed)

		require.Equal(t, domain.OperationTypeOut, signed.Operation.Type)
		require.Equal(t, "abcd", signed.Operation.Hash)
		require.False(t, signed.Operation.Confirmed())

		var payload tronexplorer.SignedTx
		require.NoError(t, json.Unmarshal(signed.RawPayload, &payload))
		require.Equal(t, "abcd", payload.TxID)
		require.Equal(t, []string{hex.EncodeToString([]byte{0xde, 0xad})}, payload.Signature)
	})

	t.Run("cancelled before signing leaves the device untouched", func(t *testing.T) {
		explorer := &fakeExplorer{
			created: &tronexplorer.CreatedTx{TxID: "abcd", RawDataHex: "0a02b0c4"},
		}
		b, err := tron.NewBridge(explorer, 100)
		require.NoError(t, err)
		transport := &fakeTransport{}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = b.SignOperation(ctx, account, tx, transport)
		require.ErrorIs(t, err, context.Canceled)
		require.Zero(t, transport.signCalls)
		require.Equal(t, 1, transport.closed)
	})
}

func TestBroadcast(t *testing.T) {
	account := newTestAccount(t)

	signedPayload, err := json.Marshal(&tronexplorer.SignedTx{
		TxID: "abcd", RawDataHex: "0a02b0c4", Signature: []string{"dead"},
	})
	require.NoError(t, err)

	t.Run("accepted", func(t *testing.T) {
		explorer := &fakeExplorer{
			broadcast: &tronexplorer.BroadcastReply{Result: true},
		}
		b, err := tron.NewBridge(explorer, 100)
		require.NoError(t, err)

		op, err := b.Broadcast(context.Background(), account, signedOp("abcd", signedPayload))
		require.NoError(t, err)
		require.Equal(t, "abcd", op.Hash)
		require.Len(t, explorer.broadcastReqs, 1)
	})

	t.Run("rejected with hex message surfaced verbatim", func(t *testing.T) {
		explorer := &fakeExplorer{
			broadcast: &tronexplorer.BroadcastReply{
				Result:  false,
				Code:    "CONTRACT_VALIDATE_ERROR",
				Message: hex.EncodeToString([]byte("balance is not sufficient")),
			},
		}
		b, err := tron.NewBridge(explorer, 100)
		require.NoError(t, err)

		_, err = b.Broadcast(context.Background(), account, signedOp("abcd", signedPayload))
		require.Error(t, err)
		require.Equal(t, "balance is not sufficient", err.Error())
	})
}

func TestSync(t *testing.T) {
	account := newTestAccount(t)
	recipient := mustEncode(t, recipientHex)
	height := uint64(42)

	explorer := &fakeExplorer{
		account: &tronexplorer.Account{
			Address: account.Address,
			Balance: 7_000_000,
			Frozen:  []tronexplorer.Frozen{{FrozenBalance: 1_000_000}},
			AssetV2: []tronexplorer.AssetBalance{{Key: "1002000", Value: 500}},
		},
		txs: []tronexplorer.Tx{
			transferTx("out1", height, 1_700_000_000_000,
				tronexplorer.ContractTransfer, tronexplorer.ContractValue{
					Amount:       1000,
					OwnerAddress: senderHex,
					ToAddress:    recipientHex,
				}),
			transferTx("in1", height-1, 1_699_000_000_000,
				tronexplorer.ContractTransfer, tronexplorer.ContractValue{
					Amount:       2000,
					OwnerAddress: recipientHex,
					ToAddress:    senderHex,
				}),
			transferTx("tok1", height-2, 1_698_000_000_000,
				tronexplorer.ContractTransferAsset, tronexplorer.ContractValue{
					Amount:       500,
					OwnerAddress: recipientHex,
					ToAddress:    senderHex,
					AssetName:    hex.EncodeToString([]byte("1002000")),
				}),
		},
	}
	b, err := tron.NewBridge(explorer, 100)
	require.NoError(t, err)

	synced, err := b.Sync(context.Background(), account)
	require.NoError(t, err)

	require.Equal(t, big.NewInt(8_000_000), synced.Balance)
	require.Equal(t, big.NewInt(7_000_000), synced.SpendableBalance)
	require.Equal(t, height, synced.BlockHeight)

	require.Len(t, synced.Operations, 2)
	require.Equal(t, domain.OperationTypeOut, synced.Operations[0].Type)
	require.Equal(t, []string{recipient}, synced.Operations[0].Recipients)
	require.Equal(t, domain.OperationTypeIn, synced.Operations[1].Type)

	require.Len(t, synced.SubAccounts, 1)
	sub := synced.SubAccounts[0]
	require.Equal(t, "1002000", sub.TokenId)
	require.Equal(t, big.NewInt(500), sub.Balance)
	require.Len(t, sub.Operations, 1)
	require.Equal(t, domain.OperationTypeIn, sub.Operations[0].Type)

	again, err := b.Sync(context.Background(), synced)
	require.NoError(t, err)
	require.Len(t, again.Operations, 2)
	require.Len(t, again.SubAccounts[0].Operations, 1)
}
