package tron_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	tronexplorer "github.com/walletd-network/walletd/internal/infrastructure/explorer/tron"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/wallet/getnowblock", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"blockID":"00"}`)
	})
	mux.Handle("/", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchTransactionsPagination(t *testing.T) {
	var baseURL string
	pages := 0
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		pages++
		switch pages {
		case 1:
			fmt.Fprintf(w, `{
				"data": [{"txID": "aa"}, {"txID": "bb"}],
				"meta": {"links": {"next": "%s/page2"}}
			}`, baseURL)
		case 2:
			fmt.Fprint(w, `{"data": [{"txID": "cc"}], "meta": {"links": {}}}`)
		default:
			t.Fatalf("unexpected page %d", pages)
		}
	})
	baseURL = server.URL

	client, err := tronexplorer.NewClient(server.URL)
	require.NoError(t, err)

	txs, err := client.FetchTransactions(
		context.Background(), "TAddr", func(count int) bool { return count < 100 },
	)
	require.NoError(t, err)
	require.Equal(t, 2, pages)

	// Server page order is preserved.
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.TxID)
	}
	require.Equal(t, []string{"aa", "bb", "cc"}, ids)
}

func TestFetchTransactionsPredicateStop(t *testing.T) {
	pages := 0
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		fmt.Fprintf(w, `{
			"data": [{"txID": "tx%d"}],
			"meta": {"links": {"next": "%s"}}
		}`, pages, "http://"+r.Host+r.URL.Path)
	})

	client, err := tronexplorer.NewClient(server.URL)
	require.NoError(t, err)

	txs, err := client.FetchTransactions(
		context.Background(), "TAddr", func(count int) bool { return count < 2 },
	)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, 2, pages)
}

func TestFetchAccountAbsent(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data": []}`)
	})

	client, err := tronexplorer.NewClient(server.URL)
	require.NoError(t, err)

	account, err := client.FetchAccount(context.Background(), "TUnknown")
	require.NoError(t, err)
	require.Nil(t, account)
}

func TestBroadcastVerdict(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wallet/broadcasttransaction", r.URL.Path)
		fmt.Fprint(w, `{"result": false, "code": "CONTRACT_VALIDATE_ERROR", "message": "6465616462656566"}`)
	})

	client, err := tronexplorer.NewClient(server.URL)
	require.NoError(t, err)

	reply, err := client.Broadcast(context.Background(), &tronexplorer.SignedTx{
		TxID: "aa", RawDataHex: "00", Signature: []string{"01"},
	})
	require.NoError(t, err)
	require.False(t, reply.Result)
	require.Equal(t, "6465616462656566", reply.Message)
}

func TestNewClientUnreachable(t *testing.T) {
	_, err := tronexplorer.NewClient("http://127.0.0.1:1")
	require.Error(t, err)
}
