package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bank-ledger/internal/ledger"
	"github.com/example/bank-ledger/internal/security"
	"github.com/example/bank-ledger/pkg/audit"
)

type auditSpy struct{ calls int }

func (a *auditSpy) Append(payload string) *audit.LogEntry {
	a.calls++
	return &audit.LogEntry{Payload: payload}
}

func newTestServer(t *testing.T, mutate func(*Dependencies)) *httptest.Server {
	t.Helper()

	svc := ledger.NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))
	deps := Dependencies{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		LedgerReader: svc,
		LedgerWriter: svc,
		MaxBodyBytes: 1 << 20,
	}
	if mutate != nil {
		mutate(&deps)
	}

	h, err := NewRouter(deps)
	require.NoError(t, err)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createAccount(t *testing.T, ts *httptest.Server, name string, balance float64) string {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/accounts", fmt.Sprintf(`{"name":%q,"initial_balance":%g}`, name, balance))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out accountResponse
	decodeBody(t, resp, &out)
	require.NotEmpty(t, out.Account.ID)
	return out.Account.ID
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndGetAccount(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/accounts", `{"name":"Alice","initial_balance":200}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(security.CorrelationIDHeader))

	var created accountResponse
	decodeBody(t, resp, &created)
	assert.Equal(t, "Alice", created.Account.Name)
	assert.Equal(t, 200.0, created.Account.Balance)
	assert.NotEmpty(t, created.CorrelationID)

	resp, err := http.Get(ts.URL + "/api/accounts/" + created.Account.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got accountResponse
	decodeBody(t, resp, &got)
	assert.Equal(t, created.Account.ID, got.Account.ID)
	assert.Zero(t, got.Account.TransactionCount)
}

func TestCreateAccountValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	// Missing name is stopped by the schema.
	resp := postJSON(t, ts.URL+"/api/accounts", `{"initial_balance":10}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errOut security.ErrorResponse
	decodeBody(t, resp, &errOut)
	assert.Equal(t, "validation_error", errOut.Error)

	// A whitespace-only name passes the schema but the core rejects it.
	resp = postJSON(t, ts.URL+"/api/accounts", `{"name":"   "}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decodeBody(t, resp, &errOut)
	assert.Equal(t, "invalid_argument", errOut.Error)
}

func TestGetAccountNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/accounts/missing")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errOut security.ErrorResponse
	decodeBody(t, resp, &errOut)
	assert.Equal(t, "account_not_found", errOut.Error)
}

func TestDepositAndWithdraw(t *testing.T) {
	ts := newTestServer(t, nil)
	id := createAccount(t, ts, "Alice", 100)

	resp := postJSON(t, ts.URL+"/api/accounts/"+id+"/deposit", `{"amount":50}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out operationResponse
	decodeBody(t, resp, &out)
	assert.Equal(t, 150.0, out.Result.NewBalance)

	resp = postJSON(t, ts.URL+"/api/accounts/"+id+"/withdraw", `{"amount":30}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &out)
	assert.Equal(t, 120.0, out.Result.NewBalance)
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	ts := newTestServer(t, nil)
	id := createAccount(t, ts, "Alice", 0)

	resp := postJSON(t, ts.URL+"/api/accounts/"+id+"/deposit", `{"amount":-5}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errOut security.ErrorResponse
	decodeBody(t, resp, &errOut)
	assert.Equal(t, "validation_error", errOut.Error)
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	ts := newTestServer(t, nil)
	id := createAccount(t, ts, "Alice", 100)

	resp := postJSON(t, ts.URL+"/api/accounts/"+id+"/withdraw", `{"amount":150}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var errOut security.ErrorResponse
	decodeBody(t, resp, &errOut)
	assert.Equal(t, "insufficient_funds", errOut.Error)
}

func TestTransferAndHistory(t *testing.T) {
	ts := newTestServer(t, nil)
	alice := createAccount(t, ts, "Alice", 200)
	bob := createAccount(t, ts, "Bob", 100)

	body := fmt.Sprintf(`{"from_account_id":%q,"to_account_id":%q,"amount":75}`, alice, bob)
	resp := postJSON(t, ts.URL+"/api/transfer", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out transferResponse
	decodeBody(t, resp, &out)
	assert.Equal(t, 75.0, out.Result.Amount)
	assert.Equal(t, 125.0, out.Result.FromBalance)
	assert.Equal(t, 175.0, out.Result.ToBalance)
	assert.NotEmpty(t, out.Result.TransferID)

	resp, err := http.Get(ts.URL + "/api/accounts/" + alice + "/transactions")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history historyResponse
	decodeBody(t, resp, &history)
	require.Len(t, history.Transactions, 1)
	assert.Equal(t, ledger.KindTransferOut, history.Transactions[0].Kind)
	assert.Equal(t, bob, history.Transactions[0].CounterpartyID)
}

func TestTransferToSelfRejected(t *testing.T) {
	ts := newTestServer(t, nil)
	alice := createAccount(t, ts, "Alice", 200)

	body := fmt.Sprintf(`{"from_account_id":%q,"to_account_id":%q,"amount":10}`, alice, alice)
	resp := postJSON(t, ts.URL+"/api/transfer", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errOut security.ErrorResponse
	decodeBody(t, resp, &errOut)
	assert.Equal(t, "invalid_argument", errOut.Error)
}

func TestMalformedJSONRejected(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/accounts", `{"name":`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errOut security.ErrorResponse
	decodeBody(t, resp, &errOut)
	assert.Equal(t, "invalid_json", errOut.Error)
}

func TestBodySizeLimit(t *testing.T) {
	ts := newTestServer(t, func(deps *Dependencies) {
		deps.MaxBodyBytes = 64
	})

	big := fmt.Sprintf(`{"name":%q}`, strings.Repeat("x", 256))
	resp, err := http.Post(ts.URL+"/api/accounts", "application/json", bytes.NewReader([]byte(big)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ts := newTestServer(t, func(deps *Dependencies) {
		deps.RateLimiter = &security.RedisTokenBucket{
			Redis:      client,
			Prefix:     "router_test",
			Capacity:   1,
			RefillRate: 0.001,
		}
	})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestAuditMiddlewareRecordsRequests(t *testing.T) {
	spy := &auditSpy{}
	ts := newTestServer(t, func(deps *Dependencies) {
		deps.Auditor = spy
	})

	createAccount(t, ts, "Alice", 10)
	resp, err := http.Get(ts.URL + "/api/accounts/missing")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, 2, spy.calls)
}
