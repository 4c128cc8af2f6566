package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/tip-ledger/internal/api"
	"github.com/babylonlabs-io/tip-ledger/internal/bank"
	"github.com/babylonlabs-io/tip-ledger/internal/config"
	"github.com/babylonlabs-io/tip-ledger/internal/db/memdb"
	"github.com/babylonlabs-io/tip-ledger/internal/services"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
	"github.com/babylonlabs-io/tip-ledger/testutil"
)

type testServer struct {
	url   string
	owner common.Address
}

func setupTest(t *testing.T) *testServer {
	t.Helper()

	owner := testutil.RandomAddress()
	store := memdb.New()
	cfg := &config.Config{
		Ledger: config.LedgerConfig{
			Owner:           owner.Hex(),
			FeeBps:          100,
			Store:           config.StoreMemory,
			EventBufferSize: 16,
		},
		Server: config.ServerConfig{MaxEventsLimit: 50},
		Poller: config.PollerConfig{OutboxPollingInterval: time.Second, OutboxBatchSize: 10},
	}

	svc := services.NewService(cfg, store, nil, nil)
	require.NoError(t, svc.InitLedger(t.Context(), bank.NewStoreBank(store)))

	server := httptest.NewServer(api.NewHandler(svc).Routes())
	t.Cleanup(server.Close)

	return &testServer{url: server.URL, owner: owner}
}

func (s *testServer) do(t *testing.T, method, path string, caller *common.Address, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, s.url+path, reader)
	require.NoError(t, err)
	if caller != nil {
		req.Header.Set(api.CallerHeader, caller.Hex())
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

type errorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

func TestTipFlow(t *testing.T) {
	s := setupTest(t)
	tipper := testutil.RandomAddress()
	builder := testutil.RandomAddress()

	status, body := s.do(t, http.MethodPost, "/v1/tips", &tipper, map[string]string{
		"builder": builder.Hex(),
		"amount":  "10000",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	ev := decode[map[string]any](t, body)
	assert.Equal(t, string(types.EventTipSent), ev["type"])
	tip := ev["tip_sent"].(map[string]any)
	assert.Equal(t, "100", tip["fee"])
	assert.Equal(t, "10000", tip["amount"])

	status, body = s.do(t, http.MethodGet, "/v1/builders/"+builder.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, status)
	stats := decode[map[string]any](t, body)
	assert.Equal(t, "9900", stats["total"])
	assert.Equal(t, float64(1), stats["count"])

	status, body = s.do(t, http.MethodGet, "/v1/builders/"+builder.Hex()+"/total", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]string{"total": "9900"}, decode[map[string]string](t, body))

	status, body = s.do(t, http.MethodGet, "/v1/builders/"+builder.Hex()+"/count", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]uint64{"count": 1}, decode[map[string]uint64](t, body))

	status, body = s.do(t, http.MethodGet, "/v1/balances/"+builder.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "9900", decode[map[string]string](t, body)["balance"])

	status, body = s.do(t, http.MethodGet, "/v1/ledger", nil, nil)
	require.Equal(t, http.StatusOK, status)
	ledger := decode[map[string]any](t, body)
	assert.Equal(t, s.owner.Hex(), ledger["owner"])
	assert.Equal(t, "10000", ledger["total_volume"])
	assert.Equal(t, "100", ledger["total_fees"])
	assert.Equal(t, "100", ledger["pending_fees"])
	assert.Equal(t, "100", ledger["balance"])
	assert.Equal(t, float64(1000), ledger["max_fee_bps"])
}

func TestOwnerFlow(t *testing.T) {
	s := setupTest(t)
	tipper := testutil.RandomAddress()

	status, _ := s.do(t, http.MethodPost, "/v1/tips", &tipper, map[string]string{
		"builder": testutil.RandomAddress().Hex(),
		"amount":  "20000",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := s.do(t, http.MethodPut, "/v1/fee", &s.owner, map[string]uint64{"fee_bps": 500})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = s.do(t, http.MethodPost, "/v1/fees/withdraw", &s.owner, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	withdrawn := decode[map[string]any](t, body)["fees_withdrawn"].(map[string]any)
	assert.Equal(t, "200", withdrawn["amount"])

	status, body = s.do(t, http.MethodGet, "/v1/balances/"+s.owner.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "200", decode[map[string]string](t, body)["balance"])

	newOwner := testutil.RandomAddress()
	status, body = s.do(t, http.MethodPut, "/v1/owner", &s.owner, map[string]string{"new_owner": newOwner.Hex()})
	require.Equal(t, http.StatusOK, status, string(body))

	// the previous owner lost its rights
	status, body = s.do(t, http.MethodPut, "/v1/fee", &s.owner, map[string]uint64{"fee_bps": 1})
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NOT_OWNER", decode[errorBody](t, body).ErrorCode)

	status, body = s.do(t, http.MethodGet, "/v1/events?from=2&limit=10", nil, nil)
	require.Equal(t, http.StatusOK, status)
	events := decode[map[string]any](t, body)
	assert.Len(t, events["events"], 3)
	assert.Equal(t, float64(5), events["next"])
}

func TestDeposit(t *testing.T) {
	s := setupTest(t)
	sender := testutil.RandomAddress()

	status, body := s.do(t, http.MethodPost, "/v1/deposits", &sender, map[string]string{"amount": "7"})
	require.Equal(t, http.StatusNoContent, status, string(body))

	status, body = s.do(t, http.MethodGet, "/v1/ledger", nil, nil)
	require.Equal(t, http.StatusOK, status)
	ledger := decode[map[string]any](t, body)
	assert.Equal(t, "7", ledger["balance"])
	assert.Equal(t, "0", ledger["total_volume"])
	assert.Equal(t, float64(0), ledger["event_seq"])
}

func TestErrors(t *testing.T) {
	s := setupTest(t)
	stranger := testutil.RandomAddress()
	builder := testutil.RandomAddress()

	tests := []struct {
		name       string
		method     string
		path       string
		caller     *common.Address
		body       any
		statusCode int
		errorCode  string
	}{
		{"missing caller", http.MethodPost, "/v1/tips", nil,
			map[string]string{"builder": builder.Hex(), "amount": "1"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"zero value", http.MethodPost, "/v1/tips", &stranger,
			map[string]string{"builder": builder.Hex(), "amount": "0"}, http.StatusBadRequest, "ZERO_VALUE"},
		{"zero builder", http.MethodPost, "/v1/tips", &stranger,
			map[string]string{"builder": common.Address{}.Hex(), "amount": "1"}, http.StatusBadRequest, "ZERO_ADDRESS"},
		{"bad amount", http.MethodPost, "/v1/tips", &stranger,
			map[string]string{"builder": builder.Hex(), "amount": "1.5"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown field", http.MethodPost, "/v1/tips", &stranger,
			map[string]string{"builder": builder.Hex(), "value": "1"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"fee too high", http.MethodPut, "/v1/fee", &s.owner,
			map[string]uint64{"fee_bps": 1001}, http.StatusBadRequest, "FEE_TOO_HIGH"},
		{"missing fee", http.MethodPut, "/v1/fee", &s.owner,
			map[string]string{}, http.StatusBadRequest, "BAD_REQUEST"},
		{"not owner", http.MethodPost, "/v1/fees/withdraw", &stranger, nil, http.StatusForbidden, "NOT_OWNER"},
		{"zero owner", http.MethodPut, "/v1/owner", &s.owner,
			map[string]string{"new_owner": common.Address{}.Hex()}, http.StatusBadRequest, "ZERO_ADDRESS"},
		{"bad builder path", http.MethodGet, "/v1/builders/xyz", nil, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad events query", http.MethodGet, "/v1/events?from=abc", nil, nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"scores disabled", http.MethodGet, "/v1/scores?fid=3", nil, nil,
			http.StatusServiceUnavailable, "INTERNAL_SERVICE_ERROR"},
		{"unknown route", http.MethodGet, "/v2/ledger", nil, nil, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, tt.method, tt.path, tt.caller, tt.body)
			require.Equal(t, tt.statusCode, status, string(body))
			resp := decode[errorBody](t, body)
			assert.Equal(t, tt.errorCode, resp.ErrorCode)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	s := setupTest(t)

	status, body := s.do(t, http.MethodGet, "/healthcheck", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}
