package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/defi-dashboard/internal/models"
	"github.com/defi-dashboard/internal/service"
	"github.com/defi-dashboard/internal/types"
	"github.com/shopspring/decimal"
)

const testAddress = "0x1234567890123456789012345678901234567890"

// fakeEngine implements ReconcileEngine for handler tests
type fakeEngine struct {
	account      *models.Account
	transactions []*models.Transaction
	syncResult   *service.SyncResult
	err          error
	lastLimit    int
}

func (f *fakeEngine) GetPortfolio(_ context.Context, address string) (*models.Account, error) {
	if !types.ValidAddress(address) {
		return nil, &types.ServiceError{Code: types.CodeInvalidAddress, Message: "invalid address format"}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.account, nil
}

func (f *fakeEngine) ListTransactions(_ context.Context, address string, limit int) ([]*models.Transaction, error) {
	f.lastLimit = limit
	if !types.ValidAddress(address) {
		return nil, &types.ServiceError{Code: types.CodeInvalidAddress, Message: "invalid address format"}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.transactions, nil
}

func (f *fakeEngine) SyncTransactions(_ context.Context, address string) (*service.SyncResult, error) {
	if !types.ValidAddress(address) {
		return nil, &types.ServiceError{Code: types.CodeInvalidAddress, Message: "invalid address format"}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.syncResult, nil
}

func newTestServer(engine ReconcileEngine) *Server {
	return NewServer(&ServerConfig{
		Host:              "127.0.0.1",
		Port:              "0",
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             1000,
	}, engine, nil)
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	if err := json.Unmarshal(body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response: %v (body: %s)", err, body.String())
	}
	return envelope
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(&fakeEngine{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	envelope := decodeEnvelope(t, rec.Body)
	if envelope["success"] != true {
		t.Error("success = false, want true")
	}
}

func TestHandleGetPortfolio(t *testing.T) {
	engine := &fakeEngine{
		account: &models.Account{
			Address:        testAddress,
			PortfolioValue: decimal.NewFromInt(3010),
			Holdings: []types.Holding{
				{Symbol: "ETH", Balance: decimal.NewFromFloat(1.5), Value: decimal.NewFromInt(3000)},
				{Symbol: "PFT", Balance: decimal.NewFromInt(10), Value: decimal.NewFromInt(10)},
			},
		},
	}
	server := newTestServer(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio/"+testAddress, nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	envelope := decodeEnvelope(t, rec.Body)
	if envelope["success"] != true {
		t.Error("success = false, want true")
	}

	data, ok := envelope["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data is not an object: %v", envelope["data"])
	}
	if data["address"] != testAddress {
		t.Errorf("address = %v, want %s", data["address"], testAddress)
	}
}

func TestHandleGetPortfolio_InvalidAddress(t *testing.T) {
	server := newTestServer(&fakeEngine{})

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio/not-an-address", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	envelope := decodeEnvelope(t, rec.Body)
	if envelope["success"] != false {
		t.Error("success = true, want false")
	}
	if envelope["code"] != types.CodeInvalidAddress {
		t.Errorf("code = %v, want %s", envelope["code"], types.CodeInvalidAddress)
	}
}

func TestHandleListTransactions(t *testing.T) {
	engine := &fakeEngine{
		transactions: []*models.Transaction{
			{TxHash: "0xaaa", OwnerAddress: testAddress, Kind: types.KindSend, Status: types.StatusConfirmed},
			{TxHash: "0xbbb", OwnerAddress: testAddress, Kind: types.KindReceive, Status: types.StatusConfirmed},
		},
	}
	server := newTestServer(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio/"+testAddress+"/transactions", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	envelope := decodeEnvelope(t, rec.Body)
	data, ok := envelope["data"].([]interface{})
	if !ok {
		t.Fatalf("data is not an array: %v", envelope["data"])
	}
	if len(data) != 2 {
		t.Errorf("data length = %d, want 2", len(data))
	}
}

func TestHandleListTransactions_BadLimit(t *testing.T) {
	server := newTestServer(&fakeEngine{})

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio/"+testAddress+"/transactions?limit=abc", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleListTransactions_CapsLimit(t *testing.T) {
	engine := &fakeEngine{}
	server := newTestServer(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio/"+testAddress+"/transactions?limit=500", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if engine.lastLimit != service.DefaultTransactionLimit {
		t.Errorf("engine limit = %d, want capped at %d", engine.lastLimit, service.DefaultTransactionLimit)
	}
}

func TestHandleSync(t *testing.T) {
	engine := &fakeEngine{
		syncResult: &service.SyncResult{
			Address:            testAddress,
			TransactionsSynced: 4,
			NewTransactions:    2,
			PortfolioValue:     decimal.NewFromInt(3010),
			SyncedAt:           time.Now().UTC(),
		},
	}
	server := newTestServer(engine)

	body, _ := json.Marshal(SyncRequest{Address: testAddress})
	req := httptest.NewRequest(http.MethodPost, "/api/portfolio/sync", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	envelope := decodeEnvelope(t, rec.Body)
	data, ok := envelope["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data is not an object: %v", envelope["data"])
	}
	if data["transactionsSynced"] != float64(4) {
		t.Errorf("transactionsSynced = %v, want 4", data["transactionsSynced"])
	}
}

func TestHandleSync_InvalidBody(t *testing.T) {
	server := newTestServer(&fakeEngine{})

	req := httptest.NewRequest(http.MethodPost, "/api/portfolio/sync", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleSync_ChainUnavailable(t *testing.T) {
	engine := &fakeEngine{
		err: &types.ServiceError{Code: types.CodeChainUnavailable, Message: "chain is unavailable"},
	}
	server := newTestServer(engine)

	body, _ := json.Marshal(SyncRequest{Address: testAddress})
	req := httptest.NewRequest(http.MethodPost, "/api/portfolio/sync", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	envelope := decodeEnvelope(t, rec.Body)
	if envelope["code"] != types.CodeChainUnavailable {
		t.Errorf("code = %v, want %s", envelope["code"], types.CodeChainUnavailable)
	}
}
