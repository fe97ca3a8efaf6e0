package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"splpay/internal/cluster"
	"splpay/internal/models"
	"splpay/internal/payment"
	"splpay/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.GormStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	st := store.NewGormStore(db)
	require.NoError(t, st.AutoMigrate())

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	h := New(
		context.Background(),
		st,
		nil, // relay exercised in its own package
		nil, // reconciliation is off in handler tests
		nil,
		nil,
		solana.NewWallet().PublicKey(),
		cluster.Devnet.USDCMint,
		6,
		logrus.NewEntry(quiet),
	)

	r := gin.New()
	h.RegisterRoutes(r)
	return r, st
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:54321"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreatePaymentRequest(t *testing.T) {
	r, st := newTestRouter(t)

	w := postJSON(t, r, "/payment-requests", models.CreatePaymentRequestRequest{
		Amount:  "12.5",
		Label:   "Shop",
		Message: "Order #1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.CreatePaymentRequestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.OrderID)
	assert.NotEmpty(t, resp.Reference)
	assert.NotEmpty(t, resp.QRPNGBase64)
	assert.Contains(t, resp.URI, "solana:")
	assert.Contains(t, resp.URI, "reference="+resp.Reference)

	parsed, err := payment.ParseRequestURI(resp.URI)
	require.NoError(t, err)
	assert.Equal(t, resp.Reference, parsed.Reference.String())

	order, err := st.GetOrder(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, string(store.StatusPending), order.Status)
	assert.Equal(t, uint64(12_500_000), order.Amount)
}

func TestCreatePaymentRequestRejectsBadAmount(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, amount := range []string{"", "abc", "0", "-5", "0.0000001"} {
		w := postJSON(t, r, "/payment-requests", models.CreatePaymentRequestRequest{Amount: amount})
		assert.Equal(t, http.StatusBadRequest, w.Code, "amount %q", amount)
	}
}

func TestGetOrder(t *testing.T) {
	r, st := newTestRouter(t)

	w := postJSON(t, r, "/payment-requests", models.CreatePaymentRequestRequest{Amount: "1"})
	require.Equal(t, http.StatusOK, w.Code)
	var created models.CreatePaymentRequestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	require.NoError(t, st.MarkPaid(context.Background(), created.Reference, "5sig", 99))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/"+created.OrderID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "paid", resp.Status)
	assert.Equal(t, "5sig", resp.TxSignature)
	assert.Equal(t, "1", resp.Amount)
	assert.NotEmpty(t, resp.StatusText)
}

func TestGetOrderNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProvisionUnavailableWithoutPayer(t *testing.T) {
	r, _ := newTestRouter(t)
	w := postJSON(t, r, "/admin/provision", models.ProvisionRequest{
		Owner: solana.NewWallet().PublicKey().String(),
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProvisionRejectsRemoteClients(t *testing.T) {
	r, _ := newTestRouter(t)

	payload, err := json.Marshal(models.ProvisionRequest{
		Owner: solana.NewWallet().PublicKey().String(),
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/admin/provision", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
