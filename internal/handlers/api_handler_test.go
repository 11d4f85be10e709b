package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"materials_market/internal/logger"
	"materials_market/internal/memstore"
	"materials_market/internal/models"
	"materials_market/internal/pricing"
	"materials_market/internal/repository"
	"materials_market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t          *testing.T
	router     *gin.Engine
	supplierID uint
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := services.Clock(func() time.Time { return now })
	log := logger.Discard()
	store := memstore.New(repository.NumberFormat{Prefix: "ORD-", Width: 5}, repository.NumberFormat{Prefix: "INV-", Width: 5})
	locker := memstore.NewLocalLocker()
	calc := pricing.NewCalculator(pricing.DefaultConfig())

	h := NewAPIHandler(
		services.NewOrderService(store.Orders(), calc, locker, log, clock),
		services.NewWorkflowService(store.Orders(), memstore.NewProposalStore(clock), locker, 10*time.Minute, log, clock),
		services.NewSupplierResolver(store.Orders(), store.Suppliers(), calc, locker, log),
		services.NewDeliveryLedger(store.Orders(), locker, log),
		services.NewInvoiceService(store.Orders(), store.Invoices(), calc, log, clock),
		log,
	)

	sup := &models.Supplier{
		Name:     "Harbour Concrete",
		IsActive: true,
		Zones: []models.DeliveryZone{{
			CenterLat: -33.8688, CenterLng: 151.2093, RadiusKm: 10,
			BaseFee: decimal.NewFromInt(20), PerKmFee: decimal.Zero,
		}},
		Offers: []models.SupplierOffer{{ProductID: 1, UnitCost: decimal.NewFromInt(10), IsActive: true}},
	}
	require.NoError(t, store.Suppliers().Create(context.Background(), sup))

	return &testServer{t: t, router: NewRouter(h, []string{"*"}), supplierID: sup.ID}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerActorID, "1")
	req.Header.Set(headerActorRole, "admin")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) placeOrder(quantity string) models.Order {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/orders", gin.H{
		"client_id":        7,
		"delivery_address": "1 George St, Sydney",
		"delivery_lat":     -33.8688,
		"delivery_lng":     151.2093,
		"items":            []gin.H{{"product_id": 1, "quantity": quantity}},
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Order](s.t, w)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestActorHeaderRequired(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceAndFetchOrder(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder("5")
	assert.Equal(t, "ORD-00001", order.OrderNumber)
	assert.Equal(t, models.WorkflowRequested, order.Workflow)
	require.Len(t, order.Items, 1)

	w := s.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.OrderNumber, decode[models.Order](t, w).OrderNumber)

	list := s.do(http.MethodGet, "/api/orders?client_id=7", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.EqualValues(t, 1, decode[map[string]interface{}](t, list)["count"])
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder("5")

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"bad id", http.MethodGet, "/api/orders/abc", nil, http.StatusBadRequest, "validation"},
		{"missing order", http.MethodGet, "/api/orders/999", nil, http.StatusNotFound, "not_found"},
		{"malformed body", http.MethodPut, fmt.Sprintf("/api/orders/%d/discount", order.ID), "nope", http.StatusBadRequest, "validation"},
		{"negative discount", http.MethodPut, fmt.Sprintf("/api/orders/%d/discount", order.ID), gin.H{"amount": "-1"}, http.StatusBadRequest, "validation"},
		{"illegal transition", http.MethodPost, fmt.Sprintf("/api/orders/%d/workflow", order.ID), gin.H{"status": "delivered"}, http.StatusConflict, "state"},
		{"unknown proposal", http.MethodPost, "/api/payment-proposals/missing/confirm", nil, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, decode[map[string]interface{}](t, w)["code"])
		})
	}
}

func TestInvoiceFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder("5")
	itemPath := fmt.Sprintf("/api/orders/%d/items/%d", order.ID, order.Items[0].ID)

	w := s.do(http.MethodGet, itemPath+"/eligible-suppliers", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, itemPath+"/assign-supplier", gin.H{"supplier_id": s.supplierID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, itemPath+"/deliveries", gin.H{"scheduled_at": "2026-03-02T09:00:00Z", "quantity": "3"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	scheduled := decode[models.Order](t, w)
	require.Len(t, scheduled.Items[0].Deliveries, 1)
	deliveryID := scheduled.Items[0].Deliveries[0].ID

	selection := gin.H{"delivery_ids": []uint{deliveryID}}
	w = s.do(http.MethodPost, fmt.Sprintf("/api/orders/%d/invoices/preview", order.ID), selection)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decode[services.InvoicePreview](t, w)
	require.Len(t, preview.Lines, 1)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/orders/%d/invoices", order.ID), selection)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invoice := decode[models.Invoice](t, w)
	assert.True(t, preview.Totals.Total.Equal(invoice.TotalAmount))
	assert.Equal(t, models.InvoiceDraft, invoice.Status)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/orders/%d/invoices", order.ID), selection)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "conflict", decode[map[string]interface{}](t, w)["code"])

	w = s.do(http.MethodPost, fmt.Sprintf("/api/invoices/%d/status", invoice.ID), gin.H{"status": "sent"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.InvoiceSent, decode[models.Invoice](t, w).Status)

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/orders/%d/deliveries/%d", order.ID, deliveryID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSensitivePaymentNeedsConfirmation(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder("5")
	path := fmt.Sprintf("/api/orders/%d/payment-status", order.ID)

	for _, status := range []string{"requested", "paid"} {
		w := s.do(http.MethodPost, path, gin.H{"status": status})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := s.do(http.MethodPost, path, gin.H{"status": "refunded"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var pending struct {
		Proposal models.PaymentProposal `json:"proposal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.NotEmpty(t, pending.Proposal.Token)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), nil)
	assert.Equal(t, models.PaymentPaid, decode[models.Order](t, w).PaymentStatus)

	w = s.do(http.MethodPost, "/api/payment-proposals/"+pending.Proposal.Token+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.PaymentRefunded, decode[models.Order](t, w).PaymentStatus)
}
