package ledger_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loyaltyhub/loyalty-api/internal/domain/ledger"
	"github.com/loyaltyhub/loyalty-api/internal/domain/restaurant"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total int `json:"total"`
		Limit int `json:"limit"`
	} `json:"meta"`
}

func newTestRouter(t *testing.T, f *fixture) http.Handler {
	t.Helper()

	restaurants := restaurant.NewCachedDirectory(restaurant.NewMemoryRepository(testRestaurant()), nil, 0)
	h := ledger.NewHandler(f.svc, restaurants)

	r := chi.NewRouter()
	r.Post("/admin/credit-points-transactions", h.RecordEarn)
	r.Get("/admin/credit-points-transactions/{id}", h.GetByID)
	r.Get("/admin/credit-points-transactions/receipt/{receiptId}", h.GetByReceipt)
	r.Post("/admin/restaurants/{restaurantId}/customers/{customerId}/expire", h.Expire)
	r.Route("/restaurants/{restaurantId}/customers/{customerId}", func(r chi.Router) {
		r.Get("/points", h.Balance)
		r.Get("/credit-points-transactions", h.List)
		r.Post("/spend", h.Spend)
	})
	return r
}

func perform(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return w, resp
}

func TestHandlerEarnBalanceSpendFlow(t *testing.T) {
	f := newFixture(t, day0)
	router := newTestRouter(t, f)

	w, resp := perform(t, router, http.MethodPost, "/admin/credit-points-transactions", map[string]interface{}{
		"customer_id":   testCustomerID,
		"restaurant_id": testRestaurantID,
		"receipt_id":    "R-100",
		"amount":        "25.40",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var earn ledger.TransactionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &earn))
	assert.Equal(t, int64(25), earn.Points)
	require.NotNil(t, earn.PointsExpirationDate)
	assert.True(t, day0.AddDate(0, 0, 30).Equal(*earn.PointsExpirationDate))

	w, resp = perform(t, router, http.MethodPost, "/admin/credit-points-transactions", map[string]interface{}{
		"customer_id":   testCustomerID,
		"restaurant_id": testRestaurantID,
		"receipt_id":    "R-100",
		"amount":        10,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_RECEIPT", resp.Error.Code)

	w, resp = perform(t, router, http.MethodPost, "/restaurants/3/customers/7/spend", map[string]interface{}{"points": 10})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var spent ledger.SpendResponse
	require.NoError(t, json.Unmarshal(resp.Data, &spent))
	assert.Equal(t, int64(10), spent.PointsSpent)
	require.Len(t, spent.Transactions, 1)
	assert.Equal(t, earn.ID, *spent.Transactions[0].SourceEarnID)

	w, resp = perform(t, router, http.MethodGet, "/restaurants/3/customers/7/points", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var balance ledger.BalanceResponse
	require.NoError(t, json.Unmarshal(resp.Data, &balance))
	assert.Equal(t, int64(15), balance.Points)

	w, resp = perform(t, router, http.MethodGet, "/restaurants/3/customers/7/credit-points-transactions?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.Limit)

	w, _ = perform(t, router, http.MethodGet, "/admin/credit-points-transactions/receipt/R-100", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlerErrorMapping(t *testing.T) {
	f := newFixture(t, day0)
	router := newTestRouter(t, f)
	f.earn(t, "R-1", 5, day0)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"not enough points", http.MethodPost, "/restaurants/3/customers/7/spend", map[string]int{"points": 50}, http.StatusConflict, "POINTS_NOT_ENOUGH"},
		{"zero points", http.MethodPost, "/restaurants/3/customers/7/spend", map[string]int{"points": 0}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"unknown restaurant", http.MethodGet, "/restaurants/99/customers/7/points", nil, http.StatusNotFound, "NOT_FOUND"},
		{"unknown customer", http.MethodGet, "/restaurants/3/customers/404/points", nil, http.StatusNotFound, "NOT_FOUND"},
		{"bad pair", http.MethodGet, "/restaurants/abc/customers/7/points", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing transaction", http.MethodGet, "/admin/credit-points-transactions/999", nil, http.StatusNotFound, "NOT_FOUND"},
		{"bad kind filter", http.MethodGet, "/restaurants/3/customers/7/credit-points-transactions?kind=refund", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"below minimum", http.MethodPost, "/admin/credit-points-transactions", map[string]interface{}{
			"customer_id": testCustomerID, "restaurant_id": testRestaurantID, "receipt_id": "R-small", "amount": "0.5",
		}, http.StatusUnprocessableEntity, "MINIMUM_AMOUNT_NOT_REACHED"},
		{"invalid receipt", http.MethodPost, "/admin/credit-points-transactions", map[string]interface{}{
			"customer_id": testCustomerID, "restaurant_id": testRestaurantID, "receipt_id": "has spaces", "amount": "5",
		}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := perform(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestHandlerExpire(t *testing.T) {
	f := newFixture(t, day0)
	router := newTestRouter(t, f)
	f.earn(t, "R-1", 5, day0)
	f.clock.Set(day0.Add(31 * 24 * time.Hour))

	w, resp := perform(t, router, http.MethodPost, "/admin/restaurants/3/customers/7/expire", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out ledger.ExpireResponse
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.Equal(t, 1, out.Expired)

	_, resp = perform(t, router, http.MethodPost, "/admin/restaurants/3/customers/7/expire", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.Equal(t, 0, out.Expired)
}
