package statement_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loyaltyhub/loyalty-api/internal/domain/customer"
	"github.com/loyaltyhub/loyalty-api/internal/domain/ledger"
	"github.com/loyaltyhub/loyalty-api/internal/domain/restaurant"
	"github.com/loyaltyhub/loyalty-api/internal/domain/statement"
)

type memoryBucket struct {
	objects map[string][]byte
	err     error
}

func (b *memoryBucket) Put(_ context.Context, key string, r io.Reader, _ string) error {
	if b.err != nil {
		return b.err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = raw
	return nil
}

func (b *memoryBucket) GetURL(key string) string { return "https://bucket.test/" + key }

func newLedger(t *testing.T) *ledger.Service {
	t.Helper()
	restaurants := restaurant.NewCachedDirectory(restaurant.NewMemoryRepository(restaurant.Restaurant{
		ID:                   7,
		BuyingRate:           decimal.NewFromInt(1),
		SellingRate:          decimal.RequireFromString("0.5"),
		CreditPointsLifeTime: 30,
		VoucherLifeTime:      60,
		VoucherMinValue:      decimal.NewFromInt(10),
	}), nil, 0)
	customers := customer.NewMemoryDirectory(customer.Customer{ID: 1, RestaurantID: 7, Name: "Aida"})
	return ledger.NewService(ledger.NewMemoryStore(), restaurants, customers)
}

func TestExportWritesChronologicalCSV(t *testing.T) {
	ctx := context.Background()
	svc := newLedger(t)
	now := time.Now().UTC()

	for i, receipt := range []string{"R-1", "R-2"} {
		at := now.Add(time.Duration(i-2) * time.Hour)
		_, err := svc.RecordEarn(ctx, ledger.EarnRequest{
			CustomerID: 1, RestaurantID: 7, ReceiptID: receipt,
			PurchaseAmount: decimal.NewFromInt(10), OccurredAt: &at,
		})
		require.NoError(t, err)
	}
	_, err := svc.Spend(ctx, 1, 7, 15)
	require.NoError(t, err)

	bucket := &memoryBucket{objects: map[string][]byte{}}
	st, err := statement.NewExporter(svc, bucket).Export(ctx, 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 4, st.Rows)
	assert.True(t, strings.HasPrefix(st.Key, "statements/7/1/"))
	assert.Equal(t, "https://bucket.test/"+st.Key, st.URL)

	records, err := csv.NewReader(bytes.NewReader(bucket.objects[st.Key])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, []string{"earn", "earn", "spend", "spend"},
		[]string{records[1][2], records[2][2], records[3][2], records[4][2]})
	assert.Equal(t, "R-1", records[1][7])
	assert.Equal(t, "-10", records[3][3])
	assert.Equal(t, records[1][0], records[3][6])
}

type pagedHistory struct {
	rows  []ledger.Transaction
	calls int
}

func (h *pagedHistory) ListTransactions(_ context.Context, _, _ int64, filter ledger.Filter, page ledger.Page) ([]ledger.Transaction, int, error) {
	h.calls++
	if !filter.IncludeExpired {
		return nil, 0, errors.New("expired rows must be included")
	}
	rows := h.rows
	if filter.BeforeID > 0 {
		for i, r := range rows {
			if r.ID < filter.BeforeID {
				rows = rows[i:]
				break
			}
		}
	}
	end := page.Offset + page.Limit
	if end > len(rows) {
		end = len(rows)
	}
	if page.Offset >= end {
		return nil, len(h.rows), nil
	}
	return rows[page.Offset:end], len(h.rows), nil
}

func TestExportPagesThroughHistory(t *testing.T) {
	h := &pagedHistory{}
	for id := int64(250); id >= 1; id-- {
		h.rows = append(h.rows, ledger.Transaction{ID: id, Kind: ledger.KindEarn, Points: 1, MonetaryValue: decimal.NewFromInt(1)})
	}

	bucket := &memoryBucket{objects: map[string][]byte{}}
	st, err := statement.NewExporter(h, bucket).Export(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Equal(t, 250, st.Rows)
	assert.Equal(t, 3, h.calls)

	records, err := csv.NewReader(bytes.NewReader(bucket.objects[st.Key])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "250", records[250][0])
}

// spendingHistory spends points after the first page is served.
type spendingHistory struct {
	*ledger.Service
	t     *testing.T
	calls int
}

func (h *spendingHistory) ListTransactions(ctx context.Context, customerID, restaurantID int64, filter ledger.Filter, page ledger.Page) ([]ledger.Transaction, int, error) {
	items, total, err := h.Service.ListTransactions(ctx, customerID, restaurantID, filter, page)
	h.calls++
	if h.calls == 1 {
		for i := 0; i < 3; i++ {
			_, spendErr := h.Service.Spend(ctx, customerID, restaurantID, 1)
			require.NoError(h.t, spendErr)
		}
	}
	return items, total, err
}

func TestExportIsStableUnderConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	svc := newLedger(t)
	now := time.Now().UTC()

	for i := 0; i < 105; i++ {
		at := now.Add(-time.Duration(105-i) * time.Minute)
		_, err := svc.RecordEarn(ctx, ledger.EarnRequest{
			CustomerID: 1, RestaurantID: 7, ReceiptID: "R-" + strconv.Itoa(i),
			PurchaseAmount: decimal.NewFromInt(10), OccurredAt: &at,
		})
		require.NoError(t, err)
	}

	h := &spendingHistory{Service: svc, t: t}
	bucket := &memoryBucket{objects: map[string][]byte{}}
	st, err := statement.NewExporter(h, bucket).Export(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 105, st.Rows)

	records, err := csv.NewReader(bytes.NewReader(bucket.objects[st.Key])).ReadAll()
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, rec := range records[1:] {
		assert.False(t, seen[rec[0]], "row %s exported twice", rec[0])
		seen[rec[0]] = true
		assert.Equal(t, "earn", rec[2])
	}
	assert.Len(t, seen, 105)

	balance, err := svc.GetBalance(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(105*10-3), balance)
}

func TestExportHandlerErrors(t *testing.T) {
	svc := newLedger(t)
	failing := &memoryBucket{objects: map[string][]byte{}, err: errors.New("bucket down")}

	router := chi.NewRouter()
	router.Post("/admin/restaurants/{restaurantId}/customers/{customerId}/statements",
		statement.NewHandler(statement.NewExporter(svc, failing)).Export)

	tests := []struct {
		path string
		want int
	}{
		{"/admin/restaurants/7/customers/1/statements", http.StatusBadGateway},
		{"/admin/restaurants/7/customers/2/statements", http.StatusNotFound},
		{"/admin/restaurants/x/customers/1/statements", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, nil))
		assert.Equal(t, tt.want, w.Code, tt.path)
	}
}
