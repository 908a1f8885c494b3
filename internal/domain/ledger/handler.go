package ledger

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/loyaltyhub/loyalty-api/internal/domain/restaurant"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/errorhandler"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/response"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/validator"
)

type Handler struct {
	svc         *Service
	restaurants RestaurantDirectory
}

func NewHandler(svc *Service, restaurants RestaurantDirectory) *Handler {
	return &Handler{svc: svc, restaurants: restaurants}
}

// RecordEarn handles POST /admin/credit-points-transactions
func (h *Handler) RecordEarn(w http.ResponseWriter, r *http.Request) {
	var req RecordEarnRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}
	if !req.Amount.IsPositive() {
		response.ValidationError(w, map[string]string{"amount": "Value must be greater than 0"})
		return
	}

	t, err := h.svc.RecordEarn(r.Context(), EarnRequest{
		CustomerID:     req.CustomerID,
		RestaurantID:   req.RestaurantID,
		ReceiptID:      req.ReceiptID,
		PurchaseAmount: req.Amount,
		OccurredAt:     req.OccurredAt,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	response.Created(w, h.toResponse(r, t))
}

// GetByID handles GET /admin/credit-points-transactions/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid transaction id")
		return
	}

	t, err := h.svc.GetTransaction(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OK(w, h.toResponse(r, t))
}

// GetByReceipt handles GET /admin/credit-points-transactions/receipt/{receiptId}
func (h *Handler) GetByReceipt(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTransactionByReceipt(r.Context(), chi.URLParam(r, "receiptId"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OK(w, h.toResponse(r, t))
}

// Expire handles POST /admin/restaurants/{restaurantId}/customers/{customerId}/expire
func (h *Handler) Expire(w http.ResponseWriter, r *http.Request) {
	pair, ok := PairFromRequest(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant or customer id")
		return
	}

	n, err := h.svc.ExpirePoints(r.Context(), pair.RestaurantID, pair.CustomerID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OK(w, ExpireResponse{Expired: n})
}

// Balance handles GET /restaurants/{restaurantId}/customers/{customerId}/points
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	pair, ok := PairFromRequest(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant or customer id")
		return
	}

	points, err := h.svc.GetBalance(r.Context(), pair.CustomerID, pair.RestaurantID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OK(w, BalanceResponse{CustomerID: pair.CustomerID, RestaurantID: pair.RestaurantID, Points: points})
}

// List handles GET /restaurants/{restaurantId}/customers/{customerId}/credit-points-transactions
// Query: kind, include_expired, from, to (RFC3339), before_id, limit, offset.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	pair, ok := PairFromRequest(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant or customer id")
		return
	}

	filter, page, msg := parseListQuery(r)
	if msg != "" {
		response.BadRequest(w, msg)
		return
	}

	items, total, err := h.svc.ListTransactions(r.Context(), pair.CustomerID, pair.RestaurantID, filter, page)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	rest := h.restaurant(r, pair.RestaurantID)
	out := make([]TransactionResponse, len(items))
	for i := range items {
		out[i] = TransactionResponseFrom(&items[i], rest)
	}

	page = page.Normalized()
	response.WithMeta(w, out, response.NewMeta(total, page.Limit, page.Offset))
}

// Spend handles POST /restaurants/{restaurantId}/customers/{customerId}/spend
func (h *Handler) Spend(w http.ResponseWriter, r *http.Request) {
	pair, ok := PairFromRequest(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant or customer id")
		return
	}

	var req SpendRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	spent, err := h.svc.Spend(r.Context(), pair.CustomerID, pair.RestaurantID, req.Points)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	out := make([]TransactionResponse, len(spent))
	for i := range spent {
		out[i] = TransactionResponseFrom(&spent[i], nil)
	}
	response.Created(w, SpendResponse{Transactions: out, PointsSpent: req.Points})
}

// WriteError maps ledger errors to HTTP responses.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, ErrRestaurantNotFound):
		response.NotFound(w, "Restaurant not found")
	case errors.Is(err, ErrCustomerNotFound):
		response.NotFound(w, "Customer not found")
	case errors.Is(err, ErrTransactionNotFound):
		response.NotFound(w, "Transaction not found")
	case errors.Is(err, ErrInvalidArgument):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrPointsNotEnough):
		response.Conflict(w, "POINTS_NOT_ENOUGH", "Not enough points")
	case errors.Is(err, ErrDuplicateReceipt):
		response.Conflict(w, "DUPLICATE_RECEIPT", "Receipt already recorded")
	case errors.Is(err, ErrMinimumAmountNotReached):
		response.Unprocessable(w, "MINIMUM_AMOUNT_NOT_REACHED", "Purchase amount is too low to earn points")
	case errors.Is(err, ErrExpiryFailed):
		errorhandler.HandleError(ctx, w, http.StatusInternalServerError, "EXPIRY_FAILED", "Failed to expire points", err)
	case errors.Is(err, ErrConsistency):
		errorhandler.HandleError(ctx, w, http.StatusInternalServerError, "LEDGER_INCONSISTENT", "Ledger consistency error", err)
	case errors.Is(err, ErrStoreUnavailable):
		errorhandler.Unavailable(ctx, w, err)
	default:
		errorhandler.Internal(ctx, w, err)
	}
}

// PairFromRequest reads the {restaurantId} and {customerId} route params.
func PairFromRequest(r *http.Request) (Pair, bool) {
	restaurantID, err := strconv.ParseInt(chi.URLParam(r, "restaurantId"), 10, 64)
	if err != nil || restaurantID <= 0 {
		return Pair{}, false
	}
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerId"), 10, 64)
	if err != nil || customerID <= 0 {
		return Pair{}, false
	}
	return Pair{CustomerID: customerID, RestaurantID: restaurantID}, true
}

func (h *Handler) toResponse(r *http.Request, t *Transaction) TransactionResponse {
	return TransactionResponseFrom(t, h.restaurant(r, t.RestaurantID))
}

// restaurant is best effort; the expiration date is omitted when the lookup fails.
func (h *Handler) restaurant(r *http.Request, id int64) *restaurant.Restaurant {
	rest, err := h.restaurants.GetRestaurantByID(r.Context(), id)
	if err != nil {
		return nil
	}
	return rest
}

func parseListQuery(r *http.Request) (Filter, Page, string) {
	q := r.URL.Query()
	var (
		filter Filter
		page   Page
	)

	if kind := strings.TrimSpace(q.Get("kind")); kind != "" {
		k := Kind(strings.ToLower(kind))
		if !k.IsValid() {
			return filter, page, "kind must be one of: earn, spend, expire"
		}
		filter.Kind = &k
	}
	if v := q.Get("include_expired"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, page, "include_expired must be a boolean"
		}
		filter.IncludeExpired = b
	}
	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		if v := q.Get(name); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, page, name + " must be an RFC3339 timestamp"
			}
			*dst = &ts
		}
	}
	if v := q.Get("before_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return filter, page, "before_id must be a positive integer"
		}
		filter.BeforeID = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return filter, page, "limit must be a positive integer"
		}
		page.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, page, "offset must be a non-negative integer"
		}
		page.Offset = n
	}
	return filter, page, ""
}
