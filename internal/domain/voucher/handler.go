package voucher

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/loyaltyhub/loyalty-api/internal/domain/ledger"
	"github.com/loyaltyhub/loyalty-api/internal/middleware"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/errorhandler"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/response"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the customer facing voucher routes mounted below a pair.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	return r
}

// Create handles POST /restaurants/{restaurantId}/customers/{customerId}/vouchers
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	pair, ok := ledger.PairFromRequest(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant or customer id")
		return
	}

	var req CreateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}

	v, err := h.svc.Create(r.Context(), pair.CustomerID, pair.RestaurantID, req.Points)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, responseFrom(v, h.svc.ExpiresAt(r.Context(), v)))
}

// List handles GET /restaurants/{restaurantId}/customers/{customerId}/vouchers
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	pair, ok := ledger.PairFromRequest(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant or customer id")
		return
	}

	page := ledger.Page{}
	if v := r.URL.Query().Get("limit"); v != "" {
		page.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		page.Offset, _ = strconv.Atoi(v)
	}
	page = page.Normalized()

	items, total, err := h.svc.List(r.Context(), pair.CustomerID, pair.RestaurantID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]Response, len(items))
	for i := range items {
		out[i] = responseFrom(&items[i], h.svc.ExpiresAt(r.Context(), &items[i]))
	}
	response.WithMeta(w, out, response.NewMeta(total, page.Limit, page.Offset))
}

// Get handles GET /vouchers/{code}. Customers only see their own vouchers.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if claims := middleware.GetClaims(r.Context()); claims == nil ||
		(!claims.IsAdmin() && (claims.CustomerID != v.CustomerID || claims.RestaurantID != v.RestaurantID)) {
		response.NotFound(w, "Voucher not found")
		return
	}
	response.OK(w, responseFrom(v, h.svc.ExpiresAt(r.Context(), v)))
}

// Use handles POST /admin/vouchers/{code}/use
func (h *Handler) Use(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.MarkUsed(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, responseFrom(v, h.svc.ExpiresAt(r.Context(), v)))
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrVoucherNotFound):
		response.NotFound(w, "Voucher not found")
	case errors.Is(err, ErrVoucherAlreadyUsed):
		response.Conflict(w, "VOUCHER_ALREADY_USED", "Voucher already used")
	case errors.Is(err, ErrVoucherExpired):
		response.Gone(w, "VOUCHER_EXPIRED", "Voucher has expired")
	case errors.Is(err, ErrMinimumPointsNotReached):
		response.Unprocessable(w, "MINIMUM_POINTS_NOT_REACHED", "Points are below the voucher minimum value")
	default:
		ledger.WriteError(w, r, err)
	}
}
