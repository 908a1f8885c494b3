package restaurant

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

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

// Get handles GET /admin/restaurants/{restaurantId}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := restaurantID(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant id")
		return
	}

	rest, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, rest)
}

// Put handles PUT /admin/restaurants/{restaurantId}
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	id, ok := restaurantID(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant id")
		return
	}

	var req PutRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}

	rest, err := h.svc.Put(r.Context(), &Restaurant{
		ID:                   id,
		BuyingRate:           req.BuyingRate,
		SellingRate:          req.SellingRate,
		CreditPointsLifeTime: req.CreditPointsLifeTime,
		VoucherLifeTime:      req.VoucherLifeTime,
		VoucherMinValue:      req.VoucherMinValue,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, rest)
}

// Patch handles PATCH /admin/restaurants/{restaurantId}
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := restaurantID(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant id")
		return
	}

	var req PatchRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	rest, err := h.svc.Update(r.Context(), id, Patch(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, rest)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrRestaurantNotFound):
		response.NotFound(w, "Restaurant not found")
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrEmptyUpdate):
		response.BadRequest(w, err.Error())
	default:
		errorhandler.Internal(r.Context(), w, err)
	}
}

func restaurantID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "restaurantId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
