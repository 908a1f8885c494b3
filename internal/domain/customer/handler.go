package customer

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/loyaltyhub/loyalty-api/internal/domain/restaurant"
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

// Create handles POST /admin/customers
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
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

	c, err := h.svc.Create(r.Context(), Customer{
		RestaurantID: req.RestaurantID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, c)
}

// Get handles GET /admin/restaurants/{restaurantId}/customers/{customerId}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, customerID, ok := ids(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant or customer id")
		return
	}

	c, err := h.svc.Get(r.Context(), customerID, restaurantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, c)
}

// Update handles PUT /admin/restaurants/{restaurantId}/customers/{customerId}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	restaurantID, customerID, ok := ids(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant or customer id")
		return
	}

	var req UpdateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	c, err := h.svc.Update(r.Context(), Customer{
		ID:           customerID,
		RestaurantID: restaurantID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, c)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		response.NotFound(w, "Customer not found")
	case errors.Is(err, restaurant.ErrRestaurantNotFound):
		response.NotFound(w, "Restaurant not found")
	case errors.Is(err, ErrCustomerExists):
		response.Conflict(w, "CUSTOMER_EXISTS", "Customer with this email or phone already exists")
	case errors.Is(err, ErrInvalidCustomer):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrDirectoryFailure):
		errorhandler.Unavailable(r.Context(), w, err)
	default:
		errorhandler.Internal(r.Context(), w, err)
	}
}

func ids(r *http.Request) (int64, int64, bool) {
	restaurantID, err := strconv.ParseInt(chi.URLParam(r, "restaurantId"), 10, 64)
	if err != nil || restaurantID <= 0 {
		return 0, 0, false
	}
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerId"), 10, 64)
	if err != nil || customerID <= 0 {
		return 0, 0, false
	}
	return restaurantID, customerID, true
}
