package statement

import (
	"errors"
	"net/http"

	"github.com/loyaltyhub/loyalty-api/internal/domain/ledger"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/errorhandler"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/response"
)

type Handler struct {
	exporter *Exporter
}

func NewHandler(exporter *Exporter) *Handler {
	return &Handler{exporter: exporter}
}

// Export handles POST /admin/restaurants/{restaurantId}/customers/{customerId}/statements
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	pair, ok := ledger.PairFromRequest(r)
	if !ok {
		response.BadRequest(w, "Invalid restaurant or customer id")
		return
	}

	st, err := h.exporter.Export(r.Context(), pair.RestaurantID, pair.CustomerID)
	if err != nil {
		if errors.Is(err, ErrUploadFailed) {
			errorhandler.HandleError(r.Context(), w, http.StatusBadGateway, "STATEMENT_UPLOAD_FAILED", "Failed to store statement", err)
			return
		}
		ledger.WriteError(w, r, err)
		return
	}
	response.Created(w, st)
}
