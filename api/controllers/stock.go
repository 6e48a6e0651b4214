package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nmoreno/storefront-checkout/api/middleware"
	"github.com/nmoreno/storefront-checkout/api/responses"
	"github.com/nmoreno/storefront-checkout/api/validators"
	stocksvc "github.com/nmoreno/storefront-checkout/internal/stock"
	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
)

type stockCheckResponse struct {
	Available      bool  `json:"available"`
	AvailableStock int64 `json:"available_stock"`
}

// StockCheck reports whether the requested quantity of a product can be
// reserved right now. Read-only.
func StockCheck(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		productID := chi.URLParam(r, "productID")
		quantity := int64(1)
		if raw := r.URL.Query().Get("quantity"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be an integer"))
				return
			}
			quantity = parsed
		}

		availability, err := svc.CheckAvailability(r.Context(), productID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stockCheckResponse{
			Available:      availability.Available,
			AvailableStock: availability.AvailableStock,
		})
	}
}

type reserveStockRequest struct {
	ProductID  string `json:"product_id" validate:"required,uuid4"`
	Quantity   int64  `json:"quantity" validate:"required,min=1"`
	TTLMinutes int64  `json:"ttl_minutes" validate:"omitempty,min=1,max=1440"`
}

type reserveStockResponse struct {
	ReservationID string    `json:"reservation_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// StockReserve places a time-boxed hold on product quantity for the
// resolved cart session.
func StockReserve(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		sessionID := middleware.CartSessionFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session could not be resolved"))
			return
		}

		var payload reserveStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ttl := time.Duration(payload.TTLMinutes) * time.Minute
		reservation, err := svc.Reserve(r.Context(), payload.ProductID, payload.Quantity, sessionID, ttl)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, reserveStockResponse{
			ReservationID: reservation.ID.String(),
			ExpiresAt:     reservation.ExpiresAt,
		})
	}
}
