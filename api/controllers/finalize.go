package controllers

import (
	"net/http"

	"github.com/nmoreno/storefront-checkout/api/middleware"
	"github.com/nmoreno/storefront-checkout/api/responses"
	"github.com/nmoreno/storefront-checkout/api/validators"
	finalizesvc "github.com/nmoreno/storefront-checkout/internal/finalize"
	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
)

type finalizePaymentRequest struct {
	ProviderSessionID string `json:"provider_session_id" validate:"required"`
}

type finalizePaymentResponse struct {
	OrderID string `json:"order_id"`
}

// PaymentFinalize runs the post-payment pipeline for the returning buyer
// and responds with the created (or replayed) order id.
func PaymentFinalize(svc finalizesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "finalize service unavailable"))
			return
		}

		var payload finalizePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.CartSessionFromContext(r.Context())
		orderID, err := svc.Finalize(r.Context(), payload.ProviderSessionID, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, finalizePaymentResponse{OrderID: orderID})
	}
}
