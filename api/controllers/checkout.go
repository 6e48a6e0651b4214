package controllers

import (
	"net/http"

	"github.com/nmoreno/storefront-checkout/api/middleware"
	"github.com/nmoreno/storefront-checkout/api/responses"
	"github.com/nmoreno/storefront-checkout/api/validators"
	checkoutsvc "github.com/nmoreno/storefront-checkout/internal/checkout"
	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
)

type completeCheckoutRequest struct {
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

type completeCheckoutResponse struct {
	PaymentURL string `json:"payment_url"`
}

// CheckoutComplete turns the resolved cart session into a hosted payment
// session and returns the redirect URL.
func CheckoutComplete(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID := middleware.CartSessionFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session could not be resolved"))
			return
		}

		var payload completeCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentURL, err := svc.Initiate(r.Context(), sessionID, payload.SuccessURL, payload.CancelURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, completeCheckoutResponse{PaymentURL: paymentURL})
	}
}
