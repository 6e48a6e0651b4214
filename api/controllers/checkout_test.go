package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmoreno/storefront-checkout/api/middleware"
	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
)

type stubCheckoutService struct {
	redirectURL string
	err         error
	sessionID   string
}

func (s *stubCheckoutService) Initiate(ctx context.Context, sessionID, successURL, cancelURL string) (string, error) {
	s.sessionID = sessionID
	if s.err != nil {
		return "", s.err
	}
	return s.redirectURL, nil
}

func postWithSession(handler http.Handler, path, body, session string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("X-Cart-Session", session)
	}
	rec := httptest.NewRecorder()
	middleware.CartSession(nil)(handler).ServeHTTP(rec, req)
	return rec
}

func TestCheckoutCompleteReturnsPaymentURL(t *testing.T) {
	svc := &stubCheckoutService{redirectURL: "https://pay.example/cs_1"}
	handler := CheckoutComplete(svc, nil)

	rec := postWithSession(handler, "/checkout/complete",
		`{"success_url":"https://shop.example/ok","cancel_url":"https://shop.example/cancel"}`, "sess-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payment_url":"https://pay.example/cs_1"`)
	assert.Equal(t, "sess-1", svc.sessionID)
}

func TestCheckoutCompleteValidatesBody(t *testing.T) {
	handler := CheckoutComplete(&stubCheckoutService{}, nil)

	rec := postWithSession(handler, "/checkout/complete", `{"success_url":"not-a-url"}`, "sess-1")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestCheckoutCompleteMapsDomainErrors(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeCartEmpty, "cart has no items")}
	handler := CheckoutComplete(svc, nil)

	rec := postWithSession(handler, "/checkout/complete",
		`{"success_url":"https://ok.example","cancel_url":"https://cancel.example"}`, "sess-1")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "CART_EMPTY")
	assert.Contains(t, rec.Body.String(), "timestamp")
}
