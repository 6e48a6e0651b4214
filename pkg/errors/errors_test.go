package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code   Code
		status int
	}{
		{CodeCartNotFound, http.StatusNotFound},
		{CodeCartEmpty, http.StatusBadRequest},
		{CodeCheckoutDataMissing, http.StatusBadRequest},
		{CodeCustomerUnavailable, http.StatusBadGateway},
		{CodePaymentSessionNotFound, http.StatusNotFound},
		{CodeInvalidSessionMetadata, http.StatusBadRequest},
		{CodeAddressPersistence, http.StatusInternalServerError},
		{CodeOrderCreation, http.StatusInternalServerError},
		{CodeStockAdjustment, http.StatusInternalServerError},
		{CodeInsufficientStock, http.StatusBadRequest},
		{CodeProductNotFound, http.StatusNotFound},
		{CodeProductInactive, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("connection refused")
	err := Wrap(CodeCustomerUnavailable, cause, "resolve customer")

	if err.Unwrap() != cause {
		t.Fatal("expected wrapped cause")
	}
	if !IsCode(err, CodeCustomerUnavailable) {
		t.Fatalf("unexpected code: %s", err.Code())
	}
	if err.Error() != "CUSTOMER_SERVICE_UNAVAILABLE: resolve customer" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := New(CodeInsufficientStock, "2 requested, 1 available").
		WithDetails(map[string]any{"available_stock": 1})
	wrapped := fmt.Errorf("reserve: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeInsufficientStock {
		t.Fatalf("unexpected code: %s", typed.Code())
	}
	if typed.Details() == nil {
		t.Fatal("expected details to survive wrapping")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	t.Parallel()

	err := Wrap(CodeOrderCreation, fmt.Errorf("status 500"), "create order")
	dump := Dump(err)

	if dump.Code != CodeOrderCreation {
		t.Fatalf("unexpected code: %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(dump.Chain))
	}
}
