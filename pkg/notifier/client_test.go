package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
)

func TestSendOrderConfirmation(t *testing.T) {
	var captured OrderConfirmation
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications/order-confirmation", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	confirmation := OrderConfirmation{
		OrderID:       "ord-77",
		CustomerID:    "cust-42",
		CustomerEmail: "buyer@example.com",
		TotalCents:    2420,
		Items:         []ConfirmationItem{{Name: "Widget", Quantity: 1}},
	}
	require.NoError(t, client.SendOrderConfirmation(context.Background(), confirmation))
	assert.Equal(t, "ord-77", captured.OrderID)
	assert.Equal(t, int64(2420), captured.TotalCents)
}

func TestSendOrderConfirmationValidates(t *testing.T) {
	client, err := NewClient("http://notifications.internal")
	require.NoError(t, err)

	err = client.SendOrderConfirmation(context.Background(), OrderConfirmation{CustomerEmail: "x@y.z"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSendOrderConfirmationUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	err = client.SendOrderConfirmation(context.Background(), OrderConfirmation{
		OrderID:       "ord-77",
		CustomerEmail: "buyer@example.com",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
