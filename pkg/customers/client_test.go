package customers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmoreno/storefront-checkout/pkg/cartstore"
	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
	"github.com/nmoreno/storefront-checkout/pkg/types"
)

func TestResolveOrCreateReturnsCustomerID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/resolve-or-create", r.URL.Path)

		var data cartstore.CustomerData
		require.NoError(t, json.NewDecoder(r.Body).Decode(&data))
		assert.Equal(t, "buyer@example.com", data.Email)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"customer_id": "cust-42"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	id, err := client.ResolveOrCreate(context.Background(), cartstore.CustomerData{Email: "buyer@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "cust-42", id)
}

func TestResolveOrCreateTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.ResolveOrCreate(context.Background(), cartstore.CustomerData{Email: "buyer@example.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCustomerUnavailable))
}

func TestResolveOrCreatePropagatesDownstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad email", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.ResolveOrCreate(context.Background(), cartstore.CustomerData{Email: "buyer@example.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSaveAddressesPostsBulkPayload(t *testing.T) {
	var captured struct {
		Shipping              types.Address `json:"shipping"`
		Billing               types.Address `json:"billing"`
		UseSameBillingAddress bool          `json:"use_same_billing_address"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/cust-42/addresses/bulk", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	shipping := types.Address{Line1: "1 Main St", City: "Amsterdam", PostalCode: "1011AB", Country: "NL"}
	require.NoError(t, client.SaveAddresses(context.Background(), "cust-42", shipping, shipping, true))
	assert.Equal(t, "1 Main St", captured.Shipping.Line1)
	assert.True(t, captured.UseSameBillingAddress)
}

func TestSaveAddressesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	err = client.SaveAddresses(context.Background(), "cust-42", types.Address{}, types.Address{}, false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
