package stripe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmoreno/storefront-checkout/pkg/config"
	scerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
)

func TestNewClientValidatesKeyForEnv(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{
			name: "test env with test key",
			cfg:  config.StripeConfig{APIKey: "sk_test_abc", Env: "test"},
		},
		{
			name:    "test env with live key",
			cfg:     config.StripeConfig{APIKey: "sk_live_abc", Env: "test"},
			wantErr: true,
		},
		{
			name:    "live env with test key",
			cfg:     config.StripeConfig{APIKey: "sk_test_abc", Env: "live"},
			wantErr: true,
		},
		{
			name:    "missing key",
			cfg:     config.StripeConfig{Env: "test"},
			wantErr: true,
		},
		{
			name:    "unknown env",
			cfg:     config.StripeConfig{APIKey: "sk_test_abc", Env: "staging"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tc.cfg, nil)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cfg.Environment(), client.Environment())
		})
	}
}

func TestCreateCheckoutSessionRequiresLineItems(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_abc", Env: "test"}, nil)
	require.NoError(t, err)

	_, err = client.CreateCheckoutSession(context.Background(), CreateSessionParams{})
	assert.True(t, scerrors.IsCode(err, scerrors.CodeValidation))
}

func TestGetCheckoutSessionRequiresID(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_abc", Env: "test"}, nil)
	require.NoError(t, err)

	_, err = client.GetCheckoutSession(context.Background(), "  ")
	assert.True(t, scerrors.IsCode(err, scerrors.CodeValidation))
}
