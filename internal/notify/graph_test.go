package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stblab/audioprobe/internal/types"
)

func TestValidateCredentials(t *testing.T) {
	valid := types.GraphConfig{
		TenantID:     "12345678-1234-1234-1234-123456789abc",
		ClientID:     "87654321-4321-4321-4321-cba987654321",
		ClientSecret: "secret",
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validateCredentials(&valid))
	})

	t.Run("domain-style tenant accepted", func(t *testing.T) {
		cfg := valid
		cfg.TenantID = "contoso.onmicrosoft.com"
		require.NoError(t, validateCredentials(&cfg))
	})

	t.Run("missing fields", func(t *testing.T) {
		for _, mutate := range []func(*types.GraphConfig){
			func(c *types.GraphConfig) { c.TenantID = "" },
			func(c *types.GraphConfig) { c.ClientID = "" },
			func(c *types.GraphConfig) { c.ClientSecret = "" },
		} {
			cfg := valid
			mutate(&cfg)
			require.Error(t, validateCredentials(&cfg))
		}
	})
}

func TestNewGraphClientRequiresFromAddress(t *testing.T) {
	cfg := types.GraphConfig{
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
	}
	_, err := NewGraphClient(&cfg)
	require.Error(t, err)

	cfg.FromAddress = "probe@example.com"
	client, err := NewGraphClient(&cfg)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestIsGraphConfigured(t *testing.T) {
	cfg := types.GraphConfig{
		TenantID:     "t",
		ClientID:     "c",
		ClientSecret: "s",
		FromAddress:  "probe@example.com",
		Recipients:   "ops@example.com",
	}
	assert.True(t, IsGraphConfigured(&cfg))

	cfg.Recipients = ""
	assert.False(t, IsGraphConfigured(&cfg))
}

func TestSendMailRequiresRecipients(t *testing.T) {
	cfg := types.GraphConfig{
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
		FromAddress:  "probe@example.com",
	}
	client, err := NewGraphClient(&cfg)
	require.NoError(t, err)

	require.Error(t, client.SendMail(nil, "subject", "body"))
	require.Error(t, client.SendMail([]string{" ", ""}, "subject", "body"))
}
