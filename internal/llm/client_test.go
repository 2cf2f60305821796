package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sant0-9/narrator/internal/config"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		key  string
		want string
	}{
		{"raw key", "bad key abc123", "abc123", "bad key [redacted]"},
		{"escaped key", "GET /m?key=a%2Fb", "a/b", "GET /m?key=[redacted]"},
		{"empty key", "unchanged", "", "unchanged"},
		{"no key present", "fine", "secret", "fine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.msg, tt.key))
		})
	}
}

func TestRedactErrorKeepsChain(t *testing.T) {
	base := errors.New("request to ?key=topsecret failed")
	err := redactError(base, "topsecret")

	assert.Equal(t, "request to ?key=[redacted] failed", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Same(t, base, redactError(base, "other"))
	assert.NoError(t, redactError(nil, "k"))
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Code: 503, Status: "Service Unavailable", Body: "overloaded"}
	assert.Equal(t, "API Error: 503 Service Unavailable: overloaded", err.Error())
	assert.Equal(t, "API Error: 404", (&StatusError{Code: 404}).Error())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		transport string
		baseURL   string
		wantName  string
		wantErr   bool
	}{
		{name: "default", transport: "", wantName: "rest"},
		{name: "rest", transport: config.TransportREST, wantName: "rest"},
		{name: "sdk", transport: config.TransportSDK, wantName: "sdk"},
		{name: "sdk custom host", transport: config.TransportSDK, baseURL: "http://localhost:9999", wantName: "sdk"},
		{name: "unknown", transport: "grpc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Transport = tt.transport
			if tt.baseURL != "" {
				cfg.BaseURL = tt.baseURL
			}

			client, err := New(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, client.Name())
		})
	}
}

func TestNewSDKKeepsOnlyCustomHost(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Transport = config.TransportSDK

	client, err := New(cfg)
	require.NoError(t, err)
	assert.Empty(t, client.(*SDKClient).baseURL)

	cfg.BaseURL = "http://proxy.local"
	client, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.local", client.(*SDKClient).baseURL)
}
