package llm

import (
	"fmt"

	"github.com/sant0-9/narrator/internal/config"
)

// New creates a client for the configured transport.
func New(cfg *config.Config) (Client, error) {
	switch cfg.Transport {
	case config.TransportREST, "":
		baseURL := config.DefaultBaseURL
		if cfg.BaseURL != "" {
			baseURL = cfg.BaseURL
		}
		return NewRESTClient(baseURL), nil

	case config.TransportSDK:
		// The SDK appends its own API version, so only a custom host is passed on.
		baseURL := ""
		if cfg.BaseURL != "" && cfg.BaseURL != config.DefaultBaseURL {
			baseURL = cfg.BaseURL
		}
		return NewSDKClient(baseURL), nil

	default:
		return nil, fmt.Errorf("unknown transport: %s", cfg.Transport)
	}
}
