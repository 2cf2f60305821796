package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// SDKClient sends requests through the Google Gen AI SDK. A new SDK client is
// created per request because the key is a per-request input.
type SDKClient struct {
	baseURL string
}

// NewSDKClient creates an SDK-backed client. baseURL may be empty to use the
// SDK default endpoint.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		baseURL: baseURL,
	}
}

func (c *SDKClient) Name() string {
	return "sdk"
}

func (c *SDKClient) newClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, redactError(fmt.Errorf("failed to create GenAI client: %w", err), apiKey)
	}
	return client, nil
}

func (c *SDKClient) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	client, err := c.newClient(ctx, req.APIKey)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), nil)
	if err != nil {
		return "", fromSDKError(err, req.APIKey)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", ErrEmptyResponse
	}

	return text.String(), nil
}

func (c *SDKClient) Ping(ctx context.Context, apiKey, model string) error {
	client, err := c.newClient(ctx, apiKey)
	if err != nil {
		return err
	}
	if _, err := client.Models.Get(ctx, model, nil); err != nil {
		return fromSDKError(err, apiKey)
	}
	return nil
}

// fromSDKError converts SDK API errors into StatusError.
func fromSDKError(err error, apiKey string) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{
			Code:   apiErr.Code,
			Status: apiErr.Status,
			Body:   Redact(apiErr.Message, apiKey),
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{
			Code:   apiErrPtr.Code,
			Status: apiErrPtr.Status,
			Body:   Redact(apiErrPtr.Message, apiKey),
		}
	}
	return redactError(fmt.Errorf("GenAI request failed: %w", err), apiKey)
}
