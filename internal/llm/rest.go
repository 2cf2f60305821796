package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 2048

// RESTClient calls the generateContent endpoint directly over HTTP.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *RESTClient) Name() string {
	return "rest"
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func (c *RESTClient) endpoint(model, method, apiKey string) string {
	return fmt.Sprintf("%s/models/%s%s?key=%s", c.baseURL, url.PathEscape(model), method, url.QueryEscape(apiKey))
}

func (c *RESTClient) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: req.Prompt}}},
		},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		c.endpoint(req.Model, ":generateContent", req.APIKey),
		bytes.NewReader(body))
	if err != nil {
		return "", redactError(err, req.APIKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", redactError(fmt.Errorf("generateContent request failed: %w", err), req.APIKey)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp, req.APIKey)
	}

	var apiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResp.Candidates) == 0 || apiResp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range apiResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", ErrEmptyResponse
	}

	return text.String(), nil
}

func (c *RESTClient) Ping(ctx context.Context, apiKey, model string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint(model, "", apiKey), nil)
	if err != nil {
		return redactError(err, apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return redactError(fmt.Errorf("cannot connect to %s: %w", c.baseURL, err), apiKey)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp, apiKey)
	}

	return nil
}

func statusError(resp *http.Response, apiKey string) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Code:   resp.StatusCode,
		Status: http.StatusText(resp.StatusCode),
		Body:   Redact(strings.TrimSpace(string(body)), apiKey),
	}
}
