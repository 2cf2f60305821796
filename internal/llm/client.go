package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Client is the interface every generative-text transport must implement.
type Client interface {
	// Name returns the transport name
	Name() string

	// Generate sends a single-turn prompt and returns the model's raw text
	Generate(ctx context.Context, req *GenerateRequest) (string, error)

	// Ping checks that the model exists and the key is accepted
	Ping(ctx context.Context, apiKey, model string) error
}

// GenerateRequest is one single-turn request.
type GenerateRequest struct {
	Model  string
	APIKey string
	Prompt string
}

// ErrEmptyResponse is returned when the call succeeded but no candidate text
// came back, e.g. because of a refusal or safety filter.
var ErrEmptyResponse = errors.New("no narrative generated")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("API Error: %d", e.Code)
	if e.Status != "" {
		msg += " " + e.Status
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Redact removes every occurrence of key, raw or URL-escaped, from msg.
func Redact(msg, key string) string {
	if key == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, key, "[redacted]")
	if esc := url.QueryEscape(key); esc != key {
		msg = strings.ReplaceAll(msg, esc, "[redacted]")
	}
	return msg
}

// redactError wraps err so its message no longer contains key while keeping
// it inspectable with errors.Is and errors.As.
func redactError(err error, key string) error {
	if err == nil {
		return nil
	}
	msg := Redact(err.Error(), key)
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
