package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

var errEmptyResponse = errors.New("empty embedding response")

// Metric error types.
const (
	errTypeEmpty       = "empty_response"
	errTypeRateLimited = "rate_limited"
	errTypeAuth        = "unauthorized"
	errTypeBadRequest  = "bad_request"
	errTypeServer      = "server_error"
	errTypeTimeout     = "timeout"
	errTypeTransport   = "transport"
)

// classify returns a metric label for err and the error to hand upstream.
// Everything is wrapped with domain.ErrEmbeddingProviderError; the cause stays reachable.
func classify(err error) (string, error) {
	wrap := domain.ErrEmbeddingProviderError

	if errors.Is(err, errEmptyResponse) {
		return errTypeEmpty, fmt.Errorf("%w: %w", wrap, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errTypeTimeout, fmt.Errorf("%w: %w", wrap, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusType(apiErr.HTTPStatusCode),
			fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := extractDetail(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
		return statusType(reqErr.HTTPStatusCode),
			fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, msg, wrap)
	}

	return errTypeTransport, fmt.Errorf("embedding request failed: %w: %w", wrap, err)
}

func statusType(code int) string {
	switch {
	case code == http.StatusTooManyRequests:
		return errTypeRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errTypeAuth
	case code >= 500:
		return errTypeServer
	default:
		return errTypeBadRequest
	}
}

// extractDetail reads the message of a non-OpenAI JSON error body.
// Nebius uses "detail", TEI uses "error".
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error
}
