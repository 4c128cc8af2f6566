package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/babylonlabs-io/tip-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

type BaseClient interface {
	GetBaseURL() string
	GetDefaultRequestTimeout() time.Duration
	GetHttpClient() *http.Client
}

type HttpClientOptions struct {
	Timeout      time.Duration
	Path         string
	TemplatePath string // Metrics purpose
	Headers      map[string]string
}

func isAllowedMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}

func sendRequest[I any, R any](
	ctx context.Context, client BaseClient, method string, opts *HttpClientOptions, input *I,
) (*R, *types.Error) {
	if !isAllowedMethod(method) {
		return nil, types.NewInternalServiceError(fmt.Errorf("method %s is not allowed", method))
	}

	url := client.GetBaseURL() + opts.Path
	timeout := client.GetDefaultRequestTimeout()
	// If timeout is set, use it instead of the default
	if opts.Timeout != 0 {
		timeout = opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if input != nil {
		payload, err := json.Marshal(input)
		if err != nil {
			return nil, types.NewErrorWithMsg(
				http.StatusInternalServerError,
				types.InternalServiceError,
				"failed to marshal request body",
			)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, types.NewErrorWithMsg(
			http.StatusInternalServerError,
			types.InternalServiceError,
			fmt.Sprintf("failed to create request: %v", err),
		)
	}
	req.Header.Set("Accept", "application/json")
	if input != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.GetHttpClient().Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, types.NewErrorWithMsg(
				http.StatusRequestTimeout,
				types.RequestTimeout,
				fmt.Sprintf("request timeout after %s at %s", timeout, opts.TemplatePath),
			)
		}
		return nil, types.NewErrorWithMsg(
			http.StatusInternalServerError,
			types.InternalServiceError,
			fmt.Sprintf("failed to send request to %s: %v", opts.TemplatePath, err),
		)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, types.NewErrorWithMsg(
			resp.StatusCode,
			types.ClientRequestError,
			fmt.Sprintf("rate limit exceeded when calling %s", opts.TemplatePath),
		)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, types.NewErrorWithMsg(
			resp.StatusCode,
			types.InternalServiceError,
			fmt.Sprintf("internal server error when calling %s", opts.TemplatePath),
		)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, types.NewErrorWithMsg(
			resp.StatusCode,
			types.ClientRequestError,
			fmt.Sprintf("client error %d when calling %s", resp.StatusCode, opts.TemplatePath),
		)
	}

	var output R
	if err := json.NewDecoder(resp.Body).Decode(&output); err != nil {
		return nil, types.NewErrorWithMsg(
			http.StatusInternalServerError,
			types.InternalServiceError,
			fmt.Sprintf("failed to decode response from %s: %v", opts.TemplatePath, err),
		)
	}

	return &output, nil
}

// SendRequest sends a JSON request and decodes the JSON response, recording
// the request duration by base url, method and template path.
func SendRequest[I any, R any](
	ctx context.Context, client BaseClient, method string, opts *HttpClientOptions, input *I,
) (*R, *types.Error) {
	timer := metrics.StartClientRequestDurationTimer(
		client.GetBaseURL(), method, opts.TemplatePath,
	)

	result, err := sendRequest[I, R](ctx, client, method, opts, input)
	if err != nil {
		timer(err.StatusCode)
	} else {
		timer(http.StatusOK)
	}

	return result, err
}

// IsRetryable reports whether a failed call may succeed when repeated: rate
// limiting, upstream server errors and timeouts.
func IsRetryable(err error) bool {
	var clientErr *types.Error
	if !errors.As(err, &clientErr) {
		return false
	}

	return clientErr.StatusCode == http.StatusTooManyRequests ||
		clientErr.StatusCode == http.StatusRequestTimeout ||
		clientErr.StatusCode >= http.StatusInternalServerError
}
