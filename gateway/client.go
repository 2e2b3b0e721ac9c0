// Package gateway provides typed clients for the user service and the
// data service.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Options configures a gateway client.
type Options struct {
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Tokens supplies the bearer token attached to requests. A source
	// that errors or yields an empty token leaves the request anonymous.
	Tokens oauth2.TokenSource
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// client issues JSON requests against one base URL.
type client struct {
	base   string
	http   *http.Client
	tokens oauth2.TokenSource
	log    zerolog.Logger
}

func newClient(baseURL string, opts Options) client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return client{
		base:   baseURL,
		http:   hc,
		tokens: opts.Tokens,
		log:    logger,
	}
}

// errorBody is the shape of an error response. FastAPI style services
// put a string in detail, or a list of validation errors on 422; others
// use error.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  string          `json:"error"`
}

// do sends exactly one request. path must already be escaped; query is
// appended verbatim when non-empty. in is JSON-encoded when non-nil and
// the response is decoded into out when out is non-nil.
func (c *client) do(ctx context.Context, method, path, query string, in, out any) error {
	target := c.base + path
	if query != "" {
		target += "?" + query
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	if c.tokens != nil {
		if tok, err := c.tokens.Token(); err == nil && tok.AccessToken != "" {
			tok.SetAuthHeader(req)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Err(err).
			Msg("request failed")
		return networkError(err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
	}
	return nil
}

// validationError is one entry of a 422 detail list.
type validationError struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

// message names the offending field when loc ends in one.
func (v validationError) message() string {
	if len(v.Loc) > 0 {
		if field, ok := v.Loc[len(v.Loc)-1].(string); ok && field != "" {
			return field + ": " + v.Msg
		}
	}
	return v.Msg
}

func errorMessage(code int, data []byte) string {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		var detail string
		if len(eb.Detail) > 0 && json.Unmarshal(eb.Detail, &detail) == nil && detail != "" {
			return detail
		}
		var invalid []validationError
		if len(eb.Detail) > 0 && json.Unmarshal(eb.Detail, &invalid) == nil && len(invalid) > 0 && invalid[0].Msg != "" {
			return invalid[0].message()
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	return statusMessage(code)
}
