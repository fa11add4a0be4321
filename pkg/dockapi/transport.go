package dockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
)

// apiRequest describes one HTTP call against the engine socket. body and
// rawBody are mutually exclusive: body is serialized as JSON, rawBody
// (tar uploads) is sent verbatim.
type apiRequest struct {
	method  string
	path    string
	query   url.Values
	body    any
	rawBody []byte
	headers map[string]string
}

// apiResponse is a fully-buffered engine response. The underlying
// connection is already drained and closed by the time one is returned.
type apiResponse struct {
	status int
	body   []byte
}

// decode unmarshals the response body into v.
func (r *apiResponse) decode(v any) error {
	if len(r.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("failed to decode engine response: %w", err)
	}
	return nil
}

// text returns the response body as a string, for raw endpoints that do
// not speak JSON (plain-text logs, ping).
func (r *apiResponse) text() string {
	return string(r.body)
}

func newUnixTransport(socketPath string) *http.Transport {
	return &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		// One fresh connection per request: no reuse means no shared
		// socket state between calls.
		DisableKeepAlives:  true,
		DisableCompression: true,
	}
}

// do performs a buffered request. The connection is fully drained and
// closed on every exit path; callers only ever see bytes.
func (c *Client) do(ctx context.Context, req apiRequest) (*apiResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine response: %w", err)
	}
	return &apiResponse{status: resp.StatusCode, body: body}, nil
}

// doStream performs a streaming request and hands the live response body
// to the caller. Ownership of closing it transfers with the return; a
// handle that is never closed leaks its socket. The client timeout does
// not apply to streaming reads.
func (c *Client) doStream(ctx context.Context, req apiRequest) (io.ReadCloser, error) {
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) roundTrip(ctx context.Context, req apiRequest) (*http.Response, error) {
	u := &url.URL{Scheme: "http", Host: apiHost, Path: req.path}
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	var contentType string
	var contentLength int64
	switch {
	case req.rawBody != nil:
		body = bytes.NewReader(req.rawBody)
		contentLength = int64(len(req.rawBody))
	case req.body != nil:
		buf, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
		contentLength = int64(len(buf))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if body != nil {
		httpReq.ContentLength = contentLength
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("engine request failed: %w", err)
	}
	log.Debug("engine request", "method", req.method, "path", req.path, "status", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, apiErrorFromResponse(resp)
	}
	return resp, nil
}

// apiErrorFromResponse drains an error response and extracts the engine's
// {"message": ...} envelope, falling back to the raw body text.
func apiErrorFromResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "failed to read error response: " + err.Error()}
	}

	msg := string(bytes.TrimSpace(body))
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		msg = envelope.Message
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// queryBool sets key to the literal strings "true"/"false".
func queryBool(q url.Values, key string, v bool) {
	q.Set(key, strconv.FormatBool(v))
}

// queryJSON JSON-encodes a structured value (filters, build args) before
// it is URL-encoded into the query string.
func queryJSON(q url.Values, key string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s parameter: %w", key, err)
	}
	q.Set(key, string(buf))
	return nil
}
