package livedatanow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ForwardRequest is a request relayed verbatim to the upstream API.
type ForwardRequest struct {
	Method        string
	Path          string
	RawQuery      string
	Body          []byte
	Authorization string
}

// Response is the raw upstream answer.
type Response struct {
	Status     int
	StatusText string
	Body       []byte
	Header     http.Header
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// ErrorMessage normalizes a failed response into the message surfaced to callers.
func (r *Response) ErrorMessage() string {
	if r == nil {
		return ""
	}
	return ExtractErrorMessage(r.Status, r.StatusText, r.Body)
}

// Forward relays a request to the upstream API and returns its answer whatever the status.
// Only transport failures produce an error.
func (c *Client) Forward(ctx context.Context, req ForwardRequest) (*Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "livedatanow client not configured")
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 && method != http.MethodGet {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(req.Path, req.RawQuery), body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build upstream request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if auth := strings.TrimSpace(req.Authorization); auth != "" {
		httpReq.Header.Set("Authorization", auth)
	}

	started := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(method, req.Path, 0, started)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute upstream request")
	}
	defer func() { _ = resp.Body.Close() }()

	limit := responseReadLimit
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		limit = errorBodyReadLimit
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	c.observe(method, req.Path, resp.StatusCode, started)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read upstream response")
	}

	return &Response{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Body:       payload,
		Header:     resp.Header.Clone(),
	}, nil
}

// ExtractErrorMessage picks the message of a failed upstream response.
// JSON bodies yield error, then message, then the raw text; other bodies yield the
// text, then the status line, then "HTTP <status>".
func ExtractErrorMessage(status int, statusText string, body []byte) string {
	text := string(body)

	var parsed any
	if err := json.Unmarshal(body, &parsed); err == nil {
		if obj, ok := parsed.(map[string]any); ok {
			if msg := truthyString(obj["error"]); msg != "" {
				return msg
			}
			if msg := truthyString(obj["message"]); msg != "" {
				return msg
			}
		}
		if text != "" {
			return text
		}
	}

	if text != "" {
		return text
	}
	if statusText != "" {
		return statusText
	}
	return fmt.Sprintf("HTTP %d", status)
}

// truthyString renders a JSON value the way a loose truthiness check would accept it.
func truthyString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case bool:
		if val {
			return "true"
		}
		return ""
	case float64:
		if val == 0 {
			return ""
		}
		return fmt.Sprintf("%v", val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func statusText(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// do issues a typed call and converts non-2xx answers into upstream errors.
func (c *Client) do(ctx context.Context, method, path, rawQuery, token string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal upstream request")
		}
		body = encoded
	}

	resp, err := c.Forward(ctx, ForwardRequest{
		Method:        method,
		Path:          path,
		RawQuery:      rawQuery,
		Body:          body,
		Authorization: bearer(token),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, resp.ErrorMessage()).WithStatus(resp.Status)
	}
	return resp.Body, nil
}
