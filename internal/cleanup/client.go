// Package cleanup is a typed client for the Cleanup REST backend.
//
// Every response body is decoded into explicit wire structs and checked before it
// is turned into domain values; anything that does not fit is a *ParseError.
// Non-2xx responses become *RemoteError carrying the backend's message verbatim,
// and failed exchanges become *TransportError. The client never retries.
package cleanup

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

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// TokenFunc returns the bearer token to forward for the request in ctx.
type TokenFunc func(ctx context.Context) string

// Client talks to the Cleanup backend.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
}

// New creates a Client. A zero timeout means 30 seconds; a nil token func sends
// no Authorization header.
func New(baseURL string, timeout time.Duration, token TokenFunc) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		token:   token,
	}
}

// envelope is the backend's response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta json.RawMessage `json:"meta"`
}

type errorBody struct {
	Message string                     `json:"message"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in any) (*envelope, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeRemoteError(resp.StatusCode, raw)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) == 0 {
		return &env, nil
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ParseError{Op: op, Reason: "body is not a JSON envelope", Err: err}
	}
	return &env, nil
}

func decodeRemoteError(status int, raw []byte) *RemoteError {
	re := &RemoteError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil {
		re.Message = eb.Message
		for field, v := range eb.Errors {
			if msg := firstMessage(v); msg != "" {
				if re.Fields == nil {
					re.Fields = make(map[string]string, len(eb.Errors))
				}
				re.Fields[field] = msg
			}
		}
	}
	if re.Message == "" {
		re.Message = http.StatusText(status)
	}
	return re
}

// firstMessage accepts either "msg" or ["msg", ...].
func firstMessage(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(v, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

func storePath(store string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/stores/")
	b.WriteString(url.PathEscape(store))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(p)
	}
	return b.String()
}
