package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPTransport delivers through a websocket edge's management API:
// POST {base}/@connections/{id} with the raw payload as body.
type HTTPTransport struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPTransport builds a client for the edge at baseURL. A non-empty
// token is sent as a bearer credential.
func NewHTTPTransport(baseURL, token string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) connectionURL(connectionID string) string {
	return fmt.Sprintf("%s/@connections/%s", t.baseURL, url.PathEscape(connectionID))
}

func (t *HTTPTransport) Post(ctx context.Context, connectionID string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.connectionURL(connectionID), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req, connectionID)
}

// Disconnect asks the edge to close a connection.
func (t *HTTPTransport) Disconnect(ctx context.Context, connectionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, t.connectionURL(connectionID), nil)
	if err != nil {
		return err
	}
	return t.do(req, connectionID)
}

func (t *HTTPTransport) do(req *http.Request, connectionID string) error {
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return &DeliveryError{ConnectionID: connectionID, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if err := classifyStatus(resp.StatusCode); err != nil {
		return &DeliveryError{ConnectionID: connectionID, Err: err}
	}
	return nil
}

// classifyStatus maps management API responses onto failure classes.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusGone:
		return ErrGone
	case status == http.StatusTooManyRequests:
		return ErrLimitExceeded
	case status == http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	case status == http.StatusForbidden:
		return ErrForbidden
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}
