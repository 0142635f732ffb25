package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"echo-gateway/internal/protocol"
)

// ForwardingDispatcher posts each envelope to a remote handler fleet
// (POST {url} with the JSON envelope as body).
type ForwardingDispatcher struct {
	url    string
	token  string
	client *http.Client
}

// NewForwardingDispatcher posts to url, presenting token as a bearer
// credential when it is set.
func NewForwardingDispatcher(url, token string, timeout time.Duration) *ForwardingDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ForwardingDispatcher{url: url, token: token, client: &http.Client{Timeout: timeout}}
}

func (f *ForwardingDispatcher) Handle(ctx context.Context, env *protocol.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("forward %s event: %w", env.RequestContext.EventType, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("forward %s event: handler answered %d: %s",
			env.RequestContext.EventType, resp.StatusCode, bytes.TrimSpace(msg))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
