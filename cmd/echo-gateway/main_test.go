package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"echo-gateway/internal/config"
	"echo-gateway/internal/protocol"
	"echo-gateway/internal/signature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Key: "cli-key"},
		Store:     config.StoreConfig{Driver: "memory"},
		Transport: config.TransportConfig{Mode: "local", ManagementToken: "mgmt-token", Timeout: time.Second},
		JWT:       config.JWTConfig{Secret: "secret"},
		Broadcast: config.BroadcastConfig{MaxConcurrency: 4},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodeEnvelope(t *testing.T, env *protocol.Envelope) string {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(b)
}

type edgeRecorder struct {
	mu    sync.Mutex
	paths []string
	body  []string
	auth  []string
}

func (e *edgeRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	e.mu.Lock()
	e.paths = append(e.paths, r.Method+" "+r.URL.Path)
	e.body = append(e.body, string(b))
	e.auth = append(e.auth, r.Header.Get("Authorization"))
	e.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func TestSign(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, sign(&out, "cli-key", "abc", "private-orders", ""))

	signer, err := signature.NewSigner("cli-key")
	require.NoError(t, err)
	assert.Equal(t, signer.Sign("abc", "private-orders", "")+"\n", out.String())
}

func TestSignRequiresKey(t *testing.T) {
	assert.Error(t, sign(io.Discard, "", "abc", "private-orders", ""))
}

func TestHandleDeliversThroughManagementAPI(t *testing.T) {
	edge := &edgeRecorder{}
	server := httptest.NewServer(edge)
	defer server.Close()

	cfg := testConfig()
	cfg.Transport.Mode = "http"
	cfg.Transport.ManagementURL = server.URL

	payload := encodeEnvelope(t, protocol.NewEnvelope(protocol.EventTypeMessage, "abc", []byte(`{"event":"ping"}`)))
	var out bytes.Buffer
	require.NoError(t, handle(context.Background(), cfg, discard(), payload, &out))

	assert.Equal(t, "{\"statusCode\":200}\n", out.String())
	require.Equal(t, []string{"POST /@connections/abc"}, edge.paths)
	assert.JSONEq(t, `{"event":"pong","channel":null}`, edge.body[0])
	assert.Equal(t, []string{"Bearer mgmt-token"}, edge.auth)
}

func TestHandleErrors(t *testing.T) {
	valid := encodeEnvelope(t, protocol.NewEnvelope(protocol.EventTypeConnect, "abc", nil))

	t.Run("not base64", func(t *testing.T) {
		assert.Error(t, handle(context.Background(), testConfig(), discard(), "%%%", io.Discard))
	})
	t.Run("unknown event type", func(t *testing.T) {
		payload := base64.StdEncoding.EncodeToString([]byte(`{"requestContext":{"eventType":"RESUME","connectionId":"abc"}}`))
		err := handle(context.Background(), testConfig(), discard(), payload, io.Discard)
		assert.ErrorIs(t, err, protocol.ErrMalformedMessage)
	})
	t.Run("no management url", func(t *testing.T) {
		err := handle(context.Background(), testConfig(), discard(), valid, io.Discard)
		assert.ErrorIs(t, err, errNoManagementURL)
	})
	t.Run("no management token", func(t *testing.T) {
		cfg := testConfig()
		cfg.Transport.ManagementURL = "http://edge.internal"
		cfg.Transport.ManagementToken = ""
		err := handle(context.Background(), cfg, discard(), valid, io.Discard)
		assert.ErrorIs(t, err, errNoManagementToken)
	})
	t.Run("unknown store", func(t *testing.T) {
		cfg := testConfig()
		cfg.Store.Driver = "cassandra"
		assert.Error(t, handle(context.Background(), cfg, discard(), valid, io.Discard))
	})
}

func TestRunWorkerRequiresBrokers(t *testing.T) {
	err := runWorker(context.Background(), testConfig(), discard(), nil)
	assert.ErrorIs(t, err, errNoBrokers)
}

func TestBuildServerLocalMode(t *testing.T) {
	srv, err := buildServer(context.Background(), testConfig(), discard())
	require.NoError(t, err)
	defer srv.close(context.Background())
	require.NotNil(t, srv.hub)

	ts := httptest.NewServer(srv.engine)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = managementRequest(t, http.MethodPost, ts.URL+"/@connections/unknown", "mgmt-token")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func managementRequest(t *testing.T, method, url, bearer string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return http.DefaultClient.Do(req)
}

func TestBuildServerGuardsControlPlane(t *testing.T) {
	srv, err := buildServer(context.Background(), testConfig(), discard())
	require.NoError(t, err)
	defer srv.close(context.Background())

	ts := httptest.NewServer(srv.engine)
	defer ts.Close()

	for _, target := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/invocations"},
		{http.MethodPost, "/@connections/abc"},
		{http.MethodDelete, "/@connections/abc"},
	} {
		resp, err := managementRequest(t, target.method, ts.URL+target.path, "")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, target.path)
	}
}

func TestBuildServerForwardingNeedsToken(t *testing.T) {
	cfg := testConfig()
	cfg.Transport.HandlerURL = "http://handlers.internal/api/v1/invocations"
	cfg.Transport.ManagementToken = ""
	_, err := buildServer(context.Background(), cfg, discard())
	assert.ErrorIs(t, err, errNoManagementToken)
}

func TestBuildServerHTTPMode(t *testing.T) {
	cfg := testConfig()
	cfg.Transport.Mode = "http"
	cfg.Transport.ManagementURL = "http://edge.internal"

	srv, err := buildServer(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer srv.close(context.Background())
	assert.Nil(t, srv.hub)

	ts := httptest.NewServer(srv.engine)
	defer ts.Close()

	resp, err := managementRequest(t, http.MethodPost, ts.URL+"/@connections/abc", "mgmt-token")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBuildServerRejectsBadTransport(t *testing.T) {
	cfg := testConfig()
	cfg.Transport.Mode = "carrier-pigeon"
	_, err := buildServer(context.Background(), cfg, discard())
	assert.Error(t, err)

	cfg.Transport.Mode = "http"
	_, err = buildServer(context.Background(), cfg, discard())
	assert.ErrorIs(t, err, errNoManagementURL)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "handle", "worker", "sign"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
