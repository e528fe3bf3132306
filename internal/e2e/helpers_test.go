//go:build e2e

// Package e2e holds black-box flow tests against a running marketplace
// server. Run them with `go test -tags e2e ./internal/e2e/...` after
// `go run ./cmd/seed`; they skip when the server is unreachable.
package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var client = &http.Client{Timeout: 10 * time.Second}

// baseURL is the server under test, E2E_BASE_URL or localhost:8080.
func baseURL() string {
	if u := os.Getenv("E2E_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

// skipIfNotRunning skips the test when the server does not answer its
// liveness probe.
func skipIfNotRunning(t *testing.T) {
	t.Helper()
	c := &http.Client{Timeout: 2 * time.Second}
	resp, err := c.Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("marketplace server not reachable at %s: %v", baseURL(), err)
	}
	resp.Body.Close()
}

// seededProduct returns a product ID known to exist, from E2E_PRODUCT_ID.
func seededProduct(t *testing.T) string {
	t.Helper()
	id := os.Getenv("E2E_PRODUCT_ID")
	if id == "" {
		t.Skip("E2E_PRODUCT_ID not set; seed the database and export a product id")
	}
	return id
}

func uniqueUser() string {
	return "e2e-" + uuid.NewString()
}

// do sends a JSON request and returns the status, headers and raw body.
func do(t *testing.T, method, path string, body any, headers map[string]string) (int, http.Header, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL()+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	require.NoError(t, err, "%s %s", method, path)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header, raw
}

// decode unmarshals a response body into v.
func decode(t *testing.T, raw []byte, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v), "body: %s", raw)
}
