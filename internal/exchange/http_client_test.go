package exchange

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(cfg HTTPClientConfig) *ThrottledClient {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewThrottledClient(cfg, logrus.NewEntry(log))
}

func fastConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:           2 * time.Second,
		MaxRetries:        0,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      time.Millisecond,
		RateLimit:         1000,
		CircuitBreakerMax: 2,
	}
}

func TestThrottledClientRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}))
	defer server.Close()

	c := testClient(fastConfig())

	resp, err := c.Post(context.Background(), server.URL, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))
}

func TestThrottledClientOpensCircuitAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := testClient(fastConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		_, err = c.Do(ctx, req)
		require.Error(t, err)
	}

	// Third call never reaches the server.
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, err = c.Do(ctx, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestThrottledClientRecoversAfterSuccess(t *testing.T) {
	fail := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := testClient(fastConfig())
	ctx := context.Background()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err := c.Do(ctx, req)
	require.Error(t, err)

	fail = false
	req, _ = http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := c.Do(ctx, req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 0, c.consecutiveErrors)
}

func TestThrottledClientHonoursCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := testClient(fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, err = c.Do(ctx, req)
	assert.Error(t, err)
}
