// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", ready)
	_, err := s.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, s.Stop(ctx))
	})
	return s
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec // local test server
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestLivenessAlwaysOK(t *testing.T) {
	s := startServer(t, nil)

	status, body := get(t, fmt.Sprintf("http://%s/healthz/liveness", s.Addr()))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok\n", body)
}

func TestReadinessFollowsChecker(t *testing.T) {
	ready := false
	s := startServer(t, func() bool { return ready })

	status, _ := get(t, fmt.Sprintf("http://%s/healthz/readiness", s.Addr()))
	assert.Equal(t, http.StatusServiceUnavailable, status)

	ready = true
	status, _ = get(t, fmt.Sprintf("http://%s/healthz/readiness", s.Addr()))
	assert.Equal(t, http.StatusOK, status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := startServer(t, nil)
	s.Metrics().BreachesTotal.WithLabelValues("success").Inc()

	status, body := get(t, fmt.Sprintf("http://%s/metrics", s.Addr()))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "netgrid_breaches_total")
}

func TestDoubleStartFails(t *testing.T) {
	s := startServer(t, nil)

	_, err := s.Start()
	assert.Error(t, err)
}

func TestStopIdempotent(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	_, err := s.Start()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
