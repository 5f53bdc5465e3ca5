package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickload/internal/runner"
)

func TestCollector_ObserveRequest(t *testing.T) {
	c := NewCollector()

	c.ObserveRequest(runner.RequestResult{Profile: "WebhookOnlyUser", Method: "POST", Name: "intensive chat", Success: true, Latency: 20 * time.Millisecond, Bytes: 100})
	c.ObserveRequest(runner.RequestResult{Profile: "WebhookOnlyUser", Method: "POST", Name: "intensive chat", Success: true, Latency: 40 * time.Millisecond, Bytes: 50})
	c.ObserveRequest(runner.RequestResult{Profile: "WebhookOnlyUser", Method: "POST", Name: "intensive chat", Success: false, Latency: time.Second})

	assert.Equal(t, float64(2), testutil.ToFloat64(c.requestsTotal.WithLabelValues("WebhookOnlyUser", "POST", "intensive chat", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.requestsTotal.WithLabelValues("WebhookOnlyUser", "POST", "intensive chat", "failure")))
	assert.Equal(t, float64(150), testutil.ToFloat64(c.responseBytes.WithLabelValues("POST", "intensive chat")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.requestDuration))
}

func TestCollector_Users(t *testing.T) {
	c := NewCollector()

	c.ObserveUsers("MenuOnlyUser", 1)
	c.ObserveUsers("MenuOnlyUser", 1)
	c.ObserveUsers("BasicUser", 1)
	c.ObserveUsers("MenuOnlyUser", -1)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.users.WithLabelValues("MenuOnlyUser")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.users.WithLabelValues("BasicUser")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveRequest(runner.RequestResult{Profile: "BasicUser", Method: "GET", Name: "health check", Success: true})

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `clickload_requests_total{method="GET",name="health check",profile="BasicUser",result="success"} 1`)
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.ObserveUsers("BasicUser", 3)

	assert.Equal(t, float64(3), testutil.ToFloat64(a.users.WithLabelValues("BasicUser")))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.users.WithLabelValues("BasicUser")))
}
