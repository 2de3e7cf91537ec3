package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/hospital-backend/pkg/config"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/medflow/hospital-backend/pkg/testutil"
)

func upstream(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", name)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewProxy_RejectsBadURL(t *testing.T) {
	_, err := NewProxy(&config.ServicesConfig{
		PharmacyURL:    "not a url",
		AppointmentURL: "http://localhost:8001",
	}, logger.Nop())
	assert.Error(t, err)
}

func TestProxy_ForwardsByPrefix(t *testing.T) {
	pharmacy := upstream(t, "pharmacy")
	appointments := upstream(t, "appointment")

	p, err := NewProxy(&config.ServicesConfig{
		PharmacyURL:    pharmacy.URL,
		AppointmentURL: appointments.URL,
		HealthTimeout:  time.Second,
	}, logger.Nop())
	require.NoError(t, err)

	rr := testutil.ExecuteRequest(http.HandlerFunc(p.ForwardToPharmacy),
		testutil.NewHTTPRequest(http.MethodGet, "/api/pharmacy/medicines", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "pharmacy", rr.Header().Get("X-Upstream"))
	assert.JSONEq(t, `{"path":"/api/pharmacy/medicines"}`, rr.Body.String())

	rr = testutil.ExecuteRequest(http.HandlerFunc(p.ForwardToAppointments),
		testutil.NewHTTPRequest(http.MethodGet, "/api/appointments/doctors", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "appointment", rr.Header().Get("X-Upstream"))
}

func TestProxy_UnreachableUpstream(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	p, err := NewProxy(&config.ServicesConfig{
		PharmacyURL:    deadURL,
		AppointmentURL: deadURL,
		HealthTimeout:  time.Second,
	}, logger.Nop())
	require.NoError(t, err)

	rr := testutil.ExecuteRequest(http.HandlerFunc(p.ForwardToPharmacy),
		testutil.NewHTTPRequest(http.MethodGet, "/api/pharmacy/medicines", nil))
	testutil.AssertStatus(t, rr, http.StatusBadGateway)
	assert.Contains(t, rr.Body.String(), `"code":"BAD_GATEWAY"`)
}

func TestProxy_UpstreamHealth(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	p, err := NewProxy(&config.ServicesConfig{
		PharmacyURL:    healthy.URL,
		AppointmentURL: failing.URL,
		HealthTimeout:  time.Second,
	}, logger.Nop())
	require.NoError(t, err)

	got := p.UpstreamHealth(context.Background())
	assert.Equal(t, map[string]string{"pharmacy": "healthy", "appointment": "unhealthy"}, got)

	rr := testutil.ExecuteRequest(http.HandlerFunc(p.Health),
		testutil.NewHTTPRequest(http.MethodGet, "/health", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), `"status":"degraded"`)
}
