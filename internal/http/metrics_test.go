package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", normalizePath(""))
	assert.Equal(t, "/oauth2/access_token", normalizePath("/oauth2/access_token?x=1"))
	assert.Equal(t, "/users/:param", normalizePath("/users/12345"))
	assert.Equal(t, "/t/:param", normalizePath("/t/abcdefabcdefabcdef"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := RegisterMetrics(MetricsConfig{Registry: reg, Gatherer: reg})
	require.NoError(t, err)

	app := WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	RecordIDTokenIssued("password")
	RecordUserInfo("ok")
	ObserveClaimCollect(2 * time.Millisecond)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Equal(t, http.StatusOK, rec.Code)
	for _, name := range []string{
		`http_requests_total{method="GET",path="/healthz",status="418"}`,
		`oidc_id_tokens_issued_total{grant_type="password"}`,
		`oidc_userinfo_requests_total{result="ok"}`,
		"oidc_claim_collect_duration_seconds_count",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}
