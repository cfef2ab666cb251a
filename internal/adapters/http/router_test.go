package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/VoiceLink/internal/app/broker"
	"github.com/dkeye/VoiceLink/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMinter struct {
	data   json.RawMessage
	err    error
	models []string
}

func (m *fakeMinter) Mint(_ context.Context, model string) (json.RawMessage, error) {
	m.models = append(m.models, model)
	return m.data, m.err
}

func testConfig() *config.Config {
	return &config.Config{
		Mode:   "test",
		Secret: "test-secret",
		Broker: config.BrokerConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

func newBroker(cfg *config.Config, m Minter, limit int) *gin.Engine {
	return SetupBrokerRouter(cfg, m, broker.NewMemoryLimiter(limit, time.Minute), broker.NewMetrics())
}

func get(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionPassesUpstreamJSON(t *testing.T) {
	m := &fakeMinter{data: json.RawMessage(`{"model":"m1","client_secret":{"value":"ek_1"}}`)}
	r := newBroker(testConfig(), m, 10)

	w := get(r, "/api/realtime/session?model=m1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"model":"m1","client_secret":{"value":"ek_1"}}`, w.Body.String())
	assert.Equal(t, []string{"m1"}, m.models)
	assert.NotEmpty(t, w.Result().Cookies(), "client session cookie is issued")
}

func TestSessionErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"missing key", broker.ErrMissingAPIKey, 500, `{"error":"Missing OPENAI_API_KEY"}`},
		{"upstream", &broker.UpstreamError{StatusCode: 401, Body: "bad key"}, 401, `{"error":"OpenAI session error","details":"bad key"}`},
		{"other", errors.New("dial tcp: refused"), 500, `{"error":"dial tcp: refused"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newBroker(testConfig(), &fakeMinter{err: tc.err}, 10)
			w := get(r, "/api/realtime/session", nil)
			assert.Equal(t, tc.code, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestOriginFilter(t *testing.T) {
	r := newBroker(testConfig(), &fakeMinter{data: json.RawMessage(`{}`)}, 10)

	w := get(r, "/api/realtime/session", http.Header{"Origin": {"http://evil.example"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(r, "/api/realtime/session", http.Header{"Origin": {"http://localhost:3000"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/api/realtime/session", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestJWTAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.JWTSecret = "jwt-secret"
	r := newBroker(cfg, &fakeMinter{data: json.RawMessage(`{}`)}, 10)

	w := get(r, "/api/realtime/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/api/realtime/session", http.Header{"Authorization": {"Token abc"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	wrong, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1"}).SignedString([]byte("other"))
	require.NoError(t, err)
	w = get(r, "/api/realtime/session", http.Header{"Authorization": {"Bearer " + wrong}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("jwt-secret"))
	require.NoError(t, err)
	w = get(r, "/api/realtime/session", http.Header{"Authorization": {"Bearer " + signed}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitPerClientSession(t *testing.T) {
	r := newBroker(testConfig(), &fakeMinter{data: json.RawMessage(`{}`)}, 1)

	first := get(r, "/api/realtime/session", nil)
	require.Equal(t, http.StatusOK, first.Code)

	var cookies []string
	for _, c := range first.Result().Cookies() {
		cookies = append(cookies, c.Name+"="+c.Value)
	}
	header := http.Header{"Cookie": {strings.Join(cookies, "; ")}}

	second := get(r, "/api/realtime/session", header)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	other := get(r, "/api/realtime/session", nil)
	assert.Equal(t, http.StatusOK, other.Code)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) { return false, errors.New("redis down") }

func TestRateLimiterFailureIsUnavailable(t *testing.T) {
	r := SetupBrokerRouter(testConfig(), &fakeMinter{}, brokenLimiter{}, broker.NewMetrics())
	w := get(r, "/api/realtime/session", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newBroker(testConfig(), &fakeMinter{data: json.RawMessage(`{}`)}, 10)

	w := get(r, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	get(r, "/api/realtime/session", nil)
	w = get(r, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `voicelink_session_mints_total{status="success"} 1`)
	assert.Contains(t, w.Body.String(), `voicelink_http_requests_total{code="200",method="GET",route="/api/realtime/session"} 1`)
}
