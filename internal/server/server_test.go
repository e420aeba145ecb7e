package server_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mobapp/domicilio/internal/provisioning"
	"github.com/mobapp/domicilio/internal/quote"
	"github.com/mobapp/domicilio/internal/server"
	"github.com/mobapp/domicilio/internal/session"
	"github.com/mobapp/domicilio/internal/telemetry"
	"github.com/mobapp/domicilio/pkg/shipper"
	"github.com/mobapp/domicilio/pkg/shipper/mock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type testServer struct {
	handler  http.Handler
	platform *mock.Platform
	identity *mock.Identity
	rates    *mock.RateTable
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := otelzap.New(zap.NewNop())
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	ts := &testServer{
		platform: mock.NewPlatform(),
		identity: mock.NewIdentity(shipper.Credential{StoreID: "123456", AccessToken: "tok"}),
		rates:    mock.NewRateTable(),
	}

	workflow := provisioning.New(provisioning.Config{
		CarrierName: "Mobapp Domicilio",
		PublicURL:   "https://domicilio.example.com",
	}, ts.identity, ts.platform, logger, metrics, nil)
	engine := quote.New(quote.DefaultConfig(), ts.rates, logger, metrics, nil)
	sessions := session.NewManager(session.NewMemoryStore(), session.Config{TTL: time.Minute})

	srv := server.New(server.Config{Port: 8080, Gatherer: reg}, sessions, workflow, engine, logger, metrics)
	ts.handler = srv.Handler()
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// install runs /install and returns the session cookie and issued state.
func (ts *testServer) install(t *testing.T) (*http.Cookie, string) {
	t.Helper()

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/install", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0], state
}

func callback(cookie *http.Cookie, query url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/oauth_callback?"+query.Encode(), nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_Index(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/install")
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t)
	ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `domicilio_requests_total{route="/health",status="200"} 1`)
}

func TestServer_Install_Redirects(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/install", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://platform.mock/apps/test/authorize"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Zero(t, ts.platform.CarrierCalls())
}

func TestServer_Callback_Success(t *testing.T) {
	ts := newTestServer(t)
	cookie, state := ts.install(t)

	rec := ts.do(callback(cookie, url.Values{"code": {"auth-code"}, "state": {state}}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Carrier &#39;Mobapp Domicilio&#39; instalado")
	assert.Contains(t, body, "ANDREANI A DOMICILIO, CORREO ARGENTINO A DOMICILIO, OCA A DOMICILIO, URBANO A DOMICILIO, ANDREANI BIGGER A DOM")
	assert.Contains(t, body, "https://domicilio.example.com/api/shipping_rates")
	assert.NotContains(t, body, "no se pudieron crear")
	assert.Len(t, ts.platform.OptionCalls(), len(shipper.DefaultCatalog))
}

func TestServer_Callback_ListsFailedOptions(t *testing.T) {
	ts := newTestServer(t)
	ts.platform.FailOptions["OCA_DOM"] = errors.New("rejected")
	cookie, state := ts.install(t)

	rec := ts.do(callback(cookie, url.Values{"code": {"auth-code"}, "state": {state}}))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "ANDREANI A DOMICILIO, CORREO ARGENTINO A DOMICILIO, OCA A DOMICILIO")
	assert.Contains(t, body, "Opciones que no se pudieron crear: OCA A DOMICILIO")
}

func TestServer_Callback_Errors(t *testing.T) {
	tests := []struct {
		name       string
		withCookie bool
		query      func(state string) url.Values
		setup      func(ts *testServer)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "oauth error",
			withCookie: true,
			query: func(state string) url.Values {
				return url.Values{"error": {"access_denied"}, "error_description": {"cancelado"}, "state": {state}}
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Error de Tienda Nube: cancelado",
		},
		{
			name:       "state mismatch",
			withCookie: true,
			query: func(string) url.Values {
				return url.Values{"code": {"c"}, "state": {"forged"}}
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Error de seguridad: estado inválido.",
		},
		{
			name:       "no session",
			withCookie: false,
			query: func(state string) url.Values {
				return url.Values{"code": {"c"}, "state": {state}}
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Error de seguridad: estado inválido.",
		},
		{
			name:       "missing code",
			withCookie: true,
			query: func(state string) url.Values {
				return url.Values{"state": {state}}
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Falta el código de autorización.",
		},
		{
			name:       "incomplete credential",
			withCookie: true,
			query: func(state string) url.Values {
				return url.Values{"code": {"c"}, "state": {state}}
			},
			setup: func(ts *testServer) {
				ts.identity.Credential = shipper.Credential{AccessToken: "tok"}
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Error al obtener token o ID de tienda.",
		},
		{
			name:       "carrier failure",
			withCookie: true,
			query: func(state string) url.Values {
				return url.Values{"code": {"c"}, "state": {state}}
			},
			setup: func(ts *testServer) {
				ts.platform.FailCarrier = errors.New("boom")
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "no se pudo registrar el carrier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			if tt.setup != nil {
				tt.setup(ts)
			}
			cookie, state := ts.install(t)
			if !tt.withCookie {
				cookie = nil
			}

			rec := ts.do(callback(cookie, tt.query(state)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func postRates(body string, userAgent string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/shipping_rates", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return req
}

func decodeRates(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestServer_Rates(t *testing.T) {
	ts := newTestServer(t)
	ts.rates.Rows["OCA DOM"] = []shipper.RateRow{{Name: "OCA A DOMICILIO", Cost: 1500}}

	body := `{
		"destination": {"postal_code": "1406"},
		"items": [{"grams": 1000, "quantity": 2}],
		"carrier": {"options": [
			{"id": 1, "code": "OCA_DOM", "name": "OCA A DOMICILIO"},
			{"id": 2, "code": "OCA_SUC", "name": "OCA SUCURSAL"}
		]}
	}`
	rec := ts.do(postRates(body, "TiendaNubeAPI/1.0"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp quote.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Rates, 1)
	assert.Equal(t, 1500.0, resp.Rates[0].Price)
	assert.Equal(t, "ARS", resp.Rates[0].Currency)
	assert.Equal(t, 7*24*time.Hour, resp.Rates[0].MaxDeliveryDate.Sub(resp.Rates[0].MinDeliveryDate))
}

func TestServer_Rates_AlwaysOK(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError bool
	}{
		{name: "empty body", body: ""},
		{name: "empty object", body: "{}"},
		{name: "malformed json", body: `{"items": [`, wantError: true},
		{name: "no postal code", body: `{"items": [{"grams": 100, "quantity": 1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(postRates(tt.body, "curl/8.0"))

			assert.Equal(t, http.StatusOK, rec.Code)
			resp := decodeRates(t, rec)
			assert.Equal(t, []any{}, resp["rates"])
			if tt.wantError {
				assert.Equal(t, quote.InternalErrorMessage, resp["error"])
			} else {
				assert.NotContains(t, resp, "error")
			}
		})
	}
}

func TestServer_Rates_PanicStillOK(t *testing.T) {
	ts := newTestServer(t)
	ts.rates.Panics["OCA DOM"] = true

	body := `{"destination": {"zipcode": "1406"}, "items": [], "carrier": {"options": [{"id": 1, "code": "OCA_DOM", "name": "OCA A DOMICILIO"}]}}`
	rec := ts.do(postRates(body, "TiendaNubeAPI"))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRates(t, rec)
	assert.Equal(t, []any{}, resp["rates"])
	assert.Equal(t, quote.InternalErrorMessage, resp["error"])
}

func TestServer_Rates_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/shipping_rates", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
