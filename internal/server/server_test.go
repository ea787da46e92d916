package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deuthe/test-odrl-integration/internal/backend"
	"github.com/Deuthe/test-odrl-integration/internal/credential"
	"github.com/Deuthe/test-odrl-integration/internal/eventlog"
	"github.com/Deuthe/test-odrl-integration/internal/gateway"
	"github.com/Deuthe/test-odrl-integration/internal/health"
	"github.com/Deuthe/test-odrl-integration/internal/observability"
	"github.com/Deuthe/test-odrl-integration/internal/pdp"
	"github.com/Deuthe/test-odrl-integration/internal/policy"
	"github.com/Deuthe/test-odrl-integration/internal/resource"
	"github.com/Deuthe/test-odrl-integration/internal/server/middleware"
)

const airQuality = `{"location":"Kennedylaan","pm10":21.4}`

var secret = []byte("a-secure-key-for-testing")

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeOPA stores the uploaded module and answers decisions with a
// configurable result document.
type fakeOPA struct {
	mu       sync.Mutex
	module   string
	result   string
	failPut  bool
	failData bool
	inputs   []map[string]interface{}
}

func (f *fakeOPA) set(fn func(*fakeOPA)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeOPA) snapshot() (string, []map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.module, append([]map[string]interface{}(nil), f.inputs...)
}

func (f *fakeOPA) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/v1/policies/eindhoven":
			if f.failPut {
				http.Error(w, `{"code":"invalid_parameter"}`, http.StatusBadRequest)
				return
			}
			body, _ := io.ReadAll(r.Body)
			f.module = string(body)
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/data/httpauthz/decision":
			if f.failData {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			var payload struct {
				Input map[string]interface{} `json:"input"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			f.inputs = append(f.inputs, payload.Input)
			_, _ = w.Write([]byte(f.result))
		case r.Method == http.MethodGet && r.URL.Path == "/health":
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

type harness struct {
	server      *Server
	opa         *fakeOPA
	events      *eventlog.Log
	backendHits *atomic.Int32
}

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()

	opa := &fakeOPA{result: `{"result":true}`}
	opaServer := httptest.NewServer(opa.handler(t))
	t.Cleanup(opaServer.Close)

	hits := &atomic.Int32{}
	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/airquality_data_kennedylaan.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(airQuality))
	}))
	t.Cleanup(backendServer.Close)

	events := eventlog.New()
	logger := observability.NopLogger()

	pdpClient, err := pdp.NewClient(pdp.Config{URL: opaServer.URL, DecisionPath: "httpauthz/decision"})
	require.NoError(t, err)

	table, err := resource.NewTable(backendServer.URL, map[string]string{
		"airquality": "airquality_data_kennedylaan.json",
		"traffic":    "traffic_data_kennedylaan.json",
	})
	require.NoError(t, err)

	issuer, err := credential.NewIssuer(secret, credential.WithIssuerRecorder(events))
	require.NoError(t, err)
	verifier, err := credential.NewVerifier(secret)
	require.NoError(t, err)

	gw := gateway.New(resource.NewResolver(table), verifier, pdpClient, backend.NewFetcher(),
		gateway.WithRecorder(events),
		gateway.WithUpstreamTimeout(2*time.Second),
	)
	policies := policy.NewService(policy.NewCompiler(policy.CompilerConfig{}), pdpClient,
		policy.WithRecorder(events))

	checker := health.NewChecker("test")
	checker.RegisterCheck("pdp", pdpClient.Ping)

	cfg := Config{
		MaxBodyBytes: 1 << 20,
		CORS: middleware.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv := New(cfg, Dependencies{
		Policies: policies,
		Tokens:   issuer,
		Gateway:  gw,
		Events:   events,
		Health:   checker,
		Metrics:  observability.NewMetrics("test"),
		Logger:   logger,
	})

	return &harness{server: srv, opa: opa, events: events, backendHits: hits}
}

func (h *harness) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.server.Engine().ServeHTTP(w, req)
	return w
}

func (h *harness) token(t *testing.T) string {
	t.Helper()
	w := h.do(http.MethodPost, "/auth/token",
		`{"credentials":[{"presentedAttributes":{"role":"Verkeersregelaar","jurisdiction":"Eindhoven"}}]}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestPolicies(t *testing.T) {
	t.Parallel()

	const doc = `{
		"@context": "http://www.w3.org/ns/odrl.jsonld",
		"uid": "http://example.com/policy:eindhoven",
		"@type": "Set",
		"permission": [{
			"target": "http://example.com/data/airquality",
			"action": "read",
			"constraint": [
				{"leftOperand": "role", "operator": "eq", "rightOperand": "Verkeersregelaar"},
				{"leftOperand": "jurisdiction", "operator": "eq", "rightOperand": "Eindhoven"}
			]
		}]
	}`

	t.Run("published", func(t *testing.T) {
		t.Parallel()

		// Arrange
		h := newHarness(t)

		// Act
		w := h.do(http.MethodPost, "/policies", doc, nil)

		// Assert
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"status":"Policy Active"}`, w.Body.String())
		module, _ := h.opa.snapshot()
		assert.Contains(t, module, `input.attributes["role"] == "Verkeersregelaar"`)
		assert.Contains(t, module, `input.attributes["jurisdiction"] == "Eindhoven"`)

		recorded := h.events.Drain()
		require.Len(t, recorded, 3)
		assert.Equal(t, "Received request to update policy...", recorded[0].Message)
		assert.Equal(t, "Policy updated successfully in OPA.", recorded[2].Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		w := h.do(http.MethodPost, "/policies", `{"permission": [`, nil)

		module, _ := h.opa.snapshot()
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, module)
	})

	t.Run("null or scalar document is rejected", func(t *testing.T) {
		t.Parallel()

		for _, body := range []string{`null`, ` null `, `"policy"`, `42`} {
			// Arrange
			h := newHarness(t)

			// Act
			w := h.do(http.MethodPost, "/policies", body, nil)

			// Assert
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
			assert.JSONEq(t, `{"error":"Invalid policy document"}`, w.Body.String())
			module, _ := h.opa.snapshot()
			assert.Empty(t, module, body)
		}
	})

	t.Run("pdp rejects upload", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.opa.set(func(f *fakeOPA) { f.failPut = true })
		w := h.do(http.MethodPost, "/policies", doc, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Failed to update policy engine"}`, w.Body.String())
	})
}

func TestAuthToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing jurisdiction",
			body:       `{"credentials":[{"presentedAttributes":{"role":"Verkeersregelaar"}}]}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid wallet data: missing role or jurisdiction attributes"}`,
		},
		{
			name:       "no credentials",
			body:       `{"credentials":[]}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid wallet data: missing role or jurisdiction attributes"}`,
		},
		{
			name:       "malformed json",
			body:       `{"credentials":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid wallet data: missing role or jurisdiction attributes"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			w := h.do(http.MethodPost, "/auth/token", tt.body, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}

	t.Run("issued", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		token := h.token(t)

		assert.Equal(t, 2, strings.Count(token, "."))
	})
}

func TestData(t *testing.T) {
	t.Parallel()

	t.Run("allowed passes the body through", func(t *testing.T) {
		t.Parallel()

		// Arrange
		h := newHarness(t)
		token := h.token(t)

		// Act
		w := h.do(http.MethodGet, "/data/airquality", "", bearer(token))

		// Assert
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, airQuality, w.Body.String())
		_, inputs := h.opa.snapshot()
		require.Len(t, inputs, 1)
		assert.Equal(t, map[string]interface{}{
			"method": "GET",
			"path":   "/data/airquality",
			"attributes": map[string]interface{}{
				"role":         "Verkeersregelaar",
				"jurisdiction": "Eindhoven",
			},
		}, inputs[0])
	})

	t.Run("unknown resource is 404 regardless of credentials", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name   string
			header func(h *harness) map[string]string
		}{
			{name: "no header", header: func(*harness) map[string]string { return nil }},
			{name: "invalid token", header: func(*harness) map[string]string { return bearer("abc.def.ghi") }},
			{name: "valid token", header: func(h *harness) map[string]string { return bearer(h.token(t)) }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				// Arrange
				h := newHarness(t)
				header := tt.header(h)
				h.events.Drain()

				// Act
				w := h.do(http.MethodGet, "/data/weather", "", header)

				// Assert
				assert.Equal(t, http.StatusNotFound, w.Code)
				assert.JSONEq(t, `{"error":"The requested data resource does not exist."}`, w.Body.String())
				_, inputs := h.opa.snapshot()
				assert.Empty(t, inputs)
				assert.Equal(t, int32(0), h.backendHits.Load())
				for _, e := range h.events.Drain() {
					assert.NotEqual(t, "JWT is valid.", e.Message)
					assert.NotEqual(t, "Invalid JWT provided.", e.Message)
				}
			})
		}
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		w := h.do(http.MethodGet, "/data/airquality", "", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Unauthorized: Missing or invalid token"}`, w.Body.String())
	})

	t.Run("wrong scheme", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		w := h.do(http.MethodGet, "/data/airquality", "", map[string]string{"Authorization": "Basic abc"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Unauthorized: Missing or invalid token"}`, w.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		w := h.do(http.MethodGet, "/data/airquality", "", bearer("abc.def.ghi"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		_, inputs := h.opa.snapshot()
		assert.JSONEq(t, `{"error":"Unauthorized: Invalid token"}`, w.Body.String())
		assert.Empty(t, inputs)
	})

	t.Run("denied", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.opa.set(func(f *fakeOPA) { f.result = `{"result":false}` })
		token := h.token(t)
		w := h.do(http.MethodGet, "/data/airquality", "", bearer(token))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"error":"Access Denied","reason":"ODRL Policy constraints not met."}`, w.Body.String())
		assert.Equal(t, int32(0), h.backendHits.Load())
	})

	t.Run("undefined decision denies", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.opa.set(func(f *fakeOPA) { f.result = `{}` })
		token := h.token(t)
		w := h.do(http.MethodGet, "/data/airquality", "", bearer(token))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("pdp failure", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.opa.set(func(f *fakeOPA) { f.failData = true })
		token := h.token(t)
		w := h.do(http.MethodGet, "/data/airquality", "", bearer(token))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Internal System Error"}`, w.Body.String())
	})

	t.Run("backend failure", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		token := h.token(t)
		w := h.do(http.MethodGet, "/data/traffic", "", bearer(token))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Internal System Error"}`, w.Body.String())
	})

	t.Run("configured prefix moves the route", func(t *testing.T) {
		t.Parallel()

		// Arrange
		h := newHarness(t, func(c *Config) { c.DataPrefix = "/api/v1/" })
		token := h.token(t)

		// Act
		moved := h.do(http.MethodGet, "/api/v1/airquality", "", bearer(token))
		old := h.do(http.MethodGet, "/data/airquality", "", bearer(token))

		// Assert
		assert.Equal(t, http.StatusOK, moved.Code)
		assert.Equal(t, airQuality, moved.Body.String())
		assert.Equal(t, http.StatusNotFound, old.Code)
		_, inputs := h.opa.snapshot()
		require.Len(t, inputs, 1)
		assert.Equal(t, "/api/v1/airquality", inputs[0]["path"])
		assert.Equal(t, int32(1), h.backendHits.Load())
	})
}

func TestDataRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "/data/:resourceName"},
		{prefix: "/data/", want: "/data/:resourceName"},
		{prefix: "/api/v1/", want: "/api/v1/:resourceName"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, dataRoute(tt.prefix))
		})
	}
}

func TestLogs_Drain(t *testing.T) {
	t.Parallel()

	// Arrange
	h := newHarness(t)
	h.do(http.MethodGet, "/data/weather", "", nil)

	// Act
	first := h.do(http.MethodGet, "/logs", "", nil)
	second := h.do(http.MethodGet, "/logs", "", nil)

	// Assert
	var events []eventlog.Event
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "Received request for protected data: /data/weather", events[0].Message)
	assert.Equal(t, eventlog.ClassSend, events[0].StatusClass)
	assert.Equal(t, `Requested resource "weather" does not exist.`, events[1].Message)
	assert.Equal(t, eventlog.ClassFail, events[1].StatusClass)
	assert.JSONEq(t, `[]`, second.Body.String())
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	w := h.do(http.MethodOptions, "/auth/token", "", map[string]string{"Origin": "http://dashboard"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	for _, path := range []string{"/health", "/live", "/ready"} {
		w := h.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	metrics := h.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "test_http_requests_total")
}

func TestTokenRateLimit(t *testing.T) {
	t.Parallel()

	// Arrange
	rl := middleware.NewRateLimiter(0.01, 1)
	defer rl.Stop()
	h := newHarness(t, func(c *Config) { c.TokenRateLimit = rl })
	body := `{"credentials":[{"presentedAttributes":{"role":"r","jurisdiction":"j"}}]}`

	// Act
	first := h.do(http.MethodPost, "/auth/token", body, nil)
	second := h.do(http.MethodPost, "/auth/token", body, nil)

	// Assert
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestServer_StartStop(t *testing.T) {
	t.Parallel()

	// Arrange
	h := newHarness(t)
	addr, err := h.server.Listen()
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- h.server.Start() }()

	// Act
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr.String() + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.server.Stop(ctx))

	// Assert
	assert.NoError(t, <-errCh)
	assert.False(t, h.server.IsRunning())
}

func TestRequestBodyLimit(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(c *Config) { c.MaxBodyBytes = 16 })
	big := bytes.Repeat([]byte("a"), 64)
	w := h.do(http.MethodPost, "/policies", `{"uid":"`+string(big)+`"}`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
