package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-echo-server/internal/api"
	"github.com/sirosfoundation/go-echo-server/pkg/config"
	"github.com/sirosfoundation/go-echo-server/pkg/envelope"
	"github.com/sirosfoundation/go-echo-server/pkg/middleware"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server = testServerConfig(0, 5*time.Second)
	return cfg
}

func startTestServer(t *testing.T, cfg *config.Config) (*Server, string) {
	t.Helper()

	srv, err := NewFromConfig(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		if srv.State() == StateListening {
			_ = srv.Shutdown(context.Background())
		}
	})

	return srv, "http://" + srv.Addr().String()
}

func send(t *testing.T, method, url, body string) (int, http.Header, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)

	resp, err := noKeepAliveClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header, string(data)
}

func TestNewFromConfig_EndToEnd(t *testing.T) {
	_, base := startTestServer(t, testConfig())

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"status", "GET", "/status", "", 200,
			`{"result":true,"code":0,"description":"Everything is OK!"}`},
		{"status trailing slash", "GET", "/status/", "", 200,
			`{"result":true,"code":0,"description":"Everything is OK!"}`},
		{"status double slash", "GET", "//status", "", 200,
			`{"result":true,"code":0,"description":"Everything is OK!"}`},
		{"get", "GET", "/data/v1/test", "", 200,
			`{"result":true,"code":0,"description":"You requested get method with name: test"}`},
		{"post", "POST", "/data/v1/test", `{"data":"test data"}`, 200,
			`{"result":true,"code":0,"description":"You requested post method with name: test, data is test data"}`},
		{"put", "PUT", "/data/v1/test", `{"data":"test data"}`, 200,
			`{"result":true,"code":0,"description":"You requested put method with name: test, data is test data"}`},
		{"delete", "DELETE", "/data/v1/test", `{"data":"test data"}`, 200,
			`{"result":true,"code":0,"description":"You requested delete method with name: test, data is test data"}`},
		{"unknown path", "GET", "/nope", "", 404, ""},
		{"unknown method", "PATCH", "/data/v1/test", `{"data":"x"}`, 404, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, header, body := send(t, tt.method, base+tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantBody, body)
			assert.NotEmpty(t, header.Get(middleware.RequestIDHeader))
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "application/json; charset=utf-8", header.Get("Content-Type"))
			}
		})
	}
}

func TestNewFromConfig_MalformedPayloadKeepsServing(t *testing.T) {
	srv, base := startTestServer(t, testConfig())

	status, _, body := send(t, "POST", base+"/data/v1/test", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, `"result":false`)
	assert.Contains(t, body, fmt.Sprintf(`"code":%d`, envelope.CodeInvalidPayload))

	// The server is unaffected
	status, _, _ = send(t, "GET", base+"/status", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, StateListening, srv.State())
}

func TestNewFromConfig_ConcurrentRequests(t *testing.T) {
	_, base := startTestServer(t, testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			name := fmt.Sprintf("name%d", i)
			var method, body, want string
			switch i % 3 {
			case 0:
				method = "GET"
				want = fmt.Sprintf(`{"result":true,"code":0,"description":"You requested get method with name: %s"}`, name)
			case 1:
				method, body = "POST", fmt.Sprintf(`{"data":"d%d"}`, i)
				want = fmt.Sprintf(`{"result":true,"code":0,"description":"You requested post method with name: %s, data is d%d"}`, name, i)
			default:
				method, body = "DELETE", fmt.Sprintf(`{"data":"d%d"}`, i)
				want = fmt.Sprintf(`{"result":true,"code":0,"description":"You requested delete method with name: %s, data is d%d"}`, name, i)
			}

			var reader io.Reader
			if body != "" {
				reader = strings.NewReader(body)
			}
			req, err := http.NewRequest(method, base+"/data/v1/"+name, reader)
			if err != nil {
				t.Error(err)
				return
			}
			resp, err := noKeepAliveClient().Do(req)
			if err != nil {
				t.Error(err)
				return
			}
			defer resp.Body.Close()
			got, _ := io.ReadAll(resp.Body)
			if string(got) != want {
				t.Errorf("request %d: got %s, want %s", i, got, want)
			}
		}(i)
	}
	wg.Wait()
}

func TestNewFromConfig_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, BurstSize: 2}
	srv, base := startTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		status, _, _ := send(t, "GET", base+"/status", "")
		assert.Equal(t, http.StatusOK, status)
	}

	status, header, body := send(t, "GET", base+"/status", "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.NotEmpty(t, header.Get("Retry-After"))
	assert.Equal(t, `{"result":false,"code":3,"description":"too many requests"}`, body)

	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestNewRouter_CORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"https://example.com"}

	handlers := api.NewHandlers(cfg, zap.NewNop())
	table, err := handlers.NewTable()
	require.NoError(t, err)
	engine := NewRouter(cfg, table, nil, zap.NewNop())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://example.com")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://evil.example")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNewRouter_NoCORSByDefault(t *testing.T) {
	cfg := testConfig()
	handlers := api.NewHandlers(cfg, zap.NewNop())
	table, err := handlers.NewTable()
	require.NoError(t, err)
	engine := NewRouter(cfg, table, nil, zap.NewNop())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://example.com")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_NilBody(t *testing.T) {
	cfg := testConfig()
	handlers := api.NewHandlers(cfg, zap.NewNop())
	table, err := handlers.NewTable()
	require.NoError(t, err)
	engine := NewRouter(cfg, table, nil, zap.NewNop())

	// A missing body on a mutation route is a client error
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/data/v1/x", nil)
	req.Body = nil
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewRouter_LeavesGinModeAlone(t *testing.T) {
	prev := gin.Mode()
	gin.SetMode(gin.TestMode)
	t.Cleanup(func() { gin.SetMode(prev) })

	cfg := testConfig()
	cfg.Logging.Level = "debug"
	handlers := api.NewHandlers(cfg, zap.NewNop())
	table, err := handlers.NewTable()
	require.NoError(t, err)

	NewRouter(cfg, table, nil, zap.NewNop())
	assert.Equal(t, gin.TestMode, gin.Mode())
}
