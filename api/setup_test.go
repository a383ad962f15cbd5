package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"logapi/internal/common"
	"logapi/internal/config"
	"logapi/internal/export"
	"logapi/internal/infra"
	"logapi/internal/infra/queue"
	"logapi/internal/logentry"
	"logapi/internal/logger"
	"logapi/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type stubQueue struct {
	jobs map[string]*queue.JobInfo
}

func (q *stubQueue) EnqueueExport(_ context.Context, _ logentry.Filter) (string, error) {
	id := fmt.Sprintf("job-%d", len(q.jobs)+1)
	q.jobs[id] = &queue.JobInfo{ID: id, Status: queue.StatusPending}
	return id, nil
}

func (q *stubQueue) ExportStatus(_ context.Context, jobID string) (*queue.JobInfo, error) {
	if job, ok := q.jobs[jobID]; ok {
		return job, nil
	}
	return nil, queue.ErrJobNotFound
}

func (q *stubQueue) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{APIPrefix: "/api/v1", ProjectName: "Log API", Version: "1.0.0"},
		Auth:   config.AuthConfig{SecretKey: "router-secret", Algorithm: "HS256", AccessTokenExpireMinutes: 30},
		Export: config.ExportConfig{PageSize: 1000},
		RateLimit: config.RateLimitConfig{
			LoginPerMinute: 1,
			Burst:          2,
		},
	}
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return setupTestRouterWithConfig(t, testConfig())
}

func setupTestRouterWithConfig(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Set(zaptest.NewLogger(t))
	t.Cleanup(func() { logger.Set(nil) })

	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), infra.NewGormConfig(&cfg.Database))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}, &logentry.Log{}))

	container, err := InitContainer(cfg, Infra{
		DB:          db,
		ExportQueue: &stubQueue{jobs: map[string]*queue.JobInfo{}},
		Store:       export.NewLocalStore(t.TempDir()),
	})
	require.NoError(t, err)
	t.Cleanup(container.Close)

	return SetupRouter(container)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSystemEndpoints(t *testing.T) {
	r := setupTestRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var info ServiceInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "Log API", info.Message)
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "/api/v1/logs", info.Endpoints["logs"])

	w = serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"log-api"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "connected", ready.Checks["database"])

	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUnknownEndpoints(t *testing.T) {
	r := setupTestRouter(t)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil),
		httptest.NewRequest(http.MethodPut, "/api/v1/logs/1", nil),
	} {
		w := serve(r, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp common.NoData
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, common.MsgEndpointNotFound, resp.Message)
		assert.Nil(t, resp.Data)
	}
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger.Set(zaptest.NewLogger(t))
	t.Cleanup(func() { logger.Set(nil) })

	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Internal server error","data":null}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	r := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/logs", nil)
	req.Header.Set("Origin", "http://example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{
		AllowOrigins: []string{"https://app.example.com"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		AllowMethods: []string{"GET", "POST"},
	}
	r := setupTestRouterWithConfig(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/logs", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/logs", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), "未配置的来源不应放行")
}

func TestAuthFlowThroughRouter(t *testing.T) {
	r := setupTestRouter(t)

	body := `{"username":"alice","password":"Secret123","name":"Alice","email":"alice@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusConflict, serve(r, req).Code)

	loginReq := func(password string) *http.Request {
		form := url.Values{"username": {"alice"}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}

	w := serve(r, loginReq("Secret123"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Data struct {
			Token struct {
				AccessToken string `json:"access_token"`
				TokenType   string `json:"token_type"`
			} `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "bearer", login.Data.Token.TokenType)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+login.Data.Token.AccessToken)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"last_login":"`)

	// 突发容量为 2，第三次登录被限流
	serve(r, loginReq("wrong"))
	w = serve(r, loginReq("Secret123"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), common.MsgTooManyRequests)
}

func TestLogRoutesThroughRouter(t *testing.T) {
	r := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/logs",
		strings.NewReader(`{"severity":"ERROR","source":"db","message":"down"}`))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, serve(r, req).Code)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/logs/aggregate/by/source", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `{"key":"db","count":1}`)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/logs/export?severity=ERROR", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var job common.Envelope[struct {
		JobID string `json:"job_id"`
	}]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	require.NotEmpty(t, job.Data.JobID)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/logs/export/"+job.Data.JobID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
	assert.Contains(t, w.Body.String(), "Export pending")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/logs/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
