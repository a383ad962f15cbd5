package logs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"logapi/internal/common"
	"logapi/internal/logentry"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLogDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:logs_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&logentry.Log{}))
	return db
}

func setupLogRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(logentry.NewService(logentry.NewRepository(setupLogDB(t))))
	r := gin.New()
	r.POST("/logs", h.Create)
	r.GET("/logs", h.List)
	r.GET("/logs/aggregate/by/:field", h.Aggregate)
	r.GET("/logs/:id", h.Get)
	r.PATCH("/logs/:id", h.Update)
	r.DELETE("/logs/:id", h.Delete)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	var resp common.Envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	return *resp.Data
}

func createLog(t *testing.T, r *gin.Engine, severity, source, message string) *logentry.Log {
	t.Helper()
	body := fmt.Sprintf(`{"severity":%q,"source":%q,"message":%q}`, severity, source, message)
	return decode[LogData](t, do(r, http.MethodPost, "/logs", body), http.StatusCreated).Log
}

func TestHandler_CreateUsesServerTimestamp(t *testing.T) {
	r := setupLogRouter(t)
	before := time.Now().UTC().Truncate(time.Second)

	w := do(r, http.MethodPost, "/logs",
		`{"severity":"INFO","source":"api","message":"hello","timestamp":"2000-01-01T00:00:00Z"}`)
	created := decode[LogData](t, w, http.StatusCreated).Log
	assert.False(t, created.Timestamp.Before(before), "时间戳由服务端生成")

	got := decode[LogData](t, do(r, http.MethodGet, fmt.Sprintf("/logs/%d", created.ID), ""), http.StatusOK).Log
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "hello", got.Message)
	assert.False(t, got.Timestamp.Before(before))
	assert.True(t, created.Timestamp.Equal(got.Timestamp), "创建响应与查询结果的时间戳应一致")
	assert.Zero(t, created.Timestamp.Nanosecond()%int(time.Microsecond), "时间戳精度为微秒")
}

func TestHandler_CreateValidation(t *testing.T) {
	r := setupLogRouter(t)

	for _, body := range []string{
		`{"source":"api","message":"m"}`,
		`{"severity":"","source":"api","message":"m"}`,
		fmt.Sprintf(`{"severity":"INFO","source":"api","message":%q}`, strings.Repeat("x", 1001)),
	} {
		assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodPost, "/logs", body).Code, body)
	}

	// 只含空白的字段与 PATCH 一样被拒绝
	w := do(r, http.MethodPost, "/logs", `{"severity":"INFO","source":"   ","message":"m"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp common.Envelope[common.ValidationErrors]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "source", resp.Data.Errors[0].Field)
}

func TestHandler_ListNamesInvalidNumericParam(t *testing.T) {
	r := setupLogRouter(t)

	w := do(r, http.MethodGet, "/logs?severity=INFO&limit=abc", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp common.Envelope[common.ValidationErrors]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, "limit", resp.Data.Errors[0].Field)
}

func TestHandler_LargeIDIsNotFound(t *testing.T) {
	r := setupLogRouter(t)

	w := do(r, http.MethodGet, "/logs/4294967297", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Log not found","data":null}`, w.Body.String())
}

func TestHandler_ListFiltersAndPaging(t *testing.T) {
	r := setupLogRouter(t)
	for i := 0; i < 3; i++ {
		createLog(t, r, "ERROR", "db", fmt.Sprintf("error %d", i))
	}
	createLog(t, r, "INFO", "api", "info")

	errLogs := decode[LogListData](t, do(r, http.MethodGet, "/logs?severity=ERROR", ""), http.StatusOK)
	assert.EqualValues(t, 3, errLogs.Total)
	require.Len(t, errLogs.Logs, 3)
	for _, l := range errLogs.Logs {
		assert.Equal(t, "ERROR", l.Severity)
	}

	// limit=1 逐页遍历应与整页结果顺序一致
	for offset, want := range errLogs.Logs {
		page := decode[LogListData](t, do(r, http.MethodGet, fmt.Sprintf("/logs?severity=ERROR&limit=1&offset=%d", offset), ""), http.StatusOK)
		require.Len(t, page.Logs, 1)
		assert.Equal(t, want.ID, page.Logs[0].ID)
		assert.Equal(t, 1, page.Limit)
		assert.Equal(t, offset, page.Offset)
	}
	for i := 1; i < len(errLogs.Logs); i++ {
		assert.False(t, errLogs.Logs[i].Timestamp.After(errLogs.Logs[i-1].Timestamp), "按时间倒序")
	}

	future := url.QueryEscape(time.Now().UTC().Add(time.Hour).Format(time.RFC3339))
	none := decode[LogListData](t, do(r, http.MethodGet, "/logs?start="+future, ""), http.StatusOK)
	assert.EqualValues(t, 0, none.Total)
	assert.Empty(t, none.Logs)

	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodGet, "/logs?start=bad", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity,
		do(r, http.MethodGet, "/logs?start=2024-02-01T00:00:00&end=2024-01-01T00:00:00", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodGet, "/logs?limit=1001", "").Code)
}

func TestHandler_PatchAndDelete(t *testing.T) {
	r := setupLogRouter(t)
	created := createLog(t, r, "WARN", "auth", "original")

	path := fmt.Sprintf("/logs/%d", created.ID)
	patched := decode[LogData](t, do(r, http.MethodPatch, path, `{"message":"changed"}`), http.StatusOK).Log
	assert.Equal(t, "changed", patched.Message)
	assert.Equal(t, "WARN", patched.Severity)
	assert.Equal(t, "auth", patched.Source)
	assert.WithinDuration(t, created.Timestamp, patched.Timestamp, time.Millisecond)

	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodPatch, path, `{"source":"   "}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPatch, "/logs/999", `{"message":"x"}`).Code)

	w := do(r, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), MsgLogDeleted)

	w = do(r, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp common.NoData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, MsgLogNotFound, resp.Message)
	assert.Nil(t, resp.Data)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, path, "").Code)
}

func TestHandler_Aggregate(t *testing.T) {
	r := setupLogRouter(t)
	for _, sev := range []string{"INFO", "ERROR", "INFO", "WARN", "INFO", "ERROR"} {
		createLog(t, r, sev, "api", "m")
	}

	agg := decode[AggregationData](t, do(r, http.MethodGet, "/logs/aggregate/by/severity", ""), http.StatusOK).Aggregation
	assert.Equal(t, "severity", agg.By)
	require.Len(t, agg.Buckets, 3)
	assert.Equal(t, logentry.Bucket{Key: "INFO", Count: 3}, agg.Buckets[0])
	assert.Equal(t, logentry.Bucket{Key: "ERROR", Count: 2}, agg.Buckets[1])
	assert.Equal(t, logentry.Bucket{Key: "WARN", Count: 1}, agg.Buckets[2])

	var sum int64
	for _, b := range agg.Buckets {
		sum += b.Count
	}
	all := decode[LogListData](t, do(r, http.MethodGet, "/logs", ""), http.StatusOK)
	assert.Equal(t, all.Total, sum)

	w := do(r, http.MethodGet, "/logs/aggregate/by/message", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), MsgInvalidAggregate)
}
