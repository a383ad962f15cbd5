package user

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"logapi/internal/auth"
	"logapi/internal/common"
	"logapi/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupUserRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:user_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}))

	users := user.NewService(user.NewRepository(db))
	tokens, err := auth.NewJWTService("test-secret", "HS256", "", time.Minute)
	require.NoError(t, err)
	accounts := auth.NewService(users, &auth.BcryptHasher{Cost: bcrypt.MinCost}, tokens)

	h := NewHandler(users, accounts)
	r := gin.New()
	r.POST("/users", h.Create)
	r.GET("/users", h.List)
	r.GET("/users/:id", h.Get)
	r.PATCH("/users/:id", h.Update)
	r.DELETE("/users/:id", h.Delete)
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

func createUser(t *testing.T, r *gin.Engine, username string) *user.User {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"Password1","name":"N","email":"%s@example.com"}`, username, username)
	w := do(r, http.MethodPost, "/users", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp common.Envelope[UserData]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, MsgUserCreated, resp.Message)
	return resp.Data.User
}

func TestHandler_CRUD(t *testing.T) {
	r := setupUserRouter(t)
	created := createUser(t, r, "alice")

	w := do(r, http.MethodGet, fmt.Sprintf("/users/%d", created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got common.Envelope[UserData]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, MsgUserFetched, got.Message)
	assert.Equal(t, "alice", got.Data.User.Username)

	w = do(r, http.MethodPatch, fmt.Sprintf("/users/%d", created.ID), `{"is_admin":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated common.Envelope[UserData]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, MsgUserUpdated, updated.Message)
	assert.True(t, updated.Data.User.IsAdmin)
	assert.Equal(t, "N", *updated.Data.User.Name, "未提供的字段保持不变")
	assert.Equal(t, "alice@example.com", *updated.Data.User.Email)

	w = do(r, http.MethodDelete, fmt.Sprintf("/users/%d", created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	var deleted common.NoData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deleted))
	assert.Equal(t, MsgUserDeleted, deleted.Message)
	assert.Nil(t, deleted.Data)

	w = do(r, http.MethodGet, fmt.Sprintf("/users/%d", created.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), MsgUserNotFound)
}

func TestHandler_NotFoundAndConflict(t *testing.T) {
	r := setupUserRouter(t)
	createUser(t, r, "bob")

	w := do(r, http.MethodPost, "/users", `{"username":"bob","password":"Password1","email":"b@example.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPatch, "/users/999", `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/users/999", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodGet, "/users/abc", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodPatch, "/users/1", `{"email":"bad"}`).Code)
}

func TestHandler_List(t *testing.T) {
	r := setupUserRouter(t)
	alice := createUser(t, r, "alice")
	createUser(t, r, "alfred")
	createUser(t, r, "carol")

	require.Equal(t, http.StatusOK,
		do(r, http.MethodPatch, fmt.Sprintf("/users/%d", alice.ID), `{"is_active":false}`).Code)

	decode := func(w *httptest.ResponseRecorder) UserListData {
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp common.Envelope[UserListData]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, MsgUsersFetched, resp.Message)
		return *resp.Data
	}

	all := decode(do(r, http.MethodGet, "/users", ""))
	assert.EqualValues(t, 3, all.Total)
	assert.Equal(t, 100, all.Limit)
	assert.Equal(t, 0, all.Offset)

	search := decode(do(r, http.MethodGet, "/users?search=AL", ""))
	assert.EqualValues(t, 2, search.Total)

	active := decode(do(r, http.MethodGet, "/users?status=true&limit=1&offset=1", ""))
	assert.EqualValues(t, 2, active.Total)
	require.Len(t, active.Users, 1)
	assert.Equal(t, "carol", active.Users[0].Username)

	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodGet, "/users?limit=0", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodGet, "/users?limit=1001", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodGet, "/users?offset=-1", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodGet, "/users?status=maybe", "").Code)
}
