package auth

import (
	"errors"
	"net/http"

	"logapi/internal/common"
	"logapi/internal/user"

	"github.com/gin-gonic/gin"
)

// UserContextKey 当前用户在 gin 上下文中的键
const UserContextKey = "current_user"

// AuthMiddleware Bearer 令牌认证中间件
func AuthMiddleware(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractTokenFromBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			common.Fail(c, http.StatusUnauthorized, common.MsgInvalidToken)
			return
		}

		u, err := svc.CurrentUser(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, ErrInvalidOrExpiredToken) {
				c.Header("WWW-Authenticate", "Bearer")
				common.Fail(c, http.StatusUnauthorized, common.MsgInvalidToken)
				return
			}
			common.InternalError(c, err)
			return
		}

		c.Set(UserContextKey, u)
		c.Next()
	}
}

// CurrentUser 获取中间件写入的用户
func CurrentUser(c *gin.Context) (*user.User, bool) {
	v, ok := c.Get(UserContextKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok
}
