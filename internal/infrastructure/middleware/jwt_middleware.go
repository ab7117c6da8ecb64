package middleware

import (
	"errors"
	"net/http"
	"strings"

	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// ProfileKey 认证通过后写入上下文的 profile id
const ProfileKey = "profile_id"

// JWTAuth 认证中间件
// 校验 Bearer Token 并将 profile id 存入上下文
func JWTAuth(verifier identity.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "请先登录",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "Token 格式错误，请使用 Bearer Token",
			})
			return
		}

		profile, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			var codeErr *errorx.CodeError
			if errors.As(err, &codeErr) && codeErr.Kind() != errorx.KindUnauthorized {
				// 镜像同步失败等内部错误
				c.AbortWithStatusJSON(http.StatusOK, gin.H{
					"code": errorx.CodeServerBusy,
					"msg":  errorx.ErrServerBusy.Msg,
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "Token 已过期或无效，请重新登录",
			})
			return
		}

		c.Set(ProfileKey, profile.Uuid)
		c.Next()
	}
}
