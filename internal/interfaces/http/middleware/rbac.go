package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireOwner 要求已认证的所有者
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := OwnerFromGin(c); !ok {
			abortUnauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// RequireAdmin 管理员权限检查中间件
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := OwnerFromGin(c)
		if !ok {
			abortUnauthorized(c, "authentication required")
			return
		}
		if !owner.Admin {
			abortForbidden(c, "permission denied")
			return
		}
		c.Next()
	}
}

func abortForbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"code":     403,
		"message":  msg,
		"trace_id": c.GetString("trace_id"),
	})
}
