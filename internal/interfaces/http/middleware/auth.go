// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hakawati-story-api/internal/infrastructure/identity"
	"hakawati-story-api/pkg/logger"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// Verifier 身份令牌校验器
	Verifier identity.Verifier
	// SkipPaths 跳过认证的路径前缀
	SkipPaths []string
	// Enabled 是否启用认证
	Enabled bool
}

// Auth 认证中间件：校验 Bearer 令牌并注入会话所有者
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		for _, path := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		if cfg.Verifier == nil {
			abortUnauthorized(c, "identity verifier not configured")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, "invalid authorization format")
			return
		}

		owner, err := cfg.Verifier.Verify(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, identity.ErrTokenExpired) {
				msg = "token expired"
			} else if !errors.Is(err, identity.ErrTokenInvalid) {
				logger.Warn(c.Request.Context(), "identity verification failed", "error", err.Error())
			}
			abortUnauthorized(c, msg)
			return
		}

		SetOwner(c, *owner)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":     401,
		"message":  msg,
		"trace_id": c.GetString("trace_id"),
	})
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}
