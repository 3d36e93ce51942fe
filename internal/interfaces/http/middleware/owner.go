package middleware

import (
	"github.com/gin-gonic/gin"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/pkg/logger"
)

const ownerKey = "owner"

// SetOwner 注入会话所有者到 gin 与日志上下文
func SetOwner(c *gin.Context, owner entity.Owner) {
	c.Set(ownerKey, owner)
	c.Set("user_id", owner.ID)
	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.UserIDKey, owner.ID))
}

// OwnerFromGin 读取当前所有者
func OwnerFromGin(c *gin.Context) (entity.Owner, bool) {
	v, ok := c.Get(ownerKey)
	if !ok {
		return entity.Owner{}, false
	}
	owner, ok := v.(entity.Owner)
	return owner, ok && owner.ID != ""
}

// GetUserIDFromGin 从 Gin Context 获取用户 ID
func GetUserIDFromGin(c *gin.Context) string {
	return c.GetString("user_id")
}
