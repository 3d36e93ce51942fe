package router

import (
	"github.com/gin-gonic/gin"

	"hakawati-story-api/internal/interfaces/http/middleware"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers, generationLimit gin.HandlerFunc) {
	// 故事预设
	v1.GET("/stories/presets", h.Story.Presets)

	// 故事会话
	sessions := v1.Group("/sessions", middleware.RequireOwner())
	{
		sessions.POST("", generationLimit, h.Story.CreateSession)
		sessions.GET("/:sid", h.Story.GetSession)
		sessions.DELETE("/:sid", h.Story.ResetSession)
		sessions.POST("/:sid/events", h.Story.DispatchEvent)
		sessions.GET("/:sid/pages/:idx/image", h.Story.GetImage)
		sessions.POST("/:sid/audio", h.Story.ToggleAudio)
		sessions.GET("/:sid/audio", h.Story.GetAudio)
		sessions.POST("/:sid/audio/ended", h.Story.AudioEnded)
	}

	// 个人主页
	me := v1.Group("/me", middleware.RequireOwner())
	{
		me.GET("/stories", h.Profile.ListStories)
		me.GET("/collection", h.Profile.GetCollection)
		me.PUT("/display-name", h.Profile.UpdateDisplayName)
	}

	// 管理端
	admin := v1.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/overview", h.Admin.Overview)
		admin.GET("/users", h.Admin.ListUsers)
		admin.GET("/stories", h.Admin.ListStories)
		admin.GET("/stories/stream", h.Admin.StreamStories)
		admin.POST("/stories/delete", h.Admin.DeleteStories)
	}
}
