package handler

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"hakawati-story-api/internal/application/admin"
	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/interfaces/http/dto"
	"hakawati-story-api/pkg/logger"
)

// AdminService 管理端用例
type AdminService interface {
	Window(ctx context.Context, query string) ([]*entity.StoryRecord, error)
	Overview(ctx context.Context) (*admin.Overview, error)
	Users(ctx context.Context) ([]admin.UserSummary, error)
	Delete(ctx context.Context, ids []string) (int64, error)
	Subscribe(ctx context.Context, query string, fn func(*entity.StoryRecord) error) error
}

// AdminHandler 管理端处理器
type AdminHandler struct {
	admin AdminService
}

// NewAdminHandler 创建管理端处理器
func NewAdminHandler(svc AdminService) *AdminHandler {
	return &AdminHandler{admin: svc}
}

// Overview 统计概览
// @Summary 统计概览
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.Response[admin.Overview]
// @Router /v1/admin/overview [get]
func (h *AdminHandler) Overview(c *gin.Context) {
	overview, err := h.admin.Overview(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, overview)
}

// ListStories 最近故事（支持 q 搜索）
// @Summary 最近故事
// @Tags Admin
// @Produce json
// @Param q query string false "按孩子名、标题、邮箱搜索"
// @Success 200 {object} dto.ListResponse[entity.StoryRecord]
// @Router /v1/admin/stories [get]
func (h *AdminHandler) ListStories(c *gin.Context) {
	records, err := h.admin.Window(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	dto.SuccessWithTotal(c, records, len(records))
}

// ListUsers 用户汇总
// @Summary 用户汇总
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.ListResponse[admin.UserSummary]
// @Router /v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.admin.Users(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	dto.SuccessWithTotal(c, users, len(users))
}

// DeleteStories 批量删除
// @Summary 批量删除故事
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body dto.DeleteStoriesRequest true "记录 ID；为空时删除当前窗口"
// @Success 200 {object} dto.Response[dto.DeleteStoriesResponse]
// @Router /v1/admin/stories/delete [post]
func (h *AdminHandler) DeleteStories(c *gin.Context) {
	var req dto.DeleteStoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	n, err := h.admin.Delete(c.Request.Context(), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	logger.Info(c.Request.Context(), "admin deleted story records", "count", n, "requested", len(req.IDs))
	dto.Success(c, dto.DeleteStoriesResponse{Deleted: n})
}

// StreamStories 实时订阅：先推送快照，再推送新记录
// @Summary 实时订阅故事
// @Tags Admin
// @Produce text/event-stream
// @Param q query string false "过滤条件"
// @Success 200 "SSE stream"
// @Router /v1/admin/stories/stream [get]
func (h *AdminHandler) StreamStories(c *gin.Context) {
	ctx := c.Request.Context()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sent := 0
	err := h.admin.Subscribe(ctx, c.Query("q"), func(rec *entity.StoryRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.SSEvent("record", rec)
		c.Writer.Flush()
		sent++
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Error(ctx, "admin story stream ended", err, "sent", sent)
		c.SSEvent("error", gin.H{"message": "stream interrupted", "at": time.Now().UTC()})
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", gin.H{"sent": sent})
	c.Writer.Flush()
}
