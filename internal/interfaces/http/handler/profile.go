package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"hakawati-story-api/internal/application/profile"
	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/interfaces/http/dto"
	"hakawati-story-api/internal/interfaces/http/middleware"
)

// ProfileService 个人主页用例
type ProfileService interface {
	Stories(ctx context.Context, owner entity.Owner) ([]*entity.StoryRecord, error)
	Collection(ctx context.Context, owner entity.Owner) (*profile.Collection, error)
	UpdateDisplayName(ctx context.Context, owner entity.Owner, name string) error
}

// ProfileHandler 个人主页处理器
type ProfileHandler struct {
	profiles ProfileService
}

// NewProfileHandler 创建个人主页处理器
func NewProfileHandler(profiles ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// ListStories 我的故事
// @Summary 我的故事
// @Tags Profile
// @Produce json
// @Success 200 {object} dto.ListResponse[entity.StoryRecord]
// @Router /v1/me/stories [get]
func (h *ProfileHandler) ListStories(c *gin.Context) {
	owner, _ := middleware.OwnerFromGin(c)
	records, err := h.profiles.Stories(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	dto.SuccessWithTotal(c, records, len(records))
}

// GetCollection 徽章与谚语收藏
// @Summary 我的收藏
// @Tags Profile
// @Produce json
// @Success 200 {object} dto.Response[profile.Collection]
// @Router /v1/me/collection [get]
func (h *ProfileHandler) GetCollection(c *gin.Context) {
	owner, _ := middleware.OwnerFromGin(c)
	collection, err := h.profiles.Collection(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, collection)
}

// UpdateDisplayName 更新显示名
// @Summary 更新显示名
// @Tags Profile
// @Accept json
// @Produce json
// @Param body body dto.UpdateDisplayNameRequest true "显示名"
// @Success 200 {object} dto.Response[dto.DisplayNameResponse]
// @Failure 501 {object} dto.ErrorResponse
// @Router /v1/me/display-name [put]
func (h *ProfileHandler) UpdateDisplayName(c *gin.Context) {
	owner, _ := middleware.OwnerFromGin(c)

	var req dto.UpdateDisplayNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	name := strings.TrimSpace(req.DisplayName)
	if err := h.profiles.UpdateDisplayName(c.Request.Context(), owner, name); err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, dto.DisplayNameResponse{DisplayName: name})
}
