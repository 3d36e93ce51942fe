package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hakawati-story-api/internal/application/story/asset"
	"hakawati-story-api/internal/application/story/playback"
	"hakawati-story-api/internal/application/story/request"
	"hakawati-story-api/internal/application/story/session"
	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/interfaces/http/dto"
	"hakawati-story-api/internal/interfaces/http/middleware"
)

// SessionService 阅读会话用例
type SessionService interface {
	Start(ctx context.Context, owner entity.Owner, raw request.RawInput) (session.View, error)
	View(ownerID, id string) (session.View, error)
	Dispatch(ctx context.Context, ownerID, id string, ev playback.Event) (session.View, error)
	Image(ctx context.Context, ownerID, id string, idx int) (asset.ImageResult, error)
	ToggleAudio(ctx context.Context, ownerID, id string) (session.AudioView, error)
	Audio(ownerID, id string) (asset.Waveform, bool, error)
	AudioEnded(ownerID, id string) (session.AudioView, error)
	Reset(ownerID, id string) error
}

// StoryHandler 故事会话处理器
type StoryHandler struct {
	sessions SessionService
	builder  *request.Builder
}

// NewStoryHandler 创建故事会话处理器
func NewStoryHandler(sessions SessionService, builder *request.Builder) *StoryHandler {
	return &StoryHandler{sessions: sessions, builder: builder}
}

// Presets 获取表单预设
// @Summary 获取表单预设
// @Tags Stories
// @Produce json
// @Success 200 {object} dto.Response[dto.PresetsResponse]
// @Router /v1/stories/presets [get]
func (h *StoryHandler) Presets(c *gin.Context) {
	lengths := []entity.Length{entity.LengthShort, entity.LengthMedium, entity.LengthLong}
	resp := dto.PresetsResponse{
		Morals:     entity.MoralPresets(),
		Sidekicks:  entity.SidekickPresets(),
		Worlds:     entity.WorldPresets(),
		Lengths:    make([]dto.LengthOption, 0, len(lengths)),
		AgeMin:     entity.MinAge,
		AgeMax:     entity.MaxAge,
		DefaultAge: entity.DefaultAge,
	}
	for _, l := range lengths {
		resp.Lengths = append(resp.Lengths, dto.LengthOption{ID: string(l), PageCount: h.builder.PageCount(l)})
	}
	dto.Success(c, resp)
}

// CreateSession 生成故事并开始阅读
// @Summary 开始新故事
// @Tags Sessions
// @Accept json
// @Produce json
// @Param body body dto.CreateSessionRequest true "故事参数"
// @Success 201 {object} dto.Response[session.View]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/sessions [post]
func (h *StoryHandler) CreateSession(c *gin.Context) {
	owner, _ := middleware.OwnerFromGin(c)

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	view, err := h.sessions.Start(c.Request.Context(), owner, req.ToRawInput())
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Created(c, view)
}

// GetSession 获取当前视图
// @Summary 获取会话视图
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[session.View]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid} [get]
func (h *StoryHandler) GetSession(c *gin.Context) {
	view, err := h.sessions.View(middleware.GetUserIDFromGin(c), c.Param("sid"))
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, view)
}

// DispatchEvent 投递播放事件
// @Summary 投递播放事件
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.EventRequest true "事件"
// @Success 200 {object} dto.Response[session.View]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/events [post]
func (h *StoryHandler) DispatchEvent(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	ev, ok := req.ToEvent()
	if !ok {
		dto.BadRequest(c, "unknown event type or missing option")
		return
	}

	view, err := h.sessions.Dispatch(c.Request.Context(), middleware.GetUserIDFromGin(c), c.Param("sid"), ev)
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, view)
}

// GetImage 解析页面插图；raw=true 时直接返回图片字节或重定向到图片地址
// @Summary 获取页面插图
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Param idx path int true "页码（0 起）"
// @Param raw query bool false "直接返回图片"
// @Success 200 {object} dto.Response[dto.ImageResponse]
// @Router /v1/sessions/{sid}/pages/{idx}/image [get]
func (h *StoryHandler) GetImage(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil {
		dto.BadRequest(c, "invalid page index")
		return
	}

	res, err := h.sessions.Image(c.Request.Context(), middleware.GetUserIDFromGin(c), c.Param("sid"), idx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("X-Image-Status", string(res.Status))

	if res.Status == asset.ImagePending {
		dto.Accepted(c, dto.ImageResponse{PageIndex: idx, Status: string(res.Status)})
		return
	}

	if raw, _ := strconv.ParseBool(c.Query("raw")); raw {
		if res.Ref.Inline() {
			c.Data(http.StatusOK, res.Ref.MIMEType, res.Ref.Data)
			return
		}
		c.Redirect(http.StatusFound, res.Ref.URL)
		return
	}

	dto.Success(c, dto.ImageResponse{
		PageIndex: idx,
		Status:    string(res.Status),
		URL:       res.Ref.URL,
		Inline:    res.Ref.Inline(),
		MIMEType:  res.Ref.MIMEType,
		Degraded:  res.Degraded(),
	})
}

// ToggleAudio 朗读或停止当前页
// @Summary 切换旁白
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[session.AudioView]
// @Router /v1/sessions/{sid}/audio [post]
func (h *StoryHandler) ToggleAudio(c *gin.Context) {
	view, err := h.sessions.ToggleAudio(c.Request.Context(), middleware.GetUserIDFromGin(c), c.Param("sid"))
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, view)
}

// GetAudio 获取当前旁白波形（float32 小端，单声道）
// @Summary 获取旁白波形
// @Tags Sessions
// @Produce application/octet-stream
// @Param sid path string true "会话 ID"
// @Success 200 "float32 LE samples"
// @Success 204 "no audio playing"
// @Router /v1/sessions/{sid}/audio [get]
func (h *StoryHandler) GetAudio(c *gin.Context) {
	w, ok, err := h.sessions.Audio(middleware.GetUserIDFromGin(c), c.Param("sid"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		dto.NoContent(c)
		return
	}

	c.Header("X-Sample-Rate", strconv.Itoa(w.SampleRate))
	c.Header("X-Audio-Duration-Ms", strconv.FormatInt(w.Duration().Milliseconds(), 10))
	c.Data(http.StatusOK, "application/octet-stream", asset.EncodeFloat32LE(w))
}

// AudioEnded 客户端报告旁白播放结束
// @Summary 旁白播放结束
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[session.AudioView]
// @Router /v1/sessions/{sid}/audio/ended [post]
func (h *StoryHandler) AudioEnded(c *gin.Context) {
	view, err := h.sessions.AudioEnded(middleware.GetUserIDFromGin(c), c.Param("sid"))
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, view)
}

// ResetSession 丢弃会话
// @Summary 结束会话
// @Tags Sessions
// @Param sid path string true "会话 ID"
// @Success 204
// @Router /v1/sessions/{sid} [delete]
func (h *StoryHandler) ResetSession(c *gin.Context) {
	if err := h.sessions.Reset(middleware.GetUserIDFromGin(c), c.Param("sid")); err != nil {
		writeError(c, err)
		return
	}
	dto.NoContent(c)
}
