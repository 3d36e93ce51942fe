// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"hakawati-story-api/internal/application/profile"
	"hakawati-story-api/internal/application/story/narrative"
	"hakawati-story-api/internal/application/story/playback"
	"hakawati-story-api/internal/application/story/request"
	"hakawati-story-api/internal/application/story/session"
	"hakawati-story-api/internal/interfaces/http/dto"
	apperrors "hakawati-story-api/pkg/errors"
	"hakawati-story-api/pkg/logger"
)

// toAppError 将应用层错误映射为带 HTTP 状态的 AppError，issues 为可展示的校验明细
func toAppError(err error) (*apperrors.AppError, []string) {
	var (
		validation request.ValidationError
		configErr  *narrative.ConfigurationError
		contract   *narrative.ContractError
		backend    *narrative.BackendError
		transition *playback.TransitionError
	)

	switch {
	case errors.As(err, &validation):
		return apperrors.ErrValidationFailed.WithError(err), validation.Issues
	case errors.As(err, &configErr):
		return apperrors.ErrConfiguration.WithDetail(configErr.Reason), nil
	case errors.As(err, &contract):
		return apperrors.ErrGenerationContract.WithError(err), contract.Issues
	case errors.As(err, &backend):
		return apperrors.ErrLLMCallFailed.WithError(err), nil
	case errors.As(err, &transition):
		return apperrors.ErrInvalidTransition.WithDetail(transition.Reason), nil
	case errors.Is(err, session.ErrNotFound):
		return apperrors.ErrSessionNotFound, nil
	case errors.Is(err, session.ErrPageOutOfRange):
		return apperrors.ErrPageNotFound, nil
	case errors.Is(err, profile.ErrDisplayNameUnsupported):
		return apperrors.ErrNotImplemented.WithDetail(err.Error()), nil
	case errors.Is(err, profile.ErrEmptyDisplayName):
		return apperrors.ErrInvalidParam.WithDetail(err.Error()), nil
	case apperrors.IsAppError(err):
		return apperrors.AsAppError(err), nil
	}
	return apperrors.ErrInternalError.WithError(err), nil
}

// writeError 输出错误响应；5xx 记录错误日志
func writeError(c *gin.Context, err error) {
	appErr, issues := toAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), "request failed", err, "code", string(appErr.Code))
	}

	detail := &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
		Issues:    issues,
	}
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, detail)
}
