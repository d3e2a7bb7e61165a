package staff

import (
	"errors"
	"strconv"
	"time"

	handlershared "github.com/lumipos/internal/http/handlers/shared"
	"github.com/lumipos/internal/http/response"
	"github.com/lumipos/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

// respondServiceError 将服务层错误映射为响应码
func respondServiceError(c *gin.Context, err error) {
	var transitionErr *service.InvalidTransitionError
	switch {
	case errors.As(err, &transitionErr):
		response.ErrorWithData(c, response.CodeBadRequest, transitionErr.Error(), gin.H{
			"from": transitionErr.From,
			"to":   transitionErr.To,
		})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrBusinessNotFound),
		errors.Is(err, service.ErrNotificationNotFound):
		respondError(c, response.CodeNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrOrderConflict):
		respondError(c, response.CodeConflict, err.Error(), nil)
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrUnknownChannel):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, "internal error", err)
	}
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
