package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"traderadar/backend/internal/config"
	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/storage"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// fail maps an error to a status code and a localized message:
// Validation 400, not found 404, Conflict 409, Permanent 502, Transient 503.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		h.abort(c, http.StatusNotFound, "not_found", "session.not_found")
		return
	}

	kind := failure.KindOf(err)
	key := config.NotificationKeys[kind.String()]
	switch kind {
	case failure.Validation:
		h.Logger.Debug("request rejected", zap.String("op", op), zap.Error(err))
		h.abort(c, http.StatusBadRequest, kind.String(), key)
	case failure.Conflict:
		h.Logger.Info("request conflicted", zap.String("op", op), zap.Error(err))
		h.abort(c, http.StatusConflict, kind.String(), key)
	case failure.Permanent:
		h.Logger.Error("upstream failure", zap.String("op", op), zap.Error(err))
		h.abort(c, http.StatusBadGateway, kind.String(), key)
	case failure.Transient:
		h.Logger.Warn("transient failure", zap.String("op", op), zap.Error(err))
		h.abort(c, http.StatusServiceUnavailable, kind.String(), key)
	default:
		h.Logger.Error("internal_error", zap.String("op", op), zap.Error(err))
		h.abort(c, http.StatusInternalServerError, "internal_server_error", "internal")
	}
}

func (h *Handler) abort(c *gin.Context, status int, code, key string) {
	c.AbortWithStatusJSON(status, apiError{Code: code, Message: h.message(c, key)})
}

func (h *Handler) message(c *gin.Context, key string) string {
	if h.Localizer == nil {
		return key
	}
	lang := h.Localizer.Language(c.GetHeader("Accept-Language"))
	return h.Localizer.GetString(lang, key)
}
