package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traderadar/backend/internal/models"
)

type removeEntriesRequest struct {
	CardIDs []string `json:"card_ids" binding:"required"`
}

func (h *Handler) listKind(c *gin.Context) (models.ListKind, bool) {
	kind := models.ListKind(c.Param("kind"))
	if !kind.Valid() {
		h.abort(c, http.StatusBadRequest, "bad_request", "request.invalid")
		return "", false
	}
	return kind, true
}

// GetList повертає список поточного користувача.
func (h *Handler) GetList(c *gin.Context) {
	kind, ok := h.listKind(c)
	if !ok {
		return
	}
	h.respondList(c, currentUser(c), kind)
}

// GetUserList повертає список іншого користувача.
func (h *Handler) GetUserList(c *gin.Context) {
	kind, ok := h.listKind(c)
	if !ok {
		return
	}
	h.respondList(c, c.Param("id"), kind)
}

func (h *Handler) respondList(c *gin.Context, userID string, kind models.ListKind) {
	entries, err := h.Storage.GetList(c.Request.Context(), userID, kind)
	if err != nil {
		h.fail(c, "get list", err)
		return
	}
	if entries == nil {
		entries = []models.TradeListEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) AddListEntry(c *gin.Context) {
	kind, ok := h.listKind(c)
	if !ok {
		return
	}
	var entry models.TradeListEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		h.abort(c, http.StatusBadRequest, "bad_request", "request.invalid")
		return
	}
	if err := h.Storage.AddListEntry(c.Request.Context(), currentUser(c), kind, entry); err != nil {
		h.fail(c, "add list entry", err)
		return
	}
	c.Status(http.StatusCreated)
}

// RemoveEntries видаляє картки зі списку; 409, якщо хоча б однієї вже немає.
func (h *Handler) RemoveEntries(c *gin.Context) {
	kind, ok := h.listKind(c)
	if !ok {
		return
	}
	var req removeEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.CardIDs) == 0 {
		h.abort(c, http.StatusBadRequest, "bad_request", "request.invalid")
		return
	}
	if err := h.Storage.RemoveEntries(c.Request.Context(), currentUser(c), req.CardIDs, kind); err != nil {
		h.fail(c, "remove list entries", err)
		return
	}
	c.Status(http.StatusNoContent)
}
