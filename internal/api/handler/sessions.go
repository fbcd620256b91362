package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traderadar/backend/internal/models"
	"traderadar/backend/internal/negotiation"
)

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// ListSessions повертає довідник сесій поточного користувача.
func (h *Handler) ListSessions(c *gin.Context) {
	userID := currentUser(c)
	sessions, err := h.Storage.GetSessionsForUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "list sessions", err)
		return
	}
	out := make([]models.SessionSummary, len(sessions))
	for i, s := range sessions {
		out[i] = s.Summary(userID)
	}
	c.JSON(http.StatusOK, out)
}

// OpenSession відкриває нову або повертає наявну сесію для матчу.
func (h *Handler) OpenSession(c *gin.Context) {
	var req negotiation.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, http.StatusBadRequest, "bad_request", "request.invalid")
		return
	}
	session, err := h.Storage.OpenSession(c.Request.Context(), currentUser(c), req)
	if err != nil {
		h.fail(c, "open session", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// participantSession loads the :id session and aborts with 404 unless the
// caller takes part in it.
func (h *Handler) participantSession(c *gin.Context) (*models.NegotiationSession, bool) {
	session, err := h.Storage.GetSessionByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "load session", err)
		return nil, false
	}
	if !session.Has(currentUser(c)) {
		h.abort(c, http.StatusNotFound, "not_found", "session.not_found")
		return nil, false
	}
	return session, true
}

// PollMessages повертає повну історію та авторитетний статус сесії.
func (h *Handler) PollMessages(c *gin.Context) {
	session, ok := h.participantSession(c)
	if !ok {
		return
	}
	history, err := h.Storage.GetMessages(c.Request.Context(), session.ID)
	if err != nil {
		h.fail(c, "poll messages", err)
		return
	}
	if history == nil {
		history = []models.MessageRecord{}
	}
	c.JSON(http.StatusOK, models.Snapshot{Status: session.Status, Messages: history})
}

func (h *Handler) SendMessage(c *gin.Context) {
	userID := currentUser(c)
	if !h.sends.Allow(userID) {
		h.abort(c, http.StatusTooManyRequests, "rate_limited", "rate.limited")
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, http.StatusBadRequest, "bad_request", "request.invalid")
		return
	}
	session, ok := h.participantSession(c)
	if !ok {
		return
	}
	msg, err := h.Storage.SaveMessage(c.Request.Context(), session.ID, userID, req.Content)
	if err != nil {
		h.fail(c, "send message", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) CompleteSession(c *gin.Context) {
	h.transition(c, models.StatusCompleted, "completed")
}

func (h *Handler) CancelSession(c *gin.Context) {
	var req cancelRequest
	// Тіло запиту необов'язкове.
	_ = c.ShouldBindJSON(&req)
	h.transition(c, models.StatusCancelled, req.Reason)
}

func (h *Handler) transition(c *gin.Context, to models.NegotiationStatus, reason string) {
	session, ok := h.participantSession(c)
	if !ok {
		return
	}
	if err := h.Storage.TransitionSession(c.Request.Context(), session.ID, to, reason); err != nil {
		h.fail(c, string(to)+" session", err)
		return
	}
	c.Status(http.StatusNoContent)
}
