package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/models"
)

func (h *Handler) SetLocation(c *gin.Context) {
	var coord geo.Coordinate
	if err := c.ShouldBindJSON(&coord); err != nil {
		h.abort(c, http.StatusBadRequest, "bad_request", "request.invalid")
		return
	}
	if err := h.Storage.SetLocation(c.Request.Context(), currentUser(c), coord); err != nil {
		h.fail(c, "set location", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetLocation(c *gin.Context) {
	coord, err := h.Storage.GetLocation(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, "get location", err)
		return
	}
	if coord == nil {
		h.abort(c, http.StatusNotFound, "not_found", "location.unknown")
		return
	}
	c.JSON(http.StatusOK, coord)
}

// StartScanning додає користувача до пулу кандидатів.
func (h *Handler) StartScanning(c *gin.Context) {
	if err := h.Storage.AddUserToScanning(c.Request.Context(), currentUser(c)); err != nil {
		h.fail(c, "start scanning", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) StopScanning(c *gin.Context) {
	if err := h.Storage.RemoveUserFromScanning(c.Request.Context(), currentUser(c)); err != nil {
		h.fail(c, "stop scanning", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Nearby(c *gin.Context) {
	profiles, err := h.Storage.FindNearbyUsers(c.Request.Context(), currentUser(c), h.nearbyRadius)
	if err != nil {
		h.fail(c, "nearby users", err)
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	c.JSON(http.StatusOK, profiles)
}
