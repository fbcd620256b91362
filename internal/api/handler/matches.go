package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traderadar/backend/internal/radar"
	"traderadar/backend/internal/storage"
)

// Matches computes the caller's matches on the server from the same inputs
// the radar client would collect.
func (h *Handler) Matches(c *gin.Context) {
	userID := currentUser(c)
	view := storage.UserView{Store: h.Storage, UserID: userID, RadiusMeters: h.nearbyRadius}
	collector := &radar.Collector{
		UserID:    userID,
		Lists:     view,
		Pool:      view,
		Directory: view,
		Location:  view,
		Timeout:   h.callTimeout,
		Logger:    h.Logger,
	}

	in, err := collector.Collect(c.Request.Context())
	if err != nil {
		h.fail(c, "compute matches", err)
		return
	}
	c.JSON(http.StatusOK, in.Matches())
}
