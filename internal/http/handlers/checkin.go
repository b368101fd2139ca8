package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CheckInStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	st, err := h.CheckIns.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) CheckIn(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.CheckIns.CheckIn(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
