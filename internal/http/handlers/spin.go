package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Spin(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.Spins.Spin(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// WheelInfo returns the tier table and price; public.
func (h *Handler) WheelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.Spins.Wheel())
}

func (h *Handler) SpinHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	spins, err := h.Spins.History(c.Request.Context(), userID, listLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spins": spins})
}
