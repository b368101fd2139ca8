package handlers

import (
	"net/http"

	"telegram_rewards/internal/game"

	"github.com/gin-gonic/gin"
)

type FarmingRequest struct {
	Action string `json:"action" binding:"required,oneof=start claim"`
}

type farmingView struct {
	game.FarmingStatus
	ElapsedMinutes int64 `json:"elapsed_minutes"`
	RemainingMs    int64 `json:"remaining_ms"`
}

func viewFarming(st game.FarmingStatus) farmingView {
	return farmingView{
		FarmingStatus:  st,
		ElapsedMinutes: int64(st.Elapsed.Minutes()),
		RemainingMs:    st.Remaining.Milliseconds(),
	}
}

func (h *Handler) FarmingStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	st, err := h.Farming.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewFarming(st))
}

// FarmingAction dispatches {"action":"start"|"claim"}.
func (h *Handler) FarmingAction(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req FarmingRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if req.Action == "start" {
		st, err := h.Farming.Start(ctx, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, viewFarming(st))
		return
	}

	res, err := h.Farming.Claim(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
