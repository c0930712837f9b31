package handler

import (
	"net/http"

	"anoa.com/polychat/internal/modules/session/dto"
	session "anoa.com/polychat/internal/modules/session/service"
	"anoa.com/polychat/pkg/response"
	"github.com/gin-gonic/gin"
)

type ChannelHandler struct {
	hub *session.Hub
}

func NewChannelHandler(hub *session.Hub) *ChannelHandler {
	return &ChannelHandler{hub: hub}
}

func (h *ChannelHandler) List(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.hub.Session(c.Request.Context(), userID).Snapshot())
}

func (h *ChannelHandler) StartDM(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.StartDMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	snap, err := h.hub.Session(c.Request.Context(), userID).StartDM(c.Request.Context(), req.UserID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *ChannelHandler) Open(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	snap, err := h.hub.Session(c.Request.Context(), userID).Open(c.Request.Context(), c.Param("channel_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *ChannelHandler) Delete(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	snap, err := h.hub.Session(c.Request.Context(), userID).Delete(c.Request.Context(), c.Param("channel_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *ChannelHandler) RegisterRoutes(channels gin.IRouter) {
	channels.GET("", h.List)
	channels.POST("/dm", h.StartDM)
	channels.POST("/:channel_id/open", h.Open)
	channels.DELETE("/:channel_id", h.Delete)
}
