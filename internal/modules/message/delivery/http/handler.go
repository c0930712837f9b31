package handler

import (
	"net/http"

	"anoa.com/polychat/internal/modules/message/dto"
	message "anoa.com/polychat/internal/modules/message/service"
	"anoa.com/polychat/pkg/response"
	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageService message.Service
}

func NewMessageHandler(messageService message.Service) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

func (h *MessageHandler) Send(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.messageService.Send(c.Request.Context(), userID, c.Param("channel_id"), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *MessageHandler) History(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.messageService.History(c.Request.Context(), userID, c.Param("channel_id"), query.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *MessageHandler) ResetAI(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.messageService.ResetAI(c.Request.Context(), userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) RegisterRoutes(channels gin.IRouter) {
	channels.DELETE("/ai/messages", h.ResetAI)
	channels.POST("/:channel_id/messages", h.Send)
	channels.GET("/:channel_id/messages", h.History)
}
