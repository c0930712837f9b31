package handler

import (
	"net/http"

	"anoa.com/polychat/internal/modules/vocab/dto"
	vocab "anoa.com/polychat/internal/modules/vocab/service"
	"anoa.com/polychat/pkg/apperror"
	"anoa.com/polychat/pkg/response"
	"github.com/gin-gonic/gin"
)

type VocabHandler struct {
	vocabService vocab.Service
}

func NewVocabHandler(vocabService vocab.Service) *VocabHandler {
	return &VocabHandler{
		vocabService: vocabService,
	}
}

func (h *VocabHandler) Lookup(c *gin.Context) {
	var req dto.LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.vocabService.Lookup(c.Request.Context(), req.Text)
	if err != nil {
		if res != nil {
			c.JSON(apperror.MapErrorToStatus(err), res)
			return
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *VocabHandler) Save(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	entry, err := h.vocabService.Save(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *VocabHandler) List(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	entries, err := h.vocabService.List(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{Data: entries})
}

func (h *VocabHandler) Delete(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.vocabService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *VocabHandler) RegisterRoutes(vocabGroup gin.IRouter) {
	vocabGroup.POST("/lookup", h.Lookup)
	vocabGroup.POST("", h.Save)
	vocabGroup.GET("", h.List)
	vocabGroup.DELETE("/:id", h.Delete)
}
