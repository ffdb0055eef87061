package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-transfer-api/internal/service"
	"github.com/noah-isme/sma-transfer-api/pkg/response"
)

// ClassHandler exposes class-side transfer queries.
type ClassHandler struct {
	transfers *service.TransferService
}

// NewClassHandler constructs ClassHandler.
func NewClassHandler(transfers *service.TransferService) *ClassHandler {
	return &ClassHandler{transfers: transfers}
}

// Get godoc
// @Summary Get a class with its verified active enrollment count
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	detail, err := h.transfers.ClassDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// EligibleDestinations godoc
// @Summary List classes a batch from this class could transfer into
// @Tags Classes
// @Produce json
// @Param id path string true "Source class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/eligible-destinations [get]
func (h *ClassHandler) EligibleDestinations(c *gin.Context) {
	classes, err := h.transfers.EligibleDestinations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}
