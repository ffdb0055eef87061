package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-transfer-api/internal/dto"
	"github.com/noah-isme/sma-transfer-api/internal/service"
	appErrors "github.com/noah-isme/sma-transfer-api/pkg/errors"
	"github.com/noah-isme/sma-transfer-api/pkg/response"
)

// TransferHandler exposes batch transfer and undo endpoints.
type TransferHandler struct {
	transfers *service.TransferService
	exports   *service.ExportService
}

// NewTransferHandler constructs TransferHandler.
func NewTransferHandler(transfers *service.TransferService, exports *service.ExportService) *TransferHandler {
	return &TransferHandler{transfers: transfers, exports: exports}
}

// Create godoc
// @Summary Transfer a batch of students between classes
// @Tags Transfers
// @Accept json
// @Produce json
// @Param payload body dto.BatchTransferRequest true "Transfer payload"
// @Success 201 {object} response.Envelope
// @Router /transfers [post]
func (h *TransferHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.BatchTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidRequest.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.transfers.BatchTransfer(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Undo godoc
// @Summary Undo a recent batch transfer
// @Tags Transfers
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id}/undo [post]
func (h *TransferHandler) Undo(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	transferID := c.Param("id")
	if c.Request.ContentLength > 0 {
		var req dto.UndoTransferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidRequest.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
		if req.TransferID != "" && req.TransferID != transferID {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidRequest, "transfer id in body does not match path"))
			return
		}
	}
	result, err := h.transfers.UndoTransfer(c.Request.Context(), transferID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get a transfer with its ledger records
// @Tags Transfers
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id} [get]
func (h *TransferHandler) Get(c *gin.Context) {
	transfer, err := h.transfers.GetTransfer(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfer, nil)
}

// Export godoc
// @Summary Download a transfer's ledger as CSV or PDF
// @Tags Transfers
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Transfer ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /transfers/{id}/export [get]
func (h *TransferHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidRequest.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	result, err := h.exports.ExportTransfer(c.Request.Context(), c.Param("id"), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// StudentEnrollment godoc
// @Summary Get a student's current active enrollment
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollment [get]
func (h *TransferHandler) StudentEnrollment(c *gin.Context) {
	enrollment, err := h.transfers.CurrentEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// StudentHistory godoc
// @Summary List a student's enrollment history, newest first
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/history [get]
func (h *TransferHandler) StudentHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, pagination, err := h.transfers.StudentHistory(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}
