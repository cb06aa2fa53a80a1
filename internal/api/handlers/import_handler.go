package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/misaops/misacard-server/internal/domain/card"
	"github.com/misaops/misacard-server/internal/service"
)

type ImportHandler struct {
	importService service.ImportService
}

func NewImportHandler(importService service.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// ImportText godoc
// @Summary Import cards from pasted text
// @Description Accepts one card per line, either the full export format or a bare card secret
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body card.ImportTextRequest true "Text content"
// @Success 200 {object} card.ImportResult
// @Failure 400 {object} map[string]string
// @Router /api/import/text [post]
func (h *ImportHandler) ImportText(c *gin.Context) {
	var req card.ImportTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, failedLines, err := h.importService.ImportText(req.Content)
	if err != nil {
		if errors.Is(err, service.ErrNothingParsed) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":        err.Error(),
				"failed_lines": failedLines,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ImportJSON godoc
// @Summary Import cards from JSON
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body card.ImportJSONRequest true "Card list"
// @Success 200 {object} card.ImportResult
// @Failure 400 {object} map[string]string
// @Router /api/import/json [post]
func (h *ImportHandler) ImportJSON(c *gin.Context) {
	var req card.ImportJSONRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.importService.ImportJSON(req.Cards)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
