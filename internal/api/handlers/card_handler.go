package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/misaops/misacard-server/internal/domain/card"
	"github.com/misaops/misacard-server/internal/issuer"
	"github.com/misaops/misacard-server/internal/service"
)

type CardHandler struct {
	cardService      service.CardService
	reconcileService service.ReconcileService
}

func NewCardHandler(cardService service.CardService, reconcileService service.ReconcileService) *CardHandler {
	return &CardHandler{
		cardService:      cardService,
		reconcileService: reconcileService,
	}
}

// statusForError maps domain errors to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, card.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, card.ErrAlreadyExists),
		errors.Is(err, card.ErrInvalidCardID),
		errors.Is(err, card.ErrNotActivated),
		errors.Is(err, card.ErrNotActivatable),
		errors.Is(err, issuer.ErrRejected):
		return http.StatusBadRequest
	case errors.Is(err, issuer.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

// CreateCard godoc
// @Summary Register a new card secret
// @Description Create a local card record for a vendor-issued card secret
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body card.CreateCardRequest true "Card details"
// @Success 201 {object} card.Card
// @Failure 400 {object} map[string]string
// @Router /api/cards [post]
func (h *CardHandler) CreateCard(c *gin.Context) {
	var req card.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newCard, err := h.cardService.CreateCard(&req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newCard)
}

// ListCards godoc
// @Summary List cards
// @Description List cards with pagination, status filter and substring search
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Records to skip"
// @Param limit query int false "Records to return (1-1000)"
// @Param status query string false "Status filter (inactive/active/expired/deleted/not_expired)"
// @Param search query string false "Substring match on card secret, nickname or number"
// @Success 200 {object} map[string]interface{}
// @Router /api/cards [get]
func (h *CardHandler) ListCards(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
		return
	}

	filter := card.ListFilter{
		Search: c.Query("search"),
		Offset: skip,
		Limit:  limit,
	}

	switch status := c.Query("status"); status {
	case "":
	case "not_expired":
		filter.NotExpired = true
	case "inactive", "active", "expired", "deleted":
		filter.Status = card.Status(status)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	cards, err := h.cardService.ListCards(filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

// GetCard godoc
// @Summary Get a single card
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param card_id path string true "Card secret"
// @Success 200 {object} card.Card
// @Failure 404 {object} map[string]string
// @Router /api/cards/{card_id} [get]
func (h *CardHandler) GetCard(c *gin.Context) {
	found, err := h.cardService.GetCard(c.Param("card_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

// UpdateCard godoc
// @Summary Update card bookkeeping fields
// @Description Partial update of nickname, limit, validity hours or status
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param card_id path string true "Card secret"
// @Param request body card.UpdateCardRequest true "Fields to update"
// @Success 200 {object} card.Card
// @Failure 404 {object} map[string]string
// @Router /api/cards/{card_id} [put]
func (h *CardHandler) UpdateCard(c *gin.Context) {
	var req card.UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.cardService.UpdateCard(c.Param("card_id"), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteCard godoc
// @Summary Delete a card
// @Description Hard-deletes the card record; activation logs are retained
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param card_id path string true "Card secret"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/cards/{card_id} [delete]
func (h *CardHandler) DeleteCard(c *gin.Context) {
	if err := h.cardService.DeleteCard(c.Param("card_id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "card deleted"})
}

// ActivateCard godoc
// @Summary Activate a card against the issuer
// @Description Queries the issuer, activates if needed, and persists the result
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param card_id path string true "Card secret"
// @Success 200 {object} service.ReconcileResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/cards/{card_id}/activate [post]
func (h *CardHandler) ActivateCard(c *gin.Context) {
	result, err := h.reconcileService.Activate(c.Request.Context(), c.Param("card_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// QueryCard godoc
// @Summary Refresh a card from the issuer
// @Description Pulls latest issuer state without attempting activation
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param card_id path string true "Card secret"
// @Success 200 {object} service.ReconcileResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/cards/{card_id}/query [post]
func (h *CardHandler) QueryCard(c *gin.Context) {
	result, err := h.reconcileService.Query(c.Request.Context(), c.Param("card_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ActivationLogs godoc
// @Summary Activation history for a card
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param card_id path string true "Card secret"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/cards/{card_id}/logs [get]
func (h *CardHandler) ActivationLogs(c *gin.Context) {
	logs, err := h.cardService.ActivationLogs(c.Param("card_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// Transactions godoc
// @Summary Transaction history and balance for an activated card
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param card_id path string true "Card secret"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/cards/{card_id}/transactions [get]
func (h *CardHandler) Transactions(c *gin.Context) {
	data, err := h.cardService.Transactions(c.Request.Context(), c.Param("card_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// ToggleRefund godoc
// @Summary Toggle the refund-requested flag
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param card_id path string true "Card secret"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/cards/{card_id}/refund [post]
func (h *CardHandler) ToggleRefund(c *gin.Context) {
	updated, err := h.cardService.ToggleRefund(c.Param("card_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	message := "refund flag cleared"
	if updated.RefundRequested {
		message = "marked as refund requested"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    gin.H{"refund_requested": updated.RefundRequested},
	})
}

// UnreturnedCardNumbers godoc
// @Summary Card numbers of expired, activated, non-refunded cards
// @Description Sweeps expiry first, then returns numbers for offline refund processing
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/cards/batch/unreturned-card-numbers [get]
func (h *CardHandler) UnreturnedCardNumbers(c *gin.Context) {
	numbers, err := h.cardService.UnreturnedCardNumbers()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"count":        len(numbers),
			"card_numbers": numbers,
		},
	})
}
