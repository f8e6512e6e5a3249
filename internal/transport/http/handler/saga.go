package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"financial-movement/internal/models"
	"financial-movement/internal/repositories/redisrepo"

	_ "financial-movement/internal/transport/http/docs"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SagaStateReader returns the tracked step outcomes of one transaction.
type SagaStateReader interface {
	GetSteps(ctx context.Context, transactionID string) (map[string]models.StatusResult, error)
}

type SagaStateResponse struct {
	TransactionID string                         `json:"transactionId"`
	Steps         map[string]models.StatusResult `json:"steps"`
}

type Saga struct {
	states SagaStateReader
}

// NewSaga registers the ops routes. states may be nil when tracking is
// disabled; saga lookups then answer 503.
func NewSaga(router gin.IRouter, states SagaStateReader) *Saga {
	h := &Saga{
		states: states,
	}

	router.GET("/healthz", h.health)
	router.GET("/api/v1/transactions/:transactionId/saga", h.getSagaState)
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.WrapHandler))

	return h
}

// @Summary Liveness probe
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /healthz [get]
func (h *Saga) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Get saga state
// @Description Returns the last reported outcome of every saga step of a transaction
// @Tags saga
// @Produce json
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} SagaStateResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/v1/transactions/{transactionId}/saga [get]
func (h *Saga) getSagaState(c *gin.Context) {
	transactionID := c.Param("transactionId")
	if transactionID == "" {
		h.writeError(c, http.StatusBadRequest, "Transaction ID is required")
		return
	}

	if h.states == nil {
		h.writeError(c, http.StatusServiceUnavailable, "Saga state tracking is disabled")
		return
	}

	steps, err := h.states.GetSteps(c.Request.Context(), transactionID)
	if err != nil {
		if errors.Is(err, redisrepo.ErrSagaNotFound) {
			h.writeError(c, http.StatusNotFound, "Saga state not found")
			return
		}
		h.writeError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to get saga state: %v", err))
		return
	}

	c.JSON(http.StatusOK, SagaStateResponse{
		TransactionID: transactionID,
		Steps:         steps,
	})
}

func (h *Saga) writeError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   http.StatusText(statusCode),
		"message": message,
		"code":    statusCode,
	})
}
