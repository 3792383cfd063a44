package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paysync/paysync/internal/api/dto"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/service"
)

type TransactionHandler struct {
	service service.TransactionService
	log     *logger.Logger
}

func NewTransactionHandler(service service.TransactionService, log *logger.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, log: log}
}

// @Summary List transactions
// @Description List the transaction history of a user
// @Tags Transactions
// @Accept json
// @Produce json
// @Param user_id query string true "User ID"
// @Param type query string false "Transaction type filter"
// @Success 200 {object} dto.ListTransactionsResponse
// @Router /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var req dto.ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Error("Failed to bind query", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListTransactions(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to list transactions", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get a transaction by ID
// @Description Get a transaction by ID
// @Tags Transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Transaction ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to get transaction", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
