package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"license-service/internal/models"
	"license-service/internal/repository"
)

// AccountHandler handles account CRUD requests
type AccountHandler struct {
	accounts repository.AccountRepository
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts repository.AccountRepository) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type accountRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateAccount creates an account
// POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account := &models.Account{Name: req.Name}
	if err := h.accounts.Create(c.Request.Context(), account); err != nil {
		ErrorResponse(c, http.StatusUnprocessableEntity, "Failed to create account", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Account created", account)
}

// ListAccounts lists all accounts
// GET /api/v1/accounts
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context())
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Accounts retrieved", accounts)
}

// GetAccount retrieves one account
// GET /api/v1/accounts/:accountId
func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, ok := h.lookup(c)
	if !ok {
		return
	}
	SuccessResponse(c, http.StatusOK, "Account retrieved", account)
}

// UpdateAccount updates an account's attributes
// PUT /api/v1/accounts/:accountId
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	account, ok := h.lookup(c)
	if !ok {
		return
	}

	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account.Name = req.Name
	if err := h.accounts.Update(c.Request.Context(), account); err != nil {
		ErrorResponse(c, http.StatusUnprocessableEntity, "Failed to update account", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Account updated", account)
}

// DeleteAccount deletes an account and everything it owns
// DELETE /api/v1/accounts/:accountId
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid account ID", err)
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFoundResponse(c, []string{"account not found"})
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to delete account", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Account deleted", nil)
}

func (h *AccountHandler) lookup(c *gin.Context) (*models.Account, bool) {
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid account ID", err)
		return nil, false
	}

	account, err := h.accounts.GetByID(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFoundResponse(c, []string{"account not found"})
			return nil, false
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get account", err)
		return nil, false
	}
	return account, true
}
