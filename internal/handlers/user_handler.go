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

// UserHandler handles account-scoped user CRUD requests
type UserHandler struct {
	users repository.UserRepository
}

// NewUserHandler creates a new user handler
func NewUserHandler(users repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

type userRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// CreateUser creates a user within an account
// POST /api/v1/accounts/:accountId/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user := &models.User{AccountID: accountID, Name: req.Name, Email: req.Email}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		ErrorResponse(c, http.StatusUnprocessableEntity, "Failed to create user", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "User created", user)
}

// ListUsers lists an account's users
// GET /api/v1/accounts/:accountId/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	users, err := h.users.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Users retrieved", users)
}

// GetUser retrieves one user within an account
// GET /api/v1/accounts/:accountId/users/:userId
func (h *UserHandler) GetUser(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID", err)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), accountID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFoundResponse(c, []string{"user not found"})
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "User retrieved", user)
}

// UpdateUser updates a user's attributes
// PUT /api/v1/accounts/:accountId/users/:userId
func (h *UserHandler) UpdateUser(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID", err)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), accountID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFoundResponse(c, []string{"user not found"})
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get user", err)
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user.Name = req.Name
	user.Email = req.Email
	if err := h.users.Update(c.Request.Context(), user); err != nil {
		ErrorResponse(c, http.StatusUnprocessableEntity, "Failed to update user", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "User updated", user)
}

// DeleteUser deletes a user; their license assignments cascade away
// DELETE /api/v1/accounts/:accountId/users/:userId
func (h *UserHandler) DeleteUser(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID", err)
		return
	}

	if err := h.users.Delete(c.Request.Context(), accountID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFoundResponse(c, []string{"user not found"})
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to delete user", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "User deleted", nil)
}

func parseAccountID(c *gin.Context) (uuid.UUID, bool) {
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid account ID", err)
		return uuid.Nil, false
	}
	return accountID, true
}
