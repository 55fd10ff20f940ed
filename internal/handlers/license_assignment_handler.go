package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"license-service/internal/metrics"
	"license-service/internal/models"
	"license-service/internal/repository"
	"license-service/internal/services"
)

// LicenseAllocator is the slice of the license service the handler drives:
// selection queries followed by an engine call.
type LicenseAllocator interface {
	ResolveUsers(ctx context.Context, account *models.Account, userIDs []uuid.UUID) ([]models.User, error)
	ResolveSubscriptions(ctx context.Context, account *models.Account, subscriptionIDs []uuid.UUID, neededSeats int) ([]models.Subscription, error)
	ResolveAssignmentsForUnassign(ctx context.Context, account *models.Account, userIDs []uuid.UUID, productID uuid.UUID) ([]models.LicenseAssignment, error)
	Assign(ctx context.Context, account *models.Account, users []models.User, subscriptions []models.Subscription) services.Result
	Unassign(ctx context.Context, assignments []models.LicenseAssignment) services.Result
}

// LicenseAssignmentHandler handles license assignment requests
type LicenseAssignmentHandler struct {
	accounts    repository.AccountRepository
	assignments repository.AssignmentRepository
	licenses    LicenseAllocator
}

// NewLicenseAssignmentHandler creates a new license assignment handler
func NewLicenseAssignmentHandler(
	accounts repository.AccountRepository,
	assignments repository.AssignmentRepository,
	licenses LicenseAllocator,
) *LicenseAssignmentHandler {
	return &LicenseAssignmentHandler{
		accounts:    accounts,
		assignments: assignments,
		licenses:    licenses,
	}
}

type assignRequest struct {
	UserIDs         []uuid.UUID `json:"user_ids"`
	SubscriptionIDs []uuid.UUID `json:"subscription_ids"`
}

type unassignRequest struct {
	UserIDs   []uuid.UUID `json:"user_ids"`
	ProductID uuid.UUID   `json:"product_id" binding:"required"`
}

// ListAssignments lists an account's license assignments
// GET /api/v1/accounts/:accountId/license-assignments
func (h *LicenseAssignmentHandler) ListAssignments(c *gin.Context) {
	account, ok := h.lookupAccount(c)
	if !ok {
		return
	}

	assignments, err := h.assignments.ListByAccount(c.Request.Context(), account.ID)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list assignments", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Assignments retrieved", assignments)
}

// Assign resolves the requested users and subscriptions, then runs the
// assignment engine: one license per (user, product) pair, all-or-nothing.
// POST /api/v1/accounts/:accountId/license-assignments
func (h *LicenseAssignmentHandler) Assign(c *gin.Context) {
	account, ok := h.lookupAccount(c)
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := c.Request.Context()
	users, err := h.licenses.ResolveUsers(ctx, account, req.UserIDs)
	if err != nil {
		h.selectionFailed(c, err, metrics.LicenseAssignments)
		return
	}

	subscriptions, err := h.licenses.ResolveSubscriptions(ctx, account, req.SubscriptionIDs, len(users))
	if err != nil {
		h.selectionFailed(c, err, metrics.LicenseAssignments)
		return
	}

	result := h.licenses.Assign(ctx, account, users, subscriptions)
	if !result.Success {
		metrics.LicenseAssignments.WithLabelValues("failure").Inc()
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	metrics.LicenseAssignments.WithLabelValues("success").Inc()
	metrics.AssignedSeats.WithLabelValues("granted").Add(float64(result.AssignmentsCount))
	c.JSON(http.StatusCreated, result)
}

// Unassign resolves the account's assignments for the requested users and
// product, then runs the unassignment engine, all-or-nothing.
// DELETE /api/v1/accounts/:accountId/license-assignments
func (h *LicenseAssignmentHandler) Unassign(c *gin.Context) {
	account, ok := h.lookupAccount(c)
	if !ok {
		return
	}

	var req unassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := c.Request.Context()
	assignments, err := h.licenses.ResolveAssignmentsForUnassign(ctx, account, req.UserIDs, req.ProductID)
	if err != nil {
		h.selectionFailed(c, err, metrics.LicenseUnassignments)
		return
	}

	result := h.licenses.Unassign(ctx, assignments)
	if !result.Success {
		metrics.LicenseUnassignments.WithLabelValues("failure").Inc()
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	metrics.LicenseUnassignments.WithLabelValues("success").Inc()
	metrics.AssignedSeats.WithLabelValues("released").Add(float64(result.AssignmentsCount))
	c.JSON(http.StatusOK, result)
}

// selectionFailed maps a selection query error onto the response: NotFound
// becomes a 404 carrying the per-item messages, anything else a 500.
func (h *LicenseAssignmentHandler) selectionFailed(c *gin.Context, err error, counter *prometheus.CounterVec) {
	if notFound, ok := services.IsNotFound(err); ok {
		counter.WithLabelValues("not_found").Inc()
		NotFoundResponse(c, notFound.Messages)
		return
	}
	counter.WithLabelValues("error").Inc()
	ErrorResponse(c, http.StatusInternalServerError, "Selection failed", err)
}

func (h *LicenseAssignmentHandler) lookupAccount(c *gin.Context) (*models.Account, bool) {
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
