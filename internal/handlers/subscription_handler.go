package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"license-service/internal/models"
	"license-service/internal/repository"
)

// SubscriptionHandler handles account-scoped subscription CRUD requests
type SubscriptionHandler struct {
	subscriptions repository.SubscriptionRepository
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptions repository.SubscriptionRepository) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

type subscriptionRequest struct {
	ProductID        uuid.UUID `json:"product_id" binding:"required"`
	NumberOfLicenses int       `json:"number_of_licenses" binding:"required,gt=0"`
	IssuedAt         time.Time `json:"issued_at" binding:"required"`
	ExpiresAt        time.Time `json:"expires_at" binding:"required"`
}

// subscriptionResponse decorates a subscription with its derived free-seat
// count. The count may be negative when seats were reduced below usage;
// that state is reported, not prevented.
type subscriptionResponse struct {
	models.Subscription
	LicensesAvailable int `json:"licenses_available"`
}

// CreateSubscription creates a subscription within an account
// POST /api/v1/accounts/:accountId/subscriptions
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	subscription := &models.Subscription{
		AccountID:        accountID,
		ProductID:        req.ProductID,
		NumberOfLicenses: req.NumberOfLicenses,
		IssuedAt:         req.IssuedAt,
		ExpiresAt:        req.ExpiresAt,
	}
	if err := h.subscriptions.Create(c.Request.Context(), subscription); err != nil {
		ErrorResponse(c, http.StatusUnprocessableEntity, "Failed to create subscription", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Subscription created", subscription)
}

// ListSubscriptions lists an account's subscriptions with availability
// GET /api/v1/accounts/:accountId/subscriptions
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	subscriptions, err := h.subscriptions.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list subscriptions", err)
		return
	}

	responses := make([]subscriptionResponse, 0, len(subscriptions))
	for i := range subscriptions {
		resp, err := h.withAvailability(c, &subscriptions[i])
		if err != nil {
			ErrorResponse(c, http.StatusInternalServerError, "Failed to compute availability", err)
			return
		}
		responses = append(responses, resp)
	}
	SuccessResponse(c, http.StatusOK, "Subscriptions retrieved", responses)
}

// GetSubscription retrieves one subscription with availability
// GET /api/v1/accounts/:accountId/subscriptions/:subscriptionId
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	subscription, ok := h.lookup(c)
	if !ok {
		return
	}

	resp, err := h.withAvailability(c, subscription)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to compute availability", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Subscription retrieved", resp)
}

// UpdateSubscription updates a subscription. Reducing seats below current
// usage is allowed; availability simply goes negative.
// PUT /api/v1/accounts/:accountId/subscriptions/:subscriptionId
func (h *SubscriptionHandler) UpdateSubscription(c *gin.Context) {
	subscription, ok := h.lookup(c)
	if !ok {
		return
	}

	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	subscription.ProductID = req.ProductID
	subscription.NumberOfLicenses = req.NumberOfLicenses
	subscription.IssuedAt = req.IssuedAt
	subscription.ExpiresAt = req.ExpiresAt
	if err := h.subscriptions.Update(c.Request.Context(), subscription); err != nil {
		ErrorResponse(c, http.StatusUnprocessableEntity, "Failed to update subscription", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Subscription updated", subscription)
}

// DeleteSubscription deletes a subscription
// DELETE /api/v1/accounts/:accountId/subscriptions/:subscriptionId
func (h *SubscriptionHandler) DeleteSubscription(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	subscriptionID, err := uuid.Parse(c.Param("subscriptionId"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid subscription ID", err)
		return
	}

	if err := h.subscriptions.Delete(c.Request.Context(), accountID, subscriptionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFoundResponse(c, []string{"subscription not found"})
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to delete subscription", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Subscription deleted", nil)
}

func (h *SubscriptionHandler) lookup(c *gin.Context) (*models.Subscription, bool) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return nil, false
	}
	subscriptionID, err := uuid.Parse(c.Param("subscriptionId"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid subscription ID", err)
		return nil, false
	}

	subscription, err := h.subscriptions.GetByID(c.Request.Context(), accountID, subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFoundResponse(c, []string{"subscription not found"})
			return nil, false
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get subscription", err)
		return nil, false
	}
	return subscription, true
}

func (h *SubscriptionHandler) withAvailability(c *gin.Context, subscription *models.Subscription) (subscriptionResponse, error) {
	count, err := h.subscriptions.CountAssignments(c.Request.Context(), subscription.AccountID, subscription.ProductID)
	if err != nil {
		return subscriptionResponse{}, err
	}
	return subscriptionResponse{
		Subscription:      *subscription,
		LicensesAvailable: subscription.NumberOfLicenses - int(count),
	}, nil
}
