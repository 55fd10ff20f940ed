package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"license-service/internal/models"
)

// SubscriptionRepository handles subscription persistence and the
// assigned-seat counting that backs licenses_available.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	GetByID(ctx context.Context, accountID, id uuid.UUID) (*models.Subscription, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Subscription, error)
	FindByIDs(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID) ([]models.Subscription, error)
	CountAssignments(ctx context.Context, accountID, productID uuid.UUID) (int64, error)
	Update(ctx context.Context, subscription *models.Subscription) error
	Delete(ctx context.Context, accountID, id uuid.UUID) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, subscription *models.Subscription) error {
	if err := r.db.WithContext(ctx).Create(subscription).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, accountID, id uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("account_id = ?", accountID).
		First(&subscription, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *subscriptionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("account_id = ?", accountID).
		Order("created_at").
		Find(&subscriptions).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subscriptions, nil
}

// FindByIDs resolves subscription IDs within one account, products
// preloaded. Missing or foreign-account IDs are absent from the result.
func (r *subscriptionRepository) FindByIDs(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID) ([]models.Subscription, error) {
	if len(ids) == 0 {
		return []models.Subscription{}, nil
	}
	var subscriptions []models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("account_id = ? AND id IN ?", accountID, ids).
		Find(&subscriptions).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve subscriptions: %w", err)
	}
	return subscriptions, nil
}

// CountAssignments returns how many license seats are in use for a product
// within an account.
func (r *subscriptionRepository) CountAssignments(ctx context.Context, accountID, productID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LicenseAssignment{}).
		Where("account_id = ? AND product_id = ?", accountID, productID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, subscription *models.Subscription) error {
	if err := r.db.WithContext(ctx).Save(subscription).Error; err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.Subscription{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
