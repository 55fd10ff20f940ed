package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"license-service/internal/models"
)

// AssignmentRepository handles license assignment persistence. CreateAll
// and DeleteAll are the only write paths for assignments and both are
// all-or-nothing.
type AssignmentRepository interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.LicenseAssignment, error)
	FindForUnassign(ctx context.Context, accountID uuid.UUID, userIDs []uuid.UUID, productID uuid.UUID) ([]models.LicenseAssignment, error)
	FindExisting(ctx context.Context, userIDs, productIDs []uuid.UUID) ([]models.LicenseAssignment, error)
	CreateAll(ctx context.Context, assignments []*models.LicenseAssignment) error
	DeleteAll(ctx context.Context, assignments []models.LicenseAssignment) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.LicenseAssignment, error) {
	var assignments []models.LicenseAssignment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Product").
		Where("account_id = ?", accountID).
		Order("created_at").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// FindForUnassign returns the account's assignments matching any of the
// given users for one product. An empty userIDs set matches nothing.
func (r *assignmentRepository) FindForUnassign(ctx context.Context, accountID uuid.UUID, userIDs []uuid.UUID, productID uuid.UUID) ([]models.LicenseAssignment, error) {
	if len(userIDs) == 0 {
		return []models.LicenseAssignment{}, nil
	}
	var assignments []models.LicenseAssignment
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND user_id IN ? AND product_id = ?", accountID, userIDs, productID).
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to find assignments: %w", err)
	}
	return assignments, nil
}

// FindExisting returns assignments whose user and product both fall in the
// given sets. Deliberately not account-scoped: a user belongs to exactly
// one account, so the (user, product) pair is already globally unique.
func (r *assignmentRepository) FindExisting(ctx context.Context, userIDs, productIDs []uuid.UUID) ([]models.LicenseAssignment, error) {
	if len(userIDs) == 0 || len(productIDs) == 0 {
		return []models.LicenseAssignment{}, nil
	}
	var assignments []models.LicenseAssignment
	if err := r.db.WithContext(ctx).
		Where("user_id IN ? AND product_id IN ?", userIDs, productIDs).
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to look up existing assignments: %w", err)
	}
	return assignments, nil
}

// CreateAll persists the batch in one transaction. The first record that
// fails its BeforeCreate hook or the (user_id, product_id) unique index
// rolls the whole batch back.
func (r *assignmentRepository) CreateAll(ctx context.Context, assignments []*models.LicenseAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, assignment := range assignments {
			if err := tx.Create(assignment).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteAll removes the batch in one transaction; any failed delete rolls
// the whole batch back.
func (r *assignmentRepository) DeleteAll(ctx context.Context, assignments []models.LicenseAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range assignments {
			result := tx.Delete(&models.LicenseAssignment{}, "id = ?", assignments[i].ID)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("assignment %s no longer exists", assignments[i].ID)
			}
		}
		return nil
	})
}
