package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is the owning organization. Deleting an account cascades to its
// users, subscriptions and license assignments.
type Account struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Users              []User              `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Subscriptions      []Subscription      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	LicenseAssignments []LicenseAssignment `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (a *Account) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("account name is required")
	}
	return nil
}

// Product is a licensable piece of software.
type Product struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Subscriptions      []Subscription      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	LicenseAssignments []LicenseAssignment `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (p *Product) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("product name is required")
	}
	return nil
}

// User belongs to exactly one account. Email is globally unique.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	AccountID uuid.UUID `json:"account_id" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	Email     string    `json:"email" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LicenseAssignments []LicenseAssignment `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(u.Name) == "" {
		return errors.New("user name is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("invalid email address: %s", u.Email)
	}
	return nil
}

// Subscription grants an account a fixed number of license seats for one
// product. At most one subscription per (account, product) pair.
type Subscription struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	AccountID        uuid.UUID `json:"account_id" gorm:"type:uuid;not null;uniqueIndex:idx_subscriptions_account_product"`
	ProductID        uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_subscriptions_account_product"`
	NumberOfLicenses int       `json:"number_of_licenses" gorm:"not null;check:number_of_licenses > 0"`
	IssuedAt         time.Time `json:"issued_at" gorm:"not null"`
	ExpiresAt        time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Product Product `json:"product" gorm:"constraint:OnDelete:CASCADE"`
}

func (s *Subscription) BeforeSave(tx *gorm.DB) error {
	if s.NumberOfLicenses <= 0 {
		return errors.New("number of licenses must be greater than zero")
	}
	if s.IssuedAt.IsZero() || s.ExpiresAt.IsZero() {
		return errors.New("issued_at and expires_at are required")
	}
	if !s.ExpiresAt.After(s.IssuedAt) {
		return errors.New("expires_at must be after issued_at")
	}
	return nil
}

// LicenseAssignment grants one user one license for one product. A user
// holds at most one license per product, account-wide; the unique index on
// (user_id, product_id) also settles write races between concurrent
// assignment requests.
type LicenseAssignment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	AccountID uuid.UUID `json:"account_id" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_license_assignments_user_product"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_license_assignments_user_product"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User    User    `json:"user,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Product Product `json:"product,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// BeforeCreate rejects assignments that reference a user from a different
// account. Runs inside the engine's transaction, so a violation rolls the
// whole batch back.
func (la *LicenseAssignment) BeforeCreate(tx *gorm.DB) error {
	var user User
	if err := tx.First(&user, "id = ?", la.UserID).Error; err != nil {
		return fmt.Errorf("assignment user not found: %w", err)
	}
	if user.AccountID != la.AccountID {
		return errors.New("user must belong to the same account")
	}
	return nil
}
