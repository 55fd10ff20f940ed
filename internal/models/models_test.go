package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRequiresName(t *testing.T) {
	account := &Account{Name: "  "}
	assert.Error(t, account.BeforeSave(nil))

	account.Name = "Acme"
	assert.NoError(t, account.BeforeSave(nil))
}

func TestProductRequiresName(t *testing.T) {
	product := &Product{}
	assert.Error(t, product.BeforeSave(nil))

	product.Name = "Widget"
	assert.NoError(t, product.BeforeSave(nil))
}

func TestUserEmailValidation(t *testing.T) {
	user := &User{AccountID: uuid.New(), Name: "alice", Email: "not-an-email"}
	err := user.BeforeSave(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email")

	user.Email = "alice@example.com"
	assert.NoError(t, user.BeforeSave(nil))
}

func TestSubscriptionValidation(t *testing.T) {
	issued := time.Now()
	valid := &Subscription{
		AccountID:        uuid.New(),
		ProductID:        uuid.New(),
		NumberOfLicenses: 5,
		IssuedAt:         issued,
		ExpiresAt:        issued.Add(24 * time.Hour),
	}
	assert.NoError(t, valid.BeforeSave(nil))

	t.Run("seat count must be positive", func(t *testing.T) {
		sub := *valid
		sub.NumberOfLicenses = 0
		assert.Error(t, sub.BeforeSave(nil))
	})

	t.Run("expiry must follow issuance", func(t *testing.T) {
		sub := *valid
		sub.ExpiresAt = issued
		assert.Error(t, sub.BeforeSave(nil))

		sub.ExpiresAt = issued.Add(-time.Hour)
		assert.Error(t, sub.BeforeSave(nil))
	})

	t.Run("timestamps are required", func(t *testing.T) {
		sub := *valid
		sub.IssuedAt = time.Time{}
		assert.Error(t, sub.BeforeSave(nil))
	})
}
