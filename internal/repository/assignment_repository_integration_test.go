//go:build integration
// +build integration

// These tests need a reachable Postgres instance. They read the usual DB_*
// environment variables and use the license_service_test database unless
// TEST_DB_NAME overrides it. Run with: go test -tags integration ./...

package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"license-service/internal/config"
	"license-service/internal/models"
)

func setupIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := config.New()
	cfg.Database.Name = "license_service_test"
	if name := os.Getenv("TEST_DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	require.NoError(t, err, "Failed to connect to test database")

	require.NoError(t, db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error)
	err = db.AutoMigrate(
		&models.Account{},
		&models.Product{},
		&models.User{},
		&models.Subscription{},
		&models.LicenseAssignment{},
	)
	require.NoError(t, err, "Failed to migrate test database")

	t.Cleanup(func() {
		// Reverse dependency order
		for _, table := range []string{"license_assignments", "subscriptions", "users", "products", "accounts"} {
			if err := db.Exec("DELETE FROM " + table).Error; err != nil {
				t.Logf("Warning: failed to clean table %s: %v", table, err)
			}
		}
	})

	return db
}

func seedAccount(t *testing.T, db *gorm.DB, name string) *models.Account {
	t.Helper()
	account := &models.Account{ID: uuid.New(), Name: name}
	require.NoError(t, db.Create(account).Error)
	return account
}

func seedProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	product := &models.Product{ID: uuid.New(), Name: name}
	require.NoError(t, db.Create(product).Error)
	return product
}

func seedUser(t *testing.T, db *gorm.DB, account *models.Account, name string) *models.User {
	t.Helper()
	user := &models.User{
		ID:        uuid.New(),
		AccountID: account.ID,
		Name:      name,
		Email:     fmt.Sprintf("%s-%s@example.com", name, uuid.New()),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func countAssignments(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.LicenseAssignment{}).Count(&count).Error)
	return count
}

func TestCreateAllRollsBackWhenUserBelongsToAnotherAccount(t *testing.T) {
	db := setupIntegrationDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	acme := seedAccount(t, db, "acme")
	rival := seedAccount(t, db, "rival")
	widget := seedProduct(t, db, "widget")
	alice := seedUser(t, db, acme, "alice")
	mallory := seedUser(t, db, rival, "mallory")

	err := repo.CreateAll(ctx, []*models.LicenseAssignment{
		{ID: uuid.New(), AccountID: acme.ID, UserID: alice.ID, ProductID: widget.ID},
		{ID: uuid.New(), AccountID: acme.ID, UserID: mallory.ID, ProductID: widget.ID},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "user must belong to the same account")
	assert.EqualValues(t, 0, countAssignments(t, db), "valid record must roll back with the rejected one")
}

func TestCreateAllRollsBackOnDuplicatePair(t *testing.T) {
	db := setupIntegrationDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	acme := seedAccount(t, db, "acme")
	widget := seedProduct(t, db, "widget")
	alice := seedUser(t, db, acme, "alice")
	bob := seedUser(t, db, acme, "bob")

	existing := &models.LicenseAssignment{ID: uuid.New(), AccountID: acme.ID, UserID: alice.ID, ProductID: widget.ID}
	require.NoError(t, repo.CreateAll(ctx, []*models.LicenseAssignment{existing}))

	// bob's record inserts fine; alice's hits the (user_id, product_id)
	// unique index and pulls bob's record back out with it.
	err := repo.CreateAll(ctx, []*models.LicenseAssignment{
		{ID: uuid.New(), AccountID: acme.ID, UserID: bob.ID, ProductID: widget.ID},
		{ID: uuid.New(), AccountID: acme.ID, UserID: alice.ID, ProductID: widget.ID},
	})

	require.Error(t, err)
	assert.EqualValues(t, 1, countAssignments(t, db))

	var survivors []models.LicenseAssignment
	require.NoError(t, db.Find(&survivors).Error)
	require.Len(t, survivors, 1)
	assert.Equal(t, existing.ID, survivors[0].ID)
}

func TestDeleteAllRollsBackWhenARowIsGone(t *testing.T) {
	db := setupIntegrationDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	acme := seedAccount(t, db, "acme")
	widget := seedProduct(t, db, "widget")
	alice := seedUser(t, db, acme, "alice")
	bob := seedUser(t, db, acme, "bob")

	first := &models.LicenseAssignment{ID: uuid.New(), AccountID: acme.ID, UserID: alice.ID, ProductID: widget.ID}
	second := &models.LicenseAssignment{ID: uuid.New(), AccountID: acme.ID, UserID: bob.ID, ProductID: widget.ID}
	require.NoError(t, repo.CreateAll(ctx, []*models.LicenseAssignment{first, second}))

	ghost := models.LicenseAssignment{ID: uuid.New(), AccountID: acme.ID, UserID: bob.ID, ProductID: widget.ID}
	err := repo.DeleteAll(ctx, []models.LicenseAssignment{*first, ghost})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer exists")
	assert.EqualValues(t, 2, countAssignments(t, db), "successful delete must roll back with the failed one")
}
