package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"license-service/internal/models"
)

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, accountID, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.User, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) FindByIDs(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID) ([]models.User, error) {
	args := m.Called(ctx, accountID, ids)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	args := m.Called(ctx, accountID, id)
	return args.Error(0)
}

// MockSubscriptionRepository is a mock implementation of repository.SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, subscription *models.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, accountID, id uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Subscription, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByIDs(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID) ([]models.Subscription, error) {
	args := m.Called(ctx, accountID, ids)
	return args.Get(0).([]models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) CountAssignments(ctx context.Context, accountID, productID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID, productID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, subscription *models.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	args := m.Called(ctx, accountID, id)
	return args.Error(0)
}

// MockAssignmentRepository is a mock implementation of repository.AssignmentRepository
type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.LicenseAssignment, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]models.LicenseAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) FindForUnassign(ctx context.Context, accountID uuid.UUID, userIDs []uuid.UUID, productID uuid.UUID) ([]models.LicenseAssignment, error) {
	args := m.Called(ctx, accountID, userIDs, productID)
	return args.Get(0).([]models.LicenseAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) FindExisting(ctx context.Context, userIDs, productIDs []uuid.UUID) ([]models.LicenseAssignment, error) {
	args := m.Called(ctx, userIDs, productIDs)
	return args.Get(0).([]models.LicenseAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) CreateAll(ctx context.Context, assignments []*models.LicenseAssignment) error {
	args := m.Called(ctx, assignments)
	return args.Error(0)
}

func (m *MockAssignmentRepository) DeleteAll(ctx context.Context, assignments []models.LicenseAssignment) error {
	args := m.Called(ctx, assignments)
	return args.Error(0)
}

type fixture struct {
	users         *MockUserRepository
	subscriptions *MockSubscriptionRepository
	assignments   *MockAssignmentRepository
	svc           *LicenseService
	account       *models.Account
}

func newFixture() *fixture {
	users := new(MockUserRepository)
	subscriptions := new(MockSubscriptionRepository)
	assignments := new(MockAssignmentRepository)
	return &fixture{
		users:         users,
		subscriptions: subscriptions,
		assignments:   assignments,
		svc:           NewLicenseService(users, subscriptions, assignments),
		account:       &models.Account{ID: uuid.New(), Name: "Acme"},
	}
}

func newUser(accountID uuid.UUID, name string) models.User {
	return models.User{ID: uuid.New(), AccountID: accountID, Name: name, Email: name + "@example.com"}
}

func newSubscription(accountID uuid.UUID, productName string, seats int) models.Subscription {
	product := models.Product{ID: uuid.New(), Name: productName}
	return models.Subscription{
		ID:               uuid.New(),
		AccountID:        accountID,
		ProductID:        product.ID,
		NumberOfLicenses: seats,
		IssuedAt:         time.Now(),
		ExpiresAt:        time.Now().Add(365 * 24 * time.Hour),
		Product:          product,
	}
}

func TestResolveUsers_EmptySelectionIsValid(t *testing.T) {
	f := newFixture()

	users, err := f.svc.ResolveUsers(context.Background(), f.account, nil)

	require.NoError(t, err)
	assert.Empty(t, users)
	f.users.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveUsers_AllResolved(t *testing.T) {
	f := newFixture()
	u1 := newUser(f.account.ID, "alice")
	u2 := newUser(f.account.ID, "bob")
	ids := []uuid.UUID{u1.ID, u2.ID}
	f.users.On("FindByIDs", mock.Anything, f.account.ID, ids).Return([]models.User{u1, u2}, nil)

	users, err := f.svc.ResolveUsers(context.Background(), f.account, ids)

	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestResolveUsers_UnknownIDFailsWholeSelection(t *testing.T) {
	f := newFixture()
	u1 := newUser(f.account.ID, "alice")
	ids := []uuid.UUID{u1.ID, uuid.New()}
	f.users.On("FindByIDs", mock.Anything, f.account.ID, ids).Return([]models.User{u1}, nil)

	users, err := f.svc.ResolveUsers(context.Background(), f.account, ids)

	assert.Nil(t, users)
	notFound, ok := IsNotFound(err)
	require.True(t, ok)
	assert.Contains(t, notFound.Messages[0], "could not be found")
}

func TestResolveUsers_DeduplicatesRequestedIDs(t *testing.T) {
	f := newFixture()
	u1 := newUser(f.account.ID, "alice")
	f.users.On("FindByIDs", mock.Anything, f.account.ID, []uuid.UUID{u1.ID}).Return([]models.User{u1}, nil)

	users, err := f.svc.ResolveUsers(context.Background(), f.account, []uuid.UUID{u1.ID, u1.ID})

	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestResolveSubscriptions_EmptySelectionFails(t *testing.T) {
	f := newFixture()

	subs, err := f.svc.ResolveSubscriptions(context.Background(), f.account, nil, 1)

	assert.Nil(t, subs)
	_, ok := IsNotFound(err)
	assert.True(t, ok)
}

func TestResolveSubscriptions_UnknownIDFails(t *testing.T) {
	f := newFixture()
	ids := []uuid.UUID{uuid.New()}
	f.subscriptions.On("FindByIDs", mock.Anything, f.account.ID, ids).Return([]models.Subscription{}, nil)

	subs, err := f.svc.ResolveSubscriptions(context.Background(), f.account, ids, 1)

	assert.Nil(t, subs)
	_, ok := IsNotFound(err)
	assert.True(t, ok)
}

func TestResolveSubscriptions_SufficientSeats(t *testing.T) {
	f := newFixture()
	sub := newSubscription(f.account.ID, "widget", 5)
	ids := []uuid.UUID{sub.ID}
	f.subscriptions.On("FindByIDs", mock.Anything, f.account.ID, ids).Return([]models.Subscription{sub}, nil)
	f.subscriptions.On("CountAssignments", mock.Anything, f.account.ID, sub.ProductID).Return(int64(3), nil)

	subs, err := f.svc.ResolveSubscriptions(context.Background(), f.account, ids, 2)

	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestResolveSubscriptions_ReportsEveryInsufficientSubscription(t *testing.T) {
	f := newFixture()
	subA := newSubscription(f.account.ID, "widget", 2)
	subB := newSubscription(f.account.ID, "gadget", 10)
	subC := newSubscription(f.account.ID, "gizmo", 1)
	ids := []uuid.UUID{subA.ID, subB.ID, subC.ID}
	f.subscriptions.On("FindByIDs", mock.Anything, f.account.ID, ids).
		Return([]models.Subscription{subA, subB, subC}, nil)
	f.subscriptions.On("CountAssignments", mock.Anything, f.account.ID, subA.ProductID).Return(int64(1), nil)
	f.subscriptions.On("CountAssignments", mock.Anything, f.account.ID, subB.ProductID).Return(int64(0), nil)
	f.subscriptions.On("CountAssignments", mock.Anything, f.account.ID, subC.ProductID).Return(int64(0), nil)

	subs, err := f.svc.ResolveSubscriptions(context.Background(), f.account, ids, 3)

	assert.Nil(t, subs)
	notFound, ok := IsNotFound(err)
	require.True(t, ok)
	require.Len(t, notFound.Messages, 2)
	assert.Contains(t, notFound.Messages[0], "widget")
	assert.Contains(t, notFound.Messages[0], "1 available, 3 needed")
	assert.Contains(t, notFound.Messages[1], "gizmo")
}

func TestResolveAssignmentsForUnassign_EmptyResultFails(t *testing.T) {
	f := newFixture()
	productID := uuid.New()
	userIDs := []uuid.UUID{uuid.New()}
	f.assignments.On("FindForUnassign", mock.Anything, f.account.ID, userIDs, productID).
		Return([]models.LicenseAssignment{}, nil)

	assignments, err := f.svc.ResolveAssignmentsForUnassign(context.Background(), f.account, userIDs, productID)

	assert.Nil(t, assignments)
	notFound, ok := IsNotFound(err)
	require.True(t, ok)
	assert.Equal(t, []string{"no matching assignments found"}, notFound.Messages)
}

func TestResolveAssignmentsForUnassign_PartialMatchIsNotAnError(t *testing.T) {
	f := newFixture()
	productID := uuid.New()
	u1 := newUser(f.account.ID, "alice")
	u2 := newUser(f.account.ID, "bob")
	existing := models.LicenseAssignment{
		ID: uuid.New(), AccountID: f.account.ID, UserID: u1.ID, ProductID: productID,
	}
	userIDs := []uuid.UUID{u1.ID, u2.ID}
	f.assignments.On("FindForUnassign", mock.Anything, f.account.ID, userIDs, productID).
		Return([]models.LicenseAssignment{existing}, nil)

	assignments, err := f.svc.ResolveAssignmentsForUnassign(context.Background(), f.account, userIDs, productID)

	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, u1.ID, assignments[0].UserID)
}

func TestAssign_SinglePair(t *testing.T) {
	f := newFixture()
	user := newUser(f.account.ID, "alice")
	sub := newSubscription(f.account.ID, "widget", 5)
	f.assignments.On("FindExisting", mock.Anything, []uuid.UUID{user.ID}, []uuid.UUID{sub.ProductID}).
		Return([]models.LicenseAssignment{}, nil)
	f.assignments.On("CreateAll", mock.Anything, mock.MatchedBy(func(batch []*models.LicenseAssignment) bool {
		return len(batch) == 1 &&
			batch[0].AccountID == f.account.ID &&
			batch[0].UserID == user.ID &&
			batch[0].ProductID == sub.ProductID
	})).Return(nil)

	result := f.svc.Assign(context.Background(), f.account, []models.User{user}, []models.Subscription{sub})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.AssignmentsCount)
	assert.Empty(t, result.ErrorMessages)
	f.assignments.AssertExpectations(t)
}

func TestAssign_CrossProductCreatesEveryPair(t *testing.T) {
	f := newFixture()
	u1 := newUser(f.account.ID, "alice")
	u2 := newUser(f.account.ID, "bob")
	subA := newSubscription(f.account.ID, "widget", 5)
	subB := newSubscription(f.account.ID, "gadget", 5)
	f.assignments.On("FindExisting", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.LicenseAssignment{}, nil)
	f.assignments.On("CreateAll", mock.Anything, mock.MatchedBy(func(batch []*models.LicenseAssignment) bool {
		return len(batch) == 4
	})).Return(nil)

	result := f.svc.Assign(context.Background(), f.account,
		[]models.User{u1, u2}, []models.Subscription{subA, subB})

	assert.True(t, result.Success)
	assert.Equal(t, 4, result.AssignmentsCount)
}

func TestAssign_DuplicatePairAbortsEverything(t *testing.T) {
	f := newFixture()
	u1 := newUser(f.account.ID, "alice")
	u2 := newUser(f.account.ID, "bob")
	sub := newSubscription(f.account.ID, "widget", 5)
	existing := models.LicenseAssignment{
		ID: uuid.New(), AccountID: f.account.ID, UserID: u1.ID, ProductID: sub.ProductID,
	}
	f.assignments.On("FindExisting", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.LicenseAssignment{existing}, nil)

	result := f.svc.Assign(context.Background(), f.account,
		[]models.User{u1, u2}, []models.Subscription{sub})

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.AssignmentsCount)
	require.Len(t, result.ErrorMessages, 1)
	assert.Equal(t, "alice already has a license for widget", result.ErrorMessages[0])
	f.assignments.AssertNotCalled(t, "CreateAll", mock.Anything, mock.Anything)
}

func TestAssign_PersistFailureRollsBack(t *testing.T) {
	f := newFixture()
	user := newUser(f.account.ID, "alice")
	sub := newSubscription(f.account.ID, "widget", 5)
	f.assignments.On("FindExisting", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.LicenseAssignment{}, nil)
	f.assignments.On("CreateAll", mock.Anything, mock.Anything).
		Return(errors.New("user must belong to the same account"))

	result := f.svc.Assign(context.Background(), f.account, []models.User{user}, []models.Subscription{sub})

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.AssignmentsCount)
	assert.Equal(t, []string{"user must belong to the same account"}, result.ErrorMessages)
}

func TestAssign_NoUsersSucceedsWithZeroCount(t *testing.T) {
	f := newFixture()
	sub := newSubscription(f.account.ID, "widget", 5)
	f.assignments.On("FindExisting", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.LicenseAssignment{}, nil)
	f.assignments.On("CreateAll", mock.Anything, mock.Anything).Return(nil)

	result := f.svc.Assign(context.Background(), f.account, nil, []models.Subscription{sub})

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.AssignmentsCount)
}

func TestUnassign_EmptySetFailsDefensively(t *testing.T) {
	f := newFixture()

	result := f.svc.Unassign(context.Background(), nil)

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.AssignmentsCount)
	assert.Equal(t, []string{"no matching assignments found"}, result.ErrorMessages)
	f.assignments.AssertNotCalled(t, "DeleteAll", mock.Anything, mock.Anything)
}

func TestUnassign_RemovesWholeBatch(t *testing.T) {
	f := newFixture()
	accountID := f.account.ID
	batch := []models.LicenseAssignment{
		{ID: uuid.New(), AccountID: accountID, UserID: uuid.New(), ProductID: uuid.New()},
		{ID: uuid.New(), AccountID: accountID, UserID: uuid.New(), ProductID: uuid.New()},
	}
	f.assignments.On("DeleteAll", mock.Anything, batch).Return(nil)

	result := f.svc.Unassign(context.Background(), batch)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.AssignmentsCount)
}

func TestUnassign_DeleteFailureRollsBack(t *testing.T) {
	f := newFixture()
	batch := []models.LicenseAssignment{
		{ID: uuid.New(), AccountID: f.account.ID, UserID: uuid.New(), ProductID: uuid.New()},
	}
	f.assignments.On("DeleteAll", mock.Anything, batch).Return(errors.New("record vanished"))

	result := f.svc.Unassign(context.Background(), batch)

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.AssignmentsCount)
	assert.Equal(t, []string{"failed to unassign license"}, result.ErrorMessages)
}
