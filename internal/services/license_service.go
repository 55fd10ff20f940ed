package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"license-service/internal/events"
	"license-service/internal/models"
	"license-service/internal/redis"
	"license-service/internal/repository"
)

// Result is the uniform outcome of both license engines. Success carries
// the number of assignments affected; failure carries ordered,
// human-readable messages. Engines never return errors past their
// boundary, only a Result.
type Result struct {
	Success          bool     `json:"success"`
	AssignmentsCount int      `json:"assignments_count"`
	ErrorMessages    []string `json:"error_messages"`
}

func successResult(count int) Result {
	return Result{Success: true, AssignmentsCount: count, ErrorMessages: []string{}}
}

func failureResult(messages ...string) Result {
	return Result{Success: false, AssignmentsCount: 0, ErrorMessages: messages}
}

// LicenseService implements license seat allocation: the selection queries
// that validate raw identifiers into account-scoped entities, and the
// assignment/unassignment engines that mutate seats all-or-nothing.
type LicenseService struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	assignments   repository.AssignmentRepository
	publisher     *events.Publisher
	cache         *redis.Client
}

// NewLicenseService creates a new license service
func NewLicenseService(
	users repository.UserRepository,
	subscriptions repository.SubscriptionRepository,
	assignments repository.AssignmentRepository,
) *LicenseService {
	return &LicenseService{
		users:         users,
		subscriptions: subscriptions,
		assignments:   assignments,
	}
}

// SetEventPublisher enables NATS event publishing for engine mutations
func (s *LicenseService) SetEventPublisher(publisher *events.Publisher) {
	s.publisher = publisher
}

// SetUsageCache enables Redis caching of assigned-seat counts
func (s *LicenseService) SetUsageCache(cache *redis.Client) {
	s.cache = cache
}

// ResolveUsers resolves the requested user IDs within the account. Every
// distinct ID must resolve or the whole selection fails. An empty request
// is valid and resolves to an empty set; callers that require a non-empty
// selection check that themselves.
func (s *LicenseService) ResolveUsers(ctx context.Context, account *models.Account, userIDs []uuid.UUID) ([]models.User, error) {
	ids := dedupe(userIDs)
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	users, err := s.users.FindByIDs(ctx, account.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve users: %w", err)
	}
	if len(users) != len(ids) {
		return nil, NewNotFoundError("one or more selected users could not be found")
	}
	return users, nil
}

// ResolveSubscriptions resolves the requested subscription IDs within the
// account and verifies each one can seat neededSeats more users. All
// insufficient subscriptions are reported together, one message each.
func (s *LicenseService) ResolveSubscriptions(ctx context.Context, account *models.Account, subscriptionIDs []uuid.UUID, neededSeats int) ([]models.Subscription, error) {
	ids := dedupe(subscriptionIDs)
	if len(ids) == 0 {
		return nil, NewNotFoundError("no subscriptions selected")
	}

	subscriptions, err := s.subscriptions.FindByIDs(ctx, account.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subscriptions: %w", err)
	}
	if len(subscriptions) != len(ids) {
		return nil, NewNotFoundError("one or more selected subscriptions could not be found")
	}

	var insufficient []string
	for i := range subscriptions {
		sub := &subscriptions[i]
		available, err := s.licensesAvailable(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("failed to compute available licenses: %w", err)
		}
		if available < neededSeats {
			insufficient = append(insufficient, fmt.Sprintf(
				"not enough licenses available for %s (%d available, %d needed)",
				sub.Product.Name, available, neededSeats))
		}
	}
	if len(insufficient) > 0 {
		return nil, NewNotFoundError(insufficient...)
	}
	return subscriptions, nil
}

// ResolveAssignmentsForUnassign resolves the account's assignments for the
// given users and product. Users without an assignment for the product are
// silently skipped; only a completely empty result is an error.
func (s *LicenseService) ResolveAssignmentsForUnassign(ctx context.Context, account *models.Account, userIDs []uuid.UUID, productID uuid.UUID) ([]models.LicenseAssignment, error) {
	assignments, err := s.assignments.FindForUnassign(ctx, account.ID, dedupe(userIDs), productID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assignments: %w", err)
	}
	if len(assignments) == 0 {
		return nil, NewNotFoundError("no matching assignments found")
	}
	return assignments, nil
}

type assignmentPair struct {
	userID    uuid.UUID
	productID uuid.UUID
}

// Assign creates one license per (user, product-of-subscription) pair in
// the cross-product of the resolved sets, all-or-nothing. Pairs that
// already hold a license abort the whole call before anything is created,
// one message per duplicate. A persist failure inside the transaction
// (including a race on the (user, product) unique index) rolls every
// creation back.
func (s *LicenseService) Assign(ctx context.Context, account *models.Account, users []models.User, subscriptions []models.Subscription) Result {
	userIDs := make([]uuid.UUID, len(users))
	for i, user := range users {
		userIDs[i] = user.ID
	}
	productIDs := make([]uuid.UUID, len(subscriptions))
	for i, sub := range subscriptions {
		productIDs[i] = sub.ProductID
	}

	// One lookup up front; the IN × IN filter is a superset of the exact
	// pairs, membership is settled in memory.
	existing, err := s.assignments.FindExisting(ctx, userIDs, productIDs)
	if err != nil {
		logrus.WithError(err).Error("license assignment lookup failed")
		return failureResult("failed to look up existing assignments")
	}
	existingPairs := make(map[assignmentPair]struct{}, len(existing))
	for _, assignment := range existing {
		existingPairs[assignmentPair{assignment.UserID, assignment.ProductID}] = struct{}{}
	}

	var duplicates []string
	var toCreate []*models.LicenseAssignment
	for _, sub := range subscriptions {
		for _, user := range users {
			if _, ok := existingPairs[assignmentPair{user.ID, sub.ProductID}]; ok {
				duplicates = append(duplicates, fmt.Sprintf(
					"%s already has a license for %s", user.Name, sub.Product.Name))
			} else {
				toCreate = append(toCreate, &models.LicenseAssignment{
					AccountID: account.ID,
					UserID:    user.ID,
					ProductID: sub.ProductID,
				})
			}
		}
	}
	if len(duplicates) > 0 {
		return failureResult(duplicates...)
	}

	if err := s.assignments.CreateAll(ctx, toCreate); err != nil {
		logrus.WithFields(logrus.Fields{
			"account_id": account.ID,
			"requested":  len(toCreate),
		}).WithError(err).Warn("license assignment rolled back")
		return failureResult(err.Error())
	}

	s.invalidateUsage(ctx, account.ID, productIDs)
	s.publishAssigned(account, toCreate)

	logrus.WithFields(logrus.Fields{
		"account_id":  account.ID,
		"assignments": len(toCreate),
	}).Info("licenses assigned")
	return successResult(len(toCreate))
}

// Unassign removes a pre-resolved set of assignments, all-or-nothing. The
// empty set is re-checked here even though the selection query already
// rejects it.
func (s *LicenseService) Unassign(ctx context.Context, assignments []models.LicenseAssignment) Result {
	if len(assignments) == 0 {
		return failureResult("no matching assignments found")
	}

	if err := s.assignments.DeleteAll(ctx, assignments); err != nil {
		logrus.WithError(err).Warn("license unassignment rolled back")
		return failureResult("failed to unassign license")
	}

	productIDs := make([]uuid.UUID, 0, len(assignments))
	for _, assignment := range assignments {
		productIDs = append(productIDs, assignment.ProductID)
	}
	s.invalidateUsage(ctx, assignments[0].AccountID, productIDs)
	s.publishUnassigned(assignments)

	logrus.WithFields(logrus.Fields{
		"account_id":  assignments[0].AccountID,
		"assignments": len(assignments),
	}).Info("licenses unassigned")
	return successResult(len(assignments))
}

// licensesAvailable computes the subscription's free seats, consulting the
// usage cache when one is wired.
func (s *LicenseService) licensesAvailable(ctx context.Context, sub *models.Subscription) (int, error) {
	if s.cache != nil {
		if count, ok := s.cache.GetSeatUsage(ctx, sub.AccountID, sub.ProductID); ok {
			return sub.NumberOfLicenses - int(count), nil
		}
	}
	count, err := s.subscriptions.CountAssignments(ctx, sub.AccountID, sub.ProductID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.SetSeatUsage(ctx, sub.AccountID, sub.ProductID, count)
	}
	return sub.NumberOfLicenses - int(count), nil
}

func (s *LicenseService) invalidateUsage(ctx context.Context, accountID uuid.UUID, productIDs []uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateSeatUsage(ctx, accountID, productIDs)
}

func (s *LicenseService) publishAssigned(account *models.Account, created []*models.LicenseAssignment) {
	if s.publisher == nil || len(created) == 0 {
		return
	}
	refs := make([]events.AssignmentRef, len(created))
	for i, assignment := range created {
		refs[i] = events.AssignmentRef{
			UserID:    assignment.UserID.String(),
			ProductID: assignment.ProductID.String(),
		}
	}
	if err := s.publisher.PublishLicensesAssigned(account.ID.String(), refs); err != nil {
		logrus.WithError(err).Warn("failed to publish license.assigned event")
	}
}

func (s *LicenseService) publishUnassigned(removed []models.LicenseAssignment) {
	if s.publisher == nil {
		return
	}
	refs := make([]events.AssignmentRef, len(removed))
	for i, assignment := range removed {
		refs[i] = events.AssignmentRef{
			UserID:    assignment.UserID.String(),
			ProductID: assignment.ProductID.String(),
		}
	}
	if err := s.publisher.PublishLicensesUnassigned(removed[0].AccountID.String(), refs); err != nil {
		logrus.WithError(err).Warn("failed to publish license.unassigned event")
	}
}

// dedupe preserves first-seen order
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
