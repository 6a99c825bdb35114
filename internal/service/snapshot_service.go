package service

import (
	"context"
	"sync"
	"time"

	"github.com/project-ledger/internal/logging"
	"github.com/project-ledger/internal/models"
	"github.com/project-ledger/internal/storage"
	"golang.org/x/sync/singleflight"
)

// Repository interfaces for dependency injection

// ProjectLister lists projects visible to a user
type ProjectLister interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Project, error)
}

// TransactionLister lists transactions for an owned project set
type TransactionLister interface {
	ListByProjects(ctx context.Context, userID string, projectIDs []string) ([]*models.Transaction, error)
}

// SnapshotService fetches a user's projects and transactions through the
// gateway and derives the dashboard snapshot. Concurrent requests for the
// same user share one fetch+compute via singleflight.
type SnapshotService struct {
	projectRepo     ProjectLister
	transactionRepo TransactionLister
	cache           *storage.SnapshotCache // optional
	logger          *logging.Logger

	weeklyWindow  int
	monthlyWindow int

	group singleflight.Group
	now   func() time.Time

	// Per-user invalidation generation. A compute records the generation
	// when it starts and skips its cache write if an invalidation bumped it
	// in the meantime, so a fetch that read pre-change rows can never cache
	// over a newer invalidation.
	mu   sync.Mutex
	gens map[string]uint64
}

// NewSnapshotService creates a new snapshot service. cache may be nil.
func NewSnapshotService(
	projectRepo ProjectLister,
	transactionRepo TransactionLister,
	cache *storage.SnapshotCache,
	logger *logging.Logger,
	weeklyWindow, monthlyWindow int,
) *SnapshotService {
	return &SnapshotService{
		projectRepo:     projectRepo,
		transactionRepo: transactionRepo,
		cache:           cache,
		logger:          logger,
		weeklyWindow:    weeklyWindow,
		monthlyWindow:   monthlyWindow,
		now:             time.Now,
		gens:            make(map[string]uint64),
	}
}

// SetNow overrides the clock, used by tests
func (s *SnapshotService) SetNow(now func() time.Time) {
	s.now = now
}

// Snapshot returns the current portfolio snapshot for a user
func (s *SnapshotService) Snapshot(ctx context.Context, userID string) (*models.PortfolioSnapshot, error) {
	// The flight is shared by every caller that joins it, so it must not
	// die with whichever caller happened to start it. Each caller still
	// honors its own context while waiting.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(userID, func() (interface{}, error) {
		return s.compute(flightCtx, userID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.PortfolioSnapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops any cached snapshot for a user. Called on change
// notifications so the next Snapshot recomputes from the store.
func (s *SnapshotService) Invalidate(ctx context.Context, userID string) {
	s.mu.Lock()
	s.gens[userID]++
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("userId", userID).Warn("Failed to invalidate snapshot cache")
	}
}

func (s *SnapshotService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[userID]
}

func (s *SnapshotService) compute(ctx context.Context, userID string) (*models.PortfolioSnapshot, error) {
	gen := s.generation(userID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID)
		if err != nil {
			// Cache trouble is never fatal for a read
			s.logger.WithError(err).WithField("userId", userID).Warn("Snapshot cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
	}

	projects, err := s.projectRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Zero projects short-circuits: the transaction fetch must not happen
	// for an empty project set.
	if len(projects) == 0 {
		return models.EmptySnapshot(), nil
	}

	projectIDs := make([]string, len(projects))
	for i, p := range projects {
		projectIDs[i] = p.ID
	}

	transactions, err := s.transactionRepo.ListByProjects(ctx, userID, projectIDs)
	if err != nil {
		return nil, err
	}

	snapshot := ComputePortfolioSnapshot(projects, transactions, s.now(), s.weeklyWindow, s.monthlyWindow)

	// Skip the write if an invalidation arrived while this compute was in
	// flight: our rows may predate the change that triggered it, and caching
	// them would serve stale data until the TTL expires.
	if s.cache != nil && s.generation(userID) == gen {
		if err := s.cache.Set(ctx, userID, snapshot); err != nil {
			s.logger.WithError(err).WithField("userId", userID).Warn("Snapshot cache write failed")
		}
	}

	return snapshot, nil
}
