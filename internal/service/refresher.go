package service

import (
	"context"
	"sync"

	"github.com/project-ledger/internal/logging"
	"github.com/project-ledger/internal/models"
	"github.com/project-ledger/internal/storage"
)

// ViewState is the dashboard view lifecycle state
type ViewState string

const (
	StateIdle    ViewState = "idle"
	StateLoading ViewState = "loading"
	StateReady   ViewState = "ready"
	StateFailed  ViewState = "failed"
)

// SnapshotSource produces the current snapshot for a user
type SnapshotSource interface {
	Snapshot(ctx context.Context, userID string) (*models.PortfolioSnapshot, error)
}

// ChangeSource registers change-notification subscriptions
type ChangeSource interface {
	Subscribe(scope storage.Scope, onChange func()) *storage.Subscription
}

// DashboardRefresher owns one view's snapshot lifecycle. It re-derives the
// snapshot on start, on explicit Refresh, and on every change notification.
// Refreshes are coalesced: at most one fetch is in flight at a time, and a
// notification arriving mid-fetch schedules exactly one follow-up fetch, not
// one per event.
type DashboardRefresher struct {
	userID    string
	source    SnapshotSource
	keepStale bool
	logger    *logging.Logger

	mu       sync.Mutex
	state    ViewState
	snapshot *models.PortfolioSnapshot
	lastErr  error

	// Capacity-1 channel: a pending signal absorbs all further signals
	// until the loop drains it.
	notify chan struct{}

	// Capacity-1 channel signalled after every ready/failed transition,
	// so consumers can re-read State without polling.
	updates chan struct{}

	sub    *storage.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDashboardRefresher creates a refresher for one user's dashboard view.
// keepStale selects the failure policy: retain the last-known-good snapshot
// alongside the error, or reset to a zeroed snapshot.
func NewDashboardRefresher(userID string, source SnapshotSource, keepStale bool, logger *logging.Logger) *DashboardRefresher {
	return &DashboardRefresher{
		userID:    userID,
		source:    source,
		keepStale: keepStale,
		logger:    logger.WithField("userId", userID),
		state:     StateIdle,
		snapshot:  models.EmptySnapshot(),
		notify:    make(chan struct{}, 1),
		updates:   make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start subscribes to change notifications, begins the refresh loop, and
// triggers the initial load. changes may be nil for views that only refresh
// explicitly.
func (r *DashboardRefresher) Start(ctx context.Context, changes ChangeSource) {
	ctx, r.cancel = context.WithCancel(ctx)

	if changes != nil {
		r.sub = changes.Subscribe(storage.Scope{
			Projects:     true,
			Transactions: true,
			UserID:       r.userID,
		}, r.Refresh)
	}

	go r.run(ctx)
	r.Refresh()
}

// Refresh schedules a refetch+recompute. Signals arriving while a fetch is
// in flight collapse into a single follow-up.
func (r *DashboardRefresher) Refresh() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Close cancels the subscription and any in-flight fetch, then waits for the
// loop to exit. A cancelled fetch's result is discarded, never applied.
func (r *DashboardRefresher) Close() {
	if r.sub != nil {
		r.sub.Cancel()
	}
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// Updates signals after each completed refresh, successful or failed.
// Signals coalesce; receivers should re-read State on each one.
func (r *DashboardRefresher) Updates() <-chan struct{} {
	return r.updates
}

// State returns the current view state, snapshot, and last error. The
// snapshot is immutable once computed; callers must not modify it.
func (r *DashboardRefresher) State() (ViewState, *models.PortfolioSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.snapshot, r.lastErr
}

func (r *DashboardRefresher) run(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.notify:
		}

		r.setLoading()

		snapshot, err := r.source.Snapshot(ctx, r.userID)

		// The view was torn down while the fetch was in flight: discard.
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			r.setFailed(err)
			continue
		}
		r.setReady(snapshot)
	}
}

func (r *DashboardRefresher) setLoading() {
	r.mu.Lock()
	r.state = StateLoading
	r.mu.Unlock()
}

func (r *DashboardRefresher) setReady(snapshot *models.PortfolioSnapshot) {
	r.mu.Lock()
	r.state = StateReady
	r.snapshot = snapshot
	r.lastErr = nil
	r.mu.Unlock()
	r.signalUpdate()
}

func (r *DashboardRefresher) setFailed(err error) {
	r.logger.WithError(err).Error("Dashboard refresh failed")

	r.mu.Lock()
	r.state = StateFailed
	r.lastErr = err
	if !r.keepStale {
		r.snapshot = models.EmptySnapshot()
	}
	r.mu.Unlock()
	r.signalUpdate()
}

func (r *DashboardRefresher) signalUpdate() {
	select {
	case r.updates <- struct{}{}:
	default:
	}
}
