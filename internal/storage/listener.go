package storage

import (
	"context"
	"sync"

	"github.com/project-ledger/internal/logging"
	"github.com/project-ledger/internal/retry"
)

// Notification channels. Triggers installed by the migrations fire NOTIFY on
// these channels with the owning user's id as payload whenever a row in the
// watched table is inserted, updated, or deleted.
const (
	ChannelProjects     = "projects_changed"
	ChannelTransactions = "transactions_changed"
)

// Scope selects which collections and which owner a subscription observes.
// An empty UserID matches changes for every user.
type Scope struct {
	Projects     bool
	Transactions bool
	UserID       string
}

// Subscription is the handle returned by Subscribe. It is owned by the
// subscriber's lifecycle and must be cancelled on teardown.
type Subscription struct {
	id       uint64
	listener *ChangeListener
	once     sync.Once
}

// Cancel releases the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.listener.mu.Lock()
		delete(s.listener.subs, s.id)
		s.listener.mu.Unlock()
	})
}

type subEntry struct {
	scope    Scope
	onChange func()
}

// ChangeListener maintains a dedicated LISTEN connection and fans change
// notifications out to subscribers. Callbacks carry no payload - they are an
// "invalidate and refetch" signal only. No deduplication or ordering is
// guaranteed between rapid successive events.
type ChangeListener struct {
	db     *PostgresDB
	logger *logging.Logger

	mu     sync.Mutex
	subs   map[uint64]*subEntry
	nextID uint64
	hook   func(userID string)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewChangeListener creates a change listener over the given database
func NewChangeListener(db *PostgresDB, logger *logging.Logger) *ChangeListener {
	return &ChangeListener{
		db:     db,
		logger: logger,
		subs:   make(map[uint64]*subEntry),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a callback invoked whenever a row in a watched
// collection changes, regardless of which actor made the change. Multiple
// subscriptions may be active concurrently; each is independently
// cancellable via the returned handle.
func (l *ChangeListener) Subscribe(scope Scope, onChange func()) *Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	l.subs[id] = &subEntry{scope: scope, onChange: onChange}

	return &Subscription{id: id, listener: l}
}

// SetInvalidationHook registers a storage-internal callback invoked with the
// owning user id of every notification, before subscriber fan-out. It exists
// so cached derivations for that user can be dropped; subscriptions
// themselves never see the payload.
func (l *ChangeListener) SetInvalidationHook(hook func(userID string)) {
	l.mu.Lock()
	l.hook = hook
	l.mu.Unlock()
}

// Start begins listening for notifications. The listener reconnects with
// exponential backoff if the LISTEN connection drops.
func (l *ChangeListener) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go l.run(ctx)
}

// Close stops the listener and waits for the run loop to exit
func (l *ChangeListener) Close() {
	if l.cancel != nil {
		l.cancel()
	}
	<-l.done
}

func (l *ChangeListener) run(ctx context.Context) {
	defer close(l.done)

	cfg := retry.DefaultConfig()
	attempt := 0

	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}

		attempt++
		delay := retry.Delay(cfg, attempt)
		l.logger.WithError(err).WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
		}).Warn("Change listener connection lost, reconnecting")

		if !retry.Sleep(ctx, delay) {
			return
		}
	}
}

// listen acquires a dedicated connection, issues LISTEN for both channels,
// and blocks dispatching notifications until the connection or context dies.
func (l *ChangeListener) listen(ctx context.Context) error {
	conn, err := l.db.Pool().Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	for _, channel := range []string{ChannelProjects, ChannelTransactions} {
		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			return err
		}
	}

	l.logger.WithFields(map[string]interface{}{
		"channels": []string{ChannelProjects, ChannelTransactions},
	}).Info("Change listener connected")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(notification.Channel, notification.Payload)
	}
}

// dispatch invokes the callbacks of every subscription whose scope matches
// the notification. The payload (owning user id) is used for filtering only
// and is never handed to the callback.
func (l *ChangeListener) dispatch(channel, payload string) {
	l.mu.Lock()
	hook := l.hook
	matched := make([]func(), 0, len(l.subs))
	for _, sub := range l.subs {
		if !sub.scope.matches(channel, payload) {
			continue
		}
		matched = append(matched, sub.onChange)
	}
	l.mu.Unlock()

	if hook != nil {
		hook(payload)
	}
	for _, onChange := range matched {
		onChange()
	}
}

func (s Scope) matches(channel, userID string) bool {
	switch channel {
	case ChannelProjects:
		if !s.Projects {
			return false
		}
	case ChannelTransactions:
		if !s.Transactions {
			return false
		}
	default:
		return false
	}

	return s.UserID == "" || s.UserID == userID
}
