// Package sessions decides which identity is current and folds legacy global
// data into a newly signed-in user's namespace.
//
// The demo flag lives in the backend and is re-read at every decision point.
// While it is set, provider events cannot displace the demo identity.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/safar/safar/backend/go-services/internal/auth"
	"github.com/safar/safar/backend/go-services/internal/kv"
	"github.com/safar/safar/backend/go-services/internal/models"
	"github.com/safar/safar/backend/go-services/internal/userstore"
	"github.com/safar/safar/backend/go-services/pkg/logger"
	"github.com/safar/safar/backend/go-services/pkg/metrics"
)

// Backend keys for the demo session.
const (
	DemoFlagKey    = "isDemoMode"
	DemoSessionKey = "demoSession"
)

// Reconciler owns the active Session. Transitions are serialized by mu,
// which is never held across a provider call.
type Reconciler struct {
	backend  kv.Backend
	store    *userstore.Store
	provider auth.Provider
	now      func() time.Time

	mu         sync.Mutex
	state      State
	current    Session
	loading    bool
	lastRealID string
	sub        auth.Subscription
	closed     bool

	ready     chan struct{}
	readyOnce sync.Once
}

type Option func(*Reconciler)

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func NewReconciler(b kv.Backend, store *userstore.Store, p auth.Provider, opts ...Option) *Reconciler {
	r := &Reconciler{
		backend:  b,
		store:    store,
		provider: p,
		now:      time.Now,
		state:    Initializing,
		loading:  true,
		ready:    make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start subscribes to provider events and runs the startup check.
// Pair every Start with Close.
func (r *Reconciler) Start(ctx context.Context) Session {
	r.mu.Lock()
	if r.sub == nil && !r.closed {
		r.sub = r.provider.OnAuthStateChange(r.HandleAuthEvent)
	}
	r.mu.Unlock()
	return r.CheckSession(ctx)
}

// Close releases the provider subscription. Events delivered afterwards are ignored.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.closed = true
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// CheckSession re-evaluates the active identity. A stored demo session wins
// without contacting the provider and purges the legacy global keys, as
// starting one does. Provider failures end in Unauthenticated.
func (r *Reconciler) CheckSession(ctx context.Context) Session {
	if u, ok := r.readDemo(ctx); ok {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.restoreDemo(ctx, u)
		return r.current
	}

	ps, err := r.provider.GetSession(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	// a demo session may have been started while the provider was answering
	if u, ok := r.readDemo(ctx); ok {
		r.restoreDemo(ctx, u)
		return r.current
	}
	if err != nil {
		logger.Warnf("sessions: provider session check failed: %v", err)
		r.transition(Unauthenticated, Session{})
		return r.current
	}
	if ps == nil || ps.User == nil || ps.User.ID == "" {
		r.transition(Unauthenticated, Session{})
		return r.current
	}
	r.migrateIfNew(ctx, ps.User.ID)
	r.transition(RealActive, realSession(ps.User))
	return r.current
}

// restoreDemo must be called with r.mu held.
func (r *Reconciler) restoreDemo(ctx context.Context, u *models.User) {
	r.store.ClearGlobalKeys(ctx)
	r.transition(DemoActive, demoSession(u))
}

// HandleAuthEvent applies a provider event. It is the listener registered by Start.
func (r *Reconciler) HandleAuthEvent(ctx context.Context, event auth.Event, ps *auth.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		metrics.AuthEvents.WithLabelValues(string(event), strconv.FormatBool(false)).Inc()
		return
	}
	if r.demoFlagSet(ctx) {
		logger.Debugf("sessions: ignoring %s while demo mode is active", event)
		metrics.AuthEvents.WithLabelValues(string(event), strconv.FormatBool(false)).Inc()
		r.finishLoading()
		return
	}
	metrics.AuthEvents.WithLabelValues(string(event), strconv.FormatBool(true)).Inc()

	if event == auth.EventSignedOut {
		r.lastRealID = ""
	}
	if ps == nil || ps.User == nil || ps.User.ID == "" {
		r.transition(Unauthenticated, Session{})
		return
	}
	if event == auth.EventSignedIn {
		r.migrateIfNew(ctx, ps.User.ID)
	}
	r.transition(RealActive, realSession(ps.User))
}

// StartDemoSession issues a fresh demo identity, replacing any previous one.
// If the demo record cannot be persisted the state is left unchanged.
func (r *Reconciler) StartDemoSession(ctx context.Context) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := models.NewDemoUser(r.now())
	raw, err := json.Marshal(u)
	if err != nil {
		return r.current, fmt.Errorf("encode demo session: %w", err)
	}
	if err := r.backend.SetItem(ctx, DemoSessionKey, string(raw)); err != nil {
		return r.current, fmt.Errorf("store demo session: %w", err)
	}
	if err := r.backend.SetItem(ctx, DemoFlagKey, "true"); err != nil {
		return r.current, fmt.Errorf("store demo flag: %w", err)
	}
	r.store.ClearGlobalKeys(ctx)
	logger.Infof("sessions: demo session started for %s", u.ID)
	r.transition(DemoActive, demoSession(u))
	return r.current, nil
}

// SignOut ends the current session. Local cleanup always runs; a provider
// error is returned after it.
func (r *Reconciler) SignOut(ctx context.Context) error {
	r.mu.Lock()
	demo := r.demoFlagSet(ctx)
	if demo {
		defer r.mu.Unlock()
		err := errors.Join(
			r.backend.RemoveItem(ctx, DemoFlagKey),
			r.backend.RemoveItem(ctx, DemoSessionKey),
		)
		r.store.ClearGlobalKeys(ctx)
		r.transition(Unauthenticated, Session{})
		if err != nil {
			return fmt.Errorf("clear demo session: %w", err)
		}
		return nil
	}
	r.mu.Unlock()

	// the provider may emit SIGNED_OUT synchronously from here
	perr := r.provider.SignOut(ctx)
	if perr != nil {
		logger.Warnf("sessions: provider sign-out failed: %v", perr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.store.ClearGlobalKeys(ctx)
	r.lastRealID = ""
	r.transition(Unauthenticated, Session{})
	if perr != nil {
		return fmt.Errorf("provider sign-out: %w", perr)
	}
	return nil
}

// RefreshCurrentSession republishes a stored demo session, if any, without
// contacting the provider.
func (r *Reconciler) RefreshCurrentSession(ctx context.Context) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.readDemo(ctx); ok {
		r.transition(DemoActive, demoSession(u))
	}
	return r.current
}

func (r *Reconciler) Current() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Loading is true until the first terminal state is reached.
func (r *Reconciler) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Ready is closed once loading has finished.
func (r *Reconciler) Ready() <-chan struct{} { return r.ready }

// transition requires mu.
func (r *Reconciler) transition(s State, sess Session) {
	if r.state != s || r.current.UserID() != sess.UserID() {
		logger.Infow("session transition", "from", r.state.String(), "to", s.String(), "user", sess.UserID())
	}
	r.state = s
	r.current = sess
	metrics.SessionTransitions.WithLabelValues(s.String()).Inc()
	r.finishLoading()
}

func (r *Reconciler) finishLoading() {
	r.loading = false
	r.readyOnce.Do(func() { close(r.ready) })
}

// migrateIfNew requires mu.
func (r *Reconciler) migrateIfNew(ctx context.Context, userID string) {
	if userID == r.lastRealID {
		return
	}
	rep := r.store.MigrateGlobalToUser(ctx, userID)
	if !rep.Done() {
		logger.Warnf("sessions: migration for %s skipped %d key(s)", userID, len(rep.Skipped))
	}
	r.lastRealID = userID
}

func (r *Reconciler) demoFlagSet(ctx context.Context) bool {
	v, ok, err := r.backend.GetItem(ctx, DemoFlagKey)
	if err != nil {
		logger.Warnf("sessions: read demo flag: %v", err)
		return false
	}
	return ok && v == "true"
}

// readDemo returns the stored demo user when the flag is set and the record parses.
func (r *Reconciler) readDemo(ctx context.Context) (*models.User, bool) {
	if !r.demoFlagSet(ctx) {
		return nil, false
	}
	raw, ok, err := r.backend.GetItem(ctx, DemoSessionKey)
	if err != nil || !ok {
		return nil, false
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
		logger.Warnf("sessions: ignoring malformed demo session record")
		return nil, false
	}
	u.IsDemo = true
	return &u, true
}
