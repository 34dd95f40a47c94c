// Package trips stores a user's trip plans in the keyed local store.
package trips

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safar/safar/backend/go-services/internal/userstore"
)

var (
	ErrNotFound    = errors.New("trip not found")
	ErrNoUser      = errors.New("no active user")
	ErrInvalidTrip = errors.New("invalid trip")
)

const dateLayout = "2006-01-02"

// Service is the trip planner's persistence layer. Saved trips live under
// userstore.SavedTripsKey, the trip being edited under userstore.CurrentTripKey.
type Service struct {
	store *userstore.Store
	now   func() time.Time

	// serializes read-modify-write of the saved list
	mu sync.Mutex
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store *userstore.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, userID string) ([]Trip, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	return s.load(ctx, userID), nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Trip, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	for _, t := range s.load(ctx, userID) {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

// Save creates or replaces a trip and makes it the current trip. A trip
// without an id gets a fresh one.
func (s *Service) Save(ctx context.Context, userID string, t *Trip) (*Trip, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	t.applyDefaults()
	t.UpdatedAt = now

	list := s.load(ctx, userID)
	idx := -1
	if t.ID != "" {
		for i := range list {
			if list[i].ID == t.ID {
				idx = i
				break
			}
		}
	} else {
		t.ID = uuid.NewString()
	}
	if idx >= 0 {
		t.CreatedAt = list[idx].CreatedAt
		list[idx] = *t
	} else {
		t.CreatedAt = now
		list = append(list, *t)
	}
	s.store.Set(ctx, userstore.SavedTripsKey, list, userID)
	s.store.Set(ctx, userstore.CurrentTripKey, t, userID)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNoUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(ctx, userID)
	out := list[:0]
	found := false
	for _, t := range list {
		if t.ID == id {
			found = true
			continue
		}
		out = append(out, t)
	}
	if !found {
		return ErrNotFound
	}
	s.store.Set(ctx, userstore.SavedTripsKey, out, userID)
	if cur, _ := s.Current(ctx, userID); cur != nil && cur.ID == id {
		s.store.Remove(ctx, userstore.CurrentTripKey, userID)
	}
	return nil
}

// Current returns the trip being edited, or nil.
func (s *Service) Current(ctx context.Context, userID string) (*Trip, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	var t Trip
	if !s.store.GetInto(ctx, userstore.CurrentTripKey, userID, &t) {
		return nil, nil
	}
	return &t, nil
}

// SetCurrent stores an unsaved draft as the current trip.
func (s *Service) SetCurrent(ctx context.Context, userID string, t *Trip) error {
	if userID == "" {
		return ErrNoUser
	}
	t.applyDefaults()
	s.store.Set(ctx, userstore.CurrentTripKey, t, userID)
	return nil
}

func (s *Service) ClearCurrent(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	s.store.Remove(ctx, userstore.CurrentTripKey, userID)
	return nil
}

// SetChecklistItem marks a checklist item of a saved trip.
func (s *Service) SetChecklistItem(ctx context.Context, userID, tripID string, itemID int64, completed bool) (*Trip, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(ctx, userID)
	for i := range list {
		if list[i].ID != tripID {
			continue
		}
		for j := range list[i].Checklist {
			if list[i].Checklist[j].ID == itemID {
				list[i].Checklist[j].Completed = completed
				list[i].UpdatedAt = s.now().UTC()
				s.store.Set(ctx, userstore.SavedTripsKey, list, userID)
				t := list[i]
				return &t, nil
			}
		}
		return nil, fmt.Errorf("checklist item %d: %w", itemID, ErrNotFound)
	}
	return nil, ErrNotFound
}

func (s *Service) load(ctx context.Context, userID string) []Trip {
	return userstore.Get(ctx, s.store, userstore.SavedTripsKey, userID, []Trip{})
}

func validate(t *Trip) error {
	if t == nil || t.Destination == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidTrip)
	}
	var start, end time.Time
	var err error
	if t.StartDate != "" {
		if start, err = time.Parse(dateLayout, t.StartDate); err != nil {
			return fmt.Errorf("%w: startDate must be YYYY-MM-DD", ErrInvalidTrip)
		}
	}
	if t.EndDate != "" {
		if end, err = time.Parse(dateLayout, t.EndDate); err != nil {
			return fmt.Errorf("%w: endDate must be YYYY-MM-DD", ErrInvalidTrip)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("%w: endDate before startDate", ErrInvalidTrip)
	}
	for _, v := range []float64{t.Budget.Transport, t.Budget.Stay, t.Budget.Food, t.Budget.Activities} {
		if v < 0 {
			return fmt.Errorf("%w: budget amounts must not be negative", ErrInvalidTrip)
		}
	}
	return nil
}
