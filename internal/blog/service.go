package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safar/safar/backend/go-services/internal/models"
	"github.com/safar/safar/backend/go-services/internal/userstore"
)

var (
	ErrInvalidPost = errors.New("invalid post")
	ErrNotFound    = errors.New("post not found")
	ErrNoUser      = errors.New("no active user")
)

type Service struct {
	store *userstore.Store
	now   func() time.Time
	mu    sync.Mutex
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

// Create validates in and appends a private post authored by u.
func (s *Service) Create(ctx context.Context, u *models.User, in NewPost) (*Post, error) {
	if u == nil || u.ID == "" {
		return nil, ErrNoUser
	}
	if err := validate(&in); err != nil {
		return nil, err
	}
	p := Post{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Location:    in.Location,
		Description: in.Description,
		Rating:      in.Rating,
		Image:       in.Image,
		IsPrivate:   true,
		Author:      u.DisplayName(),
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	posts := s.load(ctx, u.ID)
	posts = append(posts, p)
	s.store.Set(ctx, PrivatePostsKey, posts, u.ID)
	return &p, nil
}

// List returns the user's private posts in creation order.
func (s *Service) List(ctx context.Context, userID string) ([]Post, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	return s.load(ctx, userID), nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNoUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := s.load(ctx, userID)
	for i := range posts {
		if posts[i].ID == id {
			posts = append(posts[:i], posts[i+1:]...)
			s.store.Set(ctx, PrivatePostsKey, posts, userID)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Service) load(ctx context.Context, userID string) []Post {
	return userstore.Get(ctx, s.store, PrivatePostsKey, userID, []Post{})
}

func validate(in *NewPost) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidPost)
	case in.Location == "":
		return fmt.Errorf("%w: location is required", ErrInvalidPost)
	case in.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalidPost)
	case in.Rating < 0 || in.Rating > MaxRating:
		return fmt.Errorf("%w: rating must be between 0 and %d", ErrInvalidPost, MaxRating)
	}
	return nil
}
