package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/safar/backend/go-services/internal/kv"
	"github.com/safar/safar/backend/go-services/internal/models"
	"github.com/safar/safar/backend/go-services/internal/oidc"
	"github.com/safar/safar/backend/go-services/internal/tokens"
)

const secret = "test-secret-0123456789abcdef"

type recorder struct {
	mu     sync.Mutex
	events []Event
	last   *Session
}

func (r *recorder) listen(_ context.Context, e Event, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	r.last = s
}

func newProvider(t *testing.T, opts ...ProviderOption) (*LocalProvider, *kv.MemoryBackend) {
	t.Helper()
	v, err := oidc.NewHMACVerifier(secret, "safar-local")
	require.NoError(t, err)
	b := kv.NewMemoryBackend()
	return NewLocalProvider(b, v, opts...), b
}

func issue(t *testing.T, id string, ttl time.Duration) string {
	t.Helper()
	tok, err := tokens.IssueIDToken(secret, "safar-local", &models.User{
		ID: id, Email: id + "@example.com", Username: "u-" + id, FullName: "User " + id, AvatarURL: "https://example.com/a.png",
	}, ttl)
	require.NoError(t, err)
	return tok
}

func TestSignInWithIDToken(t *testing.T) {
	p, b := newProvider(t)
	rec := &recorder{}
	p.OnAuthStateChange(rec.listen)
	ctx := context.Background()

	s, err := p.SignInWithIDToken(ctx, issue(t, "alice", time.Hour))
	require.NoError(t, err)
	require.Equal(t, "alice", s.User.ID)
	assert.Equal(t, "alice@example.com", s.User.Email)
	assert.Equal(t, "u-alice", s.User.Username)
	assert.Equal(t, "User alice", s.User.FullName)
	assert.Equal(t, "https://example.com/a.png", s.User.AvatarURL)
	assert.False(t, s.User.IsDemo)

	_, ok, _ := b.GetItem(ctx, SessionKey)
	require.True(t, ok)

	got, err := p.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "alice", got.User.ID)

	require.Equal(t, []Event{EventSignedIn}, rec.events)
	require.Equal(t, "alice", rec.last.User.ID)
}

func TestSignInRejectsBadToken(t *testing.T) {
	p, b := newProvider(t)
	ctx := context.Background()

	_, err := p.SignInWithIDToken(ctx, "not-a-jwt")
	require.Error(t, err)

	other, err := tokens.IssueIDToken("some-other-secret-value", "safar-local", &models.User{ID: "mallory"}, time.Hour)
	require.NoError(t, err)
	_, err = p.SignInWithIDToken(ctx, other)
	require.Error(t, err)
	require.Equal(t, 0, b.Len())
}

func TestGetSession_Empty(t *testing.T) {
	p, _ := newProvider(t)
	s, err := p.GetSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestGetSession_ExpiredIsRemoved(t *testing.T) {
	now := time.Now()
	p, b := newProvider(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := p.SignInWithIDToken(ctx, issue(t, "bob", time.Minute))
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	s, err := p.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
	_, ok, _ := b.GetItem(ctx, SessionKey)
	require.False(t, ok)
}

func TestGetSession_CorruptRecord(t *testing.T) {
	p, b := newProvider(t)
	ctx := context.Background()
	require.NoError(t, b.SetItem(ctx, SessionKey, "{broken"))
	_, err := p.GetSession(ctx)
	require.Error(t, err)
}

func TestRefresh(t *testing.T) {
	now := time.Now()
	p, _ := newProvider(t, WithClock(func() time.Time { return now }), WithSessionTTL(30*time.Minute))
	rec := &recorder{}
	p.OnAuthStateChange(rec.listen)
	ctx := context.Background()

	_, err := p.Refresh(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	_, err = p.SignInWithIDToken(ctx, issue(t, "carol", 10*time.Minute))
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	s, err := p.Refresh(ctx)
	require.NoError(t, err)
	require.WithinDuration(t, now.Add(30*time.Minute), s.ExpiresAt, time.Second)
	require.Equal(t, []Event{EventSignedIn, EventTokenRefreshed}, rec.events)
}

func TestSignOut(t *testing.T) {
	p, _ := newProvider(t)
	rec := &recorder{}
	p.OnAuthStateChange(rec.listen)
	ctx := context.Background()

	_, err := p.SignInWithIDToken(ctx, issue(t, "dave", time.Hour))
	require.NoError(t, err)
	require.NoError(t, p.SignOut(ctx))

	s, err := p.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
	require.Equal(t, []Event{EventSignedIn, EventSignedOut}, rec.events)
	require.Nil(t, rec.last)
}

func TestUnsubscribe(t *testing.T) {
	p, _ := newProvider(t)
	rec := &recorder{}
	sub := p.OnAuthStateChange(rec.listen)
	require.Equal(t, 1, p.Listeners())

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.Equal(t, 0, p.Listeners())

	require.NoError(t, p.SignOut(context.Background()))
	require.Empty(t, rec.events)
}

// Listeners run outside the provider lock and may call back into it.
func TestListenerMayReenter(t *testing.T) {
	p, _ := newProvider(t)
	ctx := context.Background()
	var seen *Session
	p.OnAuthStateChange(func(ctx context.Context, e Event, _ *Session) {
		if e == EventSignedIn {
			seen, _ = p.GetSession(ctx)
			p.OnAuthStateChange(func(context.Context, Event, *Session) {})
		}
	})
	_, err := p.SignInWithIDToken(ctx, issue(t, "erin", time.Hour))
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.Equal(t, 2, p.Listeners())
}
