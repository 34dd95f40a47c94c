package userstore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/safar/safar/backend/go-services/internal/kv"
	"github.com/stretchr/testify/require"
)

type trip struct {
	ID          string   `json:"id"`
	Destination string   `json:"destination"`
	Tags        []string `json:"tags,omitempty"`
}

func newStore(t *testing.T) (*Store, *kv.MemoryBackend) {
	t.Helper()
	b := kv.NewMemoryBackend()
	return New(b), b
}

func TestDeriveKey(t *testing.T) {
	k, ok := DeriveKey("savedTrips", "u1")
	require.True(t, ok)
	require.Equal(t, "user_u1_savedTrips", k)

	k, ok = DeriveKey("savedTrips", "")
	require.False(t, ok)
	require.Empty(t, k)

	k, ok = DeriveKey("savedTrips", "a_b")
	require.True(t, ok)
	require.Equal(t, "user_a_b_savedTrips", k)

	_, ok = DeriveKey("", "u1")
	require.False(t, ok)
}

func TestIsolation(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	s.Set(ctx, "savedTrips", []trip{{ID: "t1"}}, "alice")
	got := Get(ctx, s, "savedTrips", "bob", []trip{})
	require.Empty(t, got)

	got = Get(ctx, s, "savedTrips", "alice", []trip{})
	require.Len(t, got, 1)
}

func TestRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	in := trip{ID: "t1", Destination: "Jaipur", Tags: []string{"fort", "food"}}
	s.Set(ctx, "currentTrip", in, "u1")
	out := Get(ctx, s, "currentTrip", "u1", trip{})
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	prefs := map[string]any{"theme": "dark", "units": "metric"}
	s.Set(ctx, "userPreferences", prefs, "u1")
	var back map[string]any
	require.True(t, s.GetInto(ctx, "userPreferences", "u1", &back))
	require.Equal(t, prefs, back)
}

func TestNoUserIsNoop(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()

	require.NotPanics(t, func() { s.Set(ctx, "savedTrips", []trip{{ID: "t1"}}, "") })
	require.Equal(t, 0, b.Len())

	res := s.set(ctx, "savedTrips", []trip{{ID: "t1"}}, "")
	require.Equal(t, NoUser, res.Reason)

	require.Equal(t, "fallback", Get(ctx, s, "savedTrips", "", "fallback"))
	s.Remove(ctx, "savedTrips", "")
	require.Equal(t, 0, s.ClearAllForUser(ctx, ""))
}

func TestSet_EncodeError(t *testing.T) {
	s, b := newStore(t)
	res := s.set(context.Background(), "bad", map[string]any{"ch": make(chan int)}, "u1")
	require.Equal(t, EncodeError, res.Reason)
	require.Error(t, res.Err)
	require.Equal(t, 0, b.Len())
}

func TestGet_DecodeErrorReturnsDefault(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	require.NoError(t, b.SetItem(ctx, "user_u1_savedTrips", "{not json"))

	got := Get(ctx, s, "savedTrips", "u1", []trip{{ID: "default"}})
	require.Equal(t, []trip{{ID: "default"}}, got)

	_, res := get[[]trip](ctx, s, "savedTrips", "u1")
	require.Equal(t, DecodeError, res.Reason)

	dst := []trip{{ID: "keep"}}
	require.False(t, s.GetInto(ctx, "savedTrips", "u1", &dst))
}

func TestGet_Missing(t *testing.T) {
	s, _ := newStore(t)
	_, res := get[[]trip](context.Background(), s, "savedTrips", "u1")
	require.Equal(t, NotFound, res.Reason)
	require.Equal(t, "user_u1_savedTrips", res.Key)
}

func TestRemove(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	s.Set(ctx, "currentTrip", trip{ID: "t1"}, "u1")
	s.Set(ctx, "currentTrip", trip{ID: "t2"}, "u2")

	s.Remove(ctx, "currentTrip", "u1")
	s.Remove(ctx, "currentTrip", "u1")
	require.Equal(t, 1, b.Len())
	require.Equal(t, "t2", Get(ctx, s, "currentTrip", "u2", trip{}).ID)
}

func TestClearAllForUser(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()

	s.Set(ctx, "savedTrips", []trip{}, "u1")
	s.Set(ctx, "currentTrip", trip{}, "u1")
	s.Set(ctx, "savedTrips", []trip{}, "u10")
	require.NoError(t, b.SetItem(ctx, "isDemoMode", "true"))

	require.Equal(t, 2, s.ClearAllForUser(ctx, "u1"))
	require.Equal(t, 0, s.ClearAllForUser(ctx, "u1"))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"isDemoMode", "user_u10_savedTrips"}, keys)
}

func TestClearGlobalKeys(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	require.NoError(t, b.SetItem(ctx, "savedTrips", "[]"))
	require.NoError(t, b.SetItem(ctx, "userPreferences", "{}"))
	s.Set(ctx, "savedTrips", []trip{}, "u1")

	require.Equal(t, 2, s.ClearGlobalKeys(ctx))
	require.Equal(t, 0, s.ClearGlobalKeys(ctx))

	keys, _ := b.Keys(ctx)
	require.Equal(t, []string{"user_u1_savedTrips"}, keys)
}

func TestMigrateGlobalToUser(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	require.NoError(t, b.SetItem(ctx, "savedTrips", `[{"id":"g1","destination":"Leh"}]`))
	require.NoError(t, b.SetItem(ctx, "currentTrip", `{"id":"g1"}`))
	require.NoError(t, b.SetItem(ctx, "blogPosts", `[]`))

	rep := s.MigrateGlobalToUser(ctx, "u1")
	require.ElementsMatch(t, []string{"savedTrips", "currentTrip", "blogPosts"}, rep.Migrated)
	require.True(t, rep.Done())

	got := Get(ctx, s, "savedTrips", "u1", []trip{})
	require.Equal(t, []trip{{ID: "g1", Destination: "Leh"}}, got)

	for _, r := range DefaultRules {
		_, ok, err := b.GetItem(ctx, r.Global)
		require.NoError(t, err)
		require.False(t, ok, "global key %s must be gone", r.Global)
	}
}

func TestUnderscoreUserID(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	const id = "google_oauth2_1234"

	s.Set(ctx, "currentTrip", trip{ID: "t1", Destination: "Goa"}, id)
	require.Equal(t, trip{ID: "t1", Destination: "Goa"}, Get(ctx, s, "currentTrip", id, trip{}))
	raw, ok, err := b.GetItem(ctx, "user_google_oauth2_1234_currentTrip")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":"t1","destination":"Goa"}`, raw)

	require.NoError(t, b.SetItem(ctx, "savedTrips", `[{"id":"g1"}]`))
	rep := s.MigrateGlobalToUser(ctx, id)
	require.Equal(t, []string{"savedTrips"}, rep.Migrated)
	require.Equal(t, []trip{{ID: "g1"}}, Get(ctx, s, "savedTrips", id, []trip{}))
	_, ok, err = b.GetItem(ctx, "savedTrips")
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, 2, s.ClearAllForUser(ctx, id))
	keys, _ := b.Keys(ctx)
	require.Empty(t, keys)
}

func TestMigrate_Idempotent(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	require.NoError(t, b.SetItem(ctx, "savedTrips", `[{"id":"g1"}]`))
	require.NoError(t, b.SetItem(ctx, "userPreferences", `{"theme":"dark"}`))

	s.MigrateGlobalToUser(ctx, "u1")
	first, _ := b.Keys(ctx)
	firstTrips, _, _ := b.GetItem(ctx, "user_u1_savedTrips")

	rep := s.MigrateGlobalToUser(ctx, "u1")
	require.Empty(t, rep.Migrated)
	second, _ := b.Keys(ctx)
	secondTrips, _, _ := b.GetItem(ctx, "user_u1_savedTrips")

	require.Equal(t, first, second)
	require.Equal(t, firstTrips, secondTrips)
	require.Equal(t, []string{"user_u1_savedTrips", "user_u1_userPreferences"}, second)
}

func TestMigrate_OverwritesUserValue(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	s.Set(ctx, "savedTrips", []trip{{ID: "p"}}, "u1")
	require.NoError(t, b.SetItem(ctx, "savedTrips", `[{"id":"g"}]`))

	s.MigrateGlobalToUser(ctx, "u1")

	require.Equal(t, []trip{{ID: "g"}}, Get(ctx, s, "savedTrips", "u1", []trip{}))
	_, ok, _ := b.GetItem(ctx, "savedTrips")
	require.False(t, ok)
}

func TestMigrate_CorruptKeyIsolated(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	require.NoError(t, b.SetItem(ctx, "savedTrips", `[{"id":`))
	require.NoError(t, b.SetItem(ctx, "currentTrip", `{"id":"c1"}`))

	rep := s.MigrateGlobalToUser(ctx, "u1")
	require.Equal(t, []string{"currentTrip"}, rep.Migrated)
	require.Equal(t, map[string]Reason{"savedTrips": DecodeError}, rep.Skipped)
	require.False(t, rep.Done())

	require.Equal(t, "c1", Get(ctx, s, "currentTrip", "u1", trip{}).ID)
	// corrupt value stays for the next global purge
	_, ok, _ := b.GetItem(ctx, "savedTrips")
	require.True(t, ok)
	require.Equal(t, 1, s.ClearGlobalKeys(ctx))
}

func TestMigrate_NoUser(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	require.NoError(t, b.SetItem(ctx, "savedTrips", `[]`))

	rep := s.MigrateGlobalToUser(ctx, "")
	require.Empty(t, rep.Migrated)
	_, ok, _ := b.GetItem(ctx, "savedTrips")
	require.True(t, ok, "nothing moves without a user")
}

func TestWithRules(t *testing.T) {
	b := kv.NewMemoryBackend()
	s := New(b, WithRules([]MigrationRule{{Global: "trips_v0", Logical: "savedTrips"}}))
	ctx := context.Background()
	require.NoError(t, b.SetItem(ctx, "trips_v0", `[{"id":"old"}]`))

	s.MigrateGlobalToUser(ctx, "u1")
	require.Equal(t, []trip{{ID: "old"}}, Get(ctx, s, "savedTrips", "u1", []trip{}))
}

// failingBackend fails every operation.
type failingBackend struct{}

var errBackend = errors.New("quota exceeded")

func (failingBackend) GetItem(context.Context, string) (string, bool, error) {
	return "", false, errBackend
}
func (failingBackend) SetItem(context.Context, string, string) error { return errBackend }
func (failingBackend) RemoveItem(context.Context, string) error     { return errBackend }
func (failingBackend) Keys(context.Context) ([]string, error)       { return nil, errBackend }

func TestBackendFailuresDegrade(t *testing.T) {
	s := New(failingBackend{})
	ctx := context.Background()

	require.NotPanics(t, func() {
		s.Set(ctx, "savedTrips", []trip{}, "u1")
		s.Remove(ctx, "savedTrips", "u1")
	})
	res := s.set(ctx, "savedTrips", []trip{}, "u1")
	require.Equal(t, BackendError, res.Reason)
	require.ErrorIs(t, res.Err, errBackend)

	require.Equal(t, []trip{}, Get(ctx, s, "savedTrips", "u1", []trip{}))
	require.Equal(t, 0, s.ClearAllForUser(ctx, "u1"))
	require.Equal(t, 0, s.ClearGlobalKeys(ctx))
	rep := s.MigrateGlobalToUser(ctx, "u1")
	require.Len(t, rep.Skipped, len(DefaultRules))
}

func TestConcreteScenario(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	trip1 := trip{ID: "trip1", Destination: "Kyoto"}

	s.Set(ctx, "savedTrips", []trip{trip1}, "")
	require.Equal(t, 0, b.Len())

	demo := "demo-user-1700000000000"
	s.Set(ctx, "savedTrips", []trip{trip1}, demo)
	require.Equal(t, []trip{trip1}, Get(ctx, s, "savedTrips", demo, []trip{}))
}

func TestNamespacePrefix(t *testing.T) {
	p, ok := NamespacePrefix("alice")
	require.True(t, ok)
	require.Equal(t, "user_alice_", p)

	_, ok = NamespacePrefix("")
	require.False(t, ok)
	p, ok = NamespacePrefix("google_oauth2_1234")
	require.True(t, ok)
	require.Equal(t, "user_google_oauth2_1234_", p)
}
