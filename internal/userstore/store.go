// Package userstore partitions local application state by user identity.
//
// Every record lives under the physical key "user_<userID>_<logicalKey>" in a
// kv.Backend. The store holds no identity of its own: callers pass the active
// user id on each call, and an empty id turns the call into a logged no-op so
// feature code running before authentication completes simply does not persist.
//
// Failures never reach the caller. Encoding, decoding and backend errors are
// logged, counted, and degrade to no-ops or default values.
package userstore

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/safar/safar/backend/go-services/internal/kv"
	"github.com/safar/safar/backend/go-services/pkg/logger"
	"github.com/safar/safar/backend/go-services/pkg/metrics"
)

const (
	userPrefix = "user_"
	separator  = "_"
)

// Store is the keyed local store.
type Store struct {
	backend kv.Backend
	rules   []MigrationRule
}

type Option func(*Store)

// WithRules overrides the legacy migration table.
func WithRules(rules []MigrationRule) Option {
	return func(s *Store) { s.rules = rules }
}

func New(b kv.Backend, opts ...Option) *Store {
	s := &Store{backend: b, rules: DefaultRules}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Rules returns the migration table in use.
func (s *Store) Rules() []MigrationRule { return s.rules }

// DeriveKey returns the physical key for (logicalKey, userID), or false when
// either part is empty. Ids are used as-is, underscores included.
func DeriveKey(logicalKey, userID string) (string, bool) {
	k, reason := derive(logicalKey, userID)
	return k, reason == OK
}

func derive(logicalKey, userID string) (string, Reason) {
	if userID == "" {
		return "", NoUser
	}
	if logicalKey == "" {
		return "", InvalidKey
	}
	return userPrefix + userID + separator + logicalKey, OK
}

// NamespacePrefix returns the physical key prefix shared by all of userID's
// records, or false for an empty id.
func NamespacePrefix(userID string) (string, bool) {
	if _, reason := derive("-", userID); reason != OK {
		return "", false
	}
	return userKeyPrefix(userID), true
}

func userKeyPrefix(userID string) string {
	return userPrefix + userID + separator
}

// Set writes value as JSON under the user's namespace. No-op without a user.
func (s *Store) Set(ctx context.Context, key string, value any, userID string) {
	s.report("set", key, userID, s.set(ctx, key, value, userID))
}

func (s *Store) set(ctx context.Context, key string, value any, userID string) Result {
	pk, reason := derive(key, userID)
	if reason != OK {
		return Result{Reason: reason}
	}
	b, err := json.Marshal(value)
	if err != nil {
		return Result{Key: pk, Reason: EncodeError, Err: err}
	}
	if err := s.backend.SetItem(ctx, pk, string(b)); err != nil {
		return Result{Key: pk, Reason: BackendError, Err: err}
	}
	return Result{Key: pk, Reason: OK}
}

// GetInto decodes the user's record into dst and reports whether it did.
// dst is left untouched unless decoding succeeds.
func (s *Store) GetInto(ctx context.Context, key, userID string, dst any) bool {
	raw, res := s.load(ctx, key, userID)
	if res.OK() {
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			res = Result{Key: res.Key, Reason: DecodeError, Err: err}
		}
	}
	s.report("get", key, userID, res)
	return res.OK()
}

// Get returns the user's record decoded as T, or def when there is no user,
// no record, or the stored text does not decode.
func Get[T any](ctx context.Context, s *Store, key, userID string, def T) T {
	v, res := get[T](ctx, s, key, userID)
	s.report("get", key, userID, res)
	if !res.OK() {
		return def
	}
	return v
}

func get[T any](ctx context.Context, s *Store, key, userID string) (T, Result) {
	var v T
	raw, res := s.load(ctx, key, userID)
	if !res.OK() {
		return v, res
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		var zero T
		return zero, Result{Key: res.Key, Reason: DecodeError, Err: err}
	}
	return v, res
}

func (s *Store) load(ctx context.Context, key, userID string) (string, Result) {
	pk, reason := derive(key, userID)
	if reason != OK {
		return "", Result{Reason: reason}
	}
	raw, ok, err := s.backend.GetItem(ctx, pk)
	if err != nil {
		return "", Result{Key: pk, Reason: BackendError, Err: err}
	}
	if !ok {
		return "", Result{Key: pk, Reason: NotFound}
	}
	return raw, Result{Key: pk, Reason: OK}
}

// Remove deletes the user's record. Missing user or record is a no-op.
func (s *Store) Remove(ctx context.Context, key, userID string) {
	s.report("remove", key, userID, s.remove(ctx, key, userID))
}

func (s *Store) remove(ctx context.Context, key, userID string) Result {
	pk, reason := derive(key, userID)
	if reason != OK {
		return Result{Reason: reason}
	}
	if err := s.backend.RemoveItem(ctx, pk); err != nil {
		return Result{Key: pk, Reason: BackendError, Err: err}
	}
	return Result{Key: pk, Reason: OK}
}

// ClearAllForUser removes every record in the user's namespace and returns
// how many were removed. Cost is proportional to the whole backend keyspace.
// The scan is by prefix, so clearing "a" also removes the records of "a_b".
func (s *Store) ClearAllForUser(ctx context.Context, userID string) int {
	if _, reason := derive("x", userID); reason != OK {
		s.report("clear_user", "", userID, Result{Reason: reason})
		return 0
	}
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		s.report("clear_user", "", userID, Result{Reason: BackendError, Err: err})
		return 0
	}
	prefix := userKeyPrefix(userID)
	removed := 0
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if err := s.backend.RemoveItem(ctx, k); err != nil {
			s.report("clear_user", k, userID, Result{Key: k, Reason: BackendError, Err: err})
			continue
		}
		removed++
	}
	logger.Infof("cleared %d items for user %s", removed, userID)
	metrics.StoreOperations.WithLabelValues("clear_user", string(OK)).Inc()
	return removed
}

// ClearGlobalKeys removes the legacy global keys and returns how many existed.
func (s *Store) ClearGlobalKeys(ctx context.Context) int {
	removed := 0
	for _, r := range s.rules {
		_, ok, err := s.backend.GetItem(ctx, r.Global)
		if err != nil {
			s.report("clear_global", r.Global, "", Result{Key: r.Global, Reason: BackendError, Err: err})
			continue
		}
		if !ok {
			continue
		}
		if err := s.backend.RemoveItem(ctx, r.Global); err != nil {
			s.report("clear_global", r.Global, "", Result{Key: r.Global, Reason: BackendError, Err: err})
			continue
		}
		logger.Infof("removed global key: %s", r.Global)
		removed++
	}
	metrics.StoreOperations.WithLabelValues("clear_global", string(OK)).Inc()
	return removed
}

// MigrateGlobalToUser moves each present legacy global record into the user's
// namespace, overwriting any existing per-user value, then deletes the global
// record. A legacy value that is not valid JSON is skipped and left in place;
// the remaining keys still migrate. Calling it again is a no-op.
func (s *Store) MigrateGlobalToUser(ctx context.Context, userID string) MigrationReport {
	rep := MigrationReport{UserID: userID, Skipped: map[string]Reason{}}
	if _, reason := derive("x", userID); reason != OK {
		s.report("migrate", "", userID, Result{Reason: reason})
		return rep
	}
	for _, r := range s.rules {
		res := s.migrateOne(ctx, r, userID)
		switch res.Reason {
		case OK:
			rep.Migrated = append(rep.Migrated, r.Global)
			metrics.MigratedKeys.WithLabelValues("migrated").Inc()
			logger.Infof("migrated %s to user-specific storage (%s)", r.Global, res.Key)
		case NotFound:
		default:
			rep.Skipped[r.Global] = res.Reason
			metrics.MigratedKeys.WithLabelValues("skipped").Inc()
			s.report("migrate", r.Global, userID, res)
		}
	}
	return rep
}

func (s *Store) migrateOne(ctx context.Context, r MigrationRule, userID string) Result {
	raw, ok, err := s.backend.GetItem(ctx, r.Global)
	if err != nil {
		return Result{Key: r.Global, Reason: BackendError, Err: err}
	}
	if !ok {
		return Result{Key: r.Global, Reason: NotFound}
	}
	var v json.RawMessage
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Result{Key: r.Global, Reason: DecodeError, Err: err}
	}
	if res := s.set(ctx, r.Logical, v, userID); !res.OK() {
		return res
	}
	if err := s.backend.RemoveItem(ctx, r.Global); err != nil {
		return Result{Key: r.Global, Reason: BackendError, Err: err}
	}
	pk, _ := derive(r.Logical, userID)
	return Result{Key: pk, Reason: OK}
}

// report logs non-ok outcomes and counts every outcome.
func (s *Store) report(op, key, userID string, res Result) {
	metrics.StoreOperations.WithLabelValues(op, string(res.Reason)).Inc()
	switch res.Reason {
	case OK, NotFound:
		return
	case NoUser:
		logger.Warnf("no user ID provided for %s(%s)", op, key)
	default:
		logger.Warnw("user store operation skipped", "op", op, "key", key, "user", userID, "reason", string(res.Reason), "err", res.Err)
	}
}
