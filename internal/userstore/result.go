package userstore

// Reason explains the outcome of a store operation. Exported operations never
// fail; the reason is logged and counted instead.
type Reason string

const (
	OK           Reason = "ok"
	NoUser       Reason = "no_user"
	InvalidKey   Reason = "invalid_key"
	NotFound     Reason = "not_found"
	EncodeError  Reason = "encode_error"
	DecodeError  Reason = "decode_error"
	BackendError Reason = "backend_error"
)

// Result is the internal outcome of a single-key operation.
type Result struct {
	Key    string // physical key; empty when it could not be derived
	Reason Reason
	Err    error
}

func (r Result) OK() bool { return r.Reason == OK }

// MigrationReport lists what MigrateGlobalToUser did per legacy key.
type MigrationReport struct {
	UserID   string
	Migrated []string
	Skipped  map[string]Reason
}

// Done reports whether every present legacy key was migrated.
func (m MigrationReport) Done() bool { return len(m.Skipped) == 0 }
