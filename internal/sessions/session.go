package sessions

import "github.com/safar/safar/backend/go-services/internal/models"

// Kind discriminates the active identity.
type Kind int

const (
	KindNone Kind = iota
	KindDemo
	KindReal
)

func (k Kind) String() string {
	switch k {
	case KindDemo:
		return "demo"
	case KindReal:
		return "real"
	default:
		return "none"
	}
}

// Session is the active identity: a demo user, a real user, or none.
// It is rebuilt from backend reads on every transition, never patched in place.
type Session struct {
	Kind Kind
	User *models.User
}

func demoSession(u *models.User) Session { return Session{Kind: KindDemo, User: u} }
func realSession(u *models.User) Session { return Session{Kind: KindReal, User: u} }

// UserID returns the id feature code partitions data by, or "" for none.
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

func (s Session) IsDemo() bool { return s.Kind == KindDemo }

// Active reports whether any identity is present.
func (s Session) Active() bool { return s.Kind != KindNone && s.User != nil }

// State is the reconciler's lifecycle state.
type State int

const (
	Initializing State = iota
	DemoActive
	RealActive
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case DemoActive:
		return "demo_active"
	case RealActive:
		return "real_active"
	case Unauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}
