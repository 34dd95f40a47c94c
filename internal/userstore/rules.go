package userstore

// MigrationRule maps a legacy global key to the per-user logical key it moves to.
type MigrationRule struct {
	Global  string
	Logical string
}

// Legacy global keys written before per-user isolation existed.
const (
	SavedTripsKey      = "savedTrips"
	CurrentTripKey     = "currentTrip"
	BlogPostsKey       = "blogPosts"
	UserPreferencesKey = "userPreferences"
)

// DefaultRules is the legacy key table. Adding a legacy key is a one-line edit.
var DefaultRules = []MigrationRule{
	{Global: SavedTripsKey, Logical: SavedTripsKey},
	{Global: CurrentTripKey, Logical: CurrentTripKey},
	{Global: BlogPostsKey, Logical: BlogPostsKey},
	{Global: UserPreferencesKey, Logical: UserPreferencesKey},
}
