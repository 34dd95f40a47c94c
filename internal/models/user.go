package models

import (
	"strconv"
	"time"
)

// User is the identity the application partitions data by. Field names match
// the JSON persisted by the web client.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	IsDemo    bool      `json:"isDemo,omitempty"`
}

const (
	DemoUserPrefix = "demo-user-"
	DemoUserEmail  = "demo@safar.com"
	DemoUserName   = "Demo User"
)

// NewDemoUser synthesizes a demo identity "demo-user-<unix millis>" with fixed display attributes.
func NewDemoUser(now time.Time) *User {
	return &User{
		ID:        DemoUserPrefix + strconv.FormatInt(now.UnixMilli(), 10),
		Email:     DemoUserEmail,
		Username:  DemoUserName,
		FullName:  DemoUserName,
		AvatarURL: "",
		CreatedAt: now.UTC(),
		IsDemo:    true,
	}
}

// DisplayName prefers the username, falling back to the email.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
