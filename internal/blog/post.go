// Package blog keeps a user's private travel posts in the keyed local store.
package blog

import "time"

// PrivatePostsKey is the logical key holding a user's private posts.
const PrivatePostsKey = "privateBlogPosts"

const MaxRating = 5

type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Rating      int       `json:"rating"`
	Image       string    `json:"image,omitempty"`
	IsPrivate   bool      `json:"isPrivate"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewPost is the input accepted by Service.Create.
type NewPost struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
	Image       string `json:"image,omitempty"`
}
