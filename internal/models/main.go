// Package models defines the core data structures for users, credentials and categories.
package models

// UserProfile is the public part of an account as returned by the auth endpoints.
type UserProfile struct {
	// ID is the server-assigned user identifier.
	ID string `json:"id"`
	// Name is the display name chosen at signup.
	Name string `json:"name"`
	// Email is the login email.
	Email string `json:"email"`
}

// Credentials is the persisted session material: an opaque bearer token and
// the last known profile of its owner.
type Credentials struct {
	Token   string       `json:"token"`
	Profile *UserProfile `json:"user,omitempty"`
}

// Category is a named, counted, optionally imaged resource owned by a user.
type Category struct {
	// ID is assigned by the server and stable for the lifetime of the category.
	ID string `json:"_id"`
	// Name is never empty.
	Name string `json:"name"`
	// ItemCount is the number of items in the category, never negative.
	ItemCount int `json:"itemCount"`
	// ImagePath is a server-relative path to the hosted image, empty when none.
	ImagePath string `json:"image,omitempty"`
}

// HasImage reports whether the category references a hosted image.
func (c Category) HasImage() bool {
	return c.ImagePath != ""
}
