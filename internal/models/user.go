package models

import "fmt"

// User represents the authenticated streaming-service account.
type User struct {
	base
	spotifyID   string
	displayName string
}

// NewUser creates a user for the given service account ID and display name.
func NewUser(sequence int, spotifyID, displayName string) *User {
	return &User{
		base:        newBase(sequence),
		spotifyID:   spotifyID,
		displayName: displayName,
	}
}

func (u *User) SpotifyID() string   { return u.spotifyID }
func (u *User) DisplayName() string { return u.displayName }

func (u *User) SetDisplayName(name string) { u.displayName = name }

// Validate checks that required user fields are present.
func (u *User) Validate() error {
	if u.spotifyID == "" {
		return fmt.Errorf("user spotify ID is required")
	}
	return nil
}
