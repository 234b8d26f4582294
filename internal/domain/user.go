package domain

import "time"

// UserProfile is the app user document the display fields are copied from
type UserProfile struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	PhotoURL    string      `json:"photo_url,omitempty"`
	Stats       AnglerStats `json:"stats"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Author returns the display fields for derived documents
func (u *UserProfile) Author() Author {
	return Author{Name: u.DisplayName, PhotoURL: u.PhotoURL}
}

// Caller is the verified identity behind an admin operation
type Caller struct {
	UserID string
}
