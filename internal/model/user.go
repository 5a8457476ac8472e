package model

import "time"

type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	Location          *Location  `json:"location,omitempty"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// DisplayName falls back to a placeholder for users without a name.
func (u User) DisplayName() string {
	if u.Name == "" {
		return "Unknown"
	}
	return u.Name
}
