package domain

import "time"

// User is a cached copy of an upstream (OSM) user profile. Profiles are
// written once on first sight and only local tags change afterwards.
type User struct {
	ID        int64
	OsmJSON   OsmJSON
	Tags      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UnknownUser is the sentinel returned when attribution is missing or a
// profile lookup fails. Its id 0 is never persisted or looked up.
func UnknownUser() User {
	return User{ID: 0, OsmJSON: OsmJSON{}, Tags: map[string]any{}}
}

// DisplayName returns the upstream display name, if the profile has one.
func (u User) DisplayName() string {
	s, _ := u.OsmJSON["display_name"].(string)
	return s
}
