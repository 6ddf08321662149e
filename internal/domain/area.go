package domain

import (
	"encoding/json"
	"time"
)

// GlobalAreaAlias marks the boundary-less area matching every element.
const GlobalAreaAlias = "earth"

// Area is a named geographic scope used to partition elements for
// reporting. Its tag map is opaque; url_alias and geo_json are the only
// tags this pipeline interprets.
type Area struct {
	ID        int64
	Tags      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func (a Area) Deleted() bool {
	return a.DeletedAt != nil
}

// URLAlias returns the area's url_alias tag, or "".
func (a Area) URLAlias() string {
	s, _ := a.Tags["url_alias"].(string)
	return s
}

// Name returns the area's name tag, or "".
func (a Area) Name() string {
	s, _ := a.Tags["name"].(string)
	return s
}

// Global reports whether the area matches every element unconditionally.
func (a Area) Global() bool {
	return a.URLAlias() == GlobalAreaAlias
}

// Boundary returns the raw GeoJSON boundary from the geo_json tag. ok is
// false when the area carries no boundary at all.
func (a Area) Boundary() (json.RawMessage, bool) {
	v, exists := a.Tags["geo_json"]
	if !exists || v == nil {
		return nil, false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return raw, true
}
