package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ElementID is the stable external key of a point of interest: the OSM
// element kind plus its numeric id, rendered as "node:123".
type ElementID struct {
	Kind string
	Ref  int64
}

func (id ElementID) String() string {
	return fmt.Sprintf("%s:%d", id.Kind, id.Ref)
}

// ParseElementID parses a "kind:ref" key back into its parts.
func ParseElementID(s string) (ElementID, error) {
	kind, ref, found := strings.Cut(s, ":")
	if !found {
		return ElementID{}, fmt.Errorf("invalid element id %q", s)
	}
	switch kind {
	case "node", "way", "relation":
	default:
		return ElementID{}, fmt.Errorf("invalid element kind in id %q", s)
	}
	n, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return ElementID{}, fmt.Errorf("invalid element ref in id %q", s)
	}
	return ElementID{Kind: kind, Ref: n}, nil
}

// Element is one geotagged point of interest. OsmJSON holds the raw
// upstream record and is replaced wholesale on change; Tags are local
// key/value overrides maintained through the API.
type Element struct {
	ID        ElementID
	OsmJSON   OsmJSON
	Tags      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the element is currently soft-deleted.
func (e Element) Deleted() bool {
	return e.DeletedAt != nil
}
