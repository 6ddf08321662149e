package domain

import (
	"encoding/json"
	"time"
)

// OsmJSON is the opaque attribute payload of an upstream record. The raw
// shape is preserved as-is; typed accessors exist only for the few tags
// this pipeline interprets.
type OsmJSON map[string]any

// Kind returns the element kind ("node", "way" or "relation").
func (m OsmJSON) Kind() string {
	s, _ := m["type"].(string)
	return s
}

// Ref returns the numeric upstream id.
func (m OsmJSON) Ref() int64 {
	return asInt64(m["id"])
}

// ElementID builds the stable external key for the record. ok is false
// when kind or id are missing or malformed.
func (m OsmJSON) ElementID() (ElementID, bool) {
	kind := m.Kind()
	ref := m.Ref()
	if ref == 0 {
		return ElementID{}, false
	}
	switch kind {
	case "node", "way", "relation":
		return ElementID{Kind: kind, Ref: ref}, true
	}
	return ElementID{}, false
}

// Tags returns the nested upstream tag map, never nil.
func (m OsmJSON) Tags() map[string]any {
	if tags, ok := m["tags"].(map[string]any); ok {
		return tags
	}
	return map[string]any{}
}

// Tag returns the string value of an upstream tag, or "" when absent.
func (m OsmJSON) Tag(name string) string {
	s, _ := m.Tags()[name].(string)
	return s
}

// Name returns the display name tag.
func (m OsmJSON) Name() string {
	return m.Tag("name")
}

// UID returns the id of the user attributed to the record's last edit,
// or 0 when the upstream omits attribution.
func (m OsmJSON) UID() int64 {
	return asInt64(m["uid"])
}

// Username returns the display name of the attributed user, if any.
func (m OsmJSON) Username() string {
	s, _ := m["user"].(string)
	return s
}

// Coordinate derives a representative lat/lon. Nodes carry their own
// coordinate; ways and relations fall back to an upstream-provided
// center, then to the midpoint of their bounds.
func (m OsmJSON) Coordinate() (lat, lon float64, ok bool) {
	if m.Kind() == "node" {
		lat, latOK := asFloat64(m["lat"])
		lon, lonOK := asFloat64(m["lon"])
		return lat, lon, latOK && lonOK
	}
	if center, exists := m["center"].(map[string]any); exists {
		lat, latOK := asFloat64(center["lat"])
		lon, lonOK := asFloat64(center["lon"])
		if latOK && lonOK {
			return lat, lon, true
		}
	}
	if bounds, exists := m["bounds"].(map[string]any); exists {
		minLat, a := asFloat64(bounds["minlat"])
		minLon, b := asFloat64(bounds["minlon"])
		maxLat, c := asFloat64(bounds["maxlat"])
		maxLon, d := asFloat64(bounds["maxlon"])
		if a && b && c && d {
			return (minLat + maxLat) / 2, (minLon + maxLon) / 2, true
		}
	}
	return 0, 0, false
}

// Verification tags, in order of precedence.
var verificationTags = []string{"check_date:currency:XBT", "survey:date", "check_date"}

// VerificationDate returns the most authoritative survey/verification
// date carried by the record. ok is false when none parses.
func (m OsmJSON) VerificationDate() (time.Time, bool) {
	for _, tag := range verificationTags {
		raw := m.Tag(tag)
		if raw == "" {
			continue
		}
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t.UTC(), true
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// UpToDate reports whether the record was verified within the trailing
// 365-day window ending at now.
func (m OsmJSON) UpToDate(now time.Time) bool {
	verified, ok := m.VerificationDate()
	if !ok {
		return false
	}
	return verified.After(now.AddDate(0, 0, -365))
}

func (m OsmJSON) AcceptsOnchain() bool {
	return m.Tag("payment:onchain") == "yes"
}

func (m OsmJSON) AcceptsLightning() bool {
	return m.Tag("payment:lightning") == "yes"
}

func (m OsmJSON) AcceptsLightningContactless() bool {
	return m.Tag("payment:lightning_contactless") == "yes"
}

// LegacyBitcoinTag reports the deprecated payment:bitcoin tagging.
func (m OsmJSON) LegacyBitcoinTag() bool {
	return m.Tag("payment:bitcoin") == "yes"
}

func (m OsmJSON) IsATM() bool {
	return m.Tag("amenity") == "atm"
}

// Canonical serializes the payload with sorted keys, giving a stable
// byte form for change detection across fetches.
func (m OsmJSON) Canonical() ([]byte, error) {
	return json.Marshal(m)
}

// Equal compares two payloads by their canonical serialization.
func (m OsmJSON) Equal(other OsmJSON) bool {
	a, err := m.Canonical()
	if err != nil {
		return false
	}
	b, err := other.Canonical()
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return i
	}
	return 0
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
