package domain

import (
	"testing"
	"time"
)

func TestElementIDRoundTrip(t *testing.T) {
	id, err := ParseElementID("node:123")
	if err != nil {
		t.Fatalf("ParseElementID: %v", err)
	}
	if id.Kind != "node" || id.Ref != 123 {
		t.Fatalf("id = %+v", id)
	}
	if id.String() != "node:123" {
		t.Fatalf("String() = %q", id.String())
	}
}

func TestParseElementIDRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "node", "node:", "node:abc", "building:5", "node:123:4"} {
		if _, err := ParseElementID(raw); err == nil {
			t.Fatalf("ParseElementID(%q) = nil error", raw)
		}
	}
}

func TestOsmJSONElementID(t *testing.T) {
	payload := OsmJSON{"type": "way", "id": float64(42)}
	id, ok := payload.ElementID()
	if !ok || id.String() != "way:42" {
		t.Fatalf("ElementID() = %v, %v", id, ok)
	}

	for _, bad := range []OsmJSON{
		{"type": "node"},
		{"id": float64(42)},
		{"type": "building", "id": float64(42)},
	} {
		if _, ok := bad.ElementID(); ok {
			t.Fatalf("ElementID() on %v must fail", bad)
		}
	}
}

func TestCoordinateFallbacks(t *testing.T) {
	node := OsmJSON{"type": "node", "lat": 50.0, "lon": 14.0}
	lat, lon, ok := node.Coordinate()
	if !ok || lat != 50 || lon != 14 {
		t.Fatalf("node coordinate = %v, %v, %v", lat, lon, ok)
	}

	way := OsmJSON{"type": "way", "center": map[string]any{"lat": 1.0, "lon": 2.0}}
	lat, lon, ok = way.Coordinate()
	if !ok || lat != 1 || lon != 2 {
		t.Fatalf("center coordinate = %v, %v, %v", lat, lon, ok)
	}

	rel := OsmJSON{"type": "relation", "bounds": map[string]any{
		"minlat": 0.0, "minlon": 10.0, "maxlat": 2.0, "maxlon": 12.0,
	}}
	lat, lon, ok = rel.Coordinate()
	if !ok || lat != 1 || lon != 11 {
		t.Fatalf("bounds midpoint = %v, %v, %v", lat, lon, ok)
	}

	if _, _, ok := (OsmJSON{"type": "way"}).Coordinate(); ok {
		t.Fatal("way without center or bounds must have no coordinate")
	}
}

func TestVerificationDatePrecedence(t *testing.T) {
	payload := OsmJSON{"tags": map[string]any{
		"check_date":              "2020-01-01",
		"survey:date":             "2021-01-01",
		"check_date:currency:XBT": "2022-01-01",
	}}
	verified, ok := payload.VerificationDate()
	if !ok || verified.Format("2006-01-02") != "2022-01-01" {
		t.Fatalf("VerificationDate = %v, %v", verified, ok)
	}

	payload = OsmJSON{"tags": map[string]any{"survey:date": "2021-06-15"}}
	verified, ok = payload.VerificationDate()
	if !ok || verified.Format("2006-01-02") != "2021-06-15" {
		t.Fatalf("VerificationDate = %v, %v", verified, ok)
	}

	payload = OsmJSON{"tags": map[string]any{"check_date": "never"}}
	if _, ok := payload.VerificationDate(); ok {
		t.Fatal("unparseable date must not verify")
	}
}

func TestUpToDateWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	fresh := OsmJSON{"tags": map[string]any{"check_date": "2023-06-01"}}
	if !fresh.UpToDate(now) {
		t.Fatal("verification within 365 days must be up to date")
	}

	stale := OsmJSON{"tags": map[string]any{"check_date": "2023-02-25"}}
	if stale.UpToDate(now) {
		t.Fatal("verification older than 365 days must be outdated")
	}

	unverified := OsmJSON{}
	if unverified.UpToDate(now) {
		t.Fatal("missing verification must be outdated")
	}
}

func TestEqualIsOrderInsensitive(t *testing.T) {
	a := OsmJSON{"type": "node", "id": float64(1), "tags": map[string]any{"name": "Cafe", "currency:XBT": "yes"}}
	b := OsmJSON{"id": float64(1), "tags": map[string]any{"currency:XBT": "yes", "name": "Cafe"}, "type": "node"}
	if !a.Equal(b) {
		t.Fatal("payloads with identical content must be equal")
	}

	c := OsmJSON{"type": "node", "id": float64(1), "tags": map[string]any{"name": "Bar", "currency:XBT": "yes"}}
	if a.Equal(c) {
		t.Fatal("payloads with different content must differ")
	}
}

func TestPaymentAccessors(t *testing.T) {
	payload := OsmJSON{"tags": map[string]any{
		"payment:onchain":               "yes",
		"payment:lightning":             "no",
		"payment:lightning_contactless": "yes",
		"payment:bitcoin":               "yes",
		"amenity":                       "atm",
	}}
	if !payload.AcceptsOnchain() {
		t.Fatal("onchain")
	}
	if payload.AcceptsLightning() {
		t.Fatal("lightning must require yes")
	}
	if !payload.AcceptsLightningContactless() {
		t.Fatal("lightning contactless")
	}
	if !payload.LegacyBitcoinTag() {
		t.Fatal("legacy tag")
	}
	if !payload.IsATM() {
		t.Fatal("atm")
	}
}
