package geo

import (
	"encoding/json"
	"testing"
)

const squarePolygon = `{"type":"Polygon","coordinates":[[[13,49],[15,49],[15,51],[13,51],[13,49]]]}`

func mustParse(t *testing.T, raw string) *Boundary {
	t.Helper()
	b, err := ParseBoundary(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("ParseBoundary: %v", err)
	}
	return b
}

func TestContainsPolygon(t *testing.T) {
	b := mustParse(t, squarePolygon)

	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"center", 50, 14, true},
		{"on edge", 49, 14, true},
		{"on vertex", 49, 13, true},
		{"outside", 50, 16, false},
		{"far away", -33, 151, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Contains(tt.lat, tt.lon); got != tt.want {
				t.Fatalf("Contains(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestContainsMultiPolygon(t *testing.T) {
	b := mustParse(t, `{"type":"MultiPolygon","coordinates":[
		[[[13,49],[15,49],[15,51],[13,51],[13,49]]],
		[[[20,60],[22,60],[22,62],[20,62],[20,60]]]
	]}`)

	if !b.Contains(50, 14) {
		t.Fatal("point in first polygon must match")
	}
	if !b.Contains(61, 21) {
		t.Fatal("point in second polygon must match")
	}
	if b.Contains(55, 17) {
		t.Fatal("point between the polygons must not match")
	}
}

func TestContainsFeatureCollection(t *testing.T) {
	b := mustParse(t, `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":`+squarePolygon+`}
	]}`)

	if !b.Contains(50, 14) {
		t.Fatal("point inside the collection's polygon must match")
	}
	if b.Contains(0, 0) {
		t.Fatal("point outside the collection must not match")
	}
}

func TestContainsLineString(t *testing.T) {
	b := mustParse(t, `{"type":"LineString","coordinates":[[10,10],[20,10]]}`)

	if !b.Contains(10, 15) {
		t.Fatal("point on the segment must match")
	}
	if b.Contains(11, 15) {
		t.Fatal("point off the segment must not match")
	}
}

func TestContainsUnsupportedKindNeverMatches(t *testing.T) {
	b := mustParse(t, `{"type":"Point","coordinates":[14,50]}`)

	if b.Contains(50, 14) {
		t.Fatal("unsupported geometry kinds must never match")
	}
}

func TestParseBoundaryMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{`},
		{"unknown type", `{"type":"Nonsense"}`},
		{"truncated coordinates", `{"type":"Polygon","coordinates":"oops"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseBoundary(json.RawMessage(tt.raw)); err == nil {
				t.Fatal("want error for malformed boundary")
			}
		})
	}
}
