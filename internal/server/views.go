package server

import (
	"time"

	"github.com/Unbanked0/btcmap-api/internal/domain"
)

// The v2 wire shapes render timestamps as RFC3339 strings and absent
// deletion markers as empty strings, which existing consumers rely on.

type elementView struct {
	ID        string         `json:"id"`
	OsmJSON   domain.OsmJSON `json:"osm_json"`
	Tags      map[string]any `json:"tags"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	DeletedAt string         `json:"deleted_at"`
}

func toElementView(e domain.Element) elementView {
	tags := e.Tags
	if tags == nil {
		tags = map[string]any{}
	}
	return elementView{
		ID:        e.ID.String(),
		OsmJSON:   e.OsmJSON,
		Tags:      tags,
		CreatedAt: formatTime(e.CreatedAt),
		UpdatedAt: formatTime(e.UpdatedAt),
		DeletedAt: formatOptionalTime(e.DeletedAt),
	}
}

type eventView struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	ElementID   string  `json:"element_id"`
	ElementLat  float64 `json:"element_lat"`
	ElementLon  float64 `json:"element_lon"`
	ElementName string  `json:"element_name"`
	Type        string  `json:"type"`
	UserID      int64   `json:"user_id"`
	User        string  `json:"user"`
}

func toEventView(ev domain.ElementEvent) eventView {
	return eventView{
		ID:          ev.ID,
		Date:        formatTime(ev.Date),
		ElementID:   ev.ElementID.String(),
		ElementLat:  ev.ElementLat,
		ElementLon:  ev.ElementLon,
		ElementName: ev.ElementName,
		Type:        string(ev.Type),
		UserID:      ev.UserID,
		User:        ev.UserName,
	}
}

type userView struct {
	ID        int64          `json:"id"`
	OsmJSON   domain.OsmJSON `json:"osm_json"`
	Tags      map[string]any `json:"tags"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	DeletedAt string         `json:"deleted_at"`
}

func toUserView(u domain.User) userView {
	tags := u.Tags
	if tags == nil {
		tags = map[string]any{}
	}
	return userView{
		ID:        u.ID,
		OsmJSON:   u.OsmJSON,
		Tags:      tags,
		CreatedAt: formatTime(u.CreatedAt),
		UpdatedAt: formatTime(u.UpdatedAt),
		DeletedAt: "",
	}
}

type areaView struct {
	ID        int64          `json:"id"`
	Tags      map[string]any `json:"tags"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	DeletedAt string         `json:"deleted_at"`
}

func toAreaView(a domain.Area) areaView {
	tags := a.Tags
	if tags == nil {
		tags = map[string]any{}
	}
	return areaView{
		ID:        a.ID,
		Tags:      tags,
		CreatedAt: formatTime(a.CreatedAt),
		UpdatedAt: formatTime(a.UpdatedAt),
		DeletedAt: formatOptionalTime(a.DeletedAt),
	}
}

type reportView struct {
	ID        int64          `json:"id"`
	AreaID    int64          `json:"area_id"`
	Date      string         `json:"date"`
	Tags      map[string]any `json:"tags"`
	CreatedAt string         `json:"created_at"`
}

func toReportView(r domain.Report) reportView {
	tags := r.Tags
	if tags == nil {
		tags = map[string]any{}
	}
	return reportView{
		ID:        r.ID,
		AreaID:    r.AreaID,
		Date:      r.Date.Format("2006-01-02"),
		Tags:      tags,
		CreatedAt: formatTime(r.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
