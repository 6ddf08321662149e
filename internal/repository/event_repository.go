package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Unbanked0/btcmap-api/internal/domain"
)

// eventRepository implements EventRepository interface. The table is
// append-only; there are no update or delete operations.
type eventRepository struct {
	q Querier
}

const eventColumns = "id, date, element_id, element_lat, element_lon, element_name, event_type, user_id, user_name"

func (r *eventRepository) Insert(ctx context.Context, ev domain.ElementEvent) (domain.ElementEvent, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO element_event (date, element_id, element_lat, element_lon, element_name, event_type, user_id, user_name)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, date`,
		ev.Date, ev.ElementID.String(), ev.ElementLat, ev.ElementLon, ev.ElementName, string(ev.Type), ev.UserID, ev.UserName,
	)
	if err := row.Scan(&ev.ID, &ev.Date); err != nil {
		return domain.ElementEvent{}, fmt.Errorf("failed to insert event for element %s: %w", ev.ElementID, err)
	}
	return ev, nil
}

func (r *eventRepository) SelectAll(ctx context.Context, since *time.Time, limit int) ([]domain.ElementEvent, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if since != nil {
		rows, err = r.q.Query(ctx,
			"SELECT "+eventColumns+" FROM element_event WHERE date > $1 ORDER BY date LIMIT $2",
			*since, clampLimit(limit),
		)
	} else {
		rows, err = r.q.Query(ctx,
			"SELECT "+eventColumns+" FROM element_event ORDER BY date DESC LIMIT $1",
			clampLimit(limit),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select events: %w", err)
	}
	defer rows.Close()

	var events []domain.ElementEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}
	return events, nil
}

func (r *eventRepository) SelectByID(ctx context.Context, id int64) (domain.ElementEvent, error) {
	row := r.q.QueryRow(ctx, "SELECT "+eventColumns+" FROM element_event WHERE id = $1", id)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ElementEvent{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
		}
		return domain.ElementEvent{}, fmt.Errorf("failed to select event %d: %w", id, err)
	}
	return ev, nil
}

func scanEvent(row pgx.Row) (domain.ElementEvent, error) {
	var (
		ev        domain.ElementEvent
		elementID string
		eventType string
	)
	if err := row.Scan(&ev.ID, &ev.Date, &elementID, &ev.ElementLat, &ev.ElementLon, &ev.ElementName, &eventType, &ev.UserID, &ev.UserName); err != nil {
		return domain.ElementEvent{}, err
	}

	id, err := domain.ParseElementID(elementID)
	if err != nil {
		return domain.ElementEvent{}, err
	}
	ev.ElementID = id
	ev.Type = domain.EventType(eventType)
	return ev, nil
}
