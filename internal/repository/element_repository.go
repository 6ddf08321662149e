package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Unbanked0/btcmap-api/internal/domain"
)

// elementRepository implements ElementRepository interface
type elementRepository struct {
	q Querier
}

const elementColumns = "id, osm_json, tags, created_at, updated_at, deleted_at"

// SelectAll retrieves the full element snapshot, soft-deleted rows included.
func (r *elementRepository) SelectAll(ctx context.Context) ([]domain.Element, error) {
	rows, err := r.q.Query(ctx, "SELECT "+elementColumns+" FROM element ORDER BY updated_at")
	if err != nil {
		return nil, fmt.Errorf("failed to select elements: %w", err)
	}
	defer rows.Close()
	return scanElements(rows)
}

// SelectUpdatedSince retrieves elements updated strictly after the given time.
func (r *elementRepository) SelectUpdatedSince(ctx context.Context, since time.Time, limit int) ([]domain.Element, error) {
	rows, err := r.q.Query(ctx,
		"SELECT "+elementColumns+" FROM element WHERE updated_at > $1 ORDER BY updated_at LIMIT $2",
		since, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select elements updated since %s: %w", since, err)
	}
	defer rows.Close()
	return scanElements(rows)
}

// SelectByID retrieves an element by its external key.
func (r *elementRepository) SelectByID(ctx context.Context, id domain.ElementID) (domain.Element, error) {
	row := r.q.QueryRow(ctx, "SELECT "+elementColumns+" FROM element WHERE id = $1", id.String())
	element, err := scanElement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Element{}, fmt.Errorf("element %s: %w", id, ErrNotFound)
		}
		return domain.Element{}, fmt.Errorf("failed to select element %s: %w", id, err)
	}
	return element, nil
}

// Insert creates a new element from its raw upstream payload.
func (r *elementRepository) Insert(ctx context.Context, id domain.ElementID, osmJSON domain.OsmJSON) error {
	payload, err := json.Marshal(osmJSON)
	if err != nil {
		return fmt.Errorf("failed to marshal osm_json: %w", err)
	}
	if _, err := r.q.Exec(ctx,
		"INSERT INTO element (id, osm_json) VALUES ($1, $2)",
		id.String(), payload,
	); err != nil {
		return fmt.Errorf("failed to insert element %s: %w", id, err)
	}
	return nil
}

// SetOsmJSON replaces the upstream payload wholesale and bumps updated_at.
func (r *elementRepository) SetOsmJSON(ctx context.Context, id domain.ElementID, osmJSON domain.OsmJSON) error {
	payload, err := json.Marshal(osmJSON)
	if err != nil {
		return fmt.Errorf("failed to marshal osm_json: %w", err)
	}
	if _, err := r.q.Exec(ctx,
		"UPDATE element SET osm_json = $2, updated_at = now() WHERE id = $1",
		id.String(), payload,
	); err != nil {
		return fmt.Errorf("failed to update element %s: %w", id, err)
	}
	return nil
}

func (r *elementRepository) SetDeletedAt(ctx context.Context, id domain.ElementID, at time.Time) error {
	if _, err := r.q.Exec(ctx,
		"UPDATE element SET deleted_at = $2, updated_at = now() WHERE id = $1",
		id.String(), at,
	); err != nil {
		return fmt.Errorf("failed to mark element %s deleted: %w", id, err)
	}
	return nil
}

func (r *elementRepository) ClearDeletedAt(ctx context.Context, id domain.ElementID) error {
	if _, err := r.q.Exec(ctx,
		"UPDATE element SET deleted_at = NULL, updated_at = now() WHERE id = $1",
		id.String(),
	); err != nil {
		return fmt.Errorf("failed to revive element %s: %w", id, err)
	}
	return nil
}

// SetTag sets one local tag override on the element.
func (r *elementRepository) SetTag(ctx context.Context, id domain.ElementID, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal tag value: %w", err)
	}
	if _, err := r.q.Exec(ctx,
		"UPDATE element SET tags = jsonb_set(tags, $2::text[], $3::jsonb, true), updated_at = now() WHERE id = $1",
		id.String(), []string{key}, encoded,
	); err != nil {
		return fmt.Errorf("failed to set tag %s on element %s: %w", key, id, err)
	}
	return nil
}

func (r *elementRepository) RemoveTag(ctx context.Context, id domain.ElementID, key string) error {
	if _, err := r.q.Exec(ctx,
		"UPDATE element SET tags = tags - $2, updated_at = now() WHERE id = $1",
		id.String(), key,
	); err != nil {
		return fmt.Errorf("failed to remove tag %s from element %s: %w", key, id, err)
	}
	return nil
}

func scanElements(rows pgx.Rows) ([]domain.Element, error) {
	var elements []domain.Element
	for rows.Next() {
		element, err := scanElement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan element row: %w", err)
		}
		elements = append(elements, element)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate element rows: %w", err)
	}
	return elements, nil
}

func scanElement(row pgx.Row) (domain.Element, error) {
	var (
		idStr      string
		osmJSONRaw []byte
		tagsRaw    []byte
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  *time.Time
	)
	if err := row.Scan(&idStr, &osmJSONRaw, &tagsRaw, &createdAt, &updatedAt, &deletedAt); err != nil {
		return domain.Element{}, err
	}

	id, err := domain.ParseElementID(idStr)
	if err != nil {
		return domain.Element{}, err
	}
	osmJSON, err := unmarshalOsmJSON(osmJSONRaw)
	if err != nil {
		return domain.Element{}, err
	}
	tags, err := unmarshalTags(tagsRaw)
	if err != nil {
		return domain.Element{}, err
	}

	return domain.Element{
		ID:        id,
		OsmJSON:   osmJSON,
		Tags:      tags,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100000 {
		return 100000
	}
	return limit
}
