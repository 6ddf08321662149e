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

// areaRepository implements AreaRepository interface
type areaRepository struct {
	q Querier
}

const areaColumns = "id, tags, created_at, updated_at, deleted_at"

func (r *areaRepository) SelectAll(ctx context.Context) ([]domain.Area, error) {
	rows, err := r.q.Query(ctx, "SELECT "+areaColumns+" FROM area ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to select areas: %w", err)
	}
	defer rows.Close()

	var areas []domain.Area
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan area row: %w", err)
		}
		areas = append(areas, area)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate area rows: %w", err)
	}
	return areas, nil
}

func (r *areaRepository) SelectByID(ctx context.Context, id int64) (domain.Area, error) {
	row := r.q.QueryRow(ctx, "SELECT "+areaColumns+" FROM area WHERE id = $1", id)
	area, err := scanArea(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Area{}, fmt.Errorf("area %d: %w", id, ErrNotFound)
		}
		return domain.Area{}, fmt.Errorf("failed to select area %d: %w", id, err)
	}
	return area, nil
}

func (r *areaRepository) SelectByAlias(ctx context.Context, alias string) (domain.Area, error) {
	row := r.q.QueryRow(ctx, "SELECT "+areaColumns+" FROM area WHERE tags->>'url_alias' = $1", alias)
	area, err := scanArea(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Area{}, fmt.Errorf("area %q: %w", alias, ErrNotFound)
		}
		return domain.Area{}, fmt.Errorf("failed to select area %q: %w", alias, err)
	}
	return area, nil
}

func (r *areaRepository) Insert(ctx context.Context, tags map[string]any) (domain.Area, error) {
	encoded, err := marshalTags(tags)
	if err != nil {
		return domain.Area{}, err
	}
	row := r.q.QueryRow(ctx,
		"INSERT INTO area (tags) VALUES ($1) RETURNING "+areaColumns,
		encoded,
	)
	area, err := scanArea(row)
	if err != nil {
		return domain.Area{}, fmt.Errorf("failed to insert area: %w", err)
	}
	return area, nil
}

func (r *areaRepository) SetTag(ctx context.Context, id int64, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal tag value: %w", err)
	}
	if _, err := r.q.Exec(ctx,
		"UPDATE area SET tags = jsonb_set(tags, $2::text[], $3::jsonb, true), updated_at = now() WHERE id = $1",
		id, []string{key}, encoded,
	); err != nil {
		return fmt.Errorf("failed to set tag %s on area %d: %w", key, id, err)
	}
	return nil
}

func (r *areaRepository) RemoveTag(ctx context.Context, id int64, key string) error {
	if _, err := r.q.Exec(ctx,
		"UPDATE area SET tags = tags - $2, updated_at = now() WHERE id = $1",
		id, key,
	); err != nil {
		return fmt.Errorf("failed to remove tag %s from area %d: %w", key, id, err)
	}
	return nil
}

func scanArea(row pgx.Row) (domain.Area, error) {
	var (
		area      domain.Area
		tagsRaw   []byte
		deletedAt *time.Time
	)
	if err := row.Scan(&area.ID, &tagsRaw, &area.CreatedAt, &area.UpdatedAt, &deletedAt); err != nil {
		return domain.Area{}, err
	}

	tags, err := unmarshalTags(tagsRaw)
	if err != nil {
		return domain.Area{}, err
	}
	area.Tags = tags
	area.DeletedAt = deletedAt
	return area, nil
}
