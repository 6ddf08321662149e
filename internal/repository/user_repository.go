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

// userRepository implements UserRepository interface
type userRepository struct {
	q Querier
}

const userColumns = "id, osm_json, tags, created_at, updated_at"

func (r *userRepository) SelectAll(ctx context.Context, limit int) ([]domain.User, error) {
	rows, err := r.q.Query(ctx,
		"SELECT "+userColumns+" FROM osm_user ORDER BY id LIMIT $1",
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return users, nil
}

func (r *userRepository) SelectByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.q.QueryRow(ctx, "SELECT "+userColumns+" FROM osm_user WHERE id = $1", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("failed to select user %d: %w", id, err)
	}
	return user, nil
}

// Insert persists a fetched profile. A concurrent insert for the same id
// is not an error: the unique key absorbs the race and the caller
// re-reads the winning row.
func (r *userRepository) Insert(ctx context.Context, id int64, osmJSON domain.OsmJSON) error {
	payload, err := json.Marshal(osmJSON)
	if err != nil {
		return fmt.Errorf("failed to marshal user osm_json: %w", err)
	}
	if _, err := r.q.Exec(ctx,
		"INSERT INTO osm_user (id, osm_json) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING",
		id, payload,
	); err != nil {
		return fmt.Errorf("failed to insert user %d: %w", id, err)
	}
	return nil
}

func (r *userRepository) SetTag(ctx context.Context, id int64, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal tag value: %w", err)
	}
	if _, err := r.q.Exec(ctx,
		"UPDATE osm_user SET tags = jsonb_set(tags, $2::text[], $3::jsonb, true), updated_at = now() WHERE id = $1",
		id, []string{key}, encoded,
	); err != nil {
		return fmt.Errorf("failed to set tag %s on user %d: %w", key, id, err)
	}
	return nil
}

func (r *userRepository) RemoveTag(ctx context.Context, id int64, key string) error {
	if _, err := r.q.Exec(ctx,
		"UPDATE osm_user SET tags = tags - $2, updated_at = now() WHERE id = $1",
		id, key,
	); err != nil {
		return fmt.Errorf("failed to remove tag %s from user %d: %w", key, id, err)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		id         int64
		osmJSONRaw []byte
		tagsRaw    []byte
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&id, &osmJSONRaw, &tagsRaw, &createdAt, &updatedAt); err != nil {
		return domain.User{}, err
	}

	osmJSON, err := unmarshalOsmJSON(osmJSONRaw)
	if err != nil {
		return domain.User{}, err
	}
	tags, err := unmarshalTags(tagsRaw)
	if err != nil {
		return domain.User{}, err
	}

	return domain.User{
		ID:        id,
		OsmJSON:   osmJSON,
		Tags:      tags,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}
