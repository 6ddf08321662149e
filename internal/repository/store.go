package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Unbanked0/btcmap-api/internal/db"
	"github.com/Unbanked0/btcmap-api/internal/domain"
)

// pgStore implements Store over a pgx Querier. When bound to the pool it
// can open transactions; a tx-bound store cannot nest another one.
type pgStore struct {
	q    Querier
	conn *db.Connection
}

// NewStore creates a pool-bound store.
func NewStore(conn *db.Connection) Store {
	return &pgStore{q: conn.Pool, conn: conn}
}

func (s *pgStore) Elements() ElementRepository { return &elementRepository{q: s.q} }
func (s *pgStore) Users() UserRepository       { return &userRepository{q: s.q} }
func (s *pgStore) Events() EventRepository     { return &eventRepository{q: s.q} }
func (s *pgStore) Areas() AreaRepository       { return &areaRepository{q: s.q} }
func (s *pgStore) Reports() ReportRepository   { return &reportRepository{q: s.q} }
func (s *pgStore) Tokens() TokenRepository     { return &tokenRepository{q: s.q} }

func (s *pgStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.conn == nil {
		return errors.New("nested transactions are not supported")
	}
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&pgStore{q: tx})
	})
}

func marshalTags(tags map[string]any) ([]byte, error) {
	if tags == nil {
		tags = map[string]any{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return data, nil
}

func unmarshalTags(raw []byte) (map[string]any, error) {
	tags := map[string]any{}
	if len(raw) == 0 {
		return tags, nil
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}

func unmarshalOsmJSON(raw []byte) (domain.OsmJSON, error) {
	payload := domain.OsmJSON{}
	if len(raw) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode osm_json: %w", err)
	}
	return payload, nil
}
