package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Unbanked0/btcmap-api/internal/domain"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Querier is the subset of pgx shared by pgxpool.Pool and pgx.Tx, so the
// same repository code runs inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the per-table repositories. InTx yields a Store whose
// repositories are bound to a single transaction; the callback's error
// rolls everything back.
type Store interface {
	Elements() ElementRepository
	Users() UserRepository
	Events() EventRepository
	Areas() AreaRepository
	Reports() ReportRepository
	Tokens() TokenRepository
	InTx(ctx context.Context, fn func(Store) error) error
}

// ElementRepository defines the interface for element operations
type ElementRepository interface {
	SelectAll(ctx context.Context) ([]domain.Element, error)
	SelectUpdatedSince(ctx context.Context, since time.Time, limit int) ([]domain.Element, error)
	SelectByID(ctx context.Context, id domain.ElementID) (domain.Element, error)
	Insert(ctx context.Context, id domain.ElementID, osmJSON domain.OsmJSON) error
	SetOsmJSON(ctx context.Context, id domain.ElementID, osmJSON domain.OsmJSON) error
	SetDeletedAt(ctx context.Context, id domain.ElementID, at time.Time) error
	ClearDeletedAt(ctx context.Context, id domain.ElementID) error
	SetTag(ctx context.Context, id domain.ElementID, key string, value any) error
	RemoveTag(ctx context.Context, id domain.ElementID, key string) error
}

// UserRepository defines the interface for cached user profiles
type UserRepository interface {
	SelectAll(ctx context.Context, limit int) ([]domain.User, error)
	SelectByID(ctx context.Context, id int64) (domain.User, error)
	Insert(ctx context.Context, id int64, osmJSON domain.OsmJSON) error
	SetTag(ctx context.Context, id int64, key string, value any) error
	RemoveTag(ctx context.Context, id int64, key string) error
}

// EventRepository defines the interface for the append-only audit log
type EventRepository interface {
	Insert(ctx context.Context, ev domain.ElementEvent) (domain.ElementEvent, error)
	SelectAll(ctx context.Context, since *time.Time, limit int) ([]domain.ElementEvent, error)
	SelectByID(ctx context.Context, id int64) (domain.ElementEvent, error)
}

// AreaRepository defines the interface for area operations
type AreaRepository interface {
	SelectAll(ctx context.Context) ([]domain.Area, error)
	SelectByID(ctx context.Context, id int64) (domain.Area, error)
	SelectByAlias(ctx context.Context, alias string) (domain.Area, error)
	Insert(ctx context.Context, tags map[string]any) (domain.Area, error)
	SetTag(ctx context.Context, id int64, key string, value any) error
	RemoveTag(ctx context.Context, id int64, key string) error
}

// ReportRepository defines the interface for report operations
type ReportRepository interface {
	SelectAll(ctx context.Context, limit int) ([]domain.Report, error)
	SelectByID(ctx context.Context, id int64) (domain.Report, error)
	SelectLatestByArea(ctx context.Context, areaID int64) (domain.Report, error)
	SelectByAreaAndDate(ctx context.Context, areaID int64, date time.Time) (domain.Report, error)
	SelectByAreaBetween(ctx context.Context, areaID int64, from, to time.Time) ([]domain.Report, error)
	Insert(ctx context.Context, areaID int64, date time.Time, tags map[string]any) (domain.Report, error)
	DeleteByID(ctx context.Context, id int64) error
}

// TokenRepository defines the interface for admin token lookups
type TokenRepository interface {
	SelectBySecret(ctx context.Context, secret string) (domain.Token, error)
	Insert(ctx context.Context, userID int64, secret string) (domain.Token, error)
}
