package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Unbanked0/btcmap-api/internal/domain"
)

// reportRepository implements ReportRepository interface
type reportRepository struct {
	q Querier
}

const reportColumns = "id, area_id, date, tags, created_at"

func (r *reportRepository) SelectAll(ctx context.Context, limit int) ([]domain.Report, error) {
	rows, err := r.q.Query(ctx,
		"SELECT "+reportColumns+" FROM report ORDER BY date DESC, id DESC LIMIT $1",
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select reports: %w", err)
	}
	defer rows.Close()
	return scanReports(rows)
}

func (r *reportRepository) SelectByID(ctx context.Context, id int64) (domain.Report, error) {
	row := r.q.QueryRow(ctx, "SELECT "+reportColumns+" FROM report WHERE id = $1", id)
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Report{}, fmt.Errorf("report %d: %w", id, ErrNotFound)
		}
		return domain.Report{}, fmt.Errorf("failed to select report %d: %w", id, err)
	}
	return report, nil
}

// SelectLatestByArea returns the most recent report for an area.
func (r *reportRepository) SelectLatestByArea(ctx context.Context, areaID int64) (domain.Report, error) {
	row := r.q.QueryRow(ctx,
		"SELECT "+reportColumns+" FROM report WHERE area_id = $1 ORDER BY date DESC, id DESC LIMIT 1",
		areaID,
	)
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Report{}, fmt.Errorf("latest report for area %d: %w", areaID, ErrNotFound)
		}
		return domain.Report{}, fmt.Errorf("failed to select latest report for area %d: %w", areaID, err)
	}
	return report, nil
}

func (r *reportRepository) SelectByAreaAndDate(ctx context.Context, areaID int64, date time.Time) (domain.Report, error) {
	row := r.q.QueryRow(ctx,
		"SELECT "+reportColumns+" FROM report WHERE area_id = $1 AND date = $2 ORDER BY id DESC LIMIT 1",
		areaID, date,
	)
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Report{}, fmt.Errorf("report for area %d on %s: %w", areaID, date.Format("2006-01-02"), ErrNotFound)
		}
		return domain.Report{}, fmt.Errorf("failed to select report for area %d: %w", areaID, err)
	}
	return report, nil
}

func (r *reportRepository) SelectByAreaBetween(ctx context.Context, areaID int64, from, to time.Time) ([]domain.Report, error) {
	rows, err := r.q.Query(ctx,
		"SELECT "+reportColumns+" FROM report WHERE area_id = $1 AND date >= $2 AND date <= $3 ORDER BY date, id",
		areaID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select reports for area %d: %w", areaID, err)
	}
	defer rows.Close()
	return scanReports(rows)
}

func (r *reportRepository) Insert(ctx context.Context, areaID int64, date time.Time, tags map[string]any) (domain.Report, error) {
	encoded, err := marshalTags(tags)
	if err != nil {
		return domain.Report{}, err
	}
	row := r.q.QueryRow(ctx,
		"INSERT INTO report (area_id, date, tags) VALUES ($1, $2, $3) RETURNING "+reportColumns,
		areaID, date, encoded,
	)
	report, err := scanReport(row)
	if err != nil {
		return domain.Report{}, fmt.Errorf("failed to insert report for area %d: %w", areaID, err)
	}
	return report, nil
}

func (r *reportRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, "DELETE FROM report WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete report %d: %w", id, err)
	}
	return nil
}

func scanReports(rows pgx.Rows) ([]domain.Report, error) {
	var reports []domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report rows: %w", err)
	}
	return reports, nil
}

func scanReport(row pgx.Row) (domain.Report, error) {
	var (
		report  domain.Report
		tagsRaw []byte
	)
	if err := row.Scan(&report.ID, &report.AreaID, &report.Date, &tagsRaw, &report.CreatedAt); err != nil {
		return domain.Report{}, err
	}

	tags, err := unmarshalTags(tagsRaw)
	if err != nil {
		return domain.Report{}, err
	}
	report.Tags = tags
	return report, nil
}
