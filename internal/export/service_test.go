package export

import (
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Unbanked0/btcmap-api/internal/domain"
	"github.com/Unbanked0/btcmap-api/internal/repository"
)

type fakeAreaRepo struct {
	area domain.Area
}

func (f *fakeAreaRepo) SelectAll(ctx context.Context) ([]domain.Area, error) { return nil, nil }

func (f *fakeAreaRepo) SelectByID(ctx context.Context, id int64) (domain.Area, error) {
	return f.area, nil
}

func (f *fakeAreaRepo) SelectByAlias(ctx context.Context, alias string) (domain.Area, error) {
	if f.area.URLAlias() != alias {
		return domain.Area{}, repository.ErrNotFound
	}
	return f.area, nil
}

func (f *fakeAreaRepo) Insert(ctx context.Context, tags map[string]any) (domain.Area, error) {
	return domain.Area{}, nil
}

func (f *fakeAreaRepo) SetTag(ctx context.Context, id int64, key string, value any) error {
	return nil
}

func (f *fakeAreaRepo) RemoveTag(ctx context.Context, id int64, key string) error { return nil }

type fakeReportRepo struct {
	rows []domain.Report
}

func (f *fakeReportRepo) SelectAll(ctx context.Context, limit int) ([]domain.Report, error) {
	return f.rows, nil
}

func (f *fakeReportRepo) SelectByID(ctx context.Context, id int64) (domain.Report, error) {
	return domain.Report{}, repository.ErrNotFound
}

func (f *fakeReportRepo) SelectLatestByArea(ctx context.Context, areaID int64) (domain.Report, error) {
	return domain.Report{}, repository.ErrNotFound
}

func (f *fakeReportRepo) SelectByAreaAndDate(ctx context.Context, areaID int64, date time.Time) (domain.Report, error) {
	return domain.Report{}, repository.ErrNotFound
}

func (f *fakeReportRepo) SelectByAreaBetween(ctx context.Context, areaID int64, from, to time.Time) ([]domain.Report, error) {
	var out []domain.Report
	for _, r := range f.rows {
		if r.AreaID == areaID && !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) Insert(ctx context.Context, areaID int64, date time.Time, tags map[string]any) (domain.Report, error) {
	return domain.Report{}, nil
}

func (f *fakeReportRepo) DeleteByID(ctx context.Context, id int64) error { return nil }

type fakeStore struct {
	areas   *fakeAreaRepo
	reports *fakeReportRepo
}

func (s *fakeStore) Elements() repository.ElementRepository { return nil }
func (s *fakeStore) Users() repository.UserRepository       { return nil }
func (s *fakeStore) Events() repository.EventRepository     { return nil }
func (s *fakeStore) Areas() repository.AreaRepository       { return s.areas }
func (s *fakeStore) Reports() repository.ReportRepository   { return s.reports }
func (s *fakeStore) Tokens() repository.TokenRepository     { return nil }

func (s *fakeStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(s)
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestExportReportsWritesSpreadsheet(t *testing.T) {
	store := &fakeStore{
		areas: &fakeAreaRepo{area: domain.Area{ID: 1, Tags: map[string]any{"url_alias": "earth"}}},
		reports: &fakeReportRepo{rows: []domain.Report{
			{ID: 1, AreaID: 1, Date: day(1), Tags: map[string]any{"total_elements": int64(10)}},
			{ID: 2, AreaID: 1, Date: day(2), Tags: map[string]any{"total_elements": int64(11), "total_atms": int64(2)}},
		}},
	}
	svc := NewService(store, WithExportDirectory(t.TempDir()))

	path, err := svc.ExportReports(context.Background(), "earth", day(1), day(5))
	if err != nil {
		t.Fatalf("ExportReports: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus two reports", len(rows))
	}
	// Header carries the sorted union of tag keys.
	if rows[0][0] != "date" || rows[0][1] != "total_atms" || rows[0][2] != "total_elements" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "2024-03-01" {
		t.Fatalf("first row date = %q", rows[1][0])
	}
	// A report missing a column gets an empty cell.
	if len(rows[1]) > 1 && rows[1][1] != "" {
		t.Fatalf("first row total_atms = %q, want empty", rows[1][1])
	}
}

func TestExportReportsUnknownArea(t *testing.T) {
	store := &fakeStore{
		areas:   &fakeAreaRepo{area: domain.Area{ID: 1, Tags: map[string]any{"url_alias": "earth"}}},
		reports: &fakeReportRepo{},
	}
	svc := NewService(store, WithExportDirectory(t.TempDir()))

	if _, err := svc.ExportReports(context.Background(), "atlantis", day(1), day(5)); err == nil {
		t.Fatal("want error for unknown area")
	}
}

func TestExportReportsEmptyRange(t *testing.T) {
	store := &fakeStore{
		areas:   &fakeAreaRepo{area: domain.Area{ID: 1, Tags: map[string]any{"url_alias": "earth"}}},
		reports: &fakeReportRepo{},
	}
	svc := NewService(store, WithExportDirectory(t.TempDir()))

	if _, err := svc.ExportReports(context.Background(), "earth", day(1), day(5)); err == nil {
		t.Fatal("want error when no reports fall in the range")
	}
}
