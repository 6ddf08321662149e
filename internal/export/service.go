package export

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/Unbanked0/btcmap-api/internal/domain"
	"github.com/Unbanked0/btcmap-api/internal/repository"
)

const reportSheet = "Reports"

// Service writes report history to spreadsheet artifacts for offline
// analysis.
type Service struct {
	store     repository.Store
	exportDir string
}

type Option func(*Service)

// WithExportDirectory overrides where artifacts are written.
func WithExportDirectory(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.exportDir = filepath.Clean(dir)
		}
	}
}

func NewService(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		exportDir: "./exports",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportReports writes one area's reports between from and to (inclusive)
// to an xlsx file and returns its path. Columns are the union of all tag
// keys across the exported rows.
func (s *Service) ExportReports(ctx context.Context, alias string, from, to time.Time) (string, error) {
	area, err := s.store.Areas().SelectByAlias(ctx, alias)
	if err != nil {
		return "", fmt.Errorf("failed to load area %q: %w", alias, err)
	}
	reports, err := s.store.Reports().SelectByAreaBetween(ctx, area.ID, from, to)
	if err != nil {
		return "", fmt.Errorf("failed to load reports for area %q: %w", alias, err)
	}
	if len(reports) == 0 {
		return "", fmt.Errorf("no reports for area %q between %s and %s", alias, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	columns := tagColumns(reports)

	f := excelize.NewFile()
	defer f.Close()
	sheet, err := f.NewSheet(reportSheet)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(sheet)
	f.DeleteSheet("Sheet1")

	if err := setCell(f, 1, 1, "date"); err != nil {
		return "", err
	}
	for i, column := range columns {
		if err := setCell(f, i+2, 1, column); err != nil {
			return "", err
		}
	}
	for rowIdx, report := range reports {
		if err := setCell(f, 1, rowIdx+2, report.Date.Format("2006-01-02")); err != nil {
			return "", err
		}
		for colIdx, column := range columns {
			if err := setCell(f, colIdx+2, rowIdx+2, tagCell(report, column)); err != nil {
				return "", err
			}
		}
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(s.exportDir, fmt.Sprintf("reports-%s-%s.xlsx", alias, uuid.New()))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}

	log.Printf("export: wrote %d reports for %q to %s", len(reports), alias, path)
	return path, nil
}

// tagColumns collects the sorted union of tag keys across all reports.
func tagColumns(reports []domain.Report) []string {
	seen := map[string]struct{}{}
	for _, report := range reports {
		for key := range report.Tags {
			seen[key] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}

func tagCell(report domain.Report, column string) any {
	value, exists := report.Tags[column]
	if !exists {
		return ""
	}
	return value
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to address cell: %w", err)
	}
	if err := f.SetCellValue(reportSheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}
