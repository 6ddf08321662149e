package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Unbanked0/btcmap-api/internal/domain"
	"github.com/Unbanked0/btcmap-api/internal/repository"
)

// ChangeCounts carries the effective change totals of the sync cycle a
// report run follows. Standalone report runs pass the zero value.
type ChangeCounts struct {
	Created int
	Updated int
	Deleted int
}

// WriteStrategy decides whether and how one area's computed tags become
// a report row. Exactly one strategy is active per deployment.
type WriteStrategy interface {
	Write(ctx context.Context, repo repository.ReportRepository, areaID int64, date time.Time, tags map[string]any, counts ChangeCounts) (bool, error)
}

// SnapshotStrategy appends a new row only when the computed tags differ
// from the area's latest stored report, giving a compact change history.
type SnapshotStrategy struct{}

func (SnapshotStrategy) Write(ctx context.Context, repo repository.ReportRepository, areaID int64, date time.Time, tags map[string]any, _ ChangeCounts) (bool, error) {
	latest, err := repo.SelectLatestByArea(ctx, areaID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return false, fmt.Errorf("failed to load latest report for area %d: %w", areaID, err)
	default:
		if domain.TagsEqual(latest.Tags, tags) {
			return false, nil
		}
	}
	if _, err := repo.Insert(ctx, areaID, date, tags); err != nil {
		return false, fmt.Errorf("failed to insert report for area %d: %w", areaID, err)
	}
	return true, nil
}

// CumulativeStrategy maintains at most one row per area and day and
// folds the cycle's change counters into it, so repeated runs within a
// day accumulate instead of duplicating.
type CumulativeStrategy struct{}

func (CumulativeStrategy) Write(ctx context.Context, repo repository.ReportRepository, areaID int64, date time.Time, tags map[string]any, counts ChangeCounts) (bool, error) {
	existing, err := repo.SelectByAreaAndDate(ctx, areaID, date)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("failed to load today's report for area %d: %w", areaID, err)
	}

	merged := make(map[string]any, len(tags)+3)
	for k, v := range tags {
		merged[k] = v
	}
	if err == nil {
		merged["elements_created"] = counterValue(existing.Tags, "elements_created") + int64(counts.Created)
		merged["elements_updated"] = counterValue(existing.Tags, "elements_updated") + int64(counts.Updated)
		merged["elements_deleted"] = counterValue(existing.Tags, "elements_deleted") + int64(counts.Deleted)
		if domain.TagsEqual(existing.Tags, merged) {
			return false, nil
		}
		if err := repo.DeleteByID(ctx, existing.ID); err != nil {
			return false, fmt.Errorf("failed to replace today's report for area %d: %w", areaID, err)
		}
	} else {
		merged["elements_created"] = int64(counts.Created)
		merged["elements_updated"] = int64(counts.Updated)
		merged["elements_deleted"] = int64(counts.Deleted)
	}

	if _, err := repo.Insert(ctx, areaID, date, merged); err != nil {
		return false, fmt.Errorf("failed to insert report for area %d: %w", areaID, err)
	}
	return true, nil
}

// counterValue reads an accumulated counter from stored tags, tolerating
// the float64 shape JSONB round trips produce.
func counterValue(tags map[string]any, key string) int64 {
	switch n := tags[key].(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
