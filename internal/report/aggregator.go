package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Unbanked0/btcmap-api/internal/domain"
	"github.com/Unbanked0/btcmap-api/internal/geo"
	"github.com/Unbanked0/btcmap-api/internal/metrics"
	"github.com/Unbanked0/btcmap-api/internal/repository"
)

// Aggregator computes per-area daily statistics over the live element
// set and persists them through the configured write strategy.
type Aggregator struct {
	store    repository.Store
	strategy WriteStrategy
	now      func() time.Time
}

// NewAggregator wires a report aggregator.
func NewAggregator(store repository.Store, strategy WriteStrategy) *Aggregator {
	return &Aggregator{store: store, strategy: strategy, now: time.Now}
}

// Run generates one report per reportable area and returns how many
// rows were actually written. All writes share one transaction.
func (a *Aggregator) Run(ctx context.Context, counts ChangeCounts) (int, error) {
	now := a.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	elements, err := a.store.Elements().SelectAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load elements: %w", err)
	}
	live := make([]domain.Element, 0, len(elements))
	for _, element := range elements {
		if !element.Deleted() {
			live = append(live, element)
		}
	}

	areas, err := a.store.Areas().SelectAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load areas: %w", err)
	}

	written := 0
	err = a.store.InTx(ctx, func(tx repository.Store) error {
		for _, area := range areas {
			if area.Deleted() {
				continue
			}
			members, ok := a.memberElements(area, live)
			if !ok {
				continue
			}
			tags := BuildReportTags(members, now)
			wrote, err := a.strategy.Write(ctx, tx.Reports(), area.ID, today, tags, counts)
			if err != nil {
				return err
			}
			if wrote {
				written++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to write reports: %w", err)
	}

	metrics.ReportsWritten.Add(float64(written))
	log.Printf("report: wrote %d reports across %d areas", written, len(areas))
	return written, nil
}

// memberElements selects the live elements belonging to an area. ok is
// false when the area cannot be reported on at all.
func (a *Aggregator) memberElements(area domain.Area, live []domain.Element) ([]domain.Element, bool) {
	if area.Global() {
		return live, true
	}
	raw, hasBoundary := area.Boundary()
	if !hasBoundary {
		return nil, false
	}
	boundary, err := geo.ParseBoundary(raw)
	if err != nil {
		log.Printf("report: skipping area %d (%s), malformed boundary: %v", area.ID, area.URLAlias(), err)
		return nil, false
	}
	var members []domain.Element
	for _, element := range live {
		lat, lon, ok := element.OsmJSON.Coordinate()
		if !ok {
			continue
		}
		if boundary.Contains(lat, lon) {
			members = append(members, element)
		}
	}
	return members, true
}

// BuildReportTags computes the statistic tag set for one area's member
// elements at the given instant.
func BuildReportTags(elements []domain.Element, now time.Time) map[string]any {
	var (
		atms                 int64
		onchain              int64
		lightning            int64
		lightningContactless int64
		upToDate             int64
		outdated             int64
		legacy               int64
		verificationDates    []time.Time
		categories           = map[string]int64{}
	)
	for _, element := range elements {
		payload := element.OsmJSON
		if payload.IsATM() {
			atms++
		}
		if payload.AcceptsOnchain() {
			onchain++
		}
		if payload.AcceptsLightning() {
			lightning++
		}
		if payload.AcceptsLightningContactless() {
			lightningContactless++
		}
		if payload.LegacyBitcoinTag() {
			legacy++
		}
		if payload.UpToDate(now) {
			upToDate++
		} else {
			outdated++
		}
		if verified, ok := payload.VerificationDate(); ok && !verified.After(now) {
			verificationDates = append(verificationDates, verified)
		}
		if category, ok := element.Tags["category"].(string); ok && category != "" {
			categories[category]++
		}
	}

	total := int64(len(elements))
	tags := map[string]any{
		"total_elements":                       total,
		"total_atms":                           atms,
		"total_elements_onchain":               onchain,
		"total_elements_lightning":             lightning,
		"total_elements_lightning_contactless": lightningContactless,
		"up_to_date_elements":                  upToDate,
		"outdated_elements":                    outdated,
		"legacy_elements":                      legacy,
		"up_to_date_percent":                   upToDatePercent(upToDate, total),
	}
	for category, count := range categories {
		tags["total_elements_"+category] = count
	}
	if len(verificationDates) > 0 {
		tags["avg_verification_date"] = averageDate(verificationDates).Format(time.RFC3339)
	}
	return tags
}

func upToDatePercent(upToDate, total int64) int64 {
	if total == 0 {
		return 0
	}
	return upToDate * 100 / total
}

func averageDate(dates []time.Time) time.Time {
	var sum int64
	for _, d := range dates {
		sum += d.Unix()
	}
	return time.Unix(sum/int64(len(dates)), 0).UTC()
}
