package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Unbanked0/btcmap-api/internal/domain"
	"github.com/Unbanked0/btcmap-api/internal/repository"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func element(ref int64, lat, lon float64, tags map[string]any) domain.Element {
	payload := domain.OsmJSON{
		"type": "node",
		"id":   float64(ref),
		"lat":  lat,
		"lon":  lon,
	}
	if tags != nil {
		payload["tags"] = tags
	}
	return domain.Element{
		ID:      domain.ElementID{Kind: "node", Ref: ref},
		OsmJSON: payload,
	}
}

func earthArea(id int64) domain.Area {
	return domain.Area{ID: id, Tags: map[string]any{"name": "Earth", "url_alias": "earth"}}
}

func boundedArea(id int64, alias string, geoJSON string) domain.Area {
	var boundary any
	if err := json.Unmarshal([]byte(geoJSON), &boundary); err != nil {
		boundary = geoJSON
	}
	return domain.Area{ID: id, Tags: map[string]any{"url_alias": alias, "geo_json": boundary}}
}

type fakeElementRepo struct {
	rows []domain.Element
}

func (f *fakeElementRepo) SelectAll(ctx context.Context) ([]domain.Element, error) {
	return f.rows, nil
}

func (f *fakeElementRepo) SelectUpdatedSince(ctx context.Context, since time.Time, limit int) ([]domain.Element, error) {
	return nil, nil
}

func (f *fakeElementRepo) SelectByID(ctx context.Context, id domain.ElementID) (domain.Element, error) {
	return domain.Element{}, repository.ErrNotFound
}

func (f *fakeElementRepo) Insert(ctx context.Context, id domain.ElementID, osmJSON domain.OsmJSON) error {
	return nil
}

func (f *fakeElementRepo) SetOsmJSON(ctx context.Context, id domain.ElementID, osmJSON domain.OsmJSON) error {
	return nil
}

func (f *fakeElementRepo) SetDeletedAt(ctx context.Context, id domain.ElementID, at time.Time) error {
	return nil
}

func (f *fakeElementRepo) ClearDeletedAt(ctx context.Context, id domain.ElementID) error {
	return nil
}

func (f *fakeElementRepo) SetTag(ctx context.Context, id domain.ElementID, key string, value any) error {
	return nil
}

func (f *fakeElementRepo) RemoveTag(ctx context.Context, id domain.ElementID, key string) error {
	return nil
}

type fakeAreaRepo struct {
	rows []domain.Area
}

func (f *fakeAreaRepo) SelectAll(ctx context.Context) ([]domain.Area, error) { return f.rows, nil }

func (f *fakeAreaRepo) SelectByID(ctx context.Context, id int64) (domain.Area, error) {
	return domain.Area{}, repository.ErrNotFound
}

func (f *fakeAreaRepo) SelectByAlias(ctx context.Context, alias string) (domain.Area, error) {
	return domain.Area{}, repository.ErrNotFound
}

func (f *fakeAreaRepo) Insert(ctx context.Context, tags map[string]any) (domain.Area, error) {
	return domain.Area{}, nil
}

func (f *fakeAreaRepo) SetTag(ctx context.Context, id int64, key string, value any) error {
	return nil
}

func (f *fakeAreaRepo) RemoveTag(ctx context.Context, id int64, key string) error { return nil }

type fakeReportRepo struct {
	rows   []domain.Report
	nextID int64
}

func (f *fakeReportRepo) SelectAll(ctx context.Context, limit int) ([]domain.Report, error) {
	return f.rows, nil
}

func (f *fakeReportRepo) SelectByID(ctx context.Context, id int64) (domain.Report, error) {
	return domain.Report{}, repository.ErrNotFound
}

func (f *fakeReportRepo) SelectLatestByArea(ctx context.Context, areaID int64) (domain.Report, error) {
	var latest domain.Report
	found := false
	for _, r := range f.rows {
		if r.AreaID == areaID && (!found || r.ID > latest.ID) {
			latest = r
			found = true
		}
	}
	if !found {
		return domain.Report{}, repository.ErrNotFound
	}
	return latest, nil
}

func (f *fakeReportRepo) SelectByAreaAndDate(ctx context.Context, areaID int64, date time.Time) (domain.Report, error) {
	for _, r := range f.rows {
		if r.AreaID == areaID && r.Date.Equal(date) {
			return r, nil
		}
	}
	return domain.Report{}, repository.ErrNotFound
}

func (f *fakeReportRepo) SelectByAreaBetween(ctx context.Context, areaID int64, from, to time.Time) ([]domain.Report, error) {
	return nil, nil
}

func (f *fakeReportRepo) Insert(ctx context.Context, areaID int64, date time.Time, tags map[string]any) (domain.Report, error) {
	f.nextID++
	r := domain.Report{ID: f.nextID, AreaID: areaID, Date: date, Tags: tags}
	f.rows = append(f.rows, r)
	return r, nil
}

func (f *fakeReportRepo) DeleteByID(ctx context.Context, id int64) error {
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeStore struct {
	elements *fakeElementRepo
	areas    *fakeAreaRepo
	reports  *fakeReportRepo
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		elements: &fakeElementRepo{},
		areas:    &fakeAreaRepo{},
		reports:  &fakeReportRepo{},
	}
}

func (s *fakeStore) Elements() repository.ElementRepository { return s.elements }
func (s *fakeStore) Users() repository.UserRepository       { return nil }
func (s *fakeStore) Events() repository.EventRepository     { return nil }
func (s *fakeStore) Areas() repository.AreaRepository       { return s.areas }
func (s *fakeStore) Reports() repository.ReportRepository   { return s.reports }
func (s *fakeStore) Tokens() repository.TokenRepository     { return nil }

func (s *fakeStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(s)
}

func newTestAggregator(store *fakeStore, strategy WriteStrategy) *Aggregator {
	agg := NewAggregator(store, strategy)
	agg.now = func() time.Time { return testNow }
	return agg
}

func TestBuildReportTagsSingleOnchainNode(t *testing.T) {
	elements := []domain.Element{
		element(1, 50, 14, map[string]any{
			"currency:XBT":    "yes",
			"payment:onchain": "yes",
		}),
	}
	tags := BuildReportTags(elements, testNow)

	if got := tags["total_elements"]; got != int64(1) {
		t.Fatalf("total_elements = %v, want 1", got)
	}
	if got := tags["total_elements_onchain"]; got != int64(1) {
		t.Fatalf("total_elements_onchain = %v, want 1", got)
	}
	if got := tags["total_atms"]; got != int64(0) {
		t.Fatalf("total_atms = %v, want 0", got)
	}
	if got := tags["outdated_elements"]; got != int64(1) {
		t.Fatalf("outdated_elements = %v, want 1", got)
	}
	if _, present := tags["avg_verification_date"]; present {
		t.Fatal("avg_verification_date must be omitted without any verification dates")
	}
}

func TestBuildReportTagsExcludesFutureVerificationDates(t *testing.T) {
	elements := []domain.Element{
		element(1, 50, 14, map[string]any{
			"currency:XBT":            "yes",
			"check_date:currency:XBT": "2023-02-25",
		}),
		element(2, 51, 15, map[string]any{
			"currency:XBT": "yes",
			"survey:date":  "2099-01-01",
		}),
	}
	tags := BuildReportTags(elements, testNow)

	if got := tags["avg_verification_date"]; got != "2023-02-25T00:00:00Z" {
		t.Fatalf("avg_verification_date = %v, want 2023-02-25T00:00:00Z", got)
	}
	if got := tags["up_to_date_elements"]; got != int64(1) {
		t.Fatalf("up_to_date_elements = %v, want 1", got)
	}
	if got := tags["up_to_date_percent"]; got != int64(50) {
		t.Fatalf("up_to_date_percent = %v, want 50", got)
	}
}

func TestBuildReportTagsCategoryHistogram(t *testing.T) {
	cafe := element(1, 50, 14, map[string]any{"currency:XBT": "yes"})
	cafe.Tags = map[string]any{"category": "cafe"}
	otherCafe := element(2, 51, 15, map[string]any{"currency:XBT": "yes"})
	otherCafe.Tags = map[string]any{"category": "cafe"}
	atm := element(3, 52, 16, map[string]any{"currency:XBT": "yes"})
	atm.Tags = map[string]any{"category": "atm"}
	untagged := element(4, 53, 17, map[string]any{"currency:XBT": "yes"})

	tags := BuildReportTags([]domain.Element{cafe, otherCafe, atm, untagged}, testNow)

	if got := tags["total_elements_cafe"]; got != int64(2) {
		t.Fatalf("total_elements_cafe = %v, want 2", got)
	}
	if got := tags["total_elements_atm"]; got != int64(1) {
		t.Fatalf("total_elements_atm = %v, want 1", got)
	}
	if _, present := tags["total_elements_"]; present {
		t.Fatal("untagged elements must not produce an empty category column")
	}
}

func TestSnapshotStrategyIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.elements.rows = []domain.Element{element(1, 50, 14, map[string]any{"currency:XBT": "yes"})}
	store.areas.rows = []domain.Area{earthArea(1)}
	agg := newTestAggregator(store, SnapshotStrategy{})

	written, err := agg.Run(context.Background(), ChangeCounts{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if written != 1 {
		t.Fatalf("first run wrote %d, want 1", written)
	}

	written, err = agg.Run(context.Background(), ChangeCounts{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if written != 0 {
		t.Fatalf("second run wrote %d, want 0", written)
	}
	if len(store.reports.rows) != 1 {
		t.Fatalf("stored reports = %d, want 1", len(store.reports.rows))
	}
}

func TestSnapshotStrategyAppendsOnChange(t *testing.T) {
	store := newFakeStore()
	store.elements.rows = []domain.Element{element(1, 50, 14, map[string]any{"currency:XBT": "yes"})}
	store.areas.rows = []domain.Area{earthArea(1)}
	agg := newTestAggregator(store, SnapshotStrategy{})

	if _, err := agg.Run(context.Background(), ChangeCounts{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	store.elements.rows = append(store.elements.rows,
		element(2, 51, 15, map[string]any{"currency:XBT": "yes"}))
	written, err := agg.Run(context.Background(), ChangeCounts{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if written != 1 {
		t.Fatalf("second run wrote %d, want 1", written)
	}
	if len(store.reports.rows) != 2 {
		t.Fatalf("stored reports = %d, want 2", len(store.reports.rows))
	}
}

func TestCumulativeStrategyFoldsCountersIntoSameDay(t *testing.T) {
	store := newFakeStore()
	store.elements.rows = []domain.Element{element(1, 50, 14, map[string]any{"currency:XBT": "yes"})}
	store.areas.rows = []domain.Area{earthArea(1)}
	agg := newTestAggregator(store, CumulativeStrategy{})

	if _, err := agg.Run(context.Background(), ChangeCounts{Created: 2, Updated: 1}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := agg.Run(context.Background(), ChangeCounts{Created: 1, Deleted: 3}); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(store.reports.rows) != 1 {
		t.Fatalf("stored reports = %d, want a single row per day", len(store.reports.rows))
	}
	tags := store.reports.rows[0].Tags
	if got := tags["elements_created"]; got != int64(3) {
		t.Fatalf("elements_created = %v, want 3", got)
	}
	if got := tags["elements_updated"]; got != int64(1) {
		t.Fatalf("elements_updated = %v, want 1", got)
	}
	if got := tags["elements_deleted"]; got != int64(3) {
		t.Fatalf("elements_deleted = %v, want 3", got)
	}
}

func TestCumulativeStrategyNoOpWhenNothingChanged(t *testing.T) {
	store := newFakeStore()
	store.elements.rows = []domain.Element{element(1, 50, 14, map[string]any{"currency:XBT": "yes"})}
	store.areas.rows = []domain.Area{earthArea(1)}
	agg := newTestAggregator(store, CumulativeStrategy{})

	if _, err := agg.Run(context.Background(), ChangeCounts{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstID := store.reports.rows[0].ID

	written, err := agg.Run(context.Background(), ChangeCounts{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if written != 0 {
		t.Fatalf("second run wrote %d, want 0", written)
	}
	if store.reports.rows[0].ID != firstID {
		t.Fatal("identical rerun must not replace the stored row")
	}
}

func TestRunScopesElementsByBoundary(t *testing.T) {
	store := newFakeStore()
	store.elements.rows = []domain.Element{
		element(1, 50, 14, map[string]any{"currency:XBT": "yes"}),
		element(2, 0, 0, map[string]any{"currency:XBT": "yes"}),
	}
	store.areas.rows = []domain.Area{
		earthArea(1),
		boundedArea(2, "cz", `{"type":"Polygon","coordinates":[[[13,49],[15,49],[15,51],[13,51],[13,49]]]}`),
	}
	agg := newTestAggregator(store, SnapshotStrategy{})

	if _, err := agg.Run(context.Background(), ChangeCounts{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	byArea := map[int64]domain.Report{}
	for _, r := range store.reports.rows {
		byArea[r.AreaID] = r
	}
	if got := byArea[1].Tags["total_elements"]; got != int64(2) {
		t.Fatalf("earth total_elements = %v, want 2", got)
	}
	if got := byArea[2].Tags["total_elements"]; got != int64(1) {
		t.Fatalf("bounded total_elements = %v, want 1", got)
	}
}

func TestRunSkipsMalformedAndBoundaryLessAreas(t *testing.T) {
	store := newFakeStore()
	store.elements.rows = []domain.Element{element(1, 50, 14, map[string]any{"currency:XBT": "yes"})}
	store.areas.rows = []domain.Area{
		earthArea(1),
		boundedArea(2, "broken", `{"type":"Nonsense"}`),
		{ID: 3, Tags: map[string]any{"url_alias": "no-boundary"}},
	}
	agg := newTestAggregator(store, SnapshotStrategy{})

	written, err := agg.Run(context.Background(), ChangeCounts{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if written != 1 {
		t.Fatalf("written = %d, want only the global report", written)
	}
	if store.reports.rows[0].AreaID != 1 {
		t.Fatalf("report area = %d, want 1", store.reports.rows[0].AreaID)
	}
}

func TestRunIgnoresDeletedElements(t *testing.T) {
	store := newFakeStore()
	deletedAt := testNow.AddDate(0, 0, -1)
	gone := element(2, 51, 15, map[string]any{"currency:XBT": "yes"})
	gone.DeletedAt = &deletedAt
	store.elements.rows = []domain.Element{
		element(1, 50, 14, map[string]any{"currency:XBT": "yes"}),
		gone,
	}
	store.areas.rows = []domain.Area{earthArea(1)}
	agg := newTestAggregator(store, SnapshotStrategy{})

	if _, err := agg.Run(context.Background(), ChangeCounts{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := store.reports.rows[0].Tags["total_elements"]; got != int64(1) {
		t.Fatalf("total_elements = %v, want 1", got)
	}
}
