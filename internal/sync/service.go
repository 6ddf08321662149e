package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Unbanked0/btcmap-api/internal/domain"
	"github.com/Unbanked0/btcmap-api/internal/metrics"
	"github.com/Unbanked0/btcmap-api/internal/notify"
	"github.com/Unbanked0/btcmap-api/internal/osm"
	"github.com/Unbanked0/btcmap-api/internal/repository"
)

// ErrContradiction signals that the secondary source still reports an
// element the primary source dropped. The primary fetch cannot be
// trusted; continuing would silently destroy valid data, so callers must
// treat this as fatal.
var ErrContradiction = errors.New("secondary source contradicts upstream deletion")

// Fetcher is the upstream dataset fetch collaborator.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.OsmJSON, error)
}

// Verifier is the secondary verification fetch collaborator used during
// the deletion pass.
type Verifier interface {
	Element(ctx context.Context, kind string, ref int64) (domain.OsmJSON, error)
}

// ActorResolver resolves external user ids to cached local records.
type ActorResolver interface {
	ResolveAll(ctx context.Context, ids []int64) map[int64]domain.User
}

// Summary reports the effective changes of one reconciliation cycle.
type Summary struct {
	Created int
	Updated int
	Deleted int
}

// Service is the reconciler: it diffs a freshly fetched dataset against
// the stored snapshot and applies the minimal necessary writes, one
// audit event per effective change, inside a single transaction.
type Service struct {
	store    repository.Store
	fetcher  Fetcher
	verifier Verifier
	resolver ActorResolver
	notifier notify.Notifier
	guard    *Guard
	now      func() time.Time
}

// NewService wires a reconciler.
func NewService(
	store repository.Store,
	fetcher Fetcher,
	verifier Verifier,
	resolver ActorResolver,
	notifier notify.Notifier,
	guard *Guard,
) *Service {
	return &Service{
		store:    store,
		fetcher:  fetcher,
		verifier: verifier,
		resolver: resolver,
		notifier: notifier,
		guard:    guard,
		now:      time.Now,
	}
}

// plannedChange is one staged write, fully determined before the
// transaction opens so no network call runs while it is held.
type plannedChange struct {
	kind    domain.EventType
	id      domain.ElementID
	payload domain.OsmJSON // fresh payload; stored payload for deletes
	revive  bool
	emit    bool // whether an audit event is due
	actorID int64
}

// Run executes one reconciliation cycle.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	fresh, err := s.fetcher.Fetch(ctx)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("fetch_error").Inc()
		return Summary{}, fmt.Errorf("failed to fetch upstream dataset: %w", err)
	}
	log.Printf("sync: fetched %d elements", len(fresh))

	if err := s.guard.Validate(fresh); err != nil {
		metrics.SyncRuns.WithLabelValues("rejected").Inc()
		s.notifier.Send(ctx, fmt.Sprintf("Sync aborted: %v", err))
		return Summary{}, err
	}

	snapshot, err := s.store.Elements().SelectAll(ctx)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("store_error").Inc()
		return Summary{}, fmt.Errorf("failed to load element snapshot: %w", err)
	}
	log.Printf("sync: loaded %d cached elements", len(snapshot))

	stored := make(map[string]domain.Element, len(snapshot))
	for _, element := range snapshot {
		stored[element.ID.String()] = element
	}
	freshKeys := make(map[string]struct{}, len(fresh))
	for _, payload := range fresh {
		if id, ok := payload.ElementID(); ok {
			freshKeys[id.String()] = struct{}{}
		}
	}

	plans, err := s.planDeletions(ctx, snapshot, freshKeys)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("contradiction").Inc()
		return Summary{}, err
	}
	plans = append(plans, s.planUpserts(fresh, stored)...)

	actorIDs := make([]int64, 0, len(plans))
	for _, plan := range plans {
		if plan.emit {
			actorIDs = append(actorIDs, plan.actorID)
		}
	}
	actors := s.resolver.ResolveAll(ctx, actorIDs)

	var (
		summary  Summary
		messages []string
	)
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		now := s.now().UTC()
		for _, plan := range plans {
			actor := actors[plan.actorID]
			switch plan.kind {
			case domain.EventTypeDelete:
				if err := s.applyDelete(ctx, tx, plan, actor, now); err != nil {
					return err
				}
				summary.Deleted++
				messages = append(messages, changeMessage(plan, actor))
			case domain.EventTypeCreate:
				if err := s.applyCreate(ctx, tx, plan, actor, now); err != nil {
					return err
				}
				summary.Created++
				messages = append(messages, changeMessage(plan, actor))
			case domain.EventTypeUpdate:
				if err := s.applyUpdate(ctx, tx, plan, actor, now); err != nil {
					return err
				}
				if plan.emit {
					summary.Updated++
					messages = append(messages, changeMessage(plan, actor))
				}
			}
		}
		return nil
	})
	if err != nil {
		metrics.SyncRuns.WithLabelValues("store_error").Inc()
		return Summary{}, fmt.Errorf("failed to commit reconciliation: %w", err)
	}

	// Best-effort, after the transaction is durable.
	for _, message := range messages {
		s.notifier.Send(ctx, message)
	}

	metrics.SyncRuns.WithLabelValues("ok").Inc()
	metrics.ElementsCreated.Add(float64(summary.Created))
	metrics.ElementsUpdated.Add(float64(summary.Updated))
	metrics.ElementsDeleted.Add(float64(summary.Deleted))
	metrics.LastSyncUnixtime.SetToCurrentTime()

	log.Printf("sync: created %d, updated %d, deleted %d", summary.Created, summary.Updated, summary.Deleted)
	return summary, nil
}

// planDeletions stages every stored element missing upstream, running
// the secondary verification fetches before any transaction opens. A
// verified contradiction aborts the whole cycle.
func (s *Service) planDeletions(ctx context.Context, snapshot []domain.Element, freshKeys map[string]struct{}) ([]plannedChange, error) {
	var plans []plannedChange
	for _, element := range snapshot {
		if _, present := freshKeys[element.ID.String()]; present {
			continue
		}
		if element.Deleted() {
			continue
		}

		plan := plannedChange{
			kind:    domain.EventTypeDelete,
			id:      element.ID,
			payload: element.OsmJSON,
			emit:    true,
			actorID: element.OsmJSON.UID(),
		}

		current, err := s.verifier.Element(ctx, element.ID.Kind, element.ID.Ref)
		switch {
		case err == nil:
			if current.Tag("currency:XBT") == "yes" {
				return nil, fmt.Errorf("element %s: %w", element.ID, ErrContradiction)
			}
			// The verification response carries the freshest attribution.
			plan.payload = current
			plan.actorID = current.UID()
		case errors.Is(err, osm.ErrNotFound):
			// Definitively gone upstream; stored attribution stands.
		default:
			log.Printf("sync: verification fetch for %s failed, deleting with stored attribution: %v", element.ID, err)
		}

		plans = append(plans, plan)
	}
	return plans, nil
}

// planUpserts stages creates, updates and revivals. Revival and payload
// change coalesce into at most one staged change per element.
func (s *Service) planUpserts(fresh []domain.OsmJSON, stored map[string]domain.Element) []plannedChange {
	var plans []plannedChange
	for _, payload := range fresh {
		id, ok := payload.ElementID()
		if !ok {
			log.Printf("sync: skipping upstream item without a usable id")
			continue
		}

		element, exists := stored[id.String()]
		if !exists {
			plans = append(plans, plannedChange{
				kind:    domain.EventTypeCreate,
				id:      id,
				payload: payload,
				emit:    true,
				actorID: payload.UID(),
			})
			continue
		}

		changed := !element.OsmJSON.Equal(payload)
		if !changed && !element.Deleted() {
			continue
		}
		plans = append(plans, plannedChange{
			kind:    domain.EventTypeUpdate,
			id:      id,
			payload: payload,
			revive:  element.Deleted(),
			emit:    changed,
			actorID: payload.UID(),
		})
	}
	return plans
}

func (s *Service) applyDelete(ctx context.Context, tx repository.Store, plan plannedChange, actor domain.User, now time.Time) error {
	if _, err := tx.Events().Insert(ctx, s.newEvent(plan, actor, now)); err != nil {
		return err
	}
	return tx.Elements().SetDeletedAt(ctx, plan.id, now)
}

func (s *Service) applyCreate(ctx context.Context, tx repository.Store, plan plannedChange, actor domain.User, now time.Time) error {
	if err := tx.Elements().Insert(ctx, plan.id, plan.payload); err != nil {
		return err
	}
	_, err := tx.Events().Insert(ctx, s.newEvent(plan, actor, now))
	return err
}

func (s *Service) applyUpdate(ctx context.Context, tx repository.Store, plan plannedChange, actor domain.User, now time.Time) error {
	if plan.revive {
		if err := tx.Elements().ClearDeletedAt(ctx, plan.id); err != nil {
			return err
		}
	}
	if !plan.emit {
		return nil
	}
	if err := tx.Elements().SetOsmJSON(ctx, plan.id, plan.payload); err != nil {
		return err
	}
	_, err := tx.Events().Insert(ctx, s.newEvent(plan, actor, now))
	return err
}

func (s *Service) newEvent(plan plannedChange, actor domain.User, now time.Time) domain.ElementEvent {
	lat, lon, _ := plan.payload.Coordinate()
	name := actor.DisplayName()
	if name == "" {
		name = plan.payload.Username()
	}
	return domain.ElementEvent{
		Date:        now,
		ElementID:   plan.id,
		ElementLat:  lat,
		ElementLon:  lon,
		ElementName: plan.payload.Name(),
		Type:        plan.kind,
		UserID:      actor.ID,
		UserName:    name,
	}
}

func changeMessage(plan plannedChange, actor domain.User) string {
	name := plan.payload.Name()
	if name == "" {
		name = plan.id.String()
	}
	who := actor.DisplayName()
	if who == "" {
		who = plan.payload.Username()
	}
	if who == "" {
		who = "an unknown user"
	}
	switch plan.kind {
	case domain.EventTypeCreate:
		return fmt.Sprintf("%s added %s https://btcmap.org/merchant/%s", who, name, plan.id)
	case domain.EventTypeUpdate:
		return fmt.Sprintf("%s updated %s https://btcmap.org/merchant/%s", who, name, plan.id)
	default:
		return fmt.Sprintf("%s removed %s https://btcmap.org/merchant/%s", who, name, plan.id)
	}
}
