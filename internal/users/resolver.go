package users

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Unbanked0/btcmap-api/internal/domain"
	"github.com/Unbanked0/btcmap-api/internal/repository"
)

// ProfileAPI is the external profile lookup collaborator.
type ProfileAPI interface {
	User(ctx context.Context, id int64) (domain.OsmJSON, error)
}

// Resolver returns cached local user records for external user ids,
// fetching and persisting profiles on first sight. A failed lookup never
// blocks the caller: it degrades to the unknown-user sentinel.
type Resolver struct {
	repo          repository.UserRepository
	api           ProfileAPI
	cache         *gocache.Cache
	lookupTimeout time.Duration
	workers       int
}

// NewResolver wires a resolver over the user repository and profile API.
func NewResolver(repo repository.UserRepository, api ProfileAPI, lookupTimeout time.Duration) *Resolver {
	if lookupTimeout <= 0 {
		lookupTimeout = 30 * time.Second
	}
	return &Resolver{
		repo:          repo,
		api:           api,
		cache:         gocache.New(time.Hour, 10*time.Minute),
		lookupTimeout: lookupTimeout,
		workers:       4,
	}
}

// Resolve returns the user record for an external id. Id 0 is the
// unknown/system sentinel and involves no store or network access.
func (r *Resolver) Resolve(ctx context.Context, id int64) domain.User {
	if id <= 0 {
		return domain.UnknownUser()
	}

	key := strconv.FormatInt(id, 10)
	if cached, found := r.cache.Get(key); found {
		return cached.(domain.User)
	}

	user, err := r.repo.SelectByID(ctx, id)
	if err == nil {
		r.cache.SetDefault(key, user)
		return user
	}

	profile, err := r.api.User(ctx, id)
	if err != nil {
		log.Printf("users: lookup for %d failed, using unknown user: %v", id, err)
		return domain.UnknownUser()
	}

	// A concurrent resolver may win the insert; ON CONFLICT turns that
	// into a no-op and the re-read returns the winning row either way.
	if err := r.repo.Insert(ctx, id, profile); err != nil {
		log.Printf("users: failed to persist %d, using unknown user: %v", id, err)
		return domain.UnknownUser()
	}
	user, err = r.repo.SelectByID(ctx, id)
	if err != nil {
		log.Printf("users: failed to re-read %d, using unknown user: %v", id, err)
		return domain.UnknownUser()
	}

	r.cache.SetDefault(key, user)
	return user
}

// ResolveAll resolves a set of ids with bounded concurrency. Every id
// gets an entry in the result; failures map to the sentinel.
func (r *Resolver) ResolveAll(ctx context.Context, ids []int64) map[int64]domain.User {
	distinct := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		distinct[id] = struct{}{}
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[int64]domain.User, len(distinct))
		sem     = make(chan struct{}, r.workers)
	)
	for id := range distinct {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
			defer cancel()
			user := r.Resolve(lookupCtx, id)

			mu.Lock()
			results[id] = user
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return results
}
