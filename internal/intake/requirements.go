package intake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"caseflow/pkg/types"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// RequirementSource fetches the document checklist for a category. It may be
// a static table or a remote call.
type RequirementSource interface {
	Requirements(ctx context.Context, category types.Category) ([]types.DocumentRequirement, error)
}

// StaticRequirements serves the built-in category table.
type StaticRequirements struct{}

func (StaticRequirements) Requirements(_ context.Context, category types.Category) ([]types.DocumentRequirement, error) {
	return RulesFor(category).Documents, nil
}

// CachedRequirements memoizes successful lookups of an underlying source.
type CachedRequirements struct {
	source RequirementSource
	cache  *cache.Cache
}

func NewCachedRequirements(source RequirementSource, ttl time.Duration) *CachedRequirements {
	return &CachedRequirements{
		source: source,
		cache:  cache.New(ttl, ttl*2),
	}
}

func (c *CachedRequirements) Requirements(ctx context.Context, category types.Category) ([]types.DocumentRequirement, error) {
	key := string(category)
	if cached, found := c.cache.Get(key); found {
		if reqs, ok := cached.([]types.DocumentRequirement); ok {
			return cloneRequirements(reqs), nil
		}
	}

	reqs, err := c.source.Requirements(ctx, category)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, cloneRequirements(reqs), cache.DefaultExpiration)
	return reqs, nil
}

// Invalidate drops a cached category, or everything when category is empty.
func (c *CachedRequirements) Invalidate(category types.Category) {
	if category == "" {
		c.cache.Flush()
		return
	}
	c.cache.Delete(string(category))
}

type ResolverState string

const (
	ResolverIdle    ResolverState = "idle"
	ResolverLoading ResolverState = "loading"
	ResolverReady   ResolverState = "ready"
	ResolverFailed  ResolverState = "failed"
)

// RequirementSnapshot is what the resolver currently shows for its category.
type RequirementSnapshot struct {
	Category     types.Category
	State        ResolverState
	Requirements []types.DocumentRequirement
	Err          error
}

// Resolver keeps the checklist of the currently selected category. Every
// Select clears the list and starts a new fetch; only the fetch of the latest
// selection may publish, so a quick double change never shows the first
// category's list under the second.
type Resolver struct {
	source RequirementSource
	logger logrus.FieldLogger

	mu   sync.Mutex
	gen  uint64
	snap RequirementSnapshot
	done chan struct{}
}

func NewResolver(source RequirementSource, logger logrus.FieldLogger) *Resolver {
	done := make(chan struct{})
	close(done)
	return &Resolver{
		source: source,
		logger: logger,
		snap:   RequirementSnapshot{State: ResolverIdle},
		done:   done,
	}
}

// Select switches the resolver to category and fetches asynchronously.
// An empty category resets it to idle.
func (r *Resolver) Select(ctx context.Context, category types.Category) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	done := make(chan struct{})
	r.done = done

	if category == "" {
		r.snap = RequirementSnapshot{State: ResolverIdle}
		close(done)
		r.mu.Unlock()
		return
	}

	r.snap = RequirementSnapshot{Category: category, State: ResolverLoading}
	r.mu.Unlock()

	go func() {
		defer close(done)
		reqs, err := r.source.Requirements(ctx, category)
		r.publish(gen, category, reqs, err)
	}()
}

func (r *Resolver) publish(gen uint64, category types.Category, reqs []types.DocumentRequirement, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		r.logger.WithField("category", category).Debug("discarding superseded requirement fetch")
		return
	}

	if err != nil {
		r.logger.WithError(err).WithField("category", category).Warn("failed to fetch document requirements")
		r.snap = RequirementSnapshot{
			Category: category,
			State:    ResolverFailed,
			Err:      fmt.Errorf("failed to load document requirements for %s: %w", category, err),
		}
		return
	}

	r.snap = RequirementSnapshot{
		Category:     category,
		State:        ResolverReady,
		Requirements: cloneRequirements(reqs),
	}
}

// Snapshot returns the current state without waiting.
func (r *Resolver) Snapshot() RequirementSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copySnapshot()
}

// Wait blocks until the latest selection settles, following newer selections
// made while waiting.
func (r *Resolver) Wait(ctx context.Context) (RequirementSnapshot, error) {
	for {
		r.mu.Lock()
		if r.snap.State != ResolverLoading {
			snap := r.copySnapshot()
			r.mu.Unlock()
			return snap, nil
		}
		done := r.done
		r.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return r.Snapshot(), ctx.Err()
		}
	}
}

func (r *Resolver) copySnapshot() RequirementSnapshot {
	snap := r.snap
	snap.Requirements = cloneRequirements(r.snap.Requirements)
	return snap
}

func cloneRequirements(in []types.DocumentRequirement) []types.DocumentRequirement {
	if in == nil {
		return nil
	}
	out := make([]types.DocumentRequirement, len(in))
	copy(out, in)
	return out
}
