package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"orcamentos/internal/cache"
	"orcamentos/internal/core"
	applog "orcamentos/internal/log"
	"orcamentos/internal/store"
)

// BudgetPublisher announces stored budget entries to downstream consumers.
type BudgetPublisher interface {
	PublishBudgetCreated(ctx context.Context, id, ownerID int64) error
}

const (
	ownerCacheSize = 256
	ownerCacheTTL  = 5 * time.Minute
)

// NewOwnerCache returns the per-owner list cache used by BudgetService.
func NewOwnerCache() *cache.LRUCache[int64, []core.BudgetEntry] {
	return cache.NewLRUCache[int64, []core.BudgetEntry](ownerCacheSize, ownerCacheTTL)
}

// BudgetService orchestrates budget entries across the store, the list cache and AMQP.
type BudgetService struct {
	budgets   store.BudgetStore
	publisher BudgetPublisher
	lists     cache.Cache[int64, []core.BudgetEntry]

	// generations counts writes per owner; a list read fills the cache only
	// if no write for that owner committed while it was reading.
	mu          sync.Mutex
	generations map[int64]uint64
}

// NewBudgetService wires the service. publisher and lists may be nil.
func NewBudgetService(budgets store.BudgetStore, publisher BudgetPublisher, lists cache.Cache[int64, []core.BudgetEntry]) *BudgetService {
	return &BudgetService{
		budgets:     budgets,
		publisher:   publisher,
		lists:       lists,
		generations: make(map[int64]uint64),
	}
}

// Create validates and stores e, then publishes a budget.created event.
// A failed publish is logged and does not fail the call.
func (s *BudgetService) Create(ctx context.Context, e core.BudgetEntry) (int64, error) {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.budgets.CreateBudgetEntry(ctx, e)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("save budget entry: %w", err)
	}
	s.invalidate(e.OwnerID)

	logger := applog.FromContext(ctx)
	applog.NewStructuredLogger(logger).LogBudgetCreated(ctx, id, e.OwnerID, e.Title, e.Year, e.Planned.Cents, e.Executed.Cents)

	if s.publisher == nil {
		logger.DebugContext(ctx, "AMQP publisher not configured, skipping budget.created",
			applog.FieldBudgetID, id)
		return id, nil
	}
	if err := s.publisher.PublishBudgetCreated(ctx, id, e.OwnerID); err != nil {
		logger.ErrorContext(ctx, "Failed to publish budget.created",
			applog.FieldBudgetID, id,
			applog.FieldError, err)
	}
	return id, nil
}

// ListByOwner returns the entries of ownerID in insertion order. The slice is the caller's to keep.
func (s *BudgetService) ListByOwner(ctx context.Context, ownerID int64) ([]core.BudgetEntry, error) {
	if s.lists != nil {
		if cached, ok := s.lists.Get(ownerID); ok {
			return cloneEntries(cached), nil
		}
	}

	gen := s.generation(ownerID)
	entries, err := s.budgets.ListBudgetEntriesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budget entries for user %d: %w", ownerID, err)
	}
	s.fill(ownerID, gen, entries)
	return entries, nil
}

func (s *BudgetService) generation(ownerID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[ownerID]
}

// invalidate drops the cached list of ownerID and marks in-flight reads stale.
func (s *BudgetService) invalidate(ownerID int64) {
	if s.lists == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[ownerID]++
	s.lists.Delete(ownerID)
}

// fill caches entries unless a write for ownerID happened after gen was read.
func (s *BudgetService) fill(ownerID int64, gen uint64, entries []core.BudgetEntry) {
	if s.lists == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[ownerID] != gen {
		return
	}
	s.lists.Set(ownerID, cloneEntries(entries))
}

func (s *BudgetService) Get(ctx context.Context, id int64) (core.BudgetEntry, error) {
	return s.budgets.GetBudgetEntry(ctx, id)
}

// ListAll returns every stored entry, unfiltered.
func (s *BudgetService) ListAll(ctx context.Context) ([]core.BudgetEntry, error) {
	entries, err := s.budgets.ListBudgetEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budget entries: %w", err)
	}
	return entries, nil
}

func cloneEntries(in []core.BudgetEntry) []core.BudgetEntry {
	out := make([]core.BudgetEntry, len(in))
	copy(out, in)
	return out
}
