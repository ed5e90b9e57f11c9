package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"orcamentos/internal/core"
	applog "orcamentos/internal/log"
	"orcamentos/internal/store"
)

// BudgetExporter writes budget entries to an external sink.
type BudgetExporter interface {
	ExportBudgetEntry(ctx context.Context, e core.BudgetEntry) error
	// ExportedIDs lists the ids already present in the sink.
	ExportedIDs(ctx context.Context) (map[int64]struct{}, error)
}

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often to look for entries missing from the sink (default: 5m)
	PollInterval time.Duration

	// BatchSize is the max number of entries exported per backfill cycle (default: 10)
	BatchSize int
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: 5 * time.Minute,
		BatchSize:    10,
	}
}

// ExportProcessor copies budget entries to the export sink, once per entry.
// Export handles single budget.created events; the periodic backfill catches
// anything whose event was lost.
type ExportProcessor struct {
	budgets  store.BudgetStore
	exporter BudgetExporter
	config   ExportProcessorConfig
	logger   *applog.Logger

	// exported is seeded from the sink on first use.
	exportMu sync.Mutex
	exported map[int64]struct{}

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(budgets store.BudgetStore, exporter BudgetExporter, config ExportProcessorConfig, logger *applog.Logger) *ExportProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultExportProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultExportProcessorConfig().BatchSize
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ExportProcessor{
		budgets:  budgets,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(applog.ComponentExport),
	}
}

// Export copies entry id to the sink unless it is already there.
// A missing entry is not retried: it returns nil after logging.
func (p *ExportProcessor) Export(ctx context.Context, id int64) error {
	p.exportMu.Lock()
	defer p.exportMu.Unlock()

	if err := p.loadExportedLocked(ctx); err != nil {
		return err
	}
	if _, done := p.exported[id]; done {
		p.logger.DebugContext(ctx, "Budget entry already exported", applog.FieldBudgetID, id)
		return nil
	}

	e, err := p.budgets.GetBudgetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrBudgetNotFound) {
			p.logger.WarnContext(ctx, "Budget entry not found, dropping export", applog.FieldBudgetID, id)
			return nil
		}
		return fmt.Errorf("get budget entry %d: %w", id, err)
	}
	return p.exportLocked(ctx, e)
}

// Backfill exports up to BatchSize stored entries missing from the sink and reports how many it wrote.
func (p *ExportProcessor) Backfill(ctx context.Context) (int, error) {
	p.exportMu.Lock()
	defer p.exportMu.Unlock()

	if err := p.loadExportedLocked(ctx); err != nil {
		return 0, err
	}
	entries, err := p.budgets.ListBudgetEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list budget entries: %w", err)
	}

	count := 0
	for _, e := range entries {
		if count >= p.config.BatchSize {
			break
		}
		if _, done := p.exported[e.ID]; done {
			continue
		}
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if err := p.exportLocked(ctx, e); err != nil {
			return count, err
		}
		count++
	}
	if count > 0 {
		p.logger.InfoContext(ctx, "Backfill exported budget entries", "count", count)
	}
	return count, nil
}

func (p *ExportProcessor) loadExportedLocked(ctx context.Context) error {
	if p.exported != nil {
		return nil
	}
	ids, err := p.exporter.ExportedIDs(ctx)
	if err != nil {
		return fmt.Errorf("read exported ids: %w", err)
	}
	if ids == nil {
		ids = map[int64]struct{}{}
	}
	p.exported = ids
	return nil
}

func (p *ExportProcessor) exportLocked(ctx context.Context, e core.BudgetEntry) error {
	if err := p.exporter.ExportBudgetEntry(ctx, e); err != nil {
		return fmt.Errorf("export budget entry %d: %w", e.ID, err)
	}
	p.exported[e.ID] = struct{}{}
	return nil
}

// Start begins the backfill loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	p.logger.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Catch up immediately on startup
	p.backfillOnce(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.backfillOnce(ctx)
		}
	}
}

func (p *ExportProcessor) backfillOnce(ctx context.Context) {
	if _, err := p.Backfill(ctx); err != nil && ctx.Err() == nil {
		p.logger.ErrorContext(ctx, "Backfill failed", applog.FieldError, err)
	}
}
