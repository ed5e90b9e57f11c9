package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"orcamentos/internal/amqp"
	applog "orcamentos/internal/log"
	"orcamentos/internal/services"
)

// Consumer delivers budget.created messages until ctx is done.
type Consumer interface {
	ConsumeBudgetCreated(ctx context.Context, handler func(context.Context, *amqp.BudgetCreatedMessage) error) error
}

// ExportWorker copies newly created budget entries to the export sink.
type ExportWorker struct {
	consumer  Consumer
	processor *services.ExportProcessor
	logger    *applog.Logger

	// retryDelay is the first pause after the consumer drops; it doubles up to maxRetryDelay.
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

func NewExportWorker(consumer Consumer, processor *services.ExportProcessor, logger *applog.Logger) *ExportWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ExportWorker{
		consumer:      consumer,
		processor:     processor,
		logger:        logger.WithComponent(applog.ComponentExport),
		retryDelay:    time.Second,
		maxRetryDelay: 30 * time.Second,
	}
}

// HandleBudgetCreated exports the entry named by msg. A returned error requeues the message.
func (w *ExportWorker) HandleBudgetCreated(ctx context.Context, msg *amqp.BudgetCreatedMessage) error {
	w.logger.InfoContext(ctx, "Processing budget.created",
		applog.FieldBudgetID, msg.ID,
		applog.FieldUserID, msg.OwnerID,
		"published_at", msg.Timestamp)
	return w.processor.Export(ctx, msg.ID)
}

// Run consumes messages and runs the periodic backfill until ctx is cancelled.
// A nil consumer runs the backfill alone.
func (w *ExportWorker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := w.processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return w.processor.Stop(stopCtx)
	})

	if w.consumer != nil {
		g.Go(func() error { return w.consume(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// consume keeps a consumer attached, backing off while the broker is unavailable.
func (w *ExportWorker) consume(ctx context.Context) error {
	delay := w.retryDelay
	for {
		err := w.consumer.ConsumeBudgetCreated(ctx, w.HandleBudgetCreated)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.WarnContext(ctx, "Consumer stopped, retrying",
			applog.FieldError, err,
			"retry_in", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > w.maxRetryDelay {
			delay = w.maxRetryDelay
		}
	}
}
