package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"orcamentos/internal/core"
	"orcamentos/internal/store/memory"
)

type fakeExporter struct {
	mu       sync.Mutex
	existing map[int64]struct{}
	written  []int64
	fail     error
	reads    int
}

func (f *fakeExporter) ExportBudgetEntry(_ context.Context, e core.BudgetEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.written = append(f.written, e.ID)
	return nil
}

func (f *fakeExporter) ExportedIDs(context.Context) (map[int64]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	out := make(map[int64]struct{}, len(f.existing))
	for id := range f.existing {
		out[id] = struct{}{}
	}
	return out, nil
}

func (f *fakeExporter) writtenIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.written...)
}

func seedEntries(t *testing.T, st *memory.Store, n int) []int64 {
	t.Helper()
	owners := seedUsers(t, st, 1)
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id, err := st.CreateBudgetEntry(context.Background(), roads(owners[0]))
		if err != nil {
			t.Fatalf("CreateBudgetEntry: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestDefaultExportProcessorConfig(t *testing.T) {
	config := DefaultExportProcessorConfig()

	if config.PollInterval != 5*time.Minute {
		t.Errorf("expected PollInterval 5m, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}

	p := NewExportProcessor(nil, nil, ExportProcessorConfig{}, nil)
	if p.config != config {
		t.Errorf("zero config should fall back to defaults, got %+v", p.config)
	}
}

func TestExportProcessor_ExportOnce(t *testing.T) {
	st := memory.New()
	ids := seedEntries(t, st, 1)
	exp := &fakeExporter{}
	p := NewExportProcessor(st, exp, DefaultExportProcessorConfig(), nil)
	ctx := context.Background()

	if err := p.Export(ctx, ids[0]); err != nil {
		t.Fatalf("Export: %v", err)
	}
	// Redelivered message.
	if err := p.Export(ctx, ids[0]); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if got := exp.writtenIDs(); len(got) != 1 || got[0] != ids[0] {
		t.Fatalf("expected a single export of %d, got %v", ids[0], got)
	}
	if exp.reads != 1 {
		t.Fatalf("exported ids should be read once, got %d reads", exp.reads)
	}
}

func TestExportProcessor_ExportMissingEntry(t *testing.T) {
	exp := &fakeExporter{}
	p := NewExportProcessor(memory.New(), exp, DefaultExportProcessorConfig(), nil)

	if err := p.Export(context.Background(), 99); err != nil {
		t.Fatalf("missing entries are dropped, got %v", err)
	}
	if len(exp.writtenIDs()) != 0 {
		t.Fatalf("nothing should be exported")
	}
}

func TestExportProcessor_ExportFailure(t *testing.T) {
	st := memory.New()
	ids := seedEntries(t, st, 1)
	exp := &fakeExporter{fail: errors.New("quota exceeded")}
	p := NewExportProcessor(st, exp, DefaultExportProcessorConfig(), nil)
	ctx := context.Background()

	if err := p.Export(ctx, ids[0]); err == nil {
		t.Fatal("expected export error")
	}

	exp.mu.Lock()
	exp.fail = nil
	exp.mu.Unlock()
	if err := p.Export(ctx, ids[0]); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if got := exp.writtenIDs(); len(got) != 1 {
		t.Fatalf("expected one export after retry, got %v", got)
	}
}

func TestExportProcessor_Backfill(t *testing.T) {
	st := memory.New()
	ids := seedEntries(t, st, 5)
	exp := &fakeExporter{existing: map[int64]struct{}{ids[1]: {}}}
	p := NewExportProcessor(st, exp, ExportProcessorConfig{PollInterval: time.Hour, BatchSize: 3}, nil)
	ctx := context.Background()

	n, err := p.Backfill(ctx)
	if err != nil || n != 3 {
		t.Fatalf("first backfill: n=%d err=%v", n, err)
	}
	n, err = p.Backfill(ctx)
	if err != nil || n != 1 {
		t.Fatalf("second backfill: n=%d err=%v", n, err)
	}
	n, err = p.Backfill(ctx)
	if err != nil || n != 0 {
		t.Fatalf("nothing left to backfill: n=%d err=%v", n, err)
	}

	got := exp.writtenIDs()
	want := []int64{ids[0], ids[2], ids[3], ids[4]}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestExportProcessor_StartStop(t *testing.T) {
	st := memory.New()
	seedEntries(t, st, 2)
	exp := &fakeExporter{}
	p := NewExportProcessor(st, exp, ExportProcessorConfig{PollInterval: time.Hour, BatchSize: 10}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Fatal("expected error when starting already running processor")
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(exp.writtenIDs()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := exp.writtenIDs(); len(got) != 2 {
		t.Fatalf("startup backfill should export both entries, got %v", got)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning() {
		t.Fatal("processor should be stopped")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}
