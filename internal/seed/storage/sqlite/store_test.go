package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/paygate/seedforge/internal/seed/engine"
	"github.com/paygate/seedforge/internal/seed/gateway/memory"
	"github.com/paygate/seedforge/internal/seed/plan"
	"github.com/paygate/seedforge/internal/seed/storage"
)

func TestSaveAndListRuns(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	for i, runID := range []string{"run-1", "run-2", "run-3"} {
		scenario := "smoke"
		if i == 1 {
			scenario = "existing_user_get_documents"
		}
		if err := store.SaveRun(ctx, storage.RunRecord{
			RunID:      runID,
			Scenario:   scenario,
			StartedAt:  start.Add(time.Duration(i) * time.Minute),
			FinishedAt: start.Add(time.Duration(i)*time.Minute + time.Second),
			Planned:    12,
			Created:    12 - i,
			Failed:     i,
			Payload:    []byte(`{}`),
		}); err != nil {
			t.Fatalf("save %s: %v", runID, err)
		}
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 || runs[0].RunID != "run-3" || runs[2].RunID != "run-1" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[1].Failed != 1 || runs[1].Created != 11 || !runs[1].StartedAt.Equal(start.Add(time.Minute)) {
		t.Fatalf("unexpected record %+v", runs[1])
	}

	latest, err := store.LatestRun(ctx, "smoke")
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if latest.RunID != "run-3" {
		t.Fatalf("latest = %s, want run-3", latest.RunID)
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list runs limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited runs = %d, want 1", len(limited))
	}
}

func TestLatestRunNotFound(t *testing.T) {
	store := openTempStore(t)
	_, err := store.LatestRun(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveRunValidation(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, storage.RunRecord{}); err == nil {
		t.Fatal("expected error for empty record")
	}
	if err := store.SaveRun(ctx, storage.RunRecord{RunID: "r", Scenario: "s"}); err == nil {
		t.Fatal("expected error for empty payload")
	}

	record := storage.RunRecord{RunID: "dup", Scenario: "s", Payload: []byte(`{}`)}
	if err := store.SaveRun(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveRun(ctx, record); err == nil {
		t.Fatal("expected error for duplicate run id")
	}
	if _, err := store.ListRuns(ctx, 0); err == nil {
		t.Fatal("expected error for zero limit")
	}
}

func TestSaveAndLoadResult(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	p := plan.UsersPlan{
		Count: 2,
		Accounts: map[plan.AccountType]plan.AccountPlan{
			plan.AccountDebitCard: {
				Count:      1,
				Cards:      map[plan.CardType]plan.CardPlan{plan.CardVirtual: {Count: 1}},
				Operations: map[plan.OperationKind]plan.OperationPlan{plan.OperationFee: {Count: 1}},
			},
		},
	}
	out, err := engine.New(memory.New()).Run(ctx, "stored", p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := storage.SaveResult(ctx, store, out); err != nil {
		t.Fatalf("save result: %v", err)
	}

	loaded, err := storage.LoadResult(ctx, store, "stored")
	if err != nil {
		t.Fatalf("load result: %v", err)
	}
	if loaded.RunID != out.RunID || loaded.Summary != out.Summary {
		t.Fatalf("loaded %+v, want %+v", loaded.Summary, out.Summary)
	}
	if got, want := loaded.Users[1].Accounts[0].Operations[0].ID, out.Users[1].Accounts[0].Operations[0].ID; got != want {
		t.Fatalf("operation id = %q, want %q", got, want)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	first, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = second.Close()
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
