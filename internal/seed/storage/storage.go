// Package storage persists finished seed runs so later tooling can read back
// the identifiers a scenario created.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	platformerrors "github.com/paygate/seedforge/internal/platform/errors"
	"github.com/paygate/seedforge/internal/seed/result"
)

// ErrNotFound is returned when no run matches a lookup. Match it with
// errors.Is; any error with CodeNotFound matches.
var ErrNotFound = platformerrors.New(platformerrors.CodeNotFound, "seed run not found")

// RunRecord is one stored run. Payload holds the encoded result tree.
type RunRecord struct {
	ID         int64
	RunID      string
	Scenario   string
	StartedAt  time.Time
	FinishedAt time.Time
	Planned    int
	Created    int
	Failed     int
	Payload    []byte
}

// RunStore persists seed runs.
type RunStore interface {
	SaveRun(ctx context.Context, record RunRecord) error
	// LatestRun returns the most recently started run of scenario.
	LatestRun(ctx context.Context, scenario string) (RunRecord, error)
	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// RecordFromResult builds the record stored for r.
func RecordFromResult(r *result.Result) (RunRecord, error) {
	if r == nil {
		return RunRecord{}, errors.New("result is required")
	}
	var payload bytes.Buffer
	if err := result.Encode(&payload, r); err != nil {
		return RunRecord{}, err
	}
	return RunRecord{
		RunID:      r.RunID,
		Scenario:   r.Scenario,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Planned:    r.Summary.PlannedTotal,
		Created:    r.Summary.CreatedTotal,
		Failed:     r.Summary.FailedTotal,
		Payload:    payload.Bytes(),
	}, nil
}

// SaveResult stores r in store.
func SaveResult(ctx context.Context, store RunStore, r *result.Result) error {
	record, err := RecordFromResult(r)
	if err != nil {
		return err
	}
	if err := store.SaveRun(ctx, record); err != nil {
		return platformerrors.Wrap(platformerrors.CodeStorageFailed, fmt.Sprintf("save run %s", record.RunID), err)
	}
	return nil
}

// LoadResult returns the result tree of the latest run of scenario.
func LoadResult(ctx context.Context, store RunStore, scenario string) (*result.Result, error) {
	record, err := store.LatestRun(ctx, scenario)
	if err != nil {
		return nil, err
	}
	return result.Decode(bytes.NewReader(record.Payload))
}
