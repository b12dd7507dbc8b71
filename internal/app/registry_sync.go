package app

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"testyourself-core/internal/domain"
)

// SyncError is one collection's failure.
type SyncError struct {
	Collection string `json:"collection"`
	Message    string `json:"message"`
}

// SyncReport summarizes a sync run. OK is false when any collection failed.
type SyncReport struct {
	OK         bool             `json:"ok"`
	DryRun     bool             `json:"dryRun"`
	Results    map[string]int   `json:"results"`
	Errors     []SyncError      `json:"errors"`
	Incomplete map[string][]int `json:"incomplete,omitempty"`
}

// RegistrySync copies registries into their live collections.
type RegistrySync struct {
	registry *RegistryStore
	writer   *BatchWriter
	now      func() time.Time
	logger   *log.Logger
}

func NewRegistrySync(registry *RegistryStore, writer *BatchWriter, logger *log.Logger) *RegistrySync {
	return &RegistrySync{
		registry: registry,
		writer:   writer,
		now:      time.Now,
		logger:   componentLogger(logger, "registry-sync"),
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *RegistrySync) WithClock(now func() time.Time) *RegistrySync {
	s.now = now
	return s
}

// Sync upserts each requested registry into the live collection of the same
// name. Unknown names are ignored; a failing collection does not stop the rest.
func (s *RegistrySync) Sync(ctx context.Context, names []string, dryRun bool) SyncReport {
	report := SyncReport{
		DryRun:  dryRun,
		Results: make(map[string]int),
		Errors:  []SyncError{},
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !domain.IsRegistryCollection(name) {
			s.logger.Debug("ignoring unknown registry collection", "collection", name)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		count, err := s.syncCollection(ctx, name, dryRun, &report)
		report.Results[name] = count
		if err != nil {
			s.logger.Error("registry sync failed", "collection", name, "committed", count, "err", err)
			report.Errors = append(report.Errors, SyncError{Collection: name, Message: err.Error()})
		}
	}
	report.OK = len(report.Errors) == 0
	return report
}

func (s *RegistrySync) syncCollection(ctx context.Context, name string, dryRun bool, report *SyncReport) (int, error) {
	snap, err := s.registry.Read(ctx, name)
	if err != nil {
		return 0, err
	}
	if !snap.Complete() {
		if report.Incomplete == nil {
			report.Incomplete = make(map[string][]int)
		}
		report.Incomplete[name] = snap.Missing
	}
	if dryRun {
		return len(snap.Records), nil
	}

	now := s.now().UTC()
	ops := make([]WriteOp, 0, len(snap.Records))
	for _, rec := range snap.Records {
		fields := make(map[string]any, len(rec)+1)
		for k, v := range rec {
			fields[k] = v
		}
		fields["updatedAt"] = now
		ops = append(ops, SetOp(name, rec.ID(), fields, true))
	}
	res, err := s.writer.Commit(ctx, ops)
	if res.Skipped > 0 {
		s.logger.Warn("registry rows without id skipped", "collection", name, "skipped", res.Skipped)
	}
	s.logger.Info("registry synced", "collection", name, "committed", res.Committed, "batches", res.Batches)
	return res.Committed, err
}
