package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"testyourself-core/internal/domain"
)

const (
	// RegistryCollection holds one parent document per registry name.
	RegistryCollection = "registry"
	// RegistryChunkCollection holds numbered chunk documents.
	RegistryChunkCollection = "registry_chunks"
	// DefaultChunkBytes stays below the 1 MiB single-document limit.
	DefaultChunkBytes = 900_000
)

// ChunkID names chunk index of a registry.
func ChunkID(name string, index int) string {
	return fmt.Sprintf("%s-%d", name, index)
}

// RegistrySnapshot is a reconstructed registry and how complete it is.
type RegistrySnapshot struct {
	Name    string
	Records []domain.RegistryRecord
	Chunks  int
	Missing []int
}

// Complete reports whether every referenced chunk was found.
func (s RegistrySnapshot) Complete() bool {
	return len(s.Missing) == 0
}

// RegistryStore reads and writes registries that may be split across chunk documents.
type RegistryStore struct {
	docs       DocumentStore
	writer     *BatchWriter
	chunkBytes int
	now        func() time.Time
	logger     *log.Logger
}

func NewRegistryStore(docs DocumentStore, writer *BatchWriter, chunkBytes int, logger *log.Logger) *RegistryStore {
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunkBytes
	}
	return &RegistryStore{
		docs:       docs,
		writer:     writer,
		chunkBytes: chunkBytes,
		now:        time.Now,
		logger:     componentLogger(logger, "registry-store"),
	}
}

// Read reconstructs the registry name. An absent parent yields an empty snapshot.
// Missing chunks contribute nothing and are listed in Missing.
func (s *RegistryStore) Read(ctx context.Context, name string) (RegistrySnapshot, error) {
	snap := RegistrySnapshot{Name: name}
	parent, err := s.docs.Get(ctx, RegistryCollection, name)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("read registry %s: %w", name, err)
	}

	chunks := intField(parent.Fields, "chunks")
	if chunks <= 1 {
		snap.Records = registryRecords(parent.Fields["items"])
		return snap, nil
	}

	snap.Chunks = chunks
	for i := 0; i < chunks; i++ {
		chunk, err := s.docs.Get(ctx, RegistryChunkCollection, ChunkID(name, i))
		if errors.Is(err, domain.ErrDocumentNotFound) {
			snap.Missing = append(snap.Missing, i)
			continue
		}
		if err != nil {
			return snap, fmt.Errorf("read registry %s chunk %d: %w", name, i, err)
		}
		snap.Records = append(snap.Records, registryRecords(chunk.Fields["items"])...)
	}
	if !snap.Complete() {
		s.logger.Warn("registry reconstructed with missing chunks",
			"registry", name, "chunks", chunks, "missing", snap.Missing, "records", len(snap.Records))
	}
	return snap, nil
}

// Write publishes records under name, splitting them into chunk documents when
// the payload exceeds the chunk limit. Chunks are committed before the parent.
// It returns the number of chunks written (1 for an inline registry).
func (s *RegistryStore) Write(ctx context.Context, name string, records []domain.RegistryRecord) (int, error) {
	groups, err := s.split(records)
	if err != nil {
		return 0, fmt.Errorf("write registry %s: %w", name, err)
	}
	now := s.now().UTC()

	if len(groups) <= 1 {
		parent := map[string]any{
			"items":     itemsValue(records),
			"count":     len(records),
			"chunks":    1,
			"updatedAt": now,
		}
		if _, err := s.writer.Commit(ctx, []WriteOp{SetOp(RegistryCollection, name, parent, false)}); err != nil {
			return 0, fmt.Errorf("write registry %s: %w", name, err)
		}
		return 1, nil
	}

	ops := make([]WriteOp, 0, len(groups)+1)
	for i, group := range groups {
		ops = append(ops, SetOp(RegistryChunkCollection, ChunkID(name, i), map[string]any{
			"items": itemsValue(group),
			"index": i,
		}, false))
	}
	ops = append(ops, SetOp(RegistryCollection, name, map[string]any{
		"chunks":    len(groups),
		"count":     len(records),
		"updatedAt": now,
	}, false))
	if _, err := s.writer.Commit(ctx, ops); err != nil {
		return 0, fmt.Errorf("write registry %s: %w", name, err)
	}
	s.logger.Info("registry published in chunks", "registry", name, "chunks", len(groups), "records", len(records))
	return len(groups), nil
}

// split groups consecutive records so each group's JSON stays within chunkBytes.
// A record larger than the limit gets a group of its own.
func (s *RegistryStore) split(records []domain.RegistryRecord) ([][]domain.RegistryRecord, error) {
	const envelope = 64
	var (
		groups  [][]domain.RegistryRecord
		current []domain.RegistryRecord
		size    = envelope
	)
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode record %q: %w", rec.ID(), err)
		}
		n := len(raw) + 1
		if len(current) > 0 && size+n > s.chunkBytes {
			groups = append(groups, current)
			current = nil
			size = envelope
		}
		current = append(current, rec)
		size += n
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups, nil
}

func itemsValue(records []domain.RegistryRecord) []any {
	items := make([]any, len(records))
	for i, rec := range records {
		items[i] = map[string]any(rec)
	}
	return items
}
