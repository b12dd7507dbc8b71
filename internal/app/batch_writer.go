package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// MaxBatchSize keeps every commit below the store's hard limit of 500 operations.
const MaxBatchSize = 400

// CommitResult summarizes a BatchWriter run.
type CommitResult struct {
	Committed int
	Skipped   int
	Batches   int
}

// BatchError reports the failing group and how many operations were already applied.
type BatchError struct {
	Group     int
	Committed int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("commit group %d failed after %d committed operations: %v", e.Group, e.Committed, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// BatchWriter splits operations into bounded groups and commits them in order.
// Groups already committed stay committed when a later group fails.
type BatchWriter struct {
	committer BatchCommitter
	maxSize   int
	logger    *log.Logger
}

func NewBatchWriter(committer BatchCommitter, logger *log.Logger) *BatchWriter {
	return &BatchWriter{
		committer: committer,
		maxSize:   MaxBatchSize,
		logger:    componentLogger(logger, "batch-writer"),
	}
}

// Commit applies ops in input order. Operations without a document id are skipped.
func (w *BatchWriter) Commit(ctx context.Context, ops []WriteOp) (CommitResult, error) {
	var res CommitResult
	valid := make([]WriteOp, 0, len(ops))
	for _, op := range ops {
		if strings.TrimSpace(op.ID) == "" {
			res.Skipped++
			w.logger.Debug("skipping operation without document id", "collection", op.Collection)
			continue
		}
		valid = append(valid, op)
	}

	for start := 0; start < len(valid); start += w.maxSize {
		end := start + w.maxSize
		if end > len(valid) {
			end = len(valid)
		}
		group := valid[start:end]
		if err := w.committer.CommitBatch(ctx, group); err != nil {
			return res, &BatchError{Group: res.Batches, Committed: res.Committed, Err: err}
		}
		res.Batches++
		res.Committed += len(group)
	}
	return res, nil
}
