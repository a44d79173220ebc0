package service

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/pkg/jobs"
	"github.com/pp-coaching/coaching-api/pkg/storage"
)

// FileJanitor fronts an ObjectStore and removes files on a background queue, so a slow or failing
// bucket never blocks the request that orphaned the file.
type FileJanitor struct {
	store  storage.ObjectStore
	queue  *jobs.Queue[string]
	logger *zap.Logger
}

// NewFileJanitor wraps store. Deletes run synchronously until Start is called.
func NewFileJanitor(store storage.ObjectStore, cfg jobs.Config) *FileJanitor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &FileJanitor{store: store, logger: logger}
	j.queue = jobs.New("file-cleanup", func(ctx context.Context, job jobs.Job[string]) error {
		return j.store.Delete(ctx, job.Payload)
	}, cfg)
	return j
}

// Start launches the cleanup workers.
func (j *FileJanitor) Start(ctx context.Context) {
	j.queue.Start(ctx)
}

// Stop waits for the workers to exit.
func (j *FileJanitor) Stop() {
	j.queue.Stop()
}

// Put stores a file.
func (j *FileJanitor) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	return j.store.Put(ctx, key, r, contentType)
}

// URL returns a download link for key.
func (j *FileJanitor) URL(key string) (string, error) {
	return j.store.URL(key)
}

// Delete schedules removal of key.
func (j *FileJanitor) Delete(ctx context.Context, key string) error {
	if !j.queue.Running() {
		return j.store.Delete(ctx, key)
	}
	if err := j.queue.Enqueue(jobs.Job[string]{ID: key, Payload: key}); err != nil {
		j.logger.Warn("cleanup queue unavailable, deleting inline", zap.String("key", key), zap.Error(err))
		return j.store.Delete(ctx, key)
	}
	return nil
}
