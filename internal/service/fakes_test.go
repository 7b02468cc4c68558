package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"inkgen/internal/repo"
	"inkgen/internal/storage"
	"inkgen/model"
)

// fakeDownloadStore records durable-row mutations in memory and keeps the
// ordered status history per job.
type fakeDownloadStore struct {
	mu          sync.Mutex
	jobs        map[string]*model.DownloadJob
	transitions map[string][]model.JobStatus

	createErr error
}

func newFakeDownloadStore() *fakeDownloadStore {
	return &fakeDownloadStore{
		jobs:        make(map[string]*model.DownloadJob),
		transitions: make(map[string][]model.JobStatus),
	}
}

func (f *fakeDownloadStore) Create(ctx context.Context, job *model.DownloadJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *job
	copied.CreatedAt = time.Now()
	f.jobs[job.ID] = &copied
	f.transitions[job.ID] = append(f.transitions[job.ID], job.Status)
	return nil
}

func (f *fakeDownloadStore) GetByID(ctx context.Context, id, userID string) (*model.DownloadJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.UserID != userID {
		return nil, repo.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeDownloadStore) List(ctx context.Context, userID string) ([]model.DownloadJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var jobs []model.DownloadJob
	for _, job := range f.jobs {
		if job.UserID == userID {
			jobs = append(jobs, *job)
		}
	}
	return jobs, nil
}

func (f *fakeDownloadStore) UpdateStatus(ctx context.Context, id string, status model.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return repo.ErrNotFound
	}
	job.Status = status
	f.transitions[id] = append(f.transitions[id], status)
	return nil
}

func (f *fakeDownloadStore) MarkCompleted(ctx context.Context, id, storagePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return repo.ErrNotFound
	}
	job.Status = model.StatusCompleted
	job.StoragePath = storagePath
	f.transitions[id] = append(f.transitions[id], model.StatusCompleted)
	return nil
}

func (f *fakeDownloadStore) MarkFailed(ctx context.Context, id, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return repo.ErrNotFound
	}
	job.Status = model.StatusFailed
	job.ErrorMsg = msg
	f.transitions[id] = append(f.transitions[id], model.StatusFailed)
	return nil
}

func (f *fakeDownloadStore) CancelJob(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.UserID != userID {
		return repo.ErrNotFound
	}
	job.Status = model.StatusFailed
	f.transitions[id] = append(f.transitions[id], model.StatusFailed)
	return nil
}

func (f *fakeDownloadStore) Delete(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.UserID != userID {
		return repo.ErrNotFound
	}
	delete(f.jobs, id)
	return nil
}

func (f *fakeDownloadStore) job(id string) model.DownloadJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.jobs[id]
}

func (f *fakeDownloadStore) history(id string) []model.JobStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.JobStatus, len(f.transitions[id]))
	copy(out, f.transitions[id])
	return out
}

// fakeGenerationStore mirrors fakeDownloadStore for generation rows.
type fakeGenerationStore struct {
	mu   sync.Mutex
	gens map[string]*model.Generation

	createErr    error
	completedErr error
}

func newFakeGenerationStore() *fakeGenerationStore {
	return &fakeGenerationStore{gens: make(map[string]*model.Generation)}
}

func (f *fakeGenerationStore) Create(ctx context.Context, gen *model.Generation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *gen
	copied.CreatedAt = time.Now()
	f.gens[gen.ID] = &copied
	return nil
}

func (f *fakeGenerationStore) List(ctx context.Context, userID string) ([]model.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var gens []model.Generation
	for _, gen := range f.gens {
		if gen.UserID == userID {
			gens = append(gens, *gen)
		}
	}
	return gens, nil
}

func (f *fakeGenerationStore) MarkCompleted(ctx context.Context, id string, urls []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completedErr != nil {
		return f.completedErr
	}
	gen, ok := f.gens[id]
	if !ok {
		return repo.ErrNotFound
	}
	gen.Status = model.StatusCompleted
	gen.OutputURLs = urls
	return nil
}

func (f *fakeGenerationStore) MarkFailed(ctx context.Context, id, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	gen, ok := f.gens[id]
	if !ok {
		return repo.ErrNotFound
	}
	gen.Status = model.StatusFailed
	gen.ErrorMsg = msg
	return nil
}

func (f *fakeGenerationStore) gen(id string) model.Generation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.gens[id]
}

func (f *fakeGenerationStore) add(gen model.Generation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gens[gen.ID] = &gen
}

// fakeBlobStore records uploads and signs URLs deterministically.
type fakeBlobStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	removed  []string
	putErr   error
	signErrs map[string]error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		objects:  make(map[string][]byte),
		types:    make(map[string]string),
		signErrs: make(map[string]error),
	}
}

func (f *fakeBlobStore) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts storage.PutOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}
	f.objects[object] = buf.Bytes()
	f.types[object] = opts.ContentType
	return nil
}

func (f *fakeBlobStore) RemoveObject(ctx context.Context, bucket, object string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, object)
	f.removed = append(f.removed, object)
	return nil
}

func (f *fakeBlobStore) RemoveObjects(ctx context.Context, bucket, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, prefix)
	return nil
}

func (f *fakeBlobStore) PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.signErrs[object]; err != nil {
		return "", err
	}
	return fmt.Sprintf("http://minio.local/%s/%s?X-Amz-Signature=sig", bucket, object), nil
}

func (f *fakeBlobStore) has(object string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[object]
	return ok
}

func (f *fakeBlobStore) contentType(object string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.types[object]
}
