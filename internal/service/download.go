package service

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/context"

	"inkgen/internal/progress"
	"inkgen/internal/queue"
	"inkgen/internal/storage"
	"inkgen/model"
	"inkgen/utils"
)

// ErrInvalidURL marks a rejected source URL. Callers use it to tell a bad
// request apart from an upstream failure.
var ErrInvalidURL = errors.New("invalid url")

// HTTPStatusError is returned for non-200 HTTP responses.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

// DownloadStore is the durable-record surface the download service needs.
type DownloadStore interface {
	Create(ctx context.Context, job *model.DownloadJob) error
	GetByID(ctx context.Context, id, userID string) (*model.DownloadJob, error)
	List(ctx context.Context, userID string) ([]model.DownloadJob, error)
	UpdateStatus(ctx context.Context, id string, status model.JobStatus) error
	MarkCompleted(ctx context.Context, id, storagePath string) error
	MarkFailed(ctx context.Context, id, msg string) error
	CancelJob(ctx context.Context, id, userID string) error
	Delete(ctx context.Context, id, userID string) error
}

// DownloadService creates download jobs and runs them through the bounded
// fetch queue: validate the target, buffer the body, stage it in a scratch
// directory, upload it to object storage and advance the job status.
type DownloadService struct {
	store   DownloadStore
	blob    storage.Store
	bucket  string
	tracker *progress.Tracker
	queue   *queue.Queue
	client  *http.Client
	logger  zerolog.Logger
}

// NewDownloadService wires a download service. httpClient may be nil.
func NewDownloadService(
	store DownloadStore,
	blob storage.Store,
	bucket string,
	tracker *progress.Tracker,
	q *queue.Queue,
	httpClient *http.Client,
	logger zerolog.Logger,
) *DownloadService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &DownloadService{
		store:   store,
		blob:    blob,
		bucket:  bucket,
		tracker: tracker,
		queue:   q,
		client:  httpClient,
		logger:  logger,
	}
}

// Create inserts a pending job and submits the fetch to the queue. It returns
// as soon as the job is accepted; completion is observed by polling.
func (s *DownloadService) Create(ctx context.Context, userID, rawURL string) (*model.DownloadJob, error) {
	if err := validateSourceURL(rawURL); err != nil {
		return nil, err
	}
	job := &model.DownloadJob{
		ID:     uuid.NewString(),
		UserID: userID,
		URL:    rawURL,
		Status: model.StatusPending,
	}
	if err := s.store.Create(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("url", rawURL).Msg("create download record failed")
		return nil, err
	}
	s.tracker.Set(job.ID, progress.Progress{Status: model.StatusPending})
	s.logger.Info().Str("job_id", job.ID).Str("user_id", userID).Str("url", rawURL).Msg("download created")

	task := *job
	s.queue.Submit(func(taskCtx context.Context) error {
		return s.process(taskCtx, &task)
	})
	return job, nil
}

// Get fetches a job scoped by (id, user). When an in-memory progress entry
// exists it is more current than the row, so the durable status is overwritten
// from it before returning.
func (s *DownloadService) Get(ctx context.Context, id, userID string) (*model.DownloadJob, error) {
	job, err := s.store.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if p, ok := s.tracker.Get(id); ok && p.Status != job.Status {
		if err := s.store.UpdateStatus(ctx, id, p.Status); err != nil {
			s.logger.Warn().Err(err).Str("job_id", id).Msg("status write-back failed")
		}
		job.Status = p.Status
	}
	return job, nil
}

// List returns a user's jobs, each reconciled against the progress tracker.
func (s *DownloadService) List(ctx context.Context, userID string) ([]model.DownloadJob, error) {
	jobs, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		if p, ok := s.tracker.Get(jobs[i].ID); ok {
			jobs[i].Status = p.Status
		}
	}
	return jobs, nil
}

// Delete removes the stored objects for a job, then its row. Storage cleanup
// is best-effort; a failure there is logged and does not block row deletion.
func (s *DownloadService) Delete(ctx context.Context, id, userID string) error {
	job, err := s.store.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	if job.StoragePath != "" {
		prefix := fmt.Sprintf("%s/downloads/%s/", userID, id)
		if err := s.blob.RemoveObjects(ctx, s.bucket, prefix); err != nil {
			s.logger.Error().Err(err).Str("job_id", id).Msg("delete storage objects failed")
		}
	}
	if err := s.store.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.logger.Info().Str("job_id", id).Str("user_id", userID).Msg("download deleted")
	return nil
}

// Cancel flips the durable status to failed. It does not interrupt an
// in-flight fetch; an already-running task keeps going and may still finish.
func (s *DownloadService) Cancel(ctx context.Context, id, userID string) error {
	if err := s.store.CancelJob(ctx, id, userID); err != nil {
		return err
	}
	s.logger.Info().Str("job_id", id).Str("user_id", userID).Msg("download canceled")
	return nil
}

// process runs the fetch inside a queue slot and records any failure in both
// the durable row and the tracker. The error is returned to the queue task
// and deliberately not escalated further.
func (s *DownloadService) process(ctx context.Context, job *model.DownloadJob) error {
	if err := s.fetchAndStore(ctx, job); err != nil {
		s.setProgressStatus(job.ID, model.StatusFailed)
		if dbErr := s.store.MarkFailed(ctx, job.ID, err.Error()); dbErr != nil {
			s.logger.Error().Err(dbErr).Str("job_id", job.ID).Msg("mark failed failed")
		}
		s.logger.Error().Err(err).Str("job_id", job.ID).Str("user_id", job.UserID).Msg("download failed")
		return err
	}
	return nil
}

func (s *DownloadService) fetchAndStore(ctx context.Context, job *model.DownloadJob) error {
	startTime := time.Now()
	tempDir, err := os.MkdirTemp("", "website-download-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tempDir)

	s.setProgressStatus(job.ID, model.StatusProcessing)
	if err := s.store.UpdateStatus(ctx, job.ID, model.StatusProcessing); err != nil {
		return err
	}
	s.logger.Info().Str("job_id", job.ID).Str("status", "processing").Msg("download in progress")

	if err := s.checkReachable(ctx, job.URL); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return classifyFetchError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	filename := utils.FileNameFromResponse(resp.Header.Get("Content-Disposition"), job.URL)
	if err := os.WriteFile(filepath.Join(tempDir, filename), data, 0o644); err != nil {
		return err
	}
	s.logger.Info().Str("job_id", job.ID).Str("filename", filename).Int("size", len(data)).Msg("file downloaded")
	s.tracker.Set(job.ID, progress.Progress{
		TotalFiles:      1,
		DownloadedFiles: 1,
		Status:          model.StatusProcessing,
	})

	storagePath := fmt.Sprintf("%s/downloads/%s/%s", job.UserID, job.ID, filename)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.blob.PutObject(ctx, s.bucket, storagePath, bytes.NewReader(data), int64(len(data)), storage.PutOptions{
		ContentType: contentType,
	}); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Str("storage_path", storagePath).Msg("upload failed")
		return err
	}

	if err := s.store.MarkCompleted(ctx, job.ID, storagePath); err != nil {
		return err
	}
	s.setProgressStatus(job.ID, model.StatusCompleted)
	s.logger.Info().
		Str("job_id", job.ID).
		Str("filename", filename).
		Int("size", len(data)).
		Dur("duration", time.Since(startTime)).
		Msg("download complete")
	return nil
}

// checkReachable performs a preliminary existence check against the target.
func (s *DownloadService) checkReachable(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return classifyFetchError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

func (s *DownloadService) setProgressStatus(jobID string, status model.JobStatus) {
	p, _ := s.tracker.Get(jobID)
	p.Status = status
	s.tracker.Set(jobID, p)
}

// classifyFetchError turns recognizable connection failures into user-facing
// messages; everything else propagates verbatim.
func classifyFetchError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return errors.New("site not found, check the URL")
	}
	var certErr *tls.CertificateVerificationError
	var hostErr x509.HostnameError
	var authErr x509.UnknownAuthorityError
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &authErr) || errors.As(err, &invalidErr) {
		return errors.New("site not found or invalid SSL certificate, check the URL")
	}
	return err
}

func validateSourceURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
