package progress

import (
	"sync"
	"time"

	"inkgen/model"
)

// Progress is the in-flight status of a download job. It shadows the durable
// record while the fetch worker is running and is never persisted.
type Progress struct {
	TotalFiles      int             `json:"totalFiles"`
	DownloadedFiles int             `json:"downloadedFiles"`
	Status          model.JobStatus `json:"status"`

	updatedAt time.Time
}

// Tracker is the process-wide map from job id to in-flight status. Entries for
// finished jobs are swept after a retention window, and the map is capped so a
// long-lived process cannot grow it without bound.
type Tracker struct {
	mu         sync.Mutex
	entries    map[string]Progress
	retention  time.Duration
	maxEntries int
}

// NewTracker builds a tracker. retention <= 0 keeps terminal entries for an
// hour; maxEntries <= 0 caps the map at 1024 entries.
func NewTracker(retention time.Duration, maxEntries int) *Tracker {
	if retention <= 0 {
		retention = time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Tracker{
		entries:    make(map[string]Progress),
		retention:  retention,
		maxEntries: maxEntries,
	}
}

// Get returns the progress entry for a job, if one exists.
func (t *Tracker) Get(jobID string) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.entries[jobID]
	return p, ok
}

// Set stores the progress entry for a job and sweeps stale terminal entries.
func (t *Tracker) Set(jobID string, p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p.updatedAt = time.Now()
	t.entries[jobID] = p
	t.sweepLocked()
}

// Len returns the number of tracked entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// sweepLocked removes terminal entries past the retention window, then evicts
// the oldest terminal entries while the map exceeds maxEntries. In-flight
// entries are never evicted.
func (t *Tracker) sweepLocked() {
	cutoff := time.Now().Add(-t.retention)
	for id, p := range t.entries {
		if p.Status.Terminal() && p.updatedAt.Before(cutoff) {
			delete(t.entries, id)
		}
	}
	for len(t.entries) > t.maxEntries {
		oldestID := ""
		var oldest time.Time
		for id, p := range t.entries {
			if !p.Status.Terminal() {
				continue
			}
			if oldestID == "" || p.updatedAt.Before(oldest) {
				oldestID = id
				oldest = p.updatedAt
			}
		}
		if oldestID == "" {
			return
		}
		delete(t.entries, oldestID)
	}
}
