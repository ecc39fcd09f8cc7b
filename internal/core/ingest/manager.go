package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
)

type Kind string

const (
	KindVideo   Kind = "video"
	KindChannel Kind = "channel"
)

type Job struct {
	ID            string         `json:"id"`
	Kind          Kind           `json:"kind"`
	Input         string         `json:"input"`
	Stage         Stage          `json:"stage"`
	Percent       int            `json:"percent"`
	Message       string         `json:"message"`
	Error         string         `json:"error,omitempty"`
	Result        *Result        `json:"result,omitempty"`
	ChannelResult *ChannelResult `json:"channel_result,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DefaultRetention is how long a finished job stays queryable.
const DefaultRetention = 24 * time.Hour

type jobState struct {
	job    Job
	cancel context.CancelFunc
}

// Manager runs ingestion jobs in the background, each under its own
// deadline so a job outlives the request that started it.
type Manager struct {
	svc       *Service
	timeout   time.Duration
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*jobState
	wg   sync.WaitGroup
}

func NewManager(svc *Service, timeout time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Manager{
		svc:       svc,
		timeout:   timeout,
		retention: DefaultRetention,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.Named("jobs"),
		jobs:      make(map[string]*jobState),
	}
}

func (m *Manager) Start(kind Kind, input string, opts Options) Job {
	now := m.now()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	st := &jobState{
		job: Job{
			ID:        uuid.New().String(),
			Kind:      kind,
			Input:     input,
			Stage:     StageQueued,
			Message:   "Queued",
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.pruneLocked(now)
	m.jobs[st.job.ID] = st
	snapshot := st.job
	m.mu.Unlock()

	userProgress := opts.Progress
	opts.Progress = func(p Progress) {
		m.update(st, func(j *Job) {
			j.Stage, j.Percent, j.Message = p.Stage, p.Percent, p.Message
		})
		if userProgress != nil {
			userProgress(p)
		}
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.run(ctx, st, opts)
	}()

	m.logger.Info("job started", zap.String("job_id", snapshot.ID), zap.String("kind", string(kind)), zap.String("input", input))
	return snapshot
}

func (m *Manager) run(ctx context.Context, st *jobState, opts Options) {
	var (
		res   Result
		chRes ChannelResult
		err   error
	)
	switch st.job.Kind {
	case KindChannel:
		chRes, err = m.svc.IngestChannel(ctx, st.job.Input, opts)
	default:
		res, err = m.svc.IngestVideo(ctx, st.job.Input, opts)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	j := &st.job
	j.UpdatedAt = m.now()

	switch {
	case errors.Is(err, context.Canceled):
		j.Stage = StageCancelled
		j.Message = "Cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		j.Stage = StageError
		j.Error = fmt.Sprintf("timed out after %s", m.timeout)
		j.Message = j.Error
	case err != nil:
		j.Stage = StageError
		j.Error = err.Error()
		j.Message = "Ingestion failed"
	default:
		j.Stage = StageComplete
		j.Percent = 100
		if j.Kind == KindChannel {
			j.ChannelResult = &chRes
			j.Message = fmt.Sprintf("Ingested %d videos, %d failed", len(chRes.Ingested), len(chRes.Failed))
		} else {
			j.Result = &res
			j.Message = "Complete"
		}
	}
	m.logger.Info("job finished", zap.String("job_id", j.ID), zap.String("stage", string(j.Stage)), zap.String("error", j.Error))
}

// update applies f unless the job already reached a terminal stage.
func (m *Manager) update(st *jobState, f func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st.job.Stage.Terminal() {
		return
	}
	f(&st.job)
	st.job.UpdatedAt = m.now()
}

// pruneLocked drops finished jobs last updated more than the retention
// window before now. m.mu must be held for writing.
func (m *Manager) pruneLocked(now time.Time) {
	cutoff := now.Add(-m.retention)
	for id, st := range m.jobs {
		if st.job.Stage.Terminal() && st.job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}

func (m *Manager) Get(id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", id, apperrors.ErrNotFound)
	}
	return st.job, nil
}

// List returns retained jobs, newest first.
func (m *Manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(m.now())
	out := make([]Job, 0, len(m.jobs))
	for _, st := range m.jobs {
		out = append(out, st.job)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Cancel stops a running job. Cancelling a finished job is a no-op.
func (m *Manager) Cancel(id string) (Job, error) {
	m.mu.RLock()
	st, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", id, apperrors.ErrNotFound)
	}
	st.cancel()
	m.logger.Info("job cancel requested", zap.String("job_id", id))
	return m.Get(id)
}

// Wait blocks until every started job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown cancels running jobs and waits for them to stop.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	for _, st := range m.jobs {
		st.cancel()
	}
	m.mu.RUnlock()
	m.wg.Wait()
}
