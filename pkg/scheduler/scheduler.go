// Package scheduler persists and fires future tasks captured by the
// schedule_task tool. Jobs live in a JSON file and are evaluated on a
// fixed tick against their cron expressions.
package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/tinyland-inc/hookclaw/pkg/logger"
)

// tickInterval is how often due jobs are checked.
const tickInterval = 30 * time.Second

var ErrNotFound = errors.New("job not found")

// Job is a scheduled prompt bound to the channel and user that created it.
type Job struct {
	ID        string    `json:"id"`
	Schedule  string    `json:"schedule"` // cron expression
	Prompt    string    `json:"prompt"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	NextRun   time.Time `json:"next_run"`
	LastRun   time.Time `json:"last_run,omitzero"`
}

// OnJobFunc handles a fired job.
type OnJobFunc func(job *Job)

// Service owns the job store and the firing loop.
type Service struct {
	storePath string
	mu        sync.Mutex
	jobs      map[string]*Job
	onJob     OnJobFunc
	stop      chan struct{}
	stopped   sync.Once
	now       func() time.Time
	gron      *gronx.Gronx
}

func NewService(storePath string) *Service {
	return &Service{
		storePath: storePath,
		jobs:      make(map[string]*Job),
		stop:      make(chan struct{}),
		now:       time.Now,
		gron:      gronx.New(),
	}
}

// SetOnJob registers the handler invoked for each fired job.
func (s *Service) SetOnJob(fn OnJobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onJob = fn
}

// SetClock overrides the firing clock. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Add validates the cron expression and persists a new job.
func (s *Service) Add(schedule, prompt, channelID, userID string) (*Job, error) {
	if !s.gron.IsValid(schedule) {
		return nil, fmt.Errorf("invalid cron expression %q", schedule)
	}
	next, err := gronx.NextTickAfter(schedule, s.now(), false)
	if err != nil {
		return nil, fmt.Errorf("computing next run for %q: %w", schedule, err)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Schedule:  schedule,
		Prompt:    prompt,
		ChannelID: channelID,
		UserID:    userID,
		CreatedAt: s.now(),
		NextRun:   next,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	err = s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	logger.InfoCF("scheduler", "Job added", map[string]any{
		"job_id":   job.ID,
		"schedule": schedule,
		"user":     userID,
	})
	return job, nil
}

// List returns the jobs owned by userID, oldest first.
func (s *Service) List(userID string) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Job
	for _, j := range s.jobs {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out
}

// Remove deletes a job. Ownership is enforced: a user can only cancel
// their own jobs.
func (s *Service) Remove(id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.UserID != userID {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return s.persistLocked()
}

// Start loads persisted jobs and begins the firing loop.
func (s *Service) Start() error {
	if err := s.load(); err != nil {
		return err
	}
	go s.run()
	return nil
}

func (s *Service) Stop() {
	s.stopped.Do(func() { close(s.stop) })
}

func (s *Service) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.fireDue()
		case <-s.stop:
			return
		}
	}
}

// FireDue evaluates all jobs against the clock and fires the due ones.
// Exposed for tests; the run loop calls it on every tick.
func (s *Service) FireDue() { s.fireDue() }

func (s *Service) fireDue() {
	now := s.now()

	s.mu.Lock()
	var due []*Job
	for _, j := range s.jobs {
		if !j.NextRun.After(now) {
			due = append(due, j)
		}
	}
	for _, j := range due {
		j.LastRun = now
		next, err := gronx.NextTickAfter(j.Schedule, now, false)
		if err != nil {
			logger.ErrorCF("scheduler", "Next-run computation failed", map[string]any{
				"job_id": j.ID,
				"error":  err.Error(),
			})
			delete(s.jobs, j.ID)
			continue
		}
		j.NextRun = next
	}
	if len(due) > 0 {
		if err := s.persistLocked(); err != nil {
			logger.ErrorCF("scheduler", "Persist failed", map[string]any{"error": err.Error()})
		}
	}
	onJob := s.onJob
	s.mu.Unlock()

	if onJob == nil {
		return
	}
	for _, j := range due {
		logger.InfoCF("scheduler", "Job fired", map[string]any{
			"job_id": j.ID,
			"prompt": logger.Truncate(j.Prompt, 80),
		})
		go onJob(j)
	}
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.storePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var jobs []*Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return fmt.Errorf("parsing job store %s: %w", s.storePath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return nil
}

func (s *Service) persistLocked() error {
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.Before(jobs[k].CreatedAt) })

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.storePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.storePath, data, 0o600)
}
