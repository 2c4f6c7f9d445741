package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/altafino/mail-watcher/internal/mailauth"
	"github.com/altafino/mail-watcher/internal/store"
	"github.com/altafino/mail-watcher/internal/wizard"
)

// MailCounter reports the message count of one folder. Implemented by the
// mailauth client.
type MailCounter interface {
	MessageCount(p mailauth.ConnParams, folder string) (uint32, error)
}

// Scheduler runs a periodic mailbox poll per stored entry and keeps the job
// set in sync with the entry store.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	entries   *store.Store
	mail      MailCounter
	jobs      map[string]*gocron.Job
	mu        sync.RWMutex
	done      chan struct{}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(logger *slog.Logger, entries *store.Store, mail MailCounter) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
		entries:   entries,
		mail:      mail,
		jobs:      make(map[string]*gocron.Job),
		done:      make(chan struct{}),
	}
}

// Start schedules every stored entry and begins watching for updates.
func (s *Scheduler) Start() {
	for _, entry := range s.entries.List() {
		if err := s.UpdateJob(entry); err != nil {
			s.logger.Error("failed to schedule entry",
				"error", err,
				"entry_id", entry.ID,
			)
		}
	}

	go s.watchReloads()
	s.scheduler.StartAsync()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.done)
	s.scheduler.Stop()
}

// watchReloads reschedules an entry whenever the store reports it changed.
// An update carries fresh credentials or a new interval, so the old job is
// replaced rather than left running.
func (s *Scheduler) watchReloads() {
	for {
		select {
		case <-s.done:
			return
		case id := <-s.entries.ReloadChan():
			entry, err := s.entries.Get(id)
			if err != nil {
				s.logger.Error("reload for unknown entry", "entry_id", id)
				continue
			}
			s.logger.Info("rescheduling updated entry", "entry_id", id)
			if err := s.UpdateJob(entry); err != nil {
				s.logger.Error("failed to reschedule entry",
					"error", err,
					"entry_id", id,
				)
			}
		}
	}
}

// UpdateJob updates or creates the poll job for an entry.
func (s *Scheduler) UpdateJob(entry *store.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Remove existing job if any
	if job, exists := s.jobs[entry.ID]; exists {
		s.scheduler.RemoveByReference(job)
		delete(s.jobs, entry.ID)
	}

	interval := intField(entry.Data, wizard.KeyScanInterval)
	if interval < wizard.MinScanInterval {
		interval = wizard.DefaultScanInterval
	}

	folder := stringField(entry.Data, wizard.KeyFolder)
	if folder == "" {
		folder = wizard.DefaultFolder
	}

	params := connParams(entry.Data)

	jobFunc := func() {
		count, err := s.mail.MessageCount(params, folder)
		if err != nil {
			s.logger.Error("failed to poll mailbox",
				"error", err,
				"entry_id", entry.ID,
				"folder", folder,
			)
			return
		}
		s.logger.Info("polled mailbox",
			"entry_id", entry.ID,
			"folder", folder,
			"messages", count,
		)
	}

	job, err := s.scheduler.Every(interval).Minutes().Do(jobFunc)
	if err != nil {
		return fmt.Errorf("failed to schedule job for %s: %w", entry.ID, err)
	}

	s.jobs[entry.ID] = job
	s.logger.Info("scheduled mailbox poll",
		"entry_id", entry.ID,
		"interval_minutes", interval,
		"folder", folder,
	)
	return nil
}

// JobCount returns the number of scheduled entries.
func (s *Scheduler) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func connParams(data map[string]any) mailauth.ConnParams {
	timeout := intField(data, wizard.KeyIMAPTimeout)
	if timeout == 0 {
		timeout = wizard.DefaultIMAPTimeout
	}

	p := mailauth.ConnParams{
		Host:     stringField(data, wizard.KeyHost),
		Port:     intField(data, wizard.KeyPort),
		Username: stringField(data, wizard.KeyUsername),
		Timeout:  time.Duration(timeout) * time.Second,
	}

	if stringField(data, wizard.KeyMethod) == wizard.MethodStandard {
		p.Password = stringField(data, wizard.KeyPassword)
	} else {
		p.Token = stringField(data, wizard.KeyToken)
	}
	return p
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
