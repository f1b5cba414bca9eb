package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/repositories"
	"github.com/upb/catering-erp/tenant"
	"go.uber.org/zap"
)

// LoginEvent is one login attempt waiting to be written. Tenant is captured
// at enqueue time so the writer targets the data store the attempt was made
// against, whichever request the worker goroutine last served.
type LoginEvent struct {
	Attempt *models.LoginAttempt
	Tenant  tenant.Context
}

// AuditService writes login attempts in the background
type AuditService struct {
	repo        repositories.LoginAttemptRepository
	logger      *zap.Logger
	eventChan   chan *LoginEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	// senders hold mu.RLock while enqueueing so Stop never closes eventChan
	// under a pending send
	mu      sync.RWMutex
	started bool
	stopped bool
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repositories.LoginAttemptRepository, logger *zap.Logger, config Config) *AuditService {
	if config.BufferSize <= 0 || config.WorkerCount <= 0 {
		config = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &AuditService{
		repo:        repo,
		logger:      logger,
		eventChan:   make(chan *LoginEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting events and waits for queued ones to be written
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	s.stopped = true
	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))
	close(s.eventChan)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record queues attempt for the tenant bound to ctx, waiting for buffer
// space until ctx is done
func (s *AuditService) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return fmt.Errorf("audit service not running")
	}

	event := &LoginEvent{Attempt: attempt, Tenant: tenant.FromContext(ctx)}
	select {
	case s.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

// Recent returns the latest attempts for username in the tenant bound to ctx
func (s *AuditService) Recent(ctx context.Context, username string, limit int) ([]*models.LoginAttempt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUsername(ctx, username, limit)
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to write login attempt",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("username", event.Attempt.Username),
				zap.Int64("tenant_id", event.Tenant.TenantID))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent writes a single attempt to its tenant's data store
func (s *AuditService) processEvent(event *LoginEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ctx = tenant.WithContext(ctx, event.Tenant)
	if err := s.repo.Insert(ctx, event.Attempt); err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int  `json:"bufferSize"`
	PendingEvents int  `json:"pendingEvents"`
	WorkerCount   int  `json:"workerCount"`
	Started       bool `json:"started"`
}
