package service

import (
	"context"
	"sync"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const auditWriteTimeout = 5 * time.Second

// AuditServiceImpl implements ports.AuditWriter with a bounded queue drained
// by a fixed pool of workers. Append never blocks: when the queue is full the
// record is dropped and logged.
type AuditServiceImpl struct {
	repo  ports.AuditRepository
	log   zerolog.Logger
	queue chan *domain.AuditRecord

	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewAuditService starts workers goroutines. If repo is nil, audit records are
// only written to the logger.
func NewAuditService(repo ports.AuditRepository, workers, queueSize int, log zerolog.Logger) *AuditServiceImpl {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	s := &AuditServiceImpl{
		repo:  repo,
		log:   log,
		queue: make(chan *domain.AuditRecord, queueSize),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Append enqueues record for persistence.
func (s *AuditServiceImpl) Append(_ context.Context, record *domain.AuditRecord) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.log.Warn().Str("action", string(record.Action)).Msg("audit writer closed, record dropped")
		return
	}

	select {
	case s.queue <- record:
	default:
		s.log.Error().
			Str("action", string(record.Action)).
			Str("resource_id", record.ResourceID).
			Msg("audit queue full, record dropped")
	}
}

// Close stops accepting records and waits for queued ones to be written,
// or for ctx to expire.
func (s *AuditServiceImpl) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AuditServiceImpl) worker() {
	defer s.wg.Done()
	for record := range s.queue {
		s.write(record)
	}
}

func (s *AuditServiceImpl) write(record *domain.AuditRecord) {
	s.log.Info().
		Str("action", string(record.Action)).
		Str("actor_id", record.ActorID.String()).
		Str("resource_type", record.ResourceType).
		Str("resource_id", record.ResourceID).
		Str("outcome", string(record.Outcome)).
		Msg("audit")

	if s.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, record); err != nil {
		s.log.Warn().Err(err).Str("action", string(record.Action)).Msg("failed to persist audit record")
	}
}
