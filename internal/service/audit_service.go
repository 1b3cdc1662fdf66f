package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/pkg/jobs"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService persists audit entries off the request path. Without a queue it writes
// synchronously.
type AuditService struct {
	store  auditWriter
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService constructs the audit writer.
func NewAuditService(store auditWriter, queue *jobs.Queue, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, queue: queue, logger: logger}
}

// CreateAuditLog records the entry. The request context is only used for the synchronous
// path; queued writes outlive the request.
func (s *AuditService) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if s.queue == nil {
		return s.store.CreateAuditLog(ctx, log)
	}

	entry := *log
	err := s.queue.Submit(jobs.Task{
		Name: "audit:" + entry.Action,
		Run: func(ctx context.Context) error {
			return s.store.CreateAuditLog(ctx, &entry)
		},
	})
	if err != nil {
		s.logger.Warn("audit queue unavailable, writing inline", zap.String("action", entry.Action), zap.Error(err))
		return s.store.CreateAuditLog(ctx, log)
	}
	return nil
}
