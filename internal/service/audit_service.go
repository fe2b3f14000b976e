package service

import (
	"context"
	"time"

	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuditServiceImpl writes audit entries asynchronously. Audit persistence
// must never block or fail a business operation, so writes run in a
// goroutine with their own timeout and fall back to the log on error.
type AuditServiceImpl struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new AuditServiceImpl. A nil repo degrades to
// log-only auditing.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{repo: repo, log: log}
}

// Log records an audit entry. Fire-and-forget: the caller's context is
// not reused so that a cancelled request still gets its trail written.
func (s *AuditServiceImpl) Log(_ context.Context, entry *domain.AuditLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	event := s.log.Info().
		Str("audit_action", string(entry.Action)).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID)
	if entry.AccountID != nil {
		event = event.Str("account_id", entry.AccountID.String())
	}
	event.Msg("audit")

	if s.repo == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error().Err(err).
				Str("audit_action", string(entry.Action)).
				Str("resource_id", entry.ResourceID).
				Msg("failed to persist audit log")
		}
	}()
}
