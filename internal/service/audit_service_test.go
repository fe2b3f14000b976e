package service

import (
	"context"
	"testing"
	"time"

	"credit-exchange/internal/adapter/storage/memory"
	"credit-exchange/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_NilRepoLogsOnly(t *testing.T) {
	svc := NewAuditService(nil, zerolog.Nop())
	account := uuid.New()

	// Must not panic or block.
	svc.Log(context.Background(), &domain.AuditLog{
		Action:       domain.AuditActionPlaceOrder,
		AccountID:    &account,
		ResourceType: "order",
	})
}

func TestAuditService_PersistsAsynchronously(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewAuditRepo(store)
	svc := NewAuditService(repo, zerolog.Nop())

	entry := &domain.AuditLog{
		Action:       domain.AuditActionCancelOrder,
		ResourceType: "order",
		ResourceID:   uuid.NewString(),
	}
	svc.Log(context.Background(), entry)

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	require.Eventually(t, func() bool {
		logs, err := repo.ListRecent(context.Background(), 10)
		return err == nil && len(logs) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
