package ports

import (
	"context"

	"github.com/vendorhub/storefront/internal/core/domain"
)

// AuditRepository persists the moderation history.
type AuditRepository interface {
	InsertModerationEvent(ctx context.Context, event *domain.ModerationEvent) error
	ListModerationEvents(ctx context.Context, productID string) ([]domain.ModerationEvent, error)
}

// ModerationRecorder accepts applied decisions for asynchronous auditing.
type ModerationRecorder interface {
	Enqueue(event domain.ModerationEvent)
}
