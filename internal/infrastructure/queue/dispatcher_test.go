package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorhub/storefront/internal/core/domain"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.ModerationEvent
	fail   string
}

func (r *recordingAudit) InsertModerationEvent(_ context.Context, e *domain.ModerationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ProductID == r.fail {
		return errors.New("write failed")
	}
	r.events = append(r.events, *e)
	return nil
}

func (r *recordingAudit) ListModerationEvents(_ context.Context, productID string) ([]domain.ModerationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ModerationEvent
	for _, e := range r.events {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestDispatcher_DrainsOnClose(t *testing.T) {
	audit := &recordingAudit{fail: "broken"}
	d := NewDispatcher(3, audit, zerolog.Nop())
	d.Start()

	for i := 0; i < 50; i++ {
		d.Enqueue(domain.ModerationEvent{ProductID: fmt.Sprintf("p%d", i%5), ActorID: fmt.Sprintf("a%d", i)})
	}
	d.Enqueue(domain.ModerationEvent{ProductID: "broken"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	require.NoError(t, d.Close(ctx), "Close is idempotent")

	audit.mu.Lock()
	assert.Len(t, audit.events, 50)
	audit.mu.Unlock()
}

func TestDispatcher_PerProductOrder(t *testing.T) {
	audit := &recordingAudit{}
	d := NewDispatcher(4, audit, zerolog.Nop())
	d.Start()

	for i := 0; i < 20; i++ {
		d.Enqueue(domain.ModerationEvent{ProductID: "p1", ActorID: fmt.Sprintf("%02d", i)})
	}
	require.NoError(t, d.Close(context.Background()))

	events, err := audit.ListModerationEvents(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, events, 20)
	for i, e := range events {
		assert.Equal(t, fmt.Sprintf("%02d", i), e.ActorID)
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(0, &recordingAudit{}, zerolog.Nop())
	assert.Len(t, d.workers, defaultWorkers)
	assert.Equal(t, d.shardIndex("p42"), d.shardIndex("p42"))
}

func TestDispatcher_EnqueueAfterCloseDropsEvent(t *testing.T) {
	audit := &recordingAudit{}
	d := NewDispatcher(2, audit, zerolog.Nop())
	d.Start()
	require.NoError(t, d.Close(context.Background()))

	assert.NotPanics(t, func() {
		d.Enqueue(domain.ModerationEvent{ProductID: "late", Decision: domain.DecisionApprove})
	})

	events, err := audit.ListModerationEvents(context.Background(), "late")
	require.NoError(t, err)
	assert.Empty(t, events)
}
