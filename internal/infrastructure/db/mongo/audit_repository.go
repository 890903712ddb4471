package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/ports"
)

const collectionModerationEvents = "moderation_events"

// AuditRepository keeps the moderation history. It outlives the product
// documents, which reject may delete.
type AuditRepository struct {
	col *mongo.Collection
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionModerationEvents)}
}

type moderationEventDoc struct {
	ProductID  string    `bson:"product_id"`
	Decision   string    `bson:"decision"`
	From       string    `bson:"from"`
	To         string    `bson:"to"`
	ActorID    string    `bson:"actor_id"`
	Deleted    bool      `bson:"deleted,omitempty"`
	At         time.Time `bson:"at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

func (r *AuditRepository) InsertModerationEvent(ctx context.Context, e *domain.ModerationEvent) error {
	doc := moderationEventDoc{
		ProductID:  e.ProductID,
		Decision:   string(e.Decision),
		From:       string(e.From),
		To:         string(e.To),
		ActorID:    e.ActorID,
		Deleted:    e.Deleted,
		At:         e.At.UTC(),
		RecordedAt: time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert moderation event: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListModerationEvents(ctx context.Context, productID string) ([]domain.ModerationEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"product_id": productID}, options.Find().SetSort(bson.D{{Key: "at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list moderation events: %w", err)
	}
	var docs []moderationEventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode moderation events: %w", err)
	}

	out := make([]domain.ModerationEvent, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.ModerationEvent{
			ProductID: d.ProductID,
			Decision:  domain.Decision(d.Decision),
			From:      domain.ProductStatus(d.From),
			To:        domain.ProductStatus(d.To),
			ActorID:   d.ActorID,
			Deleted:   d.Deleted,
			At:        d.At.UTC(),
		})
	}
	return out, nil
}

func (r *AuditRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "at", Value: 1}},
	})
	return err
}
