package domain

import "time"

// ModerationEvent records one applied moderation decision.
type ModerationEvent struct {
	ProductID string        `json:"product_id"`
	Decision  Decision      `json:"decision"`
	From      ProductStatus `json:"from"`
	To        ProductStatus `json:"to"`
	ActorID   string        `json:"actor_id"`
	Deleted   bool          `json:"deleted,omitempty"`
	At        time.Time     `json:"at"`
}
