package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// AuthEventRepository appends audit records to the auth_events collection.
type AuthEventRepository struct {
	coll *mongo.Collection
}

func NewAuthEventRepository(db *mongo.Database) *AuthEventRepository {
	return &AuthEventRepository{coll: db.Collection(authEventsCollection)}
}

func authEventDoc(e *domain.AuthEvent) bson.M {
	doc := bson.M{
		"kind":        string(e.Kind),
		"outcome":     e.Outcome,
		"occurred_at": e.OccurredAt.UTC(),
		"recorded_at": time.Now().UTC(),
	}
	if e.UserID != "" {
		doc["user_id"] = e.UserID
	}
	if e.Email != "" {
		doc["email"] = e.Email
	}
	if e.Reason != "" {
		doc["reason"] = e.Reason
	}
	return doc
}

func (r *AuthEventRepository) InsertAuthEvent(ctx context.Context, event *domain.AuthEvent) error {
	if _, err := r.coll.InsertOne(ctx, authEventDoc(event)); err != nil {
		return unavailable("insert auth event", err)
	}
	return nil
}
