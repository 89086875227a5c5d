package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// RefreshTokenStore implements ports.RefreshTokenStore on MongoDB.
// Rotate runs in a multi-document transaction and needs a replica set.
type RefreshTokenStore struct {
	coll *mongo.Collection
}

func NewRefreshTokenStore(db *mongo.Database) *RefreshTokenStore {
	return &RefreshTokenStore{coll: db.Collection(refreshTokensCollection)}
}

type refreshTokenDoc struct {
	ID        string    `bson:"_id"`
	Token     string    `bson:"token"`
	UserID    string    `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

func newRefreshTokenDoc(t *domain.RefreshToken) refreshTokenDoc {
	return refreshTokenDoc{
		ID:        t.ID,
		Token:     t.Token,
		UserID:    t.UserID,
		ExpiresAt: t.ExpiresAt.UTC(),
		CreatedAt: t.CreatedAt.UTC(),
	}
}

func (d refreshTokenDoc) toDomain() *domain.RefreshToken {
	return &domain.RefreshToken{
		ID:        d.ID,
		Token:     d.Token,
		UserID:    d.UserID,
		ExpiresAt: d.ExpiresAt.UTC(),
		CreatedAt: d.CreatedAt.UTC(),
	}
}

func (s *RefreshTokenStore) Insert(ctx context.Context, t *domain.RefreshToken) error {
	if _, err := s.coll.InsertOne(ctx, newRefreshTokenDoc(t)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return unavailable("insert refresh token", err)
	}
	return nil
}

func (s *RefreshTokenStore) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var doc refreshTokenDoc
	if err := s.coll.FindOne(ctx, bson.M{"token": token}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, unavailable("find refresh token", err)
	}
	return doc.toDomain(), nil
}

func (s *RefreshTokenStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return unavailable("delete refresh token", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRefreshTokenNotFound
	}
	return nil
}

func (s *RefreshTokenStore) Rotate(ctx context.Context, consumedID string, next *domain.RefreshToken) error {
	session, err := s.coll.Database().Client().StartSession()
	if err != nil {
		return unavailable("start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := s.coll.DeleteOne(sc, bson.M{"_id": consumedID})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, domain.ErrRefreshTokenNotFound
		}
		if _, err := s.coll.InsertOne(sc, newRefreshTokenDoc(next)); err != nil {
			return nil, err
		}
		return nil, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrRefreshTokenNotFound):
		return err
	case mongo.IsDuplicateKeyError(err):
		return domain.ErrConflict
	default:
		return unavailable("rotate refresh token", err)
	}
}

func (s *RefreshTokenStore) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, unavailable("delete user refresh tokens", err)
	}
	return res.DeletedCount, nil
}

func (s *RefreshTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now.UTC()}})
	if err != nil {
		return 0, unavailable("delete expired refresh tokens", err)
	}
	return res.DeletedCount, nil
}
