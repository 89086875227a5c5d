package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

// PrincipalStore implements ports.PrincipalStore on MongoDB. Role and
// permission assignments live in link collections so the closure is resolved
// with a single aggregation.
type PrincipalStore struct {
	db *mongo.Database
}

func NewPrincipalStore(db *mongo.Database) *PrincipalStore {
	return &PrincipalStore{db: db}
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type roleDoc struct {
	ID          string `bson:"_id"`
	Name        string `bson:"name"`
	Description string `bson:"description,omitempty"`
}

type userRoleDoc struct {
	UserID string `bson:"user_id"`
	RoleID string `bson:"role_id"`
}

// principalDoc is the shape produced by principalPipeline.
type principalDoc struct {
	ID          string   `bson:"_id"`
	Email       string   `bson:"email"`
	Name        string   `bson:"name"`
	Roles       []string `bson:"roles"`
	Permissions []string `bson:"permissions"`
}

func principalPipeline(userID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID}}},
		{{Key: "$lookup", Value: bson.M{
			"from": userRolesCollection, "localField": "_id", "foreignField": "user_id", "as": "links",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": rolesCollection, "localField": "links.role_id", "foreignField": "_id", "as": "role_docs",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": rolePermissionsCollection, "localField": "role_docs._id", "foreignField": "role_id", "as": "grants",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": permissionsCollection, "localField": "grants.permission_id", "foreignField": "_id", "as": "permission_docs",
		}}},
		{{Key: "$project", Value: bson.M{
			"email":       1,
			"name":        1,
			"roles":       "$role_docs.name",
			"permissions": bson.M{"$setUnion": bson.A{"$permission_docs.name", bson.A{}}},
		}}},
	}
}

func (s *PrincipalStore) FindPrincipal(ctx context.Context, userID string) (*domain.Principal, error) {
	cur, err := s.db.Collection(usersCollection).Aggregate(ctx, principalPipeline(userID))
	if err != nil {
		return nil, unavailable("aggregate principal", err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, unavailable("aggregate principal", err)
		}
		return nil, domain.ErrUserNotFound
	}

	var doc principalDoc
	if err := cur.Decode(&doc); err != nil {
		return nil, unavailable("decode principal", err)
	}
	return doc.toDomain(), nil
}

func (d principalDoc) toDomain() *domain.Principal {
	p := &domain.Principal{
		ID:          d.ID,
		Email:       d.Email,
		Name:        d.Name,
		Roles:       d.Roles,
		Permissions: d.Permissions,
	}
	if p.Roles == nil {
		p.Roles = []string{}
	}
	if p.Permissions == nil {
		p.Permissions = []string{}
	}
	return p
}

func (s *PrincipalStore) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"_id": userID})
}

func (s *PrincipalStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *PrincipalStore) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, unavailable("find user", err)
	}
	return doc.toDomain(), nil
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func newUserDoc(user *domain.User) userDoc {
	return userDoc{
		ID:           uuid.NewString(),
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UTC(),
		UpdatedAt:    user.UpdatedAt.UTC(),
	}
}

func (s *PrincipalStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc := newUserDoc(user)
	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, unavailable("insert user", err)
	}
	return doc.toDomain(), nil
}

// CreateUserWithRole runs in a multi-document transaction and needs a replica set.
func (s *PrincipalStore) CreateUserWithRole(ctx context.Context, user *domain.User, roleName string) (*domain.User, bool, error) {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return nil, false, unavailable("start session", err)
	}
	defer session.EndSession(ctx)

	doc := newUserDoc(user)
	var linked bool
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		linked = false
		if _, err := s.db.Collection(usersCollection).InsertOne(sc, doc); err != nil {
			return nil, err
		}
		if roleName == "" {
			return nil, nil
		}
		var role roleDoc
		err := s.db.Collection(rolesCollection).FindOne(sc, bson.M{"name": roleName}).Decode(&role)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if _, err := s.db.Collection(userRolesCollection).InsertOne(sc, userRoleDoc{UserID: doc.ID, RoleID: role.ID}); err != nil {
			return nil, err
		}
		linked = true
		return nil, nil
	})
	switch {
	case err == nil:
		return doc.toDomain(), linked, nil
	case mongo.IsDuplicateKeyError(err):
		return nil, false, domain.ErrUserExists
	default:
		return nil, false, unavailable("create user", err)
	}
}

func (s *PrincipalStore) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	var doc roleDoc
	if err := s.db.Collection(rolesCollection).FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, unavailable("find role", err)
	}
	return &domain.Role{ID: doc.ID, Name: doc.Name, Description: doc.Description}, nil
}

func (s *PrincipalStore) CreateUserRoleLink(ctx context.Context, userID, roleID string) error {
	if _, err := s.db.Collection(userRolesCollection).InsertOne(ctx, userRoleDoc{UserID: userID, RoleID: roleID}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return unavailable("insert user role", err)
	}
	return nil
}
