package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	ID               any        `bson:"_id"`
	Name             string     `bson:"name"`
	Role             string     `bson:"role"`
	PackageActive    bool       `bson:"package_active"`
	PackageExpiresAt *time.Time `bson:"package_expires_at,omitempty"`
}

// MongoResolver reads the users collection owned by the account subsystem.
type MongoResolver struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoResolver(coll *mongo.Collection) *MongoResolver {
	return &MongoResolver{coll: coll, now: time.Now}
}

func (r *MongoResolver) ResolveUser(ctx context.Context, id string) (*User, error) {
	var key any = id
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		key = oid
	}
	opts := options.FindOne().SetProjection(bson.M{
		"name": 1, "role": 1, "package_active": 1, "package_expires_at": 1,
	})
	var d userDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": key}, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return d.toUser(id, r.now()), nil
}

func (d userDoc) toUser(id string, now time.Time) *User {
	active := d.PackageActive
	if active && d.PackageExpiresAt != nil && !d.PackageExpiresAt.After(now) {
		active = false
	}
	return &User{
		ID:               id,
		IsAdmin:          d.Role == "admin",
		HasActivePackage: active,
		DisplayName:      d.Name,
	}
}
