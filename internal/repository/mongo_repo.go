package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore ensures the indexes the store relies on. The unique
// participants_key index is what makes FindOrCreate race free.
func NewMongoStore(ctx context.Context, coll *mongo.Collection) (*MongoStore, error) {
	ixs := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "participants_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("participants_key_uniq"),
		},
		{
			Keys:    bson.D{{Key: "participants", Value: 1}, {Key: "last_updated", Value: -1}},
			Options: options.Index().SetName("participants_updated_idx"),
		},
	}
	if _, err := coll.Indexes().CreateMany(ctx, ixs); err != nil {
		return nil, fmt.Errorf("create conversation indexes: %w", err)
	}
	return &MongoStore{coll: coll}, nil
}

func (r *MongoStore) FindOrCreate(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	lo, hi := domain.SortedPair(userA, userB)
	key := domain.PairKey(lo, hi)
	now := time.Now().UTC()

	filter := bson.M{"participants_key": key}
	update := bson.M{"$setOnInsert": bson.M{
		"participants":     []string{lo, hi},
		"participants_key": key,
		"messages":         bson.A{},
		"message_count":    0,
		"created_at":       now,
		"last_updated":     now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	// Two concurrent upserts can both miss and one then fails on the unique
	// index; the retry finds the winner's document.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		var c domain.Conversation
		err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
		if err == nil {
			return &c, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	return nil, fmt.Errorf("find or create conversation: %w", err)
}

func (r *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoStore) FindByParticipants(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"participants_key": domain.PairKey(userA, userB)})
}

func (r *MongoStore) findOne(ctx context.Context, filter bson.M) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := r.coll.FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrConversationNotFound
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &c, nil
}

func (r *MongoStore) Append(ctx context.Context, conversationID primitive.ObjectID, m domain.Message) (int, error) {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	update := bson.M{
		"$push": bson.M{"messages": m},
		"$inc":  bson.M{"message_count": 1},
		"$max":  bson.M{"last_updated": m.CreatedAt},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"message_count": 1})

	var out struct {
		MessageCount int `bson:"message_count"`
	}
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": conversationID}, update, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, apperr.ErrConversationNotFound
		}
		return 0, fmt.Errorf("append message: %w", err)
	}
	return out.MessageCount - 1, nil
}

func (r *MongoStore) SetReadFlag(ctx context.Context, conversationID primitive.ObjectID, index int, flag domain.ReadFlag, value bool) (bool, error) {
	if !value {
		return false, apperr.Invalid("read flags cannot be cleared")
	}
	n, err := r.SetReadFlags(ctx, conversationID, []FlagUpdate{{Index: index, Flag: flag}})
	return n > 0, err
}

// SetReadFlags issues one conditional update per flag so ModifiedCount is
// exactly the number of flags that moved from false to true.
func (r *MongoStore) SetReadFlags(ctx context.Context, conversationID primitive.ObjectID, updates []FlagUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		if u.Index < 0 {
			return 0, apperr.ErrMessageNotFound
		}
		if !u.Flag.Valid() {
			return 0, apperr.Invalid("unknown read flag %q", u.Flag)
		}
		elem := "messages." + strconv.Itoa(u.Index)
		field := elem + "." + string(u.Flag)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{
				"_id": conversationID,
				elem:  bson.M{"$exists": true},
				field: bson.M{"$ne": true},
			}).
			SetUpdate(bson.M{"$set": bson.M{field: true}}))
	}
	res, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("set read flags: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func (r *MongoStore) FindByParticipant(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_updated", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	defer cur.Close(ctx)

	out := []*domain.Conversation{}
	for cur.Next(ctx) {
		var c domain.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}
