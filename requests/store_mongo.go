package requests

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists service requests in a single collection. Writes are
// version-checked: the replace filter carries the version just read, so a
// concurrent writer makes the match fail and the caller sees ErrConflict
// instead of silently losing its update.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

// EnsureIndexes creates the indexes the store relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "request_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "farmer_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "status", Value: 1}},
		},
	})
	return err
}

func (s *MongoStore) Insert(ctx context.Context, r *ServiceRequest) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*ServiceRequest, error) {
	var out ServiceRequest
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	return &out, nil
}

func (s *MongoStore) Find(ctx context.Context, f Filter) ([]*ServiceRequest, error) {
	q := bson.M{}
	if f.FarmerID != nil {
		q["farmer_id"] = *f.FarmerID
	}
	if f.AgentID != nil {
		q["agent_id"] = *f.AgentID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.ServiceType != "" {
		q["service_type"] = f.ServiceType
	}
	cur, err := s.col.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer cur.Close(ctx)
	var out []*ServiceRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode requests: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Update(ctx context.Context, r *ServiceRequest) error {
	next := r.Clone()
	next.Version = r.Version + 1
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": r.ID, "version": r.Version}, next)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.col.CountDocuments(ctx, bson.M{"_id": r.ID})
		if err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		if n > 0 {
			return ErrConflict
		}
		return ErrNotFound
	}
	r.Version = next.Version
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
