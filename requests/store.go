package requests

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Filter narrows a listing. Nil/zero members are ignored.
type Filter struct {
	FarmerID    *primitive.ObjectID
	AgentID     *primitive.ObjectID
	Status      Status
	ServiceType ServiceType
}

// Store persists service requests. Update is a compare-and-swap on
// (id, version): a write whose version does not match the stored document
// fails with ErrConflict, and a successful write bumps the version by one
// both in the store and on the passed request.
type Store interface {
	Insert(ctx context.Context, r *ServiceRequest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*ServiceRequest, error)
	Find(ctx context.Context, f Filter) ([]*ServiceRequest, error)
	Update(ctx context.Context, r *ServiceRequest) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

func (f Filter) matches(r *ServiceRequest) bool {
	if f.FarmerID != nil && r.FarmerID != *f.FarmerID {
		return false
	}
	if f.AgentID != nil && (r.AgentID == nil || *r.AgentID != *f.AgentID) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.ServiceType != "" && r.ServiceType != f.ServiceType {
		return false
	}
	return true
}
