package requests

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role identifies what kind of user a principal is.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleAgent       Role = "agent"
	RoleFarmer      Role = "farmer"
	RoleShopManager Role = "shop_manager"
)

// Principal is the authenticated actor performing an operation.
type Principal struct {
	ID   primitive.ObjectID
	Role Role
}

// Status represents the current lifecycle state of a service request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusOnHold     Status = "on_hold"
)

// IsTerminal reports whether no further transition is defined from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// ServiceType classifies the kind of farm work requested.
type ServiceType string

const (
	ServiceCropConsultation      ServiceType = "crop_consultation"
	ServicePestControl           ServiceType = "pest_control"
	ServiceSoilTesting           ServiceType = "soil_testing"
	ServiceIrrigationSetup       ServiceType = "irrigation_setup"
	ServiceEquipmentMaintenance  ServiceType = "equipment_maintenance"
	ServiceFertilizerApplication ServiceType = "fertilizer_application"
	ServiceHarvest               ServiceType = "harvest"
	ServicePlanting              ServiceType = "planting"
	ServiceMaintenance           ServiceType = "maintenance"
	ServiceConsultation          ServiceType = "consultation"
	ServiceMarketLinkage         ServiceType = "market_linkage"
	ServiceTraining              ServiceType = "training"
	ServiceOther                 ServiceType = "other"
)

// NormalizeServiceType maps accepted aliases onto canonical values.
// "harvest_assistance" is the legacy spelling of the harvest type.
func NormalizeServiceType(s string) (ServiceType, bool) {
	switch ServiceType(s) {
	case ServiceHarvest, "harvest_assistance":
		return ServiceHarvest, true
	case ServiceCropConsultation, ServicePestControl, ServiceSoilTesting,
		ServiceIrrigationSetup, ServiceEquipmentMaintenance, ServiceFertilizerApplication,
		ServicePlanting, ServiceMaintenance, ServiceConsultation,
		ServiceMarketLinkage, ServiceTraining, ServiceOther:
		return ServiceType(s), true
	}
	return "", false
}

// Priority of a service request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Location of the farm the service is requested for. Province is required.
type Location struct {
	Province    string   `bson:"province" json:"province"`
	District    string   `bson:"district,omitempty" json:"district,omitempty"`
	Sector      string   `bson:"sector,omitempty" json:"sector,omitempty"`
	Cell        string   `bson:"cell,omitempty" json:"cell,omitempty"`
	Village     string   `bson:"village,omitempty" json:"village,omitempty"`
	Coordinates *LatLng  `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

type LatLng struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// HassBreakdown is the percentage allocation of harvested avocados across
// size categories. Only the categories the farmer selected are present.
type HassBreakdown struct {
	C12C14 *float64 `bson:"c12c14,omitempty" json:"c12c14,omitempty"`
	C16C18 *float64 `bson:"c16c18,omitempty" json:"c16c18,omitempty"`
	C20C24 *float64 `bson:"c20c24,omitempty" json:"c20c24,omitempty"`
}

// SizeShare is one selected size category with its percentage.
type SizeShare struct {
	Category string
	Percent  float64
}

// Selected returns only the categories the farmer filled in.
func (h *HassBreakdown) Selected() []SizeShare {
	if h == nil {
		return nil
	}
	var out []SizeShare
	if h.C12C14 != nil {
		out = append(out, SizeShare{"c12c14", *h.C12C14})
	}
	if h.C16C18 != nil {
		out = append(out, SizeShare{"c16c18", *h.C16C18})
	}
	if h.C20C24 != nil {
		out = append(out, SizeShare{"c20c24", *h.C20C24})
	}
	return out
}

// HarvestDetails is the sub-document carried only by harvest-type requests.
type HarvestDetails struct {
	WorkersNeeded   int            `bson:"workers_needed" json:"workers_needed"`
	EquipmentNeeded []string       `bson:"equipment_needed,omitempty" json:"equipment_needed,omitempty"`
	TreesToHarvest  int            `bson:"trees_to_harvest" json:"trees_to_harvest"`
	HarvestDateFrom time.Time      `bson:"harvest_date_from" json:"harvest_date_from"`
	HarvestDateTo   time.Time      `bson:"harvest_date_to" json:"harvest_date_to"`
	HassBreakdown   *HassBreakdown `bson:"hass_breakdown,omitempty" json:"hass_breakdown,omitempty"`

	// Set on approval.
	ApprovedWorkers   *int     `bson:"approved_workers,omitempty" json:"approved_workers,omitempty"`
	ApprovedEquipment []string `bson:"approved_equipment,omitempty" json:"approved_equipment,omitempty"`

	// Set on completion.
	ActualWorkersUsed   *int     `bson:"actual_workers_used,omitempty" json:"actual_workers_used,omitempty"`
	ActualHarvestAmount *float64 `bson:"actual_harvest_amount,omitempty" json:"actual_harvest_amount,omitempty"`
	HarvestQualityNotes string   `bson:"harvest_quality_notes,omitempty" json:"harvest_quality_notes,omitempty"`
	CompletionImages    []string `bson:"completion_images,omitempty" json:"completion_images,omitempty"`
}

// Feedback is attached at most once to a completed request.
type Feedback struct {
	Rating      int       `bson:"rating" json:"rating"`
	Comment     string    `bson:"comment,omitempty" json:"comment,omitempty"`
	SubmittedAt time.Time `bson:"submitted_at" json:"submitted_at"`
}

// ServiceRequest is the aggregate root of the lifecycle engine.
type ServiceRequest struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	RequestNumber string              `bson:"request_number" json:"request_number"`
	FarmerID      primitive.ObjectID  `bson:"farmer_id" json:"farmer_id"`
	AgentID       *primitive.ObjectID `bson:"agent_id,omitempty" json:"agent_id,omitempty"`

	ServiceType ServiceType `bson:"service_type" json:"service_type"`
	Status      Status      `bson:"status" json:"status"`
	Priority    Priority    `bson:"priority" json:"priority"`

	Title       string   `bson:"title" json:"title"`
	Description string   `bson:"description" json:"description"`
	Location    Location `bson:"location" json:"location"`

	RequestedDate time.Time  `bson:"requested_date" json:"requested_date"`
	ScheduledDate *time.Time `bson:"scheduled_date,omitempty" json:"scheduled_date,omitempty"`
	StartedAt     *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt   *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	ApprovedAt    *time.Time `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	RejectedAt    *time.Time `bson:"rejected_at,omitempty" json:"rejected_at,omitempty"`

	ApprovedBy      *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	RejectedBy      *primitive.ObjectID `bson:"rejected_by,omitempty" json:"rejected_by,omitempty"`
	CompletedBy     *primitive.ObjectID `bson:"completed_by,omitempty" json:"completed_by,omitempty"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`

	CostEstimate *float64 `bson:"cost_estimate,omitempty" json:"cost_estimate,omitempty"`
	FinalCost    *float64 `bson:"final_cost,omitempty" json:"final_cost,omitempty"`
	Notes        string   `bson:"notes,omitempty" json:"notes,omitempty"`

	HarvestDetails *HarvestDetails `bson:"harvest_details,omitempty" json:"harvest_details,omitempty"`
	Feedback       *Feedback       `bson:"feedback,omitempty" json:"feedback,omitempty"`

	// Version guards read-modify-write cycles; stores reject a write whose
	// version does not match the stored document and bump it on success.
	Version int64 `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsOwner reports whether p is the farmer that filed the request.
func (r *ServiceRequest) IsOwner(p Principal) bool {
	return p.Role == RoleFarmer && p.ID == r.FarmerID
}

// IsAssignedAgent reports whether p is the agent assigned to the request.
func (r *ServiceRequest) IsAssignedAgent(p Principal) bool {
	return p.Role == RoleAgent && r.AgentID != nil && *r.AgentID == p.ID
}

// Clone returns a deep copy of the request.
func (r *ServiceRequest) Clone() *ServiceRequest {
	out := *r
	out.AgentID = clonePtr(r.AgentID)
	out.ScheduledDate = clonePtr(r.ScheduledDate)
	out.StartedAt = clonePtr(r.StartedAt)
	out.CompletedAt = clonePtr(r.CompletedAt)
	out.ApprovedAt = clonePtr(r.ApprovedAt)
	out.RejectedAt = clonePtr(r.RejectedAt)
	out.ApprovedBy = clonePtr(r.ApprovedBy)
	out.RejectedBy = clonePtr(r.RejectedBy)
	out.CompletedBy = clonePtr(r.CompletedBy)
	out.CostEstimate = clonePtr(r.CostEstimate)
	out.FinalCost = clonePtr(r.FinalCost)
	if r.Location.Coordinates != nil {
		c := *r.Location.Coordinates
		out.Location.Coordinates = &c
	}
	if r.HarvestDetails != nil {
		h := *r.HarvestDetails
		h.EquipmentNeeded = append([]string(nil), r.HarvestDetails.EquipmentNeeded...)
		h.ApprovedEquipment = append([]string(nil), r.HarvestDetails.ApprovedEquipment...)
		h.CompletionImages = append([]string(nil), r.HarvestDetails.CompletionImages...)
		h.ApprovedWorkers = clonePtr(r.HarvestDetails.ApprovedWorkers)
		h.ActualWorkersUsed = clonePtr(r.HarvestDetails.ActualWorkersUsed)
		h.ActualHarvestAmount = clonePtr(r.HarvestDetails.ActualHarvestAmount)
		if r.HarvestDetails.HassBreakdown != nil {
			hb := *r.HarvestDetails.HassBreakdown
			hb.C12C14 = clonePtr(r.HarvestDetails.HassBreakdown.C12C14)
			hb.C16C18 = clonePtr(r.HarvestDetails.HassBreakdown.C16C18)
			hb.C20C24 = clonePtr(r.HarvestDetails.HassBreakdown.C20C24)
			h.HassBreakdown = &hb
		}
		out.HarvestDetails = &h
	}
	if r.Feedback != nil {
		f := *r.Feedback
		out.Feedback = &f
	}
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Agent is the directory view of an assignable field agent.
type Agent struct {
	ID   primitive.ObjectID
	Name string
}
