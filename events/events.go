package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types matching the notification contract
const (
	RequestCreated           = "request.created"
	RequestStatusUpdated     = "request.status.updated"
	RequestAssigned          = "request.assigned"
	RequestFeedbackSubmitted = "request.feedback.submitted"
	OrderPlaced              = "order.placed"
	OrderStatusUpdated       = "order.status.updated"
)

// Event represents a domain event delivered to interested users.
type Event struct {
	EventID   string          `json:"event_id" bson:"event_id"`
	EventType string          `json:"event_type" bson:"event_type"`
	SubjectID string          `json:"subject_id" bson:"subject_id"` // request or order id
	Payload   json.RawMessage `json:"payload" bson:"payload"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp"`
}

// RequestCreatedPayload - published when a farmer files a service request
type RequestCreatedPayload struct {
	RequestID     string    `json:"request_id"`
	RequestNumber string    `json:"request_number"`
	FarmerID      string    `json:"farmer_id"`
	ServiceType   string    `json:"service_type"`
	Priority      string    `json:"priority"`
	CreatedAt     time.Time `json:"created_at"`
}

// RequestStatusUpdatedPayload - published on every lifecycle transition
type RequestStatusUpdatedPayload struct {
	RequestID     string    `json:"request_id"`
	RequestNumber string    `json:"request_number"`
	FarmerID      string    `json:"farmer_id"`
	AgentID       string    `json:"agent_id,omitempty"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	ChangedBy     string    `json:"changed_by"`
	ChangedAt     time.Time `json:"changed_at"`
}

// RequestAssignedPayload - published when an admin assigns an agent
type RequestAssignedPayload struct {
	RequestID     string    `json:"request_id"`
	RequestNumber string    `json:"request_number"`
	FarmerID      string    `json:"farmer_id"`
	AgentID       string    `json:"agent_id"`
	ScheduledDate time.Time `json:"scheduled_date,omitempty"`
	AssignedAt    time.Time `json:"assigned_at"`
}

// RequestFeedbackSubmittedPayload - published when the farmer rates a completed request
type RequestFeedbackSubmittedPayload struct {
	RequestID     string    `json:"request_id"`
	RequestNumber string    `json:"request_number"`
	FarmerID      string    `json:"farmer_id"`
	Rating        int       `json:"rating"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// NewEvent creates a new Event with a fresh id and timestamp.
func NewEvent(eventType, subjectID string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:   uuid.New().String(),
		EventType: eventType,
		SubjectID: subjectID,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}
