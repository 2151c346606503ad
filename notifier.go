package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"agrohub/events"
)

// notification is one per-user inbox entry derived from a domain event.
type notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	SubjectID string             `bson:"subject_id" json:"subject_id"`
	EventType string             `bson:"event_type" json:"event_type"`
	Message   string             `bson:"message" json:"message"`
	IsRead    bool               `bson:"is_read" json:"is_read"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// mongoNotifier fans a lifecycle event out to the users it concerns as
// notification documents. Delivery is best effort.
type mongoNotifier struct {
	app *App
}

func (n *mongoNotifier) Publish(ctx context.Context, ev events.Event) error {
	var ref struct {
		FarmerID      string `json:"farmer_id"`
		AgentID       string `json:"agent_id"`
		RequestNumber string `json:"request_number"`
		OldStatus     string `json:"old_status"`
		NewStatus     string `json:"new_status"`
	}
	if err := json.Unmarshal(ev.Payload, &ref); err != nil {
		return err
	}

	msg := notificationMessage(ev.EventType, ref.RequestNumber, ref.OldStatus, ref.NewStatus)
	var docs []interface{}
	for _, hexID := range []string{ref.FarmerID, ref.AgentID} {
		if hexID == "" {
			continue
		}
		uid, err := primitive.ObjectIDFromHex(hexID)
		if err != nil {
			continue
		}
		docs = append(docs, &notification{
			UserID:    uid,
			SubjectID: ev.SubjectID,
			EventType: ev.EventType,
			Message:   msg,
			CreatedAt: ev.Timestamp,
		})
	}
	if len(docs) == 0 {
		return nil
	}
	_, err := n.app.notifications.InsertMany(ctx, docs)
	return err
}

func notificationMessage(eventType, requestNumber, oldStatus, newStatus string) string {
	switch eventType {
	case events.RequestCreated:
		return fmt.Sprintf("Service request %s was submitted", requestNumber)
	case events.RequestAssigned:
		return fmt.Sprintf("Service request %s was assigned to an agent", requestNumber)
	case events.RequestStatusUpdated:
		return fmt.Sprintf("Service request %s moved from %s to %s", requestNumber, oldStatus, newStatus)
	case events.RequestFeedbackSubmitted:
		return fmt.Sprintf("Feedback was submitted for service request %s", requestNumber)
	default:
		return fmt.Sprintf("Update on %s", requestNumber)
	}
}
