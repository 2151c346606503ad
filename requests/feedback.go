package requests

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"agrohub/events"
)

// FeedbackInput is the farmer's post-completion rating.
type FeedbackInput struct {
	Rating  Number `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// SubmitFeedback attaches feedback to a completed request exactly once.
// A second submission fails with ErrFeedbackAlreadySubmitted regardless of
// payload; it is never silently overwritten.
func (s *Service) SubmitFeedback(ctx context.Context, p Principal, id primitive.ObjectID, in FeedbackInput) (*ServiceRequest, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(p, r, ActionFeedback); err != nil {
		return nil, err
	}
	if r.Status != StatusCompleted {
		return nil, &BusinessRuleError{Violations: []Violation{
			{Field: "status", Message: "feedback can only be submitted for completed requests"},
		}}
	}
	if r.Feedback != nil {
		return nil, ErrFeedbackAlreadySubmitted
	}

	var vs []Violation
	switch {
	case !in.Rating.IsSet():
		vs = append(vs, Violation{Field: "rating", Message: "rating is required"})
	case in.Rating.Invalid() || !in.Rating.IsWhole():
		vs = append(vs, Violation{Field: "rating", Message: "must be a whole number"})
	case in.Rating.Int() < 1 || in.Rating.Int() > 5:
		vs = append(vs, Violation{Field: "rating", Message: "must be between 1 and 5"})
	}
	if len(vs) > 0 {
		return nil, &ValidationError{Violations: vs}
	}

	now := s.now()
	r.Feedback = &Feedback{
		Rating:      in.Rating.Int(),
		Comment:     in.Comment,
		SubmittedAt: now,
	}
	r.UpdatedAt = now
	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publish(ctx, events.RequestFeedbackSubmitted, r.ID.Hex(), events.RequestFeedbackSubmittedPayload{
		RequestID:     r.ID.Hex(),
		RequestNumber: r.RequestNumber,
		FarmerID:      r.FarmerID.Hex(),
		Rating:        r.Feedback.Rating,
		SubmittedAt:   now,
	})
	return r, nil
}
