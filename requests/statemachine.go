package requests

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// transitions is the legal status graph. completed, rejected and cancelled
// are terminal. approved -> completed covers agents closing a job they never
// explicitly started.
var transitions = map[Status][]Status{
	StatusPending:    {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:   {StatusAssigned, StatusInProgress, StatusCompleted},
	StatusAssigned:   {StatusInProgress},
	StatusInProgress: {StatusCompleted, StatusOnHold},
	StatusOnHold:     {StatusInProgress, StatusCancelled},
}

// CanTransition reports whether the status graph allows from -> to.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// setStatus moves r to the target status and keeps status-coupled fields
// consistent: completed_at holds iff the request is completed.
func setStatus(r *ServiceRequest, to Status, now time.Time) {
	if r.Status == StatusCompleted && to != StatusCompleted {
		r.CompletedAt = nil
		r.CompletedBy = nil
	}
	r.Status = to
	r.UpdatedAt = now
}

// requireAgent enforces that agent_id is set before a request enters any
// execution status.
func requireAgent(r *ServiceRequest, to Status) error {
	switch to {
	case StatusAssigned, StatusInProgress, StatusCompleted:
		if r.AgentID == nil {
			return &BusinessRuleError{Violations: []Violation{
				{Field: "agent_id", Message: "an agent must be assigned before the request can be " + string(to)},
			}}
		}
	}
	return nil
}

// applyApprove stamps approved_at and clears any stale rejection audit.
// Approving an already-approved request is a no-op; the returned bool
// reports whether anything changed.
func applyApprove(r *ServiceRequest, now time.Time, by primitive.ObjectID) (bool, error) {
	if r.Status == StatusApproved {
		return false, nil
	}
	if !CanTransition(r.Status, StatusApproved) {
		return false, transitionErr(r.Status, StatusApproved)
	}
	setStatus(r, StatusApproved, now)
	r.ApprovedAt = &now
	r.ApprovedBy = &by
	r.RejectedAt = nil
	r.RejectedBy = nil
	r.RejectionReason = ""
	return true, nil
}

// applyReject stamps rejected_at. Unlike approve this is not idempotent:
// re-rejecting a rejected request is an illegal transition.
func applyReject(r *ServiceRequest, now time.Time, by primitive.ObjectID, reason string) error {
	if reason == "" {
		return &ValidationError{Violations: []Violation{
			{Field: "rejection_reason", Message: "rejection_reason is required"},
		}}
	}
	if !CanTransition(r.Status, StatusRejected) {
		return transitionErr(r.Status, StatusRejected)
	}
	setStatus(r, StatusRejected, now)
	r.RejectedAt = &now
	r.RejectedBy = &by
	r.RejectionReason = reason
	return nil
}

// applyAssign records the executing agent and moves the request to assigned.
// Re-assigning an already-assigned request swaps the agent in place.
func applyAssign(r *ServiceRequest, now time.Time, agentID primitive.ObjectID) error {
	if r.Status != StatusAssigned && !CanTransition(r.Status, StatusAssigned) {
		return transitionErr(r.Status, StatusAssigned)
	}
	r.AgentID = &agentID
	if r.Status != StatusAssigned {
		setStatus(r, StatusAssigned, now)
	} else {
		r.UpdatedAt = now
	}
	return nil
}

// applyStart moves an approved or assigned request into execution.
// explicitStart, when given, may not precede the scheduled date.
func applyStart(r *ServiceRequest, now time.Time, explicitStart *time.Time) error {
	if r.Status != StatusApproved && r.Status != StatusAssigned {
		return transitionErr(r.Status, StatusInProgress)
	}
	if err := requireAgent(r, StatusInProgress); err != nil {
		return err
	}
	startAt := now
	if explicitStart != nil {
		if r.ScheduledDate != nil && explicitStart.Before(*r.ScheduledDate) {
			return &BusinessRuleError{Violations: []Violation{
				{Field: "actual_start_date", Message: "cannot be earlier than the scheduled date"},
			}}
		}
		startAt = *explicitStart
	}
	setStatus(r, StatusInProgress, now)
	r.StartedAt = &startAt
	return nil
}

// HarvestCompletion carries the post-completion harvest fields. Only
// non-nil values are merged; approval data is never discarded.
type HarvestCompletion struct {
	ActualWorkersUsed   *int
	ActualHarvestAmount *float64
	QualityNotes        string
	CompletionImages    []string
}

// applyComplete stamps completed_at and, for harvest requests, merges the
// completion fields into the existing harvest details.
func applyComplete(r *ServiceRequest, now time.Time, by primitive.ObjectID, harvest *HarvestCompletion) error {
	if r.Status != StatusApproved && r.Status != StatusInProgress {
		return transitionErr(r.Status, StatusCompleted)
	}
	if err := requireAgent(r, StatusCompleted); err != nil {
		return err
	}
	if harvest != nil && r.HarvestDetails != nil {
		d := r.HarvestDetails
		if harvest.ActualWorkersUsed != nil {
			d.ActualWorkersUsed = harvest.ActualWorkersUsed
		}
		if harvest.ActualHarvestAmount != nil {
			d.ActualHarvestAmount = harvest.ActualHarvestAmount
		}
		if harvest.QualityNotes != "" {
			d.HarvestQualityNotes = harvest.QualityNotes
		}
		if len(harvest.CompletionImages) > 0 {
			d.CompletionImages = append(d.CompletionImages, harvest.CompletionImages...)
		}
	}
	setStatus(r, StatusCompleted, now)
	r.CompletedAt = &now
	r.CompletedBy = &by
	return nil
}

// applyCancel moves the request to cancelled when the graph allows it.
func applyCancel(r *ServiceRequest, now time.Time) error {
	if !CanTransition(r.Status, StatusCancelled) {
		return transitionErr(r.Status, StatusCancelled)
	}
	setStatus(r, StatusCancelled, now)
	return nil
}

// applyStatus is the generic transition used by the update-status path.
// It stamps the same timestamps the dedicated effects do so the
// status/timestamp invariants hold regardless of entry point.
func applyStatus(r *ServiceRequest, to Status, now time.Time, by primitive.ObjectID) error {
	if !CanTransition(r.Status, to) {
		return transitionErr(r.Status, to)
	}
	if err := requireAgent(r, to); err != nil {
		return err
	}
	setStatus(r, to, now)
	switch to {
	case StatusInProgress:
		if r.StartedAt == nil {
			r.StartedAt = &now
		}
	case StatusCompleted:
		r.CompletedAt = &now
		r.CompletedBy = &by
	}
	return nil
}
