package requests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"agrohub/events"
)

// AgentDirectory resolves assignable agents. FindActiveAgent returns
// (nil, nil) when no active agent with that id exists.
type AgentDirectory interface {
	FindActiveAgent(ctx context.Context, id primitive.ObjectID) (*Agent, error)
}

// Notifier delivers lifecycle events. Delivery failures are logged by the
// service, never surfaced to callers.
type Notifier interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Service orchestrates the request lifecycle: permission guard, business
// rules, state machine, then a single persistence write. Every operation is
// all-or-nothing; a failed check leaves the stored document untouched.
type Service struct {
	store    Store
	agents   AgentDirectory
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func New(store Store, agents AgentDirectory, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		agents:   agents,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func newRequestNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), suffix)
}

// Create files a general (non-harvest) service request.
func (s *Service) Create(ctx context.Context, p Principal, in CreateInput) (*ServiceRequest, error) {
	if p.Role != RoleFarmer {
		return nil, deniedErr("only farmers can file service requests")
	}
	vs := ValidateCreate(in)
	if st, ok := NormalizeServiceType(in.ServiceType); ok && st == ServiceHarvest {
		vs = append(vs, Violation{Field: "service_type", Message: "harvest requests must be filed with harvest details"})
	}
	if len(vs) > 0 {
		return nil, &ValidationError{Violations: vs}
	}
	st, _ := NormalizeServiceType(in.ServiceType)
	r := s.newRequest(p, in, st)
	if err := s.store.Insert(ctx, r); err != nil {
		return nil, err
	}
	s.publishCreated(ctx, r)
	return r, nil
}

// CreateHarvest files a harvest request with its validated sub-document.
func (s *Service) CreateHarvest(ctx context.Context, p Principal, in HarvestInput) (*ServiceRequest, error) {
	if p.Role != RoleFarmer {
		return nil, deniedErr("only farmers can file service requests")
	}
	if strings.TrimSpace(in.ServiceType) == "" {
		in.ServiceType = string(ServiceHarvest)
	}
	baseVs := ValidateCreate(in.CreateInput)
	if st, ok := NormalizeServiceType(in.ServiceType); ok && st != ServiceHarvest {
		baseVs = append(baseVs, Violation{Field: "service_type", Message: "must be the harvest type"})
	}
	now := s.now()
	harvestVs := ValidateHarvest(in, now)
	if len(harvestVs) > 0 {
		return nil, &BusinessRuleError{Violations: append(baseVs, harvestVs...)}
	}
	if len(baseVs) > 0 {
		return nil, &ValidationError{Violations: baseVs}
	}
	r := s.newRequest(p, in.CreateInput, ServiceHarvest)
	r.HarvestDetails = toHarvestDetails(in)
	if err := s.store.Insert(ctx, r); err != nil {
		return nil, err
	}
	s.publishCreated(ctx, r)
	return r, nil
}

func (s *Service) newRequest(p Principal, in CreateInput, st ServiceType) *ServiceRequest {
	now := s.now()
	priority := Priority(in.Priority)
	if priority == "" {
		priority = PriorityMedium
	}
	r := &ServiceRequest{
		ID:            primitive.NewObjectID(),
		RequestNumber: newRequestNumber("SR", now),
		FarmerID:      p.ID,
		ServiceType:   st,
		Status:        StatusPending,
		Priority:      priority,
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Location:      in.Location,
		RequestedDate: now,
		Notes:         in.Notes,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.CostEstimate.IsSet() && !in.CostEstimate.Invalid() {
		v := in.CostEstimate.Float()
		r.CostEstimate = &v
	}
	return r
}

// Get returns one request, visible to its owner, the assigned agent, or an admin.
func (s *Service) Get(ctx context.Context, p Principal, id primitive.ObjectID) (*ServiceRequest, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(p, r, ActionView); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns requests scoped to the caller's role: farmers see their own,
// agents their assignments, admins everything.
func (s *Service) List(ctx context.Context, p Principal, f Filter) ([]*ServiceRequest, error) {
	switch p.Role {
	case RoleFarmer:
		id := p.ID
		f.FarmerID = &id
		f.AgentID = nil
	case RoleAgent:
		id := p.ID
		f.AgentID = &id
		f.FarmerID = nil
	case RoleAdmin:
	default:
		return nil, deniedErr(fmt.Sprintf("role %q has no access to service requests", p.Role))
	}
	return s.store.Find(ctx, f)
}

// UpdateInput carries the mutable non-status fields. Scheduling and final
// cost are honored for admins only.
type UpdateInput struct {
	Title         string    `json:"title,omitempty"`
	Description   string    `json:"description,omitempty"`
	Priority      string    `json:"priority,omitempty"`
	Location      *Location `json:"location,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CostEstimate  Number    `json:"cost_estimate,omitempty"`
	ScheduledDate string    `json:"scheduled_date,omitempty"`
	FinalCost     Number    `json:"final_cost,omitempty"`
}

// Update edits non-status fields: the owning farmer while pending, or an
// admin on any request.
func (s *Service) Update(ctx context.Context, p Principal, id primitive.ObjectID, in UpdateInput) (*ServiceRequest, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(p, r, ActionUpdate); err != nil {
		return nil, err
	}

	var vs []Violation
	if in.Title != "" {
		r.Title = strings.TrimSpace(in.Title)
	}
	if in.Description != "" {
		r.Description = strings.TrimSpace(in.Description)
	}
	if in.Priority != "" {
		if !ValidPriority(Priority(in.Priority)) {
			vs = append(vs, Violation{Field: "priority", Message: "priority must be one of low, medium, high, urgent"})
		} else {
			r.Priority = Priority(in.Priority)
		}
	}
	if in.Location != nil {
		if strings.TrimSpace(in.Location.Province) == "" {
			vs = append(vs, Violation{Field: "location.province", Message: "province is required"})
		} else {
			r.Location = *in.Location
		}
	}
	if in.Notes != "" {
		r.Notes = in.Notes
	}
	if in.CostEstimate.IsSet() {
		if in.CostEstimate.Invalid() {
			vs = append(vs, Violation{Field: "cost_estimate", Message: "must be a number"})
		} else {
			v := in.CostEstimate.Float()
			r.CostEstimate = &v
		}
	}
	if p.Role == RoleAdmin {
		if in.ScheduledDate != "" {
			t, ok := parseAndCheckDate(&vs, "scheduled_date", in.ScheduledDate)
			if ok {
				r.ScheduledDate = &t
			}
		}
		if in.FinalCost.IsSet() {
			if in.FinalCost.Invalid() {
				vs = append(vs, Violation{Field: "final_cost", Message: "must be a number"})
			} else {
				v := in.FinalCost.Float()
				r.FinalCost = &v
			}
		}
	}
	if len(vs) > 0 {
		return nil, &ValidationError{Violations: vs}
	}
	r.UpdatedAt = s.now()
	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a request. Owner or admin; blocked once execution started.
func (s *Service) Delete(ctx context.Context, p Principal, id primitive.ObjectID) error {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := Can(p, r, ActionDelete); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// ApproveInput carries the optional fields an admin may set while approving.
type ApproveInput struct {
	AgentID           string   `json:"agent_id,omitempty"`
	ScheduledDate     string   `json:"scheduled_date,omitempty"`
	CostEstimate      Number   `json:"cost_estimate,omitempty"`
	ApprovedWorkers   Number   `json:"approved_workers,omitempty"`
	ApprovedEquipment []string `json:"approved_equipment,omitempty"`
}

// Approve moves a pending request to approved. Re-approving an approved
// request is idempotent: the stored document is returned unchanged.
func (s *Service) Approve(ctx context.Context, p Principal, id primitive.ObjectID, in ApproveInput) (*ServiceRequest, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(p, r, ActionApprove); err != nil {
		return nil, err
	}

	var agent *Agent
	if in.AgentID != "" {
		agent, err = s.resolveAgent(ctx, in.AgentID)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	changed, err := applyApprove(r, now, p.ID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return r, nil
	}

	var vs []Violation
	if agent != nil {
		r.AgentID = &agent.ID
	}
	if in.ScheduledDate != "" {
		if t, ok := parseAndCheckDate(&vs, "scheduled_date", in.ScheduledDate); ok {
			r.ScheduledDate = &t
		}
	}
	if in.CostEstimate.IsSet() {
		if in.CostEstimate.Invalid() {
			vs = append(vs, Violation{Field: "cost_estimate", Message: "must be a number"})
		} else {
			v := in.CostEstimate.Float()
			r.CostEstimate = &v
		}
	}
	if r.HarvestDetails != nil {
		if in.ApprovedWorkers.IsSet() {
			if in.ApprovedWorkers.Invalid() || !in.ApprovedWorkers.IsWhole() || in.ApprovedWorkers.Int() < 1 {
				vs = append(vs, Violation{Field: "approved_workers", Message: "must be a positive whole number"})
			} else {
				w := in.ApprovedWorkers.Int()
				r.HarvestDetails.ApprovedWorkers = &w
			}
		}
		if len(in.ApprovedEquipment) > 0 {
			r.HarvestDetails.ApprovedEquipment = in.ApprovedEquipment
		}
	}
	if len(vs) > 0 {
		return nil, &ValidationError{Violations: vs}
	}

	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publishStatus(ctx, r, StatusPending, p)
	return r, nil
}

// RejectInput requires the reason the request was turned down.
type RejectInput struct {
	RejectionReason string `json:"rejection_reason"`
}

// Reject moves a pending request to rejected with a mandatory reason.
func (s *Service) Reject(ctx context.Context, p Principal, id primitive.ObjectID, in RejectInput) (*ServiceRequest, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(p, r, ActionReject); err != nil {
		return nil, err
	}
	from := r.Status
	if err := applyReject(r, s.now(), p.ID, strings.TrimSpace(in.RejectionReason)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publishStatus(ctx, r, from, p)
	return r, nil
}

// AssignInput names the agent who will execute the request.
type AssignInput struct {
	AgentID       string `json:"agent_id"`
	ScheduledDate string `json:"scheduled_date,omitempty"`
	CostEstimate  Number `json:"cost_estimate,omitempty"`
}

// Assign attaches an active agent to an approved request.
func (s *Service) Assign(ctx context.Context, p Principal, id primitive.ObjectID, in AssignInput) (*ServiceRequest, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(p, r, ActionAssign); err != nil {
		return nil, err
	}
	if in.AgentID == "" {
		return nil, &ValidationError{Violations: []Violation{{Field: "agent_id", Message: "agent_id is required"}}}
	}
	agent, err := s.resolveAgent(ctx, in.AgentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := applyAssign(r, now, agent.ID); err != nil {
		return nil, err
	}
	var vs []Violation
	if in.ScheduledDate != "" {
		if t, ok := parseAndCheckDate(&vs, "scheduled_date", in.ScheduledDate); ok {
			r.ScheduledDate = &t
		}
	}
	if in.CostEstimate.IsSet() {
		if in.CostEstimate.Invalid() {
			vs = append(vs, Violation{Field: "cost_estimate", Message: "must be a number"})
		} else {
			v := in.CostEstimate.Float()
			r.CostEstimate = &v
		}
	}
	if len(vs) > 0 {
		return nil, &ValidationError{Violations: vs}
	}
	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}

	payload := events.RequestAssignedPayload{
		RequestID:     r.ID.Hex(),
		RequestNumber: r.RequestNumber,
		FarmerID:      r.FarmerID.Hex(),
		AgentID:       agent.ID.Hex(),
		AssignedAt:    now,
	}
	if r.ScheduledDate != nil {
		payload.ScheduledDate = *r.ScheduledDate
	}
	s.publish(ctx, events.RequestAssigned, r.ID.Hex(), payload)
	return r, nil
}

// StartInput lets the agent note the work start and backdate-forward it.
type StartInput struct {
	StartNotes      string `json:"start_notes,omitempty"`
	ActualStartDate string `json:"actual_start_date,omitempty"`
}

// Start moves an approved or assigned request into execution.
func (s *Service) Start(ctx context.Context, p Principal, id primitive.ObjectID, in StartInput) (*ServiceRequest, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(p, r, ActionStart); err != nil {
		return nil, err
	}
	var explicit *time.Time
	if in.ActualStartDate != "" {
		var vs []Violation
		t, ok := parseAndCheckDate(&vs, "actual_start_date", in.ActualStartDate)
		if !ok {
			return nil, &ValidationError{Violations: vs}
		}
		explicit = &t
	}
	from := r.Status
	if err := applyStart(r, s.now(), explicit); err != nil {
		return nil, err
	}
	if in.StartNotes != "" {
		r.Notes = joinNotes(r.Notes, in.StartNotes)
	}
	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publishStatus(ctx, r, from, p)
	return r, nil
}

// CompleteInput carries completion notes plus the harvest completion fields.
type CompleteInput struct {
	CompletionNotes     string   `json:"completion_notes,omitempty"`
	FinalCost           Number   `json:"final_cost,omitempty"`
	ActualWorkersUsed   Number   `json:"actual_workers_used,omitempty"`
	ActualHarvestAmount Number   `json:"actual_harvest_amount,omitempty"`
	HarvestQualityNotes string   `json:"harvest_quality_notes,omitempty"`
	CompletionImages    []string `json:"completion_images,omitempty"`
}

// Complete closes a request from approved or in_progress. For harvest
// requests the completion fields are merged into the harvest details.
func (s *Service) Complete(ctx context.Context, p Principal, id primitive.ObjectID, in CompleteInput) (*ServiceRequest, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(p, r, ActionComplete); err != nil {
		return nil, err
	}

	var vs []Violation
	var harvest *HarvestCompletion
	if r.ServiceType == ServiceHarvest {
		harvest = &HarvestCompletion{
			QualityNotes:     in.HarvestQualityNotes,
			CompletionImages: in.CompletionImages,
		}
		if in.ActualWorkersUsed.IsSet() {
			if in.ActualWorkersUsed.Invalid() || !in.ActualWorkersUsed.IsWhole() || in.ActualWorkersUsed.Int() < 0 {
				vs = append(vs, Violation{Field: "actual_workers_used", Message: "must be a non-negative whole number"})
			} else {
				w := in.ActualWorkersUsed.Int()
				harvest.ActualWorkersUsed = &w
			}
		}
		if in.ActualHarvestAmount.IsSet() {
			if in.ActualHarvestAmount.Invalid() || in.ActualHarvestAmount.Float() < 0 {
				vs = append(vs, Violation{Field: "actual_harvest_amount", Message: "must be a non-negative number"})
			} else {
				a := in.ActualHarvestAmount.Float()
				harvest.ActualHarvestAmount = &a
			}
		}
	}
	if in.FinalCost.IsSet() {
		if in.FinalCost.Invalid() || in.FinalCost.Float() < 0 {
			vs = append(vs, Violation{Field: "final_cost", Message: "must be a non-negative number"})
		}
	}
	if len(vs) > 0 {
		return nil, &ValidationError{Violations: vs}
	}

	from := r.Status
	if err := applyComplete(r, s.now(), p.ID, harvest); err != nil {
		return nil, err
	}
	if in.CompletionNotes != "" {
		r.Notes = joinNotes(r.Notes, in.CompletionNotes)
	}
	if in.FinalCost.IsSet() && !in.FinalCost.Invalid() {
		v := in.FinalCost.Float()
		r.FinalCost = &v
	}
	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publishStatus(ctx, r, from, p)
	return r, nil
}

// Cancel withdraws a request where the status graph allows it.
func (s *Service) Cancel(ctx context.Context, p Principal, id primitive.ObjectID) (*ServiceRequest, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(p, r, ActionCancel); err != nil {
		return nil, err
	}
	from := r.Status
	if err := applyCancel(r, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publishStatus(ctx, r, from, p)
	return r, nil
}

// UpdateStatusInput names the target status for the generic transition path.
type UpdateStatusInput struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// statusTargets limits what each role may reach through the generic path.
// Approve, reject and assign always go through their dedicated operations.
var statusTargets = map[Role][]Status{
	RoleFarmer: {StatusPending, StatusCancelled},
	RoleAgent:  {StatusInProgress, StatusCompleted, StatusOnHold},
	RoleAdmin:  {StatusPending, StatusCancelled, StatusInProgress, StatusCompleted, StatusOnHold},
}

// UpdateStatus is the generic transition path used by non-harvest flows.
func (s *Service) UpdateStatus(ctx context.Context, p Principal, id primitive.ObjectID, in UpdateStatusInput) (*ServiceRequest, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(p, r, ActionUpdateStatus); err != nil {
		return nil, err
	}
	to := Status(in.Status)
	// Cancellation keeps its own, stricter capability so this path cannot
	// reach states the dedicated Cancel operation would refuse.
	if to == StatusCancelled {
		if err := Can(p, r, ActionCancel); err != nil {
			return nil, err
		}
	}
	switch to {
	case StatusPending, StatusApproved, StatusRejected, StatusAssigned,
		StatusInProgress, StatusCompleted, StatusCancelled, StatusOnHold:
	default:
		return nil, &ValidationError{Violations: []Violation{{Field: "status", Message: fmt.Sprintf("unknown status %q", in.Status)}}}
	}
	allowed := false
	for _, t := range statusTargets[p.Role] {
		if t == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, deniedErr(fmt.Sprintf("role %q may not set status %q", p.Role, to))
	}
	from := r.Status
	if err := applyStatus(r, to, s.now(), p.ID); err != nil {
		return nil, err
	}
	if in.Notes != "" {
		r.Notes = joinNotes(r.Notes, in.Notes)
	}
	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publishStatus(ctx, r, from, p)
	return r, nil
}

func (s *Service) resolveAgent(ctx context.Context, hexID string) (*Agent, error) {
	aid, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, &ValidationError{Violations: []Violation{{Field: "agent_id", Message: "must be a valid id"}}}
	}
	agent, err := s.agents.FindActiveAgent(ctx, aid)
	if err != nil {
		return nil, fmt.Errorf("agent lookup: %w", err)
	}
	if agent == nil {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, hexID)
	}
	return agent, nil
}

func joinNotes(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "\n" + extra
}

func (s *Service) publishCreated(ctx context.Context, r *ServiceRequest) {
	s.publish(ctx, events.RequestCreated, r.ID.Hex(), events.RequestCreatedPayload{
		RequestID:     r.ID.Hex(),
		RequestNumber: r.RequestNumber,
		FarmerID:      r.FarmerID.Hex(),
		ServiceType:   string(r.ServiceType),
		Priority:      string(r.Priority),
		CreatedAt:     r.CreatedAt,
	})
}

func (s *Service) publishStatus(ctx context.Context, r *ServiceRequest, from Status, by Principal) {
	payload := events.RequestStatusUpdatedPayload{
		RequestID:     r.ID.Hex(),
		RequestNumber: r.RequestNumber,
		FarmerID:      r.FarmerID.Hex(),
		OldStatus:     string(from),
		NewStatus:     string(r.Status),
		ChangedBy:     by.ID.Hex(),
		ChangedAt:     r.UpdatedAt,
	}
	if r.AgentID != nil {
		payload.AgentID = r.AgentID.Hex()
	}
	s.publish(ctx, events.RequestStatusUpdated, r.ID.Hex(), payload)
}

func (s *Service) publish(ctx context.Context, eventType, subjectID string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	ev, err := events.NewEvent(eventType, subjectID, payload)
	if err == nil {
		err = s.notifier.Publish(ctx, ev)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Str("subject", subjectID).Msg("notification publish failed")
	}
}
