package requests

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"agrohub/events"
)

type fixture struct {
	svc      *Service
	store    *MemoryStore
	agents   *StaticAgentDirectory
	notifier *CaptureNotifier

	farmer Principal
	agent  Principal
	admin  Principal

	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    NewMemoryStore(),
		agents:   NewStaticAgentDirectory(),
		notifier: NewCaptureNotifier(),
		farmer:   Principal{ID: primitive.NewObjectID(), Role: RoleFarmer},
		agent:    Principal{ID: primitive.NewObjectID(), Role: RoleAgent},
		admin:    Principal{ID: primitive.NewObjectID(), Role: RoleAdmin},
		now:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.agents.AddAgent(f.agent.ID, "Jean Bosco")
	f.svc = New(f.store, f.agents, f.notifier, zerolog.Nop()).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) createHarvest(t *testing.T) *ServiceRequest {
	t.Helper()
	in := HarvestInput{
		CreateInput: CreateInput{
			ServiceType: "harvest",
			Title:       "Harvest block B",
			Description: "150 hass trees ready for picking",
			Location:    Location{Province: "Western", District: "Rusizi"},
		},
		WorkersNeeded:   NumberOf(12),
		TreesToHarvest:  NumberOf(150),
		HarvestDateFrom: f.now.AddDate(0, 0, 3).Format("2006-01-02"),
		HarvestDateTo:   f.now.AddDate(0, 0, 10).Format("2006-01-02"),
	}
	r, err := f.svc.CreateHarvest(context.Background(), f.farmer, in)
	require.NoError(t, err)
	return r
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("files a pending request", func(t *testing.T) {
		r, err := f.svc.Create(ctx, f.farmer, CreateInput{
			ServiceType:  "soil_testing",
			Title:        "Soil test for block A",
			Description:  "pH and nutrient profile",
			Location:     Location{Province: "Eastern"},
			CostEstimate: NumberOf(25000),
		})
		require.NoError(t, err)
		require.Equal(t, StatusPending, r.Status)
		require.Equal(t, f.farmer.ID, r.FarmerID)
		require.Equal(t, PriorityMedium, r.Priority)
		require.Equal(t, int64(1), r.Version)
		require.NotNil(t, r.CostEstimate)
		require.Equal(t, 25000.0, *r.CostEstimate)
		require.True(t, strings.HasPrefix(r.RequestNumber, "SR-20260310-"))
		require.Len(t, r.RequestNumber, len("SR-20260310-")+8)

		stored, err := f.store.FindByID(ctx, r.ID)
		require.NoError(t, err)
		require.Equal(t, r.RequestNumber, stored.RequestNumber)
	})

	t.Run("only farmers create", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.admin, CreateInput{})
		require.ErrorIs(t, err, ErrPermissionDenied)
		_, err = f.svc.Create(ctx, f.agent, CreateInput{})
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("harvest type must go through the harvest path", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.farmer, CreateInput{
			ServiceType: "harvest",
			Title:       "Harvest",
			Description: "trees",
			Location:    Location{Province: "Western"},
		})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
	})

	t.Run("violations are collected", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.farmer, CreateInput{ServiceType: "nope"})
		vs := ViolationsOf(err)
		require.GreaterOrEqual(t, len(vs), 3)
	})
}

func TestCreateHarvest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("materializes harvest details", func(t *testing.T) {
		r := f.createHarvest(t)
		require.Equal(t, ServiceHarvest, r.ServiceType)
		require.NotNil(t, r.HarvestDetails)
		require.Equal(t, 12, r.HarvestDetails.WorkersNeeded)
		require.Equal(t, 150, r.HarvestDetails.TreesToHarvest)
	})

	t.Run("defaults the service type", func(t *testing.T) {
		in := HarvestInput{
			CreateInput: CreateInput{
				Title:       "Harvest block C",
				Description: "ready",
				Location:    Location{Province: "Western"},
			},
			WorkersNeeded:   NumberOf(5),
			TreesToHarvest:  NumberOf(40),
			HarvestDateFrom: f.now.AddDate(0, 0, 1).Format("2006-01-02"),
			HarvestDateTo:   f.now.AddDate(0, 0, 5).Format("2006-01-02"),
		}
		r, err := f.svc.CreateHarvest(ctx, f.farmer, in)
		require.NoError(t, err)
		require.Equal(t, ServiceHarvest, r.ServiceType)
	})

	t.Run("harvest violations surface as business rule errors", func(t *testing.T) {
		in := HarvestInput{
			CreateInput: CreateInput{
				ServiceType: "harvest",
				Title:       "Harvest",
				Description: "trees",
				Location:    Location{Province: "Western"},
			},
			WorkersNeeded:   NumberOf(0),
			TreesToHarvest:  NumberOf(150),
			HarvestDateFrom: f.now.AddDate(0, 0, -1).Format("2006-01-02"),
			HarvestDateTo:   f.now.AddDate(0, 0, 5).Format("2006-01-02"),
		}
		_, err := f.svc.CreateHarvest(ctx, f.farmer, in)
		var be *BusinessRuleError
		require.ErrorAs(t, err, &be)
		require.Len(t, be.Violations, 2)
	})

	t.Run("numeric strings coerce", func(t *testing.T) {
		raw := `{
			"service_type": "harvest",
			"title": "Harvest block D",
			"description": "ready",
			"location": {"province": "Western"},
			"workers_needed": "8",
			"trees_to_harvest": "90",
			"harvest_date_from": "` + f.now.AddDate(0, 0, 2).Format("2006-01-02") + `",
			"harvest_date_to": "` + f.now.AddDate(0, 0, 6).Format("2006-01-02") + `"
		}`
		var in HarvestInput
		require.NoError(t, json.Unmarshal([]byte(raw), &in))
		r, err := f.svc.CreateHarvest(ctx, f.farmer, in)
		require.NoError(t, err)
		require.Equal(t, 8, r.HarvestDetails.WorkersNeeded)
		require.Equal(t, 90, r.HarvestDetails.TreesToHarvest)
	})
}

// Full harvest lifecycle: file, approve with an agent, start, complete with
// results, then farmer feedback. Checks the audit stamps, version bumps and
// published events along the way.
func TestHarvestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)
	require.Equal(t, int64(1), r.Version)

	f.advance(2 * time.Hour)
	r, err := f.svc.Approve(ctx, f.admin, r.ID, ApproveInput{
		AgentID:         f.agent.ID.Hex(),
		ScheduledDate:   f.now.AddDate(0, 0, 3).Format("2006-01-02"),
		ApprovedWorkers: NumberOf(10),
	})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, r.Status)
	require.NotNil(t, r.AgentID)
	require.Equal(t, f.agent.ID, *r.AgentID)
	require.NotNil(t, r.ApprovedAt)
	require.Equal(t, f.admin.ID, *r.ApprovedBy)
	require.NotNil(t, r.HarvestDetails.ApprovedWorkers)
	require.Equal(t, 10, *r.HarvestDetails.ApprovedWorkers)
	require.Equal(t, int64(2), r.Version)

	f.advance(72 * time.Hour)
	r, err = f.svc.Start(ctx, f.agent, r.ID, StartInput{StartNotes: "crew on site"})
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, r.Status)
	require.NotNil(t, r.StartedAt)
	require.Equal(t, int64(3), r.Version)

	f.advance(48 * time.Hour)
	r, err = f.svc.Complete(ctx, f.agent, r.ID, CompleteInput{
		CompletionNotes:     "finished ahead of schedule",
		ActualWorkersUsed:   NumberOf(9),
		ActualHarvestAmount: NumberOf(812.5),
		FinalCost:           NumberOf(180000),
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, r.Status)
	require.NotNil(t, r.CompletedAt)
	require.Equal(t, f.agent.ID, *r.CompletedBy)
	require.Equal(t, 9, *r.HarvestDetails.ActualWorkersUsed)
	require.Equal(t, 812.5, *r.HarvestDetails.ActualHarvestAmount)
	require.Equal(t, 180000.0, *r.FinalCost)
	require.Equal(t, int64(4), r.Version)

	f.advance(24 * time.Hour)
	r, err = f.svc.SubmitFeedback(ctx, f.farmer, r.ID, FeedbackInput{
		Rating:  NumberOf(5),
		Comment: "excellent crew",
	})
	require.NoError(t, err)
	require.NotNil(t, r.Feedback)
	require.Equal(t, 5, r.Feedback.Rating)
	require.Equal(t, int64(5), r.Version)

	evs := f.notifier.Events()
	require.Len(t, evs, 5)
	require.Equal(t, events.RequestCreated, evs[0].EventType)
	require.Equal(t, events.RequestStatusUpdated, evs[1].EventType)
	require.Equal(t, events.RequestStatusUpdated, evs[2].EventType)
	require.Equal(t, events.RequestStatusUpdated, evs[3].EventType)
	require.Equal(t, events.RequestFeedbackSubmitted, evs[4].EventType)

	var p events.RequestStatusUpdatedPayload
	require.NoError(t, json.Unmarshal(evs[3].Payload, &p))
	require.Equal(t, "in_progress", p.OldStatus)
	require.Equal(t, "completed", p.NewStatus)
	require.Equal(t, f.agent.ID.Hex(), p.ChangedBy)
}

func TestApproveIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)
	first, err := f.svc.Approve(ctx, f.admin, r.ID, ApproveInput{AgentID: f.agent.ID.Hex()})
	require.NoError(t, err)

	again, err := f.svc.Approve(ctx, f.admin, r.ID, ApproveInput{})
	require.NoError(t, err)
	require.Equal(t, first.Version, again.Version)
	require.True(t, first.ApprovedAt.Equal(*again.ApprovedAt))
	require.Equal(t, first.AgentID, again.AgentID)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)
	_, err := f.svc.Reject(ctx, f.admin, r.ID, RejectInput{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	rejected, err := f.svc.Reject(ctx, f.admin, r.ID, RejectInput{RejectionReason: "outside coverage area"})
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, "outside coverage area", rejected.RejectionReason)

	_, err = f.svc.Reject(ctx, f.admin, r.ID, RejectInput{RejectionReason: "again"})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)
	_, err := f.svc.Approve(ctx, f.admin, r.ID, ApproveInput{})
	require.NoError(t, err)

	t.Run("requires a known active agent", func(t *testing.T) {
		_, err := f.svc.Assign(ctx, f.admin, r.ID, AssignInput{AgentID: primitive.NewObjectID().Hex()})
		require.ErrorIs(t, err, ErrAgentNotFound)

		_, err = f.svc.Assign(ctx, f.admin, r.ID, AssignInput{AgentID: "not-an-id"})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)

		_, err = f.svc.Assign(ctx, f.admin, r.ID, AssignInput{})
		require.ErrorAs(t, err, &ve)
	})

	t.Run("moves to assigned and publishes", func(t *testing.T) {
		out, err := f.svc.Assign(ctx, f.admin, r.ID, AssignInput{AgentID: f.agent.ID.Hex()})
		require.NoError(t, err)
		require.Equal(t, StatusAssigned, out.Status)
		require.Equal(t, f.agent.ID, *out.AgentID)

		evs := f.notifier.Events()
		require.Equal(t, events.RequestAssigned, evs[len(evs)-1].EventType)
	})

	t.Run("reassignment swaps the agent in place", func(t *testing.T) {
		other := primitive.NewObjectID()
		f.agents.AddAgent(other, "Claudine")
		out, err := f.svc.Assign(ctx, f.admin, r.ID, AssignInput{AgentID: other.Hex()})
		require.NoError(t, err)
		require.Equal(t, StatusAssigned, out.Status)
		require.Equal(t, other, *out.AgentID)
	})
}

// A farmer cancelling a completed request is an illegal transition, not a
// permission problem: ownership passes the guard and the state machine says no.
func TestCancelCompletedIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)
	_, err := f.svc.Approve(ctx, f.admin, r.ID, ApproveInput{AgentID: f.agent.ID.Hex()})
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, f.agent, r.ID, StartInput{})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, f.agent, r.ID, CompleteInput{})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.farmer, r.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NotErrorIs(t, err, ErrPermissionDenied)

	stored, err := f.store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)
}

func TestFeedbackOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)
	_, err := f.svc.Approve(ctx, f.admin, r.ID, ApproveInput{AgentID: f.agent.ID.Hex()})
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, f.agent, r.ID, StartInput{})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, f.agent, r.ID, CompleteInput{})
	require.NoError(t, err)

	t.Run("rating bounds", func(t *testing.T) {
		var ve *ValidationError
		_, err := f.svc.SubmitFeedback(ctx, f.farmer, r.ID, FeedbackInput{Rating: NumberOf(0)})
		require.ErrorAs(t, err, &ve)
		_, err = f.svc.SubmitFeedback(ctx, f.farmer, r.ID, FeedbackInput{Rating: NumberOf(6)})
		require.ErrorAs(t, err, &ve)
		_, err = f.svc.SubmitFeedback(ctx, f.farmer, r.ID, FeedbackInput{Rating: NumberOf(3.5)})
		require.ErrorAs(t, err, &ve)
		_, err = f.svc.SubmitFeedback(ctx, f.farmer, r.ID, FeedbackInput{})
		require.ErrorAs(t, err, &ve)
	})

	first, err := f.svc.SubmitFeedback(ctx, f.farmer, r.ID, FeedbackInput{Rating: NumberOf(4), Comment: "good"})
	require.NoError(t, err)
	require.Equal(t, 4, first.Feedback.Rating)

	_, err = f.svc.SubmitFeedback(ctx, f.farmer, r.ID, FeedbackInput{Rating: NumberOf(1)})
	require.ErrorIs(t, err, ErrFeedbackAlreadySubmitted)

	stored, err := f.store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, 4, stored.Feedback.Rating)
}

func TestFeedbackRequiresCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)
	_, err := f.svc.SubmitFeedback(ctx, f.farmer, r.ID, FeedbackInput{Rating: NumberOf(5)})
	var be *BusinessRuleError
	require.ErrorAs(t, err, &be)
}

func TestListScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine := f.createHarvest(t)

	otherFarmer := Principal{ID: primitive.NewObjectID(), Role: RoleFarmer}
	theirs, err := f.svc.Create(ctx, otherFarmer, CreateInput{
		ServiceType: "pest_control",
		Title:       "Aphids on block A",
		Description: "spreading fast",
		Location:    Location{Province: "Northern"},
	})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, f.admin, mine.ID, ApproveInput{AgentID: f.agent.ID.Hex()})
	require.NoError(t, err)

	t.Run("farmer sees only their own", func(t *testing.T) {
		out, err := f.svc.List(ctx, f.farmer, Filter{})
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, mine.ID, out[0].ID)
	})

	t.Run("agent sees only assignments", func(t *testing.T) {
		out, err := f.svc.List(ctx, f.agent, Filter{})
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, mine.ID, out[0].ID)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		out, err := f.svc.List(ctx, f.admin, Filter{})
		require.NoError(t, err)
		require.Len(t, out, 2)
	})

	t.Run("status filter applies", func(t *testing.T) {
		out, err := f.svc.List(ctx, f.admin, Filter{Status: StatusPending})
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, theirs.ID, out[0].ID)
	})

	t.Run("shop managers are denied", func(t *testing.T) {
		shop := Principal{ID: primitive.NewObjectID(), Role: RoleShopManager}
		_, err := f.svc.List(ctx, shop, Filter{})
		require.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)

	t.Run("owner edits while pending", func(t *testing.T) {
		out, err := f.svc.Update(ctx, f.farmer, r.ID, UpdateInput{
			Title:    "Harvest block B (revised)",
			Priority: "high",
		})
		require.NoError(t, err)
		require.Equal(t, "Harvest block B (revised)", out.Title)
		require.Equal(t, PriorityHigh, out.Priority)
	})

	t.Run("scheduled date is admin only", func(t *testing.T) {
		out, err := f.svc.Update(ctx, f.farmer, r.ID, UpdateInput{
			ScheduledDate: f.now.AddDate(0, 0, 4).Format("2006-01-02"),
		})
		require.NoError(t, err)
		require.Nil(t, out.ScheduledDate)

		out, err = f.svc.Update(ctx, f.admin, r.ID, UpdateInput{
			ScheduledDate: f.now.AddDate(0, 0, 4).Format("2006-01-02"),
		})
		require.NoError(t, err)
		require.NotNil(t, out.ScheduledDate)
	})

	t.Run("owner locked out after approval", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, f.admin, r.ID, ApproveInput{})
		require.NoError(t, err)
		_, err = f.svc.Update(ctx, f.farmer, r.ID, UpdateInput{Title: "too late"})
		require.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("owner deletes pending", func(t *testing.T) {
		r := f.createHarvest(t)
		require.NoError(t, f.svc.Delete(ctx, f.farmer, r.ID))
		_, err := f.store.FindByID(ctx, r.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("blocked once in execution", func(t *testing.T) {
		r := f.createHarvest(t)
		_, err := f.svc.Approve(ctx, f.admin, r.ID, ApproveInput{AgentID: f.agent.ID.Hex()})
		require.NoError(t, err)
		_, err = f.svc.Start(ctx, f.agent, r.ID, StartInput{})
		require.NoError(t, err)
		err = f.svc.Delete(ctx, f.farmer, r.ID)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestUpdateStatusRoleTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)

	t.Run("farmer cannot self-approve", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, f.farmer, r.ID, UpdateStatusInput{Status: "approved"})
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, f.admin, r.ID, UpdateStatusInput{Status: "done"})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
	})

	t.Run("farmer cancels own pending request", func(t *testing.T) {
		out, err := f.svc.UpdateStatus(ctx, f.farmer, r.ID, UpdateStatusInput{Status: "cancelled"})
		require.NoError(t, err)
		require.Equal(t, StatusCancelled, out.Status)
	})

	t.Run("agent pauses and resumes work", func(t *testing.T) {
		r := f.createHarvest(t)
		_, err := f.svc.Approve(ctx, f.admin, r.ID, ApproveInput{AgentID: f.agent.ID.Hex()})
		require.NoError(t, err)
		_, err = f.svc.Start(ctx, f.agent, r.ID, StartInput{})
		require.NoError(t, err)

		out, err := f.svc.UpdateStatus(ctx, f.agent, r.ID, UpdateStatusInput{Status: "on_hold", Notes: "rain"})
		require.NoError(t, err)
		require.Equal(t, StatusOnHold, out.Status)

		out, err = f.svc.UpdateStatus(ctx, f.agent, r.ID, UpdateStatusInput{Status: "in_progress"})
		require.NoError(t, err)
		require.Equal(t, StatusInProgress, out.Status)
	})
}

// Cancelling an on-hold request is reserved for admins on both entry
// points: the generic status path must enforce the same cancel policy as
// the dedicated Cancel operation.
func TestFarmerCannotCancelOnHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)
	_, err := f.svc.Approve(ctx, f.admin, r.ID, ApproveInput{AgentID: f.agent.ID.Hex()})
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, f.agent, r.ID, StartInput{})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.agent, r.ID, UpdateStatusInput{Status: "on_hold"})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.farmer, r.ID)
	require.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.UpdateStatus(ctx, f.farmer, r.ID, UpdateStatusInput{Status: "cancelled"})
	require.ErrorIs(t, err, ErrPermissionDenied)

	stored, err := f.store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOnHold, stored.Status)

	out, err := f.svc.UpdateStatus(ctx, f.admin, r.ID, UpdateStatusInput{Status: "cancelled"})
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, out.Status)
}

// Two actors loading the same version race on the CAS write: the first
// commit wins, the second surfaces ErrConflict.
func TestConcurrentUpdateConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)

	copy1, err := f.store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	copy2, err := f.store.FindByID(ctx, r.ID)
	require.NoError(t, err)

	copy1.Notes = "first writer"
	require.NoError(t, f.store.Update(ctx, copy1))

	copy2.Notes = "second writer"
	require.ErrorIs(t, f.store.Update(ctx, copy2), ErrConflict)

	stored, err := f.store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, "first writer", stored.Notes)
	require.Equal(t, int64(2), stored.Version)
}

func TestStartBeforeScheduledDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.createHarvest(t)
	_, err := f.svc.Approve(ctx, f.admin, r.ID, ApproveInput{
		AgentID:       f.agent.ID.Hex(),
		ScheduledDate: f.now.AddDate(0, 0, 5).Format("2006-01-02"),
	})
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, f.agent, r.ID, StartInput{
		ActualStartDate: f.now.AddDate(0, 0, 1).Format("2006-01-02"),
	})
	var be *BusinessRuleError
	require.ErrorAs(t, err, &be)

	stored, err := f.store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, stored.Status)
}
