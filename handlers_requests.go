package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"agrohub/requests"
)

func requestID(r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return oid, err == nil
}

// handleCreateRequest files a general service request.
func (a *App) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	var in requests.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	out, err := a.requests.Create(r.Context(), p, in)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, out)
}

// handleCreateHarvestRequest files a harvest request with its sub-document.
func (a *App) handleCreateHarvestRequest(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	var in requests.HarvestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	out, err := a.requests.CreateHarvest(r.Context(), p, in)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, out)
}

// handleListRequests returns requests scoped to the caller's role.
func (a *App) handleListRequests(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	f := requests.Filter{
		Status:      requests.Status(r.URL.Query().Get("status")),
		ServiceType: requests.ServiceType(r.URL.Query().Get("service_type")),
	}
	out, err := a.requests.List(r.Context(), p, f)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	if out == nil {
		out = []*requests.ServiceRequest{}
	}
	respondJSON(w, http.StatusOK, out)
}

// handleGetRequest returns one request for its owner, the assigned agent,
// or an admin.
func (a *App) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	out, err := a.requests.Get(r.Context(), p, oid)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// handleUpdateRequest edits non-status fields.
func (a *App) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	var in requests.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	out, err := a.requests.Update(r.Context(), p, oid, in)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// handleDeleteRequest removes a request that has not entered execution.
func (a *App) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	if err := a.requests.Delete(r.Context(), p, oid); err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "deleted")
}

// handleApproveRequest approves a pending request, optionally assigning an
// agent and approval details in the same call.
func (a *App) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	var in requests.ApproveInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	out, err := a.requests.Approve(r.Context(), p, oid, in)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// handleRejectRequest rejects a pending request with a reason.
func (a *App) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	var in requests.RejectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	out, err := a.requests.Reject(r.Context(), p, oid, in)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// handleAssignRequest attaches an active agent to a request.
func (a *App) handleAssignRequest(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	var in requests.AssignInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	out, err := a.requests.Assign(r.Context(), p, oid, in)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// handleStartRequest moves an assigned/approved request into execution.
func (a *App) handleStartRequest(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	var in requests.StartInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	out, err := a.requests.Start(r.Context(), p, oid, in)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// handleCompleteRequest closes a request, merging harvest completion data.
func (a *App) handleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	var in requests.CompleteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	out, err := a.requests.Complete(r.Context(), p, oid, in)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// handleCancelRequest withdraws a request.
func (a *App) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	out, err := a.requests.Cancel(r.Context(), p, oid)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// handleUpdateRequestStatus is the generic transition path.
func (a *App) handleUpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	var in requests.UpdateStatusInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	out, err := a.requests.UpdateStatus(r.Context(), p, oid, in)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// handleSubmitFeedback attaches the farmer's one-time rating.
func (a *App) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	var in requests.FeedbackInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	out, err := a.requests.SubmitFeedback(r.Context(), p, oid, in)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, out)
}
