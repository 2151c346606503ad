package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agrohub/models"
)

// handleListUsers returns users, optionally filtered by role and status.
// Admin only.
func (a *App) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := bson.M{}
	if role := r.URL.Query().Get("role"); role != "" {
		if !models.ValidRole(models.Role(role)) {
			respondError(w, http.StatusBadRequest, "unknown role", nil)
			return
		}
		q["role"] = role
	}
	if status := r.URL.Query().Get("status"); status != "" {
		q["status"] = status
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()
	cur, err := a.users.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "db error", nil)
		return
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		respondError(w, http.StatusInternalServerError, "decode error", nil)
		return
	}
	if out == nil {
		out = []models.User{}
	}
	respondJSON(w, http.StatusOK, out)
}

// handleSetUserStatus activates or deactivates an account. Admin only.
func (a *App) handleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	status := models.UserStatus(req.Status)
	if status != models.UserActive && status != models.UserInactive {
		respondError(w, http.StatusBadRequest, "status must be active or inactive", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	res := a.users.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var out models.User
	if err := res.Decode(&out); err != nil {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, out)
}
