package main

import (
	"context"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// handleMyNotifications lists the caller's notifications, newest first.
func (a *App) handleMyNotifications(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(100)
	cur, err := a.notifications.Find(ctx, bson.M{"user_id": p.ID}, opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query failed", nil)
		return
	}
	defer cur.Close(ctx)

	items := []notification{}
	if err := cur.All(ctx, &items); err != nil {
		respondError(w, http.StatusInternalServerError, "decode failed", nil)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// handleMarkNotificationRead flags one notification as read.
func (a *App) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, ok := requestID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := a.notifications.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": p.ID},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "update failed", nil)
		return
	}
	if res.MatchedCount == 0 {
		respondError(w, http.StatusNotFound, "notification not found", nil)
		return
	}
	respondMessage(w, http.StatusOK, "marked read")
}
