package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"agrohub/models"
)

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
	Province string `json:"province,omitempty"`
	District string `json:"district,omitempty"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// handleRegister creates a new user with a bcrypt-hashed password. Admin
// accounts cannot be self-registered.
func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "name, email, password are required", nil)
		return
	}
	role := models.RoleFarmer
	if req.Role != "" {
		role = models.Role(req.Role)
		if !models.ValidRole(role) || role == models.RoleAdmin {
			respondError(w, http.StatusBadRequest, "role must be farmer, agent or shop_manager", nil)
			return
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "hash error", nil)
		return
	}
	u := models.User{
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		Phone:        req.Phone,
		Role:         role,
		Status:       models.UserActive,
		Province:     req.Province,
		District:     req.District,
		CreatedAt:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	res, err := a.users.InsertOne(ctx, &u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			respondError(w, http.StatusConflict, "email already registered", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "db error", nil)
		return
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	respondJSON(w, http.StatusCreated, u)
}

// handleLogin verifies credentials and returns a JWT token.
func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var u models.User
	if err := a.users.FindOne(ctx, bson.M{"email": strings.ToLower(req.Email)}).Decode(&u); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	if u.Status != models.UserActive {
		respondError(w, http.StatusForbidden, "account is deactivated", nil)
		return
	}

	tok, err := signJWT(a.cfg.JWTSecret, u.ID, u.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "jwt error", nil)
		return
	}
	respondJSON(w, http.StatusOK, tokenResp{Token: tok, User: u})
}

// handleMe returns the current user's profile.
func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var u models.User
	if err := a.users.FindOne(ctx, bson.M{"_id": p.ID}).Decode(&u); err != nil {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, u)
}
