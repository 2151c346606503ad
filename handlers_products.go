package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agrohub/models"
	"agrohub/requests"
)

type productReq struct {
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	PriceRWF    *float64 `json:"price_rwf,omitempty"`
	StockQty    *int     `json:"stock_qty,omitempty"`
	Description string   `json:"description,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}

// handleCreateProduct inserts a new inventory item owned by the calling
// shop manager.
func (a *App) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)

	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.PriceRWF == nil {
		respondError(w, http.StatusBadRequest, "name and price_rwf are required", nil)
		return
	}
	if *req.PriceRWF < 0 {
		respondError(w, http.StatusBadRequest, "price_rwf cannot be negative", nil)
		return
	}

	now := time.Now()
	prod := models.Product{
		ShopManagerID: p.ID,
		Name:          strings.TrimSpace(req.Name),
		Category:      req.Category,
		Unit:          req.Unit,
		PriceRWF:      *req.PriceRWF,
		Description:   req.Description,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.StockQty != nil {
		if *req.StockQty < 0 {
			respondError(w, http.StatusBadRequest, "stock_qty cannot be negative", nil)
			return
		}
		prod.StockQty = *req.StockQty
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	res, err := a.products.InsertOne(ctx, &prod)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "db error", nil)
		return
	}
	prod.ID = res.InsertedID.(primitive.ObjectID)
	respondJSON(w, http.StatusCreated, prod)
}

// handleListProducts returns active products; shop managers additionally
// see their own inactive ones via ?mine=1.
func (a *App) handleListProducts(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)

	q := bson.M{"active": true}
	if r.URL.Query().Get("mine") != "" && p.Role == requests.RoleShopManager {
		q = bson.M{"shop_manager_id": p.ID}
	}
	if cat := r.URL.Query().Get("category"); cat != "" {
		q["category"] = cat
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()
	cur, err := a.products.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "db error", nil)
		return
	}
	defer cur.Close(ctx)

	var out []models.Product
	if err := cur.All(ctx, &out); err != nil {
		respondError(w, http.StatusInternalServerError, "decode error", nil)
		return
	}
	if out == nil {
		out = []models.Product{}
	}
	respondJSON(w, http.StatusOK, out)
}

// handleGetProduct returns a single product by id.
func (a *App) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var prod models.Product
	if err := a.products.FindOne(ctx, bson.M{"_id": oid}).Decode(&prod); err != nil {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, prod)
}

// handleUpdateProduct updates fields of a product owned by the caller.
func (a *App) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}

	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}

	set := bson.M{"updated_at": time.Now()}
	if strings.TrimSpace(req.Name) != "" {
		set["name"] = strings.TrimSpace(req.Name)
	}
	if req.Category != "" {
		set["category"] = req.Category
	}
	if req.Unit != "" {
		set["unit"] = req.Unit
	}
	if req.PriceRWF != nil {
		if *req.PriceRWF < 0 {
			respondError(w, http.StatusBadRequest, "price_rwf cannot be negative", nil)
			return
		}
		set["price_rwf"] = *req.PriceRWF
	}
	if req.StockQty != nil {
		if *req.StockQty < 0 {
			respondError(w, http.StatusBadRequest, "stock_qty cannot be negative", nil)
			return
		}
		set["stock_qty"] = *req.StockQty
	}
	if req.Description != "" {
		set["description"] = req.Description
	}
	if req.Active != nil {
		set["active"] = *req.Active
	}
	if len(set) == 1 {
		respondError(w, http.StatusBadRequest, "nothing to update", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	res := a.products.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid, "shop_manager_id": p.ID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var out models.Product
	if err := res.Decode(&out); err != nil {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// handleDeleteProduct removes a product owned by the caller.
func (a *App) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := a.products.DeleteOne(ctx, bson.M{"_id": oid, "shop_manager_id": p.ID})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "db error", nil)
		return
	}
	if res.DeletedCount == 0 {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	respondMessage(w, http.StatusOK, "deleted")
}
