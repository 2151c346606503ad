package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agrohub/models"
	"agrohub/requests"
)

type orderItemReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type createOrderReq struct {
	Items []orderItemReq `json:"items"`
	Notes string         `json:"notes,omitempty"`
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// handleCreateOrder places a farmer order. Stock is checked and decremented
// atomically per product; a failed line releases nothing that came before
// it, so quantities are reserved item by item and rolled back on failure.
func (a *App) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad json", nil)
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "items are required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var (
		items         []models.OrderItem
		total         float64
		shopManagerID primitive.ObjectID
		reserved      []models.OrderItem
	)
	release := func() { a.restock(reserved) }

	for _, it := range req.Items {
		if it.Qty <= 0 {
			release()
			respondError(w, http.StatusBadRequest, "qty must be positive", nil)
			return
		}
		pid, err := primitive.ObjectIDFromHex(it.ProductID)
		if err != nil {
			release()
			respondError(w, http.StatusBadRequest, "bad product id "+it.ProductID, nil)
			return
		}
		// Decrement stock only if enough is available.
		res := a.products.FindOneAndUpdate(ctx,
			bson.M{"_id": pid, "active": true, "stock_qty": bson.M{"$gte": it.Qty}},
			bson.M{"$inc": bson.M{"stock_qty": -it.Qty}},
			options.FindOneAndUpdate().SetReturnDocument(options.Before),
		)
		var prod models.Product
		if err := res.Decode(&prod); err != nil {
			release()
			respondError(w, http.StatusConflict, "product unavailable or out of stock: "+it.ProductID, nil)
			return
		}
		line := models.OrderItem{ProductID: pid, Name: prod.Name, Qty: it.Qty, UnitPrice: prod.PriceRWF}
		items = append(items, line)
		reserved = append(reserved, line)
		total += float64(it.Qty) * prod.PriceRWF
		if !shopManagerID.IsZero() && shopManagerID != prod.ShopManagerID {
			release()
			respondError(w, http.StatusBadRequest, "all items must come from the same shop", nil)
			return
		}
		shopManagerID = prod.ShopManagerID
	}

	now := time.Now()
	order := models.Order{
		OrderNumber:   newOrderNumber(now),
		FarmerID:      p.ID,
		ShopManagerID: shopManagerID,
		Items:         items,
		TotalRWF:      total,
		Status:        models.OrderPending,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	res, err := a.orders.InsertOne(ctx, &order)
	if err != nil {
		release()
		respondError(w, http.StatusInternalServerError, "db error", nil)
		return
	}
	order.ID = res.InsertedID.(primitive.ObjectID)
	respondJSON(w, http.StatusCreated, order)
}

// handleListOrders is role-scoped: farmers see their own orders, shop
// managers orders against their shop, admins everything.
func (a *App) handleListOrders(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)

	q := bson.M{}
	switch p.Role {
	case requests.RoleFarmer:
		q["farmer_id"] = p.ID
	case requests.RoleShopManager:
		q["shop_manager_id"] = p.ID
	case requests.RoleAdmin:
	default:
		respondError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		q["status"] = status
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()
	cur, err := a.orders.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "db error", nil)
		return
	}
	defer cur.Close(ctx)

	var out []models.Order
	if err := cur.All(ctx, &out); err != nil {
		respondError(w, http.StatusInternalServerError, "decode error", nil)
		return
	}
	if out == nil {
		out = []models.Order{}
	}
	respondJSON(w, http.StatusOK, out)
}

// handleGetOrder returns one order, visible to its farmer, shop manager
// or an admin.
func (a *App) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var order models.Order
	if err := a.orders.FindOne(ctx, bson.M{"_id": oid}).Decode(&order); err != nil {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	if p.Role != requests.RoleAdmin && order.FarmerID != p.ID && order.ShopManagerID != p.ID {
		respondError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// handleUpdateOrderStatus moves an order along its simple lifecycle:
// the shop manager confirms and delivers, the farmer cancels while pending.
func (a *App) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
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
	target := models.OrderStatus(req.Status)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var order models.Order
	if err := a.orders.FindOne(ctx, bson.M{"_id": oid}).Decode(&order); err != nil {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}

	var allowed bool
	switch target {
	case models.OrderConfirmed:
		allowed = (p.Role == requests.RoleShopManager && order.ShopManagerID == p.ID ||
			p.Role == requests.RoleAdmin) && order.Status == models.OrderPending
	case models.OrderDelivered:
		allowed = (p.Role == requests.RoleShopManager && order.ShopManagerID == p.ID ||
			p.Role == requests.RoleAdmin) && order.Status == models.OrderConfirmed
	case models.OrderCancelled:
		allowed = (p.Role == requests.RoleFarmer && order.FarmerID == p.ID ||
			p.Role == requests.RoleAdmin) && order.Status == models.OrderPending
	default:
		respondError(w, http.StatusBadRequest, "status must be confirmed, delivered or cancelled", nil)
		return
	}
	if !allowed {
		respondError(w, http.StatusConflict, fmt.Sprintf("cannot move order from %s to %s", order.Status, target), nil)
		return
	}

	res := a.orders.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid, "status": order.Status},
		bson.M{"$set": bson.M{"status": target, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var out models.Order
	if err := res.Decode(&out); err != nil {
		respondError(w, http.StatusConflict, "order changed concurrently, retry", nil)
		return
	}
	// Cancelling returns reserved stock.
	if target == models.OrderCancelled {
		a.restock(out.Items)
	}
	respondJSON(w, http.StatusOK, out)
}

// restock returns reserved quantities to the products collection. It runs on
// its own context: the request context may already be expired by the time a
// rollback is needed.
func (a *App) restock(items []models.OrderItem) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, it := range items {
		_, err := a.products.UpdateOne(ctx,
			bson.M{"_id": it.ProductID},
			bson.M{"$inc": bson.M{"stock_qty": it.Qty}})
		if err != nil {
			a.log.Error().Err(err).
				Str("product_id", it.ProductID.Hex()).
				Int("qty", it.Qty).
				Msg("stock restore failed")
		}
	}
}
