package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopcart/apiserver/internal/services"
	"github.com/shopcart/apiserver/internal/store"
	"github.com/shopcart/apiserver/types"
)

// OrderHandler provides order placement and lifecycle endpoints.
type OrderHandler struct {
	orderService *services.OrderService
}

// NewOrderHandler constructs an OrderHandler with the provided service.
func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// OrderRouter registers the caller-facing order routes. The caller's
// route group is expected to apply auth middleware.
func OrderRouter(r chi.Router, orderService *services.OrderService) {
	handler := NewOrderHandler(orderService)

	r.Post("/order", handler.PlaceOrder)
	r.Put("/order/update/{orderID}", handler.UpdateOrder)
	r.Delete("/order/delete/{orderID}", handler.DeleteOrder)
	r.Get("/orders", handler.ListMyOrders)
}

// AdminOrderRouter registers the admin order routes.
func AdminOrderRouter(r chi.Router, orderService *services.OrderService) {
	handler := NewOrderHandler(orderService)

	r.Get("/order/packed/{orderID}", handler.advanceTo(types.OrderStatusPacked))
	r.Get("/order/shipped/{orderID}", handler.advanceTo(types.OrderStatusShipped))
	r.Get("/order/delivered/{orderID}", handler.advanceTo(types.OrderStatusDelivered))
	r.Get("/orders", handler.ListAllOrders)
}

// PlaceOrder creates an order from a list of item ids. Repeated ids
// become a single line item with a summed quantity.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemIDs, err := decodeOrderItems(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.Place(r.Context(), userID, itemIDs)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to place order")
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// UpdateOrder replaces all line items of the caller's order.
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	itemIDs, err := decodeOrderItems(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.Replace(r.Context(), userID, orderID, itemIDs)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order or item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// DeleteOrder removes the caller's order and its line items.
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orderService.Remove(r.Context(), userID, orderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMyOrders returns the caller's orders with line items.
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orderService.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// ListAllOrders returns every order. Admin only.
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// advanceTo builds a handler that moves an order into the target status.
// Out-of-order transitions are rejected with 409.
func (h *OrderHandler) advanceTo(target types.OrderStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseIDParam(r, "orderID")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		order, err := h.orderService.Advance(r.Context(), orderID, target)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				writeError(w, http.StatusNotFound, "order not found")
			case errors.Is(err, services.ErrInvalidTransition):
				writeError(w, http.StatusConflict, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "failed to update order status")
			}
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

// OrderRequest carries the item id list for placing or updating an
// order.
type OrderRequest struct {
	ItemIDs []int `json:"item_ids"`
}

func decodeOrderItems(r *http.Request) ([]int, error) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.New("invalid request")
	}
	if len(req.ItemIDs) == 0 {
		return nil, errors.New("item_ids must not be empty")
	}
	for _, id := range req.ItemIDs {
		if id < 1 {
			return nil, errors.New("invalid item id")
		}
	}
	return req.ItemIDs, nil
}
