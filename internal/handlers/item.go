package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopcart/apiserver/internal/services"
	"github.com/shopcart/apiserver/internal/store"
	"github.com/shopcart/apiserver/types"
)

// ItemHandler provides catalog administration endpoints.
type ItemHandler struct {
	itemService *services.ItemService
}

// NewItemHandler constructs an ItemHandler with the provided service.
func NewItemHandler(itemService *services.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

// AdminItemRouter registers catalog routes. The caller's route group is
// expected to apply auth and admin middleware.
func AdminItemRouter(r chi.Router, itemService *services.ItemService) {
	handler := NewItemHandler(itemService)

	r.Post("/item/register", handler.CreateItem)
	r.Put("/item/update/{itemID}", handler.UpdateItem)
	r.Delete("/item/delete/{itemID}", handler.DeleteItem)
	r.Get("/items", handler.ListItems)
	r.Post("/item/image/{itemID}", handler.UploadItemImage)
	r.Delete("/image/delete/{itemID}/{imageName}", handler.DeleteItemImage)
}

// CreateItem registers a catalog item.
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	item, err := h.itemService.Create(r.Context(), types.Item{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "item name already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem applies a partial update. Fields absent from the JSON stay
// unchanged.
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ItemUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}
	if req.Price != nil && *req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	item, err := h.itemService.Update(r.Context(), id, services.ItemUpdate{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "item not found")
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "item name already exists")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update item")
		}
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// DeleteItem removes an item and its stored image.
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.itemService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListItems returns the whole catalog.
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// UploadItemImage stores an image for the item.
func (h *ItemHandler) UploadItemImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filename, file, size, contentType, err := openImageUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	item, err := h.itemService.AttachImage(r.Context(), id, filename, file, size, contentType)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsafeFilename):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "item not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to store image")
		}
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// DeleteItemImage removes the named image from the item.
func (h *ItemHandler) DeleteItemImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	imageName := chi.URLParam(r, "imageName")

	item, err := h.itemService.DetachImage(r.Context(), id, imageName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsafeFilename):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "image not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete image")
		}
		return
	}

	writeJSON(w, http.StatusOK, item)
}

type ItemCreateRequest struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
}

// ItemUpdateRequest carries a partial item update. Pointer fields
// distinguish absent from zero.
type ItemUpdateRequest struct {
	Name        *string `json:"name"`
	Price       *int64  `json:"price"`
	Description *string `json:"description"`
}
