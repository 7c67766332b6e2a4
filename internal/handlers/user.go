package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopcart/apiserver/internal/services"
	"github.com/shopcart/apiserver/internal/store"
)

// UserHandler provides profile, address and avatar endpoints.
type UserHandler struct {
	userService    *services.UserService
	addressService *services.AddressService
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(userService *services.UserService, addressService *services.AddressService) *UserHandler {
	return &UserHandler{
		userService:    userService,
		addressService: addressService,
	}
}

// UserRouter registers the caller-facing profile routes. All of them
// require the auth middleware, applied by the caller's route group.
func UserRouter(r chi.Router, userService *services.UserService, addressService *services.AddressService) {
	handler := NewUserHandler(userService, addressService)

	r.Get("/", handler.GetProfile)
	r.Put("/", handler.UpdateProfile)
	r.Post("/address", handler.UpsertAddress)
	r.Post("/avatar", handler.UploadAvatar)
	r.Delete("/avatar", handler.DeleteAvatar)
}

// AdminUserRouter registers the admin listing routes.
func AdminUserRouter(r chi.Router, userService *services.UserService, addressService *services.AddressService) {
	handler := NewUserHandler(userService, addressService)

	r.Get("/users", handler.ListUsers)
	r.Get("/users/addresses", handler.ListAddresses)
}

// GetProfile returns the caller's record.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile applies a partial update to the caller's record. Fields
// absent from the JSON stay unchanged.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusUnauthorized, "unauthorized")
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "email already registered")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpsertAddress creates the caller's address on first use, otherwise
// applies a partial update.
func (h *UserHandler) UpsertAddress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	address, created, err := h.addressService.Upsert(r.Context(), userID, services.AddressUpdate{
		State:         req.State,
		City:          req.City,
		Street:        req.Street,
		AddressDetail: req.AddressDetail,
	})
	if err != nil {
		if errors.Is(err, services.ErrIncompleteAddress) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save address")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, address)
}

// UploadAvatar stores the caller's avatar image.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filename, file, size, contentType, err := openImageUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	user, err := h.userService.UploadAvatar(r.Context(), userID, filename, file, size, contentType)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsafeFilename):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusUnauthorized, "unauthorized")
		default:
			writeError(w, http.StatusInternalServerError, "failed to store avatar")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// DeleteAvatar removes the caller's avatar.
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.DeleteAvatar(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "avatar not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete avatar")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ListUsers returns every account. Admin only.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ListAddresses returns every saved address. Admin only.
func (h *UserHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.addressService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list addresses")
		return
	}
	writeJSON(w, http.StatusOK, addresses)
}

// ProfileUpdateRequest carries a partial profile update. Pointer fields
// distinguish absent from empty.
type ProfileUpdateRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

func (req ProfileUpdateRequest) toUpdate() (services.UserUpdate, error) {
	update := services.UserUpdate{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	}
	if update.FullName != nil && strings.TrimSpace(*update.FullName) == "" {
		return services.UserUpdate{}, errors.New("full_name must not be empty")
	}
	if update.Email != nil && strings.TrimSpace(*update.Email) == "" {
		return services.UserUpdate{}, errors.New("email must not be empty")
	}
	if update.Password != nil && *update.Password == "" {
		return services.UserUpdate{}, errors.New("password must not be empty")
	}
	return update, nil
}

// AddressRequest carries the address upsert payload.
type AddressRequest struct {
	State         *string `json:"state"`
	City          *string `json:"city"`
	Street        *string `json:"street"`
	AddressDetail *string `json:"address_detail"`
}
