package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopcart/apiserver/internal/token"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// maxUploadBytes caps image upload bodies.
const maxUploadBytes = 10 << 20

// formFieldImage is the multipart field carrying uploads.
const formFieldImage = "image"

func claimsFromContext(ctx context.Context) (token.Claims, error) {
	claims, ok := ctx.Value(contextClaimsKey).(token.Claims)
	if !ok {
		return token.Claims{}, errors.New("missing claims")
	}
	return claims, nil
}

func userIDFromContext(ctx context.Context) (int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}

func parseIDParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// openImageUpload extracts the single "image" file from a multipart
// request, enforcing the upload size cap.
func openImageUpload(r *http.Request) (string, multipart.File, int64, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, 0, "", errors.New("invalid multipart form or upload too large")
	}
	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		return "", nil, 0, "", errors.New("image file is required")
	}
	return header.Filename, file, header.Size, header.Header.Get("Content-Type"), nil
}
