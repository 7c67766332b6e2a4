package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
)

// ImageReader is the storage subset needed to serve stored images.
type ImageReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ServeImage streams a stored image back to the client. The wildcard
// part of the route is the storage key.
func ServeImage(storage ImageReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if key == "" {
			writeError(w, http.StatusBadRequest, "missing image key")
			return
		}

		object, err := storage.Get(r.Context(), key)
		if err != nil {
			writeError(w, http.StatusNotFound, "image not found")
			return
		}
		defer object.Close()

		if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		if _, err := io.Copy(w, object); err != nil {
			// Headers are already out; nothing left to report.
			return
		}
	}
}
