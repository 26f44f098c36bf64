package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/catalogsync/internal/cache"
	"github.com/lehigh-university-libraries/catalogsync/internal/cataloging"
	"github.com/lehigh-university-libraries/catalogsync/internal/media"
	"github.com/lehigh-university-libraries/catalogsync/internal/persist"
	"github.com/lehigh-university-libraries/catalogsync/internal/upload"
)

// maxBodySize caps JSON request bodies; media travels through uploads
const maxBodySize = 32 << 20

type Handler struct {
	cache   *cache.Cache
	service *cataloging.Service
	uploads *upload.Queue
}

func New(c *cache.Cache, service *cataloging.Service, uploads *upload.Queue) *Handler {
	return &Handler{
		cache:   c,
		service: service,
		uploads: uploads,
	}
}

// Routes registers the admin API on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/catalog", h.HandleCatalog)
	mux.HandleFunc("/api/catalog/refresh", h.HandleCatalogRefresh)
	mux.HandleFunc("/api/catalog/mirror", h.HandleMirror)
	mux.HandleFunc("/api/modules", h.HandleModules)
	mux.HandleFunc("/api/modules/", h.HandleModuleDetail)
	mux.HandleFunc("/api/packages", h.HandlePackages)
	mux.HandleFunc("/api/packages/", h.HandlePackageDetail)
	mux.HandleFunc("/api/categories", h.HandleCategories)
	mux.HandleFunc("/api/categories/", h.HandleCategoryDetail)
	mux.HandleFunc("/api/bundles", h.HandleBundles)
	mux.HandleFunc("/api/bundles/", h.HandleBundleDetail)
	mux.HandleFunc("/api/orders", h.HandleOrders)
	mux.HandleFunc("/api/orders/", h.HandleOrderDetail)
	mux.HandleFunc("/api/uploads", h.HandleUploads)
	mux.HandleFunc("/api/uploads/", h.HandleUploadDetail)
	mux.HandleFunc("/api/users", h.HandleUsers)
	mux.HandleFunc("/api/users/", h.HandleUserDetail)
	mux.HandleFunc("/media/", h.HandleMedia)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
	} else {
		slog.Warn(message, "status", code)
	}
	h.writeJSON(w, code, map[string]string{"error": message})
}

// writeServiceError maps subsystem failures onto HTTP status codes
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, cataloging.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, cataloging.ErrDuplicateIdentifier):
		code = http.StatusConflict
	case errors.Is(err, cataloging.ErrInvalid):
		code = http.StatusBadRequest
	case errors.Is(err, media.ErrEncodingFailed), errors.Is(err, persist.ErrTransientMedia):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, upload.ErrUploadTooLarge):
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, cache.ErrNoDataAvailable):
		code = http.StatusServiceUnavailable
	case errors.Is(err, persist.ErrPersistenceFailed):
		code = http.StatusBadGateway
	}
	h.writeError(w, err.Error(), code)
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
