package handlers

import (
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/catalogsync/internal/cache"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

type catalogResponse struct {
	Source        cache.Source            `json:"source"`
	LastFetchedAt time.Time               `json:"lastFetchedAt"`
	Document      *models.CatalogDocument `json:"document"`
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		entry, err := h.cache.Read(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, catalogResponse{
			Source:        entry.Source,
			LastFetchedAt: entry.LastFetchedAt,
			Document:      entry.Document,
		})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleCatalogRefresh drops the memory entry and re-reads from the remote store
func (h *Handler) HandleCatalogRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.cache.Invalidate()
	entry, err := h.cache.Read(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"source":        entry.Source,
		"lastFetchedAt": entry.LastFetchedAt,
	})
}

// HandleMirror erases the local mirror so the next read has to reach the remote store
func (h *Handler) HandleMirror(w http.ResponseWriter, r *http.Request) {
	if r.Method != "DELETE" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.cache.ClearMirror(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
