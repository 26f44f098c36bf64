package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/catalogsync/internal/media"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

// HandleMedia serves an entity's embedded media as raw bytes:
// /media/{collection}/{id}/{field}, e.g. /media/modules/v1/thumbnail.
// Remote URLs are redirected to.
func (h *Handler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" && r.Method != "HEAD" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/media/"), "/")
	if len(parts) != 3 {
		h.writeError(w, "Invalid media path", http.StatusBadRequest)
		return
	}
	key, field := parts[0]+"/"+parts[1], parts[2]

	entry, err := h.cache.Read(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	carrier, ok := entry.Document.MediaCarriers()[key]
	if !ok {
		h.writeError(w, "Entity not found", http.StatusNotFound)
		return
	}

	var value string
	found := false
	for _, f := range carrier.MediaFields() {
		if f.Name == field {
			value, found = *f.Value, true
			break
		}
	}
	if !found {
		h.writeError(w, "Unknown media field", http.StatusNotFound)
		return
	}

	asset := models.ParseMediaAsset(value)
	switch asset.Kind {
	case models.MediaNone, models.MediaBlobHandle, models.MediaUploadRef:
		h.writeError(w, "No media stored", http.StatusNotFound)
	case models.MediaRemoteURL:
		http.Redirect(w, r, asset.Payload, http.StatusFound)
	case models.MediaDataURI:
		mimeType, data, err := media.ParseDataURI(asset.Payload)
		if err != nil {
			h.writeError(w, "Stored media is corrupt: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "no-cache")
		if r.Method == "HEAD" {
			return
		}
		_, _ = w.Write(data)
	default:
		h.writeError(w, "Unknown media kind", http.StatusInternalServerError)
	}
}
