package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// HandleUploads lists the upload queue (GET) or enqueues a file (POST).
// POST accepts a multipart "file" field, or JSON {"url": "..."} to ingest a remote file.
func (h *Handler) HandleUploads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		entries, err := h.uploads.List(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, entries)
	case "POST":
		if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
			h.handleURLUpload(w, r)
			return
		}
		h.handleFileUpload(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.URL == "" {
		h.writeError(w, "url is required", http.StatusBadRequest)
		return
	}

	entry, err := h.uploads.EnqueueURL(r.Context(), request.URL)
	if err != nil {
		h.writeError(w, "Failed to fetch media URL: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusAccepted, entry)
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxUploadSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	entry, err := h.uploads.Enqueue(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, entry)
}

func (h *Handler) HandleUploadDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/uploads/")

	switch r.Method {
	case "GET":
		entries, err := h.uploads.List(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		for _, e := range entries {
			if e.ID == id {
				h.writeJSON(w, http.StatusOK, e)
				return
			}
		}
		h.writeError(w, "Upload not found", http.StatusNotFound)
	case "DELETE":
		if err := h.uploads.Dequeue(r.Context(), id); err != nil {
			h.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
