package drive

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	files  Files
	syncer *Syncer
}

func NewHandler(files Files, syncer *Syncer) *Handler {
	return &Handler{files: files, syncer: syncer}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/drive/sync", h.Sync).Methods(http.MethodPost)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")

	if folderPath := query.Get("path"); folderPath != "" {
		id, err := h.files.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		folderID = id
	}

	files, err := h.files.ListFiles(r.Context(), folderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []*File{}
	}
	writeJSON(w, http.StatusOK, files)
}

// Sync pulls the stock workbook into the data dir.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.syncer.Sync(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("drive: sync failed")
		http.Error(w, "sync failed: "+err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func statusFor(err error) int {
	if errors.Is(err, ErrFolderNotFound) || errors.Is(err, ErrWorkbookNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("drive: failed to encode response")
	}
}
