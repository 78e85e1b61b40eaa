package pipeline

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Status is what the status handler reads from a running pipeline.
type Status interface {
	Capturing() bool
	QueueDepth() int
	Ledger() Ledger
}

type healthResponse struct {
	Capturing  bool                 `json:"capturing"`
	QueueDepth int                  `json:"queue_depth"`
	Segments   map[SegmentState]int `json:"segments"`
}

// Handler exposes pipeline status over HTTP using go-chi.
type Handler struct {
	status Status
	log    *slog.Logger
}

// NewHandler returns a Handler reporting on status.
func NewHandler(status Status, log *slog.Logger) *Handler {
	return &Handler{status: status, log: log}
}

// Routes mounts the status endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Get("/segments", h.ListSegments)
	r.Get("/segments/{name}", h.GetSegment)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{
		Capturing:  h.status.Capturing(),
		QueueDepth: h.status.QueueDepth(),
		Segments:   h.status.Ledger().Counts(),
	})
}

// ListSegments handles GET /segments with an optional ?state= filter.
func (h *Handler) ListSegments(w http.ResponseWriter, r *http.Request) {
	state := SegmentState(r.URL.Query().Get("state"))
	if state != "" && !state.Valid() {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, h.status.Ledger().Snapshot(state))
}

// GetSegment handles GET /segments/{name}.
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	seg, err := h.status.Ledger().Get(name)
	if err != nil {
		if errors.Is(err, ErrSegmentNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.log.Error("segment lookup failed", slog.String("name", name), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, seg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Debug("writing response failed", slog.String("error", err.Error()))
	}
}
