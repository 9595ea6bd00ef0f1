package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayusman/datilo/internal/features"
	"github.com/ayusman/datilo/internal/hand"
	"github.com/ayusman/datilo/internal/store"
)

// maxSamplesPerRequest bounds a single upload.
const maxSamplesPerRequest = 1000

// SamplesHandler handles HTTP requests for labelled training samples.
//
// Paths:
//
//	GET    /api/samples          counts per label
//	POST   /api/samples          record samples
//	DELETE /api/samples/{label}  drop every sample of a label
type SamplesHandler struct {
	store  *store.Store
	scheme features.Scheme
}

// NewSamplesHandler creates a new SamplesHandler. Features are extracted
// with scheme before storage.
func NewSamplesHandler(s *store.Store, scheme features.Scheme) *SamplesHandler {
	if !scheme.IsValid() {
		scheme = features.SchemeXY51
	}
	return &SamplesHandler{store: s, scheme: scheme}
}

// ServeHTTP implements the http.Handler interface.
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	label := strings.TrimPrefix(r.URL.Path, "/api/samples")
	label = strings.TrimPrefix(label, "/")

	if label == "" {
		switch r.Method {
		case http.MethodGet:
			h.counts(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.delete(w, r, label)
}

// Request types

type sampleInput struct {
	Label     string          `json:"label"`
	Landmarks *hand.Landmarks `json:"landmarks"`
}

type createSamplesRequest struct {
	Samples []sampleInput `json:"samples"`
}

// Response types

type createSamplesResponse struct {
	Created int    `json:"created"`
	Scheme  string `json:"scheme"`
}

type sampleCountsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// counts handles GET /api/samples
func (h *SamplesHandler) counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Samples().CountByLabel()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count samples")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, sampleCountsResponse{Counts: counts, Total: total})
}

// create handles POST /api/samples
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}
	if len(req.Samples) > maxSamplesPerRequest {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("At most %d samples per request", maxSamplesPerRequest))
		return
	}

	samples := make([]*store.Sample, 0, len(req.Samples))
	for i, in := range req.Samples {
		label := strings.TrimSpace(in.Label)
		if label == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Sample %d has no label", i))
			return
		}
		vec := features.Extract(in.Landmarks, h.scheme)
		if vec == nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Sample %d has invalid landmarks", i))
			return
		}
		samples = append(samples, &store.Sample{
			Label:     label,
			Scheme:    string(h.scheme),
			Features:  vec,
			Landmarks: in.Landmarks,
		})
	}

	if err := h.store.Samples().Create(samples...); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, createSamplesResponse{Created: len(samples), Scheme: string(h.scheme)})
}

// delete handles DELETE /api/samples/{label}
func (h *SamplesHandler) delete(w http.ResponseWriter, r *http.Request, label string) {
	if err := h.store.Samples().DeleteByLabel(label); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No samples for label")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
