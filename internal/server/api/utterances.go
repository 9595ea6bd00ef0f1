package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/datilo/internal/store"
)

// UtterancesHandler serves the spoken-sentence history at GET /api/utterances.
// The optional "limit" query parameter defaults to 50.
type UtterancesHandler struct {
	store *store.Store
}

// NewUtterancesHandler creates a new UtterancesHandler.
func NewUtterancesHandler(s *store.Store) *UtterancesHandler {
	return &UtterancesHandler{store: s}
}

type utteranceResponse struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Spoken     bool   `json:"spoken"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

type listUtterancesResponse struct {
	Utterances []utteranceResponse `json:"utterances"`
}

// ServeHTTP implements the http.Handler interface.
func (h *UtterancesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	utterances, err := h.store.Utterances().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list utterances")
		return
	}

	response := listUtterancesResponse{
		Utterances: make([]utteranceResponse, 0, len(utterances)),
	}
	for _, u := range utterances {
		response.Utterances = append(response.Utterances, utteranceResponse{
			ID:         u.ID,
			Text:       u.Text,
			Spoken:     u.Spoken,
			Error:      u.Error,
			DurationMs: u.DurationMs,
			CreatedAt:  formatTime(u.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
