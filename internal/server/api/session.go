package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ayusman/datilo/internal/session"
	"github.com/ayusman/datilo/internal/speech"
	"github.com/ayusman/datilo/internal/store"
)

// SessionHandler exposes the live session: the current letter, the text
// buffer and its commands, and speech.
//
// Paths:
//
//	GET  /api/letter
//	GET  /api/text
//	POST /api/text/clear
//	POST /api/text/backspace
//	POST /api/detection/reset
//	GET  /api/auto-speak
//	POST /api/auto-speak
//	POST /api/speak
type SessionHandler struct {
	session *session.Controller
	store   *store.Store
}

// NewSessionHandler creates a SessionHandler. The store is optional; when
// set, auto-speak changes are persisted.
func NewSessionHandler(c *session.Controller, s *store.Store) *SessionHandler {
	return &SessionHandler{session: c, store: s}
}

// Paths lists the paths ServeHTTP answers, for registration on a mux.
func (h *SessionHandler) Paths() []string {
	return []string{
		"/api/letter",
		"/api/text",
		"/api/text/clear",
		"/api/text/backspace",
		"/api/detection/reset",
		"/api/auto-speak",
		"/api/speak",
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/letter":
		h.only(w, r, http.MethodGet, h.letter)
	case "/api/text":
		h.only(w, r, http.MethodGet, h.text)
	case "/api/text/clear":
		h.only(w, r, http.MethodPost, h.clear)
	case "/api/text/backspace":
		h.only(w, r, http.MethodPost, h.backspace)
	case "/api/detection/reset":
		h.only(w, r, http.MethodPost, h.resetDetection)
	case "/api/auto-speak":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, autoSpeakResponse{Enabled: h.session.AutoSpeak()})
		case http.MethodPost:
			h.setAutoSpeak(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "/api/speak":
		h.only(w, r, http.MethodPost, h.speak)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) only(w http.ResponseWriter, r *http.Request, method string, fn http.HandlerFunc) {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	fn(w, r)
}

type letterResponse struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type textResponse struct {
	CurrentLetter string `json:"current_letter"`
	FormedText    string `json:"formed_text"`
	CorrectedText string `json:"corrected_text"`
	HandPresent   bool   `json:"hand_present"`
}

type autoSpeakRequest struct {
	Enabled *bool `json:"enabled"`
}

type autoSpeakResponse struct {
	Enabled bool `json:"enabled"`
}

type speakResponse struct {
	JobID string `json:"job_id"`
	Text  string `json:"text"`
}

func (h *SessionHandler) letter(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	writeJSON(w, http.StatusOK, letterResponse{
		Letter: snap.DisplayLetter(),
		Text:   snap.FormedText,
	})
}

func (h *SessionHandler) text(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.textSnapshot())
}

func (h *SessionHandler) textSnapshot() textResponse {
	snap := h.session.Snapshot()
	return textResponse{
		CurrentLetter: snap.CurrentLetter,
		FormedText:    snap.FormedText,
		CorrectedText: snap.CorrectedText,
		HandPresent:   snap.HandPresent,
	}
}

func (h *SessionHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ClearAll(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear text")
		return
	}
	writeJSON(w, http.StatusOK, h.textSnapshot())
}

func (h *SessionHandler) backspace(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ClearLast(); err != nil {
		if errors.Is(err, session.ErrNoText) {
			writeError(w, http.StatusConflict, "No text to delete")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete last character")
		return
	}
	writeJSON(w, http.StatusOK, h.textSnapshot())
}

func (h *SessionHandler) resetDetection(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ResetDetection(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset detection")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// setAutoSpeak sets the flag from {"enabled": bool}, or toggles it when the
// body is empty.
func (h *SessionHandler) setAutoSpeak(w http.ResponseWriter, r *http.Request) {
	var req autoSpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var enabled bool
	if req.Enabled != nil {
		enabled = *req.Enabled
		if err := h.session.SetAutoSpeak(enabled); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to set auto-speak")
			return
		}
	} else {
		var err error
		if enabled, err = h.session.ToggleAutoSpeak(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to toggle auto-speak")
			return
		}
	}

	if h.store != nil {
		if err := h.store.Settings().SetBool(store.SettingAutoSpeak, enabled); err != nil {
			slog.Warn("auto-speak setting not saved", "err", err)
		}
	}

	writeJSON(w, http.StatusOK, autoSpeakResponse{Enabled: enabled})
}

func (h *SessionHandler) speak(w http.ResponseWriter, r *http.Request) {
	job, err := h.session.Speak()
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, speakResponse{JobID: job.ID, Text: job.Text})
	case errors.Is(err, session.ErrNoText):
		writeError(w, http.StatusConflict, "No text to speak")
	case errors.Is(err, session.ErrSpeechDisabled):
		writeError(w, http.StatusServiceUnavailable, "Speech is disabled")
	case errors.Is(err, speech.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "Speech queue is full")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to queue speech")
	}
}
