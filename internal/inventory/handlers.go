package inventory

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pantryscan/internal/enrichment"
	"pantryscan/internal/recognition"
)

// maxUploadSize bounds multipart uploads; phone photos run large.
const maxUploadSize = int64(50 << 20) // 50MB

func writeJSON(w http.ResponseWriter, status int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// readUpload pulls the "file" part out of a multipart request and infers its
// content type from the filename when the part carries none.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return nil, "", false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file was provided")
		return nil, "", false
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB.")
		return nil, "", false
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading upload", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return nil, "", false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFromExt(header.Filename)
	}
	return data, contentType, true
}

func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".heic", ".heif":
		return "image/heic"
	case ".pdf":
		return "application/pdf"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}

// handleScan runs one uploaded image through the recognition pipeline. A
// successful scan that detected nothing returns 200 with items_added 0 and
// an empty detection list; a recognition transport failure returns 502 so
// the client can render it as a distinct outcome.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	result, err := s.service.ScanImage(r.Context(), data, contentType)
	if err != nil {
		slog.Error("Error scanning image", "error", err, "content_type", contentType)
		if errors.Is(err, recognition.ErrServiceUnavailable) {
			writeError(w, http.StatusBadGateway, "Image processing failed. Please try again.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetInventory returns the inventory summary.
func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Inventory()
	if err != nil {
		slog.Error("Error loading inventory", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleClearInventory removes every record.
func (s *Server) handleClearInventory(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Clear(); err != nil {
		slog.Error("Error clearing inventory", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Inventory cleared"})
}

// handleConsumeItem removes units of one item, defaulting to a single unit.
func (s *Server) handleConsumeItem(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	count := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		count = parsed
	}

	if err := s.service.Consume(name, count); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInsufficient) {
			writeError(w, http.StatusNotFound, "Item not found or insufficient quantity")
			return
		}
		slog.Error("Error consuming item", "error", err, "item", name)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item consumed"})
}

// handleHistory returns the recent accepted merges.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"history": s.service.History()})
}

// handleVoiceExpiry runs an enrichment session over an uploaded audio clip.
// The response body's outcome field distinguishes an applied date from
// "could not understand"; transport failures are 502.
func (s *Server) handleVoiceExpiry(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	session, err := s.enricher.Start(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}

	result, err := s.enricher.Process(session, data, contentType)
	if err != nil {
		if errors.Is(err, enrichment.ErrCancelled) {
			writeError(w, http.StatusConflict, "Session was cancelled")
			return
		}
		slog.Error("Error running enrichment session", "error", err, "item", name)
		if errors.Is(err, enrichment.ErrServiceUnavailable) {
			writeError(w, http.StatusBadGateway, "Audio processing failed. Please try again.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type manualExpiryRequest struct {
	ExpiryDate string `json:"expiry_date"`
}

// handleManualExpiry sets an expiry date entered by hand, with the same
// validation the voice path applies to extractor output.
func (s *Server) handleManualExpiry(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req manualExpiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.service.SetExpiry(name, req.ExpiryDate); err != nil {
		switch {
		case errors.Is(err, ErrInvalidDate):
			writeError(w, http.StatusBadRequest, "expiry_date must be YYYY-MM-DD")
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "Item not found")
		default:
			slog.Error("Error setting expiry date", "error", err, "item", name)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Expiry date updated", "expiry_date": req.ExpiryDate})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Inventory()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().Format(time.RFC3339),
		"total_items": summary.TotalUnits,
	})
}

// handleConfig reports the effective settings.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":          s.config.Version,
		"recognizer":       s.config.Recognizer,
		"transcriber":      s.config.Transcriber,
		"cooldown_seconds": s.config.Cooldown.Seconds(),
		"enrichment_state": s.enricher.Active(),
	})
}
