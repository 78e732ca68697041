package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 32 << 20 // 32 MiB

// readUpload pulls the document bytes and format out of a multipart form.
// The format is taken from the uploaded file's extension.
func readUpload(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("failed to parse multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("missing file field: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read uploaded file: %w", err)
	}

	format := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	return data, format, nil
}

func (s *Server) handleListTrainings(w http.ResponseWriter, r *http.Request) {
	trainings, err := s.store.ListTrainings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "trainings listed", trainings)
}

func (s *Server) handleCreateTraining(w http.ResponseWriter, r *http.Request) {
	data, format, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Result{Status: false, Message: err.Error()})
		return
	}

	category := r.FormValue("category")
	count, err := s.store.CreateTraining(r.Context(), category, data, format)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, fmt.Sprintf("training %q created", category), map[string]any{"fragments": count})
}

func (s *Server) handleUpdateTraining(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	data, format, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Result{Status: false, Message: err.Error()})
		return
	}

	count, err := s.store.UpdateTraining(r.Context(), category, data, format)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, fmt.Sprintf("training %q updated", category), map[string]any{"fragments": count})
}

func (s *Server) handleDeleteTraining(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	if err := s.store.DeleteTraining(r.Context(), category); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, fmt.Sprintf("training %q deleted", category), nil)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	// refresh from the runtime so newly pulled models show up
	models, err := s.llm.ListModels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	s.settings.SetModels(models)
	writeOK(w, "models listed", models)
}

func (s *Server) handleSelectedModel(w http.ResponseWriter, r *http.Request) {
	writeOK(w, "selected model", s.settings.SelectedModel())
}

func (s *Server) handleSelectModel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Result{Status: false, Message: "invalid request body"})
		return
	}

	name, err := s.settings.SelectModel(body.Index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, fmt.Sprintf("model %q selected", name), name)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	writeOK(w, "active category", s.settings.Category())
}

func (s *Server) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Result{Status: false, Message: "invalid request body"})
		return
	}

	s.settings.SetCategory(body.Category)
	writeOK(w, fmt.Sprintf("category set to %q", body.Category), body.Category)
}

func (s *Server) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	writeOK(w, "retrieval matches", s.settings.Matches())
}

func (s *Server) handleSetMatches(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Matches int `json:"matches"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Result{Status: false, Message: "invalid request body"})
		return
	}

	if err := s.settings.SetMatches(body.Matches); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, fmt.Sprintf("matches set to %d", body.Matches), body.Matches)
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	writeOK(w, "response level", s.settings.Level())
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Level int `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Result{Status: false, Message: "invalid request body"})
		return
	}

	if err := s.settings.SetLevel(body.Level); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, fmt.Sprintf("level set to %d", body.Level), body.Level)
}

// handleChat streams the answer as chunked plain text, one increment per
// flush. Failures before the stream starts come back as the JSON envelope.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Result{Status: false, Message: "invalid request body"})
		return
	}

	ch, err := s.pipeline.Ask(r.Context(), body.Query)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	for increment := range ch {
		if _, err := w.Write([]byte(increment)); err != nil {
			slog.Debug("Client went away mid-stream", "error", err)
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}
