package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fmueller/voxrelay/internal/relay"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxMessageBytes = 1 << 20

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
}

type uploadResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type messageRequest struct {
	// Text is a pointer so a missing field can be told apart from "".
	Text *string `json:"text"`
}

type messageResponse struct {
	Answer string `json:"answer"`
}

type healthResponse struct {
	Status    string `json:"status"`
	History   int    `json:"history"`
	Model     string `json:"model"`
	Generator string `json:"generator"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.indexFile)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	rec, err := s.relay.Upload(r.Context(), r.Body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, uploadErrorMessage(err), "")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Question: rec.Question, Answer: rec.Answer})
}

func uploadErrorMessage(err error) string {
	var saveErr *relay.SaveError
	if errors.As(err, &saveErr) {
		return fmt.Sprintf("Failed to save file: %v", saveErr.Cause)
	}
	var transcriptionErr *relay.TranscriptionError
	if errors.As(err, &transcriptionErr) {
		return fmt.Sprintf("Transcription failed: %v", transcriptionErr.Cause)
	}
	return err.Error()
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	text, err := decodeMessage(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		s.logger.Warn("rejected message request", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return
	}

	rec := s.relay.Message(r.Context(), text)
	writeJSON(w, http.StatusOK, messageResponse{Answer: rec.Answer})
}

func decodeMessage(body io.Reader) (string, error) {
	var req messageRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return "", errors.New("request body is empty")
		}
		return "", fmt.Errorf("malformed JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return "", errors.New("unexpected data after JSON object")
	}
	if req.Text == nil {
		return "", errors.New(`missing required field "text"`)
	}
	return *req.Text, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.relay.History())
}

func (s *Server) handleUploadedFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, s.uploads, name)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		History:   s.relay.HistoryLen(),
		Model:     s.modelName,
		Generator: s.generatorName,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, errorResponse{Status: "error", Error: message, Kind: kind})
}
