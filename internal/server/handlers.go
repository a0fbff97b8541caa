package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// handleChat is the compact chat endpoint: it accepts a message plus optional
// selected text and auth token, and returns only the reply.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("chat request",
		zap.Int("message_len", len(req.Message)),
		zap.Bool("has_selected_text", req.SelectedText != ""))

	result := s.pipeline.Query(r.Context(), req)
	s.respondJSON(w, http.StatusOK, models.ChatResponse{Reply: result.Reply})
}

// handleQuery returns the full query result including sources and retrieval
// metadata.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.pipeline.Query(r.Context(), req)
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.pipeline.Stats())
}

type reindexRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	s.logger.Info("reindex requested", zap.Bool("force", req.Force))

	count, err := s.pipeline.BuildIndex(r.Context(), req.Force)
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "indexed",
		"chunks": count,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "kotae",
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
