package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pageglot/pageglot/internal/session"
	"github.com/pageglot/pageglot/pkg/log"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.manager.List())
}

type languageRequest struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// handlePage routes /api/pages/{id}[/{action}].
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/pages/")
	pageID, action, _ := strings.Cut(rest, "/")
	if decoded, err := url.PathUnescape(pageID); err == nil {
		pageID = decoded
	}
	if pageID == "" {
		writeError(w, http.StatusBadRequest, "missing page id")
		return
	}

	controller, ok := s.manager.Session(pageID)
	if !ok {
		writeError(w, http.StatusNotFound, "page is not attached")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, controller.Snapshot())
	case "start":
		s.handleStart(w, r, controller)
	case "stop":
		s.handleStop(w, r, controller)
	case "language":
		s.handleLanguage(w, r, controller)
	case "loaded":
		s.handleLoaded(w, r, controller)
	case "events":
		s.handleEvents(w, r, controller)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleStart kicks off the translation pass asynchronously; progress
// arrives through the events stream.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, controller *session.Controller) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req languageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.SourceLanguage == "" {
		req.SourceLanguage = "auto"
	}
	if req.TargetLanguage == "" {
		writeError(w, http.StatusBadRequest, "target_language is required")
		return
	}

	go func() {
		if err := controller.Start(req.SourceLanguage, req.TargetLanguage); err != nil {
			log.Error("start session: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request, controller *session.Controller) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	controller.Stop()
	writeJSON(w, http.StatusOK, controller.Snapshot())
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request, controller *session.Controller) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req languageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.SourceLanguage == "" {
		req.SourceLanguage = "auto"
	}
	if req.TargetLanguage == "" {
		writeError(w, http.StatusBadRequest, "target_language is required")
		return
	}

	go func() {
		if err := controller.UpdateLanguage(req.SourceLanguage, req.TargetLanguage); err != nil {
			log.Error("update language: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (s *Server) handleLoaded(w http.ResponseWriter, r *http.Request, controller *session.Controller) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	go func() {
		if err := controller.PageLoaded(); err != nil {
			log.Error("page loaded: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

type summarizeRequest struct {
	Content        string `json:"content"`
	TargetLanguage string `json:"target_language"`
	PageURL        string `json:"page_url"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if s.summarizer == nil {
		writeError(w, http.StatusNotImplemented, "summarizer is not configured")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.TargetLanguage == "" {
		writeError(w, http.StatusBadRequest, "target_language is required")
		return
	}

	summary := s.summarizer.Summarize(r.Context(), req.Content, req.TargetLanguage, req.PageURL)
	writeJSON(w, http.StatusOK, summary)
}
