package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/yarukoto/yarukoto/internal/service"
)

type SuggestHandler struct {
	suggestService *service.SuggestService
}

func NewSuggestHandler(suggestService *service.SuggestService) *SuggestHandler {
	return &SuggestHandler{
		suggestService: suggestService,
	}
}

// Suggest proxies one goal to the model and returns next actions
// synchronously. Accepts either the flat-list shape (title + period) or the
// year-page shape (text + year + targetMonth).
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string  `json:"title"`
		Text        string  `json:"text"`
		Period      *string `json:"period"`
		Year        *int    `json:"year"`
		TargetMonth *int    `json:"targetMonth"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	title := req.Title
	if title == "" {
		title = req.Text
	}
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Period == nil && req.Year == nil {
		writeError(w, http.StatusBadRequest, "period or year is required")
		return
	}

	if !h.suggestService.Enabled() {
		writeError(w, http.StatusInternalServerError, "suggestion api key not configured")
		return
	}

	var hint string
	switch {
	case req.Year != nil && req.TargetMonth != nil:
		hint = fmt.Sprintf("This is a goal for %d, target month %d.", *req.Year, *req.TargetMonth)
	case req.Year != nil:
		hint = fmt.Sprintf("This is a goal for the year %d.", *req.Year)
	default:
		hint = fmt.Sprintf("The goal period is: %s.", *req.Period)
	}

	actions, err := h.suggestService.Suggest(r.Context(), title, hint)
	if err != nil {
		if errors.Is(err, service.ErrUnparseableSuggestions) {
			writeError(w, http.StatusBadGateway, "could not parse suggestions from model response")
			return
		}
		slog.Error("suggestion request failed", "error", err)
		writeError(w, http.StatusBadGateway, "suggestion request failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"actions": actions})
}
