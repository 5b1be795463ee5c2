package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yarukoto/yarukoto/internal/ctxkeys"
	"github.com/yarukoto/yarukoto/internal/model"
	"github.com/yarukoto/yarukoto/internal/repository"
	"github.com/yarukoto/yarukoto/internal/service"
	"github.com/yarukoto/yarukoto/internal/validation"
)

type TodoHandler struct {
	goalService *service.GoalService
}

func NewTodoHandler(goalService *service.GoalService) *TodoHandler {
	return &TodoHandler{
		goalService: goalService,
	}
}

// List returns the flat list sorted by deadline pressure. An optional
// ?period= query narrows to one timeframe.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	goals, err := h.goalService.TimeframeGoals(user.ID, time.Now())
	if err != nil {
		slog.Error("failed to list todos", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to load todos")
		return
	}

	period := r.URL.Query().Get("period")
	if period != "" {
		filtered := goals[:0]
		for _, g := range goals {
			if g.Timeframe != nil && string(*g.Timeframe) == period {
				filtered = append(filtered, g)
			}
		}
		goals = filtered
	}
	if goals == nil {
		goals = []*model.Goal{}
	}

	writeJSON(w, http.StatusOK, goals)
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req struct {
		Title         string  `json:"title"`
		Timeframe     string  `json:"timeframe"`
		CustomDueDate *string `json:"customDueDate"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := h.goalService.CreateTimeframeGoal(user.ID, req.Title, model.Timeframe(req.Timeframe), req.CustomDueDate)
	if err != nil {
		writeGoalError(w, err, user.ID, "")
		return
	}

	writeJSON(w, http.StatusCreated, goal)
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	goal, err := h.goalService.ByID(user.ID, goalID)
	if err != nil {
		if errors.Is(err, repository.ErrGoalNotFound) {
			writeError(w, http.StatusNotFound, "todo not found")
			return
		}
		slog.Error("failed to get todo", "error", err, "user_id", user.ID, "goal_id", goalID)
		writeError(w, http.StatusInternalServerError, "failed to load todo")
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

// patchRequest mirrors GoalPatch on the wire: absent keys never touch the
// stored row, and clearing the custom due date is an explicit flag.
type patchRequest struct {
	Title              *string          `json:"title"`
	Timeframe          *model.Timeframe `json:"timeframe"`
	CustomDueDate      *string          `json:"customDueDate"`
	ClearCustomDueDate bool             `json:"clearCustomDueDate"`
	Category           *model.Category  `json:"category"`
	TargetMonth        *int             `json:"targetMonth"`
	Status             *model.Status    `json:"status"`
}

func (req patchRequest) patch() repository.GoalPatch {
	return repository.GoalPatch{
		Title:              req.Title,
		Timeframe:          req.Timeframe,
		CustomDueDate:      req.CustomDueDate,
		ClearCustomDueDate: req.ClearCustomDueDate,
		Category:           req.Category,
		TargetMonth:        req.TargetMonth,
		Status:             req.Status,
	}
}

func (h *TodoHandler) Patch(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	var req patchRequest
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := h.goalService.Update(user.ID, goalID, req.patch())
	if err != nil {
		writeGoalError(w, err, user.ID, goalID)
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

// PatchSteps replaces the step list. The write is debounced server-side, so
// the response reflects the buffered value, not necessarily a committed row.
func (h *TodoHandler) PatchSteps(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	var req struct {
		Steps model.Steps `json:"steps"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Steps == nil {
		req.Steps = model.Steps{}
	}

	err = h.goalService.SetSteps(user.ID, goalID, req.Steps)
	if err != nil {
		writeGoalError(w, err, user.ID, goalID)
		return
	}

	goal, err := h.goalService.ByID(user.ID, goalID)
	if err != nil {
		writeGoalError(w, err, user.ID, goalID)
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	err := h.goalService.Delete(user.ID, goalID)
	if err != nil {
		writeGoalError(w, err, user.ID, goalID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Suggest kicks off an asynchronous next-action request; the result arrives
// through the change feed. 202 either way, including when a request is
// already in flight.
func (h *TodoHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	err := h.goalService.RequestSuggestions(user.ID, goalID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSuggestionAlreadyActive):
			// Already running; the client just waits for the feed.
		case errors.Is(err, service.ErrSuggestionsDisabled):
			writeError(w, http.StatusInternalServerError, "suggestions are not configured")
			return
		default:
			writeGoalError(w, err, user.ID, goalID)
			return
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

// Export downloads every goal the user owns as a JSON attachment.
func (h *TodoHandler) Export(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	goals, err := h.goalService.AllGoals(user.ID)
	if err != nil {
		slog.Error("failed to export goals", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to export goals")
		return
	}
	if goals == nil {
		goals = []*model.Goal{}
	}

	w.Header().Set("Content-Disposition", `attachment; filename="goals.json"`)
	writeJSON(w, http.StatusOK, goals)
}

func writeGoalError(w http.ResponseWriter, err error, userID, goalID string) {
	var verr *validation.Error
	switch {
	case errors.Is(err, repository.ErrGoalNotFound):
		writeError(w, http.StatusNotFound, "todo not found")
	case errors.As(err, &verr),
		errors.Is(err, service.ErrInvalidTimeframe),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrCustomDateRequired),
		errors.Is(err, service.ErrCustomDateNotAllowed),
		errors.Is(err, service.ErrWrongScope),
		errors.Is(err, repository.ErrEmptyPatch):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("todo operation failed", "error", err, "user_id", userID, "goal_id", goalID)
		writeError(w, http.StatusInternalServerError, "operation failed")
	}
}
