package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yarukoto/yarukoto/internal/ctxkeys"
	"github.com/yarukoto/yarukoto/internal/model"
	"github.com/yarukoto/yarukoto/internal/repository"
	"github.com/yarukoto/yarukoto/internal/service"
	"github.com/yarukoto/yarukoto/internal/validation"
)

type YearHandler struct {
	yearService *service.YearService
	goalService *service.GoalService
}

func NewYearHandler(yearService *service.YearService, goalService *service.GoalService) *YearHandler {
	return &YearHandler{
		yearService: yearService,
		goalService: goalService,
	}
}

func yearParam(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("year"))
}

func (h *YearHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	years, err := h.yearService.Years(user.ID)
	if err != nil {
		slog.Error("failed to list years", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to load years")
		return
	}
	if years == nil {
		years = []*model.Year{}
	}

	writeJSON(w, http.StatusOK, years)
}

// Upsert creates the year page on first use. PUT of an existing year
// returns it unchanged, so clients can open a year without checking first.
func (h *YearHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	y, err := h.yearService.Upsert(user.ID, year)
	if err != nil {
		writeYearError(w, err, user.ID, year)
		return
	}

	writeJSON(w, http.StatusOK, y)
}

func (h *YearHandler) PatchMemo(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	var req struct {
		Memo string `json:"memo"`
	}
	err = decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.yearService.SetMemo(user.ID, year, req.Memo)
	if err != nil {
		writeYearError(w, err, user.ID, year)
		return
	}

	y, err := h.yearService.ByYear(user.ID, year)
	if err != nil {
		writeYearError(w, err, user.ID, year)
		return
	}

	writeJSON(w, http.StatusOK, y)
}

// ListItems returns the year page's items in month order, optionally
// narrowed by ?category= and ?status=.
func (h *YearHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	goals, err := h.goalService.YearGoals(user.ID, year)
	if err != nil {
		slog.Error("failed to list year items", "error", err, "user_id", user.ID, "year", year)
		writeError(w, http.StatusInternalServerError, "failed to load items")
		return
	}

	category := r.URL.Query().Get("category")
	status := r.URL.Query().Get("status")
	if category != "" || status != "" {
		filtered := goals[:0]
		for _, g := range goals {
			if category != "" && (g.Category == nil || string(*g.Category) != category) {
				continue
			}
			if status != "" && string(g.Status) != status {
				continue
			}
			filtered = append(filtered, g)
		}
		goals = filtered
	}
	if goals == nil {
		goals = []*model.Goal{}
	}

	writeJSON(w, http.StatusOK, goals)
}

func (h *YearHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	var req struct {
		Title       string `json:"title"`
		Category    string `json:"category"`
		TargetMonth *int   `json:"targetMonth"`
	}
	err = decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := h.goalService.CreateYearGoal(user.ID, year, req.Title, model.Category(req.Category), req.TargetMonth)
	if err != nil {
		writeGoalError(w, err, user.ID, "")
		return
	}

	writeJSON(w, http.StatusCreated, goal)
}

// CarryOver copies an unfinished item into next year's page; the source
// stays where it is.
func (h *YearHandler) CarryOver(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	goal, err := h.goalService.CarryOver(user.ID, goalID)
	if err != nil {
		writeGoalError(w, err, user.ID, goalID)
		return
	}

	writeJSON(w, http.StatusCreated, goal)
}

func (h *YearHandler) Retrospective(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	summary, err := h.yearService.Retrospective(user.ID, year)
	if err != nil {
		writeYearError(w, err, user.ID, year)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ExportRetrospective downloads the retrospective as a rendered HTML page.
func (h *YearHandler) ExportRetrospective(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	page, err := h.yearService.RenderRetrospectiveHTML(user.ID, year)
	if err != nil {
		writeYearError(w, err, user.ID, year)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="retrospective-%d.html"`, year))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(page)
	if err != nil {
		slog.Error("failed to write export", "error", err, "user_id", user.ID, "year", year)
	}
}

func writeYearError(w http.ResponseWriter, err error, userID string, year int) {
	var verr *validation.Error
	switch {
	case errors.Is(err, repository.ErrYearNotFound):
		writeError(w, http.StatusNotFound, "year not found")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("year operation failed", "error", err, "user_id", userID, "year", year)
		writeError(w, http.StatusInternalServerError, "operation failed")
	}
}
