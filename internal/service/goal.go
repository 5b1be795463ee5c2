package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yarukoto/yarukoto/internal/editbuffer"
	"github.com/yarukoto/yarukoto/internal/model"
	"github.com/yarukoto/yarukoto/internal/period"
	"github.com/yarukoto/yarukoto/internal/realtime"
	"github.com/yarukoto/yarukoto/internal/repository"
	"github.com/yarukoto/yarukoto/internal/validation"
)

var (
	ErrInvalidTimeframe     = errors.New("invalid timeframe")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrCustomDateRequired   = errors.New("custom timeframe requires a due date")
	ErrCustomDateNotAllowed = errors.New("due date only allowed with custom timeframe")
	ErrWrongScope           = errors.New("operation does not apply to this goal's scope")
)

const suggestTimeout = 30 * time.Second

// GoalService owns goal CRUD for both scopes. Mutations publish the full
// re-sorted collection snapshot to the realtime hub, and step edits go
// through the debounced write-behind registry rather than straight to the
// repository.
type GoalService struct {
	goals   repository.GoalRepository
	years   repository.YearRepository
	suggest *SuggestService
	hub     *realtime.Hub
	steps   *editbuffer.Registry[model.Steps]
}

func NewGoalService(
	goals repository.GoalRepository,
	years repository.YearRepository,
	suggest *SuggestService,
	hub *realtime.Hub,
	steps *editbuffer.Registry[model.Steps],
) *GoalService {
	return &GoalService{
		goals:   goals,
		years:   years,
		suggest: suggest,
		hub:     hub,
		steps:   steps,
	}
}

// TodosCollection is the realtime topic collection for timeframe goals.
const TodosCollection = "todos"

// YearItemsCollection names the realtime topic collection for one year page.
func YearItemsCollection(year int) string {
	return fmt.Sprintf("years/%d/items", year)
}

func stepsKey(goalID string) string {
	return goalID + "/steps"
}

// CreateTimeframeGoal adds a goal with a rolling deadline. A custom
// timeframe must carry a due date and no other timeframe may.
func (s *GoalService) CreateTimeframeGoal(userID, title string, timeframe model.Timeframe, customDueDate *string) (*model.Goal, error) {
	err := validation.ValidateTitle(title)
	if err != nil {
		return nil, err
	}
	if !timeframe.Valid() {
		return nil, ErrInvalidTimeframe
	}
	if timeframe == model.TimeframeCustom {
		if customDueDate == nil {
			return nil, ErrCustomDateRequired
		}
		err = validation.ValidateDate(*customDueDate)
		if err != nil {
			return nil, err
		}
	} else if customDueDate != nil {
		return nil, ErrCustomDateNotAllowed
	}

	now := time.Now()
	goal := &model.Goal{
		ID:            uuid.New().String(),
		UserID:        userID,
		Scope:         model.ScopeTimeframe,
		Title:         title,
		Timeframe:     &timeframe,
		CustomDueDate: customDueDate,
		Status:        model.StatusNotStarted,
		Steps:         model.Steps{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.goals.Create(goal)
	if err != nil {
		return nil, err
	}

	s.publishTimeframe(userID)
	s.autoSuggest(goal)
	return goal, nil
}

// CreateYearGoal adds an item to a year page, creating the year container
// first if this is its first item.
func (s *GoalService) CreateYearGoal(userID string, year int, title string, category model.Category, targetMonth *int) (*model.Goal, error) {
	err := validation.ValidateTitle(title)
	if err != nil {
		return nil, err
	}
	err = validation.ValidateYear(year)
	if err != nil {
		return nil, err
	}
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}
	if targetMonth != nil {
		err = validation.ValidateTargetMonth(*targetMonth)
		if err != nil {
			return nil, err
		}
	}

	_, err = s.years.Upsert(userID, year)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	goal := &model.Goal{
		ID:          uuid.New().String(),
		UserID:      userID,
		Scope:       model.ScopeYear,
		Title:       title,
		Year:        &year,
		Category:    &category,
		TargetMonth: targetMonth,
		Status:      model.StatusNotStarted,
		Steps:       model.Steps{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.goals.Create(goal)
	if err != nil {
		return nil, err
	}

	s.publishYearItems(userID, year)
	s.autoSuggest(goal)
	return goal, nil
}

func (s *GoalService) ByID(userID, goalID string) (*model.Goal, error) {
	goal, err := s.goals.ByID(userID, goalID)
	if err != nil {
		return nil, err
	}
	s.overlaySteps(goal)
	return goal, nil
}

// TimeframeGoals returns the flat list ordered by deadline pressure:
// active before completed, least remaining time first, undated newest
// first. Pending step edits overlay the committed rows.
func (s *GoalService) TimeframeGoals(userID string, now time.Time) ([]*model.Goal, error) {
	goals, err := s.goals.TimeframeGoals(userID)
	if err != nil {
		return nil, err
	}

	for _, g := range goals {
		s.overlaySteps(g)
	}
	sort.SliceStable(goals, func(i, j int) bool {
		return period.Compare(goals[i], goals[j], now) < 0
	})
	return goals, nil
}

// YearGoals returns one year page's items, target month ascending with
// unscheduled items first among themselves, completed items last.
func (s *GoalService) YearGoals(userID string, year int) ([]*model.Goal, error) {
	goals, err := s.goals.YearGoals(userID, year)
	if err != nil {
		return nil, err
	}

	for _, g := range goals {
		s.overlaySteps(g)
	}
	sort.SliceStable(goals, func(i, j int) bool {
		return period.CompareByMonth(goals[i], goals[j]) < 0
	})
	return goals, nil
}

// AllGoals returns everything the user owns, for export.
func (s *GoalService) AllGoals(userID string) ([]*model.Goal, error) {
	goals, err := s.goals.AllGoals(userID)
	if err != nil {
		return nil, err
	}
	for _, g := range goals {
		s.overlaySteps(g)
	}
	return goals, nil
}

// Update applies a partial update. Only keys present in the patch change;
// the timeframe/due-date pairing invariant is enforced against the merged
// result, not the patch alone.
func (s *GoalService) Update(userID, goalID string, patch repository.GoalPatch) (*model.Goal, error) {
	goal, err := s.goals.ByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	err = validatePatch(goal, &patch)
	if err != nil {
		return nil, err
	}

	err = s.goals.Update(userID, goalID, patch)
	if err != nil {
		return nil, err
	}

	s.publishFor(goal)
	return s.ByID(userID, goalID)
}

func validatePatch(goal *model.Goal, patch *repository.GoalPatch) error {
	if patch.Title != nil {
		err := validation.ValidateTitle(*patch.Title)
		if err != nil {
			return err
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return ErrInvalidStatus
	}

	switch goal.Scope {
	case model.ScopeTimeframe:
		if patch.Category != nil || patch.TargetMonth != nil {
			return ErrWrongScope
		}

		timeframe := goal.Timeframe
		if patch.Timeframe != nil {
			if !patch.Timeframe.Valid() {
				return ErrInvalidTimeframe
			}
			timeframe = patch.Timeframe
		}

		if patch.CustomDueDate != nil {
			err := validation.ValidateDate(*patch.CustomDueDate)
			if err != nil {
				return err
			}
		}

		if timeframe != nil && *timeframe == model.TimeframeCustom {
			hasDate := goal.CustomDueDate != nil || patch.CustomDueDate != nil
			if !hasDate || patch.ClearCustomDueDate {
				return ErrCustomDateRequired
			}
		} else {
			if patch.CustomDueDate != nil {
				return ErrCustomDateNotAllowed
			}
			// Leaving the custom timeframe drops its date.
			if patch.Timeframe != nil && goal.CustomDueDate != nil {
				patch.ClearCustomDueDate = true
			}
		}
	case model.ScopeYear:
		if patch.Timeframe != nil || patch.CustomDueDate != nil || patch.ClearCustomDueDate {
			return ErrWrongScope
		}
		if patch.Category != nil && !patch.Category.Valid() {
			return ErrInvalidCategory
		}
		if patch.TargetMonth != nil {
			err := validation.ValidateTargetMonth(*patch.TargetMonth)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// SetSteps records a step-list edit. The write is debounced: rapid edits to
// the same goal coalesce into one repository write, and reads meanwhile see
// the local value.
func (s *GoalService) SetSteps(userID, goalID string, steps model.Steps) error {
	goal, err := s.goals.ByID(userID, goalID)
	if err != nil {
		return err
	}
	b := s.steps.Buffer(stepsKey(goalID), goal.Steps, func(v model.Steps) error {
		err := s.goals.UpdateSteps(userID, goalID, v)
		if err != nil {
			return err
		}
		s.publishFor(goal)
		return nil
	})
	b.Set(steps)

	s.publishFor(goal)
	return nil
}

// Delete removes the goal and drops any pending step edit for it.
func (s *GoalService) Delete(userID, goalID string) error {
	goal, err := s.goals.ByID(userID, goalID)
	if err != nil {
		return err
	}

	s.steps.Discard(stepsKey(goalID))
	err = s.goals.Delete(userID, goalID)
	if err != nil {
		return err
	}

	s.publishFor(goal)
	return nil
}

// CarryOver copies an unfinished year item into the next year's page. The
// copy starts fresh: steps keep their text but lose completion, status
// resets, and suggested actions are cleared. The source is untouched.
func (s *GoalService) CarryOver(userID, goalID string) (*model.Goal, error) {
	source, err := s.goals.ByID(userID, goalID)
	if err != nil {
		return nil, err
	}
	if source.Scope != model.ScopeYear || source.Year == nil {
		return nil, ErrWrongScope
	}
	s.overlaySteps(source)

	nextYear := *source.Year + 1
	_, err = s.years.Upsert(userID, nextYear)
	if err != nil {
		return nil, err
	}

	steps := make(model.Steps, len(source.Steps))
	for i, step := range source.Steps {
		steps[i] = model.Step{
			ID:      uuid.New().String(),
			Text:    step.Text,
			DueDate: nil,
		}
	}

	now := time.Now()
	goal := &model.Goal{
		ID:          uuid.New().String(),
		UserID:      userID,
		Scope:       model.ScopeYear,
		Title:       source.Title,
		Year:        &nextYear,
		Category:    source.Category,
		TargetMonth: source.TargetMonth,
		Status:      model.StatusNotStarted,
		Steps:       steps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.goals.Create(goal)
	if err != nil {
		return nil, err
	}

	s.publishYearItems(userID, nextYear)
	return goal, nil
}

// RequestSuggestions kicks off an asynchronous next-action request for the
// goal. A request already in flight for the same goal is left alone; other
// goals' requests are unaffected either way.
func (s *GoalService) RequestSuggestions(userID, goalID string) error {
	if !s.suggest.Enabled() {
		return ErrSuggestionsDisabled
	}

	goal, err := s.goals.ByID(userID, goalID)
	if err != nil {
		return err
	}

	if !s.suggest.Begin(goalID) {
		return ErrSuggestionAlreadyActive
	}
	go s.runSuggest(goal)
	return nil
}

// autoSuggest requests next actions for a freshly created goal, once. The
// result lands through the store like any other write, so failures leave
// the goal without suggestions rather than failing the creation.
func (s *GoalService) autoSuggest(goal *model.Goal) {
	if !s.suggest.Enabled() {
		return
	}
	if !s.suggest.Begin(goal.ID) {
		return
	}
	go s.runSuggest(goal)
}

func (s *GoalService) runSuggest(goal *model.Goal) {
	defer s.suggest.End(goal.ID)

	ctx, cancel := context.WithTimeout(context.Background(), suggestTimeout)
	defer cancel()

	actions, err := s.suggest.Suggest(ctx, goal.Title, suggestContext(goal))
	if err != nil {
		slog.Error("suggestion request failed", "goal", goal.ID, "error", err)
		return
	}

	err = s.goals.SetNextActions(goal.UserID, goal.ID, model.StringList(actions))
	if err != nil {
		slog.Error("storing suggestions failed", "goal", goal.ID, "error", err)
		return
	}
	s.publishFor(goal)
}

func suggestContext(goal *model.Goal) string {
	switch {
	case goal.Scope == model.ScopeYear && goal.Year != nil && goal.TargetMonth != nil:
		return fmt.Sprintf("This is a goal for %d, target month %d.", *goal.Year, *goal.TargetMonth)
	case goal.Scope == model.ScopeYear && goal.Year != nil:
		return fmt.Sprintf("This is a goal for the year %d.", *goal.Year)
	case goal.Timeframe != nil && *goal.Timeframe == model.TimeframeCustom && goal.CustomDueDate != nil:
		return fmt.Sprintf("The goal is due by %s.", *goal.CustomDueDate)
	case goal.Timeframe != nil:
		return fmt.Sprintf("The goal period is: %s.", *goal.Timeframe)
	default:
		return "The goal has no deadline."
	}
}

func (s *GoalService) overlaySteps(goal *model.Goal) {
	goal.Steps = s.steps.Reconcile(stepsKey(goal.ID), goal.Steps)
}

func (s *GoalService) publishFor(goal *model.Goal) {
	if goal.Scope == model.ScopeYear && goal.Year != nil {
		s.publishYearItems(goal.UserID, *goal.Year)
		return
	}
	s.publishTimeframe(goal.UserID)
}

func (s *GoalService) publishTimeframe(userID string) {
	goals, err := s.TimeframeGoals(userID, time.Now())
	if err != nil {
		slog.Error("snapshot publish failed", "collection", TodosCollection, "error", err)
		return
	}
	s.publishSnapshot(userID, TodosCollection, goals)
}

func (s *GoalService) publishYearItems(userID string, year int) {
	goals, err := s.YearGoals(userID, year)
	if err != nil {
		slog.Error("snapshot publish failed", "collection", YearItemsCollection(year), "error", err)
		return
	}
	s.publishSnapshot(userID, YearItemsCollection(year), goals)
}

func (s *GoalService) publishSnapshot(userID, collection string, goals []*model.Goal) {
	if s.hub == nil {
		return
	}
	b, err := json.Marshal(goals)
	if err != nil {
		slog.Error("snapshot encode failed", "collection", collection, "error", err)
		return
	}
	s.hub.Publish(realtime.Topic(userID, collection), b)
}
