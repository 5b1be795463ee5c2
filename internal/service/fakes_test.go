package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yarukoto/yarukoto/internal/model"
	"github.com/yarukoto/yarukoto/internal/repository"
)

// In-memory repositories for exercising service flows without a database.

type fakeGoalRepo struct {
	mu         sync.Mutex
	goals      map[string]*model.Goal
	stepWrites int
}

func newFakeGoalRepo() *fakeGoalRepo {
	return &fakeGoalRepo{goals: make(map[string]*model.Goal)}
}

func (r *fakeGoalRepo) Create(goal *model.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := *goal
	r.goals[g.ID] = &g
	return nil
}

func (r *fakeGoalRepo) ByID(userID, goalID string) (*model.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[goalID]
	if !ok || g.UserID != userID {
		return nil, repository.ErrGoalNotFound
	}
	dup := *g
	return &dup, nil
}

func (r *fakeGoalRepo) TimeframeGoals(userID string) ([]*model.Goal, error) {
	return r.list(func(g *model.Goal) bool {
		return g.UserID == userID && g.Scope == model.ScopeTimeframe
	})
}

func (r *fakeGoalRepo) YearGoals(userID string, year int) ([]*model.Goal, error) {
	return r.list(func(g *model.Goal) bool {
		return g.UserID == userID && g.Scope == model.ScopeYear && g.Year != nil && *g.Year == year
	})
}

func (r *fakeGoalRepo) AllGoals(userID string) ([]*model.Goal, error) {
	return r.list(func(g *model.Goal) bool {
		return g.UserID == userID
	})
}

func (r *fakeGoalRepo) list(keep func(*model.Goal) bool) ([]*model.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Goal
	for _, g := range r.goals {
		if keep(g) {
			dup := *g
			out = append(out, &dup)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeGoalRepo) Update(userID, goalID string, patch repository.GoalPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[goalID]
	if !ok || g.UserID != userID {
		return repository.ErrGoalNotFound
	}
	if patch.Title != nil {
		g.Title = *patch.Title
	}
	if patch.Timeframe != nil {
		g.Timeframe = patch.Timeframe
	}
	if patch.CustomDueDate != nil {
		g.CustomDueDate = patch.CustomDueDate
	} else if patch.ClearCustomDueDate {
		g.CustomDueDate = nil
	}
	if patch.Category != nil {
		g.Category = patch.Category
	}
	if patch.TargetMonth != nil {
		g.TargetMonth = patch.TargetMonth
	}
	if patch.Status != nil {
		g.Status = *patch.Status
	}
	if patch.Steps != nil {
		g.Steps = *patch.Steps
	}
	g.UpdatedAt = time.Now()
	return nil
}

func (r *fakeGoalRepo) UpdateSteps(userID, goalID string, steps model.Steps) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[goalID]
	if !ok || g.UserID != userID {
		return repository.ErrGoalNotFound
	}
	g.Steps = steps
	g.UpdatedAt = time.Now()
	r.stepWrites++
	return nil
}

func (r *fakeGoalRepo) SetNextActions(userID, goalID string, actions model.StringList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[goalID]
	if !ok || g.UserID != userID {
		return repository.ErrGoalNotFound
	}
	g.NextActions = actions
	g.UpdatedAt = time.Now()
	return nil
}

func (r *fakeGoalRepo) Delete(userID, goalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[goalID]
	if !ok || g.UserID != userID {
		return repository.ErrGoalNotFound
	}
	delete(r.goals, goalID)
	return nil
}

func (r *fakeGoalRepo) stepWriteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stepWrites
}

type fakeYearRepo struct {
	mu    sync.Mutex
	years map[string]*model.Year
}

func newFakeYearRepo() *fakeYearRepo {
	return &fakeYearRepo{years: make(map[string]*model.Year)}
}

func yearMapKey(userID string, year int) string {
	return fmt.Sprintf("%s/%d", userID, year)
}

func (r *fakeYearRepo) Upsert(userID string, year int) (*model.Year, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := yearMapKey(userID, year)
	y, ok := r.years[key]
	if !ok {
		y = &model.Year{
			ID:        uuid.New().String(),
			UserID:    userID,
			Year:      year,
			CreatedAt: time.Now(),
		}
		r.years[key] = y
	}
	dup := *y
	return &dup, nil
}

func (r *fakeYearRepo) ByYear(userID string, year int) (*model.Year, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	y, ok := r.years[yearMapKey(userID, year)]
	if !ok {
		return nil, repository.ErrYearNotFound
	}
	dup := *y
	return &dup, nil
}

func (r *fakeYearRepo) Years(userID string) ([]*model.Year, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Year
	for _, y := range r.years {
		if y.UserID == userID {
			dup := *y
			out = append(out, &dup)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Year > out[j].Year
	})
	return out, nil
}

func (r *fakeYearRepo) UpdateMemo(userID string, year int, memo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	y, ok := r.years[yearMapKey(userID, year)]
	if !ok {
		return repository.ErrYearNotFound
	}
	y.RetrospectiveMemo = memo
	return nil
}
