package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/yarukoto/yarukoto/internal/model"
)

var (
	ErrGoalNotFound = errors.New("goal not found")
	ErrEmptyPatch   = errors.New("no fields to update")
)

// GoalPatch is a partial update. Only non-nil fields reach the UPDATE
// statement; absent fields are never written, not even as NULL. Clearing
// the custom due date is an explicit operation, not an absent key.
type GoalPatch struct {
	Title              *string
	Timeframe          *model.Timeframe
	CustomDueDate      *string
	ClearCustomDueDate bool
	Category           *model.Category
	TargetMonth        *int
	Status             *model.Status
	Steps              *model.Steps
}

type GoalRepository interface {
	Create(goal *model.Goal) error
	ByID(userID, goalID string) (*model.Goal, error)
	TimeframeGoals(userID string) ([]*model.Goal, error)
	YearGoals(userID string, year int) ([]*model.Goal, error)
	AllGoals(userID string) ([]*model.Goal, error)
	Update(userID, goalID string, patch GoalPatch) error
	UpdateSteps(userID, goalID string, steps model.Steps) error
	SetNextActions(userID, goalID string, actions model.StringList) error
	Delete(userID, goalID string) error
}

type goalRepository struct {
	db *sqlx.DB
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(goal *model.Goal) error {
	query := `INSERT INTO goals (id, user_id, scope, title, timeframe, custom_due_date, year,
	                             category, target_month, status, steps, next_actions, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(query,
		goal.ID,
		goal.UserID,
		goal.Scope,
		goal.Title,
		goal.Timeframe,
		goal.CustomDueDate,
		goal.Year,
		goal.Category,
		goal.TargetMonth,
		goal.Status,
		goal.Steps,
		goal.NextActions,
		goal.CreatedAt,
		goal.UpdatedAt,
	)

	return err
}

func (r *goalRepository) ByID(userID, goalID string) (*model.Goal, error) {
	goal := &model.Goal{}
	query := `SELECT * FROM goals WHERE id = $1 AND user_id = $2`

	err := r.db.Get(goal, query, goalID, userID)
	if err == sql.ErrNoRows {
		return nil, ErrGoalNotFound
	}

	return goal, err
}

func (r *goalRepository) TimeframeGoals(userID string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals WHERE user_id = $1 AND scope = $2 ORDER BY created_at DESC`

	err := r.db.Select(&goals, query, userID, model.ScopeTimeframe)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) YearGoals(userID string, year int) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals WHERE user_id = $1 AND scope = $2 AND year = $3 ORDER BY created_at ASC`

	err := r.db.Select(&goals, query, userID, model.ScopeYear, year)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) AllGoals(userID string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&goals, query, userID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

// buildGoalUpdate renders the SET clause from the present keys of the patch.
func buildGoalUpdate(patch GoalPatch, now time.Time) (string, []any, error) {
	var sets []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Timeframe != nil {
		add("timeframe", *patch.Timeframe)
	}
	if patch.CustomDueDate != nil {
		add("custom_due_date", *patch.CustomDueDate)
	} else if patch.ClearCustomDueDate {
		sets = append(sets, "custom_due_date = NULL")
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.TargetMonth != nil {
		add("target_month", *patch.TargetMonth)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Steps != nil {
		add("steps", *patch.Steps)
	}

	if len(sets) == 0 {
		return "", nil, ErrEmptyPatch
	}

	add("updated_at", now)

	query := fmt.Sprintf(`UPDATE goals SET %s WHERE id = $%d AND user_id = $%d`,
		strings.Join(sets, ", "), len(args)+1, len(args)+2)
	return query, args, nil
}

func (r *goalRepository) Update(userID, goalID string, patch GoalPatch) error {
	query, args, err := buildGoalUpdate(patch, time.Now())
	if err != nil {
		return err
	}
	args = append(args, goalID, userID)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}

	return requireRow(result, ErrGoalNotFound)
}

func (r *goalRepository) UpdateSteps(userID, goalID string, steps model.Steps) error {
	query := `UPDATE goals SET steps = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`

	result, err := r.db.Exec(query, steps, time.Now(), goalID, userID)
	if err != nil {
		return err
	}

	return requireRow(result, ErrGoalNotFound)
}

func (r *goalRepository) SetNextActions(userID, goalID string, actions model.StringList) error {
	query := `UPDATE goals SET next_actions = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`

	result, err := r.db.Exec(query, actions, time.Now(), goalID, userID)
	if err != nil {
		return err
	}

	return requireRow(result, ErrGoalNotFound)
}

func (r *goalRepository) Delete(userID, goalID string) error {
	query := `DELETE FROM goals WHERE id = $1 AND user_id = $2`
	result, err := r.db.Exec(query, goalID, userID)

	if err != nil {
		return err
	}

	return requireRow(result, ErrGoalNotFound)
}

func requireRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return notFound
	}

	return nil
}
