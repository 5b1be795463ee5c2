package repository

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yarukoto/yarukoto/internal/model"
)

func TestBuildGoalUpdate_OnlyPresentKeys(t *testing.T) {
	title := "write more tests"
	status := model.StatusInProgress

	query, args, err := buildGoalUpdate(GoalPatch{Title: &title, Status: &status}, time.Now())
	if err != nil {
		t.Fatalf("buildGoalUpdate: %v", err)
	}

	for _, column := range []string{"title", "status", "updated_at"} {
		if !strings.Contains(query, column+" = $") {
			t.Errorf("query missing %s: %s", column, query)
		}
	}
	for _, column := range []string{"timeframe", "custom_due_date", "category", "target_month", "steps"} {
		if strings.Contains(query, column) {
			t.Errorf("absent key %s leaked into query: %s", column, query)
		}
	}

	// title, status, updated_at
	if len(args) != 3 {
		t.Errorf("args = %d, want 3", len(args))
	}
}

func TestBuildGoalUpdate_ExplicitClearIsNotAbsence(t *testing.T) {
	timeframe := model.TimeframeWeek

	query, _, err := buildGoalUpdate(GoalPatch{Timeframe: &timeframe, ClearCustomDueDate: true}, time.Now())
	if err != nil {
		t.Fatalf("buildGoalUpdate: %v", err)
	}

	if !strings.Contains(query, "custom_due_date = NULL") {
		t.Errorf("explicit clear should write NULL: %s", query)
	}
}

func TestBuildGoalUpdate_EmptyPatch(t *testing.T) {
	_, _, err := buildGoalUpdate(GoalPatch{}, time.Now())
	if !errors.Is(err, ErrEmptyPatch) {
		t.Errorf("err = %v, want ErrEmptyPatch", err)
	}
}
