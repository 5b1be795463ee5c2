package service

import (
	"strings"
	"testing"
	"time"

	"github.com/yarukoto/yarukoto/internal/editbuffer"
	"github.com/yarukoto/yarukoto/internal/model"
	"github.com/yarukoto/yarukoto/internal/realtime"
	"github.com/yarukoto/yarukoto/internal/repository"
)

func newTestYearService() (*YearService, *GoalService, *fakeYearRepo) {
	goals := newFakeGoalRepo()
	years := newFakeYearRepo()
	suggest := NewSuggestService("", "test-model", "")
	hub := realtime.NewHub()
	steps := editbuffer.NewRegistry[model.Steps](testFlushDelay)
	memos := editbuffer.NewRegistry[string](testFlushDelay)

	goalSvc := NewGoalService(goals, years, suggest, hub, steps)
	yearSvc := NewYearService(years, goals, hub, memos)
	return yearSvc, goalSvc, years
}

func TestUpsert_Idempotent(t *testing.T) {
	svc, _, _ := newTestYearService()

	first, err := svc.Upsert("u1", 2026)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second, err := svc.Upsert("u1", 2026)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second upsert created a new container: %s != %s", first.ID, second.ID)
	}
}

func TestUpsert_RejectsImplausibleYear(t *testing.T) {
	svc, _, _ := newTestYearService()

	_, err := svc.Upsert("u1", 99)
	if err == nil {
		t.Error("year 99 should be rejected")
	}
}

func TestSetMemo_DebouncedAndVisible(t *testing.T) {
	svc, _, years := newTestYearService()

	_, err := svc.Upsert("u1", 2026)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	err = svc.SetMemo("u1", 2026, "A good y")
	if err != nil {
		t.Fatalf("SetMemo: %v", err)
	}
	err = svc.SetMemo("u1", 2026, "A good year.")
	if err != nil {
		t.Fatalf("SetMemo: %v", err)
	}

	// Reads see the edit before the flush.
	y, err := svc.ByYear("u1", 2026)
	if err != nil {
		t.Fatalf("ByYear: %v", err)
	}
	if y.RetrospectiveMemo != "A good year." {
		t.Errorf("memo = %q, want pending edit", y.RetrospectiveMemo)
	}

	waitFor(t, func() bool {
		y, err := years.ByYear("u1", 2026)
		return err == nil && y.RetrospectiveMemo == "A good year."
	}, "memo flush")
}

func TestSetMemo_UnknownYear(t *testing.T) {
	svc, _, _ := newTestYearService()

	err := svc.SetMemo("u1", 2026, "nothing here")
	if err != repository.ErrYearNotFound {
		t.Errorf("err = %v, want ErrYearNotFound", err)
	}
}

func TestRetrospective_Counts(t *testing.T) {
	yearSvc, goalSvc, _ := newTestYearService()

	a, err := goalSvc.CreateYearGoal("u1", 2026, "hike more", model.CategoryHealth, nil)
	if err != nil {
		t.Fatalf("CreateYearGoal: %v", err)
	}
	_, err = goalSvc.CreateYearGoal("u1", 2026, "learn spanish", model.CategorySkill, nil)
	if err != nil {
		t.Fatalf("CreateYearGoal: %v", err)
	}
	_, err = goalSvc.CreateYearGoal("u1", 2026, "call home weekly", model.CategoryRelationships, nil)
	if err != nil {
		t.Fatalf("CreateYearGoal: %v", err)
	}
	_, err = goalSvc.Update("u1", a.ID, repository.GoalPatch{Status: ptr(model.StatusCompleted)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	err = yearSvc.SetMemo("u1", 2026, "Solid progress.")
	if err != nil {
		t.Fatalf("SetMemo: %v", err)
	}
	time.Sleep(2 * testFlushDelay)

	summary, err := yearSvc.Retrospective("u1", 2026)
	if err != nil {
		t.Fatalf("Retrospective: %v", err)
	}

	if summary.Total != 3 || summary.Completed != 1 {
		t.Errorf("total/completed = %d/%d, want 3/1", summary.Total, summary.Completed)
	}
	if summary.Percent != 33 {
		t.Errorf("percent = %d, want 33", summary.Percent)
	}
	if summary.Memo != "Solid progress." {
		t.Errorf("memo = %q", summary.Memo)
	}
	if len(summary.Categories) != 3 {
		t.Fatalf("categories = %v, want 3 entries", summary.Categories)
	}
	for _, c := range summary.Categories {
		if c.Category == model.CategoryHealth && c.Completed != 1 {
			t.Errorf("health completed = %d, want 1", c.Completed)
		}
	}
}

func TestRenderRetrospectiveHTML(t *testing.T) {
	yearSvc, goalSvc, _ := newTestYearService()

	_, err := goalSvc.CreateYearGoal("u1", 2026, "read 12 books", model.CategoryHobby, nil)
	if err != nil {
		t.Fatalf("CreateYearGoal: %v", err)
	}
	err = yearSvc.SetMemo("u1", 2026, "## Highlights\n\nFinished **eight** books.")
	if err != nil {
		t.Fatalf("SetMemo: %v", err)
	}
	time.Sleep(2 * testFlushDelay)

	html, err := yearSvc.RenderRetrospectiveHTML("u1", 2026)
	if err != nil {
		t.Fatalf("RenderRetrospectiveHTML: %v", err)
	}

	page := string(html)
	for _, want := range []string{"<h1>2026</h1>", "<h2>Highlights</h2>", "<strong>eight</strong>", "hobby: 0/1"} {
		if !strings.Contains(page, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}
