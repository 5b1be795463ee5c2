package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/yarukoto/yarukoto/internal/editbuffer"
	"github.com/yarukoto/yarukoto/internal/model"
	"github.com/yarukoto/yarukoto/internal/realtime"
	"github.com/yarukoto/yarukoto/internal/repository"
	"github.com/yarukoto/yarukoto/internal/validation"
)

// YearsCollection is the realtime topic collection for the year list.
const YearsCollection = "years"

// YearService manages year pages: the container rows, the free-form
// retrospective memo (debounced like step edits), and the end-of-year
// summary built from the page's items.
type YearService struct {
	years    repository.YearRepository
	goals    repository.GoalRepository
	hub      *realtime.Hub
	memos    *editbuffer.Registry[string]
	markdown goldmark.Markdown
}

func NewYearService(
	years repository.YearRepository,
	goals repository.GoalRepository,
	hub *realtime.Hub,
	memos *editbuffer.Registry[string],
) *YearService {
	return &YearService{
		years: years,
		goals: goals,
		hub:   hub,
		memos: memos,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

func memoKey(userID string, year int) string {
	return fmt.Sprintf("%s/years/%d/memo", userID, year)
}

// Upsert creates the year page if needed. Creating the same year twice
// returns the existing page.
func (s *YearService) Upsert(userID string, year int) (*model.Year, error) {
	err := validation.ValidateYear(year)
	if err != nil {
		return nil, err
	}

	y, err := s.years.Upsert(userID, year)
	if err != nil {
		return nil, err
	}

	s.publishYears(userID)
	s.overlayMemo(y)
	return y, nil
}

func (s *YearService) ByYear(userID string, year int) (*model.Year, error) {
	y, err := s.years.ByYear(userID, year)
	if err != nil {
		return nil, err
	}
	s.overlayMemo(y)
	return y, nil
}

// Years lists the user's year pages, newest first.
func (s *YearService) Years(userID string) ([]*model.Year, error) {
	years, err := s.years.Years(userID)
	if err != nil {
		return nil, err
	}
	for _, y := range years {
		s.overlayMemo(y)
	}
	return years, nil
}

// SetMemo records a retrospective memo edit. Debounced the same way step
// edits are: keystrokes coalesce into one write per flush window.
func (s *YearService) SetMemo(userID string, year int, memo string) error {
	y, err := s.years.ByYear(userID, year)
	if err != nil {
		return err
	}

	b := s.memos.Buffer(memoKey(userID, year), y.RetrospectiveMemo, func(v string) error {
		err := s.years.UpdateMemo(userID, year, v)
		if err != nil {
			return err
		}
		s.publishYears(userID)
		return nil
	})
	b.Set(memo)

	s.publishYears(userID)
	return nil
}

// CategoryBreakdown is one category's slice of a year summary.
type CategoryBreakdown struct {
	Category  model.Category `json:"category"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
}

// RetrospectiveSummary is the end-of-year view: completion totals overall
// and per category, plus the memo.
type RetrospectiveSummary struct {
	Year       int                 `json:"year"`
	Total      int                 `json:"total"`
	Completed  int                 `json:"completed"`
	Percent    int                 `json:"percent"`
	Categories []CategoryBreakdown `json:"categories"`
	Memo       string              `json:"memo"`
}

// Retrospective builds the summary for one year page. Categories with no
// items are omitted; the order follows the fixed category list.
func (s *YearService) Retrospective(userID string, year int) (*RetrospectiveSummary, error) {
	y, err := s.ByYear(userID, year)
	if err != nil {
		return nil, err
	}

	goals, err := s.goals.YearGoals(userID, year)
	if err != nil {
		return nil, err
	}

	summary := &RetrospectiveSummary{
		Year: year,
		Memo: y.RetrospectiveMemo,
	}

	counts := make(map[model.Category]*CategoryBreakdown)
	for _, g := range goals {
		summary.Total++
		category := model.CategoryOther
		if g.Category != nil {
			category = *g.Category
		}
		c, ok := counts[category]
		if !ok {
			c = &CategoryBreakdown{Category: category}
			counts[category] = c
		}
		c.Total++
		if g.Completed() {
			summary.Completed++
			c.Completed++
		}
	}
	if summary.Total > 0 {
		summary.Percent = summary.Completed * 100 / summary.Total
	}

	for _, category := range model.Categories {
		c, ok := counts[category]
		if ok {
			summary.Categories = append(summary.Categories, *c)
		}
	}
	return summary, nil
}

// RenderRetrospectiveHTML renders the summary as a standalone HTML page.
// The memo is treated as markdown.
func (s *YearService) RenderRetrospectiveHTML(userID string, year int) ([]byte, error) {
	summary, err := s.Retrospective(userID, year)
	if err != nil {
		return nil, err
	}

	var memo bytes.Buffer
	err = s.markdown.Convert([]byte(summary.Memo), &memo)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>%d retrospective</title></head>\n<body>\n", summary.Year)
	fmt.Fprintf(&buf, "<h1>%d</h1>\n", summary.Year)
	fmt.Fprintf(&buf, "<p>%d of %d completed (%d%%)</p>\n", summary.Completed, summary.Total, summary.Percent)
	if len(summary.Categories) > 0 {
		buf.WriteString("<ul>\n")
		for _, c := range summary.Categories {
			fmt.Fprintf(&buf, "<li>%s: %d/%d</li>\n", html.EscapeString(string(c.Category)), c.Completed, c.Total)
		}
		buf.WriteString("</ul>\n")
	}
	if summary.Memo != "" {
		buf.WriteString("<h2>Retrospective</h2>\n")
		buf.Write(memo.Bytes())
	}
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

func (s *YearService) overlayMemo(y *model.Year) {
	y.RetrospectiveMemo = s.memos.Reconcile(memoKey(y.UserID, y.Year), y.RetrospectiveMemo)
}

func (s *YearService) publishYears(userID string) {
	if s.hub == nil {
		return
	}
	years, err := s.Years(userID)
	if err != nil {
		slog.Error("snapshot publish failed", "collection", YearsCollection, "error", err)
		return
	}
	b, err := json.Marshal(years)
	if err != nil {
		slog.Error("snapshot encode failed", "collection", YearsCollection, "error", err)
		return
	}
	s.hub.Publish(realtime.Topic(userID, YearsCollection), b)
}
