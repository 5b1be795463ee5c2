package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Scope selects which deadline model applies to a goal.
type Scope string

const (
	ScopeTimeframe Scope = "timeframe" // rolling deadline from creation
	ScopeYear      Scope = "year"      // calendar year + optional target month
)

// Timeframe is the deadline bucket for timeframe-scoped goals.
type Timeframe string

const (
	TimeframeWeek      Timeframe = "week"
	TimeframeMonth     Timeframe = "month"
	TimeframeQuarter   Timeframe = "quarter"
	TimeframeHalfYear  Timeframe = "halfYear"
	TimeframeYear      Timeframe = "year"
	TimeframeUnbounded Timeframe = "unbounded"
	TimeframeCustom    Timeframe = "custom"
)

var Timeframes = []Timeframe{
	TimeframeWeek,
	TimeframeMonth,
	TimeframeQuarter,
	TimeframeHalfYear,
	TimeframeYear,
	TimeframeUnbounded,
	TimeframeCustom,
}

func (t Timeframe) Valid() bool {
	for _, tf := range Timeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// Category is the life domain of a year-scoped goal.
type Category string

const (
	CategoryTravel        Category = "travel"
	CategorySkill         Category = "skill"
	CategoryHealth        Category = "health"
	CategoryHobby         Category = "hobby"
	CategoryWork          Category = "work"
	CategoryRelationships Category = "relationships"
	CategoryOther         Category = "other"
)

var Categories = []Category{
	CategoryTravel,
	CategorySkill,
	CategoryHealth,
	CategoryHobby,
	CategoryWork,
	CategoryRelationships,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, cat := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusNotStarted Status = "notStarted"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	return s == StatusNotStarted || s == StatusInProgress || s == StatusCompleted
}

// Step is a sub-task owned by its goal. Steps have no independent lifecycle:
// the whole list is replaced on update. IDs are client-generated.
type Step struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Completed bool    `json:"completed"`
	DueDate   *string `json:"dueDate,omitempty"` // "YYYY-MM-DD"
}

// Steps is stored as a JSON column.
type Steps []Step

func (s Steps) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Steps) Scan(src any) error {
	return scanJSON(src, s)
}

// StringList is a nullable JSON-encoded list of short strings.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	return scanJSON(src, l)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}

// Goal is a "thing to do". One entity serves both product variants: the flat
// list (Scope=timeframe) and the year page (Scope=year).
type Goal struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"-"`
	Scope         Scope      `db:"scope" json:"scope"`
	Title         string     `db:"title" json:"title"`
	Timeframe     *Timeframe `db:"timeframe" json:"timeframe,omitempty"`
	CustomDueDate *string    `db:"custom_due_date" json:"customDueDate,omitempty"` // set iff Timeframe=custom
	Year          *int       `db:"year" json:"year,omitempty"`
	Category      *Category  `db:"category" json:"category,omitempty"`
	TargetMonth   *int       `db:"target_month" json:"targetMonth,omitempty"` // 1-12
	Status        Status     `db:"status" json:"status"`
	Steps         Steps      `db:"steps" json:"steps"`
	NextActions   StringList `db:"next_actions" json:"nextActions,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

func (g *Goal) Completed() bool {
	return g.Status == StatusCompleted
}
