package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// SubmissionStatus classifies where a student stands on one gradable item.
type SubmissionStatus string

const (
	StatusNotSubmitted SubmissionStatus = "not_submitted"
	StatusToSubmit     SubmissionStatus = "to_submit"
	StatusSubmitted    SubmissionStatus = "submitted"
	StatusOverdue      SubmissionStatus = "overdue"
)

// AwaitingSubmission reports whether the student still has work to hand in.
func (s SubmissionStatus) AwaitingSubmission() bool {
	return s == StatusToSubmit || s == StatusNotSubmitted
}

// Module types recognised by the per-type breakdown.
const (
	ModuleAssign   = "assign"
	ModuleQuiz     = "quiz"
	ModuleWorkshop = "workshop"
	ModuleForum    = "forum"
)

// GradableItem is one row of the gradebook enumeration for a set of courses.
type GradableItem struct {
	ItemID       int64      `db:"item_id" json:"item_id"`
	CourseID     int64      `db:"course_id" json:"course_id"`
	ModuleType   string     `db:"module_type" json:"module_type"`
	ItemInstance int64      `db:"item_instance" json:"item_instance"`
	DueDate      *time.Time `db:"-" json:"due_date,omitempty"`
}

// AssessmentItem is a classified snapshot of one gradable item for one user.
type AssessmentItem struct {
	ItemID     int64            `json:"item_id"`
	CourseID   int64            `json:"course_id"`
	ModuleType string           `json:"module_type"`
	DueDate    *time.Time       `json:"due_date,omitempty"`
	Status     SubmissionStatus `json:"status"`
	FinalGrade *float64         `json:"final_grade,omitempty"`
}

// Marked reports whether a final grade has been released for the item.
func (a AssessmentItem) Marked() bool {
	return a.FinalGrade != nil
}

// ClassifySubmission derives the status of an item from the raw submission signal.
func ClassifySubmission(submitted bool, due *time.Time, now time.Time) SubmissionStatus {
	switch {
	case submitted:
		return StatusSubmitted
	case due == nil:
		return StatusNotSubmitted
	case now.After(*due):
		return StatusOverdue
	default:
		return StatusToSubmit
	}
}

// SummaryStats aggregates submission and marking counts. Submitted is always >= Marked.
type SummaryStats struct {
	Submitted int `json:"sub_assess"`
	ToSubmit  int `json:"tobe_sub"`
	Overdue   int `json:"overdue"`
	Marked    int `json:"assess_marked"`
}

// DueSoonStats counts items due within cumulative forward windows.
type DueSoonStats struct {
	Within24Hours int `json:"24hours"`
	WithinWeek    int `json:"week"`
	WithinMonth   int `json:"month"`
}

// DueSoonWindows bounds the three due-soon buckets relative to now.
type DueSoonWindows struct {
	Day   time.Duration
	Week  time.Duration
	Month time.Duration
}

// DefaultDueSoonWindows uses a 30 day month.
var DefaultDueSoonWindows = DueSoonWindows{
	Day:   24 * time.Hour,
	Week:  7 * 24 * time.Hour,
	Month: 30 * 24 * time.Hour,
}

// ChartType selects which module types the per-type breakdown reports.
type ChartType int

const (
	ChartAll ChartType = iota
	ChartAssign
	ChartQuiz
	ChartWorkshop
	ChartForum
)

var chartModules = map[ChartType]string{
	ChartAssign:   ModuleAssign,
	ChartQuiz:     ModuleQuiz,
	ChartWorkshop: ModuleWorkshop,
	ChartForum:    ModuleForum,
}

// Valid reports whether the chart type is known.
func (c ChartType) Valid() bool {
	if c == ChartAll {
		return true
	}
	_, ok := chartModules[c]
	return ok
}

// Module returns the module type a chart is restricted to, or "" for ChartAll.
func (c ChartType) Module() string {
	return chartModules[c]
}

// Includes reports whether items of the module type belong in the chart.
func (c ChartType) Includes(moduleType string) bool {
	if c == ChartAll {
		return true
	}
	return chartModules[c] == moduleType
}

// TypeSummary holds the summary counts of one module type.
type TypeSummary struct {
	ModuleType string `json:"type"`
	SummaryStats
}

// SummaryByType is the per-type breakdown returned under the "result" key.
type SummaryByType struct {
	ChartType ChartType     `json:"charttype"`
	Types     []TypeSummary `json:"types"`
}

// StatKind identifies a statistic family.
type StatKind string

const (
	StatDueSoon       StatKind = "due_soon"
	StatSummary       StatKind = "summary"
	StatSummaryByType StatKind = "summary_by_type"
)

// CacheKey addresses one cache entry.
type CacheKey struct {
	Kind      StatKind
	UserID    string
	Qualifier string
}

// StorageKey renders the storage key as prefix + [qualifier:] + user id.
func (k CacheKey) StorageKey(prefix string) string {
	if k.Qualifier == "" {
		return prefix + k.UserID
	}
	return prefix + k.Qualifier + ":" + k.UserID
}

// ChartQualifier keys summary-by-type entries per chart.
func ChartQualifier(c ChartType) string {
	return strconv.Itoa(int(c))
}

// CacheEntry is the persisted envelope around a computed statistic.
type CacheEntry struct {
	UserID     string          `json:"user_id"`
	Kind       StatKind        `json:"kind"`
	Qualifier  string          `json:"qualifier,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	ComputedAt time.Time       `json:"computed_at"`
}

// Matches reports whether the entry belongs to the key it was read under.
func (e CacheEntry) Matches(key CacheKey) bool {
	return e.Kind == key.Kind && e.UserID == key.UserID && e.Qualifier == key.Qualifier
}

// Stale reports whether the entry is at least staleAfter old at now. An entry stamped in the
// future, as written by a node with a skewed clock, is stale.
func (e CacheEntry) Stale(now time.Time, staleAfter time.Duration) bool {
	if e.ComputedAt.After(now) {
		return true
	}
	return now.Sub(e.ComputedAt) >= staleAfter
}
