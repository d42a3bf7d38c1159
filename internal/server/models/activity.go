package models

import "time"

// Priority of an activity item.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Frequency of a habit.
type Frequency string

const (
	FrequencyDaily       Frequency = "Daily"
	FrequencyWeekly      Frequency = "Weekly"
	FrequencyMonthly     Frequency = "Monthly"
	FrequencyNoFrequency Frequency = "NoFrequency"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyNoFrequency:
		return true
	}
	return false
}

// TrackingMode selects which of a habit's counters are in use.
type TrackingMode string

const (
	TrackingPositiveOnly TrackingMode = "PositiveOnly"
	TrackingNegativeOnly TrackingMode = "NegativeOnly"
	TrackingBoth         TrackingMode = "Both"
)

// TracksPositive reports whether the positive counter is in use.
func (m TrackingMode) TracksPositive() bool {
	return m == TrackingPositiveOnly || m == TrackingBoth
}

// TracksNegative reports whether the negative counter is in use.
func (m TrackingMode) TracksNegative() bool {
	return m == TrackingNegativeOnly || m == TrackingBoth
}

// RepeatDuration is how often a daily recurs.
type RepeatDuration string

const (
	RepeatDaily   RepeatDuration = "Daily"
	RepeatWeekly  RepeatDuration = "Weekly"
	RepeatMonthly RepeatDuration = "Monthly"
	RepeatYearly  RepeatDuration = "Yearly"
)

func (r RepeatDuration) Valid() bool {
	switch r {
	case RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	}
	return false
}

// Habit is a behaviour tracked with positive and/or negative counters.
// Counters not covered by TrackingMode are nil.
type Habit struct {
	ID              int64        `json:"id"`
	UserID          string       `json:"-"`
	Title           string       `json:"title"`
	Description     *string      `json:"description"`
	Priority        Priority     `json:"priority"`
	Frequency       Frequency    `json:"frequency"`
	TrackingMode    TrackingMode `json:"trackingMode"`
	PositiveCounter *int64       `json:"positiveCounter"`
	NegativeCounter *int64       `json:"negativeCounter"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Daily is a recurring item with an optional checklist.
type Daily struct {
	ID             int64           `json:"id"`
	UserID         string          `json:"-"`
	Title          string          `json:"title"`
	Description    *string         `json:"description"`
	Priority       Priority        `json:"priority"`
	RepeatDuration RepeatDuration  `json:"repeatDuration"`
	StartDate      time.Time       `json:"startDate"`
	Checklist      []ChecklistItem `json:"checklists"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ChecklistItem belongs to a Daily.
type ChecklistItem struct {
	ID          int64  `json:"id"`
	DailyID     int64  `json:"-"`
	Description string `json:"description"`
	IsCompleted bool   `json:"isCompleted"`
}

// Task is a one-off to-do item.
type Task struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"-"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	IsCompleted bool       `json:"isCompleted"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ListQuery describes one page of a per-user listing. SortBy is an API sort
// key; repositories translate it through their own whitelist.
type ListQuery struct {
	Page     int
	PageSize int
	SortBy   string
	Desc     bool
}

// Offset of the first row of the page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}
