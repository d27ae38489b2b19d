// Package model holds the domain types mirrored from the trainer backend.
package model

import (
	"strings"
	"time"
)

// TempIDPrefix marks identifiers generated locally for entities the server
// has not acknowledged yet. Server-assigned identifiers never carry it.
const TempIDPrefix = "temp-"

// IsTempID reports whether id is a locally generated placeholder.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// ActivityType categorises a workout.
type ActivityType string

const (
	ActivityRun      ActivityType = "run"
	ActivityBike     ActivityType = "bike"
	ActivitySwim     ActivityType = "swim"
	ActivityStrength ActivityType = "strength"
	ActivityOther    ActivityType = "other"
)

// Status is the lifecycle state of a workout.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusCompleted Status = "completed"
	StatusMissed    Status = "missed"
)

// Workout is a planned or completed training session.
type Workout struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id,omitempty"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	StartTime     time.Time    `json:"start_time"`
	EndTime       time.Time    `json:"end_time"`
	ActivityType  ActivityType `json:"activity_type"`
	Status        Status       `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	GoogleEventID string       `json:"google_event_id,omitempty"`

	// Offline is set on entities mutated locally but not yet confirmed
	// by the server. It is never sent upstream.
	Offline bool `json:"offline,omitempty"`
}

// WorkoutCreate carries the fields a client supplies when creating a workout.
type WorkoutCreate struct {
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	StartTime    time.Time    `json:"start_time"`
	EndTime      time.Time    `json:"end_time"`
	ActivityType ActivityType `json:"activity_type"`
	Status       Status       `json:"status,omitempty"`
}

// WorkoutUpdate is a partial workout mutation. Nil fields are left untouched.
type WorkoutUpdate struct {
	Title        *string       `json:"title,omitempty"`
	Description  *string       `json:"description,omitempty"`
	StartTime    *time.Time    `json:"start_time,omitempty"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
	ActivityType *ActivityType `json:"activity_type,omitempty"`
	Status       *Status       `json:"status,omitempty"`
}

// Apply copies the non-nil fields of u onto w.
func (w *Workout) Apply(u WorkoutUpdate) {
	if u.Title != nil {
		w.Title = *u.Title
	}
	if u.Description != nil {
		w.Description = *u.Description
	}
	if u.StartTime != nil {
		w.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		w.EndTime = *u.EndTime
	}
	if u.ActivityType != nil {
		w.ActivityType = *u.ActivityType
	}
	if u.Status != nil {
		w.Status = *u.Status
	}
}

// DailyLog is a per-calendar-day record of subjective and physiological
// metrics. All metric fields are optional; Date is an ISO calendar date
// (YYYY-MM-DD) and keys the log.
type DailyLog struct {
	ID               string   `json:"id,omitempty"`
	UserID           string   `json:"user_id,omitempty"`
	Date             string   `json:"date"`
	SleepTotal       *float64 `json:"sleep_total,omitempty"`
	DeepSleep        *float64 `json:"deep_sleep,omitempty"`
	RemSleep         *float64 `json:"rem_sleep,omitempty"`
	ResourcesPercent *float64 `json:"resources_percent,omitempty"`
	HRVScore         *float64 `json:"hrv_score,omitempty"`
	MinSleepHR       *float64 `json:"min_sleep_hr,omitempty"`
	Motivation       *int     `json:"motivation,omitempty"` // 1-10
	Soreness         *int     `json:"soreness,omitempty"`   // 1-10
	Stress           *int     `json:"stress,omitempty"`     // 1-10
	BodyWeightKg     *float64 `json:"body_weight_kg,omitempty"`
}

// Merge returns a copy of l with the non-nil fields of in applied on top.
// The server preserves unspecified fields on partial updates; merging keeps
// the local copy in step with that.
func (l DailyLog) Merge(in DailyLog) DailyLog {
	out := l
	if in.Date != "" {
		out.Date = in.Date
	}
	if in.SleepTotal != nil {
		out.SleepTotal = in.SleepTotal
	}
	if in.DeepSleep != nil {
		out.DeepSleep = in.DeepSleep
	}
	if in.RemSleep != nil {
		out.RemSleep = in.RemSleep
	}
	if in.ResourcesPercent != nil {
		out.ResourcesPercent = in.ResourcesPercent
	}
	if in.HRVScore != nil {
		out.HRVScore = in.HRVScore
	}
	if in.MinSleepHR != nil {
		out.MinSleepHR = in.MinSleepHR
	}
	if in.Motivation != nil {
		out.Motivation = in.Motivation
	}
	if in.Soreness != nil {
		out.Soreness = in.Soreness
	}
	if in.Stress != nil {
		out.Stress = in.Stress
	}
	if in.BodyWeightKg != nil {
		out.BodyWeightKg = in.BodyWeightKg
	}
	return out
}
