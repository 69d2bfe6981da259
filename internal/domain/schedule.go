package domain

import (
	"fmt"
	"time"
)

type ScheduleType string

const (
	ScheduleOnce    ScheduleType = "once"
	ScheduleDaily   ScheduleType = "daily"
	ScheduleWeekly  ScheduleType = "weekly"
	ScheduleMonthly ScheduleType = "monthly"
	ScheduleCustom  ScheduleType = "custom"
)

type IntervalUnit string

const (
	UnitMinutes IntervalUnit = "minutes"
	UnitHours   IntervalUnit = "hours"
	UnitDays    IntervalUnit = "days"
	UnitWeeks   IntervalUnit = "weeks"
	UnitMonths  IntervalUnit = "months"
)

// Schedule is the tagged schedule definition of a ScheduledNotification.
// Datetime is required for once; for recurring types it optionally anchors the first run.
// Interval and Unit are only meaningful for custom.
type Schedule struct {
	Type     ScheduleType `json:"type" dynamodbav:"type"`
	Datetime *time.Time   `json:"datetime,omitempty" dynamodbav:"datetime,omitempty"`
	Interval int          `json:"interval,omitempty" dynamodbav:"interval,omitempty"`
	Unit     IntervalUnit `json:"unit,omitempty" dynamodbav:"unit,omitempty"`
}

// Recurring reports whether the schedule produces more than one occurrence.
func (s Schedule) Recurring() bool {
	return s.Type != ScheduleOnce
}

// Validate checks the shape of the schedule without looking at the clock.
func (s Schedule) Validate() error {
	switch s.Type {
	case ScheduleOnce:
		if s.Datetime == nil {
			return fmt.Errorf("once schedule requires datetime: %w", ErrInvalidSchedule)
		}
	case ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
	case ScheduleCustom:
		if s.Interval < 1 {
			return fmt.Errorf("custom schedule interval must be positive: %w", ErrInvalidSchedule)
		}
		switch s.Unit {
		case UnitMinutes, UnitHours, UnitDays, UnitWeeks, UnitMonths:
		default:
			return fmt.Errorf("custom schedule unit %q: %w", s.Unit, ErrInvalidSchedule)
		}
	default:
		return fmt.Errorf("schedule type %q: %w", s.Type, ErrInvalidSchedule)
	}
	return nil
}

// FirstRun computes scheduled_at at creation time.
func (s Schedule) FirstRun(now time.Time) (time.Time, error) {
	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}
	if s.Datetime != nil {
		at := s.Datetime.UTC()
		if !at.After(now) {
			return time.Time{}, fmt.Errorf("datetime %s is not in the future: %w", at.Format(time.RFC3339), ErrInvalidSchedule)
		}
		return at, nil
	}
	return s.Next(now)
}

// Next returns the occurrence following from. Only valid for recurring schedules.
func (s Schedule) Next(from time.Time) (time.Time, error) {
	from = from.UTC()
	switch s.Type {
	case ScheduleDaily:
		return from.AddDate(0, 0, 1), nil
	case ScheduleWeekly:
		return from.AddDate(0, 0, 7), nil
	case ScheduleMonthly:
		return from.AddDate(0, 1, 0), nil
	case ScheduleCustom:
		n := s.Interval
		switch s.Unit {
		case UnitMinutes:
			return from.Add(time.Duration(n) * time.Minute), nil
		case UnitHours:
			return from.Add(time.Duration(n) * time.Hour), nil
		case UnitDays:
			return from.AddDate(0, 0, n), nil
		case UnitWeeks:
			return from.AddDate(0, 0, 7*n), nil
		case UnitMonths:
			return from.AddDate(0, n, 0), nil
		}
	}
	return time.Time{}, fmt.Errorf("schedule type %q has no next occurrence: %w", s.Type, ErrInvalidSchedule)
}
