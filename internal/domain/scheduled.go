package domain

import "time"

type ScheduledStatus string

const (
	StatusPending    ScheduledStatus = "pending"
	StatusProcessing ScheduledStatus = "processing"
	StatusSent       ScheduledStatus = "sent"
	StatusFailed     ScheduledStatus = "failed"
	StatusCancelled  ScheduledStatus = "cancelled"
)

func (s ScheduledStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ScheduledNotification is a deferred or recurring dispatch owned by the scheduler engine.
type ScheduledNotification struct {
	ID            string          `json:"id" dynamodbav:"scheduled_id"`
	Name          string          `json:"name" dynamodbav:"name"`
	Type          string          `json:"type" dynamodbav:"type"`
	Channels      []Channel       `json:"channels" dynamodbav:"channels"`
	Recipients    []string        `json:"recipients" dynamodbav:"recipients"`
	Data          map[string]any  `json:"data" dynamodbav:"data"`
	Schedule      Schedule        `json:"schedule" dynamodbav:"schedule"`
	ScheduledAt   time.Time       `json:"scheduled_at" dynamodbav:"scheduled_at"`
	Status        ScheduledStatus `json:"status" dynamodbav:"status"`
	CreatedBy     *string         `json:"created_by,omitempty" dynamodbav:"created_by,omitempty"`
	FailureReason *string         `json:"failure_reason,omitempty" dynamodbav:"failure_reason,omitempty"`
	LastRunAt     *time.Time      `json:"last_run_at,omitempty" dynamodbav:"last_run_at,omitempty"`
	RunCount      int             `json:"run_count" dynamodbav:"run_count"`
	CreatedAt     time.Time       `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time       `json:"updated" dynamodbav:"updated_at"`
}

// StatusChange is applied by a store only while the entry is still in the expected status.
// Nil fields are left untouched.
type StatusChange struct {
	Status        ScheduledStatus
	ScheduledAt   *time.Time
	FailureReason *string
	LastRunAt     *time.Time
	RunCount      *int
	UpdatedAt     time.Time
}

// Apply mutates n in place. Stores without native conditional updates share it.
func (c StatusChange) Apply(n *ScheduledNotification) {
	n.Status = c.Status
	if c.ScheduledAt != nil {
		n.ScheduledAt = *c.ScheduledAt
	}
	if c.FailureReason != nil {
		n.FailureReason = c.FailureReason
	}
	if c.LastRunAt != nil {
		n.LastRunAt = c.LastRunAt
	}
	if c.RunCount != nil {
		n.RunCount = *c.RunCount
	}
	n.UpdatedAt = c.UpdatedAt
}

type CreateScheduledRequest struct {
	Name       string         `json:"name" validate:"required,max=200"`
	Type       string         `json:"type" validate:"required"`
	Channels   []string       `json:"channels" validate:"omitempty,dive,channel"`
	Recipients []string       `json:"recipients" validate:"required,min=1,dive,required"`
	Data       map[string]any `json:"data"`
	Schedule   Schedule       `json:"schedule"`
}
