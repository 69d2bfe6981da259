package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ChannelPreferences holds per-channel opt-ins. A channel missing from the map is enabled.
type ChannelPreferences map[Channel]bool

// Allows reports whether the user accepts deliveries on c.
func (p ChannelPreferences) Allows(c Channel) bool {
	enabled, ok := p[c]
	return !ok || enabled
}

// User is the directory entry a Recipient is resolved from.
type User struct {
	UserID      string             `json:"id" dynamodbav:"user_id"`
	Name        string             `json:"name" dynamodbav:"name"`
	Email       string             `json:"email" dynamodbav:"email"`
	Phone       *string            `json:"phone" dynamodbav:"phone"`
	Role        string             `json:"role" dynamodbav:"role"`
	Preferences ChannelPreferences `json:"preferences" dynamodbav:"preferences"`
	Topics      []string           `json:"topics,omitempty" dynamodbav:"topics,omitempty"`
	Enable      int                `json:"enable" dynamodbav:"enable"`
	CreatedAt   time.Time          `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time          `json:"updated" dynamodbav:"updated_at"`
}

type UpdatePreferencesRequest struct {
	Preferences map[string]bool `json:"preferences" validate:"required"`
}
