package domain

import "time"

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type TopicRequest struct {
	Topic string `json:"topic" validate:"required,max=900"`
}

// Device is a push-capable installation belonging to a user.
type Device struct {
	DeviceID  string    `json:"id" dynamodbav:"device_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Token     string    `json:"token" dynamodbav:"token"`
	Platform  string    `json:"platform" dynamodbav:"platform"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}
