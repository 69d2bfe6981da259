package postgres

import (
	"time"

	"github.com/lib/pq"
	"github.com/school-notify/internal/domain"
	"gorm.io/datatypes"
)

type scheduledRow struct {
	ID            string                              `gorm:"column:id;primaryKey"`
	Name          string                              `gorm:"column:name"`
	Type          string                              `gorm:"column:type"`
	Channels      pq.StringArray                      `gorm:"column:channels;type:text[]"`
	Recipients    pq.StringArray                      `gorm:"column:recipients;type:text[]"`
	Data          datatypes.JSONMap                   `gorm:"column:data"`
	Schedule      datatypes.JSONType[domain.Schedule] `gorm:"column:schedule"`
	ScheduledAt   time.Time                           `gorm:"column:scheduled_at;index:idx_scheduled_due,priority:2"`
	Status        string                              `gorm:"column:status;index:idx_scheduled_due,priority:1"`
	CreatedBy     *string                             `gorm:"column:created_by"`
	FailureReason *string                             `gorm:"column:failure_reason"`
	LastRunAt     *time.Time                          `gorm:"column:last_run_at"`
	RunCount      int                                 `gorm:"column:run_count"`
	CreatedAt     time.Time                           `gorm:"column:created_at"`
	UpdatedAt     time.Time                           `gorm:"column:updated_at"`
}

func (scheduledRow) TableName() string { return "scheduled_notification" }

func newScheduledRow(n *domain.ScheduledNotification) *scheduledRow {
	return &scheduledRow{
		ID:            n.ID,
		Name:          n.Name,
		Type:          n.Type,
		Channels:      pq.StringArray(domain.ChannelStrings(n.Channels)),
		Recipients:    pq.StringArray(n.Recipients),
		Data:          datatypes.JSONMap(n.Data),
		Schedule:      datatypes.NewJSONType(n.Schedule),
		ScheduledAt:   n.ScheduledAt.UTC(),
		Status:        string(n.Status),
		CreatedBy:     n.CreatedBy,
		FailureReason: n.FailureReason,
		LastRunAt:     n.LastRunAt,
		RunCount:      n.RunCount,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
}

func (r *scheduledRow) toDomain() domain.ScheduledNotification {
	channels := make([]domain.Channel, len(r.Channels))
	for i, c := range r.Channels {
		channels[i] = domain.Channel(c)
	}
	return domain.ScheduledNotification{
		ID:            r.ID,
		Name:          r.Name,
		Type:          r.Type,
		Channels:      channels,
		Recipients:    []string(r.Recipients),
		Data:          map[string]any(r.Data),
		Schedule:      r.Schedule.Data(),
		ScheduledAt:   r.ScheduledAt,
		Status:        domain.ScheduledStatus(r.Status),
		CreatedBy:     r.CreatedBy,
		FailureReason: r.FailureReason,
		LastRunAt:     r.LastRunAt,
		RunCount:      r.RunCount,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type recordRow struct {
	ID             string                                                       `gorm:"column:id;primaryKey"`
	RecipientID    string                                                       `gorm:"column:recipient_id;index:idx_record_recipient,priority:1"`
	Type           string                                                       `gorm:"column:type"`
	Data           datatypes.JSONMap                                            `gorm:"column:data"`
	Important      bool                                                         `gorm:"column:important"`
	OriginID       string                                                       `gorm:"column:origin_id"`
	ChannelResults datatypes.JSONType[map[domain.Channel]domain.DeliveryResult] `gorm:"column:channel_results"`
	ReadAt         *time.Time                                                   `gorm:"column:read_at"`
	CreatedAt      time.Time                                                    `gorm:"column:created_at;index:idx_record_recipient,priority:2"`
}

func (recordRow) TableName() string { return "notification_record" }

func newRecordRow(rec *domain.NotificationRecord) *recordRow {
	return &recordRow{
		ID:             rec.ID,
		RecipientID:    rec.RecipientID,
		Type:           rec.Type,
		Data:           datatypes.JSONMap(rec.Data),
		Important:      rec.Important,
		OriginID:       rec.OriginID,
		ChannelResults: datatypes.NewJSONType(rec.ChannelResults),
		ReadAt:         rec.ReadAt,
		CreatedAt:      rec.CreatedAt.UTC(),
	}
}

func (r *recordRow) toDomain() domain.NotificationRecord {
	return domain.NotificationRecord{
		ID:             r.ID,
		RecipientID:    r.RecipientID,
		Type:           r.Type,
		Data:           map[string]any(r.Data),
		Important:      r.Important,
		OriginID:       r.OriginID,
		ChannelResults: r.ChannelResults.Data(),
		ReadAt:         r.ReadAt,
		CreatedAt:      r.CreatedAt,
	}
}

type userRow struct {
	ID          string                                        `gorm:"column:id;primaryKey"`
	Name        string                                        `gorm:"column:name"`
	Email       string                                        `gorm:"column:email"`
	Phone       *string                                       `gorm:"column:phone"`
	Role        string                                        `gorm:"column:role"`
	Preferences datatypes.JSONType[domain.ChannelPreferences] `gorm:"column:preferences"`
	Topics      pq.StringArray                                `gorm:"column:topics;type:text[]"`
	Enable      int                                           `gorm:"column:enable"`
	CreatedAt   time.Time                                     `gorm:"column:created_at"`
	UpdatedAt   time.Time                                     `gorm:"column:updated_at"`
}

func (userRow) TableName() string { return "users" }

func newUserRow(u *domain.User) *userRow {
	return &userRow{
		ID:          u.UserID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		Role:        u.Role,
		Preferences: datatypes.NewJSONType(u.Preferences),
		Topics:      pq.StringArray(u.Topics),
		Enable:      u.Enable,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		UserID:      r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Role:        r.Role,
		Preferences: r.Preferences.Data(),
		Topics:      []string(r.Topics),
		Enable:      r.Enable,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type deviceRow struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id;index"`
	Token     string    `gorm:"column:token;uniqueIndex"`
	Platform  string    `gorm:"column:platform"`
	Enable    bool      `gorm:"column:enable"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (deviceRow) TableName() string { return "device" }

func newDeviceRow(d *domain.Device) *deviceRow {
	return &deviceRow{
		ID:        d.DeviceID,
		UserID:    d.UserID,
		Token:     d.Token,
		Platform:  d.Platform,
		Enable:    d.Enable,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (r *deviceRow) toDomain() *domain.Device {
	return &domain.Device{
		DeviceID:  r.ID,
		UserID:    r.UserID,
		Token:     r.Token,
		Platform:  r.Platform,
		Enable:    r.Enable,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
