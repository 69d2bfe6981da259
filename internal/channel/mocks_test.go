package channel

import (
	"context"

	"github.com/school-notify/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockRecordStore struct{ mock.Mock }

func (m *mockRecordStore) Insert(ctx context.Context, rec *domain.NotificationRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishRecord(ctx context.Context, rec *domain.NotificationRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	args := m.Called(ctx, to, subject, body)
	return args.String(0), args.Error(1)
}

type mockSMSProvider struct{ mock.Mock }

func (m *mockSMSProvider) Name() string { return "mock" }
func (m *mockSMSProvider) SendSMS(ctx context.Context, to, body string) (string, error) {
	args := m.Called(ctx, to, body)
	return args.String(0), args.Error(1)
}
func (m *mockSMSProvider) Balance(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}
func (m *mockSMSProvider) Status(ctx context.Context, messageID string) (domain.DeliveryStatus, error) {
	args := m.Called(ctx, messageID)
	return args.Get(0).(domain.DeliveryStatus), args.Error(1)
}

type mockPushGateway struct{ mock.Mock }

func (m *mockPushGateway) SendToToken(ctx context.Context, token string, pm PushMessage) (string, error) {
	args := m.Called(ctx, token, pm)
	return args.String(0), args.Error(1)
}
func (m *mockPushGateway) SendToTokens(ctx context.Context, tokens []string, pm PushMessage) (BatchResult, error) {
	args := m.Called(ctx, tokens, pm)
	return args.Get(0).(BatchResult), args.Error(1)
}
func (m *mockPushGateway) SendToTopic(ctx context.Context, topic string, pm PushMessage) (string, error) {
	args := m.Called(ctx, topic, pm)
	return args.String(0), args.Error(1)
}
func (m *mockPushGateway) SubscribeToTopic(ctx context.Context, topic string, tokens []string) error {
	return m.Called(ctx, topic, tokens).Error(0)
}
func (m *mockPushGateway) UnsubscribeFromTopic(ctx context.Context, topic string, tokens []string) error {
	return m.Called(ctx, topic, tokens).Error(0)
}

func recipient() *domain.Recipient {
	return &domain.Recipient{
		ID:           "u1",
		Name:         "Alice",
		Email:        "alice@example.com",
		Phone:        "(650) 253-0000",
		DeviceTokens: []string{"tok-1"},
	}
}
