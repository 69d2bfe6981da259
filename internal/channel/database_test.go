package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestDatabaseSender_CreatesAndPublishes(t *testing.T) {
	store := &mockRecordStore{}
	pub := &mockPublisher{}
	wantID := id.ForDelivery("u1", "evt-1")
	store.On("Insert", mock.Anything, mock.MatchedBy(func(r *domain.NotificationRecord) bool {
		return r.ID == wantID && r.RecipientID == "u1" && r.Type == "exam.reminder" &&
			r.ChannelResults[domain.ChannelMail].Success && r.ReadAt == nil
	})).Return(nil)
	pub.On("PublishRecord", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	s := NewDatabaseSender(store, nil, pub)
	res := s.Send(context.Background(), recipient(), Payload{
		Type:       "exam.reminder",
		OriginID:   "evt-1",
		Data:       map[string]any{"subject": "Math"},
		Deliveries: []domain.DeliveryResult{{Channel: domain.ChannelMail, RecipientID: "u1", Success: true}},
	})

	assert.True(t, res.Success, "publish failures do not fail the delivery")
	assert.Equal(t, wantID, res.MessageID)
	assert.Equal(t, domain.ChannelDatabase, res.Channel)
	store.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestDatabaseSender_DuplicateIsNotRepublished(t *testing.T) {
	store := &mockRecordStore{}
	pub := &mockPublisher{}
	store.On("Insert", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	s := NewDatabaseSender(store, nil, pub)
	res := s.Send(context.Background(), recipient(), Payload{Type: "general", OriginID: "evt-1"})

	assert.True(t, res.Success)
	pub.AssertNotCalled(t, "PublishRecord", mock.Anything, mock.Anything)
}

func TestDatabaseSender_StoreErrorFails(t *testing.T) {
	store := &mockRecordStore{}
	store.On("Insert", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	res := NewDatabaseSender(store, nil).Send(context.Background(), recipient(), Payload{Type: "general", OriginID: "e"})
	assert.False(t, res.Success)
	assert.Equal(t, "throttled", res.Error)
}
