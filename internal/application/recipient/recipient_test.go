package recipient

import (
	"context"
	"testing"

	"github.com/school-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) UpdatePreferences(ctx context.Context, userID string, prefs domain.ChannelPreferences) error {
	return m.Called(ctx, userID, prefs).Error(0)
}

type mockDeviceStore struct{ mock.Mock }

func (m *mockDeviceStore) ListByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	args := m.Called(ctx, userID)
	devices, _ := args.Get(0).([]domain.Device)
	return devices, args.Error(1)
}

func TestResolve_BuildsRoutingInfo(t *testing.T) {
	phone := "+16502530000"
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:      "u1",
		Name:        "Ada",
		Email:       "ada@school.test",
		Phone:       &phone,
		Preferences: domain.ChannelPreferences{domain.ChannelSMS: false},
		Topics:      []string{"grade-10"},
		Enable:      1,
	}, nil)
	ds := &mockDeviceStore{}
	ds.On("ListByUser", mock.Anything, "u1").Return([]domain.Device{
		{Token: "tok-1", Enable: true},
		{Token: "", Enable: true},
		{Token: "tok-2", Enable: true},
	}, nil)

	r, err := NewDirectory(us, ds).Resolve(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "ada@school.test", r.Email)
	assert.Equal(t, phone, r.Phone)
	assert.Equal(t, []string{"tok-1", "tok-2"}, r.DeviceTokens)
	assert.False(t, r.Allows(domain.ChannelSMS))
	assert.True(t, r.Allows(domain.ChannelPush))
}

func TestResolve_DisabledUserIsNotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Enable: 0}, nil)

	_, err := NewDirectory(us, &mockDeviceStore{}).Resolve(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdatePreferences_Merges(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:      "u1",
		Preferences: domain.ChannelPreferences{domain.ChannelMail: false},
	}, nil)
	us.On("UpdatePreferences", mock.Anything, "u1", domain.ChannelPreferences{
		domain.ChannelMail: false,
		domain.ChannelSMS:  false,
	}).Return(nil)

	got, err := NewService(us).UpdatePreferences(context.Background(), "u1", domain.UpdatePreferencesRequest{
		Preferences: map[string]bool{"sms": false},
	})

	require.NoError(t, err)
	assert.Equal(t, map[domain.Channel]bool{
		domain.ChannelDatabase: true,
		domain.ChannelMail:     false,
		domain.ChannelSMS:      false,
		domain.ChannelPush:     true,
	}, got)
	us.AssertExpectations(t)
}

func TestUpdatePreferences_RejectsUnknownAndDatabaseOptOut(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)
	svc := NewService(us)

	_, err := svc.UpdatePreferences(context.Background(), "u1", domain.UpdatePreferencesRequest{Preferences: map[string]bool{"fax": true}})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = svc.UpdatePreferences(context.Background(), "u1", domain.UpdatePreferencesRequest{Preferences: map[string]bool{"database": false}})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	us.AssertNotCalled(t, "UpdatePreferences", mock.Anything, mock.Anything, mock.Anything)
}
