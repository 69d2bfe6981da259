package twilio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/school-notify/internal/config"
	"github.com/school-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twclient "github.com/twilio/twilio-go/client"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(config.TwilioConfig{AccountSID: "AC1", AuthToken: "secret", From: "+15005550006", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(config.TwilioConfig{AccountSID: "AC1"})
	assert.Error(t, err)
}

func TestSendSMS(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC1", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "+16502530000", r.PostForm.Get("To"))
		assert.Equal(t, "+15005550006", r.PostForm.Get("From"))
		assert.Equal(t, "hello", r.PostForm.Get("Body"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	})

	sid, err := c.SendSMS(context.Background(), "+16502530000", "hello")
	require.NoError(t, err)
	assert.Equal(t, "SM123", sid)
}

func TestSendSMS_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	})

	_, err := c.SendSMS(context.Background(), "+1", "hello")
	var apiErr *twclient.TwilioRestError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 21211, apiErr.Code)
	assert.Equal(t, 400, apiErr.Status)
}

func TestSendSMS_CancelledContextSkipsRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.SendSMS(ctx, "+16502530000", "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestBalance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC1/Balance.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"balance":"12.50","currency":"USD"}`))
	})
	b, err := c.Balance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 12.5, b, 0.0001)
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages/SM123.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"delivered"}`))
	})
	s, err := c.Status(context.Background(), "SM123")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryDelivered, s)
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, domain.DeliveryQueued, mapStatus("sending"))
	assert.Equal(t, domain.DeliveryFailed, mapStatus("canceled"))
	assert.Equal(t, domain.DeliveryUnknown, mapStatus("weird"))
}
