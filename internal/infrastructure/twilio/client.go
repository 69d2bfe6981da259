package twilio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/school-notify/internal/config"
	"github.com/school-notify/internal/domain"
)

const defaultBaseURL = "https://api.twilio.com"

// messagingAPI is the part of the Twilio REST API the provider uses.
type messagingAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
	FetchMessage(sid string, params *openapi.FetchMessageParams) (*openapi.ApiV2010Message, error)
	FetchBalance(params *openapi.FetchBalanceParams) (*openapi.ApiV2010Balance, error)
}

// Client sends SMS through Twilio Programmable Messaging.
type Client struct {
	api  messagingAPI
	from string
}

func NewClient(cfg config.TwilioConfig) (*Client, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, fmt.Errorf("twilio: account sid, auth token and sender are required")
	}
	httpClient := &http.Client{Timeout: 20 * time.Second}
	if cfg.BaseURL != "" && cfg.BaseURL != defaultBaseURL {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("twilio: base url: %w", err)
		}
		httpClient.Transport = rebase{base: base, next: http.DefaultTransport}
	}

	base := &twclient.Client{
		Credentials: twclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	base.SetAccountSid(cfg.AccountSID)
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{Client: base})
	return &Client{api: rest.Api, from: cfg.From}, nil
}

func (c *Client) Name() string { return "twilio" }

// The SDK calls take no context; a cancelled context is only honoured before
// the request starts. The HTTP client timeout bounds the rest.
func (c *Client) SendSMS(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	msg, err := c.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio: %w", err)
	}
	if msg.Sid == nil {
		return "", fmt.Errorf("twilio: message created without sid")
	}
	return *msg.Sid, nil
}

func (c *Client) Balance(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out, err := c.api.FetchBalance(&openapi.FetchBalanceParams{})
	if err != nil {
		return 0, fmt.Errorf("twilio: %w", err)
	}
	if out.Balance == nil {
		return 0, fmt.Errorf("twilio: balance missing from response")
	}
	v, err := strconv.ParseFloat(*out.Balance, 64)
	if err != nil {
		return 0, fmt.Errorf("twilio: parse balance %q: %w", *out.Balance, err)
	}
	return v, nil
}

func (c *Client) Status(ctx context.Context, messageID string) (domain.DeliveryStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.DeliveryUnknown, err
	}
	msg, err := c.api.FetchMessage(messageID, &openapi.FetchMessageParams{})
	if err != nil {
		return domain.DeliveryUnknown, fmt.Errorf("twilio: %w", err)
	}
	if msg.Status == nil {
		return domain.DeliveryUnknown, nil
	}
	return mapStatus(*msg.Status), nil
}

func mapStatus(s string) domain.DeliveryStatus {
	switch s {
	case "accepted", "scheduled", "queued", "sending":
		return domain.DeliveryQueued
	case "sent":
		return domain.DeliverySent
	case "delivered", "read":
		return domain.DeliveryDelivered
	case "undelivered":
		return domain.DeliveryUndelivered
	case "failed", "canceled":
		return domain.DeliveryFailed
	}
	return domain.DeliveryUnknown
}

// rebase points SDK requests at another host, e.g. a local mock of the API.
type rebase struct {
	base *url.URL
	next http.RoundTripper
}

func (t rebase) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.base.Scheme
	r.URL.Host = t.base.Host
	r.Host = t.base.Host
	return t.next.RoundTrip(r)
}
