package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/school-notify/internal/channel"
	"github.com/school-notify/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	fcmapi "google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"
)

const (
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
	iidBaseURL     = "https://iid.googleapis.com"
)

// Client sends pushes through the FCM HTTP v1 API and manages topic
// membership through the instance-id batch endpoints.
type Client struct {
	project    string
	messages   *fcmapi.ProjectsMessagesService
	httpClient *http.Client
	iidURL     string
}

// NewClient authenticates with the service-account file in cfg, or with
// application default credentials when no file is configured.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	var (
		creds *google.Credentials
		err   error
	)
	if cfg.FCMCredentials != "" {
		data, rerr := os.ReadFile(cfg.FCMCredentials)
		if rerr != nil {
			return nil, fmt.Errorf("read fcm credentials: %w", rerr)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, messagingScope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, messagingScope)
	}
	if err != nil {
		return nil, fmt.Errorf("fcm credentials: %w", err)
	}
	projectID := cfg.FCMProjectID
	if projectID == "" {
		projectID = creds.ProjectID
	}
	if projectID == "" {
		return nil, fmt.Errorf("fcm: project id is not configured")
	}
	return newClient(ctx, projectID, oauth2.NewClient(ctx, creds.TokenSource), "", iidBaseURL)
}

func newClient(ctx context.Context, projectID string, httpClient *http.Client, endpoint, iidURL string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := fcmapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("fcm service: %w", err)
	}
	return &Client{
		project:    "projects/" + projectID,
		messages:   fcmapi.NewProjectsMessagesService(svc),
		httpClient: httpClient,
		iidURL:     strings.TrimRight(iidURL, "/"),
	}, nil
}

func (c *Client) SendToToken(ctx context.Context, token string, m channel.PushMessage) (string, error) {
	return c.send(ctx, &fcmapi.Message{Token: token}, m)
}

// SendToTokens sends to each device in turn. Per-device failures are reported
// in the result, not as an error.
func (c *Client) SendToTokens(ctx context.Context, tokens []string, m channel.PushMessage) (channel.BatchResult, error) {
	res := channel.BatchResult{Errors: map[string]string{}}
	for _, t := range tokens {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name, err := c.SendToToken(ctx, t, m)
		if err != nil {
			res.FailureCount++
			res.Errors[t] = err.Error()
			continue
		}
		res.SuccessCount++
		res.MessageIDs = append(res.MessageIDs, name)
	}
	return res, nil
}

func (c *Client) SendToTopic(ctx context.Context, topic string, m channel.PushMessage) (string, error) {
	return c.send(ctx, &fcmapi.Message{Topic: trimTopic(topic)}, m)
}

func (c *Client) send(ctx context.Context, msg *fcmapi.Message, m channel.PushMessage) (string, error) {
	msg.Notification = &fcmapi.Notification{Title: m.Title, Body: m.Body}
	if len(m.Data) > 0 {
		msg.Data = m.Data
	}
	out, err := c.messages.Send(c.project, &fcmapi.SendMessageRequest{Message: msg}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return out.Name, nil
}

func (c *Client) SubscribeToTopic(ctx context.Context, topic string, tokens []string) error {
	return c.manageTopic(ctx, "/iid/v1:batchAdd", topic, tokens)
}

func (c *Client) UnsubscribeFromTopic(ctx context.Context, topic string, tokens []string) error {
	return c.manageTopic(ctx, "/iid/v1:batchRemove", topic, tokens)
}

type topicRequest struct {
	To                 string   `json:"to"`
	RegistrationTokens []string `json:"registration_tokens"`
}

type topicResponse struct {
	Results []struct {
		Error string `json:"error,omitempty"`
	} `json:"results"`
}

// manageTopic issues one call per batch of channel.TopicBatchSize tokens.
func (c *Client) manageTopic(ctx context.Context, path, topic string, tokens []string) error {
	rejected := 0
	var firstReason string
	for _, batch := range channel.Batches(tokens, channel.TopicBatchSize) {
		body, err := json.Marshal(topicRequest{To: "/topics/" + trimTopic(topic), RegistrationTokens: batch})
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.iidURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("access_token_auth", "true")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("fcm topic: %w", err)
		}
		var out topicResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("fcm topic: unexpected status %d", resp.StatusCode)
		}
		if decodeErr != nil {
			return fmt.Errorf("fcm topic: decode response: %w", decodeErr)
		}
		for _, r := range out.Results {
			if r.Error != "" {
				rejected++
				if firstReason == "" {
					firstReason = r.Error
				}
			}
		}
	}
	if rejected > 0 {
		return fmt.Errorf("fcm topic: %d of %d tokens rejected: %s", rejected, len(tokens), firstReason)
	}
	return nil
}

func trimTopic(topic string) string {
	return strings.TrimPrefix(topic, "/topics/")
}
