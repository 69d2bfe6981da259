package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/school-notify/internal/config"
	"github.com/school-notify/internal/domain"
)

// publisher is the subset of the SNS client the provider needs.
type publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Provider sends transactional SMS through AWS SNS. SNS exposes neither an
// account balance nor per-message status, so those lookups are unsupported.
type Provider struct {
	client publisher
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	opts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &Provider{client: sns.NewFromConfig(awsCfg, opts...)}, nil
}

func (p *Provider) Name() string { return "sns" }

func (p *Provider) SendSMS(ctx context.Context, to, message string) (string, error) {
	out, err := p.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

func (p *Provider) Balance(context.Context) (float64, error) {
	return 0, fmt.Errorf("sns balance: %w", domain.ErrNotSupported)
}

func (p *Provider) Status(context.Context, string) (domain.DeliveryStatus, error) {
	return domain.DeliveryUnknown, fmt.Errorf("sns status: %w", domain.ErrNotSupported)
}
