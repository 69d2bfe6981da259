package s3infra

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/school-notify/internal/config"
)

// maxTemplateSize bounds a single template object.
const maxTemplateSize = 64 << 10

type objectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// TemplateBucket serves notification templates stored as objects under a prefix.
// An object "templates/exam.reminder.mail.body.tmpl" becomes template
// "exam.reminder.mail.body".
type TemplateBucket struct {
	client objectAPI
	bucket string
	prefix string
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(cfg *config.Config) *s3.Client {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		panic("failed to load AWS config for S3: " + err.Error())
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...)
}

func NewTemplateBucket(client *s3.Client, bucket, prefix string) *TemplateBucket {
	return &TemplateBucket{client: client, bucket: bucket, prefix: prefix}
}

// Templates reads every *.tmpl object under the prefix.
func (b *TemplateBucket) Templates(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list templates: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name, ok := templateName(b.prefix, key)
			if !ok {
				continue
			}
			body, err := b.read(ctx, key)
			if err != nil {
				return nil, err
			}
			out[name] = body
		}
	}
	return out, nil
}

func (b *TemplateBucket) read(ctx context.Context, key string) (string, error) {
	obj, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("s3 get object %s: %w", key, err)
	}
	defer obj.Body.Close()
	data, err := io.ReadAll(io.LimitReader(obj.Body, maxTemplateSize+1))
	if err != nil {
		return "", fmt.Errorf("s3 read object %s: %w", key, err)
	}
	if len(data) > maxTemplateSize {
		return "", fmt.Errorf("template %s exceeds %d bytes", key, maxTemplateSize)
	}
	return string(data), nil
}

func templateName(prefix, key string) (string, bool) {
	if !strings.HasSuffix(key, ".tmpl") {
		return "", false
	}
	name := strings.TrimSuffix(path.Base(strings.TrimPrefix(key, prefix)), ".tmpl")
	return name, name != ""
}
