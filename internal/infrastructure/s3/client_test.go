package s3infra

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objects map[string]string
}

func (f *fakeObjects) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.objects[aws.ToString(in.Key)]))}, nil
}

func TestTemplates_ReadsTmplObjects(t *testing.T) {
	b := &TemplateBucket{
		client: &fakeObjects{objects: map[string]string{
			"templates/fee.due.body.tmpl":     "Pay {{.amount}}",
			"templates/fee.due.sms.body.tmpl": "Pay!",
			"templates/README.md":             "ignored",
			"other/x.body.tmpl":               "outside prefix",
		}},
		bucket: "bucket",
		prefix: "templates/",
	}

	got, err := b.Templates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"fee.due.body":     "Pay {{.amount}}",
		"fee.due.sms.body": "Pay!",
	}, got)
}

func TestTemplateName(t *testing.T) {
	name, ok := templateName("templates/", "templates/nested/general.body.tmpl")
	assert.True(t, ok)
	assert.Equal(t, "general.body", name)

	_, ok = templateName("templates/", "templates/.tmpl")
	assert.False(t, ok)
}
