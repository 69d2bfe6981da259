package smtp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/school-notify/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage_Headers(t *testing.T) {
	msg := string(buildMessage("noreply@school.test", "a@b.test", "Fee\ndue", "Pay now", "<x@h>"))
	assert.True(t, strings.HasPrefix(msg, "From: noreply@school.test\r\nTo: a@b.test\r\nSubject: Fee due\r\nMessage-ID: <x@h>\r\n"))
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nPay now"))
}

func TestSendEmail_DialFailureHonoursContext(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "127.0.0.1", SMTPPort: "1"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := m.SendEmail(ctx, "a@b.test", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial smtp")
}
