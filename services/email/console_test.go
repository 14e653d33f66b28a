package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PWRApex/english-prep-companion/core"
)

var testConf = &core.Config{
	AppName:          "English Prep Companion",
	FrontendBaseURL:  "http://localhost:8080",
	DefaultFromEmail: "English Prep <noreply@test.io>",
}

func TestConsoleService_send(t *testing.T) {
	var out bytes.Buffer
	svc := newConsoleService(testConf, nil, &out)

	ok := svc.sendMessage(&core.EmailMessage{
		To:           []mail.Address{{Name: "Joe Doe", Address: "joe@test.io"}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{"Name": "Joe Doe", "Link": "http://localhost:8080/reset-password?token=abc", "ValidDays": 3},
	})
	require.True(t, ok)

	printed := out.String()
	assert.Contains(t, printed, "From: \"English Prep\" <noreply@test.io>")
	assert.Contains(t, printed, "Subject: [English Prep Companion] Password Reset")
	assert.Contains(t, printed, "To: \"Joe Doe\" <joe@test.io>")
	assert.Contains(t, printed, "http://localhost:8080/reset-password?token=abc")
	assert.Contains(t, printed, "text/html")
}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(testConf)

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "joe@test.io"}}, Subject: "Hi", BodyStr: "plain body"},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "jane@test.io"}}, Subject: "Welcome!", TemplateName: "welcome", TemplateData: map[string]interface{}{"Name": "Jane"}},
		&core.EmailMessage{To: []mail.Address{{Address: "jane@test.io"}}, TemplateName: "unknown"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "plain body", sent[0].TextContent)
	assert.Empty(t, sent[0].HTMLContent)
	assert.True(t, strings.HasPrefix(sent[1].TextContent, "Welcome Jane!"))
	assert.Contains(t, sent[1].HTMLContent, "http://localhost:8080")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}
