package emailsvc

import (
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classroom/core"
	logsvc "github.com/trezcool/classroom/services/logger"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	if err := core.ParseEmailTemplates(true); err != nil {
		t.Fatalf("ParseEmailTemplates() failed: %v", err)
	}
	conf := &core.Config{Env: "TEST", TestMode: true, AppName: "Classroom", FrontendBaseURL: "http://localhost:8080"}
	svc := NewConsoleServiceMock(conf, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf))
	to := []mail.Address{{Name: "Ada", Address: "ada@test.com"}}

	ResetSentMessages()
	svc.SendMessages(
		&core.EmailMessage{To: to, Subject: "Plain", BodyStr: "hello"},
		&core.EmailMessage{Subject: "Nobody", BodyStr: "dropped"},
		&core.EmailMessage{To: to, Subject: "Empty"},
		&core.EmailMessage{
			To:           to,
			Subject:      "Welcome!",
			TemplateName: "welcome",
			TemplateData: map[string]interface{}{"FirstName": "Ada", "Username": "ada", "Role": "teacher"},
		},
	)

	msgs := SentMessages()
	if !assert.Len(t, msgs, 2) {
		return
	}
	assert.Equal(t, "hello", msgs[0].TextContent)
	assert.Empty(t, msgs[0].HTMLContent)

	assert.Contains(t, msgs[1].TextContent, "Hi Ada,")
	assert.Contains(t, msgs[1].TextContent, "http://localhost:8080/login")
	assert.NotEmpty(t, msgs[1].HTMLContent)

	ResetSentMessages()
	assert.Empty(t, SentMessages())
}
