package mail_test

import (
	"context"
	"html/template"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantnet/plantnet-server/pkg/mail"
)

func TestRawHeaders(t *testing.T) {
	raw := string(mail.Message{
		To:      []string{"buyer@plants.example"},
		Subject: "Receipt\r\nBcc: victim@example.com",
		Body:    "<p>thanks</p>",
		HTML:    true,
	}.Raw("PlantNet <orders@plantnet.app>"))

	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, head, "To: buyer@plants.example\r\n")
	assert.Contains(t, head, `Content-Type: text/html; charset="UTF-8"`)
	assert.NotContains(t, head, "\r\nBcc:")
	assert.Equal(t, "<p>thanks</p>", body)
}

func TestRender(t *testing.T) {
	tmpl := template.Must(template.New("receipt").Parse(`<p>{{.Name}}</p>`))
	out, err := mail.Render(tmpl, map[string]string{"Name": "<Fern>"})
	require.NoError(t, err)
	assert.Equal(t, "<p>&lt;Fern&gt;</p>", out)
}

func TestSMTPMailerRequiresCredentials(t *testing.T) {
	err := mail.NewSMTPMailer(mail.SMTP{Host: "localhost", Port: "2525"}).
		Send(context.Background(), mail.Message{To: []string{"a@b.co"}})
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	var m mail.Mailer = mail.LogMailer{}
	assert.NoError(t, m.Send(context.Background(), mail.Message{To: []string{"a@b.co"}, Subject: "hi"}))
}
