package notification

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridMailer Mailer using the SendGrid v3 API
type SendGridMailer struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	baseURL    string
}

var _ Mailer = &SendGridMailer{}

// NewSendGridMailer baseURL is prepended to relative notification links
func NewSendGridMailer(key, appName, fromEmail, baseURL string) *SendGridMailer {
	return &SendGridMailer{
		key:        key,
		host:       sendGridHost,
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
		baseURL:    baseURL,
	}
}

func (sm *SendGridMailer) message(toEmail, toName string, n *Notification) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = sm.subjPrefix + n.Title
	p.AddTos(sgmail.NewEmail(toName, toEmail))

	textBody := n.Message
	htmlBody := "<p>" + html.EscapeString(n.Message) + "</p>"
	if n.Link != "" {
		link := sm.baseURL + n.Link
		textBody += "\n\n" + link
		htmlBody += fmt.Sprintf(`<p><a href="%s">%s</a></p>`, html.EscapeString(link), html.EscapeString(link))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sm.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", textBody),
		sgmail.NewContent("text/html", htmlBody),
	)
	return m
}

// Send deliver n to toEmail
func (sm *SendGridMailer) Send(ctx context.Context, toEmail, toName string, n *Notification) error {
	req := sendgrid.GetRequest(sm.key, sendGridEndpoint, sm.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(sm.message(toEmail, toName, n))

	res, err := sendgrid.API(req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
