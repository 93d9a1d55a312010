package utils

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"storefront-backend/logger"
	"storefront-backend/models"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	Config EmailConfig
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	config := m.Config
	if config.Host == "" || config.Port == "" || config.From == "" {
		return fmt.Errorf("SMTP not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		config.From, to, subject)
	msg := []byte(headers + htmlBody)

	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	addr := config.Host + ":" + config.Port
	return smtp.SendMail(addr, auth, config.From, []string{to}, msg)
}

type sendgridSender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridMailer struct {
	APIKey string
	From   string
	client sendgridSender
}

func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{APIKey: apiKey, From: from, client: sendgrid.NewSendClient(apiKey)}
}

func (m *SendGridMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.APIKey == "" {
		return fmt.Errorf("sendgrid api key is empty")
	}
	if m.From == "" {
		return fmt.Errorf("from address is empty")
	}
	if to == "" {
		return fmt.Errorf("to address is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	message := mail.NewSingleEmail(
		mail.NewEmail("Storefront", m.From),
		subject,
		mail.NewEmail("", to),
		"",
		htmlBody,
	)

	response, err := m.client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}
	return nil
}

// NewMailer picks the delivery backend by provider name. Unknown names fall back to SMTP.
func NewMailer(provider, sendgridAPIKey string, smtpConfig EmailConfig) Mailer {
	if strings.EqualFold(provider, "sendgrid") {
		return NewSendGridMailer(sendgridAPIKey, smtpConfig.From)
	}
	return &SMTPMailer{Config: smtpConfig}
}

func ContactEmailBody(msg models.ContactMessage) string {
	row := func(label, value string) string {
		if value == "" {
			return ""
		}
		return fmt.Sprintf("<p style=\"margin:5px 0;\"><strong>%s:</strong> %s</p>\n", label, html.EscapeString(value))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>New contact message #%s</h2>\n", html.EscapeString(msg.Reference))
	b.WriteString(row("Name", msg.FullName))
	b.WriteString(row("Email", msg.Email))
	b.WriteString(row("Address", msg.HouseAddress))
	b.WriteString(row("Country", msg.Country))
	b.WriteString(row("Phone", msg.PhoneNumber))
	b.WriteString(row("WhatsApp", msg.WhatsappNumber))
	fmt.Fprintf(&b, "<p>%s</p>\n", strings.ReplaceAll(html.EscapeString(msg.Message), "\n", "<br>"))
	return b.String()
}

// SendContactNotification forwards msg to inbox in the background.
// The returned channel receives the delivery result and is then closed.
func SendContactNotification(mailer Mailer, log *logger.Logger, inbox string, msg models.ContactMessage) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		ctx = log.WithField(ctx, "contact_reference", msg.Reference)

		if mailer == nil || inbox == "" {
			log.Warn(ctx, "contact message not forwarded: no mailer or inbox configured")
			done <- fmt.Errorf("contact forwarding not configured")
			return
		}

		subject := fmt.Sprintf("Contact #%s from %s", msg.Reference, msg.FullName)
		err := mailer.Send(ctx, inbox, subject, ContactEmailBody(msg))
		if err != nil {
			log.Error(ctx, "failed to send contact message", err)
		} else {
			log.Info(ctx, "contact message forwarded")
		}
		done <- err
	}()
	return done
}
