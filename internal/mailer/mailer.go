// Package mailer delivers application emails over SMTP.
package mailer

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/applymail/applymail/internal/config"
	"github.com/applymail/applymail/internal/models"
)

// Attachment is a fully resolved attachment, ready to be written to the wire.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Message is one outbound email.
type Message struct {
	FromName    string
	FromAddress string
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Dialer abstracts the SMTP connection so tests can substitute a fake.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// DialerFactory builds a dialer for the given SMTP credentials. A new dialer
// is created per send because credentials vary per user.
type DialerFactory func(cfg config.SMTPConfig) Dialer

func defaultDialerFactory(cfg config.SMTPConfig) Dialer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	// port 465 means implicit TLS
	d.SSL = cfg.Port == 465
	return d
}

// Mailer sends emails over SMTP, or simulates delivery under dry-run.
type Mailer struct {
	dial DialerFactory
}

// New creates a mailer using the real SMTP dialer.
func New() *Mailer {
	return &Mailer{dial: defaultDialerFactory}
}

// NewWithDialer creates a mailer with a custom dialer factory, for tests.
func NewWithDialer(factory DialerFactory) *Mailer {
	return &Mailer{dial: factory}
}

// Send delivers msg using cfg and returns the message id. Under dry-run no
// connection is made and the fixed dry-run id is returned.
func (m *Mailer) Send(cfg config.SMTPConfig, msg Message, dryRun bool) (string, error) {
	if dryRun {
		return models.DryRunMessageID, nil
	}

	if !cfg.IsComplete() {
		return "", fmt.Errorf("smtp configuration is missing: set SMTP_HOST/SMTP_PORT/SMTP_USER/SMTP_PASS or use dryRun")
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), cfg.Host)

	gm := gomail.NewMessage()
	gm.SetHeader("Message-ID", messageID)
	from := msg.FromAddress
	if from == "" {
		from = cfg.User
	}
	if msg.FromName != "" {
		gm.SetAddressHeader("From", from, msg.FromName)
	} else {
		gm.SetHeader("From", from)
	}
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		gm.AddAlternative("text/html", msg.HTML)
	}

	for _, att := range msg.Attachments {
		content := att.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {att.ContentType},
			}))
		}
		gm.Attach(att.Filename, settings...)
	}

	if err := m.dial(cfg).DialAndSend(gm); err != nil {
		return "", fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	return messageID, nil
}
