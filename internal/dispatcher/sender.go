package dispatcher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/applymail/applymail/internal/config"
	"github.com/applymail/applymail/internal/logger"
	"github.com/applymail/applymail/internal/mailer"
	"github.com/applymail/applymail/internal/models"
	"github.com/applymail/applymail/internal/repository"
	"github.com/applymail/applymail/internal/template"
)

// MailSender delivers one email. Implemented by mailer.Mailer.
type MailSender interface {
	Send(cfg config.SMTPConfig, msg mailer.Message, dryRun bool) (string, error)
}

// RecordAppender appends one row to the application record log.
type RecordAppender interface {
	Append(record models.ApplicationRecord) error
}

// UserStore resolves the authenticated user's stored profile.
type UserStore interface {
	FindByID(id string) (*models.UserAccount, error)
}

// SecretDecrypter decrypts a stored SMTP app-password.
type SecretDecrypter interface {
	Decrypt(encrypted string) (string, error)
}

// SendOptions are the resolved options for one application send.
type SendOptions struct {
	// UserID identifies the authenticated user whose profile, CV and SMTP
	// credentials act as fallbacks. Empty means anonymous (dry-run tooling).
	UserID string

	// DryRun simulates delivery without contacting a mail provider.
	DryRun bool

	// RecipientDelay is the pause between consecutive recipients of the
	// same application. Distinct from the batch-level inter-item delay.
	RecipientDelay time.Duration
}

// ApplicationSender sends one application to each of its recipients and logs
// every attempt. Recipients are processed strictly in order; a failure on one
// never stops the rest.
type ApplicationSender struct {
	mail    MailSender
	records RecordAppender
	users   UserStore
	secrets SecretDecrypter
	cfg     *config.Config
	log     *logger.Logger

	// sleep is replaceable in tests
	sleep func(time.Duration)
}

// NewApplicationSender creates an ApplicationSender.
func NewApplicationSender(
	mail MailSender,
	records RecordAppender,
	users UserStore,
	secrets SecretDecrypter,
	cfg *config.Config,
) *ApplicationSender {
	return &ApplicationSender{
		mail:    mail,
		records: records,
		users:   users,
		secrets: secrets,
		cfg:     cfg,
		log:     logger.Get(),
		sleep:   time.Sleep,
	}
}

// ExpandRecipients splits a comma-separated address field into individual
// send targets: trimmed, empties dropped, duplicates removed, order kept.
func ExpandRecipients(to string) []string {
	seen := make(map[string]bool)
	var recipients []string
	for _, part := range strings.Split(to, ",") {
		addr := strings.TrimSpace(part)
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		recipients = append(recipients, addr)
	}
	return recipients
}

// Send processes one application: expands recipients, resolves body,
// attachment and credentials, then attempts delivery per recipient, appending
// exactly one record per attempt. index is the application's position in the
// batch, echoed into each result.
func (s *ApplicationSender) Send(ctx context.Context, app models.ApplicationRequest, index int, opts SendOptions) ([]models.SendResult, error) {
	recipients := ExpandRecipients(app.To)
	if len(recipients) == 0 {
		return nil, &ValidationError{Msg: "no recipients: the to field is empty"}
	}

	user := s.resolveUser(opts.UserID)
	email := s.resolveBody(app, user)
	attachments, fatalErr := s.resolveAttachments(app, user, opts.DryRun)

	var smtpCfg config.SMTPConfig
	if fatalErr == nil {
		smtpCfg, fatalErr = s.resolveCredentials(user, opts.DryRun)
	}

	fromName, fromAddress := s.resolveSender(app, user)

	results := make([]models.SendResult, 0, len(recipients))
	for i, recipient := range recipients {
		result := models.SendResult{Index: index, To: recipient}

		if fatalErr != nil {
			result.Status = models.SendStatusFailed
			result.Error = fatalErr.Error()
		} else {
			msg := mailer.Message{
				FromName:    fromName,
				FromAddress: fromAddress,
				To:          recipient,
				Subject:     email.Subject,
				Text:        email.Text,
				HTML:        email.HTML,
				Attachments: attachments,
			}
			info, err := s.mail.Send(smtpCfg, msg, opts.DryRun)
			if err != nil {
				deliveryErr := &DeliveryError{Recipient: recipient, Err: err}
				s.log.Error().Err(deliveryErr).Str("to", recipient).Msg("send failed")
				result.Status = models.SendStatusFailed
				result.Error = deliveryErr.Error()
			} else {
				result.Status = models.SendStatusSent
				result.Info = info
			}
		}

		s.appendRecord(app, result)
		results = append(results, result)

		// pace between recipients, never after the last
		if fatalErr == nil && i < len(recipients)-1 && opts.RecipientDelay > 0 {
			s.sleep(opts.RecipientDelay)
		}
	}

	return results, nil
}

// resolveUser returns the stored account for id, or nil when unavailable.
func (s *ApplicationSender) resolveUser(id string) *models.UserAccount {
	if id == "" || s.users == nil {
		return nil
	}
	user, err := s.users.FindByID(id)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			s.log.Error().Err(err).Str("user_id", id).Msg("user lookup failed")
		}
		return nil
	}
	return user
}

// resolveBody returns the caller-supplied body when any part of it is set,
// otherwise builds the template from the job details and applicant identity.
func (s *ApplicationSender) resolveBody(app models.ApplicationRequest, user *models.UserAccount) template.Email {
	if app.Subject != "" || app.Text != "" || app.HTML != "" {
		return template.Email{Subject: app.Subject, Text: app.Text, HTML: app.HTML}
	}
	return template.Build(app.Company, app.Position, app.Applicant, s.templateDefaults(user))
}

// templateDefaults layers the user's stored profile over the service-level
// identity defaults.
func (s *ApplicationSender) templateDefaults(user *models.UserAccount) template.Defaults {
	defaults := template.Defaults{
		Name:      s.cfg.SenderName,
		Email:     s.cfg.SenderEmail,
		Phone:     s.cfg.Phone,
		LinkedIn:  s.cfg.LinkedIn,
		Portfolio: s.cfg.Portfolio,
	}
	if user == nil {
		return defaults
	}
	if user.Name != "" {
		defaults.Name = user.Name
	}
	if user.Email != "" {
		defaults.Email = user.Email
	}
	if user.PersonalInfo.Phone != "" {
		defaults.Phone = user.PersonalInfo.Phone
	}
	if user.PersonalInfo.LinkedIn != "" {
		defaults.LinkedIn = user.PersonalInfo.LinkedIn
	}
	if user.PersonalInfo.Portfolio != "" {
		defaults.Portfolio = user.PersonalInfo.Portfolio
	}
	return defaults
}

// resolveSender picks the From identity for the message.
func (s *ApplicationSender) resolveSender(app models.ApplicationRequest, user *models.UserAccount) (name, address string) {
	name = s.cfg.SenderName
	address = s.cfg.SenderEmail
	if user != nil {
		if user.Name != "" {
			name = user.Name
		}
		if user.Email != "" {
			address = user.Email
		}
	}
	if app.Applicant != nil {
		if app.Applicant.Name != "" {
			name = app.Applicant.Name
		}
		if app.Applicant.Email != "" {
			address = app.Applicant.Email
		}
	}
	return name, address
}

// stripDataURL removes an optional "data:<type>;base64," prefix from inline
// uploads coming from the browser form.
func stripDataURL(content string) string {
	if idx := strings.Index(content, ";base64,"); idx != -1 && strings.HasPrefix(content, "data:") {
		return content[idx+len(";base64,"):]
	}
	return content
}

// resolveAttachments resolves the CV to attach. An inline base64 CV takes
// precedence, then the request's CV path, then the user's stored CV, then the
// service default. Decode and missing-file failures are skipped under dry-run
// and fatal otherwise.
func (s *ApplicationSender) resolveAttachments(app models.ApplicationRequest, user *models.UserAccount, dryRun bool) ([]mailer.Attachment, error) {
	if app.Attachment != nil {
		content, err := base64.StdEncoding.DecodeString(stripDataURL(app.Attachment.ContentBase64))
		if err != nil {
			if dryRun {
				s.log.Warn().Err(err).Msg("undecodable inline attachment skipped under dry-run")
				return nil, nil
			}
			return nil, &AttachmentError{Reason: "inline CV is not valid base64", Err: err}
		}
		return []mailer.Attachment{{
			Filename:    app.Attachment.Filename,
			Content:     content,
			ContentType: app.Attachment.ContentType,
		}}, nil
	}

	path := app.CVPath
	if path == "" && user != nil {
		path = user.CVPath
	}
	if path == "" {
		path = s.cfg.DefaultCVPath
	}
	if path == "" {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if dryRun {
			s.log.Warn().Err(err).Str("path", path).Msg("unreadable CV skipped under dry-run")
			return nil, nil
		}
		return nil, &AttachmentError{Reason: fmt.Sprintf("CV file %s is not readable", path), Err: err}
	}
	return []mailer.Attachment{{
		Filename:    filepath.Base(path),
		Content:     content,
		ContentType: "application/pdf",
	}}, nil
}

// resolveCredentials prefers the user's stored app-password over the global
// SMTP fallback. Outside dry-run, having neither is a ConfigurationError.
func (s *ApplicationSender) resolveCredentials(user *models.UserAccount, dryRun bool) (config.SMTPConfig, error) {
	if user != nil && user.SMTPConfigured && user.SMTPPassword != "" && s.secrets != nil {
		password, err := s.secrets.Decrypt(user.SMTPPassword)
		if err != nil {
			if !dryRun {
				return config.SMTPConfig{}, &ConfigurationError{Msg: "stored SMTP password cannot be decrypted"}
			}
		} else {
			cfg := config.SMTPConfig{
				Host:     s.cfg.SMTP.Host,
				Port:     s.cfg.SMTP.Port,
				User:     user.Email,
				Password: password,
			}
			if cfg.IsComplete() {
				return cfg, nil
			}
		}
	}

	if s.cfg.SMTP.IsComplete() {
		return s.cfg.SMTP, nil
	}
	if dryRun {
		return config.SMTPConfig{}, nil
	}
	return config.SMTPConfig{}, &ConfigurationError{Msg: "no usable SMTP credentials: configure an app-password or set the SMTP environment"}
}

// appendRecord writes the audit row for one attempt. Logging failures are
// reported and swallowed: the email outcome is the primary signal.
func (s *ApplicationSender) appendRecord(app models.ApplicationRequest, result models.SendResult) {
	if s.records == nil {
		return
	}

	emailSent := "Oui"
	message := result.Info
	if result.Status == models.SendStatusFailed {
		emailSent = "Non"
		message = result.Error
	}

	record := models.ApplicationRecord{
		Company:           app.Company,
		Position:          app.Position,
		Location:          app.Location,
		ContractType:      app.ContractType,
		ApplicationStatus: app.ApplicationStatus,
		AppliedAt:         app.AppliedAt,
		Website:           app.Website,
		Notes:             app.Notes,
		EmailSent:         emailSent,
		SentAt:            time.Now().UTC().Format(time.RFC3339),
		Message:           message,
	}
	if err := s.records.Append(record); err != nil {
		s.log.Error().Err(err).Str("company", app.Company).Msg("record log write failed")
	}
}
