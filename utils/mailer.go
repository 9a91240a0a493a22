package utils

import (
	"fmt"
	"io"
	"time"

	"riseagain/config"
	"riseagain/models"
	"riseagain/storage"

	"github.com/valyala/fasthttp"
	"gopkg.in/gomail.v2"
)

// Mailer delivers queued outbound messages over SMTP. Attachments are
// streamed from object storage through short-lived signed URLs.
type Mailer struct {
	cfg    config.SMTPConfig
	store  storage.ObjectStore
	dialer *gomail.Dialer
}

func NewMailer(cfg config.SMTPConfig, store storage.ObjectStore) *Mailer {
	return &Mailer{
		cfg:    cfg,
		store:  store,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendReply delivers one outbound message. Attachments that cannot be
// fetched from storage are skipped; the email still goes out.
func (m *Mailer) SendReply(msg *models.Message, attachments []models.MessageAttachment) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("SMTP is not configured")
	}
	if msg.ToEmail == "" {
		return fmt.Errorf("message %d has no recipient", msg.ID)
	}

	email := gomail.NewMessage()
	from := msg.FromEmail
	if from == "" {
		from = m.cfg.FromEmail
	}
	email.SetAddressHeader("From", from, m.cfg.FromName)
	email.SetHeader("To", msg.ToEmail)

	subject := msg.Subject
	if subject == "" {
		subject = "Message from " + m.cfg.FromName
	}
	email.SetHeader("Subject", subject)
	email.SetBody("text/plain", msg.BodyText)

	for _, att := range attachments {
		data, err := m.fetchAttachment(att)
		if err != nil {
			continue
		}
		payload := data
		email.Attach(att.FileName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(payload)
			return err
		}))
	}

	return m.dialer.DialAndSend(email)
}

func (m *Mailer) fetchAttachment(att models.MessageAttachment) ([]byte, error) {
	signedURL, err := m.store.SignedURL(att.Bucket, att.ObjectPath, 5*time.Minute)
	if err != nil {
		return nil, err
	}

	status, body, err := fasthttp.GetTimeout(nil, signedURL, 30*time.Second)
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK {
		return nil, fmt.Errorf("attachment fetch returned %d", status)
	}
	return body, nil
}
