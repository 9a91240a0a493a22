package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"gorm.io/gorm"

	"riseagain/config"
	"riseagain/models"
)

// InboxWorker polls the company mailbox over IMAP and routes replies from
// known contacts into their conversations.
type InboxWorker struct {
	db     *gorm.DB
	cfg    config.IMAPConfig
	logger *log.Logger
}

func NewInboxWorker(db *gorm.DB, cfg config.IMAPConfig, logger *log.Logger) *InboxWorker {
	return &InboxWorker{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

func (iw *InboxWorker) Start(ctx context.Context) {
	if !iw.cfg.Enabled {
		iw.logger.Println("IMAP not configured, inbox worker idle")
		return
	}

	iw.logger.Println("Starting inbox worker...")
	ticker := time.NewTicker(5 * time.Minute)

	for {
		select {
		case <-ticker.C:
			if err := iw.fetchUnseen(); err != nil {
				iw.logger.Printf("Inbox fetch failed: %v", err)
			}
		case <-ctx.Done():
			iw.logger.Println("Stopping inbox worker...")
			ticker.Stop()
			return
		}
	}
}

func (iw *InboxWorker) fetchUnseen() error {
	imapClient, err := iw.dial()
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %v", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(iw.cfg.Username, iw.cfg.Password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %v", err)
	}

	mailbox := iw.cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := imapClient.Select(mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %v", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	for msg := range messages {
		if err := iw.ingestMessage(msg); err != nil {
			iw.logger.Printf("Failed to process message %d: %v", msg.SeqNum, err)
			continue
		}
	}

	if err := <-done; err != nil {
		return fmt.Errorf("error during fetch: %v", err)
	}
	return nil
}

func (iw *InboxWorker) dial() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", iw.cfg.Host, iw.cfg.Port)

	switch strings.ToUpper(iw.cfg.Encryption) {
	case "SSL", "TLS":
		return client.DialTLS(addr, &tls.Config{
			ServerName: iw.cfg.Host,
		})
	case "STARTTLS":
		c, err := client.Dial(addr)
		if err != nil {
			return nil, err
		}
		if err := c.StartTLS(&tls.Config{ServerName: iw.cfg.Host}); err != nil {
			return nil, err
		}
		return c, nil
	}
	return client.Dial(addr)
}

func (iw *InboxWorker) ingestMessage(msg *imap.Message) error {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return fmt.Errorf("message envelope missing sender")
	}
	from := msg.Envelope.From[0]
	fromEmail := strings.ToLower(fmt.Sprintf("%s@%s", from.MailboxName, from.HostName))
	fromName := from.PersonalName

	bodyText, err := extractPlainBody(msg)
	if err != nil {
		return err
	}

	_, err = models.IngestContactFormMessage(iw.db, models.ContactFormInput{
		Source:   models.SourceEmailWebhook,
		FullName: fromName,
		Email:    fromEmail,
		Subject:  msg.Envelope.Subject,
		BodyText: bodyText,
	})
	if err != nil {
		return fmt.Errorf("failed to ingest mail from %s: %v", fromEmail, err)
	}

	iw.logger.Printf("✅ Ingested reply from %s", fromEmail)
	return nil
}

func extractPlainBody(msg *imap.Message) (string, error) {
	if msg.Body == nil {
		return "", nil
	}
	// The Body map is keyed by pointers the fetch allocated; GetBody
	// resolves the section by value.
	section := imap.BodySectionName{}
	literal := msg.GetBody(&section)
	if literal == nil {
		return "", fmt.Errorf("message body not found")
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return "", fmt.Errorf("failed to create message reader: %v", err)
	}

	var bodyText, bodyHTML string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", fmt.Errorf("failed to read next part: %v", err)
		}

		if h, ok := p.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return "", fmt.Errorf("failed to read body: %v", err)
			}
			if strings.Contains(contentType, "text/plain") {
				bodyText = string(b)
			} else if strings.Contains(contentType, "text/html") {
				bodyHTML = string(b)
			}
		}
	}

	if bodyText != "" {
		return bodyText, nil
	}
	return bodyHTML, nil
}
