package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"

	syncdomain "traction-backend/internal/sync/domain"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
)

const (
	providerName  = "imap"
	snippetMaxLen = 200
)

// Service is an alternate message provider for non-Google mailboxes. The
// account credentials come from configuration, not from the caller's bearer
// credential.
type Service struct {
	host     string
	port     int
	username string
	password string
	logger   *logrus.Logger
}

// NewService creates a new instance of Service
func NewService(host string, port int, username, password string, logger *logrus.Logger) *Service {
	return &Service{
		host:     host,
		port:     port,
		username: username,
		password: password,
		logger:   logger,
	}
}

func (s *Service) Name() string {
	return providerName
}

// FetchMessages searches INBOX for the window and normalizes each message.
// A failed login is a credential failure; connection problems are left to
// the caller's transient classification.
func (s *Service) FetchMessages(ctx context.Context, _ syncdomain.Credentials, window syncdomain.Window, pageSize int64) (*syncdomain.MessageFetchResult, error) {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	c, err := client.DialTLS(addr, &tls.Config{
		ServerName: s.host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to connect to IMAP server: %w", err)
	}
	defer c.Logout() //nolint:errcheck

	if err := c.Login(s.username, s.password); err != nil {
		return nil, fmt.Errorf("%w: imap login failed: %v", syncdomain.ErrCredential, err)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("unable to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = window.Start
	criteria.Before = window.End
	ids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("unable to search messages: %w", err)
	}

	result := &syncdomain.MessageFetchResult{}
	if len(ids) == 0 {
		return result, nil
	}
	if pageSize > 0 && int64(len(ids)) > pageSize {
		ids = ids[int64(len(ids))-pageSize:] // newest UIDs last
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchFlags, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	for msg := range messages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		normalized, perr := parseIMAPMessage(msg, section)
		if perr != nil {
			result.RecordErrors = append(result.RecordErrors, perr)
			continue
		}
		result.Messages = append(result.Messages, normalized)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("unable to fetch messages: %w", err)
	}
	return result, nil
}

func parseIMAPMessage(msg *imap.Message, section *imap.BodySectionName) (syncdomain.NormalizedMessage, error) {
	if msg == nil || msg.Envelope == nil {
		return syncdomain.NormalizedMessage{}, &syncdomain.ParseError{Reason: "missing envelope"}
	}
	env := msg.Envelope

	id := env.MessageId
	if id == "" {
		id = fmt.Sprintf("uid-%d", msg.Uid)
	}
	if env.Date.IsZero() {
		return syncdomain.NormalizedMessage{}, &syncdomain.ParseError{RecordID: id, Reason: "no usable timestamp"}
	}

	fromName, fromEmail := "", ""
	if len(env.From) > 0 && env.From[0] != nil {
		fromName = env.From[0].PersonalName
		fromEmail = env.From[0].Address()
	}

	var to []string
	for _, addr := range env.To {
		if addr != nil && addr.MailboxName != "" && addr.HostName != "" {
			to = append(to, addr.Address())
		}
	}

	return syncdomain.NormalizedMessage{
		ID:        id,
		Subject:   env.Subject,
		FromName:  fromName,
		FromEmail: fromEmail,
		To:        to,
		Timestamp: env.Date.UTC(),
		Snippet:   snippetFromBody(msg.GetBody(section)),
	}, nil
}

// snippetFromBody pulls the first text part out of the raw message.
func snippetFromBody(literal imap.Literal) string {
	if literal == nil {
		return ""
	}
	mr, err := mail.CreateReader(literal)
	if err != nil {
		return ""
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}
		if _, ok := part.Header.(*mail.InlineHeader); ok {
			body, err := io.ReadAll(io.LimitReader(part.Body, 4096))
			if err != nil {
				return ""
			}
			preview := strings.Join(strings.Fields(string(body)), " ")
			if len(preview) > snippetMaxLen {
				preview = preview[:snippetMaxLen] + "..."
			}
			return preview
		}
	}
}
