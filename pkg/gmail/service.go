package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"

	syncdomain "traction-backend/internal/sync/domain"
	"traction-backend/pkg/googleauth"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	providerName   = "gmail"
	snippetMaxLen  = 200
	getConcurrency = 10 // max concurrent Messages.Get calls
)

// Service fetches and normalizes Gmail messages for a sync window.
type Service struct {
	clientID     string
	clientSecret string
	logger       *logrus.Logger
}

// NewService creates a new instance of Service
func NewService(clientID, clientSecret string, logger *logrus.Logger) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
	}
}

func (s *Service) Name() string {
	return providerName
}

func (s *Service) gmailService(ctx context.Context, creds syncdomain.Credentials) (*gmail.Service, error) {
	client := googleauth.HTTPClient(ctx, s.clientID, s.clientSecret, creds)
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// FetchMessages lists every message id inside the window, then fetches full
// payloads in parallel under a small semaphore. Credential failures are
// returned as the fatal error; per-message failures land in RecordErrors.
func (s *Service) FetchMessages(ctx context.Context, creds syncdomain.Credentials, window syncdomain.Window, pageSize int64) (*syncdomain.MessageFetchResult, error) {
	srv, err := s.gmailService(ctx, creds)
	if err != nil {
		return nil, err
	}

	if pageSize <= 0 {
		pageSize = 100
	}
	if pageSize > 500 {
		pageSize = 500 // Gmail API maximum
	}

	// Gmail date query operates on epoch seconds.
	query := fmt.Sprintf("after:%d before:%d", window.Start.Unix(), window.End.Unix())

	var ids []string
	pageToken := ""
	for {
		call := srv.Users.Messages.List("me").Q(query).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list messages: %w", err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	result := &syncdomain.MessageFetchResult{}
	if len(ids) == 0 {
		return result, nil
	}

	type fetchResult struct {
		msg syncdomain.NormalizedMessage
		err error
	}
	resultChan := make(chan fetchResult, len(ids))
	semaphore := make(chan struct{}, getConcurrency)

	for _, id := range ids {
		go func(msgID string) {
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			full, err := srv.Users.Messages.Get("me", msgID).Format("full").Context(ctx).Do()
			if err != nil {
				resultChan <- fetchResult{err: fmt.Errorf("unable to retrieve message %s: %w", msgID, err)}
				return
			}
			msg, err := parseMessage(full)
			if err != nil {
				resultChan <- fetchResult{err: err}
				return
			}
			resultChan <- fetchResult{msg: msg}
		}(id)
	}

	for range ids {
		r := <-resultChan
		if r.err != nil {
			classified := syncdomain.ClassifyProviderError(r.err)
			if errors.Is(classified, syncdomain.ErrCredential) {
				return nil, classified
			}
			result.RecordErrors = append(result.RecordErrors, r.err)
			continue
		}
		result.Messages = append(result.Messages, r.msg)
	}

	// Parallel fetching returns messages in arbitrary order.
	sort.Slice(result.Messages, func(i, j int) bool {
		return result.Messages[i].Timestamp.After(result.Messages[j].Timestamp)
	})

	return result, nil
}

// parseMessage normalizes one Gmail payload. Missing optional fields resolve
// to empty values; only a payload we cannot read at all is a ParseError.
func parseMessage(msg *gmail.Message) (syncdomain.NormalizedMessage, error) {
	if msg == nil || msg.Payload == nil {
		id := ""
		if msg != nil {
			id = msg.Id
		}
		return syncdomain.NormalizedMessage{}, &syncdomain.ParseError{RecordID: id, Reason: "missing payload"}
	}

	from := getHeader(msg.Payload.Headers, "From")
	fromName, fromEmail := splitAddress(from)
	to := parseAddressList(getHeader(msg.Payload.Headers, "To"))

	timestamp := time.Time{}
	if msg.InternalDate > 0 {
		timestamp = time.Unix(msg.InternalDate/1000, 0).UTC()
	} else if date := getHeader(msg.Payload.Headers, "Date"); date != "" {
		if parsed, err := mail.ParseDate(date); err == nil {
			timestamp = parsed.UTC()
		}
	}
	if timestamp.IsZero() {
		return syncdomain.NormalizedMessage{}, &syncdomain.ParseError{RecordID: msg.Id, Reason: "no usable timestamp"}
	}

	snippet := strings.TrimSpace(msg.Snippet)
	if snippet == "" {
		snippet = snippetFromPayload(msg.Payload)
	}

	return syncdomain.NormalizedMessage{
		ID:        msg.Id,
		ThreadID:  msg.ThreadId,
		Subject:   getHeader(msg.Payload.Headers, "Subject"),
		FromName:  fromName,
		FromEmail: fromEmail,
		To:        to,
		Timestamp: timestamp,
		Snippet:   snippet,
		Labels:    msg.LabelIds,
	}, nil
}

// getHeader extracts a header value case-insensitively.
func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// splitAddress breaks "Name <email@example.com>" into its parts.
func splitAddress(raw string) (name, email string) {
	if raw == "" {
		return "", ""
	}
	if addr, err := mail.ParseAddress(raw); err == nil {
		return addr.Name, addr.Address
	}
	// Malformed header: salvage what we can.
	if idx := strings.Index(raw, "<"); idx >= 0 {
		name = strings.TrimSpace(raw[:idx])
		email = strings.Trim(strings.TrimSpace(raw[idx:]), "<>")
		return name, email
	}
	if strings.Contains(raw, "@") {
		return "", strings.TrimSpace(raw)
	}
	return strings.TrimSpace(raw), ""
}

// parseAddressList extracts plain addresses from a To header.
func parseAddressList(raw string) []string {
	if raw == "" {
		return nil
	}
	if addrs, err := mail.ParseAddressList(raw); err == nil {
		out := make([]string, 0, len(addrs))
		for _, a := range addrs {
			out = append(out, a.Address)
		}
		return out
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		_, email := splitAddress(strings.TrimSpace(part))
		if email != "" {
			out = append(out, email)
		}
	}
	return out
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// snippetFromPayload derives a short plain-text preview from the message
// body when the provider snippet is absent.
func snippetFromPayload(payload *gmail.MessagePart) string {
	body, isHTML := getBody(payload)
	preview := body

	if isHTML {
		preview = htmlTagRe.ReplaceAllString(preview, " ")
		preview = strings.ReplaceAll(preview, "&nbsp;", " ")
		preview = strings.ReplaceAll(preview, "&lt;", "<")
		preview = strings.ReplaceAll(preview, "&gt;", ">")
		preview = strings.ReplaceAll(preview, "&amp;", "&")
		preview = strings.ReplaceAll(preview, "&quot;", "\"")
	}

	// Collapse multiple spaces into one
	preview = strings.Join(strings.Fields(preview), " ")

	if len(preview) > snippetMaxLen {
		preview = preview[:snippetMaxLen] + "..."
	}
	return preview
}

func getBody(payload *gmail.MessagePart) (string, bool) {
	// If the payload itself is the body
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.MimeType == "text/plain" || part.MimeType == "text/html" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						if part.MimeType == "text/html" {
							htmlBody = string(data)
						} else {
							plainBody = string(data)
						}
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	if plainBody != "" {
		return plainBody, false
	}
	return htmlBody, htmlBody != ""
}
