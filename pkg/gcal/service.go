package gcal

import (
	"context"
	"fmt"
	"time"

	syncdomain "traction-backend/internal/sync/domain"
	"traction-backend/pkg/googleauth"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const providerName = "google-calendar"

// Service fetches and normalizes Google Calendar events for a sync window.
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

func (s *Service) calendarService(ctx context.Context, creds syncdomain.Credentials) (*calendar.Service, error) {
	client := googleauth.HTTPClient(ctx, s.clientID, s.clientSecret, creds)
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}
	return srv, nil
}

// FetchEvents pages through the primary calendar inside the window.
// Malformed single events land in RecordErrors, never abort the fetch.
func (s *Service) FetchEvents(ctx context.Context, creds syncdomain.Credentials, window syncdomain.Window, pageSize int64) (*syncdomain.EventFetchResult, error) {
	srv, err := s.calendarService(ctx, creds)
	if err != nil {
		return nil, err
	}

	if pageSize <= 0 {
		pageSize = 100
	}
	if pageSize > 2500 {
		pageSize = 2500 // Calendar API maximum
	}

	result := &syncdomain.EventFetchResult{}
	pageToken := ""
	for {
		call := srv.Events.List("primary").
			TimeMin(window.Start.Format(time.RFC3339)).
			TimeMax(window.End.Format(time.RFC3339)).
			SingleEvents(true).
			ShowDeleted(false).
			MaxResults(pageSize).
			OrderBy("startTime").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list events: %w", err)
		}

		for _, item := range resp.Items {
			ev, perr := parseEvent(item)
			if perr != nil {
				result.RecordErrors = append(result.RecordErrors, perr)
				continue
			}
			result.Events = append(result.Events, ev)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return result, nil
}

// parseEvent normalizes one calendar event. Optional fields resolve to
// empty values; an event without a start time is a ParseError.
func parseEvent(item *calendar.Event) (syncdomain.NormalizedEvent, error) {
	if item == nil || item.Id == "" {
		return syncdomain.NormalizedEvent{}, &syncdomain.ParseError{Reason: "missing event id"}
	}

	start, ok := parseEventTime(item.Start)
	if !ok {
		return syncdomain.NormalizedEvent{}, &syncdomain.ParseError{RecordID: item.Id, Reason: "no usable start time"}
	}
	end, _ := parseEventTime(item.End)

	var attendees []string
	for _, att := range item.Attendees {
		if att != nil && att.Email != "" {
			attendees = append(attendees, att.Email)
		}
	}

	return syncdomain.NormalizedEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Start:       start,
		End:         end,
		Attendees:   attendees,
		MeetingLink: item.HangoutLink,
		HTMLLink:    item.HtmlLink,
	}, nil
}

// parseEventTime handles both timed (DateTime) and all-day (Date) events.
func parseEventTime(t *calendar.EventDateTime) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	if t.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return parsed.UTC(), true
		}
	}
	if t.Date != "" {
		if parsed, err := time.Parse("2006-01-02", t.Date); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}
