package gcal

import (
	"errors"
	"testing"
	"time"

	syncdomain "traction-backend/internal/sync/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
)

func TestParseEvent(t *testing.T) {
	item := &calendar.Event{
		Id:      "e1",
		Summary: "Pipeline review",
		Start:   &calendar.EventDateTime{DateTime: "2025-06-02T10:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2025-06-02T11:00:00Z"},
		Attendees: []*calendar.EventAttendee{
			{Email: "jane@acme.com"},
			{Email: ""},
			nil,
			{Email: "bob@globex.com"},
		},
		HangoutLink: "https://meet.example/abc",
		HtmlLink:    "https://calendar.example/e1",
	}

	ev, err := parseEvent(item)

	require.NoError(t, err)
	assert.Equal(t, "e1", ev.ID)
	assert.Equal(t, "Pipeline review", ev.Title)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC), ev.End)
	assert.Equal(t, []string{"jane@acme.com", "bob@globex.com"}, ev.Attendees)
	assert.Equal(t, "https://meet.example/abc", ev.MeetingLink)
	assert.Equal(t, "https://calendar.example/e1", ev.HTMLLink)
}

func TestParseEventAllDay(t *testing.T) {
	item := &calendar.Event{
		Id:    "e2",
		Start: &calendar.EventDateTime{Date: "2025-06-02"},
	}

	ev, err := parseEvent(item)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), ev.Start)
	assert.True(t, ev.End.IsZero())
}

func TestParseEventMissingIDIsParseError(t *testing.T) {
	_, err := parseEvent(&calendar.Event{})

	var parseErr *syncdomain.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestParseEventMissingStartIsParseError(t *testing.T) {
	_, err := parseEvent(&calendar.Event{Id: "e3"})

	var parseErr *syncdomain.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "e3", parseErr.RecordID)
}

func TestParseEventTime(t *testing.T) {
	_, ok := parseEventTime(nil)
	assert.False(t, ok)

	_, ok = parseEventTime(&calendar.EventDateTime{DateTime: "not-a-time"})
	assert.False(t, ok)

	parsed, ok := parseEventTime(&calendar.EventDateTime{DateTime: "2025-06-02T10:00:00+02:00"})
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC), parsed)
}
