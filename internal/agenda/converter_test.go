package agenda

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icalagenda/internal/model"
)

type sliceSource struct {
	items []sourceItem
}

type sourceItem struct {
	doc model.CalendarDocument
	err error
}

func (s *sliceSource) Next() (model.CalendarDocument, error) {
	if len(s.items) == 0 {
		return model.CalendarDocument{}, io.EOF
	}
	it := s.items[0]
	s.items = s.items[1:]
	return it.doc, it.err
}

func docs(ds ...model.CalendarDocument) *sliceSource {
	s := &sliceSource{}
	for _, d := range ds {
		s.items = append(s.items, sourceItem{doc: d})
	}
	return s
}

func doc(events ...model.EventRecord) model.CalendarDocument {
	return model.CalendarDocument{Source: "test.ics", Events: events}
}

func event(props ...model.PropertyEntry) model.EventRecord {
	return model.EventRecord{Properties: props}
}

func p(name, value string) model.PropertyEntry {
	return model.PropertyEntry{Name: name, Value: value}
}

func pp(name, value string, params map[string][]string) model.PropertyEntry {
	return model.PropertyEntry{Name: name, Value: value, Params: params}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func convert(t *testing.T, opts Options, src DocumentSource) (string, Result, error) {
	t.Helper()
	var buf bytes.Buffer
	res, err := NewConverter(opts).Convert(src, &buf)
	return buf.String(), res, err
}

func TestConvertSingleEvent(t *testing.T) {
	opts := Options{
		Days:     1,
		Location: time.UTC,
		Now:      fixedNow(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)),
	}
	src := docs(doc(event(
		p("DTSTART", "20240610T090000Z"),
		p("DTEND", "20240610T100000Z"),
		p("SUMMARY", "Standup"),
	)))

	out, res, err := convert(t, opts, src)
	require.NoError(t, err)
	assert.Equal(t, "* Standup\n  <2024-06-10 Mon 09:00>--<2024-06-10 Mon 10:00>\n\n", out)
	assert.Equal(t, 1, res.Documents)
	assert.Equal(t, 1, res.Events)
	assert.Equal(t, 1, res.Entries)
	assert.NoError(t, res.Skipped)
}

func TestConvertWideWindow(t *testing.T) {
	opts := Options{
		Days:     200000,
		Location: time.UTC,
		Now:      fixedNow(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)),
	}
	src := docs(doc(event(
		p("DTSTART", "20240610T090000Z"),
		p("DTEND", "20240610T100000Z"),
		p("SUMMARY", "Standup"),
	)))

	out, res, err := convert(t, opts, src)
	require.NoError(t, err)
	assert.Equal(t, "* Standup\n  <2024-06-10 Mon 09:00>--<2024-06-10 Mon 10:00>\n\n", out)
	assert.Equal(t, 1, res.Entries)
}

func TestConvertLocalizesToRenderingZone(t *testing.T) {
	prague, err := time.LoadLocation("Europe/Prague")
	require.NoError(t, err)

	opts := Options{
		Days:     1,
		Location: prague,
		Now:      fixedNow(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)),
	}
	src := docs(doc(event(
		p("DTSTART", "20240610T090000Z"),
		p("DTEND", "20240610T100000Z"),
		p("SUMMARY", "Standup"),
	)))

	out, _, err := convert(t, opts, src)
	require.NoError(t, err)
	assert.Equal(t, "* Standup\n  <2024-06-10 Mon 11:00>--<2024-06-10 Mon 12:00>\n\n", out)
}

func TestConvertOutsideWindow(t *testing.T) {
	opts := Options{
		Days:     1,
		Location: time.UTC,
		Now:      fixedNow(time.Date(2024, 6, 20, 8, 0, 0, 0, time.UTC)),
	}
	src := docs(doc(event(
		p("DTSTART", "20240610T090000Z"),
		p("DTEND", "20240610T100000Z"),
		p("SUMMARY", "Standup"),
	)))

	out, res, err := convert(t, opts, src)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 0, res.Entries)
}

func TestConvertZeroDaysIsEmpty(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	opts := Options{Location: time.UTC, Now: fixedNow(now)}
	src := docs(doc(event(p("DTSTART", "20240610T090000Z"), p("SUMMARY", "Now"))))

	out, _, err := convert(t, opts, src)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestConvertDeclinedSelf(t *testing.T) {
	opts := Options{
		Days:     1,
		Emails:   []string{"me@example.com"},
		Location: time.UTC,
		Now:      fixedNow(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)),
	}

	declined := event(
		p("DTSTART", "20240610T090000Z"),
		p("DTEND", "20240610T100000Z"),
		p("SUMMARY", "Skipped"),
		pp("ATTENDEE", "mailto:other@example.com", map[string][]string{
			"CN": {"other@example.com"}, "PARTSTAT": {"ACCEPTED"},
		}),
		pp("ATTENDEE", "mailto:me@example.com", map[string][]string{
			"CN": {"me@example.com"}, "PARTSTAT": {"DECLINED"},
		}),
	)
	// Self and declined on different attendees must not exclude.
	split := event(
		p("DTSTART", "20240610T110000Z"),
		p("DTEND", "20240610T120000Z"),
		p("SUMMARY", "Kept"),
		pp("ATTENDEE", "mailto:me@example.com", map[string][]string{
			"CN": {"me@example.com"}, "PARTSTAT": {"ACCEPTED"},
		}),
		pp("ATTENDEE", "mailto:other@example.com", map[string][]string{
			"CN": {"other@example.com"}, "PARTSTAT": {"DECLINED"},
		}),
	)

	out, res, err := convert(t, opts, docs(doc(declined, split)))
	require.NoError(t, err)
	assert.Equal(t, "* Kept\n  <2024-06-10 Mon 11:00>--<2024-06-10 Mon 12:00>\n\n", out)
	assert.Equal(t, 1, res.Declined)
	assert.Equal(t, 2, res.Events)
}

func TestConvertWholeDay(t *testing.T) {
	date := map[string][]string{"VALUE": {"DATE"}}
	opts := Options{
		Days:     2,
		Location: time.UTC,
		Now:      fixedNow(time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)),
	}
	src := docs(doc(
		event(pp("DTSTART", "20240610", date), pp("DTEND", "20240611", date), p("SUMMARY", "Holiday")),
		event(pp("DTSTART", "20240610", date), pp("DTEND", "20240613", date), p("SUMMARY", "Trip")),
	))

	out, _, err := convert(t, opts, src)
	require.NoError(t, err)
	assert.Equal(t,
		"* Holiday\n  <2024-06-10 Mon>\n\n"+
			"* Trip\n  <2024-06-10 Mon>--<2024-06-13 Thu>\n\n",
		out)
}

func TestConvertWeeklyRecurrence(t *testing.T) {
	opts := Options{
		Days:     14,
		Location: time.UTC,
		Now:      fixedNow(time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)),
	}
	src := docs(doc(event(
		p("DTSTART", "20240603T090000Z"),
		p("DTEND", "20240603T100000Z"),
		p("RRULE", "FREQ=WEEKLY"),
		p("SUMMARY", "Weekly"),
	)))

	out, res, err := convert(t, opts, src)
	require.NoError(t, err)

	var want strings.Builder
	for _, day := range []string{"2024-06-10", "2024-06-17", "2024-06-24", "2024-07-01"} {
		want.WriteString("* Weekly :RECURRING:\n  <" + day + " Mon 09:00>--<" + day + " Mon 10:00>\n\n")
	}
	assert.Equal(t, want.String(), out)
	assert.Equal(t, 4, res.Entries)
}

func TestConvertTitleFallback(t *testing.T) {
	opts := Options{
		Days:     1,
		Location: time.UTC,
		Now:      fixedNow(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)),
	}
	src := docs(doc(
		event(p("DTSTART", "20240610T090000Z"), p("LOCATION", "Room 4")),
		event(p("DTSTART", "20240610T100000Z")),
	))

	out, _, err := convert(t, opts, src)
	require.NoError(t, err)
	assert.Equal(t, "* Room 4\n\n* (No title)\n\n", out)
}

func TestConvertIncludeLocationAndDescription(t *testing.T) {
	opts := Options{
		Days:            1,
		Location:        time.UTC,
		IncludeLocation: true,
		Now:             fixedNow(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)),
	}
	src := docs(doc(event(
		p("DTSTART", "20240610T090000Z"),
		p("DURATION", "PT30M"),
		p("SUMMARY", "Review"),
		p("LOCATION", "Room 4"),
		p("DESCRIPTION", "Bring notes"),
	)))

	out, _, err := convert(t, opts, src)
	require.NoError(t, err)
	assert.Equal(t, "* Review - Room 4\n  <2024-06-10 Mon 09:00>--<2024-06-10 Mon 09:30>\nBring notes\n\n", out)
}

func TestConvertIdempotent(t *testing.T) {
	opts := Options{
		Days:     30,
		Location: time.UTC,
		Now:      fixedNow(time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)),
	}
	build := func() DocumentSource {
		return docs(doc(
			event(p("DTSTART", "20240603T090000Z"), p("DTEND", "20240603T100000Z"), p("RRULE", "FREQ=DAILY;COUNT=20"), p("SUMMARY", "Daily")),
			event(p("DTSTART", "20240612T090000Z"), p("SUMMARY", "Once")),
		))
	}

	first, _, err := convert(t, opts, build())
	require.NoError(t, err)
	second, _, err := convert(t, opts, build())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestConvertStopsOnFirstError(t *testing.T) {
	opts := Options{
		Days:     1,
		Location: time.UTC,
		Now:      fixedNow(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)),
	}
	src := docs(doc(
		event(p("DTSTART", "20240610T090000Z"), p("SUMMARY", "First")),
		event(p("SUMMARY", "Broken")),
		event(p("DTSTART", "20240610T100000Z"), p("SUMMARY", "Never")),
	))

	out, res, err := convert(t, opts, src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Equal(t, "* First\n\n", out)
	assert.Equal(t, 0, res.Documents)
}

func TestConvertContinueOnError(t *testing.T) {
	opts := Options{
		Days:            1,
		Location:        time.UTC,
		ContinueOnError: true,
		Now:             fixedNow(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)),
	}
	src := &sliceSource{items: []sourceItem{
		{err: errors.New("malformed calendar")},
		{doc: doc(
			event(p("SUMMARY", "Broken")),
			event(p("DTSTART", "20240610T090000Z"), p("DURATION", "soon"), p("SUMMARY", "Bad duration")),
			event(p("DTSTART", "20240610T090000Z"), p("RRULE", "FREQ=NEVER")),
			event(p("DTSTART", "20240610T100000Z"), p("SUMMARY", "Kept")),
		)},
	}}

	out, res, err := convert(t, opts, src)
	require.NoError(t, err)
	assert.Equal(t, "* Kept\n\n", out)
	assert.Equal(t, 1, res.Documents)
	assert.Equal(t, 1, res.Entries)

	require.Error(t, res.Skipped)
	assert.True(t, errors.Is(res.Skipped, ErrDocumentParse))
	assert.True(t, errors.Is(res.Skipped, ErrMissingField))
	assert.True(t, errors.Is(res.Skipped, ErrDurationParse))
	assert.True(t, errors.Is(res.Skipped, ErrRecurrenceParse))
}

func TestConvertDocumentErrorAborts(t *testing.T) {
	opts := Options{Days: 1, Location: time.UTC}
	src := &sliceSource{items: []sourceItem{{err: errors.New("malformed calendar")}}}

	_, _, err := convert(t, opts, src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDocumentParse))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestConvertWriteErrorIsFatal(t *testing.T) {
	opts := Options{
		Days:            1,
		Location:        time.UTC,
		ContinueOnError: true,
		Now:             fixedNow(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)),
	}
	src := docs(
		doc(event(p("DTSTART", "20240610T090000Z"), p("SUMMARY", "One"))),
		doc(event(p("DTSTART", "20240610T100000Z"), p("SUMMARY", "Two"))),
	)

	res, err := NewConverter(opts).Convert(src, failingWriter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputWrite))
	assert.Equal(t, 0, res.Documents)
}
