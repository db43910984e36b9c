package agenda

import (
	"strings"
	"time"

	"icalagenda/internal/model"
	"icalagenda/internal/recur"
)

const (
	// NoTitle is used when an event has neither SUMMARY nor LOCATION.
	NoTitle = "(No title)"
	// RecurTag marks the heading of a recurring event.
	RecurTag = ":RECURRING:"
)

// Formatter renders one occurrence of an event.
type Formatter struct {
	Location        *time.Location
	IncludeLocation bool
}

// Format builds the entry for the occurrence starting at occurrence. When
// recurring is false the event's own DTSTART/DTEND are used unchanged.
func (f Formatter) Format(ev model.EventRecord, occurrence time.Time, recurring bool) (model.ConvertedEntry, error) {
	var (
		summary, location, description string
		hasSummary, hasLocation        bool
		hasDescription                 bool
		start, end                     time.Time
		hasStart, hasEnd               bool
		durationValue                  string
		hasDuration                    bool
	)

	for _, p := range ev.Properties {
		switch p.Name {
		case "SUMMARY":
			summary, hasSummary = p.Value, p.HasValue()
		case "LOCATION":
			location, hasLocation = p.Value, p.HasValue()
		case "DESCRIPTION":
			description, hasDescription = p.Value, true
		case "DTSTART":
			t, err := recur.ParseInstant(p, f.Location)
			if err != nil {
				return model.ConvertedEntry{}, withKind(ErrRecurrenceParse, err)
			}
			start, hasStart = t, true
		case "DTEND":
			t, err := recur.ParseInstant(p, f.Location)
			if err != nil {
				return model.ConvertedEntry{}, withKind(ErrRecurrenceParse, err)
			}
			end, hasEnd = t, true
		case "DURATION":
			durationValue, hasDuration = p.Value, true
		}
	}

	if !hasEnd && hasDuration && hasStart {
		d, err := recur.ParseDuration(durationValue)
		if err != nil {
			return model.ConvertedEntry{}, withKind(ErrDurationParse, err)
		}
		end, hasEnd = start.Add(d), true
	}

	entry := model.ConvertedEntry{
		Title:          f.title(summary, hasSummary, location, hasLocation),
		Recurring:      recurring,
		Description:    description,
		HasDescription: hasDescription,
	}

	if hasStart && hasEnd {
		if recurring {
			length := end.Sub(start)
			start = occurrence
			end = start.Add(length)
		}
		entry.Timestamp = f.timestamp(start, end)
	}

	return entry, nil
}

func (f Formatter) title(summary string, hasSummary bool, location string, hasLocation bool) string {
	switch {
	case hasSummary && hasLocation && f.IncludeLocation:
		return summary + " - " + location
	case hasSummary:
		return summary
	case hasLocation:
		return location
	default:
		return NoTitle
	}
}

func (f Formatter) timestamp(start, end time.Time) string {
	loc := f.Location
	wholeDay := isMidnight(start, loc) && isMidnight(end, loc)
	oneDay := end.In(loc).Equal(start.In(loc).AddDate(0, 0, 1))

	stamp := formatDateTime
	if wholeDay {
		stamp = formatDate
	}

	if isMidnight(end, loc) && oneDay {
		return stamp(start, loc)
	}
	return stamp(start, loc) + "--" + stamp(end, loc)
}

// Render serializes an entry as an agenda block. The block always ends with
// one blank line so consecutive blocks stay separated.
func Render(e model.ConvertedEntry) string {
	var b strings.Builder

	b.WriteString("* ")
	b.WriteString(e.Title)
	if e.Recurring {
		b.WriteString(" ")
		b.WriteString(RecurTag)
	}
	b.WriteString("\n")

	if e.Timestamp != "" {
		b.WriteString("  ")
		b.WriteString(e.Timestamp)
		b.WriteString("\n")
	}

	if e.HasDescription {
		b.WriteString(e.Description)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	return b.String()
}
