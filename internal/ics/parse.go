package ics

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	appLog "icalagenda/internal/log"
	"icalagenda/internal/model"
)

const maxLineSize = 1 << 20

// Decoder splits an ICS stream into VCALENDAR documents and parses each one.
//
//   - Every document ends at an END:VCALENDAR line; text after the last one
//     is parsed as a final (usually malformed) document.
//   - A document that fails to parse is reported by Next, and decoding
//     continues with the next document.
//   - A read failure of the stream itself is reported once; after that Next
//     returns io.EOF.
type Decoder struct {
	source  string
	scanner *bufio.Scanner
	done    bool
}

// NewDecoder returns a Decoder reading from r. source labels the documents
// for logging.
func NewDecoder(source string, r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{source: source, scanner: s}
}

// Next returns the next document, or io.EOF when the stream is exhausted.
func (d *Decoder) Next() (model.CalendarDocument, error) {
	if d.done {
		return model.CalendarDocument{}, io.EOF
	}

	var buf bytes.Buffer
	complete := false
	for d.scanner.Scan() {
		line := d.scanner.Text()
		buf.WriteString(line)
		buf.WriteString("\r\n")
		if strings.EqualFold(strings.TrimSpace(line), "END:VCALENDAR") {
			complete = true
			break
		}
	}

	if !complete {
		d.done = true
		if err := d.scanner.Err(); err != nil {
			appLog.Error("ics read failed", err, "source", d.source)
			return model.CalendarDocument{}, errors.Wrapf(err, "reading %s", d.source)
		}
		if strings.TrimSpace(buf.String()) == "" {
			return model.CalendarDocument{}, io.EOF
		}
	}

	return Parse(d.source, buf.Bytes())
}

// Parse parses a single VCALENDAR payload.
func Parse(source string, body []byte) (model.CalendarDocument, error) {
	doc := model.CalendarDocument{Source: source}
	if len(bytes.TrimSpace(body)) == 0 {
		return doc, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return doc, errors.Wrapf(err, "parsing calendar from %s", source)
	}

	for _, ve := range cal.Events() {
		doc.Events = append(doc.Events, eventRecord(ve))
	}

	appLog.Debug("ics parse completed", "source", source, "event_count", len(doc.Events))
	return doc, nil
}

// eventRecord copies a VEVENT's properties in source order, upper-casing
// property and parameter names.
func eventRecord(ve *ical.VEvent) model.EventRecord {
	props := make([]model.PropertyEntry, 0, len(ve.Properties))
	for _, p := range ve.Properties {
		entry := model.PropertyEntry{
			Name:  strings.ToUpper(p.IANAToken),
			Value: p.Value,
		}
		if len(p.ICalParameters) > 0 {
			entry.Params = make(map[string][]string, len(p.ICalParameters))
			for k, vs := range p.ICalParameters {
				key := strings.ToUpper(k)
				entry.Params[key] = append(entry.Params[key], vs...)
			}
		}
		props = append(props, entry)
	}
	return model.EventRecord{Properties: props}
}
