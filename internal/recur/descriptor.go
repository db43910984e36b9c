package recur

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"icalagenda/internal/model"
)

// Once is the synthetic rule used for events without RRULE/RDATE.
const Once = "RRULE:FREQ=DAILY;COUNT=1"

// RelevantProperties lists the property names that take part in a recurrence set.
var RelevantProperties = map[string]bool{
	"RRULE":   true,
	"EXRULE":  true,
	"DTSTART": true,
	"EXDATE":  true,
	"RDATE":   true,
}

// Descriptor is the structured recurrence set of one event. Lines keeps the
// textual form of every contributing property, in encounter order.
type Descriptor struct {
	Start   time.Time
	Rules   []rrule.ROption
	ExRules []rrule.ROption
	RDates  []time.Time
	ExDates []time.Time

	Lines []string

	hasStart bool
}

// Add folds one recurrence-relevant property into the descriptor.
// Properties outside RelevantProperties are ignored.
func (d *Descriptor) Add(p model.PropertyEntry, loc *time.Location) error {
	if !RelevantProperties[p.Name] {
		return nil
	}

	switch p.Name {
	case "DTSTART":
		t, err := ParseInstant(p, loc)
		if err != nil {
			return err
		}
		d.Start = t
		d.hasStart = true
	case "RRULE", "EXRULE":
		opt, err := rrule.StrToROptionInLocation(strings.TrimSpace(p.Value), loc)
		if err != nil {
			return errors.Wrapf(err, "parsing %s %q", p.Name, p.Value)
		}
		if p.Name == "RRULE" {
			d.Rules = append(d.Rules, *opt)
		} else {
			d.ExRules = append(d.ExRules, *opt)
		}
	case "RDATE", "EXDATE":
		ts, err := ParseInstants(p, loc)
		if err != nil {
			return err
		}
		if p.Name == "RDATE" {
			d.RDates = append(d.RDates, ts...)
		} else {
			d.ExDates = append(d.ExDates, ts...)
		}
	}

	d.Lines = append(d.Lines, FormatLine(p))
	return nil
}

// AddOnce seeds the descriptor with a single occurrence at Start.
func (d *Descriptor) AddOnce() {
	d.Rules = append(d.Rules, rrule.ROption{Freq: rrule.DAILY, Count: 1})
	d.Lines = append(d.Lines, Once)
}

// HasStart reports whether a DTSTART was folded in.
func (d *Descriptor) HasStart() bool {
	return d.hasStart
}

// String joins the textual lines with newlines.
func (d *Descriptor) String() string {
	return strings.Join(d.Lines, "\n")
}
