package recur

import (
	"sort"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/pkg/errors"

	"icalagenda/internal/model"
)

// ParseInstant parses a DATE, DATE-TIME (UTC, floating) or TZID-qualified
// DATE-TIME property value. Floating values and dates are placed in loc.
func ParseInstant(p model.PropertyEntry, loc *time.Location) (time.Time, error) {
	prop := toProp(p)
	prop.Value = strings.TrimSpace(prop.Value)
	if prop.Value == "" {
		return time.Time{}, errors.Errorf("%s has no value", p.Name)
	}
	t, err := prop.DateTime(loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing %s value %q", p.Name, p.Value)
	}
	return t, nil
}

// ParseInstants parses a comma-separated list of instants as found in RDATE
// and EXDATE. Parameters apply to every element.
func ParseInstants(p model.PropertyEntry, loc *time.Location) ([]time.Time, error) {
	var out []time.Time
	for _, part := range strings.Split(p.Value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		single := p
		single.Value = part
		t, err := ParseInstant(single, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ParseDuration parses an ISO-8601 / RFC 5545 duration such as "PT1H30M" or "-P1W".
func ParseDuration(value string) (time.Duration, error) {
	prop := ical.NewProp(ical.PropDuration)
	prop.Value = strings.TrimSpace(value)
	d, err := prop.Duration()
	if err != nil {
		return 0, errors.Wrapf(err, "parsing duration %q", value)
	}
	return d, nil
}

// FormatLine serializes a property as NAME[;PARAM=V1,V2...]:VALUE.
// Parameters are written in name order so the output is stable.
func FormatLine(p model.PropertyEntry) string {
	var b strings.Builder
	b.WriteString(p.Name)

	names := make([]string, 0, len(p.Params))
	for name := range p.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteByte(';')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.Join(p.Params[name], ","))
	}

	b.WriteByte(':')
	b.WriteString(p.Value)
	return b.String()
}

func toProp(p model.PropertyEntry) *ical.Prop {
	return &ical.Prop{
		Name:   p.Name,
		Params: ical.Params(p.Params),
		Value:  p.Value,
	}
}
