package agenda

import (
	"fmt"
	"time"

	"icalagenda/internal/model"
	"icalagenda/internal/recur"
)

// BuildDescriptor assembles the recurrence set of ev in a single pass over its
// properties. recurs is true when the event carries RRULE or RDATE; otherwise
// the synthetic single-occurrence rule is added so expansion always has a seed.
// dtstart is the raw DTSTART value, which is required.
func BuildDescriptor(ev model.EventRecord, loc *time.Location) (d *recur.Descriptor, recurs bool, dtstart string, err error) {
	d = &recur.Descriptor{}
	found := false

	for _, p := range ev.Properties {
		switch p.Name {
		case "RRULE", "RDATE":
			recurs = true
		case "DTSTART":
			if !p.HasValue() {
				continue
			}
			dtstart = p.Value
			found = true
		}

		if err := d.Add(p, loc); err != nil {
			return nil, false, "", withKind(ErrRecurrenceParse, err)
		}
	}

	if !found {
		return nil, false, "", fmt.Errorf("%w: event has no DTSTART", ErrMissingField)
	}

	if !recurs {
		d.AddOnce()
	}

	return d, recurs, dtstart, nil
}
