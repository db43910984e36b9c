package recur

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"
)

// MaxOccurrences bounds a single expansion. Sub-minute rules over a wide
// window would otherwise produce millions of instants.
const MaxOccurrences = 65535

// MaxSteps bounds how many instants an expansion may walk through, counting
// those before the window. A minutely rule decades ahead of its window would
// otherwise spin for seconds.
var MaxSteps = 1 << 22

// ErrStepBudget is returned when an expansion walks MaxSteps instants.
var ErrStepBudget = errors.New("recurrence expansion exceeded its step budget")

// stream is one chronological source of instants.
type stream struct {
	next rrule.Next
	cur  time.Time
	ok   bool
}

func (s *stream) advance() {
	s.cur, s.ok = s.next()
}

// Expand returns the occurrences of d strictly between start and end, in
// chronological order, at most limit of them (MaxOccurrences if limit <= 0).
//
// RRULE and RDATE contribute instants, EXRULE and EXDATE remove them.
// Duplicates produced by several rules are collapsed.
func Expand(d *Descriptor, start, end time.Time, limit int) ([]time.Time, error) {
	if d == nil || !d.hasStart {
		return nil, errors.New("recurrence set has no DTSTART")
	}
	if limit <= 0 {
		limit = MaxOccurrences
	}

	includes := make([]*stream, 0, len(d.Rules)+1)
	for _, opt := range d.Rules {
		s, err := ruleStream(opt, d.Start)
		if err != nil {
			return nil, err
		}
		includes = append(includes, s)
	}

	rdates := append([]time.Time(nil), d.RDates...)
	// RFC 5545: DTSTART is always the first instance of the set.
	if len(d.Rules) == 0 && len(rdates) > 0 {
		rdates = append(rdates, d.Start)
	}
	if len(rdates) > 0 {
		includes = append(includes, sliceStream(rdates))
	}

	excludes := make([]*stream, 0, len(d.ExRules))
	for _, opt := range d.ExRules {
		s, err := ruleStream(opt, d.Start)
		if err != nil {
			return nil, err
		}
		excludes = append(excludes, s)
	}

	exdates := make(map[int64]struct{}, len(d.ExDates))
	for _, t := range d.ExDates {
		exdates[t.UnixNano()] = struct{}{}
	}

	steps := 0
	excluded := func(t time.Time) bool {
		if _, ok := exdates[t.UnixNano()]; ok {
			return true
		}
		for _, s := range excludes {
			for s.ok && s.cur.Before(t) {
				s.advance()
				steps++
			}
			if s.ok && s.cur.Equal(t) {
				return true
			}
		}
		return false
	}

	var (
		out     []time.Time
		last    time.Time
		hasLast bool
	)
	for len(out) < limit {
		if steps++; steps > MaxSteps {
			return nil, errors.Wrapf(ErrStepBudget, "gave up after %d instants, %d inside the window", MaxSteps, len(out))
		}

		idx := -1
		for i, s := range includes {
			if s.ok && (idx < 0 || s.cur.Before(includes[idx].cur)) {
				idx = i
			}
		}
		if idx < 0 {
			break
		}

		t := includes[idx].cur
		includes[idx].advance()

		if hasLast && t.Equal(last) {
			continue
		}
		last, hasLast = t, true

		if !t.Before(end) {
			break
		}
		if !t.After(start) || excluded(t) {
			continue
		}
		out = append(out, t)
	}

	return out, nil
}

func ruleStream(opt rrule.ROption, dtstart time.Time) (*stream, error) {
	opt.Dtstart = dtstart
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, errors.Wrap(err, "building recurrence rule")
	}
	s := &stream{next: r.Iterator()}
	s.advance()
	return s, nil
}

func sliceStream(ts []time.Time) *stream {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	i := 0
	s := &stream{next: func() (time.Time, bool) {
		if i >= len(ts) {
			return time.Time{}, false
		}
		t := ts[i]
		i++
		return t, true
	}}
	s.advance()
	return s
}
