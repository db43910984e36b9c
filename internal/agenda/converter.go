package agenda

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	appLog "icalagenda/internal/log"
	"icalagenda/internal/model"
	"icalagenda/internal/recur"
)

// DocumentSource yields calendar documents in input order. Next returns
// io.EOF once exhausted; any other error is a failure of one document and
// the caller may call Next again.
type DocumentSource interface {
	Next() (model.CalendarDocument, error)
}

// Options configures a Converter.
type Options struct {
	// Days is the half-width of the window around now.
	Days uint
	// Emails identify the running user in ATTENDEE CN parameters.
	Emails []string
	// Location is the rendering timezone. Nil means time.Local.
	Location        *time.Location
	IncludeLocation bool
	ContinueOnError bool

	// Now returns the conversion instant. Defaults to time.Now.
	Now func() time.Time
	// MaxOccurrences caps expansion of one event; recur.MaxOccurrences if zero.
	MaxOccurrences int
}

// Result summarizes one conversion run.
type Result struct {
	Window    Window
	Documents int
	Events    int
	Declined  int
	Entries   int
	// Skipped aggregates the errors of skipped units when ContinueOnError is set.
	Skipped error
}

// Converter turns calendar documents into agenda text.
type Converter struct {
	opts      Options
	filter    AttendanceFilter
	formatter Formatter
}

func NewConverter(opts Options) *Converter {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = recur.MaxOccurrences
	}
	return &Converter{
		opts:   opts,
		filter: NewAttendanceFilter(opts.Emails),
		formatter: Formatter{
			Location:        opts.Location,
			IncludeLocation: opts.IncludeLocation,
		},
	}
}

// run holds the state of a single Convert call.
type run struct {
	c      *Converter
	window Window
	out    *bufio.Writer
	policy containment
	res    Result
}

// Convert reads every document from src and writes agenda entries to w.
//
// With ContinueOnError unset the first error stops the run and is returned.
// Output written before that point is flushed to w in either case.
func (c *Converter) Convert(src DocumentSource, w io.Writer) (Result, error) {
	r := &run{
		c:      c,
		window: NewWindow(c.opts.Now(), c.opts.Days, c.opts.Location),
		out:    bufio.NewWriter(w),
		policy: containment{continueOnError: c.opts.ContinueOnError},
	}
	r.res.Window = r.window

	appLog.Debug("using window",
		"start", r.window.Start.Format(time.RFC3339),
		"end", r.window.End.Format(time.RFC3339),
	)

	err := r.documents(src)
	if ferr := r.flush(); ferr != nil && err == nil {
		err = ferr
	}

	if r.policy.skipped != nil {
		r.res.Skipped = r.policy.skipped.ErrorOrNil()
	}
	return r.res, unwrapAbort(err)
}

func (r *run) documents(src DocumentSource) error {
	for index := 0; ; index++ {
		doc, nextErr := src.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}

		outcome, err := r.policy.attempt("document", func() error {
			if nextErr != nil {
				return withKind(ErrDocumentParse, nextErr)
			}
			return r.document(doc)
		}, "document", index, "source", doc.Source)
		if outcome == Abort {
			return err
		}
		if outcome == Continue {
			r.res.Documents++
		}

		if err := r.flush(); err != nil {
			return err
		}
	}
}

func (r *run) document(doc model.CalendarDocument) error {
	for index, ev := range doc.Events {
		outcome, err := r.policy.attempt("event", func() error {
			return r.event(ev)
		}, "source", doc.Source, "event", index, "uid", ev.UID())
		if outcome == Abort {
			return err
		}

		if err := r.flush(); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) event(ev model.EventRecord) error {
	r.res.Events++

	if r.c.filter.Excludes(ev) {
		appLog.Debug("ignoring declined event", "uid", ev.UID())
		r.res.Declined++
		return nil
	}

	d, recurs, dtstart, err := BuildDescriptor(ev, r.c.opts.Location)
	if err != nil {
		return err
	}

	appLog.Debug("constructed recurrence set", "uid", ev.UID(), "dtstart", dtstart, "rules", d.String())

	instances, err := recur.Expand(d, r.window.Start, r.window.End, r.c.opts.MaxOccurrences)
	if err != nil {
		return withKind(ErrRecurrenceParse, err)
	}
	if len(instances) == r.c.opts.MaxOccurrences {
		appLog.Info("occurrence cap reached", "uid", ev.UID(), "cap", r.c.opts.MaxOccurrences)
	}

	for _, instance := range instances {
		outcome, err := r.policy.attempt("event instance", func() error {
			return r.instance(ev, instance, recurs)
		}, "uid", ev.UID(), "instance", instance.Format(time.RFC3339))
		if outcome == Abort {
			return err
		}
	}
	return nil
}

func (r *run) instance(ev model.EventRecord, at time.Time, recurs bool) error {
	entry, err := r.c.formatter.Format(ev, at, recurs)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(r.out, Render(entry)); err != nil {
		return withKind(ErrOutputWrite, err)
	}
	r.res.Entries++
	return nil
}

func (r *run) flush() error {
	if err := r.out.Flush(); err != nil {
		werr := withKind(ErrOutputWrite, fmt.Errorf("flushing output: %w", err))
		appLog.Error("failed to write output", werr)
		return &abortError{err: werr}
	}
	return nil
}
