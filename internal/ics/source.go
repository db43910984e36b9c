package ics

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"icalagenda/internal/model"
)

// Stdin is the source name that reads from standard input.
const Stdin = "-"

// Reader chains the documents of several sources (file paths, "-" or
// http(s) URLs) in the order given.
type Reader struct {
	ctx     context.Context
	fetcher *Fetcher
	sources []string

	// Stdin is read for the "-" source. Defaults to os.Stdin.
	Stdin io.Reader

	cur    *Decoder
	closer io.Closer
}

// NewReader returns a Reader over sources. fetcher may be nil when no
// source is a URL.
func NewReader(ctx context.Context, fetcher *Fetcher, sources []string) *Reader {
	return &Reader{
		ctx:     ctx,
		fetcher: fetcher,
		sources: append([]string(nil), sources...),
		Stdin:   os.Stdin,
	}
}

// Next returns the next document across all sources. A source that cannot
// be opened is reported as an error and skipped on the following call.
func (r *Reader) Next() (model.CalendarDocument, error) {
	for {
		if r.cur != nil {
			doc, err := r.cur.Next()
			if !errors.Is(err, io.EOF) {
				return doc, err
			}
			r.closeCurrent()
		}

		if len(r.sources) == 0 {
			return model.CalendarDocument{}, io.EOF
		}

		name := r.sources[0]
		r.sources = r.sources[1:]

		rc, err := r.open(name)
		if err != nil {
			return model.CalendarDocument{Source: name}, err
		}
		r.cur = NewDecoder(name, rc)
		r.closer = rc
	}
}

// Close releases the source currently being read.
func (r *Reader) Close() error {
	return r.closeCurrent()
}

func (r *Reader) closeCurrent() error {
	r.cur = nil
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

func (r *Reader) open(name string) (io.ReadCloser, error) {
	switch {
	case name == Stdin:
		return io.NopCloser(r.Stdin), nil
	case IsURL(name):
		if r.fetcher == nil {
			return nil, errors.Errorf("no fetcher configured for %s", redactURL(name))
		}
		res, err := r.fetcher.Fetch(r.ctx, name)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(res.Body)), nil
	default:
		f, err := os.Open(name)
		if err != nil {
			return nil, errors.Wrapf(err, "opening calendar file %q", name)
		}
		return f, nil
	}
}

// IsURL reports whether name is an http(s) or webcal URL.
func IsURL(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "webcal://")
}
