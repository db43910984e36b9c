package model

import "strings"

// PropertyEntry is one content line of a VEVENT as delivered by the parser.
// Name and parameter names are upper-cased; parameter values keep source order.
type PropertyEntry struct {
	Name   string
	Params map[string][]string
	// Value is empty when the property carried no value.
	Value string
}

// HasValue reports whether the property carried a non-empty value.
func (p PropertyEntry) HasValue() bool {
	return p.Value != ""
}

// Param returns the values of the named parameter (case-insensitive).
func (p PropertyEntry) Param(name string) []string {
	if p.Params == nil {
		return nil
	}
	return p.Params[strings.ToUpper(name)]
}

// EventRecord represents one VEVENT, which may expand to 0..N agenda entries.
type EventRecord struct {
	Properties []PropertyEntry
}

// First returns the first property with the given name.
func (e EventRecord) First(name string) (PropertyEntry, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyEntry{}, false
}

// UID returns the event UID, if any. Only used for log context.
func (e EventRecord) UID() string {
	if p, ok := e.First("UID"); ok {
		return p.Value
	}
	return ""
}

// CalendarDocument is one parsed VCALENDAR.
type CalendarDocument struct {
	// Source identifies where the document came from (file path, URL, "-").
	Source string
	Events []EventRecord
}

// ConvertedEntry is the rendered, timezone-localized form of one occurrence.
type ConvertedEntry struct {
	Title     string
	Recurring bool
	// Timestamp is empty when the event had neither DTEND nor DURATION.
	Timestamp string
	// HasDescription distinguishes an empty DESCRIPTION from a missing one.
	Description    string
	HasDescription bool
}
