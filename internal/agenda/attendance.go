package agenda

import "icalagenda/internal/model"

// AttendanceFilter drops events the configured user declined.
type AttendanceFilter struct {
	emails map[string]struct{}
}

func NewAttendanceFilter(emails []string) AttendanceFilter {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		set[e] = struct{}{}
	}
	return AttendanceFilter{emails: set}
}

// Declined reports whether a single ATTENDEE property is both the user
// (CN in the email set) and declined (PARTSTAT contains DECLINED).
func (f AttendanceFilter) Declined(p model.PropertyEntry) bool {
	if p.Name != "ATTENDEE" || len(f.emails) == 0 {
		return false
	}

	isSelf := false
	for _, cn := range p.Param("CN") {
		if _, ok := f.emails[cn]; ok {
			isSelf = true
			break
		}
	}

	declined := false
	for _, st := range p.Param("PARTSTAT") {
		if st == "DECLINED" {
			declined = true
			break
		}
	}

	return isSelf && declined
}

// Excludes reports whether any ATTENDEE of ev is a declined self. Scanning
// stops at the first match.
func (f AttendanceFilter) Excludes(ev model.EventRecord) bool {
	for _, p := range ev.Properties {
		if f.Declined(p) {
			return true
		}
	}
	return false
}
