package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Wire format constants. The remote store speaks a text calendar dialect;
// these are the property names the bridge reads and writes.
const (
	crlf       = "\r\n"
	beginVCal  = "BEGIN:VCALENDAR"
	endVCal    = "END:VCALENDAR"
	beginVEvt  = "BEGIN:VEVENT"
	endVEvt    = "END:VEVENT"
	timeLayout = "20060102T150405Z"

	propAppointment  = "X-ASSIST-APPOINTMENT"
	propVisitorLimit = "X-ASSIST-VISITORLIMIT"
	propReflection   = "X-AVAILABILITY-REFLECTION"
	propEventType    = "X-EVENTTYPE"
	propResourceAtt  = "X-RESOURCE-ATTENDEE"

	paramRole       = "X-ASSIST-ROLE"
	paramShowAsFree = "X-SHOWASFREE"
	paramGUID       = "X-GUID"
)

// MalformedDocumentError indicates a remote response that could not be
// repaired or parsed. The raw payload is retained for diagnosis.
type MalformedDocumentError struct {
	Reason string
	Raw    string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("calendar: malformed document: %s", e.Reason)
}

// FormatDateTime renders t in the wire date-time layout (UTC).
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseDateTime parses a wire date-time value.
func ParseDateTime(value string) (time.Time, error) {
	return time.Parse(timeLayout, value)
}

// Repair normalizes a raw fetch response before parsing. The remote store
// sometimes truncates the response mid-line and omits the closing
// END:VCALENDAR marker. When the trimmed document does not end with the
// terminator, the partial physical line and any event left open by the cut
// are dropped, then the terminator is re-appended; the surviving document
// holds only complete events. A document that is already well terminated is
// returned unchanged.
func Repair(raw string) (string, error) {
	trimmed := strings.TrimRight(raw, " \t\r\n")
	if strings.HasSuffix(trimmed, endVCal) {
		return raw, nil
	}
	last := strings.LastIndex(trimmed, crlf)
	if last == -1 {
		return "", &MalformedDocumentError{Reason: "missing terminator and no prior line boundary", Raw: raw}
	}
	body := trimmed[:last]
	if open := strings.LastIndex(body, beginVEvt); open > strings.LastIndex(body, endVEvt) {
		body = strings.TrimRight(body[:open], "\r\n")
	}
	var b strings.Builder
	b.WriteString(body)
	b.WriteString(crlf)
	b.WriteString(endVCal)
	b.WriteString(crlf)
	return b.String(), nil
}

// Parse decodes a (repaired) wire document. Folded lines are unfolded and
// unknown event properties are preserved in Event.Extra.
func Parse(raw string) (Document, error) {
	lines := unfold(raw)
	var doc Document
	var current *Event
	sawEnvelope := false

	for _, line := range lines {
		switch {
		case line == beginVCal:
			sawEnvelope = true
		case line == endVCal:
			// envelope closed; trailing content ignored
		case line == beginVEvt:
			if current != nil {
				return Document{}, &MalformedDocumentError{Reason: "nested BEGIN:VEVENT", Raw: raw}
			}
			current = &Event{}
		case line == endVEvt:
			if current == nil {
				return Document{}, &MalformedDocumentError{Reason: "END:VEVENT without BEGIN:VEVENT", Raw: raw}
			}
			doc.Events = append(doc.Events, *current)
			current = nil
		default:
			if current == nil {
				// calendar-level properties (VERSION, PRODID) are not used
				continue
			}
			if err := applyProperty(current, line); err != nil {
				return Document{}, &MalformedDocumentError{Reason: err.Error(), Raw: raw}
			}
		}
	}
	if !sawEnvelope {
		return Document{}, &MalformedDocumentError{Reason: "missing BEGIN:VCALENDAR", Raw: raw}
	}
	if current != nil {
		return Document{}, &MalformedDocumentError{Reason: "unterminated VEVENT", Raw: raw}
	}
	return doc, nil
}

// Encode renders the document in the wire format with CRLF line endings.
func Encode(doc Document) string {
	var b strings.Builder
	writeLine(&b, beginVCal)
	writeLine(&b, "VERSION:2.0")
	for _, e := range doc.Events {
		encodeEvent(&b, e)
	}
	writeLine(&b, endVCal)
	return b.String()
}

// EncodeEvent wraps a single event in a calendar envelope, the shape every
// store call expects.
func EncodeEvent(e Event) string {
	return Encode(Document{Events: []Event{e}})
}

func encodeEvent(b *strings.Builder, e Event) {
	writeLine(b, beginVEvt)
	if e.UID != "" {
		writeLine(b, "UID:"+e.UID)
	}
	if !e.Start.IsZero() {
		writeLine(b, "DTSTART:"+FormatDateTime(e.Start))
	}
	if !e.End.IsZero() {
		writeLine(b, "DTEND:"+FormatDateTime(e.End))
	}
	if e.Summary != "" {
		writeLine(b, "SUMMARY:"+escapeText(e.Summary))
	}
	if e.Description != "" {
		writeLine(b, "DESCRIPTION:"+escapeText(e.Description))
	}
	if e.Location != "" {
		writeLine(b, "LOCATION:"+escapeText(e.Location))
	}
	if e.Organizer != nil {
		writeLine(b, encodeAttendee("ORGANIZER", *e.Organizer))
	}
	for _, a := range e.Attendees {
		name := "ATTENDEE"
		if a.Resource {
			name = propResourceAtt
		}
		writeLine(b, encodeAttendee(name, a))
	}
	if e.EventType != "" {
		writeLine(b, propEventType+":"+e.EventType)
	}
	if e.Appointment {
		writeLine(b, propAppointment+":TRUE")
	}
	if e.VisitorLimit > 0 {
		writeLine(b, propVisitorLimit+":"+strconv.Itoa(e.VisitorLimit))
	}
	if e.Reflection {
		writeLine(b, propReflection+":TRUE")
	}
	if e.Class != "" {
		writeLine(b, "CLASS:"+e.Class)
	}
	if e.Status != "" {
		writeLine(b, "STATUS:"+e.Status)
	}
	for _, extra := range e.Extra {
		writeLine(b, extra)
	}
	writeLine(b, endVEvt)
}

func encodeAttendee(name string, a Attendee) string {
	var b strings.Builder
	b.WriteString(name)
	if a.CommonName != "" {
		b.WriteString(";CN=")
		b.WriteString(a.CommonName)
	}
	if a.PartStat != "" {
		b.WriteString(";PARTSTAT=")
		b.WriteString(string(a.PartStat))
	}
	if a.Role != "" {
		b.WriteString(";" + paramRole + "=")
		b.WriteString(string(a.Role))
	}
	if a.ShowAsFree {
		b.WriteString(";" + paramShowAsFree + "=FREE")
	} else {
		b.WriteString(";" + paramShowAsFree + "=BUSY")
	}
	if a.GUID != "" {
		b.WriteString(";" + paramGUID + "=")
		b.WriteString(a.GUID)
	}
	b.WriteString(":mailto:")
	b.WriteString(a.Email)
	return b.String()
}

func applyProperty(e *Event, line string) error {
	name, params, value, err := splitContentLine(line)
	if err != nil {
		return err
	}
	switch name {
	case "UID":
		e.UID = value
	case "SUMMARY":
		e.Summary = unescapeText(value)
	case "DESCRIPTION":
		e.Description = unescapeText(value)
	case "LOCATION":
		e.Location = unescapeText(value)
	case "CLASS":
		e.Class = value
	case "STATUS":
		e.Status = value
	case "DTSTART":
		t, err := ParseDateTime(value)
		if err != nil {
			return fmt.Errorf("bad DTSTART %q", value)
		}
		e.Start = t
	case "DTEND":
		t, err := ParseDateTime(value)
		if err != nil {
			return fmt.Errorf("bad DTEND %q", value)
		}
		e.End = t
	case "ATTENDEE":
		e.Attendees = append(e.Attendees, decodeAttendee(params, value, false))
	case propResourceAtt:
		e.Attendees = append(e.Attendees, decodeAttendee(params, value, true))
	case "ORGANIZER":
		org := decodeAttendee(params, value, false)
		e.Organizer = &org
	case propEventType:
		e.EventType = value
	case propAppointment:
		e.Appointment = strings.EqualFold(value, "TRUE")
	case propVisitorLimit:
		limit, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("bad visitor limit %q", value)
		}
		e.VisitorLimit = limit
	case propReflection:
		e.Reflection = strings.EqualFold(value, "TRUE")
	case "VERSION", "PRODID":
		// envelope noise that some servers emit inside events
	default:
		e.Extra = append(e.Extra, line)
	}
	return nil
}

func decodeAttendee(params map[string]string, value string, resource bool) Attendee {
	return Attendee{
		CommonName: params["CN"],
		Email:      strings.TrimPrefix(value, "mailto:"),
		Role:       Role(params[paramRole]),
		PartStat:   PartStat(params["PARTSTAT"]),
		ShowAsFree: params[paramShowAsFree] == "FREE",
		GUID:       params[paramGUID],
		Resource:   resource,
	}
}

// splitContentLine separates "NAME;P1=V1;P2=V2:value" into its parts.
// Parameter values containing ':' or ';' must be quoted per the format; the
// remote store never emits quoted parameters for the properties the bridge
// reads, so a plain scan suffices.
func splitContentLine(line string) (string, map[string]string, string, error) {
	colon := strings.Index(line, ":")
	if colon == -1 {
		return "", nil, "", fmt.Errorf("property line without ':' separator: %q", line)
	}
	head := line[:colon]
	value := line[colon+1:]
	parts := strings.Split(head, ";")
	name := strings.ToUpper(parts[0])
	params := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		if eq := strings.Index(p, "="); eq != -1 {
			params[strings.ToUpper(p[:eq])] = p[eq+1:]
		}
	}
	return name, params, value, nil
}

// unfold splits the payload into logical lines, joining continuation lines
// that begin with whitespace.
func unfold(raw string) []string {
	physical := strings.Split(strings.ReplaceAll(raw, crlf, "\n"), "\n")
	lines := make([]string, 0, len(physical))
	for _, p := range physical {
		if p == "" {
			continue
		}
		if (strings.HasPrefix(p, " ") || strings.HasPrefix(p, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += strings.TrimLeft(p, " \t")
			continue
		}
		lines = append(lines, strings.TrimRight(p, "\r"))
	}
	return lines
}

func writeLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteString(crlf)
}

func escapeText(s string) string {
	replacer := strings.NewReplacer("\\", "\\\\", "\n", "\\n", ",", "\\,", ";", "\\;")
	return replacer.Replace(s)
}

func unescapeText(s string) string {
	replacer := strings.NewReplacer("\\\\", "\\", "\\n", "\n", "\\N", "\n", "\\,", ",", "\\;", ";")
	return replacer.Replace(s)
}
