package model

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"time"
)

// EventKind names a kind of analytics event.
type EventKind string

// Known event kinds. Any other name is a custom event.
const (
	KindPageView     EventKind = "page_view"
	KindTimeOnPage   EventKind = "time_on_page"
	KindSectionView  EventKind = "section_view"
	KindProjectClick EventKind = "project_click"
	KindSkillClick   EventKind = "skill_click"
	KindContactClick EventKind = "contact_click"
	KindDownloadCV   EventKind = "download_cv"
)

// MaxCustomFields bounds the payload of a custom event.
const MaxCustomFields = 32

var customName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

type fieldType int

const (
	fieldString fieldType = iota
	fieldNumber
)

type fieldSpec struct {
	typ      fieldType
	required bool
}

// schemas lists the payload fields each known kind accepts.
var schemas = map[EventKind]map[string]fieldSpec{
	KindTimeOnPage: {
		"duration": {typ: fieldNumber, required: true},
		"path":     {typ: fieldString},
	},
	KindSectionView: {
		"sectionId": {typ: fieldString, required: true},
	},
	KindProjectClick: {
		"projectId":   {typ: fieldString, required: true},
		"projectName": {typ: fieldString},
	},
	KindSkillClick: {
		"skillId":   {typ: fieldString, required: true},
		"skillName": {typ: fieldString},
	},
	KindContactClick: {
		"method": {typ: fieldString, required: true},
	},
	KindDownloadCV: {},
}

// Event is one named occurrence with a small payload.
type Event struct {
	Name      EventKind      `json:"name"`
	Data      map[string]any `json:"data"`
	Timestamp int64          `json:"timestamp"`
	SessionID string         `json:"sessionId"`
	Path      string         `json:"path"`
}

// Known reports whether the event has a fixed schema.
func (e *Event) Known() bool {
	_, ok := schemas[e.Name]
	return ok
}

// Validate checks the name and payload against the kind's schema.
func (e *Event) Validate() error {
	if e.Name == KindPageView {
		return fmt.Errorf("%w: %s is recorded as a page view", ErrReservedEvent, e.Name)
	}
	schema, known := schemas[e.Name]
	if !known {
		return e.validateCustom()
	}
	for key, spec := range schema {
		v, ok := e.Data[key]
		if !ok || v == nil {
			if spec.required {
				return fmt.Errorf("%w: %s requires %q", ErrEventField, e.Name, key)
			}
			continue
		}
		if err := checkField(e.Name, key, spec, v); err != nil {
			return err
		}
	}
	for key := range e.Data {
		if _, ok := schema[key]; !ok {
			return fmt.Errorf("%w: %s does not accept %q", ErrEventField, e.Name, key)
		}
	}
	return nil
}

func (e *Event) validateCustom() error {
	if !customName.MatchString(string(e.Name)) {
		return fmt.Errorf("%w: %q", ErrEventName, e.Name)
	}
	if len(e.Data) > MaxCustomFields {
		return fmt.Errorf("%w: %d > %d", ErrTooManyFields, len(e.Data), MaxCustomFields)
	}
	for key, v := range e.Data {
		if key == "" {
			return fmt.Errorf("%w: empty key", ErrEventField)
		}
		if !isScalar(v) {
			return fmt.Errorf("%w: %q must be a string, number or bool", ErrEventField, key)
		}
	}
	return nil
}

func checkField(kind EventKind, key string, spec fieldSpec, v any) error {
	switch spec.typ {
	case fieldString:
		s, ok := v.(string)
		if !ok || (spec.required && s == "") {
			return fmt.Errorf("%w: %s.%s must be a non-empty string", ErrEventField, kind, key)
		}
	case fieldNumber:
		n, ok := Number(v)
		if !ok || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("%w: %s.%s must be a non-negative number", ErrEventField, kind, key)
		}
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool:
		return true
	}
	_, ok := Number(v)
	return ok
}

// Number converts the numeric types that show up in decoded payloads.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Duration returns the time_on_page duration, if this event carries one.
func (e *Event) Duration() (time.Duration, bool) {
	if e.Name != KindTimeOnPage {
		return 0, false
	}
	ms, ok := Number(e.Data["duration"])
	if !ok || ms < 0 {
		return 0, false
	}
	return time.Duration(ms * float64(time.Millisecond)), true
}

// TimeOnPage builds the event sent when a visitor navigates away from path.
func TimeOnPage(path string, d time.Duration) Event {
	return Event{Name: KindTimeOnPage, Data: map[string]any{
		"path":     path,
		"duration": float64(d.Milliseconds()),
	}}
}

// SectionView builds a section_view event.
func SectionView(sectionID string) Event {
	return Event{Name: KindSectionView, Data: map[string]any{"sectionId": sectionID}}
}

// ProjectClick builds a project_click event.
func ProjectClick(projectID, projectName string) Event {
	return Event{Name: KindProjectClick, Data: map[string]any{
		"projectId":   projectID,
		"projectName": projectName,
	}}
}

// SkillClick builds a skill_click event.
func SkillClick(skillID, skillName string) Event {
	return Event{Name: KindSkillClick, Data: map[string]any{
		"skillId":   skillID,
		"skillName": skillName,
	}}
}

// ContactClick builds a contact_click event.
func ContactClick(method string) Event {
	return Event{Name: KindContactClick, Data: map[string]any{"method": method}}
}

// DownloadCV builds a download_cv event.
func DownloadCV() Event {
	return Event{Name: KindDownloadCV, Data: map[string]any{}}
}

// Custom builds an event outside the known kinds.
func Custom(name string, data map[string]any) Event {
	return Event{Name: EventKind(name), Data: data}
}
