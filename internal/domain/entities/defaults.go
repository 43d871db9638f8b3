package entities

import "encoding/json"

// DefaultSchedule returns a fresh copy of the fixed eight-entry daily
// template the schedule collection falls back to (and is force-reset to).
func DefaultSchedule() []ScheduleEntry {
	return []ScheduleEntry{
		{TimeRange: "08:00 AM – 09:15 AM", Activity: "Morning Routine & Breakfast", Hours: "1.25"},
		{TimeRange: "09:15 AM – 10:00 AM", Activity: "Travel to college", Hours: "0.75"},
		{TimeRange: "10:00 AM – 05:00 PM", Activity: "College", Hours: "7"},
		{TimeRange: "05:00 PM – 06:00 PM", Activity: "Travel/Home & Snack", Hours: "1"},
		{TimeRange: "06:00 PM – 08:00 PM", Activity: "Study/revision", Hours: "2"},
		{TimeRange: "08:00 PM – 09:00 PM", Activity: "Dinner & Relaxation", Hours: "1"},
		{TimeRange: "09:00 PM – 11:30 PM", Activity: "Coding Practice/leisure/PC", Hours: "2.5"},
		{TimeRange: "11:30 PM – 08:00 AM", Activity: "Sleep", Hours: "8.5"},
	}
}

// DefaultFor returns the collection's default value: the schedule template
// for schedule, an empty sequence for everything else.
func DefaultFor(c Collection) interface{} {
	switch c {
	case CollectionSchedule:
		return DefaultSchedule()
	case CollectionTasks:
		return []Task{}
	case CollectionExams:
		return []Event{}
	case CollectionNotes:
		return []Note{}
	default:
		return []json.RawMessage{}
	}
}

// DefaultRaw returns the serialized default for the collection.
func DefaultRaw(c Collection) json.RawMessage {
	raw, err := json.Marshal(DefaultFor(c))
	if err != nil {
		// All defaults are static and marshal cleanly.
		return json.RawMessage("[]")
	}
	return raw
}
