package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionKeys(t *testing.T) {
	assert.Equal(t, "eng_app_schedule", CollectionSchedule.Key())
	assert.Equal(t, "eng_app_tasks", CollectionTasks.Key())
	assert.Equal(t, "eng_app_exams", CollectionExams.Key())
	assert.Equal(t, "eng_app_notes", CollectionNotes.Key())
	assert.Equal(t, "eng_app_settings", CollectionSettings.Key())
}

func TestCollectionFromKey(t *testing.T) {
	c, ok := CollectionFromKey("eng_app_tasks")
	require.True(t, ok)
	assert.Equal(t, CollectionTasks, c)

	_, ok = CollectionFromKey("eng_app_bogus")
	assert.False(t, ok)

	_, ok = CollectionFromKey("tasks")
	assert.False(t, ok)

	_, ok = CollectionFromKey("other_app_tasks")
	assert.False(t, ok)
}

func TestCollectionFromDoc(t *testing.T) {
	c, ok := CollectionFromDoc("notes")
	require.True(t, ok)
	assert.Equal(t, CollectionNotes, c)

	_, ok = CollectionFromDoc("eng_app_notes")
	assert.False(t, ok, "doc ids are the short names, not storage keys")
}

func TestTaskPriorityIsValid(t *testing.T) {
	for _, p := range []TaskPriority{PriorityP1, PriorityP2, PriorityP3, PriorityP4} {
		assert.True(t, p.IsValid(), string(p))
	}
	assert.False(t, TaskPriority("p5").IsValid())
	assert.False(t, TaskPriority("").IsValid())
}

func TestEventKindIsValid(t *testing.T) {
	assert.True(t, EventKindExam.IsValid())
	assert.True(t, EventKindEvent.IsValid())
	assert.False(t, EventKind("meeting").IsValid())
}

func TestDefaultScheduleTemplate(t *testing.T) {
	schedule := DefaultSchedule()
	require.Len(t, schedule, 8)

	first := schedule[0]
	assert.Equal(t, "08:00 AM – 09:15 AM", first.TimeRange)
	assert.Equal(t, "Morning Routine & Breakfast", first.Activity)
	assert.Equal(t, "1.25", first.Hours)

	last := schedule[7]
	assert.Equal(t, "Sleep", last.Activity)
	assert.Equal(t, "8.5", last.Hours)
}

func TestDefaultScheduleReturnsFreshCopy(t *testing.T) {
	a := DefaultSchedule()
	a[0].Activity = "mutated"
	b := DefaultSchedule()
	assert.Equal(t, "Morning Routine & Breakfast", b[0].Activity)
}

func TestDefaultForEmptyCollections(t *testing.T) {
	assert.Equal(t, []Task{}, DefaultFor(CollectionTasks))
	assert.Equal(t, []Event{}, DefaultFor(CollectionExams))
	assert.Equal(t, []Note{}, DefaultFor(CollectionNotes))
}

func TestDefaultRawIsValidJSON(t *testing.T) {
	for _, c := range Collections() {
		raw := DefaultRaw(c)
		assert.True(t, json.Valid(raw), string(c))
	}
	assert.JSONEq(t, "[]", string(DefaultRaw(CollectionTasks)))
}

func TestScheduleEntryTimeRangeSplit(t *testing.T) {
	tests := []struct {
		name      string
		timeRange string
		start     string
		end       string
	}{
		{"en dash", "08:00 AM – 09:15 AM", "08:00 AM", "09:15 AM"},
		{"hyphen", "08:00 AM - 09:15 AM", "08:00 AM", "09:15 AM"},
		{"em dash", "10:00 AM — 05:00 PM", "10:00 AM", "05:00 PM"},
		{"no separator", "all day", "all day", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ScheduleEntry{TimeRange: tt.timeRange}
			assert.Equal(t, tt.start, e.StartTime())
			assert.Equal(t, tt.end, e.EndTime())
		})
	}
}

func TestTaskIsOverdue(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, Task{DueDate: "2024-06-14"}.IsOverdue(now))
	assert.False(t, Task{DueDate: "2024-06-15"}.IsOverdue(now), "due today is not overdue")
	assert.False(t, Task{DueDate: "2024-06-16"}.IsOverdue(now))
	assert.False(t, Task{DueDate: "2024-06-14", Completed: true}.IsOverdue(now))
	assert.False(t, Task{}.IsOverdue(now))
	assert.False(t, Task{DueDate: "yesterday"}.IsOverdue(now))
}

func TestNoteIsEmpty(t *testing.T) {
	assert.True(t, Note{}.IsEmpty())
	assert.False(t, Note{Title: "x"}.IsEmpty())
	assert.False(t, Note{Body: "x"}.IsEmpty())
	assert.False(t, Note{URL: "https://example.com"}.IsEmpty())
}

func TestTaskJSONShape(t *testing.T) {
	task := Task{Text: "revise", Priority: PriorityP2, DueDate: "2024-06-20"}
	raw, err := json.Marshal(task)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"revise","priority":"p2","dueDate":"2024-06-20","completed":false}`, string(raw))
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	raw, err := json.Marshal(User{ID: "u1", Email: "a@b.c", PasswordHash: "secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
}
