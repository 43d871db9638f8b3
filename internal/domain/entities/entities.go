package entities

import (
	"errors"
	"strings"
	"time"
)

// Common errors
var (
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrRecordNotFound     = errors.New("record not found")
	ErrEmptyNote          = errors.New("note has no content")
	ErrInvalidPriority    = errors.New("invalid task priority")
	ErrInvalidEventKind   = errors.New("invalid event kind")
	ErrInvalidMove        = errors.New("invalid move position")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrDocNotFound        = errors.New("remote document not found")
)

// KeyPrefix namespaces every collection key in the local medium.
const KeyPrefix = "eng_app_"

// Collection identifies one of the fixed planner data sets. Each collection
// is persisted as a single serialized array under its namespaced key.
type Collection string

const (
	CollectionSchedule Collection = "schedule"
	CollectionTasks    Collection = "tasks"
	CollectionExams    Collection = "exams"
	CollectionNotes    Collection = "notes"
	CollectionSettings Collection = "settings"
)

// Collections returns every known collection in a stable order.
func Collections() []Collection {
	return []Collection{
		CollectionSchedule,
		CollectionTasks,
		CollectionExams,
		CollectionNotes,
		CollectionSettings,
	}
}

func (c Collection) IsValid() bool {
	switch c {
	case CollectionSchedule, CollectionTasks, CollectionExams, CollectionNotes, CollectionSettings:
		return true
	default:
		return false
	}
}

// Key returns the namespaced local storage key for the collection.
func (c Collection) Key() string {
	return KeyPrefix + string(c)
}

// CollectionFromKey maps a namespaced storage key back to its collection.
func CollectionFromKey(key string) (Collection, bool) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return "", false
	}
	c := Collection(strings.TrimPrefix(key, KeyPrefix))
	return c, c.IsValid()
}

// CollectionFromDoc maps a remote document id (the short collection name)
// to its collection.
func CollectionFromDoc(doc string) (Collection, bool) {
	c := Collection(doc)
	return c, c.IsValid()
}

// TaskPriority follows the p1 (highest) to p4 (none) scale.
type TaskPriority string

const (
	PriorityP1 TaskPriority = "p1"
	PriorityP2 TaskPriority = "p2"
	PriorityP3 TaskPriority = "p3"
	PriorityP4 TaskPriority = "p4"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3, PriorityP4:
		return true
	default:
		return false
	}
}

// EventKind distinguishes exams from generic calendar events.
type EventKind string

const (
	EventKindExam  EventKind = "exam"
	EventKindEvent EventKind = "event"
)

func (k EventKind) IsValid() bool {
	switch k {
	case EventKindExam, EventKindEvent:
		return true
	default:
		return false
	}
}

// ScheduleEntry is one row of the daily schedule. TimeRange is free text
// ("08:00 AM – 09:15 AM"), Hours is decimal hours as text.
type ScheduleEntry struct {
	ID        string `json:"id,omitempty"`
	TimeRange string `json:"timeRange"`
	Activity  string `json:"activity"`
	Hours     string `json:"hours"`
}

// StartTime returns the left half of the free-text time range.
func (e ScheduleEntry) StartTime() string {
	start, _ := splitTimeRange(e.TimeRange)
	return start
}

// EndTime returns the right half of the free-text time range.
func (e ScheduleEntry) EndTime() string {
	_, end := splitTimeRange(e.TimeRange)
	return end
}

// splitTimeRange splits on hyphen, en dash or em dash.
func splitTimeRange(r string) (string, string) {
	for _, sep := range []string{"–", "—", "-"} {
		if i := strings.Index(r, sep); i >= 0 {
			return strings.TrimSpace(r[:i]), strings.TrimSpace(r[i+len(sep):])
		}
	}
	return strings.TrimSpace(r), ""
}

// Task is a to-do item. DueDate is a calendar date in YYYY-MM-DD form or
// empty, CreatedAt is an RFC 3339 timestamp.
type Task struct {
	ID        string       `json:"id,omitempty"`
	Text      string       `json:"text"`
	Priority  TaskPriority `json:"priority"`
	DueDate   string       `json:"dueDate,omitempty"`
	Completed bool         `json:"completed"`
	CreatedAt string       `json:"createdAt,omitempty"`
}

// IsOverdue reports whether the due date lies before the start of today.
// Completed tasks and tasks without a parseable due date are never overdue.
func (t Task) IsOverdue(now time.Time) bool {
	if t.Completed || t.DueDate == "" {
		return false
	}
	due, err := time.Parse("2006-01-02", t.DueDate)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return due.Before(today)
}

// Event is a calendar entry, either an exam or a generic event.
// Date is a calendar date in YYYY-MM-DD form.
type Event struct {
	ID    string    `json:"id,omitempty"`
	Title string    `json:"title"`
	Date  string    `json:"date"`
	Type  EventKind `json:"type"`
}

// Note is a free-form note, optionally linked to an external resource.
type Note struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	URL       string `json:"url,omitempty"`
	Cover     string `json:"cover,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// IsEmpty reports whether the note carries no content at all.
func (n Note) IsEmpty() bool {
	return n.Title == "" && n.Body == "" && n.URL == ""
}

// Kind classifies the note by its linked resource; notes without a URL are
// plain text.
func (n Note) Kind() LinkKind {
	return DetectLinkKind(n.URL)
}

// User is a cloud sync account.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
