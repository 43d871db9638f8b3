package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nexusplan/core/internal/application/store"
	"github.com/nexusplan/core/internal/domain/entities"
	"github.com/nexusplan/core/internal/infrastructure/logger"
	"github.com/nexusplan/core/internal/ports"
)

// PlannerService implements the planner's read-modify-write operations on
// top of the store. Every mutation rewrites the full collection; ordering
// within a collection is the display order.
type PlannerService struct {
	store  *store.Store
	logger *logger.Logger
	now    func() time.Time
}

// NewPlannerService creates a new planner service
func NewPlannerService(st *store.Store, logger *logger.Logger) *PlannerService {
	return &PlannerService{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// --- Tasks ---

// Tasks returns the task list in display order.
func (s *PlannerService) Tasks() []entities.Task {
	return s.store.Tasks()
}

// AddTask prepends a new task. Priority defaults to p4 (none).
func (s *PlannerService) AddTask(req ports.CreateTaskRequest) (*entities.Task, error) {
	priority := entities.TaskPriority(req.Priority)
	if priority == "" {
		priority = entities.PriorityP4
	}
	if !priority.IsValid() {
		return nil, entities.ErrInvalidPriority
	}

	task := entities.Task{
		ID:        uuid.NewString(),
		Text:      req.Text,
		Priority:  priority,
		DueDate:   req.DueDate,
		Completed: false,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}

	tasks := append([]entities.Task{task}, s.store.Tasks()...)
	if err := s.store.Write(entities.CollectionTasks, tasks); err != nil {
		return nil, err
	}

	s.logger.Infow("Task added", "task_id", task.ID)
	return &task, nil
}

// ToggleTask flips a task's completion state.
func (s *PlannerService) ToggleTask(id string) (*entities.Task, error) {
	tasks := s.store.Tasks()
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i].Completed = !tasks[i].Completed
			if err := s.store.Write(entities.CollectionTasks, tasks); err != nil {
				return nil, err
			}
			return &tasks[i], nil
		}
	}
	return nil, entities.ErrRecordNotFound
}

// DeleteTask removes a task.
func (s *PlannerService) DeleteTask(id string) error {
	tasks := s.store.Tasks()
	for i := range tasks {
		if tasks[i].ID == id {
			tasks = append(tasks[:i], tasks[i+1:]...)
			return s.store.Write(entities.CollectionTasks, tasks)
		}
	}
	return entities.ErrRecordNotFound
}

// MoveTask reorders a task to position `to` in display order.
func (s *PlannerService) MoveTask(id string, to int) error {
	tasks := s.store.Tasks()
	from := -1
	for i := range tasks {
		if tasks[i].ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return entities.ErrRecordNotFound
	}
	if to < 0 || to >= len(tasks) {
		return entities.ErrInvalidMove
	}

	task := tasks[from]
	tasks = append(tasks[:from], tasks[from+1:]...)
	tasks = append(tasks[:to], append([]entities.Task{task}, tasks[to:]...)...)

	return s.store.Write(entities.CollectionTasks, tasks)
}

// --- Schedule ---

// Schedule returns the schedule in display order.
func (s *PlannerService) Schedule() []entities.ScheduleEntry {
	return s.store.Schedule()
}

// AddScheduleEntry appends an entry built from 24-hour start/end times:
// the time range is rendered in 12-hour form, the duration in decimal hours,
// and optional details are folded into the activity label.
func (s *PlannerService) AddScheduleEntry(req ports.CreateScheduleEntryRequest) (*entities.ScheduleEntry, error) {
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end time: %w", err)
	}

	activity := req.Activity
	if req.Details != "" {
		activity = fmt.Sprintf("%s (%s)", activity, req.Details)
	}

	hours := end.Sub(start).Hours()
	if hours < 0 {
		hours = -hours
	}

	entry := entities.ScheduleEntry{
		ID:        uuid.NewString(),
		TimeRange: fmt.Sprintf("%s – %s", formatTime12(start), formatTime12(end)),
		Activity:  activity,
		Hours:     strconv.FormatFloat(hours, 'f', 2, 64),
	}

	schedule := append(s.store.Schedule(), entry)
	if err := s.store.Write(entities.CollectionSchedule, schedule); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateScheduleEntry edits individual fields of an entry in place.
func (s *PlannerService) UpdateScheduleEntry(id string, req ports.UpdateScheduleEntryRequest) (*entities.ScheduleEntry, error) {
	schedule := s.store.Schedule()
	for i := range schedule {
		if schedule[i].ID != id {
			continue
		}
		entry := &schedule[i]
		start, end := entry.StartTime(), entry.EndTime()
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		entry.TimeRange = fmt.Sprintf("%s – %s", start, end)
		if req.Activity != nil {
			entry.Activity = *req.Activity
		}
		if req.Hours != nil {
			entry.Hours = *req.Hours
		}
		if err := s.store.Write(entities.CollectionSchedule, schedule); err != nil {
			return nil, err
		}
		return entry, nil
	}
	return nil, entities.ErrRecordNotFound
}

// DeleteScheduleEntry removes an entry.
func (s *PlannerService) DeleteScheduleEntry(id string) error {
	schedule := s.store.Schedule()
	for i := range schedule {
		if schedule[i].ID == id {
			schedule = append(schedule[:i], schedule[i+1:]...)
			return s.store.Write(entities.CollectionSchedule, schedule)
		}
	}
	return entities.ErrRecordNotFound
}

// ResetSchedule force-resets the schedule to the fixed daily template.
func (s *PlannerService) ResetSchedule() error {
	return s.store.ResetSchedule()
}

// --- Events ---

// Events returns all exams and events.
func (s *PlannerService) Events() []entities.Event {
	return s.store.Events()
}

// AddEvent appends a calendar event.
func (s *PlannerService) AddEvent(req ports.CreateEventRequest) (*entities.Event, error) {
	kind := entities.EventKind(req.Type)
	if !kind.IsValid() {
		return nil, entities.ErrInvalidEventKind
	}

	event := entities.Event{
		ID:    uuid.NewString(),
		Title: req.Title,
		Date:  req.Date,
		Type:  kind,
	}

	events := append(s.store.Events(), event)
	if err := s.store.Write(entities.CollectionExams, events); err != nil {
		return nil, err
	}
	return &event, nil
}

// EventsInMonth returns events falling in the given month.
func (s *PlannerService) EventsInMonth(year int, month time.Month) []entities.Event {
	var matched []entities.Event
	for _, event := range s.store.Events() {
		date, err := time.Parse("2006-01-02", event.Date)
		if err != nil {
			continue
		}
		if date.Year() == year && date.Month() == month {
			matched = append(matched, event)
		}
	}
	return matched
}

// DeleteEvent removes an event.
func (s *PlannerService) DeleteEvent(id string) error {
	events := s.store.Events()
	for i := range events {
		if events[i].ID == id {
			events = append(events[:i], events[i+1:]...)
			return s.store.Write(entities.CollectionExams, events)
		}
	}
	return entities.ErrRecordNotFound
}

// --- Notes ---

// Notes returns all notes in display order, each carrying its link kind.
func (s *PlannerService) Notes() []ports.NoteView {
	notes := s.store.Notes()
	views := make([]ports.NoteView, len(notes))
	for i, note := range notes {
		views[i] = ports.NoteView{Note: note, Kind: note.Kind()}
	}
	return views
}

// SaveNote creates a note, or updates it when req.ID matches an existing
// one. An empty title falls back to a URL-derived title, then "Untitled";
// a URL also derives a cover image. Fully empty submissions are rejected.
func (s *PlannerService) SaveNote(req ports.SaveNoteRequest) (*ports.NoteView, error) {
	if req.Title == "" && req.Body == "" && req.URL == "" {
		return nil, entities.ErrEmptyNote
	}

	title := req.Title
	cover := ""
	if req.URL != "" {
		meta := entities.MetadataFromURL(req.URL)
		if title == "" {
			title = meta.Title
		}
		cover = meta.Image
	}
	if title == "" {
		title = "Untitled"
	}

	note := entities.Note{
		ID:        req.ID,
		Title:     title,
		Body:      req.Body,
		URL:       req.URL,
		Cover:     cover,
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	}

	notes := s.store.Notes()
	if req.ID != "" {
		for i := range notes {
			if notes[i].ID == req.ID {
				notes[i] = note
				if err := s.store.Write(entities.CollectionNotes, notes); err != nil {
					return nil, err
				}
				return &ports.NoteView{Note: note, Kind: note.Kind()}, nil
			}
		}
		return nil, entities.ErrRecordNotFound
	}

	note.ID = uuid.NewString()
	notes = append(notes, note)
	if err := s.store.Write(entities.CollectionNotes, notes); err != nil {
		return nil, err
	}
	return &ports.NoteView{Note: note, Kind: note.Kind()}, nil
}

// DeleteNote removes a note.
func (s *PlannerService) DeleteNote(id string) error {
	notes := s.store.Notes()
	for i := range notes {
		if notes[i].ID == id {
			notes = append(notes[:i], notes[i+1:]...)
			return s.store.Write(entities.CollectionNotes, notes)
		}
	}
	return entities.ErrRecordNotFound
}

// --- Dashboard ---

// Dashboard aggregates the landing page counters: pending and overdue tasks
// with the top five pending shown, event and note totals, and overall
// completion.
func (s *PlannerService) Dashboard() ports.DashboardSummary {
	tasks := s.store.Tasks()
	now := s.now()

	var pending []entities.Task
	completed, overdue := 0, 0
	for _, task := range tasks {
		if task.Completed {
			completed++
		} else {
			pending = append(pending, task)
		}
		if task.IsOverdue(now) {
			overdue++
		}
	}

	top := pending
	if len(top) > 5 {
		top = top[:5]
	}
	if top == nil {
		top = []entities.Task{}
	}

	percent := 0
	if len(tasks) > 0 {
		percent = int(float64(completed)/float64(len(tasks))*100 + 0.5)
	}

	return ports.DashboardSummary{
		PendingTasks:      len(pending),
		OverdueTasks:      overdue,
		TopPending:        top,
		UpcomingEvents:    len(s.store.Events()),
		Notes:             len(s.store.Notes()),
		CompletionPercent: percent,
	}
}

// formatTime12 renders a time in zero-padded 12-hour clock form ("08:05 PM"),
// matching the format the default template uses.
func formatTime12(t time.Time) string {
	return t.Format("03:04 PM")
}
