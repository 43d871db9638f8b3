package ports

import "github.com/nexusplan/core/internal/domain/entities"

// Auth request/response types

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Password    string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"`
	User        *entities.User `json:"user"`
}

// Planner request types

type CreateTaskRequest struct {
	Text     string `json:"text" validate:"required"`
	Priority string `json:"priority" validate:"omitempty,oneof=p1 p2 p3 p4"`
	DueDate  string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

type MoveTaskRequest struct {
	To int `json:"to" validate:"min=0"`
}

type CreateScheduleEntryRequest struct {
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
	Activity  string `json:"activity" validate:"required"`
	Details   string `json:"details"`
}

type UpdateScheduleEntryRequest struct {
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Activity  *string `json:"activity"`
	Hours     *string `json:"hours"`
}

type CreateEventRequest struct {
	Title string `json:"title" validate:"required"`
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Type  string `json:"type" validate:"required,oneof=exam event"`
}

type SaveNoteRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// NoteView is a note plus its derived link kind. The kind is computed from
// the URL on every read and never persisted.
type NoteView struct {
	entities.Note
	Kind entities.LinkKind `json:"kind"`
}

// DashboardSummary aggregates the landing-page counters.
type DashboardSummary struct {
	PendingTasks      int             `json:"pending_tasks"`
	OverdueTasks      int             `json:"overdue_tasks"`
	TopPending        []entities.Task `json:"top_pending"`
	UpcomingEvents    int             `json:"upcoming_events"`
	Notes             int             `json:"notes"`
	CompletionPercent int             `json:"completion_percent"`
}
