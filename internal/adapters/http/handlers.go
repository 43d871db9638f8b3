package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nexusplan/core/internal/application/services"
	"github.com/nexusplan/core/internal/application/store"
	"github.com/nexusplan/core/internal/domain/entities"
	"github.com/nexusplan/core/internal/infrastructure/logger"
	"github.com/nexusplan/core/internal/ports"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService *services.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register handles account creation
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, entities.ErrUserExists) {
			return echo.NewHTTPError(http.StatusConflict, "Account already exists")
		}
		h.logger.Errorw("Registration failed", "error", err, "email", req.Email)
		return echo.NewHTTPError(http.StatusInternalServerError, "Registration failed")
	}

	return c.JSON(http.StatusCreated, response)
}

// Login handles user login
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Login failed", "error", err, "email", req.Email)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	return c.JSON(http.StatusOK, response)
}

// Logout handles user logout
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context()); err != nil {
		if errors.Is(err, entities.ErrNotAuthenticated) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
		}
		h.logger.Errorw("Logout failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Logout failed")
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me returns the signed-in user. The bearer token must name the process's
// current session.
func (h *AuthHandler) Me(c echo.Context) error {
	user := h.authService.CurrentUser()
	if user == nil || user.ID != userIDFromContext(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return c.JSON(http.StatusOK, &sanitized)
}

// userIDFromContext extracts the authenticated user's id set by the auth
// middleware.
func userIDFromContext(c echo.Context) string {
	userID, ok := c.Get("user").(string)
	if !ok {
		return ""
	}
	return userID
}

// CollectionHandler exposes raw collection access: whole-value reads and
// whole-value overwrites, mirroring how the store itself works.
type CollectionHandler struct {
	store  *store.Store
	logger *logger.Logger
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(st *store.Store, logger *logger.Logger) *CollectionHandler {
	return &CollectionHandler{
		store:  st,
		logger: logger,
	}
}

// List returns the collection names.
func (h *CollectionHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, entities.Collections())
}

// Get returns a collection's current value; absent or corrupt values come
// back as the collection default.
func (h *CollectionHandler) Get(c echo.Context) error {
	collection, err := collectionParam(c)
	if err != nil {
		return err
	}

	return c.JSONBlob(http.StatusOK, h.store.Read(collection))
}

// Put overwrites a collection with the request body, which must be valid
// JSON. The write broadcasts and propagates like any local write.
func (h *CollectionHandler) Put(c echo.Context) error {
	collection, err := collectionParam(c)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}
	if !json.Valid(body) {
		return echo.NewHTTPError(http.StatusBadRequest, "Body must be valid JSON")
	}

	if err := h.store.WriteRaw(collection, body); err != nil {
		h.logger.Errorw("Collection write failed", "error", err, "collection", collection)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to write collection")
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Collection updated"})
}

// Reset restores a collection to its default value.
func (h *CollectionHandler) Reset(c echo.Context) error {
	collection, err := collectionParam(c)
	if err != nil {
		return err
	}

	if err := h.store.Reset(collection, entities.DefaultFor(collection)); err != nil {
		h.logger.Errorw("Collection reset failed", "error", err, "collection", collection)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to reset collection")
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Collection reset"})
}

func collectionParam(c echo.Context) (entities.Collection, error) {
	collection := entities.Collection(c.Param("name"))
	if !collection.IsValid() {
		return "", echo.NewHTTPError(http.StatusNotFound, "Unknown collection")
	}
	return collection, nil
}

// PlannerHandler handles task, schedule, event and note requests
type PlannerHandler struct {
	planner *services.PlannerService
	logger  *logger.Logger
}

// NewPlannerHandler creates a new planner handler
func NewPlannerHandler(planner *services.PlannerService, logger *logger.Logger) *PlannerHandler {
	return &PlannerHandler{
		planner: planner,
		logger:  logger,
	}
}

// ListTasks returns all tasks in display order
func (h *PlannerHandler) ListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.planner.Tasks())
}

// CreateTask adds a task to the top of the list
func (h *PlannerHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.planner.AddTask(req)
	if err != nil {
		return h.plannerError(c, "Create task failed", err)
	}

	return c.JSON(http.StatusCreated, task)
}

// ToggleTask flips a task's completion state
func (h *PlannerHandler) ToggleTask(c echo.Context) error {
	task, err := h.planner.ToggleTask(c.Param("id"))
	if err != nil {
		return h.plannerError(c, "Toggle task failed", err)
	}

	return c.JSON(http.StatusOK, task)
}

// MoveTask reorders a task
func (h *PlannerHandler) MoveTask(c echo.Context) error {
	var req ports.MoveTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := h.planner.MoveTask(c.Param("id"), req.To); err != nil {
		return h.plannerError(c, "Move task failed", err)
	}

	return c.JSON(http.StatusOK, h.planner.Tasks())
}

// DeleteTask removes a task
func (h *PlannerHandler) DeleteTask(c echo.Context) error {
	if err := h.planner.DeleteTask(c.Param("id")); err != nil {
		return h.plannerError(c, "Delete task failed", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ListSchedule returns the daily schedule
func (h *PlannerHandler) ListSchedule(c echo.Context) error {
	return c.JSON(http.StatusOK, h.planner.Schedule())
}

// CreateScheduleEntry appends a schedule entry
func (h *PlannerHandler) CreateScheduleEntry(c echo.Context) error {
	var req ports.CreateScheduleEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entry, err := h.planner.AddScheduleEntry(req)
	if err != nil {
		return h.plannerError(c, "Create schedule entry failed", err)
	}

	return c.JSON(http.StatusCreated, entry)
}

// UpdateScheduleEntry edits a schedule entry in place
func (h *PlannerHandler) UpdateScheduleEntry(c echo.Context) error {
	var req ports.UpdateScheduleEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	entry, err := h.planner.UpdateScheduleEntry(c.Param("id"), req)
	if err != nil {
		return h.plannerError(c, "Update schedule entry failed", err)
	}

	return c.JSON(http.StatusOK, entry)
}

// DeleteScheduleEntry removes a schedule entry
func (h *PlannerHandler) DeleteScheduleEntry(c echo.Context) error {
	if err := h.planner.DeleteScheduleEntry(c.Param("id")); err != nil {
		return h.plannerError(c, "Delete schedule entry failed", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ResetSchedule restores the default daily template
func (h *PlannerHandler) ResetSchedule(c echo.Context) error {
	if err := h.planner.ResetSchedule(); err != nil {
		return h.plannerError(c, "Reset schedule failed", err)
	}

	return c.JSON(http.StatusOK, h.planner.Schedule())
}

// ListEvents returns exams and events, optionally filtered to a month
func (h *PlannerHandler) ListEvents(c echo.Context) error {
	yearStr, monthStr := c.QueryParam("year"), c.QueryParam("month")
	if yearStr == "" && monthStr == "" {
		return c.JSON(http.StatusOK, h.planner.Events())
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid year parameter")
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid month parameter")
	}

	events := h.planner.EventsInMonth(year, time.Month(month))
	if events == nil {
		events = []entities.Event{}
	}
	return c.JSON(http.StatusOK, events)
}

// CreateEvent adds an exam or event
func (h *PlannerHandler) CreateEvent(c echo.Context) error {
	var req ports.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	event, err := h.planner.AddEvent(req)
	if err != nil {
		return h.plannerError(c, "Create event failed", err)
	}

	return c.JSON(http.StatusCreated, event)
}

// DeleteEvent removes an event
func (h *PlannerHandler) DeleteEvent(c echo.Context) error {
	if err := h.planner.DeleteEvent(c.Param("id")); err != nil {
		return h.plannerError(c, "Delete event failed", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ListNotes returns all notes
func (h *PlannerHandler) ListNotes(c echo.Context) error {
	return c.JSON(http.StatusOK, h.planner.Notes())
}

// SaveNote creates a note, or updates one when an id is supplied
func (h *PlannerHandler) SaveNote(c echo.Context) error {
	var req ports.SaveNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	note, err := h.planner.SaveNote(req)
	if err != nil {
		return h.plannerError(c, "Save note failed", err)
	}

	status := http.StatusCreated
	if req.ID != "" {
		status = http.StatusOK
	}
	return c.JSON(status, note)
}

// DeleteNote removes a note
func (h *PlannerHandler) DeleteNote(c echo.Context) error {
	if err := h.planner.DeleteNote(c.Param("id")); err != nil {
		return h.plannerError(c, "Delete note failed", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Dashboard returns the landing-page summary
func (h *PlannerHandler) Dashboard(c echo.Context) error {
	return c.JSON(http.StatusOK, h.planner.Dashboard())
}

func (h *PlannerHandler) plannerError(c echo.Context, msg string, err error) error {
	switch {
	case errors.Is(err, entities.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Record not found")
	case errors.Is(err, entities.ErrInvalidMove):
		return echo.NewHTTPError(http.StatusBadRequest, "Target position out of range")
	case errors.Is(err, entities.ErrEmptyNote):
		return echo.NewHTTPError(http.StatusBadRequest, "Note is empty")
	case errors.Is(err, entities.ErrInvalidPriority), errors.Is(err, entities.ErrInvalidEventKind):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		h.logger.Errorw(msg, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, msg)
	}
}

// Request/Response types

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
