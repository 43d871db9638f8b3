package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusplan/core/internal/adapters/storage"
	"github.com/nexusplan/core/internal/application/notify"
	"github.com/nexusplan/core/internal/application/services"
	"github.com/nexusplan/core/internal/application/store"
	"github.com/nexusplan/core/internal/domain/entities"
	"github.com/nexusplan/core/internal/infrastructure/config"
	"github.com/nexusplan/core/internal/infrastructure/logger"
	"github.com/nexusplan/core/internal/ports"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func newHandlers(t *testing.T) (*CollectionHandler, *PlannerHandler) {
	t.Helper()
	st := store.New(storage.NewMemoryMedium("test-writer"), notify.New(), logger.NewNop())
	planner := services.NewPlannerService(st, logger.NewNop())
	return NewCollectionHandler(st, logger.NewNop()), NewPlannerHandler(planner, logger.NewNop())
}

func TestCollectionGetReturnsDefault(t *testing.T) {
	ch, _ := newHandlers(t)

	c, rec := newTestContext(t, http.MethodGet, "/", "")
	c.SetParamNames("name")
	c.SetParamValues("schedule")

	require.NoError(t, ch.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var schedule []entities.ScheduleEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schedule))
	require.Len(t, schedule, 8)
	assert.Equal(t, "Morning Routine & Breakfast", schedule[0].Activity)
}

func TestCollectionGetUnknownName(t *testing.T) {
	ch, _ := newHandlers(t)

	c, _ := newTestContext(t, http.MethodGet, "/", "")
	c.SetParamNames("name")
	c.SetParamValues("bogus")

	err := ch.Get(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestCollectionPutRoundTrip(t *testing.T) {
	ch, _ := newHandlers(t)

	body := `[{"text":"from api","priority":"p2","completed":false}]`
	c, rec := newTestContext(t, http.MethodPut, "/", body)
	c.SetParamNames("name")
	c.SetParamValues("tasks")

	require.NoError(t, ch.Put(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c2, rec2 := newTestContext(t, http.MethodGet, "/", "")
	c2.SetParamNames("name")
	c2.SetParamValues("tasks")
	require.NoError(t, ch.Get(c2))
	assert.JSONEq(t, body, rec2.Body.String())
}

func TestCollectionPutRejectsInvalidJSON(t *testing.T) {
	ch, _ := newHandlers(t)

	c, _ := newTestContext(t, http.MethodPut, "/", "{not json")
	c.SetParamNames("name")
	c.SetParamValues("tasks")

	err := ch.Put(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCollectionList(t *testing.T) {
	ch, _ := newHandlers(t)

	c, rec := newTestContext(t, http.MethodGet, "/", "")
	require.NoError(t, ch.List(c))

	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Equal(t, []string{"schedule", "tasks", "exams", "notes", "settings"}, names)
}

func TestCreateTaskEndpoint(t *testing.T) {
	_, ph := newHandlers(t)

	c, rec := newTestContext(t, http.MethodPost, "/", `{"text":"write report","priority":"p1"}`)
	require.NoError(t, ph.CreateTask(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var task entities.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, "write report", task.Text)
	assert.Equal(t, entities.PriorityP1, task.Priority)
	assert.NotEmpty(t, task.ID)
}

func TestCreateTaskValidation(t *testing.T) {
	_, ph := newHandlers(t)

	c, _ := newTestContext(t, http.MethodPost, "/", `{"priority":"p1"}`)
	err := ph.CreateTask(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code, "text is required")
}

func TestToggleMissingTask(t *testing.T) {
	_, ph := newHandlers(t)

	c, _ := newTestContext(t, http.MethodPost, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := ph.ToggleTask(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestSaveNoteEmptyRejected(t *testing.T) {
	_, ph := newHandlers(t)

	c, _ := newTestContext(t, http.MethodPost, "/", `{}`)
	err := ph.SaveNote(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestListNotesIncludesKind(t *testing.T) {
	_, ph := newHandlers(t)

	c, _ := newTestContext(t, http.MethodPost, "/", `{"title":"Design Doc","url":"https://docs.google.com/document/d/1"}`)
	require.NoError(t, ph.SaveNote(c))

	c2, rec := newTestContext(t, http.MethodGet, "/", "")
	require.NoError(t, ph.ListNotes(c2))

	var notes []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "Google Doc", notes[0]["kind"])
}

func TestResetScheduleEndpoint(t *testing.T) {
	ch, ph := newHandlers(t)

	body := `[{"timeRange":"06:00 AM – 07:00 AM","activity":"Gym","hours":"1"}]`
	c, _ := newTestContext(t, http.MethodPut, "/", body)
	c.SetParamNames("name")
	c.SetParamValues("schedule")
	require.NoError(t, ch.Put(c))

	c2, rec := newTestContext(t, http.MethodPost, "/", "")
	require.NoError(t, ph.ResetSchedule(c2))
	assert.Equal(t, http.StatusOK, rec.Code)

	var schedule []entities.ScheduleEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schedule))
	assert.Len(t, schedule, 8)
}

func TestDashboardEndpoint(t *testing.T) {
	_, ph := newHandlers(t)

	c, rec := newTestContext(t, http.MethodGet, "/", "")
	require.NoError(t, ph.Dashboard(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Contains(t, summary, "pending_tasks")
	assert.Contains(t, summary, "overdue_tasks")
	assert.Contains(t, summary, "completion_percent")
}

type stubUserRepo struct {
	byEmail map[string]*entities.User
}

func (r *stubUserRepo) Create(ctx context.Context, user *entities.User) error {
	if _, ok := r.byEmail[user.Email]; ok {
		return entities.ErrUserExists
	}
	r.byEmail[user.Email] = user
	return nil
}

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*entities.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	return u, nil
}

func newAuthHandler(t *testing.T) (*AuthHandler, *services.AuthService) {
	t.Helper()
	auth := services.NewAuthService(
		&stubUserRepo{byEmail: make(map[string]*entities.User)},
		config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "nexusplan-test"},
		logger.NewNop(),
	)
	return NewAuthHandler(auth, logger.NewNop()), auth
}

func TestMeReturnsSessionUser(t *testing.T) {
	h, auth := newAuthHandler(t)

	resp, err := auth.Register(context.Background(), ports.RegisterRequest{
		Email: "student@example.com", DisplayName: "Student", Password: "correct horse",
	})
	require.NoError(t, err)

	c, rec := newTestContext(t, http.MethodGet, "/", "")
	c.Set("user", resp.User.ID)

	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var user entities.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, resp.User.ID, user.ID)
	assert.Empty(t, user.PasswordHash)
}

func TestMeRejectsMismatchedToken(t *testing.T) {
	h, auth := newAuthHandler(t)

	_, err := auth.Register(context.Background(), ports.RegisterRequest{
		Email: "student@example.com", DisplayName: "Student", Password: "correct horse",
	})
	require.NoError(t, err)

	// Valid token for a user that is not this process's session.
	c, _ := newTestContext(t, http.MethodGet, "/", "")
	c.Set("user", "someone-else")

	err = h.Me(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestLogoutWithoutSessionEndpoint(t *testing.T) {
	h, _ := newAuthHandler(t)

	c, _ := newTestContext(t, http.MethodPost, "/", "")
	err := h.Logout(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}
