package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusplan/core/internal/adapters/storage"
	"github.com/nexusplan/core/internal/application/notify"
	"github.com/nexusplan/core/internal/domain/entities"
	"github.com/nexusplan/core/internal/infrastructure/logger"
)

func newTestStore() (*Store, *notify.Notifier) {
	notifier := notify.New()
	medium := storage.NewMemoryMedium("test-writer")
	return New(medium, notifier, logger.NewNop()), notifier
}

type capturingPropagator struct {
	collections []entities.Collection
	contents    []json.RawMessage
}

func (p *capturingPropagator) Push(collection entities.Collection, content json.RawMessage) {
	p.collections = append(p.collections, collection)
	p.contents = append(p.contents, content)
}

func TestReadReturnsDefaultsWhenEmpty(t *testing.T) {
	st, _ := newTestStore()

	for _, c := range entities.Collections() {
		assert.JSONEq(t, string(entities.DefaultRaw(c)), string(st.Read(c)), string(c))
	}
}

func TestScheduleDefaultsToTemplate(t *testing.T) {
	st, _ := newTestStore()

	schedule := st.Schedule()
	require.Len(t, schedule, 8)
	assert.Equal(t, "08:00 AM – 09:15 AM", schedule[0].TimeRange)
	assert.Equal(t, "Morning Routine & Breakfast", schedule[0].Activity)
	assert.Equal(t, "1.25", schedule[0].Hours)
}

func TestWriteRawRoundTripsExactBytes(t *testing.T) {
	st, _ := newTestStore()

	raw := json.RawMessage(`[{"text":"call home","priority":"p3","completed":false}]`)
	require.NoError(t, st.WriteRaw(entities.CollectionTasks, raw))

	got, ok := st.Current(entities.CollectionTasks)
	require.True(t, ok)
	assert.Equal(t, string(raw), string(got))
}

func TestWriteBroadcastsExactlyOnce(t *testing.T) {
	st, notifier := newTestStore()

	broadcasts := 0
	notifier.Subscribe(func() { broadcasts++ })

	require.NoError(t, st.Write(entities.CollectionTasks, []entities.Task{{Text: "a"}}))
	assert.Equal(t, 1, broadcasts)

	require.NoError(t, st.Write(entities.CollectionTasks, []entities.Task{{Text: "b"}}))
	assert.Equal(t, 2, broadcasts)
}

func TestWriteHandsValueToPropagator(t *testing.T) {
	st, _ := newTestStore()
	prop := &capturingPropagator{}
	st.SetPropagator(prop)

	raw := json.RawMessage(`[{"title":"midterm","date":"2024-06-20","type":"exam"}]`)
	require.NoError(t, st.WriteRaw(entities.CollectionExams, raw))

	require.Len(t, prop.collections, 1)
	assert.Equal(t, entities.CollectionExams, prop.collections[0])
	assert.Equal(t, string(raw), string(prop.contents[0]))
}

func TestBroadcastPrecedesPropagation(t *testing.T) {
	st, notifier := newTestStore()

	var order []string
	notifier.Subscribe(func() { order = append(order, "notify") })

	st.SetPropagator(propagatorFunc(func(entities.Collection, json.RawMessage) {
		order = append(order, "push")
	}))

	require.NoError(t, st.Write(entities.CollectionNotes, []entities.Note{{Title: "n"}}))
	assert.Equal(t, []string{"notify", "push"}, order)
}

type propagatorFunc func(entities.Collection, json.RawMessage)

func (f propagatorFunc) Push(c entities.Collection, raw json.RawMessage) { f(c, raw) }

func TestApplyRemoteBroadcastsButNeverPushes(t *testing.T) {
	st, notifier := newTestStore()
	prop := &capturingPropagator{}
	st.SetPropagator(prop)

	broadcasts := 0
	notifier.Subscribe(func() { broadcasts++ })

	raw := json.RawMessage(`[{"text":"from cloud","priority":"p1","completed":false}]`)
	require.NoError(t, st.ApplyRemote(entities.CollectionTasks, raw))

	assert.Equal(t, 1, broadcasts)
	assert.Empty(t, prop.collections, "remote applies must not echo back out")

	got, ok := st.Current(entities.CollectionTasks)
	require.True(t, ok)
	assert.Equal(t, string(raw), string(got))
}

func TestLastWriteWins(t *testing.T) {
	st, _ := newTestStore()

	require.NoError(t, st.Write(entities.CollectionNotes, []entities.Note{{Title: "first"}}))
	require.NoError(t, st.Write(entities.CollectionNotes, []entities.Note{{Title: "second"}}))

	notes := st.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "second", notes[0].Title)
}

func TestMalformedDataDegradesToDefault(t *testing.T) {
	notifier := notify.New()
	medium := storage.NewMemoryMedium("test-writer")
	st := New(medium, notifier, logger.NewNop())

	require.NoError(t, medium.Set(entities.CollectionTasks.Key(), "{not json"))
	require.NoError(t, medium.Set(entities.CollectionSchedule.Key(), "nonsense"))

	assert.Equal(t, []entities.Task{}, st.Tasks())
	assert.Len(t, st.Schedule(), 8)
	assert.JSONEq(t, "[]", string(st.Read(entities.CollectionTasks)))
}

func TestWriteRawRejectsUnknownCollection(t *testing.T) {
	st, _ := newTestStore()
	err := st.WriteRaw(entities.Collection("bogus"), json.RawMessage("[]"))
	assert.ErrorIs(t, err, entities.ErrUnknownCollection)
}

func TestResetScheduleRestoresTemplate(t *testing.T) {
	st, _ := newTestStore()

	require.NoError(t, st.Write(entities.CollectionSchedule, []entities.ScheduleEntry{
		{TimeRange: "06:00 AM – 07:00 AM", Activity: "Gym", Hours: "1"},
	}))
	require.Len(t, st.Schedule(), 1)

	require.NoError(t, st.ResetSchedule())

	schedule := st.Schedule()
	require.Len(t, schedule, 8)
	assert.Equal(t, "Morning Routine & Breakfast", schedule[0].Activity)
}

func TestResetScheduleBroadcastsAndPropagates(t *testing.T) {
	st, notifier := newTestStore()
	prop := &capturingPropagator{}
	st.SetPropagator(prop)

	broadcasts := 0
	notifier.Subscribe(func() { broadcasts++ })

	require.NoError(t, st.ResetSchedule())

	assert.Equal(t, 1, broadcasts)
	require.Len(t, prop.collections, 1)
	assert.Equal(t, entities.CollectionSchedule, prop.collections[0])
}

func TestStatsCounters(t *testing.T) {
	st, _ := newTestStore()

	require.NoError(t, st.Write(entities.CollectionTasks, []entities.Task{}))
	require.NoError(t, st.ApplyRemote(entities.CollectionNotes, json.RawMessage("[]")))

	stats := st.Stats()
	assert.Equal(t, uint64(1), stats.LocalWrites)
	assert.Equal(t, uint64(1), stats.RemoteApplies)
}
