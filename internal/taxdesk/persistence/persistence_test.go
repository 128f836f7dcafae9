package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	e "github.com/gartstein/taxdesk/internal/taxdesk/errors"
	"github.com/gartstein/taxdesk/internal/taxdesk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// memoryBackend is an in-memory Backend with injectable failures.
type memoryBackend struct {
	blobs     map[string][]byte
	loadErrs  map[string]error
	saveErrs  map[string]error
	saveCalls []string
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		blobs:    map[string][]byte{},
		loadErrs: map[string]error{},
		saveErrs: map[string]error{},
	}
}

func (m *memoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	if err := m.loadErrs[key]; err != nil {
		return nil, err
	}
	b, ok := m.blobs[key]
	if !ok {
		return nil, e.ErrNotFound
	}
	return b, nil
}

func (m *memoryBackend) Save(_ context.Context, key string, value []byte) error {
	m.saveCalls = append(m.saveCalls, key)
	if err := m.saveErrs[key]; err != nil {
		return err
	}
	m.blobs[key] = value
	return nil
}

var testNow = time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

func sampleState() ([]models.Company, []models.Task) {
	companies := []models.Company{
		{
			ID:           "x1",
			Name:         "Acme",
			UniqueNumber: "Z-9",
			CreationDate: models.Date{Year: 2026, Month: time.October, Day: 1},
			Status:       models.StatusAwaitingData,
			Notes:        "first\nsecond",
			ActionLog: []models.ActionLogEntry{
				{ID: "l2", Type: models.ActionNoteAdded, Details: "second", Timestamp: testNow},
				{ID: "l1", Type: models.ActionCreated, Details: "created", Timestamp: testNow.Add(-time.Hour)},
			},
		},
	}
	tasks := []models.Task{
		{ID: "t9", CompanyID: "x1", CompanyName: "Acme", Description: "call", DueDate: models.Date{Year: 2026, Month: time.October, Day: 25}, IsCompleted: true},
	}
	return companies, tasks
}

func TestLoadStore_FirstRunUsesSeed(t *testing.T) {
	adapter := NewAdapter(newMemoryBackend(), fixedClock{testNow}, zaptest.NewLogger(t))

	companies, tasks := adapter.LoadStore(context.Background())

	assert.Equal(t, SeedCompanies(testNow), companies)
	assert.Equal(t, SeedTasks(SeedCompanies(testNow), testNow), tasks)
	require.Len(t, tasks, 2)
	assert.Equal(t, models.DateOf(testNow), tasks[0].DueDate, "first seed task is due today")
	assert.Equal(t, "مؤسسة الصحراء الذهبية للمقاولات", tasks[0].CompanyName)
}

func TestSaveThenLoad_RoundTrip(t *testing.T) {
	backend := newMemoryBackend()
	adapter := NewAdapter(backend, fixedClock{testNow}, zaptest.NewLogger(t))
	companies, tasks := sampleState()

	require.NoError(t, adapter.SaveStore(context.Background(), companies, tasks))
	gotCompanies, gotTasks := adapter.LoadStore(context.Background())

	assert.Equal(t, companies, gotCompanies)
	assert.Equal(t, tasks, gotTasks)
}

func TestLoadStore_MalformedCompanies(t *testing.T) {
	core, recorded := observer.New(zap.WarnLevel)
	backend := newMemoryBackend()
	adapter := NewAdapter(backend, fixedClock{testNow}, zap.New(core))
	_, tasks := sampleState()
	require.NoError(t, adapter.SaveStore(context.Background(), nil, tasks))
	backend.blobs[CompaniesKey] = []byte(`{not json`)

	companies, gotTasks := adapter.LoadStore(context.Background())

	assert.Equal(t, SeedCompanies(testNow), companies)
	assert.Equal(t, tasks, gotTasks, "a valid tasks blob is kept")
	logs := recorded.FilterMessage("Failed to parse stored state, using seed data").All()
	require.Len(t, logs, 1)
	assert.Equal(t, CompaniesKey, logs[0].ContextMap()["key"])
}

func TestLoadStore_MalformedTasksUseSeedCompanyNames(t *testing.T) {
	backend := newMemoryBackend()
	adapter := NewAdapter(backend, fixedClock{testNow}, zaptest.NewLogger(t))
	companies, _ := sampleState()
	// rename the stored c2 so a derivation from loaded companies would be visible
	companies = append(companies, models.Company{ID: "c2", Name: "Renamed", UniqueNumber: "N", Status: models.StatusNew})
	require.NoError(t, adapter.SaveStore(context.Background(), companies, nil))
	backend.blobs[TasksKey] = []byte(`[{"id": 7}]`)

	gotCompanies, tasks := adapter.LoadStore(context.Background())

	assert.Equal(t, companies, gotCompanies)
	require.Len(t, tasks, 2)
	assert.Equal(t, "مؤسسة الصحراء الذهبية للمقاولات", tasks[0].CompanyName)
}

func TestLoadStore_UnknownStatusIsMalformed(t *testing.T) {
	backend := newMemoryBackend()
	backend.blobs[CompaniesKey] = []byte(`[{"id":"z","name":"n","uniqueNumber":"u","status":"ARCHIVED","actionLog":[]}]`)
	adapter := NewAdapter(backend, fixedClock{testNow}, zaptest.NewLogger(t))

	companies, _ := adapter.LoadStore(context.Background())

	assert.Equal(t, SeedCompanies(testNow), companies)
}

func TestLoadStore_AcceptsDisplayLabels(t *testing.T) {
	backend := newMemoryBackend()
	backend.blobs[CompaniesKey] = []byte(`[{"id":"z","name":"n","uniqueNumber":"u","creationDate":"2024-01-10",` +
		`"status":"مكتمل","notes":"","actionLog":[{"id":"a","type":"إضافة ملاحظة","details":"d","timestamp":"2024-01-10T08:00:00.000Z"}]}]`)
	adapter := NewAdapter(backend, fixedClock{testNow}, zaptest.NewLogger(t))

	companies, _ := adapter.LoadStore(context.Background())

	require.Len(t, companies, 1)
	assert.Equal(t, models.StatusCompleted, companies[0].Status)
	assert.Equal(t, models.ActionNoteAdded, companies[0].ActionLog[0].Type)
	assert.Equal(t, models.Date{Year: 2024, Month: time.January, Day: 10}, companies[0].CreationDate)
}

func TestLoadStore_NullAndReadErrors(t *testing.T) {
	backend := newMemoryBackend()
	backend.blobs[CompaniesKey] = []byte(`null`)
	backend.loadErrs[TasksKey] = errors.New("disk on fire")
	adapter := NewAdapter(backend, fixedClock{testNow}, zaptest.NewLogger(t))

	companies, tasks := adapter.LoadStore(context.Background())

	assert.Equal(t, SeedCompanies(testNow), companies)
	assert.Equal(t, SeedTasks(SeedCompanies(testNow), testNow), tasks)
}

func TestSaveStore_SkipsEmptyCollections(t *testing.T) {
	backend := newMemoryBackend()
	adapter := NewAdapter(backend, fixedClock{testNow}, zaptest.NewLogger(t))
	companies, tasks := sampleState()
	require.NoError(t, adapter.SaveStore(context.Background(), companies, tasks))
	backend.saveCalls = nil

	require.NoError(t, adapter.SaveStore(context.Background(), nil, []models.Task{}))

	assert.Empty(t, backend.saveCalls, "empty collections must not be written")
	gotCompanies, gotTasks := adapter.LoadStore(context.Background())
	assert.Equal(t, companies, gotCompanies)
	assert.Equal(t, tasks, gotTasks)
}

func TestSaveStore_OneKeyFailing(t *testing.T) {
	backend := newMemoryBackend()
	backend.saveErrs[CompaniesKey] = errors.New("write failed")
	adapter := NewAdapter(backend, fixedClock{testNow}, zaptest.NewLogger(t))
	companies, tasks := sampleState()

	err := adapter.SaveStore(context.Background(), companies, tasks)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write companies")
	assert.Equal(t, []string{CompaniesKey, TasksKey}, backend.saveCalls, "tasks are still written")
	_, stored := backend.blobs[TasksKey]
	assert.True(t, stored)
}

func TestSaveStore_SerializationError(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	adapter := NewAdapter(newMemoryBackend(), fixedClock{testNow}, zap.New(core))
	companies, tasks := sampleState()

	oldMarshal := jsonMarshal
	jsonMarshal = func(_ any) ([]byte, error) {
		return nil, errors.New("mock marshal error")
	}
	defer func() { jsonMarshal = oldMarshal }()

	err := adapter.SaveStore(context.Background(), companies, tasks)

	assert.Error(t, err)
	assert.Equal(t, 2, recorded.FilterMessage("Failed to serialize state").Len())
}
