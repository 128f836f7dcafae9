// Package controller implements the store of the review desk: the in-memory
// collections of companies and tasks and the mutators that are the only
// sanctioned way to change them. Every successful mutation is written through
// to the persister and each new action-log entry is handed to the event producer.
package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	e "github.com/gartstein/taxdesk/internal/taxdesk/errors"
	"github.com/gartstein/taxdesk/internal/taxdesk/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	createdDetails         = "تم إنشاء ملف الشركة."
	updatedDetails         = "تم تحديث بيانات الشركة."
	contactedDetailsFormat = "تم التواصل مع المكلف بخصوص %s"
	followUpTaskFormat     = "متابعة مع شركة %s بعد الاتصال الأخير."
	taskAddedDetailsFormat = "تم إنشاء مهمة متابعة بتاريخ %s"
	// UnknownCompanyName is stored on tasks whose company cannot be resolved.
	UnknownCompanyName = "شركة غير محددة"

	DefaultFollowUpDays = 7
)

// Persister writes complete snapshots of both collections.
type Persister interface {
	SaveStore(ctx context.Context, companies []models.Company, tasks []models.Task) error
}

// EventProducer receives every action-log entry the store prepends.
type EventProducer interface {
	Produce(companyID string, entry models.ActionLogEntry)
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// Store owns the companies and tasks collections. Both are kept newest first.
type Store struct {
	mu           sync.Mutex
	companies    []models.Company
	tasks        []models.Task
	persister    Persister
	producer     EventProducer
	clock        Clock
	newID        func() string
	followUpDays int
	logger       *zap.Logger
}

// NewStore constructs a Store seeded with the loaded collections. A nil clock
// means the system clock; followUpDays <= 0 means DefaultFollowUpDays.
func NewStore(
	companies []models.Company,
	tasks []models.Task,
	persister Persister,
	producer EventProducer,
	clock Clock,
	followUpDays int,
	logger *zap.Logger,
) *Store {
	if clock == nil {
		clock = SystemClock
	}
	if followUpDays <= 0 {
		followUpDays = DefaultFollowUpDays
	}
	s := &Store{
		companies:    make([]models.Company, 0, len(companies)),
		tasks:        make([]models.Task, len(tasks)),
		persister:    persister,
		producer:     producer,
		clock:        clock,
		newID:        uuid.NewString,
		followUpDays: followUpDays,
		logger:       logger.Named("store"),
	}
	for _, c := range companies {
		s.companies = append(s.companies, c.Clone())
	}
	copy(s.tasks, tasks)
	return s
}

// Companies returns a copy of the company collection in store order.
func (s *Store) Companies() []models.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Company, len(s.companies))
	for i, c := range s.companies {
		out[i] = c.Clone()
	}
	return out
}

// Tasks returns a copy of the task collection in store order.
func (s *Store) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Company returns a copy of the company with the given id.
func (s *Store) Company(id string) (models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(id)
	if err != nil {
		return models.Company{}, err
	}
	return s.companies[i].Clone(), nil
}

// CreateCompany validates the input, opens a new company file with a single
// Created entry and inserts it at the front of the collection.
func (s *Store) CreateCompany(ctx context.Context, in models.NewCompany) (models.Company, error) {
	name := strings.TrimSpace(in.Name)
	number := strings.TrimSpace(in.UniqueNumber)
	if name == "" {
		return models.Company{}, fmt.Errorf("%w: company name is required", e.ErrInvalidInput)
	}
	if number == "" {
		return models.Company{}, fmt.Errorf("%w: unique number is required", e.ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = models.StatusNew
	}
	if !status.Valid() {
		return models.Company{}, fmt.Errorf("%w: unknown status %q", e.ErrInvalidInput, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	entry := s.newEntry(models.ActionCreated, createdDetails, now)
	company := models.Company{
		ID:           s.newID(),
		Name:         name,
		UniqueNumber: number,
		CreationDate: models.DateOf(now),
		Status:       status,
		Notes:        in.Notes,
		ActionLog:    []models.ActionLogEntry{entry},
	}
	s.companies = append([]models.Company{company}, s.companies...)

	s.logger.Info("company created", zap.String("company_id", company.ID))
	s.emit(company.ID, entry)
	s.persistLocked(ctx)
	return company.Clone(), nil
}

// UpdateCompany applies the set fields of the update and records a single
// StatusChanged entry, whichever fields were edited.
func (s *Store) UpdateCompany(ctx context.Context, update models.CompanyUpdate) (models.Company, error) {
	if err := validateUpdate(update); err != nil {
		return models.Company{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexOf(update.ID)
	if err != nil {
		return models.Company{}, err
	}
	c := s.companies[i].Clone()
	if update.Name != nil {
		c.Name = strings.TrimSpace(*update.Name)
	}
	if update.UniqueNumber != nil {
		c.UniqueNumber = strings.TrimSpace(*update.UniqueNumber)
	}
	if update.Status != nil {
		c.Status = *update.Status
	}
	if update.Notes != nil {
		c.Notes = *update.Notes
	}
	entry := s.newEntry(models.ActionStatusChanged, updatedDetails, s.clock.Now())
	c.ActionLog = prepend(c.ActionLog, entry)
	s.companies[i] = c

	s.logger.Info("company updated", zap.String("company_id", c.ID))
	s.emit(c.ID, entry)
	s.persistLocked(ctx)
	return c.Clone(), nil
}

func validateUpdate(update models.CompanyUpdate) error {
	if update.ID == "" {
		return fmt.Errorf("%w: invalid company ID", e.ErrInvalidInput)
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return fmt.Errorf("%w: company name is required", e.ErrInvalidInput)
	}
	if update.UniqueNumber != nil && strings.TrimSpace(*update.UniqueNumber) == "" {
		return fmt.Errorf("%w: unique number is required", e.ErrInvalidInput)
	}
	if update.Status != nil && !update.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", e.ErrInvalidInput, *update.Status)
	}
	return nil
}

// AddNote appends text to the company's notes and records it verbatim in the log.
// Whitespace-only text leaves the company untouched.
func (s *Store) AddNote(ctx context.Context, companyID, text string) (models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexOf(companyID)
	if err != nil {
		return models.Company{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return s.companies[i].Clone(), nil
	}

	c := s.companies[i].Clone()
	if c.Notes == "" {
		c.Notes = text
	} else {
		c.Notes = c.Notes + "\n" + text
	}
	entry := s.newEntry(models.ActionNoteAdded, text, s.clock.Now())
	c.ActionLog = prepend(c.ActionLog, entry)
	s.companies[i] = c

	s.emit(c.ID, entry)
	s.persistLocked(ctx)
	return c.Clone(), nil
}

// RecordContact logs a contact with the taxpayer and schedules a follow-up
// task. The Contacted and TaskAdded entries and the task are committed together.
func (s *Store) RecordContact(ctx context.Context, companyID string) (models.Company, models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexOf(companyID)
	if err != nil {
		return models.Company{}, models.Task{}, err
	}
	c := s.companies[i].Clone()
	now := s.clock.Now()
	due := models.DateOf(now).AddDays(s.followUpDays)

	task := models.Task{
		ID:          s.newID(),
		CompanyID:   c.ID,
		CompanyName: c.Name,
		Description: fmt.Sprintf(followUpTaskFormat, c.Name),
		DueDate:     due,
	}
	contacted := s.newEntry(models.ActionContacted, fmt.Sprintf(contactedDetailsFormat, c.Name), now)
	taskAdded := s.newEntry(models.ActionTaskAdded, fmt.Sprintf(taskAddedDetailsFormat, due), now)
	c.ActionLog = prepend(prepend(c.ActionLog, contacted), taskAdded)

	s.companies[i] = c
	s.tasks = append([]models.Task{task}, s.tasks...)

	s.logger.Info("contact recorded",
		zap.String("company_id", c.ID),
		zap.String("task_id", task.ID),
		zap.Stringer("due_date", due),
	)
	s.emit(c.ID, contacted)
	s.emit(c.ID, taskAdded)
	s.persistLocked(ctx)
	return c.Clone(), task, nil
}

// AddTask inserts a user-defined task. The company name is resolved once, now;
// an unknown company id yields UnknownCompanyName rather than an error.
func (s *Store) AddTask(ctx context.Context, in models.NewTask) (models.Task, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return models.Task{}, fmt.Errorf("%w: task description is required", e.ErrInvalidInput)
	}
	if in.DueDate.IsZero() {
		return models.Task{}, fmt.Errorf("%w: due date is required", e.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := UnknownCompanyName
	if i, err := s.indexOf(in.CompanyID); err == nil {
		name = s.companies[i].Name
	} else {
		s.logger.Warn("task added for unknown company", zap.String("company_id", in.CompanyID))
	}
	task := models.Task{
		ID:          s.newID(),
		CompanyID:   in.CompanyID,
		CompanyName: name,
		Description: description,
		DueDate:     in.DueDate,
	}
	s.tasks = append([]models.Task{task}, s.tasks...)

	s.persistLocked(ctx)
	return task, nil
}

// SetTaskCompleted marks a task done or reopens it.
func (s *Store) SetTaskCompleted(ctx context.Context, taskID string, done bool) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != taskID {
			continue
		}
		if s.tasks[i].IsCompleted == done {
			return s.tasks[i], nil
		}
		s.tasks[i].IsCompleted = done
		s.persistLocked(ctx)
		return s.tasks[i], nil
	}
	return models.Task{}, fmt.Errorf("%w: task %s", e.ErrNotFound, taskID)
}

// Close flushes the final snapshot to the persister.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persister == nil {
		return nil
	}
	companies, tasks := s.snapshotLocked()
	return s.persister.SaveStore(ctx, companies, tasks)
}

func (s *Store) indexOf(companyID string) (int, error) {
	for i := range s.companies {
		if s.companies[i].ID == companyID {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: company %s", e.ErrNotFound, companyID)
}

func (s *Store) newEntry(t models.ActionType, details string, at time.Time) models.ActionLogEntry {
	return models.ActionLogEntry{
		ID:        s.newID(),
		Type:      t,
		Details:   details,
		Timestamp: at,
	}
}

func (s *Store) emit(companyID string, entry models.ActionLogEntry) {
	if s.producer == nil {
		return
	}
	s.producer.Produce(companyID, entry)
}

func (s *Store) snapshotLocked() ([]models.Company, []models.Task) {
	companies := make([]models.Company, len(s.companies))
	for i, c := range s.companies {
		companies[i] = c.Clone()
	}
	tasks := make([]models.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return companies, tasks
}

// persistLocked writes the snapshot. A failed write is logged and does not
// undo the in-memory change; Close retries it.
func (s *Store) persistLocked(ctx context.Context) {
	if s.persister == nil {
		return
	}
	companies, tasks := s.snapshotLocked()
	if err := s.persister.SaveStore(ctx, companies, tasks); err != nil {
		s.logger.Error("Failed to persist store", zap.Error(err))
	}
}

func prepend(log []models.ActionLogEntry, entry models.ActionLogEntry) []models.ActionLogEntry {
	out := make([]models.ActionLogEntry, 0, len(log)+1)
	out = append(out, entry)
	return append(out, log...)
}
