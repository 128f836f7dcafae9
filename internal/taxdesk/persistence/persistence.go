// Package persistence maps the store's collections onto two independently
// keyed JSON blobs of a storage backend, falling back to seed data whenever a
// blob is absent or cannot be decoded.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/taxdesk/internal/taxdesk/errors"
	"github.com/gartstein/taxdesk/internal/taxdesk/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	CompaniesKey = "companies"
	TasksKey     = "tasks"
)

var jsonMarshal = json.Marshal

// Backend is the key/blob storage the adapter reads and writes.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

type Clock interface {
	Now() time.Time
}

type Adapter struct {
	backend Backend
	clock   Clock
	logger  *zap.Logger
}

func NewAdapter(backend Backend, clock Clock, logger *zap.Logger) *Adapter {
	return &Adapter{
		backend: backend,
		clock:   clock,
		logger:  logger.Named("persistence"),
	}
}

// LoadStore reads both collections. It never fails: an absent, unreadable or
// malformed companies blob yields the seed companies, and the same for tasks
// yields seed tasks derived from the seed companies.
func (a *Adapter) LoadStore(ctx context.Context) ([]models.Company, []models.Task) {
	now := a.clock.Now()
	seedCompanies := SeedCompanies(now)

	companies, ok := load[models.Company](ctx, a, CompaniesKey)
	if !ok {
		companies = seedCompanies
	}
	tasks, ok := load[models.Task](ctx, a, TasksKey)
	if !ok {
		tasks = SeedTasks(seedCompanies, now)
	}
	return companies, tasks
}

func load[T any](ctx context.Context, a *Adapter, key string) ([]T, bool) {
	data, err := a.backend.Load(ctx, key)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			a.logger.Info("no stored state, using seed data", zap.String("key", key))
		} else {
			a.logger.Warn("Failed to read stored state, using seed data", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		a.logger.Warn("Failed to parse stored state, using seed data",
			zap.String("key", key),
			zap.Error(fmt.Errorf("%w: %s: %v", e.ErrStorageParse, key, err)),
		)
		return nil, false
	}
	if items == nil {
		a.logger.Warn("stored state is null, using seed data", zap.String("key", key))
		return nil, false
	}
	return items, true
}

// SaveStore overwrites both keys with the given collections. An empty
// collection is never written, so a transiently empty store cannot wipe
// stored data. A failure on one key does not prevent writing the other.
func (a *Adapter) SaveStore(ctx context.Context, companies []models.Company, tasks []models.Task) error {
	var err error
	if len(companies) > 0 {
		err = multierr.Append(err, a.save(ctx, CompaniesKey, companies))
	}
	if len(tasks) > 0 {
		err = multierr.Append(err, a.save(ctx, TasksKey, tasks))
	}
	return err
}

func (a *Adapter) save(ctx context.Context, key string, v any) error {
	data, err := jsonMarshal(v)
	if err != nil {
		a.logger.Error("Failed to serialize state", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}
	if err := a.backend.Save(ctx, key, data); err != nil {
		a.logger.Error("Failed to write state", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
