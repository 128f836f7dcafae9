package main

import (
	"context"
	"io"
	"time"

	"github.com/gartstein/taxdesk/internal/taxdesk/config"
	"github.com/gartstein/taxdesk/internal/taxdesk/controller"
	"github.com/gartstein/taxdesk/internal/taxdesk/db"
	"github.com/gartstein/taxdesk/internal/taxdesk/events"
	"github.com/gartstein/taxdesk/internal/taxdesk/objectstore"
	"github.com/gartstein/taxdesk/internal/taxdesk/persistence"
	"github.com/gartstein/taxdesk/internal/taxdesk/report"
	"github.com/gartstein/taxdesk/internal/taxdesk/summary"
	"go.uber.org/zap"
)

// app carries what every command shares once configuration is loaded.
type app struct {
	cfgPath string
	cfg     *config.Config
	logger  *zap.Logger
	clock   controller.Clock
	out     io.Writer
}

// initLogger initializes a Zap production logger at the configured level.
func initLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}

func (a *app) load() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) sync() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// initDatabase maps the configuration onto the storage backend settings.
func (a *app) initDatabase() *db.Config {
	return &db.Config{
		Driver:     a.cfg.StorageDriver,
		SQLitePath: a.cfg.SQLitePath,
		Host:       a.cfg.DBHost,
		Port:       a.cfg.DBPort,
		User:       a.cfg.DBUser,
		Password:   a.cfg.DBPassword,
		DBName:     a.cfg.DBName,
		SSLMode:    a.cfg.DBSSLMode,
	}
}

// withStore opens the backend, loads the store, runs fn and flushes the store
// on the way out.
func (a *app) withStore(ctx context.Context, fn func(*controller.Store) error) (err error) {
	repo, err := db.NewRepository(ctx, a.initDatabase(), a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil {
			a.logger.Error("failed to close database", zap.Error(cerr))
		}
	}()

	var producer controller.EventProducer
	if len(a.cfg.KafkaBrokers) > 0 {
		p, perr := events.NewProducer(a.cfg.KafkaBrokers, a.logger, a.cfg.Topic)
		if perr != nil {
			a.logger.Warn("change feed unavailable", zap.Error(perr))
		} else {
			defer p.Close()
			producer = p
		}
	}

	adapter := persistence.NewAdapter(repo, a.clock, a.logger)
	companies, tasks := adapter.LoadStore(ctx)
	store := controller.NewStore(companies, tasks, adapter, producer, a.clock, a.cfg.FollowUpDays, a.logger)
	defer func() {
		if cerr := store.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(store)
}

func (a *app) summarizer(ctx context.Context) (*summary.Summarizer, error) {
	return summary.NewFromAPIKey(ctx, a.cfg.APIKey, summary.Config{
		Model:       a.cfg.AIModel,
		Temperature: a.cfg.AITemperature,
		Location:    a.location(),
	}, a.logger)
}

func (a *app) exporter(ctx context.Context) (*report.Exporter, error) {
	var sink report.Sink = report.DirSink{Dir: a.cfg.ReportDir}
	store := objectstore.Config{
		Endpoint:  a.cfg.MinIOEndpoint,
		AccessKey: a.cfg.MinIOAccessKey,
		SecretKey: a.cfg.MinIOSecretKey,
		Region:    a.cfg.MinIORegion,
		UseSSL:    a.cfg.MinIOUseSSL,
		Bucket:    a.cfg.MinIOBucket,
	}
	if store.Enabled() {
		uploader, err := objectstore.NewUploaderFromConfig(ctx, store, a.logger)
		if err != nil {
			return nil, err
		}
		sink = uploader
	}
	return report.NewExporter(report.NewRenderer(a.cfg.ReportFont, a.logger), sink, a.clock, a.logger), nil
}

func (a *app) location() *time.Location {
	return a.clock.Now().Location()
}
