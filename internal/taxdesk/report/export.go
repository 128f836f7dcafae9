package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	e "github.com/gartstein/taxdesk/internal/taxdesk/errors"
	"github.com/gartstein/taxdesk/internal/taxdesk/models"
	"go.uber.org/zap"
)

// FailureMessage is shown to the user when a report cannot be produced.
const FailureMessage = "عفواً، تعذر إنشاء التقرير. يرجى المحاولة مرة أخرى."

// Sink stores a finished document and returns where it can be found.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// DirSink writes documents into a local directory.
type DirSink struct {
	Dir string
}

func (d DirSink) Put(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(d.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type Clock interface {
	Now() time.Time
}

// Exporter renders the report for the current date and stores it in a sink.
type Exporter struct {
	renderer *Renderer
	sink     Sink
	clock    Clock
	logger   *zap.Logger
}

func NewExporter(renderer *Renderer, sink Sink, clock Clock, logger *zap.Logger) *Exporter {
	return &Exporter{
		renderer: renderer,
		sink:     sink,
		clock:    clock,
		logger:   logger.Named("report_exporter"),
	}
}

// Export renders companies in the given order and returns the stored
// document's location. Failures are wrapped in ErrBackend.
func (x *Exporter) Export(ctx context.Context, companies []models.Company) (string, error) {
	today := models.DateOf(x.clock.Now())

	var buf bytes.Buffer
	if err := x.renderer.Render(&buf, companies, today); err != nil {
		x.logger.Error("Failed to render report", zap.Error(err))
		return "", fmt.Errorf("%w: %v", e.ErrBackend, err)
	}

	name := FileName(today)
	location, err := x.sink.Put(ctx, name, buf.Bytes())
	if err != nil {
		x.logger.Error("Failed to store report", zap.Error(err), zap.String("name", name))
		return "", fmt.Errorf("%w: store report: %v", e.ErrBackend, err)
	}
	x.logger.Info("report exported", zap.String("location", location), zap.Int("bytes", buf.Len()))
	return location, nil
}
