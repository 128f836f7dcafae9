// Package summary asks a text-generation backend to summarize a company's
// action log. It never returns an error to the caller: a missing credential
// or a failed call yields a fixed user-facing message.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/taxdesk/internal/taxdesk/errors"
	"github.com/gartstein/taxdesk/internal/taxdesk/locale"
	"github.com/gartstein/taxdesk/internal/taxdesk/models"
	"github.com/gartstein/taxdesk/internal/pkg/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = 0.5

	DisabledMessage = "ميزة الذكاء الاصطناعي غير مفعلة. يرجى إعداد مفتاح API."
	ErrorMessage    = "عفواً، حدث خطأ أثناء إنشاء الملخص. يرجى المحاولة مرة أخرى."
)

const promptTemplate = `أنت سكرتير ذكي ومساعد خبير في المحاسبة والزكاة. مهمتك هي تحليل سجل الإجراءات التالي لشركة معينة وتقديم ملخص احترافي وموجز.

اسم الشركة: %s

سجل الإجراءات:
%s

بناءً على السجل أعلاه، قم بإنشاء ملخص من فقرتين:
1.  الفقرة الأولى: لخص الوضع الحالي للشركة وآخر إجراء مهم تم اتخاذه.
2.  الفقرة الثانية: اقترح الخطوة التالية الأكثر منطقية التي يجب على المراجع اتخاذها.

يجب أن يكون الرد باللغة العربية.`

// ContentGenerator is the part of the Gemini client the summarizer calls.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// NewGeminiGenerator builds a Gemini API client for apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey string) (ContentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client.Models, nil
}

type Config struct {
	Model       string
	Temperature float32
	// Location used to render log timestamps; nil means UTC.
	Location *time.Location
}

type Summarizer struct {
	generator   ContentGenerator
	model       string
	temperature float32
	location    *time.Location
	logger      *zap.Logger
}

// New returns a Summarizer calling generator. A nil generator disables the feature.
func New(generator ContentGenerator, cfg Config, logger *zap.Logger) *Summarizer {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Summarizer{
		generator:   generator,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		location:    cfg.Location,
		logger:      logger.Named("summary"),
	}
}

// NewFromAPIKey builds a Gemini-backed Summarizer, or a disabled one when
// apiKey is blank. No client is created in the disabled case.
func NewFromAPIKey(ctx context.Context, apiKey string, cfg Config, logger *zap.Logger) (*Summarizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		logger.Warn("API_KEY not set, AI summaries are disabled")
		return New(nil, cfg, logger), nil
	}
	generator, err := NewGeminiGenerator(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return New(generator, cfg, logger), nil
}

func (s *Summarizer) Enabled() bool {
	return s.generator != nil
}

// Summarize returns the backend's text verbatim, DisabledMessage when no
// credential is configured, or ErrorMessage when the call fails. It does not retry.
func (s *Summarizer) Summarize(ctx context.Context, companyName string, log []models.ActionLogEntry) string {
	if s.generator == nil {
		return DisabledMessage
	}

	prompt := BuildPrompt(companyName, log, s.location)
	resp, err := s.generator.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: utils.Ptr(s.temperature),
	})
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: empty response", e.ErrBackend)
	}
	if err != nil {
		s.logger.Error("Failed to generate summary",
			zap.Error(err),
			zap.String("model", s.model),
			zap.String("company_name", companyName),
		)
		return ErrorMessage
	}
	return resp.Text()
}

// BuildPrompt embeds one line per log entry, newest first, into the instruction template.
func BuildPrompt(companyName string, log []models.ActionLogEntry, loc *time.Location) string {
	lines := make([]string, 0, len(log))
	for _, entry := range log {
		lines = append(lines, fmt.Sprintf("بتاريخ %s: %s - %s",
			locale.FormatTimestamp(entry.Timestamp, loc), entry.Type.Label(), entry.Details))
	}
	return fmt.Sprintf(promptTemplate, companyName, strings.Join(lines, "\n"))
}
