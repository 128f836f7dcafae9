// Package report renders the company status report as a PDF and hands the
// document to an export sink.
package report

import (
	"fmt"
	"io"

	"github.com/gartstein/taxdesk/internal/taxdesk/locale"
	"github.com/gartstein/taxdesk/internal/taxdesk/models"
	"github.com/gartstein/taxdesk/internal/taxdesk/views"
	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

const (
	Title          = "تقرير حالة الشركات"
	pageLabel      = "صفحة"
	emptyCell      = "-"
	fileNamePrefix = "تقرير الشركات-"

	coreFont  = "Helvetica"
	utf8Font  = "report"
	margin    = 10.0
	rowHeight = 8.0
	cellPad   = 2.0
	footerGap = 20.0
)

// columns in left-to-right page order; the name sits at the right edge.
var columns = []struct {
	title string
	width float64
}{
	{"آخر إجراء", 80},
	{"الحالة", 35},
	{"الرقم المميز", 30},
	{"اسم الشركة", 45},
}

// Row is one company projected onto the report's columns.
type Row struct {
	LastAction   string
	Status       string
	UniqueNumber string
	Name         string
}

func (r Row) cells() []string {
	return []string{r.LastAction, r.Status, r.UniqueNumber, r.Name}
}

// Rows projects companies onto report rows, keeping their order.
func Rows(companies []models.Company) []Row {
	rows := make([]Row, 0, len(companies))
	for _, c := range companies {
		last := emptyCell
		if entry, ok := views.LastAction(c); ok && entry.Details != "" {
			last = entry.Details
		}
		rows = append(rows, Row{
			LastAction:   last,
			Status:       c.Status.Label(),
			UniqueNumber: c.UniqueNumber,
			Name:         c.Name,
		})
	}
	return rows
}

// FileName names the report document generated on d.
func FileName(d models.Date) string {
	return fileNamePrefix + d.String() + ".pdf"
}

// Renderer lays out the report. Without a font file the core Helvetica font
// is used, which has no Arabic glyphs; a UTF-8 TrueType font such as Amiri
// gives full coverage.
type Renderer struct {
	fontPath string
	logger   *zap.Logger
}

// NoFontWarning is logged when no font file is configured.
const NoFontWarning = "No report font configured, Arabic text will not render; set REPORT_FONT to a UTF-8 TrueType font"

// NewRenderer returns a Renderer using the TrueType font at fontPath, or the
// core font when fontPath is empty.
func NewRenderer(fontPath string, logger *zap.Logger) *Renderer {
	logger = logger.Named("report")
	if fontPath == "" {
		logger.Warn(NoFontWarning, zap.String("fallback_font", coreFont))
	}
	return &Renderer{
		fontPath: fontPath,
		logger:   logger,
	}
}

// Render writes the PDF for companies, dated generatedOn, to w.
func (r *Renderer) Render(w io.Writer, companies []models.Company, generatedOn models.Date) error {
	pdf := r.build(companies, generatedOn)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	r.logger.Info("report rendered",
		zap.Int("companies", len(companies)),
		zap.Int("pages", pdf.PageCount()),
	)
	return nil
}

func (r *Renderer) build(companies []models.Company, generatedOn models.Date) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AliasNbPages("")

	family := coreFont
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	date := generatedOn.String()
	if r.fontPath != "" {
		pdf.AddUTF8Font(utf8Font, "", r.fontPath)
		pdf.AddUTF8Font(utf8Font, "B", r.fontPath)
		family = utf8Font
		translate = func(s string) string { return s }
		date = locale.FormatDate(generatedOn)
	}
	text := func(s string) string {
		return translate(Visual(s))
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(family, "", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, rowHeight, fmt.Sprintf("%d / {nb} %s", pdf.PageNo(), text(pageLabel)),
			"", 0, "C", false, 0, "")
	})

	header := func() {
		pdf.SetFont(family, "B", 10)
		pdf.SetFillColor(41, 128, 185)
		pdf.SetTextColor(255, 255, 255)
		for _, col := range columns {
			pdf.CellFormat(col.width, rowHeight, text(col.title), "1", 0, "R", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(family, "", 10)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.AddPage()
	pdf.SetFont(family, "", 20)
	pdf.CellFormat(0, 10, text(Title), "", 1, "C", false, 0, "")
	pdf.SetFont(family, "", 10)
	pdf.CellFormat(0, 7, text(date), "", 1, "C", false, 0, "")
	pdf.Ln(3)
	header()

	_, pageHeight := pdf.GetPageSize()
	for _, row := range Rows(companies) {
		if pdf.GetY()+rowHeight > pageHeight-footerGap {
			pdf.AddPage()
			header()
		}
		for i, value := range row.cells() {
			width := columns[i].width
			pdf.CellFormat(width, rowHeight, fit(pdf, value, width-2*cellPad, text), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf
}

// fit shortens s, in logical order, until its rendered form fits maxWidth.
func fit(pdf *fpdf.Fpdf, s string, maxWidth float64, text func(string) string) string {
	out := text(s)
	if pdf.GetStringWidth(out) <= maxWidth {
		return out
	}
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		out = text(string(runes[:n]) + "…")
		if pdf.GetStringWidth(out) <= maxWidth {
			return out
		}
	}
	return text(emptyCell)
}
