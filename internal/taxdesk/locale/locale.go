// Package locale holds the one display locale of the desk (Arabic, Saudi
// Arabia): digit shaping and date/time formats used in reports and prompts.
package locale

import (
	"strings"
	"time"

	"github.com/gartstein/taxdesk/internal/taxdesk/models"
)

var arabicDigits = strings.NewReplacer(
	"0", "٠", "1", "١", "2", "٢", "3", "٣", "4", "٤",
	"5", "٥", "6", "٦", "7", "٧", "8", "٨", "9", "٩",
)

// Digits replaces ASCII digits with Arabic-Indic digits.
func Digits(s string) string {
	return arabicDigits.Replace(s)
}

// FormatDate renders a calendar date day first, e.g. ١٨/١٠/٢٠٢٦.
func FormatDate(d models.Date) string {
	return Digits(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format("02/01/2006"))
}

// FormatTimestamp renders a point in time in loc, e.g. ١٨/١٠/٢٠٢٦ ١٠:٠٥.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return Digits(t.Format("02/01/2006 15:04"))
}
