// Package views holds the pure derivations the front end displays.
package views

import (
	"strings"

	"github.com/gartstein/taxdesk/internal/taxdesk/models"
)

// FilterCompanies keeps the companies whose name or unique number contains
// searchTerm, ignoring case. An empty term keeps everything. Order is preserved.
func FilterCompanies(companies []models.Company, searchTerm string) []models.Company {
	term := strings.ToLower(searchTerm)
	out := make([]models.Company, 0, len(companies))
	for _, c := range companies {
		if term == "" ||
			strings.Contains(strings.ToLower(c.Name), term) ||
			strings.Contains(strings.ToLower(c.UniqueNumber), term) {
			out = append(out, c)
		}
	}
	return out
}

// TasksDueToday returns the open tasks due exactly on today.
func TasksDueToday(tasks []models.Task, today models.Date) []models.Task {
	out := make([]models.Task, 0)
	for _, t := range tasks {
		if t.IsCompleted || t.DueDate != today {
			continue
		}
		out = append(out, t)
	}
	return out
}

// LastAction returns the newest entry of the company's log.
func LastAction(c models.Company) (models.ActionLogEntry, bool) {
	if len(c.ActionLog) == 0 {
		return models.ActionLogEntry{}, false
	}
	return c.ActionLog[0], true
}
