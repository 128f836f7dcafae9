// Package models defines the domain model of the review desk: companies under
// tax/accounting review, their action log, and follow-up tasks.
package models

import (
	"fmt"
	"strings"
)

// CompanyStatus represents where a company is in the review workflow.
type CompanyStatus string

const (
	StatusNew          CompanyStatus = "NEW"
	StatusUnderReview  CompanyStatus = "UNDER_REVIEW"
	StatusAwaitingData CompanyStatus = "AWAITING_DATA"
	StatusCompleted    CompanyStatus = "COMPLETED"
)

var statusLabels = map[CompanyStatus]string{
	StatusNew:          "جديد",
	StatusUnderReview:  "تحت المراجعة",
	StatusAwaitingData: "بانتظار بيانات",
	StatusCompleted:    "مكتمل",
}

// Statuses lists every status in workflow order.
func Statuses() []CompanyStatus {
	return []CompanyStatus{StatusNew, StatusUnderReview, StatusAwaitingData, StatusCompleted}
}

// Label returns the display label of the status.
func (s CompanyStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s CompanyStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// ParseCompanyStatus accepts either a status code (case-insensitive) or its display label.
func ParseCompanyStatus(raw string) (CompanyStatus, error) {
	raw = strings.TrimSpace(raw)
	if s := CompanyStatus(strings.ToUpper(raw)); s.Valid() {
		return s, nil
	}
	for s, l := range statusLabels {
		if l == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown company status %q", raw)
}

// UnmarshalText decodes a status code or label, rejecting unknown values.
func (s *CompanyStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseCompanyStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Company defines a company file under review.
type Company struct {
	// ID is the opaque identifier assigned at creation.
	ID string `json:"id"`
	// Name is the company's name.
	Name string `json:"name"`
	// UniqueNumber is the user-supplied reference number. Not checked for uniqueness.
	UniqueNumber string `json:"uniqueNumber"`
	// CreationDate is the calendar date the file was opened.
	CreationDate Date `json:"creationDate"`
	// Status is the current workflow status.
	Status CompanyStatus `json:"status"`
	// Notes holds every note ever added, newline separated.
	Notes string `json:"notes"`
	// ActionLog is the audit trail, newest entry first.
	ActionLog []ActionLogEntry `json:"actionLog"`
}

// Clone returns a copy of c that shares no mutable state with it.
func (c Company) Clone() Company {
	out := c
	out.ActionLog = make([]ActionLogEntry, len(c.ActionLog))
	copy(out.ActionLog, c.ActionLog)
	return out
}

// NewCompany carries the user-supplied fields of a company being created.
type NewCompany struct {
	Name         string
	UniqueNumber string
	// Status defaults to StatusNew when empty.
	Status CompanyStatus
	Notes  string
}

// CompanyUpdate represents the fields that can be edited on a Company.
// Pointer types are used to allow partial updates.
type CompanyUpdate struct {
	// ID identifies the company to update.
	ID           string
	Name         *string
	UniqueNumber *string
	Status       *CompanyStatus
	Notes        *string
}

// Empty reports whether the update changes nothing.
func (u CompanyUpdate) Empty() bool {
	return u.Name == nil && u.UniqueNumber == nil && u.Status == nil && u.Notes == nil
}
