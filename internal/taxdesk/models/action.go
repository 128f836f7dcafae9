package models

import (
	"fmt"
	"strings"
	"time"
)

// ActionType classifies an entry of a company's action log.
type ActionType string

const (
	ActionCreated       ActionType = "CREATED"
	ActionStatusChanged ActionType = "STATUS_CHANGED"
	ActionNoteAdded     ActionType = "NOTE_ADDED"
	ActionContacted     ActionType = "CONTACTED"
	ActionTaskAdded     ActionType = "TASK_ADDED"
)

var actionLabels = map[ActionType]string{
	ActionCreated:       "إنشاء ملف الشركة",
	ActionStatusChanged: "تغيير الحالة",
	ActionNoteAdded:     "إضافة ملاحظة",
	ActionContacted:     "تم الاتصال بالمكلف",
	ActionTaskAdded:     "إضافة مهمة جديدة",
}

// Label returns the display label of the action type.
func (a ActionType) Label() string {
	if l, ok := actionLabels[a]; ok {
		return l
	}
	return string(a)
}

// Valid reports whether a is one of the known action types.
func (a ActionType) Valid() bool {
	_, ok := actionLabels[a]
	return ok
}

// ParseActionType accepts either a type code (case-insensitive) or its display label.
func ParseActionType(raw string) (ActionType, error) {
	raw = strings.TrimSpace(raw)
	if a := ActionType(strings.ToUpper(raw)); a.Valid() {
		return a, nil
	}
	for a, l := range actionLabels {
		if l == raw {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action type %q", raw)
}

// UnmarshalText decodes a type code or label, rejecting unknown values.
func (a *ActionType) UnmarshalText(b []byte) error {
	parsed, err := ParseActionType(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ActionLogEntry is one immutable record of the audit trail.
type ActionLogEntry struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	Details   string     `json:"details"`
	Timestamp time.Time  `json:"timestamp"`
}
