package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_AddDays(t *testing.T) {
	tests := []struct {
		from Date
		days int
		want Date
	}{
		{Date{2026, time.October, 18}, 7, Date{2026, time.October, 25}},
		{Date{2026, time.December, 28}, 7, Date{2027, time.January, 4}},
		{Date{2024, time.February, 27}, 2, Date{2024, time.February, 29}},
		{Date{2026, time.March, 1}, -1, Date{2026, time.February, 28}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.AddDays(tt.days), "%s + %d", tt.from, tt.days)
	}
}

func TestDate_ParseAndString(t *testing.T) {
	d, err := ParseDate("2023-05-15")
	require.NoError(t, err)
	assert.Equal(t, Date{2023, time.May, 15}, d)
	assert.Equal(t, "2023-05-15", d.String())

	_, err = ParseDate("15/05/2023")
	assert.Error(t, err)
}

func TestDate_Before(t *testing.T) {
	a := Date{2026, time.October, 18}
	assert.True(t, a.Before(a.AddDays(1)))
	assert.False(t, a.Before(a))
	assert.False(t, a.AddDays(40).Before(a))
}

func TestDate_JSON(t *testing.T) {
	task := Task{ID: "t", DueDate: Date{2026, time.October, 25}}
	data, err := json.Marshal(task)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dueDate":"2026-10-25"`)

	var decoded Task
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, task, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"dueDate":"tomorrow"}`), &decoded))
}

func TestDate_ZeroText(t *testing.T) {
	var zero Date
	assert.True(t, zero.IsZero())
	assert.False(t, Date{2026, time.October, 18}.IsZero())

	text, err := zero.MarshalText()
	require.NoError(t, err)
	assert.Empty(t, text)

	d := Date{2026, time.October, 18}
	require.NoError(t, d.UnmarshalText(nil))
	assert.True(t, d.IsZero())
}

func TestActionType_UnmarshalText(t *testing.T) {
	assert.True(t, ActionNoteAdded.Valid())
	assert.False(t, ActionType("BOGUS").Valid())

	var entry ActionLogEntry
	require.NoError(t, json.Unmarshal([]byte(`{"type":"contacted"}`), &entry))
	assert.Equal(t, ActionContacted, entry.Type)
	require.NoError(t, json.Unmarshal([]byte(`{"type":"تغيير الحالة"}`), &entry))
	assert.Equal(t, ActionStatusChanged, entry.Type)
	assert.Error(t, json.Unmarshal([]byte(`{"type":"BOGUS"}`), &entry))
}

func TestParseCompanyStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    CompanyStatus
		wantErr bool
	}{
		{"NEW", StatusNew, false},
		{"under_review", StatusUnderReview, false},
		{" AWAITING_DATA ", StatusAwaitingData, false},
		{"مكتمل", StatusCompleted, false},
		{"تحت المراجعة", StatusUnderReview, false},
		{"archived", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCompanyStatus(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestActionType_Labels(t *testing.T) {
	assert.Equal(t, "تم الاتصال بالمكلف", ActionContacted.Label())
	got, err := ParseActionType("إضافة مهمة جديدة")
	require.NoError(t, err)
	assert.Equal(t, ActionTaskAdded, got)
	assert.Equal(t, "BOGUS", ActionType("BOGUS").Label())
}

func TestCompany_CloneIsDeep(t *testing.T) {
	c := Company{ID: "c", ActionLog: []ActionLogEntry{{ID: "a", Details: "x"}}}
	clone := c.Clone()
	clone.ActionLog[0].Details = "y"
	assert.Equal(t, "x", c.ActionLog[0].Details)
}

func TestCompanyUpdate_Empty(t *testing.T) {
	assert.True(t, CompanyUpdate{ID: "x"}.Empty())
	name := "n"
	assert.False(t, CompanyUpdate{ID: "x", Name: &name}.Empty())
}
