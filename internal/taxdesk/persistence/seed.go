package persistence

import (
	"time"

	"github.com/gartstein/taxdesk/internal/taxdesk/models"
)

const day = 24 * time.Hour

// SeedCompanies is the first-run company dataset. Log timestamps are relative to now.
func SeedCompanies(now time.Time) []models.Company {
	return []models.Company{
		{
			ID:           "c1",
			Name:         "شركة الوادي الأخضر للتجارة",
			UniqueNumber: "ZAT-001",
			CreationDate: models.Date{Year: 2023, Month: time.May, Day: 15},
			Status:       models.StatusUnderReview,
			Notes:        "تم استلام القوائم المالية الأولية.",
			ActionLog: []models.ActionLogEntry{
				{ID: "a1", Type: models.ActionStatusChanged, Details: "الحالة تغيرت إلى تحت المراجعة", Timestamp: now.Add(-2 * day)},
				{ID: "a2", Type: models.ActionCreated, Details: "تم إنشاء ملف الشركة.", Timestamp: now.Add(-5 * day)},
			},
		},
		{
			ID:           "c2",
			Name:         "مؤسسة الصحراء الذهبية للمقاولات",
			UniqueNumber: "ZAT-002",
			CreationDate: models.Date{Year: 2023, Month: time.August, Day: 20},
			Status:       models.StatusAwaitingData,
			Notes:        "بانتظار كشف حساب البنك لآخر 6 أشهر.",
			ActionLog: []models.ActionLogEntry{
				{ID: "a3", Type: models.ActionContacted, Details: "تم الاتصال بالمكلف لطلب كشوفات البنك.", Timestamp: now.Add(-1 * day)},
				{ID: "a4", Type: models.ActionCreated, Details: "تم إنشاء ملف الشركة.", Timestamp: now.Add(-10 * day)},
			},
		},
		{
			ID:           "c3",
			Name:         "مصنع النور للصناعات البلاستيكية",
			UniqueNumber: "ZAT-003",
			CreationDate: models.Date{Year: 2024, Month: time.January, Day: 10},
			Status:       models.StatusNew,
			Notes:        "شركة جديدة، لم تبدأ المراجعة بعد.",
			ActionLog: []models.ActionLogEntry{
				{ID: "a5", Type: models.ActionCreated, Details: "تم إنشاء ملف الشركة.", Timestamp: now},
			},
		},
	}
}

// SeedTasks is the first-run task dataset. Company names are resolved against
// companies, which should be the seed companies.
func SeedTasks(companies []models.Company, now time.Time) []models.Task {
	nameOf := func(id string) string {
		for _, c := range companies {
			if c.ID == id {
				return c.Name
			}
		}
		return ""
	}
	today := models.DateOf(now)
	return []models.Task{
		{
			ID:          "t1",
			CompanyID:   "c2",
			CompanyName: nameOf("c2"),
			Description: "الاتصال بالمكلف للاستفسار عن كشوفات البنك",
			DueDate:     today,
		},
		{
			ID:          "t2",
			CompanyID:   "c1",
			CompanyName: nameOf("c1"),
			Description: "مراجعة بند الأصول الثابتة",
			DueDate:     today.AddDays(1),
		},
	}
}
