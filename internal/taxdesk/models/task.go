package models

// Task is a follow-up item attached to a company by id.
type Task struct {
	ID        string `json:"id"`
	CompanyID string `json:"companyId"`
	// CompanyName is copied at creation time and never refreshed on rename.
	CompanyName string `json:"companyName"`
	Description string `json:"description"`
	DueDate     Date   `json:"dueDate"`
	IsCompleted bool   `json:"isCompleted"`
}

// NewTask carries the fields of a task being added by the user.
type NewTask struct {
	CompanyID   string
	Description string
	DueDate     Date
}
