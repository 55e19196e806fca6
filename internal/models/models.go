package models

import (
	"time"
)

// Job statuses and types accepted by the API.
const (
	StatusPending   = "pending"
	StatusInterview = "interview"
	StatusDeclined  = "declined"

	TypeFullTime   = "full-time"
	TypePartTime   = "part-time"
	TypeInternship = "internship"
)

type User struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Email    string `json:"email"`
	Location string `json:"location"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar,omitempty"`
}

// IsAdmin reports whether the user may open the admin page.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}

type Job struct {
	ID          string    `json:"_id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CreatedBy   string    `json:"createdBy"`
	Company     string    `json:"company"`
	Position    string    `json:"position"`
	JobStatus   string    `json:"jobStatus"`
	JobType     string    `json:"jobType"`
	JobLocation string    `json:"jobLocation"`
}

// JobsPage is the body of GET /jobs.
type JobsPage struct {
	TotalJobs   int   `json:"totalJobs"`
	NumOfPages  int   `json:"numOfPages"`
	CurrentPage int   `json:"currentPage"`
	Jobs        []Job `json:"jobs"`
}

// DefaultStats counts jobs per status.
type DefaultStats struct {
	Pending   int `json:"pending"`
	Interview int `json:"interview"`
	Declined  int `json:"declined"`
}

// MonthlyApplication is one bar of the applications chart, e.g. {"date": "Mar 24", "count": 3}.
type MonthlyApplication struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats is the body of GET /jobs/stats.
type Stats struct {
	DefaultStats        DefaultStats         `json:"defaultStats"`
	MonthlyApplications []MonthlyApplication `json:"monthlyApplications"`
}

// AppStats is the body of GET /users/admin/app-stats.
type AppStats struct {
	Users int `json:"users"`
	Jobs  int `json:"jobs"`
}

// Preference is a durable client-side setting, stored as a string value.
type Preference struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
