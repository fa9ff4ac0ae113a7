package models

import "time"

// Complaint status values.
const (
	ComplaintStatusPending  = "pending"
	ComplaintStatusResolved = "resolved"
)

// Complaint is a student-raised maintenance or conduct issue.
type Complaint struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	StudentID   string     `gorm:"size:64;index;not null" json:"student_id"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Status      string     `gorm:"size:16;index;not null;default:pending" json:"status"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
