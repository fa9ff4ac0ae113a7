package models

import "time"

// Attendance status values.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
)

// AttendanceDateLayout is the calendar format used for attendance and due dates.
const AttendanceDateLayout = "2006-01-02"

// Attendance is a single daily mark; unique per student and date.
type Attendance struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID string    `gorm:"size:64;not null;uniqueIndex:idx_attendance_student_date" json:"student_id"`
	Date      time.Time `gorm:"not null;uniqueIndex:idx_attendance_student_date" json:"date"`
	Status    string    `gorm:"size:16;not null" json:"status"`
	MarkedBy  string    `gorm:"size:64" json:"marked_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the singular table name used by the mobile clients.
func (Attendance) TableName() string {
	return "attendance"
}

// IsPresent reports whether the mark counts towards the attendance percentage.
func (a Attendance) IsPresent() bool {
	return a.Status == AttendancePresent
}

// CalendarDate truncates t to midnight UTC so (student, date) uniqueness is stable.
func CalendarDate(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
