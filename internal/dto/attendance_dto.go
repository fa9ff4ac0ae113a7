package dto

import (
	"time"

	"github.com/noah-isme/roommate-api/internal/models"
)

// AttendanceEntry is a single student mark inside a bulk request.
type AttendanceEntry struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
	Status    string `json:"status" validate:"required,oneof=present absent"`
}

// AttendanceMarkRequest records marks for one calendar day (defaults to today).
type AttendanceMarkRequest struct {
	Date    string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,max=500,dive"`
}

// AttendanceMarkResponse summarises a bulk mark.
type AttendanceMarkResponse struct {
	Date    string `json:"date"`
	Marked  int    `json:"marked"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

// AttendanceRecordResponse serializes a single mark.
type AttendanceRecordResponse struct {
	ID        uint      `json:"id"`
	StudentID string    `json:"student_id"`
	Date      string    `json:"date"`
	Status    string    `json:"status"`
	MarkedBy  string    `json:"marked_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAttendanceRecordResponse maps an attendance model.
func NewAttendanceRecordResponse(record models.Attendance) AttendanceRecordResponse {
	return AttendanceRecordResponse{
		ID:        record.ID,
		StudentID: record.StudentID,
		Date:      record.Date.UTC().Format(models.AttendanceDateLayout),
		Status:    record.Status,
		MarkedBy:  record.MarkedBy,
		UpdatedAt: record.UpdatedAt,
	}
}

// MonthlyAttendance is one calendar month of a student's attendance.
type MonthlyAttendance struct {
	Month      string `json:"month"`
	Present    int    `json:"present"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// AttendanceSummaryResponse is a student's attendance overview.
type AttendanceSummaryResponse struct {
	StudentID        string                     `json:"student_id"`
	Percentage       int                        `json:"percentage"`
	Threshold        int                        `json:"threshold"`
	NeedsImprovement bool                       `json:"needs_improvement"`
	Monthly          []MonthlyAttendance        `json:"monthly"`
	Records          []AttendanceRecordResponse `json:"records"`
}
