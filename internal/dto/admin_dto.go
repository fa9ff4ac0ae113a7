package dto

import (
	"math"
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/roommate-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta computes page totals. A non-positive page size means a single page.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	if page < 1 {
		page = 1
	}
	meta := PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: 1}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return meta
}

// AdminDashboardStats holds the hostel-wide counters shown to wardens.
type AdminDashboardStats struct {
	TotalStudents     int64 `json:"total_students"`
	PendingComplaints int64 `json:"pending_complaints"`
	PendingPayments   int64 `json:"pending_payments"`
}

// AdminDashboardResponse is the warden landing payload. Degraded names statistics that
// could not be read and were reported as zero.
type AdminDashboardResponse struct {
	HostelName string              `json:"hostel_name"`
	Stats      AdminDashboardStats `json:"stats"`
	Degraded   []string            `json:"degraded"`
}

// AdminStudentListRequest defines filters for the hostel roster.
type AdminStudentListRequest struct {
	Search     string
	RoomNumber string
}

// RosterEntry is one row of the hostel roster.
type RosterEntry struct {
	StudentID            string  `json:"student_id"`
	FullName             string  `json:"full_name"`
	RoomNumber           *string `json:"room_number"`
	AttendancePercentage int     `json:"attendance_percentage"`
	NeedsImprovement     bool    `json:"needs_improvement"`
	PendingComplaints    int64   `json:"pending_complaints"`
	PendingPayments      int64   `json:"pending_payments"`
}

// AdminStudentDetailResponse combines a student's profile with attendance and open items.
type AdminStudentDetailResponse struct {
	Profile           StudentProfileResponse    `json:"profile"`
	Attendance        AttendanceSummaryResponse `json:"attendance"`
	PendingComplaints []ComplaintResponse       `json:"pending_complaints"`
	RecentActivity    []ActivityResponse        `json:"recent_activity"`
}

// ActivityResponse serializes an audit log entry.
type ActivityResponse struct {
	ID         uint              `json:"id"`
	ActorID    string            `json:"actor_id"`
	ActorRole  string            `json:"actor_role"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewActivityResponse maps an activity log model to its response DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   entry.Metadata,
		CreatedAt:  entry.CreatedAt,
	}
}
