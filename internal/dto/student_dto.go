package dto

import (
	"time"

	"github.com/noah-isme/roommate-api/internal/models"
)

// StudentProfileResponse serializes a student profile.
type StudentProfileResponse struct {
	ID          uint      `json:"id"`
	UserID      string    `json:"user_id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	HostelName  string    `json:"hostel_name"`
	RoomNumber  *string   `json:"room_number"`
	AvatarURL   string    `json:"avatar_url"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewStudentProfileResponse maps a student profile.
func NewStudentProfileResponse(model models.StudentProfile) StudentProfileResponse {
	return StudentProfileResponse{
		ID:          model.ID,
		UserID:      model.UserID,
		FullName:    model.FullName,
		Email:       model.Email,
		PhoneNumber: model.PhoneNumber,
		HostelName:  model.HostelName,
		RoomNumber:  model.RoomNumber,
		AvatarURL:   model.AvatarURL,
		UpdatedAt:   model.UpdatedAt,
	}
}

// StudentProfileUpdateRequest captures partial profile updates from a student.
type StudentProfileUpdateRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,min=2,max=255"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,min=6,max=32"`
}

// AdminProfileResponse serializes a warden profile.
type AdminProfileResponse struct {
	ID          uint       `json:"id"`
	UserID      string     `json:"user_id"`
	FullName    string     `json:"full_name"`
	HostelName  string     `json:"hostel_name"`
	PhoneNumber string     `json:"phone_number"`
	Address     string     `json:"address"`
	BirthDate   *time.Time `json:"birth_date"`
}

// NewAdminProfileResponse maps an admin profile.
func NewAdminProfileResponse(model models.AdminProfile) AdminProfileResponse {
	return AdminProfileResponse{
		ID:          model.ID,
		UserID:      model.UserID,
		FullName:    model.FullName,
		HostelName:  model.HostelName,
		PhoneNumber: model.PhoneNumber,
		Address:     model.Address,
		BirthDate:   model.BirthDate,
	}
}

// AdminProfileUpdateRequest captures partial profile updates from a warden.
type AdminProfileUpdateRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,min=2,max=255"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,min=6,max=32"`
	Address     *string `json:"address" validate:"omitempty,max=512"`
}

// AvatarResponse returns the stored avatar location.
type AvatarResponse struct {
	URL string `json:"url"`
}

// StudentDashboardStats are the per-student counters on the landing screen.
type StudentDashboardStats struct {
	AttendancePercentage int   `json:"attendance_percentage"`
	NeedsImprovement     bool  `json:"needs_improvement"`
	ActiveComplaints     int64 `json:"active_complaints"`
	ResolvedComplaints   int64 `json:"resolved_complaints"`
}

// StudentDashboardResponse aggregates the student landing payload.
type StudentDashboardResponse struct {
	Profile             StudentProfileResponse `json:"profile"`
	Stats               StudentDashboardStats  `json:"stats"`
	PendingReminders    []TransactionResponse  `json:"pending_reminders"`
	UnreadNotifications int64                  `json:"unread_notifications"`
}
