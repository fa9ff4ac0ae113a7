package dto

import (
	"time"

	"github.com/noah-isme/roommate-api/internal/models"
)

// ComplaintCreateRequest is submitted by a student.
type ComplaintCreateRequest struct {
	Description string `json:"description" validate:"required,min=5,max=2000"`
}

// ComplaintListRequest filters complaint listings.
type ComplaintListRequest struct {
	Status   string `validate:"omitempty,oneof=pending resolved"`
	Page     int
	PageSize int
}

// ComplaintResponse serializes a complaint.
type ComplaintResponse struct {
	ID          uint       `json:"id"`
	StudentID   string     `json:"student_id"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ComplaintListResponse wraps a paginated complaint listing.
type ComplaintListResponse struct {
	Items      []ComplaintResponse `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
}

// NewComplaintResponse maps a complaint model.
func NewComplaintResponse(model models.Complaint) ComplaintResponse {
	return ComplaintResponse{
		ID:          model.ID,
		StudentID:   model.StudentID,
		Description: model.Description,
		Status:      model.Status,
		ResolvedAt:  model.ResolvedAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewComplaintResponseSlice maps a slice of complaints.
func NewComplaintResponseSlice(items []models.Complaint) []ComplaintResponse {
	responses := make([]ComplaintResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewComplaintResponse(item))
	}
	return responses
}
