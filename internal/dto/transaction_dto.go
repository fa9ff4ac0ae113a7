package dto

import (
	"time"

	"github.com/noah-isme/roommate-api/internal/models"
)

// ReminderCreateRequest issues a fee reminder to a student.
type ReminderCreateRequest struct {
	StudentID   string  `json:"student_id" validate:"required,max=64"`
	Description string  `json:"description" validate:"required,min=3,max=500"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	DueDate     string  `json:"due_date" validate:"required,datetime=2006-01-02"`
}

// PaymentCreateRequest records a student-initiated payment awaiting approval.
type PaymentCreateRequest struct {
	Description string  `json:"description" validate:"required,min=3,max=500"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
}

// ReminderPaymentRequest settles a pending reminder, optionally amending amount or description.
type ReminderPaymentRequest struct {
	Amount      *float64 `json:"amount" validate:"omitempty,gt=0"`
	Description *string  `json:"description" validate:"omitempty,min=3,max=500"`
}

// TransactionListRequest filters transaction listings.
type TransactionListRequest struct {
	Status   string `validate:"omitempty,oneof=pending approved rejected"`
	Page     int
	PageSize int
}

// TransactionResponse serializes a transaction.
type TransactionResponse struct {
	ID          uint       `json:"id"`
	StudentID   string     `json:"student_id"`
	AdminID     *string    `json:"admin_id"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Date        time.Time  `json:"date"`
	DueDate     *string    `json:"due_date"`
	PaymentDate *time.Time `json:"payment_date"`
	Status      string     `json:"status"`
	IsReminder  bool       `json:"is_reminder"`
}

// TransactionListResponse wraps a paginated transaction listing.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Pagination PaginationMeta        `json:"pagination"`
}

// NewTransactionResponse maps a transaction model.
func NewTransactionResponse(model models.Transaction) TransactionResponse {
	response := TransactionResponse{
		ID:          model.ID,
		StudentID:   model.StudentID,
		AdminID:     model.AdminID,
		Description: model.Description,
		Amount:      model.Amount,
		Date:        model.Date,
		PaymentDate: model.PaymentDate,
		Status:      model.Status,
		IsReminder:  model.IsReminder,
	}
	if model.DueDate != nil {
		due := model.DueDate.UTC().Format(models.AttendanceDateLayout)
		response.DueDate = &due
	}
	return response
}

// NewTransactionResponseSlice maps a slice of transactions.
func NewTransactionResponseSlice(items []models.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewTransactionResponse(item))
	}
	return responses
}
