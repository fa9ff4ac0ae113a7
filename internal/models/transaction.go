package models

import "time"

// Transaction status values.
const (
	TransactionStatusPending  = "pending"
	TransactionStatusApproved = "approved"
	TransactionStatusRejected = "rejected"
)

// Transaction is either an admin-issued fee reminder or a student-initiated payment.
type Transaction struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	StudentID   string     `gorm:"size:64;index;not null" json:"student_id"`
	AdminID     *string    `gorm:"size:64" json:"admin_id"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Amount      float64    `gorm:"not null" json:"amount"`
	Date        time.Time  `gorm:"not null" json:"date"`
	DueDate     *time.Time `json:"due_date"`
	PaymentDate *time.Time `json:"payment_date"`
	Status      string     `gorm:"size:16;index;not null;default:pending" json:"status"`
	IsReminder  bool       `gorm:"index;not null;default:false" json:"is_reminder"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
