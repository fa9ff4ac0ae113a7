package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/roommate-api/internal/models"
)

// TransactionFilter narrows transaction queries.
type TransactionFilter struct {
	HostelName string
	StudentID  string
	Status     string
	IsReminder *bool
	Page       int
	PageSize   int
}

// TransactionRepository persists fee reminders and payments.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	FindByID(ctx context.Context, id uint) (models.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error)
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
	CountPendingByStudent(ctx context.Context, studentIDs []string) (map[string]int64, error)
	Save(ctx context.Context, transaction *models.Transaction) error
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository constructs the transaction repository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, id uint) (models.Transaction, error) {
	var transaction models.Transaction
	if err := r.db.WithContext(ctx).First(&transaction, id).Error; err != nil {
		return models.Transaction{}, err
	}
	return transaction, nil
}

func (r *transactionRepository) filtered(ctx context.Context, filter TransactionFilter) *gorm.DB {
	query := inHostel(r.db.WithContext(ctx).Model(&models.Transaction{}), filter.HostelName)
	if filter.StudentID != "" {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.IsReminder != nil {
		query = query.Where("is_reminder = ?", *filter.IsReminder)
	}
	return query
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	query := r.filtered(ctx, filter)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []models.Transaction
	if err := paginate(query, filter.Page, filter.PageSize).
		Order("date DESC").
		Order("id DESC").
		Find(&transactions).Error; err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

func (r *transactionRepository) Count(ctx context.Context, filter TransactionFilter) (int64, error) {
	var total int64
	err := r.filtered(ctx, filter).Count(&total).Error
	return total, err
}

func (r *transactionRepository) CountPendingByStudent(ctx context.Context, studentIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(studentIDs))
	if len(studentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		StudentID string
		Total     int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("student_id, COUNT(*) AS total").
		Where("student_id IN ? AND status = ?", studentIDs, models.TransactionStatusPending).
		Group("student_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.StudentID] = row.Total
	}
	return counts, nil
}

func (r *transactionRepository) Save(ctx context.Context, transaction *models.Transaction) error {
	return r.db.WithContext(ctx).Save(transaction).Error
}
