package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/roommate-api/internal/models"
)

// ComplaintFilter narrows complaint queries.
type ComplaintFilter struct {
	HostelName string
	StudentID  string
	Status     string
	Page       int
	PageSize   int
}

// ComplaintRepository persists student complaints.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	FindByID(ctx context.Context, id uint) (models.Complaint, error)
	List(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, int64, error)
	Count(ctx context.Context, filter ComplaintFilter) (int64, error)
	CountPendingByStudent(ctx context.Context, studentIDs []string) (map[string]int64, error)
	Save(ctx context.Context, complaint *models.Complaint) error
}

type complaintRepository struct {
	db *gorm.DB
}

// NewComplaintRepository constructs the complaint repository.
func NewComplaintRepository(db *gorm.DB) ComplaintRepository {
	return &complaintRepository{db: db}
}

func (r *complaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *complaintRepository) FindByID(ctx context.Context, id uint) (models.Complaint, error) {
	var complaint models.Complaint
	if err := r.db.WithContext(ctx).First(&complaint, id).Error; err != nil {
		return models.Complaint{}, err
	}
	return complaint, nil
}

func (r *complaintRepository) filtered(ctx context.Context, filter ComplaintFilter) *gorm.DB {
	query := inHostel(r.db.WithContext(ctx).Model(&models.Complaint{}), filter.HostelName)
	if filter.StudentID != "" {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}

func (r *complaintRepository) List(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, int64, error) {
	query := r.filtered(ctx, filter)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var complaints []models.Complaint
	if err := paginate(query, filter.Page, filter.PageSize).
		Order("created_at DESC").
		Find(&complaints).Error; err != nil {
		return nil, 0, err
	}

	return complaints, total, nil
}

func (r *complaintRepository) Count(ctx context.Context, filter ComplaintFilter) (int64, error) {
	var total int64
	err := r.filtered(ctx, filter).Count(&total).Error
	return total, err
}

func (r *complaintRepository) CountPendingByStudent(ctx context.Context, studentIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(studentIDs))
	if len(studentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		StudentID string
		Total     int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Complaint{}).
		Select("student_id, COUNT(*) AS total").
		Where("student_id IN ? AND status = ?", studentIDs, models.ComplaintStatusPending).
		Group("student_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.StudentID] = row.Total
	}
	return counts, nil
}

func (r *complaintRepository) Save(ctx context.Context, complaint *models.Complaint) error {
	return r.db.WithContext(ctx).Save(complaint).Error
}
