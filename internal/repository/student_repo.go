package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/roommate-api/internal/models"
)

// RoomMembership is the number of students assigned to one room number.
type RoomMembership struct {
	RoomNumber string
	Occupants  int
}

// StudentFilter narrows roster queries.
type StudentFilter struct {
	HostelName string
	Search     string
	RoomNumber string
}

// StudentRepository provides access to student profiles.
type StudentRepository interface {
	GetByUserID(ctx context.Context, userID string) (models.StudentProfile, error)
	GetInHostel(ctx context.Context, hostel, userID string) (models.StudentProfile, error)
	List(ctx context.Context, filter StudentFilter) ([]models.StudentProfile, error)
	CountByHostel(ctx context.Context, hostel string) (int64, error)
	RoomMembership(ctx context.Context, hostel string) ([]RoomMembership, error)
	CountInRoom(ctx context.Context, hostel, roomNumber string) (int64, error)
	AssignRoom(ctx context.Context, id uint, roomNumber string) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByUserID(ctx context.Context, userID string) (models.StudentProfile, error) {
	var student models.StudentProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&student).Error; err != nil {
		return models.StudentProfile{}, err
	}

	return student, nil
}

func (r *studentRepository) GetInHostel(ctx context.Context, hostel, userID string) (models.StudentProfile, error) {
	var student models.StudentProfile
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND hostel_name = ?", userID, hostel).
		First(&student).Error; err != nil {
		return models.StudentProfile{}, err
	}

	return student, nil
}

func (r *studentRepository) List(ctx context.Context, filter StudentFilter) ([]models.StudentProfile, error) {
	query := r.db.WithContext(ctx).Model(&models.StudentProfile{})

	if filter.HostelName != "" {
		query = query.Where("hostel_name = ?", filter.HostelName)
	}
	if filter.RoomNumber != "" {
		query = query.Where("room_number = ?", filter.RoomNumber)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR room_number LIKE ?", like, like, like)
	}

	var students []models.StudentProfile
	if err := query.Order("full_name ASC").Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) CountByHostel(ctx context.Context, hostel string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.StudentProfile{}).
		Where("hostel_name = ?", hostel).
		Count(&total).Error
	return total, err
}

// RoomMembership groups the hostel's assigned students by room number.
// Unassigned students (null or empty room number) are excluded.
func (r *studentRepository) RoomMembership(ctx context.Context, hostel string) ([]RoomMembership, error) {
	var rows []RoomMembership
	err := r.db.WithContext(ctx).
		Model(&models.StudentProfile{}).
		Select("room_number, COUNT(*) AS occupants").
		Where("hostel_name = ? AND room_number IS NOT NULL AND room_number <> ''", hostel).
		Group("room_number").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *studentRepository) CountInRoom(ctx context.Context, hostel, roomNumber string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.StudentProfile{}).
		Where("hostel_name = ? AND room_number = ?", hostel, roomNumber).
		Count(&total).Error
	return total, err
}

func (r *studentRepository) AssignRoom(ctx context.Context, id uint, roomNumber string) error {
	result := r.db.WithContext(ctx).
		Model(&models.StudentProfile{}).
		Where("id = ?", id).
		Update("room_number", roomNumber)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *studentRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.StudentProfile{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
