package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/roommate-api/internal/models"
)

// AttendanceRepository persists daily attendance marks.
type AttendanceRepository interface {
	Upsert(ctx context.Context, records []models.Attendance) error
	ListByStudent(ctx context.Context, studentID string) ([]models.Attendance, error)
	ListByStudents(ctx context.Context, studentIDs []string) ([]models.Attendance, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository constructs the attendance repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

// Upsert writes the marks, replacing status and marker on (student_id, date) conflicts.
func (r *attendanceRepository) Upsert(ctx context.Context, records []models.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "marked_by", "updated_at"}),
		}).
		Create(&records).Error
}

func (r *attendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Attendance, error) {
	var records []models.Attendance
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("date DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *attendanceRepository) ListByStudents(ctx context.Context, studentIDs []string) ([]models.Attendance, error) {
	if len(studentIDs) == 0 {
		return []models.Attendance{}, nil
	}

	var records []models.Attendance
	if err := r.db.WithContext(ctx).
		Where("student_id IN ?", studentIDs).
		Order("date DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
