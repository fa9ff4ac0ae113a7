package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/roommate-api/internal/models"
)

// RoomRepository persists the materialized room catalog.
type RoomRepository interface {
	ListByHostel(ctx context.Context, hostel string) ([]models.Room, error)
	ListByNumbers(ctx context.Context, hostel string, numbers []string) ([]models.Room, error)
	FindByNumber(ctx context.Context, hostel, number string) (models.Room, error)
	Upsert(ctx context.Context, room *models.Room) error
	CompareAndSetOccupancy(ctx context.Context, id uint, observed, next int) (int64, error)
	DecrementOccupancy(ctx context.Context, id uint) (int64, error)
	SetOccupancy(ctx context.Context, id uint, value int) error
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository constructs the room catalog repository.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) ListByHostel(ctx context.Context, hostel string) ([]models.Room, error) {
	var rooms []models.Room
	if err := r.db.WithContext(ctx).
		Where("hostel_name = ?", hostel).
		Order("room_number ASC").
		Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) ListByNumbers(ctx context.Context, hostel string, numbers []string) ([]models.Room, error) {
	if len(numbers) == 0 {
		return []models.Room{}, nil
	}

	var rooms []models.Room
	if err := r.db.WithContext(ctx).
		Where("hostel_name = ? AND room_number IN ?", hostel, numbers).
		Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) FindByNumber(ctx context.Context, hostel, number string) (models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).
		Where("hostel_name = ? AND room_number = ?", hostel, number).
		First(&room).Error; err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// Upsert inserts the room or, when (hostel_name, room_number) exists, updates its capacity.
// The stored counter of an existing row is left untouched.
func (r *roomRepository) Upsert(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hostel_name"}, {Name: "room_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"capacity", "updated_at"}),
		}).
		Create(room).Error
}

// CompareAndSetOccupancy writes next only while the stored counter still equals observed and
// next fits the capacity. It returns the number of rows affected; zero means a concurrent
// writer won or the counter is already at capacity.
func (r *roomRepository) CompareAndSetOccupancy(ctx context.Context, id uint, observed, next int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND current_occupancy = ? AND capacity >= ?", id, observed, next).
		Update("current_occupancy", next)
	return result.RowsAffected, result.Error
}

// DecrementOccupancy lowers the stored counter by one without going below zero.
func (r *roomRepository) DecrementOccupancy(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND current_occupancy > 0", id).
		Update("current_occupancy", gorm.Expr("current_occupancy - 1"))
	return result.RowsAffected, result.Error
}

func (r *roomRepository) SetOccupancy(ctx context.Context, id uint, value int) error {
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", id).
		Update("current_occupancy", value).Error
}
