package models

import "time"

// Room is a materialized catalog entry. CurrentOccupancy is an advisory counter; the
// authoritative occupancy is the number of students whose room number matches.
type Room struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	HostelName       string    `gorm:"size:128;not null;uniqueIndex:idx_rooms_hostel_number" json:"hostel_name"`
	RoomNumber       string    `gorm:"size:32;not null;uniqueIndex:idx_rooms_hostel_number" json:"room_number"`
	Capacity         int       `gorm:"not null;default:2" json:"capacity"`
	CurrentOccupancy int       `gorm:"not null;default:0" json:"current_occupancy"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
