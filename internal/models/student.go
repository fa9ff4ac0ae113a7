package models

import "time"

// StudentProfile is the hostel resident record keyed by the identity provider's user id.
type StudentProfile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"size:64;uniqueIndex;not null" json:"user_id"`
	FullName    string    `gorm:"size:255;not null" json:"full_name"`
	Email       string    `gorm:"size:255" json:"email"`
	PhoneNumber string    `gorm:"size:32" json:"phone_number"`
	HostelName  string    `gorm:"size:128;index;not null" json:"hostel_name"`
	RoomNumber  *string   `gorm:"size:32;index" json:"room_number"`
	AvatarURL   string    `gorm:"size:512" json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasRoom reports whether the student currently holds a room assignment.
func (s StudentProfile) HasRoom() bool {
	return s.RoomNumber != nil && *s.RoomNumber != ""
}

// CurrentRoom returns the assigned room number or an empty string.
func (s StudentProfile) CurrentRoom() string {
	if s.RoomNumber == nil {
		return ""
	}
	return *s.RoomNumber
}

// AdminProfile holds the warden account and the hostel it manages.
type AdminProfile struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      string     `gorm:"size:64;uniqueIndex;not null" json:"user_id"`
	FullName    string     `gorm:"size:255;not null" json:"full_name"`
	HostelName  string     `gorm:"size:128;index;not null" json:"hostel_name"`
	PhoneNumber string     `gorm:"size:32" json:"phone_number"`
	Address     string     `gorm:"size:512" json:"address"`
	BirthDate   *time.Time `json:"birth_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
