package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/models"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/session"
)

const testHostel = "Maple Hall"

type recordingFeed struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (f *recordingFeed) Publish(_ context.Context, event realtime.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *recordingFeed) tables() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tables := make([]string, 0, len(f.events))
	for _, event := range f.events {
		tables = append(tables, event.Table)
	}
	return tables
}

type recordingActivity struct {
	entries []ActivityEntry
}

func (r *recordingActivity) Record(_ context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	r.entries = append(r.entries, entry)
	return dto.ActivityResponse{Action: entry.Action, EntityType: entry.EntityType, EntityID: entry.EntityID}, nil
}

type recordingNotifier struct {
	messages map[string][]string
}

func (n *recordingNotifier) Notify(_ context.Context, userID, message string) (dto.NotificationResponse, error) {
	if n.messages == nil {
		n.messages = map[string][]string{}
	}
	n.messages[userID] = append(n.messages[userID], message)
	return dto.NotificationResponse{UserID: userID, Message: message}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func adminSession() session.Session {
	return session.Session{ID: "sess-admin", UserID: "warden-1", Role: session.RoleAdmin, HostelName: testHostel}
}

func studentSession(userID string) session.Session {
	return session.Session{ID: "sess-" + userID, UserID: userID, Role: session.RoleStudent, HostelName: testHostel}
}

func seedStudent(t *testing.T, db *gorm.DB, userID, room string) models.StudentProfile {
	t.Helper()
	return seedStudentIn(t, db, testHostel, userID, room)
}

func seedStudentIn(t *testing.T, db *gorm.DB, hostel, userID, room string) models.StudentProfile {
	t.Helper()
	student := models.StudentProfile{UserID: userID, FullName: "Student " + userID, HostelName: hostel}
	if room != "" {
		student.RoomNumber = &room
	}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func seedRoom(t *testing.T, db *gorm.DB, number string, capacity, occupancy int) models.Room {
	t.Helper()
	room := models.Room{HostelName: testHostel, RoomNumber: number, Capacity: capacity, CurrentOccupancy: occupancy}
	require.NoError(t, db.Create(&room).Error)
	return room
}

func reloadStudent(t *testing.T, db *gorm.DB, userID string) models.StudentProfile {
	t.Helper()
	var student models.StudentProfile
	require.NoError(t, db.Where("user_id = ?", userID).First(&student).Error)
	return student
}

func reloadRoom(t *testing.T, db *gorm.DB, number string) models.Room {
	t.Helper()
	var room models.Room
	require.NoError(t, db.Where("hostel_name = ? AND room_number = ?", testHostel, number).First(&room).Error)
	return room
}

func isValidatorError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
