package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/roommate-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedStudent(t *testing.T, db *gorm.DB, userID, hostel, room string) models.StudentProfile {
	t.Helper()
	student := models.StudentProfile{UserID: userID, FullName: "Student " + userID, HostelName: hostel}
	if room != "" {
		student.RoomNumber = &room
	}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func TestStudentRepositoryRoomMembershipSkipsUnassigned(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStudentRepository(db)

	seedStudent(t, db, "s1", "North", "101")
	seedStudent(t, db, "s2", "North", "101")
	seedStudent(t, db, "s3", "North", "102")
	seedStudent(t, db, "s4", "North", "")
	seedStudent(t, db, "s5", "South", "101")

	rows, err := repo.RoomMembership(context.Background(), "North")
	require.NoError(t, err)

	counts := map[string]int{}
	for _, row := range rows {
		counts[row.RoomNumber] = row.Occupants
	}
	require.Equal(t, map[string]int{"101": 2, "102": 1}, counts)

	total, err := repo.CountInRoom(context.Background(), "North", "101")
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
}

func TestStudentRepositoryAssignRoomMissingStudent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStudentRepository(db)

	err := repo.AssignRoom(context.Background(), 42, "101")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRoomRepositoryCompareAndSetOccupancy(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	room := models.Room{HostelName: "North", RoomNumber: "101", Capacity: 2, CurrentOccupancy: 1}
	require.NoError(t, repo.Upsert(ctx, &room))
	stored, err := repo.FindByNumber(ctx, "North", "101")
	require.NoError(t, err)

	affected, err := repo.CompareAndSetOccupancy(ctx, stored.ID, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	affected, err = repo.CompareAndSetOccupancy(ctx, stored.ID, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(0), affected, "stale observation must not write")

	stored, err = repo.FindByNumber(ctx, "North", "101")
	require.NoError(t, err)
	require.Equal(t, 2, stored.CurrentOccupancy)
}

func TestRoomRepositoryCompareAndSetOccupancyRespectsCapacity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	room := models.Room{HostelName: "North", RoomNumber: "102", Capacity: 2, CurrentOccupancy: 2}
	require.NoError(t, db.Create(&room).Error)

	affected, err := repo.CompareAndSetOccupancy(ctx, room.ID, 2, 3)
	require.NoError(t, err)
	require.Equal(t, int64(0), affected)

	stored, err := repo.FindByNumber(ctx, "North", "102")
	require.NoError(t, err)
	require.Equal(t, 2, stored.CurrentOccupancy)
}

func TestRoomRepositoryDecrementFloorsAtZero(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	room := models.Room{HostelName: "North", RoomNumber: "201", Capacity: 2, CurrentOccupancy: 1}
	require.NoError(t, db.Create(&room).Error)

	affected, err := repo.DecrementOccupancy(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	affected, err = repo.DecrementOccupancy(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), affected)

	stored, err := repo.FindByNumber(ctx, "North", "201")
	require.NoError(t, err)
	require.Equal(t, 0, stored.CurrentOccupancy)
}

func TestRoomRepositoryUpsertKeepsCounter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Room{HostelName: "North", RoomNumber: "301", Capacity: 2, CurrentOccupancy: 1}))
	require.NoError(t, repo.Upsert(ctx, &models.Room{HostelName: "North", RoomNumber: "301", Capacity: 4, CurrentOccupancy: 0}))

	rooms, err := repo.ListByHostel(ctx, "North")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, 4, rooms[0].Capacity)
	require.Equal(t, 1, rooms[0].CurrentOccupancy)

	byNumber, err := repo.ListByNumbers(ctx, "North", []string{"301", "999"})
	require.NoError(t, err)
	require.Len(t, byNumber, 1)
}

func TestAttendanceRepositoryUpsertReplacesSameDay(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)
	ctx := context.Background()

	day := models.CalendarDate(time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Upsert(ctx, []models.Attendance{
		{StudentID: "s1", Date: day, Status: models.AttendanceAbsent, MarkedBy: "a1"},
		{StudentID: "s2", Date: day, Status: models.AttendancePresent, MarkedBy: "a1"},
	}))
	require.NoError(t, repo.Upsert(ctx, []models.Attendance{
		{StudentID: "s1", Date: day, Status: models.AttendancePresent, MarkedBy: "a2"},
	}))

	records, err := repo.ListByStudent(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, models.AttendancePresent, records[0].Status)
	require.Equal(t, "a2", records[0].MarkedBy)

	all, err := repo.ListByStudents(ctx, []string{"s1", "s2"})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestComplaintRepositoryFiltersByHostel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewComplaintRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "s1", "North", "101")
	seedStudent(t, db, "s2", "South", "101")

	require.NoError(t, repo.Create(ctx, &models.Complaint{StudentID: "s1", Description: "Leaking tap", Status: models.ComplaintStatusPending}))
	require.NoError(t, repo.Create(ctx, &models.Complaint{StudentID: "s1", Description: "Broken fan", Status: models.ComplaintStatusResolved}))
	require.NoError(t, repo.Create(ctx, &models.Complaint{StudentID: "s2", Description: "Noisy corridor", Status: models.ComplaintStatusPending}))

	items, total, err := repo.List(ctx, ComplaintFilter{HostelName: "North", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)

	pending, err := repo.Count(ctx, ComplaintFilter{HostelName: "North", Status: models.ComplaintStatusPending})
	require.NoError(t, err)
	require.Equal(t, int64(1), pending)

	perStudent, err := repo.CountPendingByStudent(ctx, []string{"s1", "s2"})
	require.NoError(t, err)
	require.Equal(t, int64(1), perStudent["s1"])
	require.Equal(t, int64(1), perStudent["s2"])
}

func TestTransactionRepositoryReminderFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "s1", "North", "101")
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &models.Transaction{StudentID: "s1", Description: "Hostel fee", Amount: 500, Date: now, Status: models.TransactionStatusPending, IsReminder: true}))
	require.NoError(t, repo.Create(ctx, &models.Transaction{StudentID: "s1", Description: "Mess fee", Amount: 120, Date: now, Status: models.TransactionStatusPending}))

	reminder := true
	items, total, err := repo.List(ctx, TransactionFilter{StudentID: "s1", IsReminder: &reminder, Status: models.TransactionStatusPending})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Hostel fee", items[0].Description)

	pending, err := repo.Count(ctx, TransactionFilter{HostelName: "North", Status: models.TransactionStatusPending})
	require.NoError(t, err)
	require.Equal(t, int64(2), pending)
}

func TestNotificationRepositoryMarkReadIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	notification := models.Notification{UserID: "s1", Message: "Your room has been changed to 101"}
	require.NoError(t, repo.Create(ctx, &notification))

	first, err := repo.MarkRead(ctx, notification.ID, "s1")
	require.NoError(t, err)
	require.True(t, first.IsRead)

	second, err := repo.MarkRead(ctx, notification.ID, "s1")
	require.NoError(t, err)
	require.True(t, second.IsRead)

	_, err = repo.MarkRead(ctx, notification.ID, "someone-else")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	unread, err := repo.CountUnread(ctx, "s1")
	require.NoError(t, err)
	require.Zero(t, unread)
}
