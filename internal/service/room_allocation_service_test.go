package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/middleware"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
)

type allocationFixture struct {
	db       *gorm.DB
	svc      RoomAllocationService
	feed     *recordingFeed
	activity *recordingActivity
	notifier *recordingNotifier
}

func setupAllocation(t *testing.T, wrap func(*gorm.DB, repository.RoomRepository) repository.RoomRepository) allocationFixture {
	t.Helper()
	db := newTestDB(t)
	rooms := repository.NewRoomRepository(db)
	if wrap != nil {
		rooms = wrap(db, rooms)
	}
	fixture := allocationFixture{
		db:       db,
		feed:     &recordingFeed{},
		activity: &recordingActivity{},
		notifier: &recordingNotifier{},
	}
	fixture.svc = NewRoomAllocationService(
		repository.NewStudentRepository(db),
		rooms,
		repository.NewAdminProfileRepository(db),
		fixture.activity,
		fixture.notifier,
		fixture.feed,
		2,
		zerolog.Nop(),
	)
	return fixture
}

func allocate(f allocationFixture, studentID, room string) (dto.AllocationResponse, error) {
	return f.svc.Allocate(context.Background(), adminSession(), dto.RoomAllocateRequest{StudentID: studentID, RoomNumber: room})
}

func TestAllocateFillsRoomThenRejectsAtCapacity(t *testing.T) {
	f := setupAllocation(t, nil)
	seedRoom(t, f.db, "101", 2, 1)
	seedStudent(t, f.db, "S1", "101")
	seedStudent(t, f.db, "S2", "")
	seedStudent(t, f.db, "S3", "")

	result, err := allocate(f, "S2", "101")
	require.NoError(t, err)
	require.False(t, result.Noop)
	require.True(t, result.CounterSynced)
	require.Empty(t, result.Warnings)
	require.Equal(t, 2, reloadRoom(t, f.db, "101").CurrentOccupancy)
	require.Equal(t, "101", reloadStudent(t, f.db, "S2").CurrentRoom())

	_, err = allocate(f, "S3", "101")
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Equal(t, 2, reloadRoom(t, f.db, "101").CurrentOccupancy)
	require.False(t, reloadStudent(t, f.db, "S3").HasRoom())

	require.Equal(t, []string{"Your room has been changed to 101"}, f.notifier.messages["S2"])
	require.Len(t, f.activity.entries, 1)
	require.Equal(t, "room.allocated", f.activity.entries[0].Action)
	require.ElementsMatch(t, []string{realtime.TableStudents, realtime.TableRooms}, f.feed.tables())
}

func TestAllocateIntoCurrentRoomIsNoopAtCapacity(t *testing.T) {
	f := setupAllocation(t, nil)
	seedRoom(t, f.db, "101", 2, 2)
	seedStudent(t, f.db, "S1", "101")
	seedStudent(t, f.db, "S2", "101")

	result, err := allocate(f, "S1", "101")
	require.NoError(t, err)
	require.True(t, result.Noop)
	require.Equal(t, 2, reloadRoom(t, f.db, "101").CurrentOccupancy)
	require.Empty(t, f.feed.tables())
	require.Empty(t, f.notifier.messages)
}

func TestAllocateCapacityUsesMembershipNotCounter(t *testing.T) {
	f := setupAllocation(t, nil)
	seedRoom(t, f.db, "101", 2, 0) // stale counter says empty
	seedStudent(t, f.db, "S1", "101")
	seedStudent(t, f.db, "S2", "101")
	seedStudent(t, f.db, "S3", "102")

	_, err := allocate(f, "S3", "101")
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Equal(t, "102", reloadStudent(t, f.db, "S3").CurrentRoom())
}

func TestAllocateNeverPushesDriftedCounterPastCapacity(t *testing.T) {
	f := setupAllocation(t, nil)
	seedRoom(t, f.db, "101", 2, 2) // counter drifted above the single real member
	seedStudent(t, f.db, "S1", "101")
	seedStudent(t, f.db, "S2", "")
	seedStudent(t, f.db, "S3", "")

	result, err := allocate(f, "S2", "101")
	require.NoError(t, err)
	require.False(t, result.CounterSynced)
	require.Empty(t, result.Warnings)
	require.Equal(t, "101", reloadStudent(t, f.db, "S2").CurrentRoom())

	room := reloadRoom(t, f.db, "101")
	require.LessOrEqual(t, room.CurrentOccupancy, room.Capacity)
	require.Equal(t, 2, room.CurrentOccupancy)

	_, err = allocate(f, "S3", "101")
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.False(t, reloadStudent(t, f.db, "S3").HasRoom())
}

func TestAllocateReassignmentDecrementsPreviousRoom(t *testing.T) {
	f := setupAllocation(t, nil)
	seedRoom(t, f.db, "A", 2, 1)
	seedRoom(t, f.db, "B", 2, 0)
	seedStudent(t, f.db, "S1", "A")

	result, err := allocate(f, "S1", "B")
	require.NoError(t, err)
	require.Equal(t, "A", *result.PreviousRoom)
	require.Equal(t, 0, reloadRoom(t, f.db, "A").CurrentOccupancy)
	require.Equal(t, 1, reloadRoom(t, f.db, "B").CurrentOccupancy)
}

func TestAllocateDecrementFloorsAtZero(t *testing.T) {
	f := setupAllocation(t, nil)
	seedRoom(t, f.db, "A", 2, 0) // drifted low
	seedRoom(t, f.db, "B", 2, 0)
	seedStudent(t, f.db, "S1", "A")

	_, err := allocate(f, "S1", "B")
	require.NoError(t, err)
	require.Equal(t, 0, reloadRoom(t, f.db, "A").CurrentOccupancy)
	require.Equal(t, 1, reloadRoom(t, f.db, "B").CurrentOccupancy)
}

func TestAllocateIntoInferredRoomSkipsCounters(t *testing.T) {
	f := setupAllocation(t, nil)
	seedStudent(t, f.db, "S1", "404")
	seedStudent(t, f.db, "S2", "")

	result, err := allocate(f, "S2", "404")
	require.NoError(t, err)
	require.True(t, result.CounterSynced)
	require.Equal(t, "404", reloadStudent(t, f.db, "S2").CurrentRoom())

	seedStudent(t, f.db, "S3", "")
	_, err = allocate(f, "S3", "404")
	require.ErrorIs(t, err, ErrCapacityExceeded, "inferred rooms use the default capacity")
}

func TestAllocateUnknownRoomIsNotFound(t *testing.T) {
	f := setupAllocation(t, nil)
	seedStudent(t, f.db, "S1", "")

	_, err := allocate(f, "S1", "999")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, reloadStudent(t, f.db, "S1").HasRoom())

	_, err = allocate(f, "ghost", "101")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAllocateRequiresSelection(t *testing.T) {
	f := setupAllocation(t, nil)

	_, err := allocate(f, "", "101")
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "missing selection")

	_, err = allocate(f, "S1", "  ")
	require.ErrorIs(t, err, ErrValidation)
}

// racingRooms bumps the stored counter just before the compare-and-set, as a concurrent
// allocator would.
type racingRooms struct {
	repository.RoomRepository
	db *gorm.DB
}

func (r racingRooms) CompareAndSetOccupancy(ctx context.Context, id uint, observed, next int) (int64, error) {
	if err := r.db.Exec("UPDATE rooms SET current_occupancy = current_occupancy + 1 WHERE id = ?", id).Error; err != nil {
		return 0, err
	}
	return r.RoomRepository.CompareAndSetOccupancy(ctx, id, observed, next)
}

func TestAllocateSkipsIncrementOnCounterConflict(t *testing.T) {
	f := setupAllocation(t, func(db *gorm.DB, inner repository.RoomRepository) repository.RoomRepository {
		return racingRooms{RoomRepository: inner, db: db}
	})

	seedRoom(t, f.db, "101", 3, 0)
	seedStudent(t, f.db, "S1", "")

	result, err := allocate(f, "S1", "101")
	require.NoError(t, err)
	require.False(t, result.CounterSynced)
	require.Empty(t, result.Warnings, "a lost race is skipped silently")
	require.Equal(t, "101", reloadStudent(t, f.db, "S1").CurrentRoom())
	require.Equal(t, 1, reloadRoom(t, f.db, "101").CurrentOccupancy, "only the concurrent write landed")
}

type failingDecrementRooms struct {
	repository.RoomRepository
}

func (failingDecrementRooms) DecrementOccupancy(context.Context, uint) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestAllocateReportsCounterFailureAsWarning(t *testing.T) {
	f := setupAllocation(t, func(_ *gorm.DB, inner repository.RoomRepository) repository.RoomRepository {
		return failingDecrementRooms{RoomRepository: inner}
	})
	seedRoom(t, f.db, "A", 2, 1)
	seedRoom(t, f.db, "B", 2, 0)
	seedStudent(t, f.db, "S1", "A")

	result, err := allocate(f, "S1", "B")
	require.NoError(t, err)
	require.False(t, result.CounterSynced)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Warnings[0], "room A")
	require.Equal(t, "B", reloadStudent(t, f.db, "S1").CurrentRoom())
	require.Equal(t, 1, reloadRoom(t, f.db, "A").CurrentOccupancy)
}

func TestAllocateCounterWarningCarriesCorrelationID(t *testing.T) {
	db := newTestDB(t)
	var logs bytes.Buffer
	svc := NewRoomAllocationService(
		repository.NewStudentRepository(db),
		failingDecrementRooms{RoomRepository: repository.NewRoomRepository(db)},
		repository.NewAdminProfileRepository(db),
		nil,
		nil,
		nil,
		2,
		zerolog.New(&logs),
	)
	seedRoom(t, db, "A", 2, 1)
	seedRoom(t, db, "B", 2, 0)
	seedStudent(t, db, "S1", "A")

	ctx := middleware.ContextWithCorrelation(context.Background(), "corr-42")
	_, err := svc.Allocate(ctx, adminSession(), dto.RoomAllocateRequest{StudentID: "S1", RoomNumber: "B"})
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &entry))
	require.Equal(t, "failed to decrement room counter", entry["message"])
	require.Equal(t, "corr-42", entry["correlation_id"])
	require.Equal(t, "room_allocation_service", entry["component"])
}
