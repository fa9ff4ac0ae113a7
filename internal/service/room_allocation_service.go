package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/models"
	"github.com/noah-isme/roommate-api/internal/observability"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/session"
)

// RoomAllocationService assigns students to rooms.
type RoomAllocationService interface {
	Allocate(ctx context.Context, sess session.Session, req dto.RoomAllocateRequest) (dto.AllocationResponse, error)
}

// Notifier delivers an in-app message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) (dto.NotificationResponse, error)
}

type roomAllocationService struct {
	students        repository.StudentRepository
	rooms           repository.RoomRepository
	hostels         hostelResolver
	activity        ActivityRecorder
	notifier        Notifier
	feed            realtime.Publisher
	defaultCapacity int
	logger          zerolog.Logger
	tracer          trace.Tracer
}

// NewRoomAllocationService constructs the allocator. activity, notifier and feed are optional.
func NewRoomAllocationService(students repository.StudentRepository, rooms repository.RoomRepository, admins repository.AdminProfileRepository, activity ActivityRecorder, notifier Notifier, feed realtime.Publisher, defaultCapacity int, logger zerolog.Logger) RoomAllocationService {
	if defaultCapacity <= 0 {
		defaultCapacity = 2
	}
	return &roomAllocationService{
		students:        students,
		rooms:           rooms,
		hostels:         hostelResolver{admins: admins},
		activity:        activity,
		notifier:        notifier,
		feed:            feed,
		defaultCapacity: defaultCapacity,
		logger:          logger.With().Str("component", "room_allocation_service").Logger(),
		tracer:          otel.Tracer("github.com/noah-isme/roommate-api/internal/service/rooms"),
	}
}

// Allocate moves the student into the room. The student's room number is the authoritative
// write; stored occupancy counters are maintained best effort afterwards and failures there
// are reported as warnings on an otherwise successful result.
func (s *roomAllocationService) Allocate(ctx context.Context, sess session.Session, req dto.RoomAllocateRequest) (dto.AllocationResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.AllocationResponse{}, err
	}

	studentID := strings.TrimSpace(req.StudentID)
	roomNumber := strings.TrimSpace(req.RoomNumber)
	if studentID == "" || roomNumber == "" {
		observability.RoomAllocations().WithLabelValues("invalid").Inc()
		return dto.AllocationResponse{}, validationErr("missing selection")
	}

	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return dto.AllocationResponse{}, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("hostel", hostel),
		attribute.String("room.number", roomNumber),
		attribute.String("student.id", studentID),
	}
	spanCtx, span := s.tracer.Start(ctx, "rooms.allocate", trace.WithAttributes(attrs...))
	defer span.End()

	result, err := s.allocate(spanCtx, sess, hostel, studentID, roomNumber)
	if err != nil {
		span.RecordError(err)
		observability.RoomAllocations().WithLabelValues(allocationOutcome(err)).Inc()
		return dto.AllocationResponse{}, err
	}

	if result.Noop {
		observability.RoomAllocations().WithLabelValues("noop").Inc()
	} else {
		observability.RoomAllocations().WithLabelValues("allocated").Inc()
	}
	span.SetAttributes(attribute.Bool("allocation.noop", result.Noop), attribute.Int("allocation.warnings", len(result.Warnings)))
	return result, nil
}

func (s *roomAllocationService) allocate(ctx context.Context, sess session.Session, hostel, studentID, roomNumber string) (dto.AllocationResponse, error) {
	student, err := s.students.GetInHostel(ctx, hostel, studentID)
	if err != nil {
		return dto.AllocationResponse{}, storeErr("load student", err)
	}

	result := dto.AllocationResponse{
		StudentID:     student.UserID,
		RoomNumber:    roomNumber,
		PreviousRoom:  student.RoomNumber,
		CounterSynced: true,
		Warnings:      []string{},
	}

	if student.CurrentRoom() == roomNumber {
		result.Noop = true
		return result, nil
	}

	target, targetRow, found, err := resolveRoom(ctx, s.students, s.rooms, hostel, roomNumber, s.defaultCapacity)
	if err != nil {
		return dto.AllocationResponse{}, err
	}
	if !found {
		return dto.AllocationResponse{}, fmt.Errorf("%w: room %s", ErrNotFound, roomNumber)
	}
	if target.IsFull() {
		return dto.AllocationResponse{}, fmt.Errorf("%w: room %s has %d of %d beds taken", ErrCapacityExceeded, roomNumber, target.Occupancy, target.Capacity)
	}

	var previous *models.Room
	if student.HasRoom() {
		room, err := s.rooms.FindByNumber(ctx, hostel, student.CurrentRoom())
		switch {
		case err == nil:
			previous = &room
		case errors.Is(err, gorm.ErrRecordNotFound):
			// previous room was never materialized
		default:
			return dto.AllocationResponse{}, storeErr("load previous room", err)
		}
	}

	if err := s.students.AssignRoom(ctx, student.ID, roomNumber); err != nil {
		return dto.AllocationResponse{}, storeErr("assign room", err)
	}

	// The assignment has committed; from here on nothing fails the call.
	logger := requestLogger(ctx, s.logger)
	switch {
	case targetRow != nil && targetRow.CurrentOccupancy >= targetRow.Capacity:
		// The counter has drifted above membership; never push it past capacity.
		result.CounterSynced = false
		observability.RoomCounterSkips().WithLabelValues("conflict").Inc()
		logger.Debug().Str("room", roomNumber).Int("observed", targetRow.CurrentOccupancy).Int("capacity", targetRow.Capacity).Msg("room counter at capacity, increment skipped")
	case targetRow != nil:
		affected, err := s.rooms.CompareAndSetOccupancy(ctx, targetRow.ID, targetRow.CurrentOccupancy, targetRow.CurrentOccupancy+1)
		switch {
		case err != nil:
			result.CounterSynced = false
			result.Warnings = append(result.Warnings, fmt.Sprintf("occupancy counter for room %s not updated: %v", roomNumber, err))
			observability.RoomCounterSkips().WithLabelValues("increment_error").Inc()
			logger.Warn().Err(err).Str("room", roomNumber).Msg("failed to increment room counter")
		case affected == 0:
			result.CounterSynced = false
			observability.RoomCounterSkips().WithLabelValues("conflict").Inc()
			logger.Debug().Str("room", roomNumber).Int("observed", targetRow.CurrentOccupancy).Msg("room counter changed concurrently, increment skipped")
		}
	}

	if previous != nil && previous.RoomNumber != roomNumber && previous.CurrentOccupancy > 0 {
		if _, err := s.rooms.DecrementOccupancy(ctx, previous.ID); err != nil {
			result.CounterSynced = false
			result.Warnings = append(result.Warnings, fmt.Sprintf("occupancy counter for room %s not updated: %v", previous.RoomNumber, err))
			observability.RoomCounterSkips().WithLabelValues("decrement_error").Inc()
			logger.Warn().Err(err).Str("room", previous.RoomNumber).Msg("failed to decrement room counter")
		}
	}

	s.afterAllocation(ctx, sess, hostel, student, result, targetRow)
	return result, nil
}

func (s *roomAllocationService) afterAllocation(ctx context.Context, sess session.Session, hostel string, student models.StudentProfile, result dto.AllocationResponse, targetRow *models.Room) {
	logger := requestLogger(ctx, s.logger)
	if s.activity != nil {
		metadata := map[string]interface{}{
			"room_number":    result.RoomNumber,
			"counter_synced": result.CounterSynced,
		}
		if result.PreviousRoom != nil {
			metadata["previous_room"] = *result.PreviousRoom
		}
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:    sess.UserID,
			ActorRole:  string(sess.Role),
			Action:     "room.allocated",
			EntityType: "student",
			EntityID:   student.UserID,
			Metadata:   metadata,
		}); err != nil {
			logger.Warn().Err(err).Msg("failed to record allocation activity")
		}
	}

	if s.notifier != nil {
		message := fmt.Sprintf("Your room has been changed to %s", result.RoomNumber)
		if _, err := s.notifier.Notify(ctx, student.UserID, message); err != nil {
			logger.Warn().Err(err).Str("student_id", student.UserID).Msg("failed to notify student of room change")
		}
	}

	announce(ctx, s.feed, s.logger, realtime.Event{
		Table:      realtime.TableStudents,
		Operation:  realtime.OpUpdate,
		RowID:      strconv.FormatUint(uint64(student.ID), 10),
		StudentID:  student.UserID,
		HostelName: hostel,
	})

	roomEvent := realtime.Event{Table: realtime.TableRooms, Operation: realtime.OpUpdate, HostelName: hostel}
	if targetRow != nil {
		roomEvent.RowID = strconv.FormatUint(uint64(targetRow.ID), 10)
	}
	announce(ctx, s.feed, s.logger, roomEvent)
}

func allocationOutcome(err error) string {
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "failed"
	}
}
