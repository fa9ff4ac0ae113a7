package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/models"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/session"
)

// RoomCatalogService resolves the hostel's room catalog from materialized rows and student
// assignments.
type RoomCatalogService interface {
	Resolve(ctx context.Context, sess session.Session, includeEmpty bool) ([]dto.RoomView, error)
	Materialize(ctx context.Context, sess session.Session, roomNumber string, req dto.RoomUpsertRequest) (dto.RoomView, error)
	Reconcile(ctx context.Context, sess session.Session) (dto.RoomReconcileResponse, error)
}

type roomCatalogService struct {
	students        repository.StudentRepository
	rooms           repository.RoomRepository
	hostels         hostelResolver
	feed            realtime.Publisher
	validator       *validator.Validate
	defaultCapacity int
	logger          zerolog.Logger
	tracer          trace.Tracer
}

// NewRoomCatalogService constructs the catalog resolver. Rooms referenced by students but
// missing from the catalog are reported with defaultCapacity beds.
func NewRoomCatalogService(students repository.StudentRepository, rooms repository.RoomRepository, admins repository.AdminProfileRepository, feed realtime.Publisher, validate *validator.Validate, defaultCapacity int, logger zerolog.Logger) RoomCatalogService {
	if defaultCapacity <= 0 {
		defaultCapacity = 2
	}
	return &roomCatalogService{
		students:        students,
		rooms:           rooms,
		hostels:         hostelResolver{admins: admins},
		feed:            feed,
		validator:       validate,
		defaultCapacity: defaultCapacity,
		logger:          logger.With().Str("component", "room_catalog_service").Logger(),
		tracer:          otel.Tracer("github.com/noah-isme/roommate-api/internal/service/rooms"),
	}
}

func (s *roomCatalogService) Resolve(ctx context.Context, sess session.Session, includeEmpty bool) ([]dto.RoomView, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return nil, err
	}

	spanCtx, span := s.tracer.Start(ctx, "rooms.resolve", trace.WithAttributes(attribute.String("hostel", hostel)))
	defer span.End()

	views, err := resolveCatalog(spanCtx, s.students, s.rooms, hostel, s.defaultCapacity, includeEmpty)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("rooms.count", len(views)))
	return views, nil
}

func (s *roomCatalogService) Materialize(ctx context.Context, sess session.Session, roomNumber string, req dto.RoomUpsertRequest) (dto.RoomView, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.RoomView{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.RoomView{}, err
	}
	roomNumber = strings.TrimSpace(roomNumber)
	if roomNumber == "" {
		return dto.RoomView{}, validationErr("room number is required")
	}

	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return dto.RoomView{}, err
	}

	members, err := s.students.CountInRoom(ctx, hostel, roomNumber)
	if err != nil {
		return dto.RoomView{}, storeErr("count room members", err)
	}
	if int64(req.Capacity) < members {
		return dto.RoomView{}, validationErr("capacity %d is below current occupancy %d", req.Capacity, members)
	}

	room := models.Room{
		HostelName:       hostel,
		RoomNumber:       roomNumber,
		Capacity:         req.Capacity,
		CurrentOccupancy: int(members),
	}
	if err := s.rooms.Upsert(ctx, &room); err != nil {
		return dto.RoomView{}, storeErr("upsert room", err)
	}

	stored, err := s.rooms.FindByNumber(ctx, hostel, roomNumber)
	if err != nil {
		return dto.RoomView{}, storeErr("reload room", err)
	}

	announce(ctx, s.feed, s.logger, realtime.Event{
		Table:      realtime.TableRooms,
		Operation:  realtime.OpUpdate,
		RowID:      strconv.FormatUint(uint64(stored.ID), 10),
		HostelName: hostel,
	})

	return materializedView(stored, int(members)), nil
}

// Reconcile rewrites the stored counters of every materialized room from membership counts.
func (s *roomCatalogService) Reconcile(ctx context.Context, sess session.Session) (dto.RoomReconcileResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.RoomReconcileResponse{}, err
	}
	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return dto.RoomReconcileResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "rooms.reconcile", trace.WithAttributes(attribute.String("hostel", hostel)))
	defer span.End()

	membership, err := s.students.RoomMembership(spanCtx, hostel)
	if err != nil {
		return dto.RoomReconcileResponse{}, storeErr("list room membership", err)
	}
	counts := make(map[string]int, len(membership))
	for _, row := range membership {
		counts[row.RoomNumber] = row.Occupants
	}

	rooms, err := s.rooms.ListByHostel(spanCtx, hostel)
	if err != nil {
		return dto.RoomReconcileResponse{}, storeErr("list rooms", err)
	}

	updated := make([]dto.RoomView, 0)
	for _, room := range rooms {
		actual := counts[room.RoomNumber]
		if room.CurrentOccupancy == actual {
			continue
		}
		if err := s.rooms.SetOccupancy(spanCtx, room.ID, actual); err != nil {
			span.RecordError(err)
			return dto.RoomReconcileResponse{}, storeErr("rewrite room counter", err)
		}
		s.logger.Info().
			Str("hostel", hostel).
			Str("room", room.RoomNumber).
			Int("stored", room.CurrentOccupancy).
			Int("actual", actual).
			Msg("room counter reconciled")
		room.CurrentOccupancy = actual
		updated = append(updated, materializedView(room, actual))
	}

	if len(updated) > 0 {
		announce(spanCtx, s.feed, s.logger, realtime.Event{
			Table:      realtime.TableRooms,
			Operation:  realtime.OpUpdate,
			HostelName: hostel,
		})
	}

	return dto.RoomReconcileResponse{Updated: updated}, nil
}

// resolveCatalog merges materialized rows with rooms inferred from student assignments.
// Displayed occupancy always comes from membership.
func resolveCatalog(ctx context.Context, students repository.StudentRepository, rooms repository.RoomRepository, hostel string, defaultCapacity int, includeEmpty bool) ([]dto.RoomView, error) {
	membership, err := students.RoomMembership(ctx, hostel)
	if err != nil {
		return nil, storeErr("list room membership", err)
	}

	numbers := make([]string, 0, len(membership))
	for _, row := range membership {
		numbers = append(numbers, row.RoomNumber)
	}

	var rows []models.Room
	if includeEmpty {
		rows, err = rooms.ListByHostel(ctx, hostel)
	} else {
		rows, err = rooms.ListByNumbers(ctx, hostel, numbers)
	}
	if err != nil {
		return nil, storeErr("list rooms", err)
	}

	materialized := make(map[string]models.Room, len(rows))
	for _, row := range rows {
		materialized[row.RoomNumber] = row
	}

	views := make([]dto.RoomView, 0, len(membership)+len(rows))
	for _, row := range membership {
		if room, ok := materialized[row.RoomNumber]; ok {
			views = append(views, materializedView(room, row.Occupants))
			delete(materialized, row.RoomNumber)
			continue
		}
		views = append(views, inferredView(hostel, row.RoomNumber, defaultCapacity, row.Occupants))
	}
	for _, room := range materialized {
		views = append(views, materializedView(room, 0))
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].RoomNumber < views[j].RoomNumber
	})
	return views, nil
}

// resolveRoom re-reads a single room. found is false when the number is neither
// materialized nor referenced by any student.
func resolveRoom(ctx context.Context, students repository.StudentRepository, rooms repository.RoomRepository, hostel, number string, defaultCapacity int) (view dto.RoomView, row *models.Room, found bool, err error) {
	members, err := students.CountInRoom(ctx, hostel, number)
	if err != nil {
		return dto.RoomView{}, nil, false, storeErr("count room members", err)
	}

	room, err := rooms.FindByNumber(ctx, hostel, number)
	if err != nil {
		err = storeErr("load room", err)
		if !errors.Is(err, ErrNotFound) {
			return dto.RoomView{}, nil, false, err
		}
		if members == 0 {
			return dto.RoomView{}, nil, false, nil
		}
		return inferredView(hostel, number, defaultCapacity, int(members)), nil, true, nil
	}

	return materializedView(room, int(members)), &room, true, nil
}

func materializedView(room models.Room, occupants int) dto.RoomView {
	id := room.ID
	stored := room.CurrentOccupancy
	return dto.RoomView{
		ID:              &id,
		HostelName:      room.HostelName,
		RoomNumber:      room.RoomNumber,
		Capacity:        room.Capacity,
		Occupancy:       occupants,
		StoredOccupancy: &stored,
		Available:       available(room.Capacity, occupants),
		Materialized:    true,
	}
}

func inferredView(hostel, number string, capacity, occupants int) dto.RoomView {
	return dto.RoomView{
		HostelName: hostel,
		RoomNumber: number,
		Capacity:   capacity,
		Occupancy:  occupants,
		Available:  available(capacity, occupants),
	}
}

func available(capacity, occupants int) int {
	if occupants >= capacity {
		return 0
	}
	return capacity - occupants
}
