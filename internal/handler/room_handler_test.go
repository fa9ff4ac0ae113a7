package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/handler"
	"github.com/noah-isme/roommate-api/internal/service"
	"github.com/noah-isme/roommate-api/internal/session"
)

type stubCatalog struct {
	rooms        []dto.RoomView
	includeEmpty bool
	materialized string
	err          error
}

func (s *stubCatalog) Resolve(_ context.Context, _ session.Session, includeEmpty bool) ([]dto.RoomView, error) {
	s.includeEmpty = includeEmpty
	return s.rooms, s.err
}

func (s *stubCatalog) Materialize(_ context.Context, _ session.Session, roomNumber string, req dto.RoomUpsertRequest) (dto.RoomView, error) {
	s.materialized = roomNumber
	return dto.RoomView{RoomNumber: roomNumber, Capacity: req.Capacity, Materialized: true}, s.err
}

func (s *stubCatalog) Reconcile(context.Context, session.Session) (dto.RoomReconcileResponse, error) {
	return dto.RoomReconcileResponse{Updated: []dto.RoomView{}}, s.err
}

type stubAllocation struct {
	last   dto.RoomAllocateRequest
	sess   session.Session
	result dto.AllocationResponse
	err    error
}

func (s *stubAllocation) Allocate(_ context.Context, sess session.Session, req dto.RoomAllocateRequest) (dto.AllocationResponse, error) {
	s.last = req
	s.sess = sess
	return s.result, s.err
}

func newRoomApp(catalog *stubCatalog, allocation *stubAllocation) *fiber.App {
	h := handler.NewRoomHandler(catalog, allocation, nil, zerolog.Nop())
	return newTestApp(wardenSession(), "/api/v1/admin/rooms", h.Register)
}

func TestRoomHandlerList(t *testing.T) {
	catalog := &stubCatalog{rooms: []dto.RoomView{{RoomNumber: "101", Capacity: 2, Occupancy: 1, Available: 1}}}
	app := newRoomApp(catalog, &stubAllocation{})

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/admin/rooms?include_empty=true", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, catalog.includeEmpty)

	var rooms []dto.RoomView
	require.NoError(t, json.Unmarshal(body.Data, &rooms))
	require.Len(t, rooms, 1)
	require.Equal(t, "101", rooms[0].RoomNumber)
}

func TestRoomHandlerAllocate(t *testing.T) {
	allocation := &stubAllocation{result: dto.AllocationResponse{StudentID: "s1", RoomNumber: "101", CounterSynced: true}}
	app := newRoomApp(&stubCatalog{}, allocation)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/admin/rooms/allocate", map[string]string{"student_id": "s1", "room_number": "101"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "room allocated", body.Message)
	require.Equal(t, dto.RoomAllocateRequest{StudentID: "s1", RoomNumber: "101"}, allocation.last)
	require.Equal(t, "warden-1", allocation.sess.UserID)
}

func TestRoomHandlerAllocateErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"capacity", fmt.Errorf("%w: room 101 is full", service.ErrCapacityExceeded), fiber.StatusConflict},
		{"not found", fmt.Errorf("%w: room 999", service.ErrNotFound), fiber.StatusNotFound},
		{"validation", fmt.Errorf("%w: missing selection", service.ErrValidation), fiber.StatusBadRequest},
		{"forbidden", service.ErrForbidden, fiber.StatusForbidden},
		{"store", &service.StoreError{Op: "assign room", Err: errors.New("connection reset")}, fiber.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newRoomApp(&stubCatalog{}, &stubAllocation{err: tc.err})
			resp, body := doJSON(t, app, http.MethodPost, "/api/v1/admin/rooms/allocate", map[string]string{"student_id": "s1", "room_number": "101"})
			require.Equal(t, tc.status, resp.StatusCode)
			require.False(t, body.Success)
		})
	}
}

func TestRoomHandlerUpsert(t *testing.T) {
	catalog := &stubCatalog{}
	app := newRoomApp(catalog, &stubAllocation{})

	resp, _ := doJSON(t, app, http.MethodPut, "/api/v1/admin/rooms/204", map[string]int{"capacity": 3})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "204", catalog.materialized)
}
