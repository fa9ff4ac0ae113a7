package handler_test

import (
	"context"
	"encoding/json"
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

type stubAdminDashboard struct {
	rosterReq dto.AdminStudentListRequest
}

func (s *stubAdminDashboard) Summary(_ context.Context, sess session.Session) (dto.AdminDashboardResponse, error) {
	return dto.AdminDashboardResponse{
		HostelName: sess.HostelName,
		Stats:      dto.AdminDashboardStats{TotalStudents: 2},
		Degraded:   []string{"pending_complaints"},
	}, nil
}

func (s *stubAdminDashboard) Roster(_ context.Context, _ session.Session, req dto.AdminStudentListRequest) ([]dto.RosterEntry, error) {
	s.rosterReq = req
	return []dto.RosterEntry{{StudentID: "s1", AttendancePercentage: 100}}, nil
}

func (s *stubAdminDashboard) StudentDetail(_ context.Context, _ session.Session, studentID string) (dto.AdminStudentDetailResponse, error) {
	if studentID != "s1" {
		return dto.AdminStudentDetailResponse{}, service.ErrNotFound
	}
	return dto.AdminStudentDetailResponse{Profile: dto.StudentProfileResponse{UserID: "s1"}}, nil
}

func TestAdminDashboardHandlerSummaryReportsDegraded(t *testing.T) {
	h := handler.NewAdminDashboardHandler(&stubAdminDashboard{}, zerolog.Nop())
	app := newTestApp(wardenSession(), "/api/v1/admin", h.Register)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/admin/dashboard", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary dto.AdminDashboardResponse
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	require.Equal(t, "Maple Hall", summary.HostelName)
	require.Equal(t, []string{"pending_complaints"}, summary.Degraded)
}

func TestAdminDashboardHandlerRosterAndDetail(t *testing.T) {
	svc := &stubAdminDashboard{}
	h := handler.NewAdminDashboardHandler(svc, zerolog.Nop())
	app := newTestApp(wardenSession(), "/api/v1/admin", h.Register)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/admin/students?search=asha&room_number=101", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, dto.AdminStudentListRequest{Search: "asha", RoomNumber: "101"}, svc.rosterReq)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/admin/students/s1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/admin/students/s9", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
