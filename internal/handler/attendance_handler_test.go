package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/handler"
	"github.com/noah-isme/roommate-api/internal/service"
	"github.com/noah-isme/roommate-api/internal/session"
)

type stubAttendance struct {
	validate  *validator.Validate
	summaryOf string
}

func (s *stubAttendance) Mark(_ context.Context, _ session.Session, req dto.AttendanceMarkRequest) (dto.AttendanceMarkResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.AttendanceMarkResponse{}, err
	}
	return dto.AttendanceMarkResponse{Date: req.Date, Marked: len(req.Entries), Present: len(req.Entries)}, nil
}

func (s *stubAttendance) StudentSummary(_ context.Context, sess session.Session, studentID string) (dto.AttendanceSummaryResponse, error) {
	if studentID == "" {
		studentID = sess.UserID
	}
	s.summaryOf = studentID
	if studentID == "x1" {
		return dto.AttendanceSummaryResponse{}, service.ErrNotFound
	}
	return dto.AttendanceSummaryResponse{StudentID: studentID, Percentage: 75, Threshold: 75}, nil
}

func TestAttendanceHandlerMark(t *testing.T) {
	svc := &stubAttendance{validate: validator.New()}
	h := handler.NewAttendanceHandler(svc, zerolog.Nop())
	app := newTestApp(wardenSession(), "/api/v1/admin/attendance", h.RegisterAdmin)

	payload := map[string]interface{}{
		"date":    "2025-03-14",
		"entries": []map[string]string{{"student_id": "s1", "status": "present"}},
	}
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/admin/attendance", payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var marked dto.AttendanceMarkResponse
	require.NoError(t, json.Unmarshal(body.Data, &marked))
	require.Equal(t, 1, marked.Marked)

	payload["entries"] = []map[string]string{{"student_id": "s1", "status": "late"}}
	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/admin/attendance", payload)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "oneof", body.Details["Status"])
}

func TestAttendanceHandlerSummary(t *testing.T) {
	svc := &stubAttendance{}
	h := handler.NewAttendanceHandler(svc, zerolog.Nop())

	admin := newTestApp(wardenSession(), "/api/v1/admin/attendance", h.RegisterAdmin)
	resp, _ := doJSON(t, admin, http.MethodGet, "/api/v1/admin/attendance/s2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "s2", svc.summaryOf)

	resp, _ = doJSON(t, admin, http.MethodGet, "/api/v1/admin/attendance/x1", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	student := newTestApp(residentSession("s1"), "/api/v1/student/attendance", h.RegisterStudent)
	resp, _ = doJSON(t, student, http.MethodGet, "/api/v1/student/attendance", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "s1", svc.summaryOf)
}
