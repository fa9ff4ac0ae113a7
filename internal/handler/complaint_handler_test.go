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

type stubComplaints struct {
	validate *validator.Validate
	listReq  dto.ComplaintListRequest
	resolved uint
	err      error
}

func (s *stubComplaints) Submit(_ context.Context, sess session.Session, req dto.ComplaintCreateRequest) (dto.ComplaintResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.ComplaintResponse{}, err
	}
	return dto.ComplaintResponse{ID: 1, StudentID: sess.UserID, Description: req.Description, Status: "pending"}, nil
}

func (s *stubComplaints) List(_ context.Context, _ session.Session, req dto.ComplaintListRequest) (dto.ComplaintListResponse, error) {
	s.listReq = req
	return dto.ComplaintListResponse{
		Items:      []dto.ComplaintResponse{{ID: 1, Status: "pending"}},
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, 1),
	}, s.err
}

func (s *stubComplaints) ListMine(ctx context.Context, sess session.Session, req dto.ComplaintListRequest) (dto.ComplaintListResponse, error) {
	return s.List(ctx, sess, req)
}

func (s *stubComplaints) Resolve(_ context.Context, _ session.Session, id uint) (dto.ComplaintResponse, error) {
	s.resolved = id
	return dto.ComplaintResponse{ID: id, Status: "resolved"}, s.err
}

func (s *stubComplaints) Reopen(_ context.Context, _ session.Session, id uint) (dto.ComplaintResponse, error) {
	return dto.ComplaintResponse{ID: id, Status: "pending"}, s.err
}

func TestComplaintHandlerSubmitValidation(t *testing.T) {
	svc := &stubComplaints{validate: validator.New(validator.WithRequiredStructEnabled())}
	h := handler.NewComplaintHandler(svc, zerolog.Nop())
	app := newTestApp(residentSession("s1"), "/api/v1/student/complaints", h.RegisterStudent)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/student/complaints", map[string]string{"description": "hi"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "min", body.Details["Description"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/student/complaints", map[string]string{"description": "The shower drain is blocked"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created dto.ComplaintResponse
	require.NoError(t, json.Unmarshal(body.Data, &created))
	require.Equal(t, "s1", created.StudentID)
}

func TestComplaintHandlerListCarriesPagination(t *testing.T) {
	svc := &stubComplaints{}
	h := handler.NewComplaintHandler(svc, zerolog.Nop())
	app := newTestApp(wardenSession(), "/api/v1/admin/complaints", h.RegisterAdmin)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/admin/complaints?status=pending&page=2&page_size=5", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, dto.ComplaintListRequest{Status: "pending", Page: 2, PageSize: 5}, svc.listReq)

	var meta dto.PaginationMeta
	require.NoError(t, json.Unmarshal(body.Meta, &meta))
	require.Equal(t, 2, meta.Page)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/admin/complaints?page=abc", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestComplaintHandlerResolve(t *testing.T) {
	svc := &stubComplaints{}
	h := handler.NewComplaintHandler(svc, zerolog.Nop())
	app := newTestApp(wardenSession(), "/api/v1/admin/complaints", h.RegisterAdmin)

	resp, _ := doJSON(t, app, http.MethodPatch, "/api/v1/admin/complaints/7/resolve", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), svc.resolved)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/admin/complaints/zero/resolve", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	svc.err = service.ErrNotFound
	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/admin/complaints/8/reopen", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
