package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/handler"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/service"
)

type stubActivity struct {
	filter repository.ActivityLogFilter
}

func (s *stubActivity) Record(context.Context, service.ActivityEntry) (dto.ActivityResponse, error) {
	return dto.ActivityResponse{}, nil
}

func (s *stubActivity) List(_ context.Context, filter repository.ActivityLogFilter) ([]dto.ActivityResponse, dto.PaginationMeta, error) {
	s.filter = filter
	return []dto.ActivityResponse{}, dto.NewPaginationMeta(filter.Page, filter.PageSize, 0), nil
}

func TestAdminActivityHandlerDefaultsAndFilters(t *testing.T) {
	svc := &stubActivity{}
	h := handler.NewAdminActivityHandler(svc, zerolog.Nop())
	app := newTestApp(wardenSession(), "/api/v1/admin/activity", h.Register)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/admin/activity?entity_type=room&entity_id=101&page_size=500", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, repository.ActivityLogFilter{Page: 1, PageSize: 200, EntityType: "room", EntityID: "101"}, svc.filter)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/admin/activity?page=x", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
