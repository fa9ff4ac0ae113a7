package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/handler"
	"github.com/noah-isme/roommate-api/internal/service"
	"github.com/noah-isme/roommate-api/internal/session"
)

type stubProfiles struct {
	uploadedName string
	uploadErr    error
	update       dto.StudentProfileUpdateRequest
}

func (s *stubProfiles) GetStudent(_ context.Context, sess session.Session) (dto.StudentProfileResponse, error) {
	return dto.StudentProfileResponse{UserID: sess.UserID, FullName: "Asha"}, nil
}

func (s *stubProfiles) UpdateStudent(_ context.Context, sess session.Session, req dto.StudentProfileUpdateRequest) (dto.StudentProfileResponse, error) {
	s.update = req
	return dto.StudentProfileResponse{UserID: sess.UserID, FullName: *req.FullName}, nil
}

func (s *stubProfiles) GetAdmin(_ context.Context, sess session.Session) (dto.AdminProfileResponse, error) {
	return dto.AdminProfileResponse{UserID: sess.UserID, HostelName: sess.HostelName}, nil
}

func (s *stubProfiles) UpdateAdmin(_ context.Context, sess session.Session, _ dto.AdminProfileUpdateRequest) (dto.AdminProfileResponse, error) {
	return dto.AdminProfileResponse{UserID: sess.UserID}, nil
}

func (s *stubProfiles) UploadAvatar(_ context.Context, _ session.Session, file *multipart.FileHeader) (dto.AvatarResponse, error) {
	if s.uploadErr != nil {
		return dto.AvatarResponse{}, s.uploadErr
	}
	s.uploadedName = file.Filename
	return dto.AvatarResponse{URL: "https://cdn.example.com/" + file.Filename}, nil
}

func uploadRequest(t *testing.T, app *fiber.App, field string) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/student/profile/avatar", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestProfileHandlerUploadAvatar(t *testing.T) {
	svc := &stubProfiles{}
	h := handler.NewProfileHandler(svc, zerolog.Nop())
	app := newTestApp(residentSession("s1"), "/api/v1/student/profile", h.RegisterStudent)

	resp, body := uploadRequest(t, app, "file")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "me.png", svc.uploadedName)

	var avatar dto.AvatarResponse
	require.NoError(t, json.Unmarshal(body.Data, &avatar))
	require.Equal(t, "https://cdn.example.com/me.png", avatar.URL)

	resp, _ = uploadRequest(t, app, "image")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProfileHandlerUploadAvatarErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"too large", service.ErrUploadTooLarge, fiber.StatusRequestEntityTooLarge},
		{"wrong type", service.ErrUploadTypeNotAllowed, fiber.StatusUnsupportedMediaType},
		{"storage down", &service.StoreError{Op: "upload avatar", Err: context.DeadlineExceeded}, fiber.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubProfiles{uploadErr: tc.err}
			h := handler.NewProfileHandler(svc, zerolog.Nop())
			app := newTestApp(residentSession("s1"), "/api/v1/student/profile", h.RegisterStudent)

			resp, body := uploadRequest(t, app, "file")
			require.Equal(t, tc.status, resp.StatusCode)
			require.False(t, body.Success)
		})
	}
}

func TestProfileHandlerUpdateStudent(t *testing.T) {
	svc := &stubProfiles{}
	h := handler.NewProfileHandler(svc, zerolog.Nop())
	app := newTestApp(residentSession("s1"), "/api/v1/student/profile", h.RegisterStudent)

	resp, body := doJSON(t, app, http.MethodPatch, "/api/v1/student/profile", map[string]string{"full_name": "Asha Rao"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "profile updated", body.Message)
	require.Nil(t, svc.update.PhoneNumber)
	require.Equal(t, "Asha Rao", *svc.update.FullName)
}
