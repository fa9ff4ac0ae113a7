package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/observability"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/session"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the sniffed MIME type is not an accepted image.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

var allowedAvatarTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// FileStorage abstracts avatar destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ProfileService reads and edits the caller's own profile.
type ProfileService interface {
	GetStudent(ctx context.Context, sess session.Session) (dto.StudentProfileResponse, error)
	UpdateStudent(ctx context.Context, sess session.Session, req dto.StudentProfileUpdateRequest) (dto.StudentProfileResponse, error)
	GetAdmin(ctx context.Context, sess session.Session) (dto.AdminProfileResponse, error)
	UpdateAdmin(ctx context.Context, sess session.Session, req dto.AdminProfileUpdateRequest) (dto.AdminProfileResponse, error)
	UploadAvatar(ctx context.Context, sess session.Session, file *multipart.FileHeader) (dto.AvatarResponse, error)
}

type profileService struct {
	students  repository.StudentRepository
	admins    repository.AdminProfileRepository
	storage   FileStorage
	feed      realtime.Publisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	maxSize   int64
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewProfileService constructs the profile service. storage may be nil, in which case avatar
// uploads report the store as unavailable.
func NewProfileService(students repository.StudentRepository, admins repository.AdminProfileRepository, storage FileStorage, feed realtime.Publisher, validate *validator.Validate, maxSizeMB int, logger zerolog.Logger) ProfileService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &profileService{
		students:  students,
		admins:    admins,
		storage:   storage,
		feed:      feed,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		logger:    logger.With().Str("component", "profile_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/roommate-api/internal/service/profile"),
	}
}

func (s *profileService) GetStudent(ctx context.Context, sess session.Session) (dto.StudentProfileResponse, error) {
	if err := requireStudent(sess); err != nil {
		return dto.StudentProfileResponse{}, err
	}
	student, err := s.students.GetByUserID(ctx, sess.UserID)
	if err != nil {
		return dto.StudentProfileResponse{}, storeErr("load student", err)
	}
	return dto.NewStudentProfileResponse(student), nil
}

func (s *profileService) UpdateStudent(ctx context.Context, sess session.Session, req dto.StudentProfileUpdateRequest) (dto.StudentProfileResponse, error) {
	if err := requireStudent(sess); err != nil {
		return dto.StudentProfileResponse{}, err
	}
	req.FullName = s.clean(req.FullName)
	req.PhoneNumber = s.clean(req.PhoneNumber)
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentProfileResponse{}, err
	}

	student, err := s.students.GetByUserID(ctx, sess.UserID)
	if err != nil {
		return dto.StudentProfileResponse{}, storeErr("load student", err)
	}

	fields := map[string]interface{}{}
	if req.FullName != nil {
		fields["full_name"] = *req.FullName
		student.FullName = *req.FullName
	}
	if req.PhoneNumber != nil {
		fields["phone_number"] = *req.PhoneNumber
		student.PhoneNumber = *req.PhoneNumber
	}
	if len(fields) == 0 {
		return dto.NewStudentProfileResponse(student), nil
	}

	if err := s.students.UpdateFields(ctx, student.ID, fields); err != nil {
		return dto.StudentProfileResponse{}, storeErr("update student", err)
	}

	s.announceStudent(ctx, student.UserID, student.HostelName)
	return dto.NewStudentProfileResponse(student), nil
}

func (s *profileService) GetAdmin(ctx context.Context, sess session.Session) (dto.AdminProfileResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.AdminProfileResponse{}, err
	}
	profile, err := s.admins.GetByUserID(ctx, sess.UserID)
	if err != nil {
		return dto.AdminProfileResponse{}, storeErr("load admin profile", err)
	}
	return dto.NewAdminProfileResponse(profile), nil
}

func (s *profileService) UpdateAdmin(ctx context.Context, sess session.Session, req dto.AdminProfileUpdateRequest) (dto.AdminProfileResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.AdminProfileResponse{}, err
	}
	req.FullName = s.clean(req.FullName)
	req.PhoneNumber = s.clean(req.PhoneNumber)
	req.Address = s.clean(req.Address)
	if err := s.validator.Struct(req); err != nil {
		return dto.AdminProfileResponse{}, err
	}

	profile, err := s.admins.GetByUserID(ctx, sess.UserID)
	if err != nil {
		return dto.AdminProfileResponse{}, storeErr("load admin profile", err)
	}

	fields := map[string]interface{}{}
	if req.FullName != nil {
		fields["full_name"] = *req.FullName
		profile.FullName = *req.FullName
	}
	if req.PhoneNumber != nil {
		fields["phone_number"] = *req.PhoneNumber
		profile.PhoneNumber = *req.PhoneNumber
	}
	if req.Address != nil {
		fields["address"] = *req.Address
		profile.Address = *req.Address
	}

	if err := s.admins.UpdateFields(ctx, profile.ID, fields); err != nil {
		return dto.AdminProfileResponse{}, storeErr("update admin profile", err)
	}
	return dto.NewAdminProfileResponse(profile), nil
}

// UploadAvatar sniffs the payload, stores it and saves the resulting URL on the profile.
func (s *profileService) UploadAvatar(ctx context.Context, sess session.Session, file *multipart.FileHeader) (dto.AvatarResponse, error) {
	if err := requireStudent(sess); err != nil {
		return dto.AvatarResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "profile.upload_avatar", trace.WithAttributes(attribute.Int64("upload.max_bytes", s.maxSize)))
	defer span.End()

	fail := func(reason string, err error) (dto.AvatarResponse, error) {
		observability.AvatarUploads().WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return dto.AvatarResponse{}, err
	}

	if file == nil {
		return fail("invalid", validationErr("file is required"))
	}
	if file.Size > s.maxSize {
		return fail("size", ErrUploadTooLarge)
	}
	if s.storage == nil {
		return fail("storage", &StoreError{Op: "upload avatar", Err: errors.New("avatar storage not configured")})
	}

	student, err := s.students.GetByUserID(ctx, sess.UserID)
	if err != nil {
		return fail("invalid", storeErr("load student", err))
	}

	handle, err := file.Open()
	if err != nil {
		return fail("invalid", validationErr("unreadable file"))
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return fail("invalid", validationErr("unreadable file"))
	}
	if int64(buf.Len()) > s.maxSize {
		return fail("size", ErrUploadTooLarge)
	}

	detected := mimetype.Detect(buf.Bytes()).String()
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = detected[:idx]
	}
	span.SetAttributes(attribute.String("upload.detected_mime", detected))
	if _, ok := allowedAvatarTypes[detected]; !ok {
		return fail("type", ErrUploadTypeNotAllowed)
	}

	url, err := s.storage.Upload(ctx, "avatar-"+student.UserID, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fail("storage", &StoreError{Op: "upload avatar", Err: err})
	}

	if err := s.students.UpdateFields(ctx, student.ID, map[string]interface{}{"avatar_url": url}); err != nil {
		return fail("storage", storeErr("save avatar url", err))
	}

	observability.AvatarUploads().WithLabelValues("stored").Inc()
	span.SetStatus(codes.Ok, "stored")
	s.announceStudent(ctx, student.UserID, student.HostelName)
	return dto.AvatarResponse{URL: url}, nil
}

func (s *profileService) clean(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := strings.TrimSpace(s.sanitizer.Sanitize(*value))
	return &cleaned
}

func (s *profileService) announceStudent(ctx context.Context, userID, hostel string) {
	announce(ctx, s.feed, s.logger, realtime.Event{
		Table:      realtime.TableStudents,
		Operation:  realtime.OpUpdate,
		StudentID:  userID,
		HostelName: hostel,
	})
}
