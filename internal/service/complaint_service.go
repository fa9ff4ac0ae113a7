package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/models"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/session"
)

// ComplaintService manages the complaint lifecycle: pending and resolved.
type ComplaintService interface {
	Submit(ctx context.Context, sess session.Session, req dto.ComplaintCreateRequest) (dto.ComplaintResponse, error)
	List(ctx context.Context, sess session.Session, req dto.ComplaintListRequest) (dto.ComplaintListResponse, error)
	ListMine(ctx context.Context, sess session.Session, req dto.ComplaintListRequest) (dto.ComplaintListResponse, error)
	Resolve(ctx context.Context, sess session.Session, id uint) (dto.ComplaintResponse, error)
	Reopen(ctx context.Context, sess session.Session, id uint) (dto.ComplaintResponse, error)
}

type complaintService struct {
	complaints repository.ComplaintRepository
	students   repository.StudentRepository
	hostels    hostelResolver
	activity   ActivityRecorder
	feed       realtime.Publisher
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	now        func() time.Time
}

// NewComplaintService constructs the complaint service.
func NewComplaintService(complaints repository.ComplaintRepository, students repository.StudentRepository, admins repository.AdminProfileRepository, activity ActivityRecorder, feed realtime.Publisher, validate *validator.Validate, logger zerolog.Logger) ComplaintService {
	return &complaintService{
		complaints: complaints,
		students:   students,
		hostels:    hostelResolver{admins: admins},
		activity:   activity,
		feed:       feed,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "complaint_service").Logger(),
		now:        time.Now,
	}
}

func (s *complaintService) Submit(ctx context.Context, sess session.Session, req dto.ComplaintCreateRequest) (dto.ComplaintResponse, error) {
	if err := requireStudent(sess); err != nil {
		return dto.ComplaintResponse{}, err
	}

	req.Description = strings.TrimSpace(s.sanitizer.Sanitize(req.Description))
	if err := s.validator.Struct(req); err != nil {
		return dto.ComplaintResponse{}, err
	}

	student, err := s.students.GetByUserID(ctx, sess.UserID)
	if err != nil {
		return dto.ComplaintResponse{}, storeErr("load student", err)
	}

	complaint := models.Complaint{
		StudentID:   student.UserID,
		Description: req.Description,
		Status:      models.ComplaintStatusPending,
	}
	if err := s.complaints.Create(ctx, &complaint); err != nil {
		return dto.ComplaintResponse{}, storeErr("create complaint", err)
	}

	s.changed(ctx, complaint, student.HostelName, realtime.OpInsert)
	return dto.NewComplaintResponse(complaint), nil
}

func (s *complaintService) List(ctx context.Context, sess session.Session, req dto.ComplaintListRequest) (dto.ComplaintListResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.ComplaintListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ComplaintListResponse{}, err
	}
	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return dto.ComplaintListResponse{}, err
	}

	return s.list(ctx, repository.ComplaintFilter{
		HostelName: hostel,
		Status:     req.Status,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
}

func (s *complaintService) ListMine(ctx context.Context, sess session.Session, req dto.ComplaintListRequest) (dto.ComplaintListResponse, error) {
	if err := requireStudent(sess); err != nil {
		return dto.ComplaintListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ComplaintListResponse{}, err
	}

	return s.list(ctx, repository.ComplaintFilter{
		StudentID: sess.UserID,
		Status:    req.Status,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
}

func (s *complaintService) list(ctx context.Context, filter repository.ComplaintFilter) (dto.ComplaintListResponse, error) {
	items, total, err := s.complaints.List(ctx, filter)
	if err != nil {
		return dto.ComplaintListResponse{}, storeErr("list complaints", err)
	}
	return dto.ComplaintListResponse{
		Items:      dto.NewComplaintResponseSlice(items),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

// Resolve marks the complaint resolved. Resolving a resolved complaint changes nothing.
func (s *complaintService) Resolve(ctx context.Context, sess session.Session, id uint) (dto.ComplaintResponse, error) {
	return s.transition(ctx, sess, id, models.ComplaintStatusResolved)
}

// Reopen moves the complaint back to pending and clears the resolution time.
func (s *complaintService) Reopen(ctx context.Context, sess session.Session, id uint) (dto.ComplaintResponse, error) {
	return s.transition(ctx, sess, id, models.ComplaintStatusPending)
}

func (s *complaintService) transition(ctx context.Context, sess session.Session, id uint, target string) (dto.ComplaintResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.ComplaintResponse{}, err
	}
	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return dto.ComplaintResponse{}, err
	}

	complaint, err := s.complaints.FindByID(ctx, id)
	if err != nil {
		return dto.ComplaintResponse{}, storeErr("load complaint", err)
	}
	if _, err := s.students.GetInHostel(ctx, hostel, complaint.StudentID); err != nil {
		return dto.ComplaintResponse{}, storeErr("load complaint owner", err)
	}

	if complaint.Status == target {
		return dto.NewComplaintResponse(complaint), nil
	}

	complaint.Status = target
	if target == models.ComplaintStatusResolved {
		resolvedAt := s.now().UTC()
		complaint.ResolvedAt = &resolvedAt
	} else {
		complaint.ResolvedAt = nil
	}

	if err := s.complaints.Save(ctx, &complaint); err != nil {
		return dto.ComplaintResponse{}, storeErr("update complaint", err)
	}

	if s.activity != nil {
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:    sess.UserID,
			ActorRole:  string(sess.Role),
			Action:     "complaint." + target,
			EntityType: "complaint",
			EntityID:   strconv.FormatUint(uint64(complaint.ID), 10),
			Metadata:   map[string]interface{}{"student_id": complaint.StudentID},
		}); err != nil {
			requestLogger(ctx, s.logger).Warn().Err(err).Msg("failed to record complaint activity")
		}
	}

	s.changed(ctx, complaint, hostel, realtime.OpUpdate)
	return dto.NewComplaintResponse(complaint), nil
}

func (s *complaintService) changed(ctx context.Context, complaint models.Complaint, hostel string, op realtime.Operation) {
	announce(ctx, s.feed, s.logger, realtime.Event{
		Table:      realtime.TableComplaints,
		Operation:  op,
		RowID:      strconv.FormatUint(uint64(complaint.ID), 10),
		StudentID:  complaint.StudentID,
		HostelName: hostel,
	})
}
