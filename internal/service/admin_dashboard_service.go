package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/models"
	"github.com/noah-isme/roommate-api/internal/observability"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/session"
)

// AdminDashboardService aggregates hostel-wide figures for wardens.
type AdminDashboardService interface {
	Summary(ctx context.Context, sess session.Session) (dto.AdminDashboardResponse, error)
	Roster(ctx context.Context, sess session.Session, req dto.AdminStudentListRequest) ([]dto.RosterEntry, error)
	StudentDetail(ctx context.Context, sess session.Session, studentID string) (dto.AdminStudentDetailResponse, error)
}

type adminDashboardService struct {
	students     repository.StudentRepository
	attendance   repository.AttendanceRepository
	complaints   repository.ComplaintRepository
	transactions repository.TransactionRepository
	activity     ActivityService
	hostels      hostelResolver
	threshold    int
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewAdminDashboardService constructs the warden dashboard aggregator.
func NewAdminDashboardService(students repository.StudentRepository, attendance repository.AttendanceRepository, complaints repository.ComplaintRepository, transactions repository.TransactionRepository, admins repository.AdminProfileRepository, activity ActivityService, threshold int, logger zerolog.Logger) AdminDashboardService {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultAttendanceThreshold
	}
	return &adminDashboardService{
		students:     students,
		attendance:   attendance,
		complaints:   complaints,
		transactions: transactions,
		activity:     activity,
		hostels:      hostelResolver{admins: admins},
		threshold:    threshold,
		logger:       logger.With().Str("component", "admin_dashboard_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/roommate-api/internal/service/dashboard"),
	}
}

// degradedSet collects the names of statistics that fell back to defaults.
type degradedSet struct {
	mu    sync.Mutex
	names []string
}

func (d *degradedSet) add(logger zerolog.Logger, name string, err error) {
	logger.Warn().Err(err).Str("stat", name).Msg("dashboard statistic degraded")
	observability.DashboardDegraded().WithLabelValues(name).Inc()
	d.mu.Lock()
	d.names = append(d.names, name)
	d.mu.Unlock()
}

func (d *degradedSet) list() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.names...)
}

// Summary counts students, pending complaints and pending payments concurrently. A failing
// count is reported as zero and named in Degraded.
func (s *adminDashboardService) Summary(ctx context.Context, sess session.Session) (dto.AdminDashboardResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.AdminDashboardResponse{}, err
	}
	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return dto.AdminDashboardResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "dashboard.admin_summary", trace.WithAttributes(attribute.String("hostel", hostel)))
	defer span.End()

	var (
		stats    dto.AdminDashboardStats
		degraded degradedSet
		group    errgroup.Group
	)

	group.Go(func() error {
		total, err := s.students.CountByHostel(spanCtx, hostel)
		if err != nil {
			degraded.add(s.logger, "total_students", err)
			return nil
		}
		stats.TotalStudents = total
		return nil
	})
	group.Go(func() error {
		total, err := s.complaints.Count(spanCtx, repository.ComplaintFilter{HostelName: hostel, Status: models.ComplaintStatusPending})
		if err != nil {
			degraded.add(s.logger, "pending_complaints", err)
			return nil
		}
		stats.PendingComplaints = total
		return nil
	})
	group.Go(func() error {
		total, err := s.transactions.Count(spanCtx, repository.TransactionFilter{HostelName: hostel, Status: models.TransactionStatusPending})
		if err != nil {
			degraded.add(s.logger, "pending_payments", err)
			return nil
		}
		stats.PendingPayments = total
		return nil
	})
	_ = group.Wait()

	return dto.AdminDashboardResponse{
		HostelName: hostel,
		Stats:      stats,
		Degraded:   degraded.list(),
	}, nil
}

func (s *adminDashboardService) Roster(ctx context.Context, sess session.Session, req dto.AdminStudentListRequest) ([]dto.RosterEntry, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return nil, err
	}

	spanCtx, span := s.tracer.Start(ctx, "dashboard.roster", trace.WithAttributes(attribute.String("hostel", hostel)))
	defer span.End()

	students, err := s.students.List(spanCtx, repository.StudentFilter{
		HostelName: hostel,
		Search:     req.Search,
		RoomNumber: req.RoomNumber,
	})
	if err != nil {
		return nil, storeErr("list students", err)
	}

	ids := make([]string, 0, len(students))
	for _, student := range students {
		ids = append(ids, student.UserID)
	}

	var (
		records           []models.Attendance
		pendingComplaints map[string]int64
		pendingPayments   map[string]int64
		degraded          degradedSet
		group             errgroup.Group
	)
	group.Go(func() error {
		var err error
		if records, err = s.attendance.ListByStudents(spanCtx, ids); err != nil {
			degraded.add(s.logger, "attendance", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		if pendingComplaints, err = s.complaints.CountPendingByStudent(spanCtx, ids); err != nil {
			degraded.add(s.logger, "pending_complaints", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		if pendingPayments, err = s.transactions.CountPendingByStudent(spanCtx, ids); err != nil {
			degraded.add(s.logger, "pending_payments", err)
		}
		return nil
	})
	_ = group.Wait()

	byStudent := make(map[string][]models.Attendance, len(students))
	for _, record := range records {
		byStudent[record.StudentID] = append(byStudent[record.StudentID], record)
	}

	roster := make([]dto.RosterEntry, 0, len(students))
	for _, student := range students {
		pct := AggregatePercentage(byStudent[student.UserID])
		roster = append(roster, dto.RosterEntry{
			StudentID:            student.UserID,
			FullName:             student.FullName,
			RoomNumber:           student.RoomNumber,
			AttendancePercentage: pct,
			NeedsImprovement:     NeedsImprovement(pct, s.threshold),
			PendingComplaints:    pendingComplaints[student.UserID],
			PendingPayments:      pendingPayments[student.UserID],
		})
	}
	return roster, nil
}

func (s *adminDashboardService) StudentDetail(ctx context.Context, sess session.Session, studentID string) (dto.AdminStudentDetailResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.AdminStudentDetailResponse{}, err
	}
	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return dto.AdminStudentDetailResponse{}, err
	}

	student, err := s.students.GetInHostel(ctx, hostel, studentID)
	if err != nil {
		return dto.AdminStudentDetailResponse{}, storeErr("load student", err)
	}

	var (
		records    []models.Attendance
		complaints []models.Complaint
		activity   []dto.ActivityResponse
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		records, err = s.attendance.ListByStudent(groupCtx, student.UserID)
		return storeErr("list attendance", err)
	})
	group.Go(func() error {
		var err error
		complaints, _, err = s.complaints.List(groupCtx, repository.ComplaintFilter{StudentID: student.UserID, Status: models.ComplaintStatusPending})
		return storeErr("list complaints", err)
	})
	if s.activity != nil {
		group.Go(func() error {
			entries, _, err := s.activity.List(groupCtx, repository.ActivityLogFilter{EntityType: "student", EntityID: student.UserID, PageSize: 10})
			if err != nil {
				s.logger.Warn().Err(err).Msg("failed to load student activity")
				return nil
			}
			activity = entries
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return dto.AdminStudentDetailResponse{}, err
	}

	if activity == nil {
		activity = []dto.ActivityResponse{}
	}
	return dto.AdminStudentDetailResponse{
		Profile:           dto.NewStudentProfileResponse(student),
		Attendance:        summarizeAttendance(student.UserID, records, s.threshold),
		PendingComplaints: dto.NewComplaintResponseSlice(complaints),
		RecentActivity:    activity,
	}, nil
}
