package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/models"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/session"
)

// DefaultAttendanceThreshold is the percentage below which attendance needs improvement.
const DefaultAttendanceThreshold = 75

// AggregatePercentage returns round(100 * present / total), or 0 for no records.
// Halves round up.
func AggregatePercentage(records []models.Attendance) int {
	present := 0
	for _, record := range records {
		if record.IsPresent() {
			present++
		}
	}
	return percentage(present, len(records))
}

// MonthlySummary buckets records by calendar month, newest month first.
func MonthlySummary(records []models.Attendance) []dto.MonthlyAttendance {
	type bucket struct {
		start   time.Time
		present int
		total   int
	}

	buckets := map[time.Time]*bucket{}
	for _, record := range records {
		date := record.Date.UTC()
		start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
		b, ok := buckets[start]
		if !ok {
			b = &bucket{start: start}
			buckets[start] = b
		}
		b.total++
		if record.IsPresent() {
			b.present++
		}
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].start.After(ordered[j].start)
	})

	summary := make([]dto.MonthlyAttendance, 0, len(ordered))
	for _, b := range ordered {
		summary = append(summary, dto.MonthlyAttendance{
			Month:      b.start.Format("January 2006"),
			Present:    b.present,
			Total:      b.total,
			Percentage: percentage(b.present, b.total),
		})
	}
	return summary
}

// NeedsImprovement reports whether pct falls strictly below threshold.
func NeedsImprovement(pct, threshold int) bool {
	return pct < threshold
}

func percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(100*float64(part)/float64(total) + 0.5))
}

// AttendanceService records daily marks and summarises them per student.
type AttendanceService interface {
	Mark(ctx context.Context, sess session.Session, req dto.AttendanceMarkRequest) (dto.AttendanceMarkResponse, error)
	StudentSummary(ctx context.Context, sess session.Session, studentID string) (dto.AttendanceSummaryResponse, error)
}

type attendanceService struct {
	records   repository.AttendanceRepository
	students  repository.StudentRepository
	hostels   hostelResolver
	activity  ActivityRecorder
	feed      realtime.Publisher
	validator *validator.Validate
	threshold int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(records repository.AttendanceRepository, students repository.StudentRepository, admins repository.AdminProfileRepository, activity ActivityRecorder, feed realtime.Publisher, validate *validator.Validate, threshold int, logger zerolog.Logger) AttendanceService {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultAttendanceThreshold
	}
	return &attendanceService{
		records:   records,
		students:  students,
		hostels:   hostelResolver{admins: admins},
		activity:  activity,
		feed:      feed,
		validator: validate,
		threshold: threshold,
		logger:    logger.With().Str("component", "attendance_service").Logger(),
		now:       time.Now,
	}
}

func (s *attendanceService) Mark(ctx context.Context, sess session.Session, req dto.AttendanceMarkRequest) (dto.AttendanceMarkResponse, error) {
	if err := requireAdmin(sess); err != nil {
		return dto.AttendanceMarkResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.AttendanceMarkResponse{}, err
	}

	hostel, err := s.hostels.hostelFor(ctx, sess)
	if err != nil {
		return dto.AttendanceMarkResponse{}, err
	}

	day := models.CalendarDate(s.now())
	if raw := strings.TrimSpace(req.Date); raw != "" {
		parsed, err := time.Parse(models.AttendanceDateLayout, raw)
		if err != nil {
			return dto.AttendanceMarkResponse{}, validationErr("invalid date %q", raw)
		}
		day = models.CalendarDate(parsed)
	}

	roster, err := s.students.List(ctx, repository.StudentFilter{HostelName: hostel})
	if err != nil {
		return dto.AttendanceMarkResponse{}, storeErr("list students", err)
	}
	known := make(map[string]struct{}, len(roster))
	for _, student := range roster {
		known[student.UserID] = struct{}{}
	}

	// Later entries for the same student win.
	marks := make(map[string]string, len(req.Entries))
	order := make([]string, 0, len(req.Entries))
	for _, entry := range req.Entries {
		studentID := strings.TrimSpace(entry.StudentID)
		if _, ok := known[studentID]; !ok {
			return dto.AttendanceMarkResponse{}, fmt.Errorf("%w: student %s", ErrNotFound, studentID)
		}
		if _, seen := marks[studentID]; !seen {
			order = append(order, studentID)
		}
		marks[studentID] = entry.Status
	}

	response := dto.AttendanceMarkResponse{Date: day.Format(models.AttendanceDateLayout)}
	records := make([]models.Attendance, 0, len(order))
	for _, studentID := range order {
		status := marks[studentID]
		records = append(records, models.Attendance{
			StudentID: studentID,
			Date:      day,
			Status:    status,
			MarkedBy:  sess.UserID,
		})
		if status == models.AttendancePresent {
			response.Present++
		} else {
			response.Absent++
		}
	}
	response.Marked = len(records)

	if err := s.records.Upsert(ctx, records); err != nil {
		return dto.AttendanceMarkResponse{}, storeErr("upsert attendance", err)
	}

	if s.activity != nil {
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:    sess.UserID,
			ActorRole:  string(sess.Role),
			Action:     "attendance.marked",
			EntityType: "attendance",
			EntityID:   response.Date,
			Metadata: map[string]interface{}{
				"present": response.Present,
				"absent":  response.Absent,
			},
		}); err != nil {
			requestLogger(ctx, s.logger).Warn().Err(err).Msg("failed to record attendance activity")
		}
	}

	for _, studentID := range order {
		announce(ctx, s.feed, s.logger, realtime.Event{
			Table:      realtime.TableAttendance,
			Operation:  realtime.OpUpdate,
			StudentID:  studentID,
			HostelName: hostel,
		})
	}

	return response, nil
}

func (s *attendanceService) StudentSummary(ctx context.Context, sess session.Session, studentID string) (dto.AttendanceSummaryResponse, error) {
	if !sess.Valid() {
		return dto.AttendanceSummaryResponse{}, session.ErrNoSession
	}

	switch {
	case sess.IsStudent():
		studentID = sess.UserID
	case sess.IsAdmin():
		hostel, err := s.hostels.hostelFor(ctx, sess)
		if err != nil {
			return dto.AttendanceSummaryResponse{}, err
		}
		if _, err := s.students.GetInHostel(ctx, hostel, studentID); err != nil {
			return dto.AttendanceSummaryResponse{}, storeErr("load student", err)
		}
	default:
		return dto.AttendanceSummaryResponse{}, ErrForbidden
	}

	records, err := s.records.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.AttendanceSummaryResponse{}, storeErr("list attendance", err)
	}

	return summarizeAttendance(studentID, records, s.threshold), nil
}

func summarizeAttendance(studentID string, records []models.Attendance, threshold int) dto.AttendanceSummaryResponse {
	pct := AggregatePercentage(records)
	responses := make([]dto.AttendanceRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, dto.NewAttendanceRecordResponse(record))
	}
	return dto.AttendanceSummaryResponse{
		StudentID:        studentID,
		Percentage:       pct,
		Threshold:        threshold,
		NeedsImprovement: NeedsImprovement(pct, threshold),
		Monthly:          MonthlySummary(records),
		Records:          responses,
	}
}
