package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/roommate-api/internal/dto"
	"github.com/noah-isme/roommate-api/internal/models"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/session"
)

// StudentDashboardService produces the cached student landing payload.
type StudentDashboardService interface {
	Get(ctx context.Context, sess session.Session) (dto.StudentDashboardResponse, error)
	Invalidate(ctx context.Context, studentID string) error
	Start(ctx context.Context)
}

type studentDashboardService struct {
	students      repository.StudentRepository
	attendance    repository.AttendanceRepository
	complaints    repository.ComplaintRepository
	transactions  repository.TransactionRepository
	notifications repository.NotificationRepository
	feed          realtime.Feed
	cache         *redis.Client
	cacheTTL      time.Duration
	threshold     int
	logger        zerolog.Logger
}

// NewStudentDashboardService builds the dashboard aggregator. cache and feed may be nil.
func NewStudentDashboardService(students repository.StudentRepository, attendance repository.AttendanceRepository, complaints repository.ComplaintRepository, transactions repository.TransactionRepository, notifications repository.NotificationRepository, feed realtime.Feed, cache *redis.Client, ttl time.Duration, threshold int, logger zerolog.Logger) StudentDashboardService {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultAttendanceThreshold
	}
	return &studentDashboardService{
		students:      students,
		attendance:    attendance,
		complaints:    complaints,
		transactions:  transactions,
		notifications: notifications,
		feed:          feed,
		cache:         cache,
		cacheTTL:      ttl,
		threshold:     threshold,
		logger:        logger.With().Str("component", "student_dashboard_service").Logger(),
	}
}

func dashboardCacheKey(studentID string) string {
	return fmt.Sprintf("dashboard:student:%s", studentID)
}

func (s *studentDashboardService) Get(ctx context.Context, sess session.Session) (dto.StudentDashboardResponse, error) {
	if err := requireStudent(sess); err != nil {
		return dto.StudentDashboardResponse{}, err
	}
	cacheKey := dashboardCacheKey(sess.UserID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("student_id", sess.UserID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	response, err := s.build(ctx, sess.UserID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

// build loads profile, stats and reminders concurrently. Only a missing profile fails the
// call; the remaining figures degrade to zero values.
func (s *studentDashboardService) build(ctx context.Context, studentID string) (dto.StudentDashboardResponse, error) {
	var (
		profile   models.StudentProfile
		stats     dto.StudentDashboardStats
		reminders = []dto.TransactionResponse{}
		unread    int64
		degraded  degradedSet
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		profile, err = s.students.GetByUserID(groupCtx, studentID)
		return storeErr("load student", err)
	})
	group.Go(func() error {
		records, err := s.attendance.ListByStudent(groupCtx, studentID)
		if err != nil {
			degraded.add(s.logger, "attendance", err)
			return nil
		}
		stats.AttendancePercentage = AggregatePercentage(records)
		stats.NeedsImprovement = NeedsImprovement(stats.AttendancePercentage, s.threshold)
		return nil
	})
	group.Go(func() error {
		active, err := s.complaints.Count(groupCtx, repository.ComplaintFilter{StudentID: studentID, Status: models.ComplaintStatusPending})
		if err != nil {
			degraded.add(s.logger, "active_complaints", err)
			return nil
		}
		resolved, err := s.complaints.Count(groupCtx, repository.ComplaintFilter{StudentID: studentID, Status: models.ComplaintStatusResolved})
		if err != nil {
			degraded.add(s.logger, "resolved_complaints", err)
			return nil
		}
		stats.ActiveComplaints = active
		stats.ResolvedComplaints = resolved
		return nil
	})
	group.Go(func() error {
		items, err := pendingReminders(groupCtx, s.transactions, studentID)
		if err != nil {
			degraded.add(s.logger, "pending_reminders", err)
			return nil
		}
		reminders = items
		return nil
	})
	if s.notifications != nil {
		group.Go(func() error {
			total, err := s.notifications.CountUnread(groupCtx, studentID)
			if err != nil {
				degraded.add(s.logger, "unread_notifications", err)
				return nil
			}
			unread = total
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	return dto.StudentDashboardResponse{
		Profile:             dto.NewStudentProfileResponse(profile),
		Stats:               stats,
		PendingReminders:    reminders,
		UnreadNotifications: unread,
	}, nil
}

func (s *studentDashboardService) Invalidate(ctx context.Context, studentID string) error {
	if s.cache == nil || studentID == "" {
		return nil
	}
	return s.cache.Del(ctx, dashboardCacheKey(studentID)).Err()
}

// Start evicts cached dashboards when the change feed reports a row touching that student.
func (s *studentDashboardService) Start(ctx context.Context) {
	if s.feed == nil || s.cache == nil {
		return
	}

	events, cancel := s.feed.Subscribe(realtime.Filter{
		Tables: []string{
			realtime.TableStudents,
			realtime.TableAttendance,
			realtime.TableComplaints,
			realtime.TableTransactions,
			realtime.TableNotifications,
		},
	})

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if event.StudentID == "" {
					continue
				}
				if err := s.Invalidate(ctx, event.StudentID); err != nil {
					s.logger.Warn().Err(err).Str("student_id", event.StudentID).Msg("failed to evict dashboard cache")
				}
			}
		}
	}()
}
