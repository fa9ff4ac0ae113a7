package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
)

func TestNotificationServiceNotifyAndMarkRead(t *testing.T) {
	db := newTestDB(t)
	feed := &recordingFeed{}
	svc := NewNotificationService(repository.NewNotificationRepository(db), feed, zerolog.Nop())
	ctx := context.Background()

	created, err := svc.Notify(ctx, "s1", "<b>Your room has been changed to 101</b>")
	require.NoError(t, err)
	require.Equal(t, "Your room has been changed to 101", created.Message)
	require.False(t, created.IsRead)
	require.Equal(t, []string{realtime.TableNotifications}, feed.tables())
	require.Equal(t, "s1", feed.events[0].StudentID)

	_, err = svc.Notify(ctx, "s2", "Laundry closes early")
	require.NoError(t, err)

	mine, err := svc.List(ctx, studentSession("s1"), 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = svc.MarkRead(ctx, studentSession("s2"), created.ID)
	require.ErrorIs(t, err, ErrNotFound, "cannot read another user's notification")

	read, err := svc.MarkRead(ctx, studentSession("s1"), created.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)

	again, err := svc.MarkRead(ctx, studentSession("s1"), created.ID)
	require.NoError(t, err)
	require.True(t, again.IsRead)
}

func TestNotificationServiceRejectsEmptyInput(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil, zerolog.Nop())

	_, err := svc.Notify(context.Background(), " ", "hello")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Notify(context.Background(), "s1", "<script></script>")
	require.Error(t, err)

	_, err = svc.List(context.Background(), studentSession(""), 10, 0)
	require.Error(t, err)
}
