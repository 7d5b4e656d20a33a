package notification

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterisk/pkg/apperr"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	store.PutStudy(1, MemStudy{
		Site:     "Flourish Atlanta",
		Sponsor:  "Meridian",
		Protocol: "MER-204",
		Status:   "Active",
		PIName:   "Dr. Sarah Chen",
		PIEmail:  "sarah.chen@example.com",
		SDName:   "Dr. James Okoro",
		SDEmail:  "james.okoro@example.com",
	})
	store.PutAssessment(1, MemAssessment{ID: 10, Status: "In Progress", MonitoringSchedule: "Monthly"})
	return NewService(store, nil, discardLogger), store
}

func Test_Create_RequiresFields(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), Notification{AssessmentID: 10, StudyID: 1})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.Equal(t, "Missing required notification fields", apperr.MessageOf(err))
}

func Test_NotifySubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("PI submission notifies the SD", func(t *testing.T) {
		svc, store := newTestService(t)
		require.NoError(t, svc.NotifySubmission(ctx, 10, 1, "Dr. Sarah Chen", "sarah.chen@example.com", "PI"))

		created := store.Notifications()
		require.Len(t, created, 1)
		assert.Equal(t, TargetSD, created[0].TargetUserType)
		assert.Equal(t, ActionInitialSave, created[0].Action)
		assert.Equal(t, "Assessment saved by Principal Investigator", created[0].Reason)
		assert.Equal(t, "Assessment data saved successfully by PI", *created[0].Comments)
	})

	t.Run("SD submission notifies the PI", func(t *testing.T) {
		svc, store := newTestService(t)
		require.NoError(t, svc.NotifySubmission(ctx, 10, 1, "Dr. James Okoro", "james.okoro@example.com", "SD"))

		created := store.Notifications()
		require.Len(t, created, 1)
		assert.Equal(t, TargetPI, created[0].TargetUserType)
		assert.Equal(t, ActionSDCreated, created[0].Action)
		assert.Equal(t, "Assessment created by Study Director", created[0].Reason)
		assert.Equal(t, "Study Director has created an assessment that requires your review", *created[0].Comments)
	})

	t.Run("unknown submitter falls back to the SD", func(t *testing.T) {
		svc, store := newTestService(t)
		require.NoError(t, svc.NotifySubmission(ctx, 10, 1, "Somebody", "somebody@example.com", "CRA"))

		created := store.Notifications()
		require.Len(t, created, 1)
		assert.Equal(t, TargetSD, created[0].TargetUserType)
		assert.Equal(t, "Assessment saved", created[0].Reason)
	})
}

func Test_NotifyDecision(t *testing.T) {
	svc, store := newTestService(t)

	err := svc.NotifyDecision(context.Background(), 10, 1,
		"Dr. James Okoro", "james.okoro@example.com",
		"Approved", "Assessment approved", "Assessment has been reviewed and approved by Study Director")
	require.NoError(t, err)

	created := store.Notifications()
	require.Len(t, created, 1)
	assert.Equal(t, TargetPI, created[0].TargetUserType)
	assert.Equal(t, "Approved", created[0].Action)
}

func Test_List(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	require.NoError(t, svc.NotifySubmission(ctx, 10, 1, "Dr. Sarah Chen", "sarah.chen@example.com", "PI"))
	require.NoError(t, svc.NotifySubmission(ctx, 10, 1, "Dr. Sarah Chen", "sarah.chen@example.com", "PI"))
	require.NoError(t, svc.NotifyDecision(ctx, 10, 1,
		"Dr. James Okoro", "james.okoro@example.com",
		"Rejected", "Assessment rejected", "Assessment has been reviewed and rejected by Study Director"))

	t.Run("SD feed with page-scoped unread count", func(t *testing.T) {
		list, err := svc.List(ctx, "sd", "james.okoro@example.com")
		require.NoError(t, err)
		require.Len(t, list.Notifications, 2)
		assert.Equal(t, 2, list.UnreadCount)

		item := list.Notifications[0]
		assert.Equal(t, ActionInitialSave, item.Action)
		require.NotNil(t, item.StudyInfo.Protocol)
		assert.Equal(t, "MER-204", *item.StudyInfo.Protocol)
		require.NotNil(t, item.AssessmentID)
		assert.Equal(t, int64(10), *item.AssessmentID)
		require.NotNil(t, item.PIEmail)
		assert.Equal(t, "sarah.chen@example.com", *item.PIEmail)
	})

	t.Run("anything other than SD gets the PI feed", func(t *testing.T) {
		list, err := svc.List(ctx, "whatever", "sarah.chen@example.com")
		require.NoError(t, err)
		require.Len(t, list.Notifications, 1)
		assert.Equal(t, "Rejected", list.Notifications[0].Action)
	})

	t.Run("inactive studies are filtered out", func(t *testing.T) {
		store.PutStudy(1, MemStudy{Status: "Inactive"})
		defer store.PutStudy(1, MemStudy{Status: "Active"})

		list, err := svc.List(ctx, "SD", "james.okoro@example.com")
		require.NoError(t, err)
		assert.Empty(t, list.Notifications)
	})
}

func Test_MarkRead(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	id, err := store.Insert(ctx, Notification{
		AssessmentID: 10, StudyID: 1, TargetUserType: TargetSD,
		Action: ActionInitialSave, ActionByName: "n", ActionByEmail: "e", Reason: "r",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, id))
	assert.True(t, store.Notifications()[0].Read)

	err = svc.MarkRead(ctx, 999)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func Test_MarkAllRead_And_UnreadCount(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	for i := 0; i < 3; i++ {
		_, err := store.Insert(ctx, Notification{
			AssessmentID: 10, StudyID: 1, TargetUserType: TargetSD,
			Action: ActionInitialSave, ActionByName: "n", ActionByEmail: "e", Reason: "r",
			ActionDate: time.Now().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	_, err := store.Insert(ctx, Notification{
		AssessmentID: 10, StudyID: 1, TargetUserType: TargetPI,
		Action: "Approved", ActionByName: "n", ActionByEmail: "e", Reason: "r",
	})
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, "sd", "james.okoro@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, count.UnreadCount)
	assert.Equal(t, "SD", count.UserType)

	updated, err := svc.MarkAllRead(ctx, "sd")
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	count, err = svc.UnreadCount(ctx, "SD", "james.okoro@example.com")
	require.NoError(t, err)
	assert.Zero(t, count.UnreadCount)

	count, err = svc.UnreadCount(ctx, "PI", "sarah.chen@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count.UnreadCount)
}
