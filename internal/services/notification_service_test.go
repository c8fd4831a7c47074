package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/texttalk/internal/models"
)

func newTestNotifications() (*NotificationState, *manualScheduler) {
	s := &manualScheduler{}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	n := NewNotificationState(
		WithScheduler(s.schedule),
		WithClock(func() time.Time { return now }),
	)
	return n, s
}

func TestNotificationState_ShowSetsCurrent(t *testing.T) {
	t.Parallel()
	n, s := newTestNotifications()

	got := n.Error("Please enter text.")

	assert.Equal(t, models.NotificationError, got.Kind)
	assert.Equal(t, "Please enter text.", got.Message)
	assert.Equal(t, NotificationTTL, got.ExpiresAt.Sub(got.ShownAt))
	require.Equal(t, 1, s.count())
	assert.Equal(t, NotificationTTL, s.timer(0).d)

	cur := n.Current()
	require.NotNil(t, cur)
	assert.Equal(t, got.Seq, cur.Seq)
}

func TestNotificationState_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	n, s := newTestNotifications()

	n.Success("Audio generated successfully!")
	s.timer(0).f()

	assert.Nil(t, n.Current())
}

func TestNotificationState_NewerMessageSurvivesOldTimer(t *testing.T) {
	t.Parallel()
	n, s := newTestNotifications()

	n.Error("first")
	n.Success("second")

	require.Equal(t, 2, s.count())
	assert.True(t, s.timer(0).stopped, "first timer should be stopped")

	// the first callback may still run if Stop lost the race
	s.timer(0).f()
	cur := n.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "second", cur.Message)

	s.timer(1).f()
	assert.Nil(t, n.Current())
}

func TestNotificationState_ClearAndClose(t *testing.T) {
	t.Parallel()
	n, s := newTestNotifications()

	n.Error("boom")
	n.Clear()
	assert.Nil(t, n.Current())
	assert.True(t, s.timer(0).stopped)

	n.Clear()
	n.Close()
}

func TestNotificationState_Subscribe(t *testing.T) {
	t.Parallel()
	n, s := newTestNotifications()

	ch, unsubscribe := n.Subscribe()
	n.Error("boom")
	s.timer(0).f()

	ev := <-ch
	assert.Equal(t, "show", ev.Type)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, "boom", ev.Notification.Message)

	ev = <-ch
	assert.Equal(t, "clear", ev.Type)

	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestNotificationState_CloseEndsSubscriptions(t *testing.T) {
	t.Parallel()
	n, _ := newTestNotifications()

	ch, unsubscribe := n.Subscribe()
	n.Close()

	_, open := <-ch
	assert.False(t, open)
	unsubscribe() // must not panic on a closed channel
}

func TestNotificationState_RealTimer(t *testing.T) {
	t.Parallel()
	n := NewNotificationState(WithNotificationTTL(10 * time.Millisecond))
	defer n.Close()

	n.Error("short lived")
	require.NotNil(t, n.Current())

	assert.Eventually(t, func() bool { return n.Current() == nil }, time.Second, 5*time.Millisecond)
}
