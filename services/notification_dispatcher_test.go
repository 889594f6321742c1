package services_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"habitLoopAPI/internal/types/notification"
	"habitLoopAPI/services"
)

func testJob(tokens ...string) *services.PushJob {
	job := &services.PushJob{Push: &notification.Push{Type: notification.TypeNudge, Title: "hi"}}
	for _, tok := range tokens {
		job.Tokens = append(job.Tokens, notification.DeviceToken{Token: tok})
	}
	return job
}

func TestDispatcherDeliversJobs(t *testing.T) {
	push := newFakePushProvider()
	d := services.NewNotificationDispatcher(push)
	defer d.Stop()

	assert.True(t, d.Dispatch(testJob("a", "b")))
	sent := push.wait(t)
	assert.Equal(t, []string{"a", "b"}, sent.Tokens)
}

func TestDispatcherSkipsJobsWithoutDevices(t *testing.T) {
	push := newFakePushProvider()
	d := services.NewNotificationDispatcher(push)
	defer d.Stop()

	assert.False(t, d.Dispatch(testJob()))
	push.assertNothingSent(t)
}

func TestDispatcherSurvivesProviderErrors(t *testing.T) {
	push := newFakePushProvider()
	push.err = errors.New("fcm unavailable")
	d := services.NewNotificationDispatcher(push)
	defer d.Stop()

	assert.True(t, d.Dispatch(testJob("a")))
	push.wait(t)
	assert.True(t, d.Dispatch(testJob("b")))
	push.wait(t)
}

func TestDispatcherWithoutProvider(t *testing.T) {
	d := services.NewNotificationDispatcher(nil)
	assert.True(t, d.Dispatch(testJob("a")))
	d.Stop()
}

func TestDispatcherStopDrainsAndRejects(t *testing.T) {
	push := newFakePushProvider()
	d := services.NewNotificationDispatcher(push)

	for _, tok := range []string{"a", "b", "c"} {
		assert.True(t, d.Dispatch(testJob(tok)))
	}
	d.Stop()
	d.Stop()

	assert.Len(t, push.sent, 3)
	assert.False(t, d.Dispatch(testJob("d")))
}
