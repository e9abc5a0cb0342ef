package notifier

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDispatcher(n Notifier) (*Dispatcher, *[]time.Duration) {
	var slept []time.Duration
	d := &Dispatcher{
		Notifier: n,
		Logger:   slog.Default(),
		sleep:    func(dt time.Duration) { slept = append(slept, dt) },
	}
	return d, &slept
}

func TestDispatchFirstTry(t *testing.T) {
	assert := assert.New(t)
	capture := &CaptureNotifier{}
	d, slept := testDispatcher(capture)

	d.Dispatch(context.Background(), Notification{Type: EventReport, Subject: "r1", Text: "new report"})
	require.Len(t, capture.Notifications(), 1)
	assert.Empty(*slept)
}

func TestDispatchRetriesThenSucceeds(t *testing.T) {
	assert := assert.New(t)
	capture := &CaptureNotifier{Fail: 2}
	d, slept := testDispatcher(capture)

	d.Dispatch(context.Background(), Notification{Type: EventEscalation, Subject: "c1"})
	got := capture.Notifications()
	require.Len(t, got, 1)
	assert.Equal(EventEscalation, got[0].Type)
	// linear backoff between attempts
	assert.Equal([]time.Duration{250 * time.Millisecond, 500 * time.Millisecond}, *slept)
}

func TestDispatchDropsAfterThreeAttempts(t *testing.T) {
	assert := assert.New(t)
	capture := &CaptureNotifier{Fail: 3}
	d, _ := testDispatcher(capture)

	var dropped []Notification
	d.OnDrop = func(n Notification, err error) {
		require.Error(t, err)
		dropped = append(dropped, n)
	}

	d.Dispatch(context.Background(), Notification{Type: EventFlag, Subject: "c1"})
	assert.Empty(capture.Notifications())
	require.Len(t, dropped, 1)
	assert.Equal(EventFlag, dropped[0].Type)
	assert.Zero(capture.Fail)
}
