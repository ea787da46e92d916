package eventlog

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 14, 30, 5, 0, time.UTC)
}

func TestLog_RecordAndDrain(t *testing.T) {
	t.Parallel()

	// Arrange
	l := New(WithClock(fixedClock))

	// Act
	l.Record("Policy update received", ClassInfo)
	l.Record("Policy active", ClassSuccess)
	events := l.Drain()

	// Assert
	require.Len(t, events, 2)
	assert.Equal(t, Event{Message: "Policy update received", StatusClass: ClassInfo, Timestamp: "2026-03-01T14:30:05.000Z", Seq: 1}, events[0])
	assert.Equal(t, ClassSuccess, events[1].StatusClass)
	assert.Empty(t, l.Drain())
	assert.NotNil(t, l.Drain())
}

func TestLog_DropsOldestWhenFull(t *testing.T) {
	t.Parallel()

	// Arrange
	m := NewMetrics("test", prometheus.NewRegistry())
	l := New(WithCapacity(3), WithMetrics(m))

	// Act
	for i := 1; i <= 5; i++ {
		l.Record(fmt.Sprintf("event %d", i), ClassInfo)
	}

	// Assert
	assert.Equal(t, 3, l.Len())
	events := l.Drain()
	require.Len(t, events, 3)
	assert.Equal(t, "event 3", events[0].Message)
	assert.Equal(t, "event 5", events[2].Message)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dropped.WithLabelValues(dropOverflow)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.recorded.WithLabelValues(string(ClassInfo))))
}

func TestLog_DrainAfterWrap(t *testing.T) {
	t.Parallel()

	l := New(WithCapacity(2))
	l.Record("a", ClassInfo)
	l.Record("b", ClassInfo)
	l.Record("c", ClassInfo)
	_ = l.Drain()

	l.Record("d", ClassFail)
	events := l.Drain()

	require.Len(t, events, 1)
	assert.Equal(t, "d", events[0].Message)
	assert.Equal(t, uint64(4), events[0].Seq)
}

func TestLog_ConcurrentRecord(t *testing.T) {
	t.Parallel()

	l := New(WithCapacity(10000))
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				l.Record("x", ClassEval)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, l.Len())
}

func TestLog_Subscribe(t *testing.T) {
	t.Parallel()

	// Arrange
	l := New()
	events, cancel := l.Subscribe()

	// Act
	l.Record("Access granted", ClassSuccess)

	// Assert
	select {
	case ev := <-events:
		assert.Equal(t, "Access granted", ev.Message)
	case <-time.After(time.Second):
		t.Fatal("expected event on subscription")
	}

	cancel()
	cancel()
	_, ok := <-events
	assert.False(t, ok)
}

func TestLog_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	// Arrange
	m := NewMetrics("test", prometheus.NewRegistry())
	l := New(WithSubscriberBuffer(1), WithMetrics(m))
	_, cancel := l.Subscribe()
	defer cancel()

	// Act
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			l.Record("x", ClassInfo)
		}
		close(done)
	}()

	// Assert
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on slow subscriber")
	}
	assert.Equal(t, 4.0, testutil.ToFloat64(m.dropped.WithLabelValues(dropSlowSubscriber)))
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { Discard.Record("ignored", ClassInfo) })
}
