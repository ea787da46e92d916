package eventlog

import (
	"sync"
	"time"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
)

// DefaultCapacity is the default ring buffer size.
const DefaultCapacity = 1000

// DefaultSubscriberBuffer is the default per-subscriber channel size.
const DefaultSubscriberBuffer = 64

// Log is a bounded, concurrency-safe event buffer with live fan-out.
type Log struct {
	mu     sync.Mutex
	ring   []Event
	head   int
	size   int
	seq    uint64
	subs   map[chan Event]struct{}
	subBuf int

	clock   func() time.Time
	logger  observability.Logger
	metrics *Metrics
}

// Option configures a Log.
type Option func(*Log)

// WithCapacity sets the ring buffer size.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.ring = make([]Event, n)
		}
	}
}

// WithSubscriberBuffer sets the channel size handed to subscribers.
func WithSubscriberBuffer(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.subBuf = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(l *Log) {
		l.clock = clock
	}
}

// WithLogger mirrors every event to logger.
func WithLogger(logger observability.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics for the log.
func WithMetrics(m *Metrics) Option {
	return func(l *Log) {
		l.metrics = m
	}
}

// New creates an empty Log.
func New(opts ...Option) *Log {
	l := &Log{
		ring:    make([]Event, DefaultCapacity),
		subs:    make(map[chan Event]struct{}),
		subBuf:  DefaultSubscriberBuffer,
		clock:   time.Now,
		logger:  observability.NopLogger(),
		metrics: NewMetrics("", nil),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Record appends an event, evicting the oldest one when full, and
// offers it to every subscriber without blocking.
func (l *Log) Record(message string, class Class) {
	l.logger.Info(message, observability.String("status_class", string(class)))
	l.metrics.recorded.WithLabelValues(string(class)).Inc()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	ev := newEvent(message, class, l.seq, l.clock())

	capacity := len(l.ring)
	if l.size == capacity {
		l.ring[l.head] = ev
		l.head = (l.head + 1) % capacity
		l.metrics.dropped.WithLabelValues(dropOverflow).Inc()
	} else {
		l.ring[(l.head+l.size)%capacity] = ev
		l.size++
	}

	for ch := range l.subs {
		select {
		case ch <- ev:
		default:
			l.metrics.dropped.WithLabelValues(dropSlowSubscriber).Inc()
		}
	}
}

// Drain returns the buffered events oldest first and empties the buffer.
// The result is never nil.
func (l *Log) Drain() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, l.size)
	capacity := len(l.ring)
	for i := 0; i < l.size; i++ {
		out[i] = l.ring[(l.head+i)%capacity]
		l.ring[(l.head+i)%capacity] = Event{}
	}
	l.head = 0
	l.size = 0

	return out
}

// Len returns the number of buffered events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Subscribe registers a live subscriber. The returned cancel function
// unregisters it and closes the channel; it is safe to call twice.
func (l *Log) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, l.subBuf)

	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()
	l.metrics.subscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, ch)
			close(ch)
			l.mu.Unlock()
			l.metrics.subscribers.Dec()
		})
	}

	return ch, cancel
}
