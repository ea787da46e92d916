package eventlog

import "time"

// Class is the dashboard status class of an event.
type Class string

// Status classes understood by the dashboard.
const (
	ClassSend    Class = "status-send"
	ClassInfo    Class = "status-info"
	ClassEval    Class = "status-eval"
	ClassSuccess Class = "status-success"
	ClassFail    Class = "status-fail"
)

// TimestampLayout formats Event.Timestamp, always in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Event is a single dashboard entry.
type Event struct {
	Message     string `json:"message"`
	StatusClass Class  `json:"statusClass"`
	Timestamp   string `json:"timestamp"`
	Seq         uint64 `json:"seq"`
}

func newEvent(message string, class Class, seq uint64, now time.Time) Event {
	return Event{
		Message:     message,
		StatusClass: class,
		Timestamp:   now.UTC().Format(TimestampLayout),
		Seq:         seq,
	}
}

// Recorder accepts dashboard events.
type Recorder interface {
	Record(message string, class Class)
}

type discard struct{}

func (discard) Record(string, Class) {}

// Discard is a Recorder that drops every event.
var Discard Recorder = discard{}
