// Package eventlog keeps the short-lived stream of human-readable
// events shown on the demo dashboard.
//
// Events are held in a bounded ring buffer. GET /logs drains it and
// websocket subscribers receive every new event as it is recorded.
// Recording never blocks and never influences request handling: a full
// buffer drops its oldest event and a slow subscriber misses events.
package eventlog
