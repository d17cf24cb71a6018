// Package notify carries user-facing messages and progress ticks out of the
// lookup pipeline. Business code talks to a Sink; the CLI, the HTTP handlers
// and the tests each plug in their own implementation.
package notify

import "sync"

// Kind is the category of a notification. Wording is up to the presenter,
// the category and the condition that triggers it are not.
type Kind string

const (
	KindValidationError Kind = "validation_error"
	KindFileFormatError Kind = "file_format_error"
	KindNotFound        Kind = "not_found"
	KindLookupError     Kind = "lookup_error"
	KindProgress        Kind = "progress"
	KindBatchSuccess    Kind = "batch_success"
	KindBatchPartial    Kind = "batch_partial"
	KindExportComplete  Kind = "export_complete"
)

// Notification is a single message for the user.
type Notification struct {
	Kind    Kind   `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Destructive reports whether the notification describes a failure.
func (n Notification) Destructive() bool {
	switch n.Kind {
	case KindValidationError, KindFileFormatError, KindNotFound, KindLookupError, KindBatchPartial:
		return true
	default:
		return false
	}
}

// Progress is a batch progress tick. Percent stays below 100 until the last
// name has been processed.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// Sink receives notifications and progress updates.
type Sink interface {
	Notify(n Notification)
	Progress(p Progress)
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(Notification) {}
func (discard) Progress(Progress)   {}

// Funcs adapts plain functions to a Sink. Nil fields are ignored.
type Funcs struct {
	OnNotify   func(Notification)
	OnProgress func(Progress)
}

func (f Funcs) Notify(n Notification) {
	if f.OnNotify != nil {
		f.OnNotify(n)
	}
}

func (f Funcs) Progress(p Progress) {
	if f.OnProgress != nil {
		f.OnProgress(p)
	}
}

// Multi fans out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multi []Sink

func (m multi) Notify(n Notification) {
	for _, s := range m {
		s.Notify(n)
	}
}

func (m multi) Progress(p Progress) {
	for _, s := range m {
		s.Progress(p)
	}
}

// Recorder keeps everything it receives. Safe for concurrent use.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
	progress      []Progress
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *Recorder) Progress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

// Notifications returns a copy of the recorded notifications.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

// ProgressUpdates returns a copy of the recorded progress ticks.
func (r *Recorder) ProgressUpdates() []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Progress(nil), r.progress...)
}

// Kinds lists the recorded notification kinds in arrival order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, 0, len(r.notifications))
	for _, n := range r.notifications {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// Count returns how many notifications of the given kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notifications {
		if n.Kind == kind {
			count++
		}
	}
	return count
}

// Event is one item on a Channel: exactly one of Notification or Progress is set.
type Event struct {
	Notification *Notification `json:"notification,omitempty"`
	Progress     *Progress     `json:"progress,omitempty"`
}

// Name returns the event name used on a server-sent event stream.
func (e Event) Name() string {
	if e.Progress != nil {
		return "progress"
	}
	return "notification"
}

// Channel forwards everything as Events. Sends block, so the receiver must
// keep draining until the producer is done.
type Channel chan<- Event

func (c Channel) Notify(n Notification) {
	c <- Event{Notification: &n}
}

func (c Channel) Progress(p Progress) {
	c <- Event{Progress: &p}
}
