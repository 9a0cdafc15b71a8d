// Package widget is the chat widget's state machine: an append-only
// transcript, the pending input, and a loading flag that is set while a
// relay call is in flight.
package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

const (
	Greeting      = "Hello! I'm the SPIROLINK assistant. How can I help you today?"
	FallbackReply = "Sorry, I couldn't generate a response."
	SystemPrompt  = "You are a helpful chatbot for SPIROLINK, specializing in broadband infrastructure."
)

// ErrBusy is returned by Submit while a previous message is still in flight.
var ErrBusy = errors.New("widget: a message is already being sent")

type Entry struct {
	ID      int64  `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Relay sends one message to the chat service and returns its reply.
type Relay interface {
	Send(ctx context.Context, message, systemPrompt string) (string, error)
}

type Widget struct {
	relay    Relay
	endpoint string
	prompt   string
	onChange func([]Entry)

	mu      sync.Mutex
	entries []Entry
	input   string
	loading bool
	lastErr error
	nextID  int64
}

type Option func(*Widget)

// WithOnChange registers a hook called with a transcript snapshot after every
// transcript or loading change. It runs without the widget lock held.
func WithOnChange(fn func([]Entry)) Option {
	return func(w *Widget) {
		w.onChange = fn
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(w *Widget) {
		w.prompt = prompt
	}
}

// New returns a widget whose transcript holds only the greeting. endpoint is
// shown to the user when the relay cannot be reached.
func New(relay Relay, endpoint string, opts ...Option) (*Widget, error) {
	if relay == nil {
		return nil, errors.New("widget: relay must not be nil")
	}
	w := &Widget{
		relay:    relay,
		endpoint: endpoint,
		prompt:   SystemPrompt,
		entries:  []Entry{{ID: 1, Role: RoleBot, Content: Greeting}},
		nextID:   2,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Widget) SetInput(s string) {
	w.mu.Lock()
	w.input = s
	w.mu.Unlock()
}

func (w *Widget) Input() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.input
}

func (w *Widget) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

// LastError is the error from the most recent failed submission, cleared when
// a new submission starts.
func (w *Widget) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Transcript returns a copy of the entries in display order.
func (w *Widget) Transcript() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Submit sends the pending input. Blank input is ignored. On failure an error
// entry is appended and the relay error is returned; the loading flag is
// cleared on every path, including a panicking relay.
func (w *Widget) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.loading {
		w.mu.Unlock()
		return ErrBusy
	}
	raw := w.input
	if strings.TrimSpace(raw) == "" {
		w.mu.Unlock()
		return nil
	}
	w.appendLocked(RoleUser, raw)
	w.input = ""
	w.loading = true
	w.lastErr = nil
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.notify(snap)

	defer func() {
		w.mu.Lock()
		w.loading = false
		snap := w.snapshotLocked()
		w.mu.Unlock()
		w.notify(snap)
	}()

	reply, err := w.relay.Send(ctx, raw, w.prompt)

	w.mu.Lock()
	if err != nil {
		w.lastErr = err
		w.appendLocked(RoleBot, w.errorText(err))
	} else {
		if reply == "" {
			reply = FallbackReply
		}
		w.appendLocked(RoleBot, reply)
	}
	w.mu.Unlock()
	return err
}

func (w *Widget) errorText(err error) string {
	return fmt.Sprintf("Error: %s. Make sure the chat service at %s is reachable.", err.Error(), w.endpoint)
}

func (w *Widget) appendLocked(role Role, content string) {
	w.entries = append(w.entries, Entry{ID: w.nextID, Role: role, Content: content})
	w.nextID++
}

func (w *Widget) snapshotLocked() []Entry {
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

func (w *Widget) notify(snap []Entry) {
	if w.onChange != nil {
		w.onChange(snap)
	}
}
