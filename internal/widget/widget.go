// Package widget is the feedback submission form as a state machine:
//
//	Closed -> Open -> Submitting -> Success -> (after CloseDelay) Closed
//	                             -> Failed  -> Open (draft kept)
//
// Only one submission may be in flight per widget.
package widget

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"squashfeature/internal/client"
	"squashfeature/internal/models"

	"github.com/google/uuid"
)

type State int

const (
	Closed State = iota
	Open
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return "unknown"
}

const (
	DefaultCloseDelay = 3 * time.Second
	FallbackError     = "Failed to submit feedback"

	FeatureThanks = "Thanks! Your feature request has been submitted."
	BugThanks     = "Thanks! Your bug report has been submitted."
)

var (
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrInvalidType         = errors.New("type must be feature or bug")
	ErrClosed              = errors.New("feedback form is not open")
	ErrSubmitInFlight      = errors.New("a submission is already in progress")
)

type Submitter interface {
	CreateItem(ctx context.Context, projectID string, req models.CreateItemRequest) error
}

type Draft struct {
	Type        models.FeedbackType
	Title       string
	Description string
}

type Widget struct {
	api        Submitter
	projectID  string
	origin     string
	closeDelay time.Duration
	onChange   func(State)

	mu             sync.Mutex
	state          State
	inFlight       bool
	draft          Draft
	idempotencyKey string
	message        string
	errMsg         string
	closeTimer     *time.Timer
	pending        []State
}

type Option func(*Widget)

// WithOrigin sets the origin recorded in each item's metadata.
func WithOrigin(origin string) Option {
	return func(w *Widget) { w.origin = origin }
}

// WithCloseDelay changes how long the success message stays up.
func WithCloseDelay(d time.Duration) Option {
	return func(w *Widget) { w.closeDelay = d }
}

// OnChange registers a callback for every state transition. It is called
// outside the widget's lock, in transition order.
func OnChange(fn func(State)) Option {
	return func(w *Widget) { w.onChange = fn }
}

func New(api Submitter, projectID string, opts ...Option) *Widget {
	w := &Widget{
		api:        api,
		projectID:  projectID,
		closeDelay: DefaultCloseDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.resetDraft()
	return w
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Widget) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Message is the confirmation shown while in Success.
func (w *Widget) Message() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.message
}

// Err is the error shown next to the form, empty when there is none.
func (w *Widget) Err() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errMsg
}

// CanSubmit reports whether the submit control should be enabled.
func (w *Widget) CanSubmit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == Open && !w.inFlight
}

func (w *Widget) Open() {
	w.mu.Lock()
	switch w.state {
	case Closed:
		w.setState(Open)
	case Success:
		w.stopTimer()
		w.message = ""
		w.setState(Open)
	}
	w.unlockAndNotify()
}

// Close hides the form. A submission in flight keeps running and its outcome
// is still applied to the draft.
func (w *Widget) Close() {
	w.mu.Lock()
	if w.state != Closed {
		w.stopTimer()
		w.message = ""
		w.setState(Closed)
	}
	w.unlockAndNotify()
}

func (w *Widget) SetType(t models.FeedbackType) error {
	if !t.Valid() {
		return ErrInvalidType
	}
	return w.edit(func(d *Draft) { d.Type = t })
}

func (w *Widget) SetTitle(title string) error {
	return w.edit(func(d *Draft) { d.Title = title })
}

func (w *Widget) SetDescription(description string) error {
	return w.edit(func(d *Draft) { d.Description = description })
}

func (w *Widget) edit(fn func(*Draft)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Open {
		return ErrClosed
	}
	fn(&w.draft)
	return nil
}

// Submit validates the draft and sends it. Validation failures return before
// any request is made.
func (w *Widget) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}
	if w.state != Open {
		w.mu.Unlock()
		return ErrClosed
	}

	title := strings.TrimSpace(w.draft.Title)
	description := strings.TrimSpace(w.draft.Description)
	var invalid error
	switch {
	case title == "":
		invalid = ErrTitleRequired
	case description == "":
		invalid = ErrDescriptionRequired
	}
	if invalid != nil {
		w.errMsg = "Please fill in the " + strings.TrimSuffix(invalid.Error(), " is required")
		w.mu.Unlock()
		return invalid
	}

	submitted := w.draft.Type
	req := models.CreateItemRequest{
		Type:           submitted,
		Title:          title,
		Description:    description,
		Metadata:       w.metadata(),
		IdempotencyKey: w.idempotencyKey,
	}
	w.inFlight = true
	w.errMsg = ""
	w.setState(Submitting)
	w.unlockAndNotify()

	err := w.api.CreateItem(ctx, w.projectID, req)

	w.mu.Lock()
	w.inFlight = false
	visible := w.state == Submitting
	if err != nil {
		w.errMsg = client.UserMessage(err, FallbackError)
		if visible {
			w.setState(Failed)
			w.setState(Open)
		}
		w.unlockAndNotify()
		return err
	}

	w.resetDraft()
	if visible {
		w.message = thanks(submitted)
		w.setState(Success)
		w.closeTimer = time.AfterFunc(w.closeDelay, w.autoClose)
	}
	w.unlockAndNotify()
	return nil
}

func (w *Widget) autoClose() {
	w.mu.Lock()
	if w.state == Success {
		w.message = ""
		w.closeTimer = nil
		w.setState(Closed)
	}
	w.unlockAndNotify()
}

func (w *Widget) metadata() map[string]any {
	md := map[string]any{"source": "widget"}
	if w.origin != "" {
		md["origin"] = w.origin
	}
	return md
}

// resetDraft clears the fields and starts a new idempotency key. A failed
// draft keeps its key so a retry cannot create a duplicate.
func (w *Widget) resetDraft() {
	w.draft = Draft{Type: models.TypeFeature}
	w.idempotencyKey = uuid.NewString()
}

func (w *Widget) stopTimer() {
	if w.closeTimer != nil {
		w.closeTimer.Stop()
		w.closeTimer = nil
	}
}

// setState must be called with mu held.
func (w *Widget) setState(s State) {
	w.state = s
	w.pending = append(w.pending, s)
}

func (w *Widget) unlockAndNotify() {
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()

	if w.onChange == nil {
		return
	}
	for _, s := range pending {
		w.onChange(s)
	}
}

func thanks(t models.FeedbackType) string {
	if t == models.TypeBug {
		return BugThanks
	}
	return FeatureThanks
}
