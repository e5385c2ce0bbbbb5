// Package conversation keeps a local, disposable view of the thread between
// two participants and mediates writes against the Message Store.
//
// The view polls the store on a fixed interval and rebuilds its snapshot from
// the full collection on every fetch. Writes are one-shot and are followed by
// an immediate fetch. Background polls and write-triggered fetches are not
// ordered against each other, so a slow poll may briefly overwrite a newer
// snapshot until the next fetch lands.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dmview/internal/session"
	"github.com/vovakirdan/dmview/internal/store"
)

const (
	// DefaultPollInterval is the delay between two background fetches.
	DefaultPollInterval = 5 * time.Second

	// LoginRoute is where the view redirects when nobody is signed in.
	LoginRoute = "/login"
)

var (
	// ErrSignedOut is returned when the view is activated without a signed-in user.
	ErrSignedOut = errors.New("not signed in")
	// ErrUnknownMessage is returned for ids that are not in the snapshot.
	ErrUnknownMessage = errors.New("message not in conversation")
	// ErrNotEditing is returned by Save when no message is being edited.
	ErrNotEditing = errors.New("no message is being edited")
)

// EditState is the inline editor. At most one message is edited at a time.
type EditState struct {
	Active bool
	ID     string
	Text   string

	// original is the record as it was when editing started.
	original store.Message
}

// Options configure a View.
type Options struct {
	Store   store.MessageStore
	Session session.Provider

	// Redirect is called with LoginRoute whenever a render finds no user.
	Redirect func(route string)
	// OnChange is called after the snapshot, compose text or edit state changed.
	OnChange func()

	Clock        clock.Clock
	PollInterval time.Duration
	Logger       *zerolog.Logger
}

// View is the conversation screen's state and operations.
type View struct {
	store    store.MessageStore
	session  session.Provider
	redirect func(string)
	onChange func()
	clock    clock.Clock
	interval time.Duration
	log      *zerolog.Logger

	mu           sync.Mutex
	participants Participants
	snapshot     []store.Message
	compose      string
	edit         EditState
	active       bool
	ctx          context.Context
	poll         *poller
}

// New creates an inactive view for the given pair.
func New(p Participants, opts Options) *View {
	v := &View{
		store:        opts.Store,
		session:      opts.Session,
		redirect:     opts.Redirect,
		onChange:     opts.OnChange,
		clock:        opts.Clock,
		interval:     opts.PollInterval,
		log:          opts.Logger,
		participants: p,
		ctx:          context.Background(),
	}
	if v.session == nil {
		v.session = session.Static{}
	}
	if v.clock == nil {
		v.clock = clock.New()
	}
	if v.interval <= 0 {
		v.interval = DefaultPollInterval
	}
	if v.log == nil {
		nop := zerolog.Nop()
		v.log = &nop
	}
	return v
}

// Guard redirects to the login route when nobody is signed in.
func (v *View) Guard() bool {
	if v.session.Current() != nil {
		return true
	}
	v.log.Debug().Msg("no signed-in user, redirecting to login")
	if v.redirect != nil {
		v.redirect(LoginRoute)
	}
	return false
}

// Activate checks the session and starts polling. Fetches issued by the view
// use ctx, so cancelling it aborts in-flight requests.
func (v *View) Activate(ctx context.Context) error {
	if !v.Guard() {
		return ErrSignedOut
	}

	v.mu.Lock()
	if v.active {
		v.mu.Unlock()
		return nil
	}
	v.active = true
	v.ctx = ctx
	v.poll = v.startPollLocked()
	v.mu.Unlock()

	return nil
}

// Deactivate cancels the poll timer and waits for a fetch in progress to
// finish. It is safe to call more than once.
func (v *View) Deactivate() {
	v.mu.Lock()
	p := v.poll
	v.poll = nil
	v.active = false
	v.mu.Unlock()

	if p != nil {
		p.stop()
		p.wait()
	}
}

// Participants returns the current pair.
func (v *View) Participants() Participants {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.participants
}

// SetParticipants rebinds the view to a new pair. When active, the running
// timer is cancelled and a fresh one starts with an immediate fetch.
func (v *View) SetParticipants(p Participants) {
	v.mu.Lock()
	if p == v.participants {
		v.mu.Unlock()
		return
	}
	v.participants = p

	var old *poller
	if v.active {
		old = v.poll
		v.poll = v.startPollLocked()
	}
	v.mu.Unlock()

	if old != nil {
		old.stop()
	}
	v.log.Debug().Str("sender", p.Sender).Str("recipient", p.Recipient).Msg("participants changed")
	v.notify()
}

func (v *View) startPollLocked() *poller {
	ctx := v.ctx
	return startPoller(v.clock, v.interval, func() {
		v.Fetch(ctx)
	})
}

// Fetch replaces the snapshot with the pair's messages. Failures are logged
// and leave the previous snapshot in place.
func (v *View) Fetch(ctx context.Context) {
	p := v.Participants()

	msgs, err := v.store.ListMessages(ctx)
	if err != nil {
		v.log.Warn().Err(err).Str("sender", p.Sender).Str("recipient", p.Recipient).Msg("fetch messages failed")
		return
	}

	filtered := Filter(msgs, p)

	v.mu.Lock()
	v.snapshot = filtered
	v.mu.Unlock()

	v.log.Debug().Int("count", len(filtered)).Msg("snapshot replaced")
	v.notify()
}

// Snapshot returns a copy of the current messages.
func (v *View) Snapshot() []store.Message {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]store.Message, len(v.snapshot))
	copy(out, v.snapshot)
	return out
}

// Message returns the snapshot entry with the given id.
func (v *View) Message(id string) (store.Message, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.findLocked(id)
}

func (v *View) findLocked(id string) (store.Message, bool) {
	for _, m := range v.snapshot {
		if m.ID == id {
			return m, true
		}
	}
	return store.Message{}, false
}

// Compose returns the compose-box text.
func (v *View) Compose() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.compose
}

// SetCompose replaces the compose-box text.
func (v *View) SetCompose(text string) {
	v.mu.Lock()
	v.compose = text
	v.mu.Unlock()
	v.notify()
}

// Submit sends the compose text to the current pair. The compose box is
// cleared whether or not the write succeeds.
func (v *View) Submit(ctx context.Context) error {
	v.mu.Lock()
	p := v.participants
	text := v.compose
	v.compose = ""
	v.mu.Unlock()
	v.notify()

	return v.Send(ctx, p.Sender, p.Recipient, text)
}

// Send creates a message and fetches. Empty text is allowed.
func (v *View) Send(ctx context.Context, sender, recipient, text string) error {
	id, err := v.store.CreateMessage(ctx, store.Message{
		Sender:    sender,
		Recipient: recipient,
		Message:   text,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	v.log.Debug().Str("message_id", id).Str("sender", sender).Str("recipient", recipient).Msg("message sent")
	v.Fetch(ctx)
	return nil
}

// Update merges msg into the record at id, fetches, and leaves edit mode
// regardless of the outcome.
func (v *View) Update(ctx context.Context, id string, msg store.Message) error {
	defer v.resetEdit()

	if err := v.store.UpdateMessage(ctx, id, msg); err != nil {
		return fmt.Errorf("update message: %w", err)
	}

	v.log.Debug().Str("message_id", id).Msg("message updated")
	v.Fetch(ctx)
	return nil
}

// Delete removes the record at id and fetches.
func (v *View) Delete(ctx context.Context, id string) error {
	if err := v.store.DeleteMessage(ctx, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	v.log.Debug().Str("message_id", id).Msg("message deleted")
	v.Fetch(ctx)
	return nil
}

// Editing returns the edit state.
func (v *View) Editing() EditState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.edit
}

// BeginEdit enters edit mode for id, seeding the buffer with its text.
// Any other edit in progress is abandoned.
func (v *View) BeginEdit(id string) error {
	v.mu.Lock()
	msg, ok := v.findLocked(id)
	if !ok {
		v.mu.Unlock()
		return ErrUnknownMessage
	}
	v.edit = EditState{Active: true, ID: id, Text: msg.Message, original: msg}
	v.mu.Unlock()

	v.notify()
	return nil
}

// SetEditText replaces the edit buffer.
func (v *View) SetEditText(text string) error {
	v.mu.Lock()
	if !v.edit.Active {
		v.mu.Unlock()
		return ErrNotEditing
	}
	v.edit.Text = text
	v.mu.Unlock()

	v.notify()
	return nil
}

// Save writes the edit buffer as the message text, sending the whole record
// as it was when editing started.
func (v *View) Save(ctx context.Context) error {
	v.mu.Lock()
	edit := v.edit
	v.mu.Unlock()

	if !edit.Active {
		return ErrNotEditing
	}

	updated := edit.original
	updated.Message = edit.Text
	return v.Update(ctx, edit.ID, updated)
}

func (v *View) resetEdit() {
	v.mu.Lock()
	v.edit = EditState{}
	v.mu.Unlock()
	v.notify()
}

func (v *View) notify() {
	v.mu.Lock()
	active := v.active
	v.mu.Unlock()

	if active {
		v.Guard()
	}
	if v.onChange != nil {
		v.onChange()
	}
}
