package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/dmview/internal/session"
	"github.com/vovakirdan/dmview/internal/store"
)

type memoryStore struct {
	mu       sync.Mutex
	msgs     []store.Message
	seq      int
	lists    int
	listErr  error
	writeErr error
	updates  []store.Message
}

func (s *memoryStore) ListMessages(_ context.Context) ([]store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]store.Message, len(s.msgs))
	copy(out, s.msgs)
	return out, nil
}

func (s *memoryStore) CreateMessage(_ context.Context, msg store.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return "", s.writeErr
	}
	s.seq++
	msg.ID = fmt.Sprintf("k%03d", s.seq)
	s.msgs = append(s.msgs, msg)
	return msg.ID, nil
}

func (s *memoryStore) UpdateMessage(_ context.Context, id string, msg store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.updates = append(s.updates, msg)
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			msg.ID = id
			s.msgs[i] = msg
			return nil
		}
	}
	msg.ID = id
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *memoryStore) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memoryStore) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func (s *memoryStore) seed(msgs ...store.Message) {
	for _, m := range msgs {
		_, _ = s.CreateMessage(context.Background(), m)
	}
}

func signedIn(email string) session.Static {
	return session.Static{User: &session.User{Username: email, Email: email}}
}

func newTestView(t *testing.T, st *memoryStore, p Participants) (*View, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	v := New(p, Options{
		Store:   st,
		Session: signedIn(p.Sender),
		Clock:   mock,
	})
	t.Cleanup(v.Deactivate)
	return v, mock
}

func texts(msgs []store.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Message)
	}
	return out
}

func TestFetchKeepsOnlyThePair(t *testing.T) {
	st := &memoryStore{}
	st.seed(
		store.Message{Sender: "alice", Recipient: "bob", Message: "hi"},
		store.Message{Sender: "bob", Recipient: "alice", Message: "yo"},
		store.Message{Sender: "alice", Recipient: "carol", Message: "x"},
	)

	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})
	v.Fetch(context.Background())

	snap := v.Snapshot()
	assert.Equal(t, []string{"hi", "yo"}, texts(snap))
	assert.Equal(t, "k001", snap[0].ID)
	assert.Equal(t, "k002", snap[1].ID)
}

func TestFetchIsSymmetric(t *testing.T) {
	st := &memoryStore{}
	st.seed(
		store.Message{Sender: "alice", Recipient: "bob", Message: "hi"},
		store.Message{Sender: "bob", Recipient: "alice", Message: "yo"},
		store.Message{Sender: "bob", Recipient: "carol", Message: "other"},
	)

	ab, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})
	ba, _ := newTestView(t, st, Participants{Sender: "bob", Recipient: "alice"})
	ab.Fetch(context.Background())
	ba.Fetch(context.Background())

	assert.Equal(t, ab.Snapshot(), ba.Snapshot())
}

func TestFetchFailureKeepsSnapshot(t *testing.T) {
	st := &memoryStore{}
	st.seed(store.Message{Sender: "alice", Recipient: "bob", Message: "hi"})

	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})
	v.Fetch(context.Background())
	require.Len(t, v.Snapshot(), 1)

	st.mu.Lock()
	st.listErr = errors.New("boom")
	st.mu.Unlock()

	v.Fetch(context.Background())
	assert.Equal(t, []string{"hi"}, texts(v.Snapshot()))
}

func TestSendThenFetchShowsMessage(t *testing.T) {
	st := &memoryStore{}
	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})

	require.NoError(t, v.Send(context.Background(), "alice", "bob", "hello"))

	snap := v.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, store.Message{ID: "k001", Sender: "alice", Recipient: "bob", Message: "hello"}, snap[0])
}

func TestSendAllowsEmptyText(t *testing.T) {
	st := &memoryStore{}
	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})

	require.NoError(t, v.Send(context.Background(), "alice", "bob", ""))
	assert.Equal(t, []string{""}, texts(v.Snapshot()))
}

func TestSubmitClearsComposeEvenOnFailure(t *testing.T) {
	st := &memoryStore{}
	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})

	v.SetCompose("first")
	require.NoError(t, v.Submit(context.Background()))
	assert.Empty(t, v.Compose())

	st.mu.Lock()
	st.writeErr = errors.New("offline")
	st.mu.Unlock()

	v.SetCompose("second")
	err := v.Submit(context.Background())
	require.Error(t, err)
	assert.Empty(t, v.Compose())
	assert.Equal(t, []string{"first"}, texts(v.Snapshot()))
}

func TestEditFlow(t *testing.T) {
	st := &memoryStore{}
	st.seed(store.Message{Sender: "alice", Recipient: "bob", Message: "hi"})

	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})
	v.Fetch(context.Background())

	require.NoError(t, v.BeginEdit("k001"))
	edit := v.Editing()
	assert.True(t, edit.Active)
	assert.Equal(t, "k001", edit.ID)
	assert.Equal(t, "hi", edit.Text)

	require.NoError(t, v.SetEditText("hi!"))
	require.NoError(t, v.Save(context.Background()))

	assert.False(t, v.Editing().Active)
	assert.Equal(t, []string{"hi!"}, texts(v.Snapshot()))

	require.Len(t, st.updates, 1)
	assert.Equal(t, "alice", st.updates[0].Sender)
	assert.Equal(t, "bob", st.updates[0].Recipient)
}

func TestEditSwitchesToLatestMessage(t *testing.T) {
	st := &memoryStore{}
	st.seed(
		store.Message{Sender: "alice", Recipient: "bob", Message: "one"},
		store.Message{Sender: "alice", Recipient: "bob", Message: "two"},
	)

	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})
	v.Fetch(context.Background())

	require.NoError(t, v.BeginEdit("k001"))
	require.NoError(t, v.SetEditText("changed"))
	require.NoError(t, v.BeginEdit("k002"))

	edit := v.Editing()
	assert.Equal(t, "k002", edit.ID)
	assert.Equal(t, "two", edit.Text)
}

func TestEditErrors(t *testing.T) {
	st := &memoryStore{}
	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})

	assert.ErrorIs(t, v.BeginEdit("nope"), ErrUnknownMessage)
	assert.ErrorIs(t, v.SetEditText("x"), ErrNotEditing)
	assert.ErrorIs(t, v.Save(context.Background()), ErrNotEditing)
}

func TestFailedSaveLeavesEditMode(t *testing.T) {
	st := &memoryStore{}
	st.seed(store.Message{Sender: "alice", Recipient: "bob", Message: "hi"})

	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})
	v.Fetch(context.Background())
	require.NoError(t, v.BeginEdit("k001"))

	st.mu.Lock()
	st.writeErr = errors.New("offline")
	st.mu.Unlock()

	require.Error(t, v.Save(context.Background()))
	assert.False(t, v.Editing().Active)
}

func TestEditSurvivesDisappearingMessage(t *testing.T) {
	st := &memoryStore{}
	st.seed(store.Message{Sender: "alice", Recipient: "bob", Message: "hi"})

	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})
	v.Fetch(context.Background())
	require.NoError(t, v.BeginEdit("k001"))

	require.NoError(t, st.DeleteMessage(context.Background(), "k001"))
	v.Fetch(context.Background())

	assert.Empty(t, v.Snapshot())
	assert.True(t, v.Editing().Active)
}

func TestDelete(t *testing.T) {
	st := &memoryStore{}
	st.seed(
		store.Message{Sender: "alice", Recipient: "bob", Message: "hi"},
		store.Message{Sender: "bob", Recipient: "alice", Message: "yo"},
	)

	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})
	v.Fetch(context.Background())

	require.NoError(t, v.Delete(context.Background(), "k001"))
	assert.Equal(t, []string{"yo"}, texts(v.Snapshot()))

	require.NoError(t, v.Delete(context.Background(), "missing"))
	assert.Equal(t, []string{"yo"}, texts(v.Snapshot()))
}

func TestPollingCadence(t *testing.T) {
	st := &memoryStore{}
	v, mock := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})

	require.NoError(t, v.Activate(context.Background()))
	require.Eventually(t, func() bool { return st.listCalls() == 1 }, time.Second, time.Millisecond)

	mock.Add(4 * time.Second)
	assert.Never(t, func() bool { return st.listCalls() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	mock.Add(time.Second)
	require.Eventually(t, func() bool { return st.listCalls() == 2 }, time.Second, time.Millisecond)

	mock.Add(5 * time.Second)
	require.Eventually(t, func() bool { return st.listCalls() == 3 }, time.Second, time.Millisecond)
}

func TestDeactivateStopsPolling(t *testing.T) {
	st := &memoryStore{}
	v, mock := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})

	require.NoError(t, v.Activate(context.Background()))
	require.Eventually(t, func() bool { return st.listCalls() == 1 }, time.Second, time.Millisecond)

	v.Deactivate()
	v.Deactivate()

	mock.Add(20 * time.Second)
	assert.Never(t, func() bool { return st.listCalls() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestParticipantChangeRestartsPolling(t *testing.T) {
	st := &memoryStore{}
	st.seed(
		store.Message{Sender: "alice", Recipient: "bob", Message: "hi"},
		store.Message{Sender: "alice", Recipient: "carol", Message: "x"},
	)

	v, mock := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})
	require.NoError(t, v.Activate(context.Background()))
	require.Eventually(t, func() bool { return st.listCalls() == 1 }, time.Second, time.Millisecond)

	v.SetParticipants(Participants{Sender: "alice", Recipient: "bob"})
	assert.Never(t, func() bool { return st.listCalls() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	v.SetParticipants(Participants{Sender: "alice", Recipient: "carol"})
	require.Eventually(t, func() bool { return st.listCalls() == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		snap := v.Snapshot()
		return len(snap) == 1 && snap[0].Message == "x"
	}, time.Second, time.Millisecond)

	// Only the new timer is left: one interval yields one fetch.
	mock.Add(5 * time.Second)
	require.Eventually(t, func() bool { return st.listCalls() == 3 }, time.Second, time.Millisecond)
	assert.Never(t, func() bool { return st.listCalls() > 3 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestActivateRequiresUser(t *testing.T) {
	st := &memoryStore{}
	var routes []string
	v := New(Participants{Sender: "alice", Recipient: "bob"}, Options{
		Store:    st,
		Session:  session.Static{},
		Clock:    clock.NewMock(),
		Redirect: func(route string) { routes = append(routes, route) },
	})

	assert.ErrorIs(t, v.Activate(context.Background()), ErrSignedOut)
	assert.Equal(t, []string{LoginRoute}, routes)
	assert.Zero(t, st.listCalls())
}

type switchableSession struct {
	mu   sync.Mutex
	user *session.User
}

func (s *switchableSession) Current() *session.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *switchableSession) signOut() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

func TestRenderRedirectsAfterSignOut(t *testing.T) {
	st := &memoryStore{}
	sess := &switchableSession{user: &session.User{Username: "alice", Email: "alice"}}

	var mu sync.Mutex
	var routes []string
	v := New(Participants{Sender: "alice", Recipient: "bob"}, Options{
		Store:   st,
		Session: sess,
		Clock:   clock.NewMock(),
		Redirect: func(route string) {
			mu.Lock()
			routes = append(routes, route)
			mu.Unlock()
		},
	})
	t.Cleanup(v.Deactivate)

	require.NoError(t, v.Activate(context.Background()))
	require.Eventually(t, func() bool { return st.listCalls() == 1 }, time.Second, time.Millisecond)

	sess.signOut()
	v.SetCompose("anything")

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, routes, LoginRoute)
}

func TestHeaderAndRows(t *testing.T) {
	st := &memoryStore{}
	st.seed(
		store.Message{Sender: "alice", Recipient: "bob", Message: "hi"},
		store.Message{Sender: "bob", Recipient: "alice", Message: "yo"},
	)

	v, _ := newTestView(t, st, Participants{Sender: "alice", Recipient: "bob"})
	v.Fetch(context.Background())
	require.NoError(t, v.BeginEdit("k001"))

	assert.Equal(t, "Message to bob", v.Header())

	rows := v.Rows(&session.User{Username: "alice", Email: "alice"})
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].Index)
	assert.Equal(t, "You", rows[0].Label)
	assert.Equal(t, AlignRight, rows[0].Align)
	assert.True(t, rows[0].Own)
	assert.True(t, rows[0].Editing)
	assert.Equal(t, "hi", rows[0].EditText)

	assert.Equal(t, 2, rows[1].Index)
	assert.Equal(t, "bob", rows[1].Label)
	assert.Equal(t, AlignLeft, rows[1].Align)
	assert.False(t, rows[1].Own)
	assert.False(t, rows[1].Editing)
}
