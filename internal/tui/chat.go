// Package tui is the line-oriented terminal surface of the conversation view.
package tui

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dmview/internal/conversation"
	"github.com/vovakirdan/dmview/internal/session"
	"github.com/vovakirdan/dmview/internal/store"
)

// ChatOptions configure a Chat.
type ChatOptions struct {
	Store        store.MessageStore
	Session      session.Provider
	Clock        clock.Clock
	PollInterval time.Duration
	Width        int
	Out          io.Writer
	Logger       *zerolog.Logger
}

// Chat runs one conversation view against a terminal.
type Chat struct {
	view     *conversation.View
	session  session.Provider
	renderer *Renderer
	out      io.Writer
	log      *zerolog.Logger

	dirty     chan struct{}
	signedOut chan struct{}
	once      sync.Once

	lastFrame string
	notice    string
	errText   string
}

// NewChat creates a chat for the pair p. Nothing runs until Run.
func NewChat(p conversation.Participants, opts ChatOptions) *Chat {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	sess := opts.Session
	if sess == nil {
		sess = session.Static{}
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	c := &Chat{
		session:   sess,
		renderer:  NewRenderer(opts.Width),
		out:       out,
		log:       logger,
		dirty:     make(chan struct{}, 1),
		signedOut: make(chan struct{}),
	}
	c.view = conversation.New(p, conversation.Options{
		Store:        opts.Store,
		Session:      sess,
		Redirect:     c.redirect,
		OnChange:     c.changed,
		Clock:        opts.Clock,
		PollInterval: opts.PollInterval,
		Logger:       logger,
	})
	return c
}

// View exposes the underlying conversation view.
func (c *Chat) View() *conversation.View {
	return c.view
}

func (c *Chat) redirect(route string) {
	c.log.Info().Str("route", route).Msg("signed out, leaving conversation")
	c.once.Do(func() { close(c.signedOut) })
}

func (c *Chat) changed() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

type job func(ctx context.Context)

// Run activates the view and processes input lines until the input ends or
// the chat is stopped. Writes run one at a time on a background worker.
func (c *Chat) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := c.view.Activate(ctx); err != nil {
		return err
	}
	// Cancel first so a poll stuck in the store returns before Deactivate joins it.
	defer func() {
		cancel()
		c.view.Deactivate()
	}()

	jobs := make(chan job, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := range jobs {
			j(ctx)
		}
	}()
	// finish drains queued writes. With abandon set, requests in flight are
	// cancelled instead of awaited.
	finish := func(abandon bool) {
		if abandon {
			cancel()
		}
		close(jobs)
		wg.Wait()
		c.render()
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			c.log.Debug().Err(err).Msg("input closed")
		}
	}()

	c.render()

	for {
		select {
		case <-ctx.Done():
			cancel()
			close(jobs)
			wg.Wait()
			return nil
		case <-c.signedOut:
			cancel()
			close(jobs)
			wg.Wait()
			return conversation.ErrSignedOut
		case <-c.dirty:
			c.render()
		case line, ok := <-lines:
			if !ok {
				finish(false)
				return nil
			}
			if quit := c.handle(line, jobs); quit {
				finish(true)
				return nil
			}
			c.render()
		}
	}
}

// handle applies one input line. It reports whether the user asked to quit.
func (c *Chat) handle(line string, jobs chan<- job) bool {
	c.notice = ""
	c.errText = ""

	cmd, err := ParseCommand(line)
	if err != nil {
		c.fail(err)
		return false
	}

	switch cmd.Kind {
	case CmdSend:
		text := cmd.Text
		jobs <- func(ctx context.Context) {
			c.view.SetCompose(text)
			if err := c.view.Submit(ctx); err != nil {
				c.log.Debug().Err(err).Msg("send failed")
			}
		}
	case CmdEdit:
		row, err := FindOwnRow(c.view.Rows(c.session.Current()), cmd.Ref)
		if err != nil {
			c.fail(err)
			return false
		}
		if err := c.view.BeginEdit(row.ID); err != nil {
			c.fail(err)
		}
	case CmdSave:
		if !c.view.Editing().Active {
			c.fail(conversation.ErrNotEditing)
			return false
		}
		if cmd.HasText {
			if err := c.view.SetEditText(cmd.Text); err != nil {
				c.fail(err)
				return false
			}
		}
		jobs <- func(ctx context.Context) {
			if err := c.view.Save(ctx); err != nil {
				c.log.Debug().Err(err).Msg("save failed")
			}
		}
	case CmdDelete:
		row, err := FindOwnRow(c.view.Rows(c.session.Current()), cmd.Ref)
		if err != nil {
			c.fail(err)
			return false
		}
		id := row.ID
		jobs <- func(ctx context.Context) {
			if err := c.view.Delete(ctx, id); err != nil {
				c.log.Debug().Err(err).Str("message_id", id).Msg("delete failed")
			}
		}
	case CmdWith:
		p := c.view.Participants()
		p.Recipient = cmd.Text
		c.view.SetParticipants(p)
	case CmdRefresh:
		jobs <- func(ctx context.Context) {
			c.view.Fetch(ctx)
		}
	case CmdHelp:
		c.notice = HelpText
	case CmdQuit:
		return true
	}
	return false
}

func (c *Chat) fail(err error) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		c.log.Debug().Str("code", cmdErr.Code).Msg(cmdErr.Message)
	}
	c.errText = err.Error()
}

// render writes the current frame when it differs from the last one written.
func (c *Chat) render() {
	user := c.session.Current()
	username := ""
	if user != nil {
		username = user.Username
	}

	frame := c.renderer.Render(Frame{
		Username: username,
		Header:   c.view.Header(),
		Rows:     c.view.Rows(user),
		Compose:  c.view.Compose(),
		Notice:   c.notice,
		Error:    c.errText,
	})
	if frame == c.lastFrame {
		return
	}
	c.lastFrame = frame

	if _, err := io.WriteString(c.out, frame); err != nil {
		c.log.Debug().Err(err).Msg("render failed")
	}
}
