// Package intake turns inbound chat messages into stored reminders.
//
// One service handles every channel: adapters push updates onto a shared
// channel, Run consumes them, and replies go back through the adapter
// registry keyed by the sender's address.
package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"remindbot/internal/parse"
	"remindbot/internal/storage"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

const confirmTimeFormat = "Mon, Jan 2 at 3:04 PM"

const welcomeText = "Welcome to the Reminder Bot! 🔔\n\n" +
	"You can create reminders by simply sending a message with a task and a time. For example:\n\n" +
	"• Submit assignment tomorrow at 9am\n" +
	"• Doctor appointment on Friday at 2:30pm\n" +
	"• Call John in 2 hours\n" +
	"• Pay bills by Friday"

const helpText = "How to use the Reminder Bot:\n\n" +
	"Just send a message with what you want to be reminded about and when. For example:\n\n" +
	"• Submit assignment tomorrow at 9am\n" +
	"• Doctor appointment on Friday at 2:30pm\n" +
	"• Call John in 2 hours\n" +
	"• Pay bills by Friday"

const promptText = "I couldn't find a time in your message. Examples of what you can say:\n\n" +
	"• Submit assignment tomorrow at 9am\n" +
	"• Doctor appointment on Friday at 2:30pm\n" +
	"• Call John in 2 hours\n" +
	"• Pay bills by Friday"

const errorText = "Sorry, I encountered an error while processing your reminder. Please try again."

type Service struct {
	store    storage.Store
	registry *transport.Registry
	log      logx.Logger

	// now is injected so message handling resolves time expressions
	// against a controlled reference instant in tests.
	now func() time.Time
}

func New(store storage.Store, registry *transport.Registry, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		store:    store,
		registry: registry,
		log:      log,
		now:      time.Now,
	}
}

// SetClock overrides the wall clock (tests).
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Run consumes inbound updates until ctx is done.
func (s *Service) Run(ctx context.Context, updates <-chan transport.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case up := <-updates:
			s.handle(ctx, up)
		}
	}
}

func (s *Service) handle(ctx context.Context, up transport.Update) {
	reply := s.Reply(ctx, up.From, up.Text)
	if reply == "" {
		return
	}

	adapter, err := s.registry.For(up.From)
	if err != nil {
		s.log.Warn("no adapter for inbound sender", logx.String("from", up.From), logx.Err(err))
		return
	}
	if err := adapter.SendText(ctx, up.From, reply); err != nil {
		s.log.Warn("reply send failed", logx.String("to", up.From), logx.Err(err))
	}
}

// Reply computes the response for one inbound message: a confirmation when a
// reminder was stored, a re-prompt when no time expression was found, or the
// command help texts.
func (s *Service) Reply(ctx context.Context, from, text string) string {
	trimmed := strings.TrimSpace(text)
	switch strings.ToLower(trimmed) {
	case "":
		return ""
	case "/start":
		return welcomeText
	case "/help":
		return helpText
	}

	now := s.now()
	draft, ok := parse.Parse(trimmed, now)
	if !ok {
		// Normal negative outcome, not an error: ask for a clearer message.
		s.log.Debug("no time expression in message", logx.String("from", from))
		return promptText
	}

	r, err := s.store.Create(ctx, from, draft.Task, draft.Due)
	if err != nil {
		s.log.Error("storing reminder failed", logx.String("from", from), logx.Err(err))
		return errorText
	}

	s.log.Info("reminder created",
		logx.Int64("id", r.ID),
		logx.String("recipient", r.Recipient),
		logx.Time("due_at", r.DueAt),
	)
	return ConfirmationText(draft.Task, draft.Due)
}

// ConfirmationText renders the fixed confirmation template with the exact
// task text and resolved instant the parser produced.
func ConfirmationText(task string, due time.Time) string {
	return fmt.Sprintf("✅ I'll remind you to %s on %s", task, due.Format(confirmTimeFormat))
}
