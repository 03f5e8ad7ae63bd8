// Package slack runs the /ask bot over Slack Socket Mode.
package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"askbot/internal/channel"
	"askbot/internal/core"
	"askbot/internal/locale"
)

// askCommand is the slash command the bot answers.
const askCommand = "/ask"

type acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Bot is the Slack gateway. Slash commands and app mentions are handled on
// their own goroutines.
type Bot struct {
	socket *socketmode.Client
	acker  acker
	poster poster
	asker  channel.Asker
	msgs   locale.Messages
	wg     sync.WaitGroup
}

var _ channel.Channel = (*Bot)(nil)

// NewBot creates a Socket Mode bot. appToken is the xapp- level token.
func NewBot(botToken, appToken string, asker channel.Asker, msgs locale.Messages) *Bot {
	api := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
	)

	socket := socketmode.New(
		api,
		socketmode.OptionLog(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug)),
	)

	b := newBot(api, asker, msgs)
	b.socket = socket
	b.acker = socket
	return b
}

func newBot(p poster, asker channel.Asker, msgs locale.Messages) *Bot {
	return &Bot{
		poster: p,
		asker:  asker,
		msgs:   msgs,
	}
}

// Name returns the channel name.
func (b *Bot) Name() string { return "slack" }

// Run connects via Socket Mode and blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	if b.socket == nil {
		return fmt.Errorf("slack bot is not connected")
	}

	slog.Info("slack bot connecting via socket mode")
	return b.serve(ctx, b.socket.Events, b.socket.RunContext)
}

// serve runs the connection and the event loop, then waits for the loop to
// exit and for every handler it started before returning.
func (b *Bot) serve(ctx context.Context, events <-chan socketmode.Event, run func(context.Context) error) error {
	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		b.eventLoop(loopCtx, context.WithoutCancel(ctx), events)
	}()

	err := run(ctx)
	stopLoop()
	<-loopDone
	b.wg.Wait()

	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (b *Bot) eventLoop(ctx, handlerCtx context.Context, events <-chan socketmode.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			b.handleEvent(handlerCtx, evt)
		}
	}
}

func (b *Bot) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnected:
		slog.Info("slack connected")
	case socketmode.EventTypeConnectionError:
		slog.Warn("slack connection error, will retry")
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		b.ack(evt)
		b.spawn(func() { b.handleSlashCommand(ctx, cmd) })
	case socketmode.EventTypeEventsAPI:
		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		b.ack(evt)
		if eventsAPIEvent.Type != slackevents.CallbackEvent {
			return
		}
		if ev, ok := eventsAPIEvent.InnerEvent.Data.(*slackevents.AppMentionEvent); ok {
			b.spawn(func() { b.handleMention(ctx, ev) })
		}
	case socketmode.EventTypeInteractive:
		b.ack(evt)
	}
}

func (b *Bot) ack(evt socketmode.Event) {
	if evt.Request != nil && b.acker != nil {
		b.acker.Ack(*evt.Request)
	}
}

func (b *Bot) spawn(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	if cmd.Command != askCommand {
		return
	}
	b.answer(ctx, cmd.ChannelID, "", strings.TrimSpace(cmd.Text))
}

func (b *Bot) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	threadTS := ev.TimeStamp
	if ev.ThreadTimeStamp != "" {
		threadTS = ev.ThreadTimeStamp
	}
	b.answer(ctx, ev.Channel, threadTS, stripMentions(ev.Text))
}

func (b *Bot) answer(ctx context.Context, channelID, threadTS, prompt string) {
	if prompt == "" {
		b.post(ctx, channelID, threadTS, b.msgs.AskUsage)
		return
	}

	b.post(ctx, channelID, threadTS, b.msgs.Thinking)

	answer := b.asker.Ask(core.WithChatID(ctx, "slack:"+channelID), prompt)
	if strings.TrimSpace(answer) == "" {
		answer = b.msgs.EmptyAnswer
	}
	b.post(ctx, channelID, threadTS, answer)
}

func (b *Bot) post(ctx context.Context, channelID, threadTS, text string) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	if _, _, err := b.poster.PostMessageContext(ctx, channelID, opts...); err != nil {
		slog.Warn("failed to post slack message", "channel", channelID, "error", err)
	}
}

// stripMentions removes "<@U123>" user mentions and trims the rest.
func stripMentions(text string) string {
	var sb strings.Builder
	for {
		start := strings.Index(text, "<@")
		if start < 0 {
			break
		}
		end := strings.Index(text[start:], ">")
		if end < 0 {
			break
		}
		sb.WriteString(text[:start])
		text = text[start+end+1:]
	}
	sb.WriteString(text)
	return strings.Join(strings.Fields(sb.String()), " ")
}
