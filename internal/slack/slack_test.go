package slack

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askbot/internal/channel"
	"askbot/internal/core"
	"askbot/internal/locale"
)

type fakePoster struct {
	mu    sync.Mutex
	posts []url.Values
}

func (f *fakePoster) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	_, values, err := slack.UnsafeApplyMsgOptions("token", channelID, "https://slack.invalid/api/", options...)
	if err != nil {
		return "", "", err
	}
	f.mu.Lock()
	f.posts = append(f.posts, values)
	f.mu.Unlock()
	return channelID, "1.0", nil
}

type recordingAsker struct {
	prompts []string
	chatIDs []string
	answer  string
}

func (r *recordingAsker) Ask(ctx context.Context, prompt string) string {
	r.prompts = append(r.prompts, prompt)
	r.chatIDs = append(r.chatIDs, core.GetChatID(ctx))
	return r.answer
}

func TestHandleSlashCommand(t *testing.T) {
	msgs := locale.For("ru")
	p := &fakePoster{}
	a := &recordingAsker{answer: "42"}
	b := newBot(p, a, msgs)

	b.handleSlashCommand(context.Background(), slack.SlashCommand{
		Command:   "/ask",
		Text:      "  смысл жизни? ",
		ChannelID: "C1",
	})

	assert.Equal(t, []string{"смысл жизни?"}, a.prompts)
	assert.Equal(t, []string{"slack:C1"}, a.chatIDs)
	require.Len(t, p.posts, 2)
	assert.Equal(t, msgs.Thinking, p.posts[0].Get("text"))
	assert.Equal(t, "42", p.posts[1].Get("text"))
	assert.Equal(t, "C1", p.posts[1].Get("channel"))
	assert.Empty(t, p.posts[1].Get("thread_ts"))
}

func TestHandleSlashCommand_EmptyAndOther(t *testing.T) {
	msgs := locale.For("ru")
	p := &fakePoster{}
	a := &recordingAsker{}
	b := newBot(p, a, msgs)

	b.handleSlashCommand(context.Background(), slack.SlashCommand{Command: "/ask", ChannelID: "C1"})
	b.handleSlashCommand(context.Background(), slack.SlashCommand{Command: "/other", Text: "x", ChannelID: "C1"})

	assert.Empty(t, a.prompts)
	require.Len(t, p.posts, 1)
	assert.Equal(t, msgs.AskUsage, p.posts[0].Get("text"))
}

func TestHandleMention_RepliesInThread(t *testing.T) {
	msgs := locale.For("en")

	tests := []struct {
		name       string
		ev         *slackevents.AppMentionEvent
		wantThread string
	}{
		{
			name:       "top level mention starts a thread",
			ev:         &slackevents.AppMentionEvent{Channel: "C2", Text: "<@U0BOT> hello", TimeStamp: "111.1"},
			wantThread: "111.1",
		},
		{
			name:       "mention inside a thread stays there",
			ev:         &slackevents.AppMentionEvent{Channel: "C2", Text: "<@U0BOT> hello", TimeStamp: "222.2", ThreadTimeStamp: "100.0"},
			wantThread: "100.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePoster{}
			a := &recordingAsker{}
			b := newBot(p, a, msgs)

			b.handleMention(context.Background(), tt.ev)

			assert.Equal(t, []string{"hello"}, a.prompts)
			require.Len(t, p.posts, 2)
			assert.Equal(t, msgs.EmptyAnswer, p.posts[1].Get("text"))
			for _, v := range p.posts {
				assert.Equal(t, tt.wantThread, v.Get("thread_ts"))
			}
		})
	}
}

func TestStripMentions(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<@U123> what is Go?", "what is Go?"},
		{"hey <@U123>  and <@U456|bob> there", "hey and there"},
		{"<@U123>", ""},
		{"no mention", "no mention"},
		{"broken <@U123", "broken <@U123"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMentions(tt.in))
		})
	}
}

type countingAcker struct {
	acks atomic.Int32
}

func (a *countingAcker) Ack(socketmode.Request, ...interface{}) {
	a.acks.Add(1)
}

func TestServe_WaitsForHandlersAfterConnectionEnds(t *testing.T) {
	msgs := locale.For("ru")
	p := &fakePoster{}
	acker := &countingAcker{}
	var answered atomic.Bool
	b := newBot(p, channel.AskerFunc(func(context.Context, string) string {
		time.Sleep(50 * time.Millisecond)
		answered.Store(true)
		return "done"
	}), msgs)
	b.acker = acker

	events := make(chan socketmode.Event)
	run := func(context.Context) error {
		// The connection ends right after handing over a pending command.
		events <- socketmode.Event{
			Type:    socketmode.EventTypeSlashCommand,
			Data:    slack.SlashCommand{Command: "/ask", Text: "q", ChannelID: "C1"},
			Request: &socketmode.Request{EnvelopeID: "e1"},
		}
		return errors.New("connection closed")
	}

	err := b.serve(context.Background(), events, run)

	assert.EqualError(t, err, "connection closed")
	assert.True(t, answered.Load(), "handler must finish before serve returns")
	assert.Equal(t, int32(1), acker.acks.Load())
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.posts, 2)
	assert.Equal(t, "done", p.posts[1].Get("text"))
}

func TestServe_CanceledContextIsClean(t *testing.T) {
	b := newBot(&fakePoster{}, &recordingAsker{}, locale.For("ru"))
	ctx, cancel := context.WithCancel(context.Background())

	err := b.serve(ctx, make(chan socketmode.Event), func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	assert.NoError(t, err)
}

func TestRun_NotConnected(t *testing.T) {
	b := newBot(&fakePoster{}, &recordingAsker{}, locale.For("ru"))
	assert.Error(t, b.Run(context.Background()))
	assert.Equal(t, "slack", b.Name())
}
