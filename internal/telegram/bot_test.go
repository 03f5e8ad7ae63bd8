package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf16"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askbot/internal/channel"
	"askbot/internal/core"
	"askbot/internal/locale"
)

type sent struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.msgs = append(f.msgs, sent{chatID: m.ChatID, text: m.Text})
	}
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.msgs {
		out = append(out, m.text)
	}
	return out
}

type recordingAsker struct {
	mu      sync.Mutex
	prompts []string
	chatIDs []string
	answer  string
}

func (r *recordingAsker) Ask(ctx context.Context, prompt string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	r.chatIDs = append(r.chatIDs, core.GetChatID(ctx))
	return r.answer
}

func message(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}
}

func TestHandleMessage_Ask(t *testing.T) {
	msgs := locale.For("ru")
	s := &fakeSender{}
	a := &recordingAsker{answer: "Париж"}
	b := newBot(s, a, msgs)

	b.handleMessage(context.Background(), message(42, "/ask Столица Франции?"))

	assert.Equal(t, []string{"Столица Франции?"}, a.prompts)
	assert.Equal(t, []string{"telegram:42"}, a.chatIDs)
	assert.Equal(t, []string{msgs.Thinking, "Париж"}, s.texts())
	for _, m := range s.msgs {
		assert.Equal(t, int64(42), m.chatID)
	}
}

func TestHandleMessage_AskWithBotMention(t *testing.T) {
	s := &fakeSender{}
	a := &recordingAsker{answer: "ok"}
	b := newBot(s, a, locale.For("ru"))

	b.handleMessage(context.Background(), message(1, "/ask@askbot   q  "))

	assert.Equal(t, []string{"q"}, a.prompts)
}

func TestHandleMessage_EmptyAsk(t *testing.T) {
	msgs := locale.For("ru")
	tests := []string{"/ask", "/ask   ", "/ask@askbot", "/ASK\n"}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			s := &fakeSender{}
			a := &recordingAsker{}
			b := newBot(s, a, msgs)

			b.handleMessage(context.Background(), message(1, text))

			assert.Empty(t, a.prompts, "usage hint must not reach the model")
			assert.Equal(t, []string{msgs.AskUsage}, s.texts())
		})
	}
}

func TestHandleMessage_EmptyAnswerPlaceholder(t *testing.T) {
	msgs := locale.For("en")
	s := &fakeSender{}
	b := newBot(s, &recordingAsker{answer: "  "}, msgs)

	b.handleMessage(context.Background(), message(1, "/ask hi"))

	assert.Equal(t, []string{msgs.Thinking, msgs.EmptyAnswer}, s.texts())
}

func TestHandleMessage_HelpAndIgnored(t *testing.T) {
	msgs := locale.For("ru")

	tests := []struct {
		text string
		want []string
	}{
		{"/start", []string{msgs.Help}},
		{"/help@askbot", []string{msgs.Help}},
		{"hello there", nil},
		{"/unknown", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			s := &fakeSender{}
			a := &recordingAsker{}
			b := newBot(s, a, msgs)

			b.handleMessage(context.Background(), message(7, tt.text))

			assert.Equal(t, tt.want, s.texts())
			assert.Empty(t, a.prompts)
		})
	}
}

func TestHandleMessage_LongAnswerSplit(t *testing.T) {
	msgs := locale.For("ru")
	s := &fakeSender{}
	long := strings.Repeat("я", MaxMessageUnits+10)
	b := newBot(s, &recordingAsker{answer: long}, msgs)

	b.handleMessage(context.Background(), message(1, "/ask q"))

	texts := s.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, msgs.Thinking, texts[0])
	assert.Equal(t, MaxMessageUnits, utf8.RuneCountInString(texts[1]))
	assert.Equal(t, 10, utf8.RuneCountInString(texts[2]))
	assert.Equal(t, long, texts[1]+texts[2])
}

func TestHandleMessage_SendErrorDoesNotStopAsk(t *testing.T) {
	s := &fakeSender{err: errors.New("network down")}
	a := &recordingAsker{answer: "x"}
	b := newBot(s, a, locale.For("ru"))

	b.handleMessage(context.Background(), message(1, "/ask q"))

	assert.Equal(t, []string{"q"}, a.prompts)
	assert.Len(t, s.texts(), 2)
}

func TestHandleMessage_NoChat(t *testing.T) {
	s := &fakeSender{}
	b := newBot(s, channel.AskerFunc(func(context.Context, string) string {
		t.Fatal("ask must not be called")
		return ""
	}), locale.For("ru"))

	b.handleMessage(context.Background(), &tgbotapi.Message{Text: "/ask q"})
	assert.Empty(t, s.texts())
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantCmd  string
		wantArgs string
		wantOK   bool
	}{
		{"/ask hello", "/ask", "hello", true},
		{"  /Ask@MyBot  multi word  ", "/ask", "multi word", true},
		{"/ask\nline one\nline two", "/ask", "line one\nline two", true},
		{"/ask", "/ask", "", true},
		{"ask hello", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args, ok := parseCommand(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSplitMessage(t *testing.T) {
	t.Run("short text is one part", func(t *testing.T) {
		assert.Equal(t, []string{"abc"}, SplitMessage("abc", 10))
		assert.Equal(t, []string{""}, SplitMessage("", 10))
	})

	t.Run("prefers newline in second half", func(t *testing.T) {
		parts := SplitMessage("aaaaaaa\nbbbbb", 10)
		assert.Equal(t, []string{"aaaaaaa\n", "bbbbb"}, parts)
	})

	t.Run("ignores newline in first half", func(t *testing.T) {
		parts := SplitMessage("a\nbbbbbbbbbbbb", 10)
		assert.Equal(t, []string{"a\nbbbbbbbb", "bbbb"}, parts)
	})

	t.Run("counts astral runes as two units", func(t *testing.T) {
		text := strings.Repeat("😀", 3000)
		parts := SplitMessage(text, MaxMessageUnits)
		require.Len(t, parts, 2)
		assert.Equal(t, MaxMessageUnits, len(utf16.Encode([]rune(parts[0]))))
		assert.Equal(t, 952, utf8.RuneCountInString(parts[1]))
		assert.Equal(t, text, parts[0]+parts[1])
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		parts := SplitMessage(strings.Repeat("ж", 25), 10)
		require.Len(t, parts, 3)
		for _, p := range parts[:2] {
			assert.Equal(t, 10, utf8.RuneCountInString(p))
		}
	})
}

func TestRun_NotConnected(t *testing.T) {
	b := newBot(&fakeSender{}, &recordingAsker{}, locale.For("ru"))
	assert.Error(t, b.Run(context.Background()))
	assert.Equal(t, "telegram", b.Name())
}
