// Package telegram runs the /ask bot over Telegram long polling.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"askbot/internal/channel"
	"askbot/internal/core"
	"askbot/internal/locale"
)

// MaxMessageUnits is the longest text Telegram accepts in one message,
// counted in UTF-16 code units.
const MaxMessageUnits = 4096

// pollTimeoutSec is the long-polling timeout passed to getUpdates.
const pollTimeoutSec = 30

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot is the Telegram gateway. Each update is handled on its own goroutine.
type Bot struct {
	api    *tgbotapi.BotAPI
	sender sender
	asker  channel.Asker
	msgs   locale.Messages
	wg     sync.WaitGroup
}

var _ channel.Channel = (*Bot)(nil)

// NewBot authorizes token against the Bot API.
func NewBot(token string, asker channel.Asker, msgs locale.Messages) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	slog.Info("telegram bot authorized", "username", api.Self.UserName)

	b := newBot(api, asker, msgs)
	b.api = api
	return b, nil
}

func newBot(s sender, asker channel.Asker, msgs locale.Messages) *Bot {
	return &Bot{
		sender: s,
		asker:  asker,
		msgs:   msgs,
	}
}

// Name returns the channel name.
func (b *Bot) Name() string { return "telegram" }

// Run starts the long-polling loop. Blocks until ctx is canceled, then waits
// for in-flight asks to be answered.
func (b *Bot) Run(ctx context.Context) error {
	if b.api == nil {
		return fmt.Errorf("telegram bot is not connected")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSec
	updates := b.api.GetUpdatesChan(u)

	slog.Info("telegram bot listening for messages")

	// Asks already accepted are answered even while shutting down.
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(handlerCtx, msg)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	cmd, args, ok := parseCommand(msg.Text)
	if !ok {
		return
	}

	chatID := msg.Chat.ID
	switch cmd {
	case "/start", "/help":
		b.send(chatID, b.msgs.Help)
	case "/ask":
		b.handleAsk(ctx, chatID, args)
	}
}

func (b *Bot) handleAsk(ctx context.Context, chatID int64, prompt string) {
	if prompt == "" {
		b.send(chatID, b.msgs.AskUsage)
		return
	}

	b.send(chatID, b.msgs.Thinking)

	ctx = core.WithChatID(ctx, fmt.Sprintf("telegram:%d", chatID))
	answer := b.asker.Ask(ctx, prompt)
	if strings.TrimSpace(answer) == "" {
		answer = b.msgs.EmptyAnswer
	}

	for _, part := range SplitMessage(answer, MaxMessageUnits) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		b.send(chatID, part)
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		slog.Warn("failed to send telegram message", "chat_id", chatID, "error", err)
	}
}

// parseCommand splits "/cmd@bot rest" into ("/cmd", "rest"). ok is false
// when text is not a command.
func parseCommand(text string) (cmd, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], text[i:]
	}
	if at := strings.Index(head, "@"); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

// SplitMessage cuts text into chunks of at most limit UTF-16 code units,
// preferring to break after a newline in the second half of a chunk.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf16Len(text) <= limit {
		return []string{text}
	}

	runes := []rune(text)
	var parts []string
	for len(runes) > 0 {
		end, units := 0, 0
		for end < len(runes) && units+runeUnits(runes[end]) <= limit {
			units += runeUnits(runes[end])
			end++
		}
		if end == len(runes) {
			parts = append(parts, string(runes))
			break
		}
		if end == 0 {
			end = 1
		}

		cut := end
		for i := end; i > end/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	return parts
}

// utf16Len is the length Telegram measures message text in
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
