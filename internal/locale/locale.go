// Package locale holds the fixed user-facing strings of the bot.
package locale

import "strings"

// Default is the locale used when none (or an unknown one) is configured.
const Default = "ru"

// Messages is the full set of strings the bot ever shows or sends upstream
// as the system persona.
type Messages struct {
	// Persona is the system message sent with every chat-completion request
	// and embedded in model prompt templates.
	Persona string

	TooLong     string
	Timeout     string
	Failure     string
	Loading     string
	Thinking    string
	AskUsage    string
	Help        string
	EmptyAnswer string
}

var catalog = map[string]Messages{
	"ru": {
		Persona:     "Ты полезный ассистент.",
		TooLong:     "Вопрос слишком длинный",
		Timeout:     "Модель не ответила вовремя",
		Failure:     "Ошибка при обращении к модели",
		Loading:     "Модель загружается, попробуйте позже",
		Thinking:    "Думаю...",
		AskUsage:    "Задайте вопрос после команды /ask",
		Help:        "Задайте вопрос командой /ask <текст>, и я передам его языковой модели.",
		EmptyAnswer: "Модель вернула пустой ответ",
	},
	"en": {
		Persona:     "You are a helpful assistant.",
		TooLong:     "The question is too long",
		Timeout:     "The model did not respond in time",
		Failure:     "Failed to reach the model",
		Loading:     "The model is loading, please try again later",
		Thinking:    "Thinking...",
		AskUsage:    "Ask a question after the /ask command",
		Help:        "Send /ask <text> and I will forward it to the language model.",
		EmptyAnswer: "The model returned an empty answer",
	},
}

// For returns the messages for lang, falling back to Default.
func For(lang string) Messages {
	if m, ok := catalog[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return m
	}
	return catalog[Default]
}

// Supported reports whether lang has its own catalog entry.
func Supported(lang string) bool {
	_, ok := catalog[strings.ToLower(strings.TrimSpace(lang))]
	return ok
}
