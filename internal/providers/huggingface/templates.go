package huggingface

import "strings"

// Template wraps a prompt in the chat format a particular model family expects
type Template struct {
	// Marker is matched case-insensitively as a substring of the model id
	Marker string
	Format func(persona, prompt string) string
}

// DefaultTemplates is consulted in order; the first matching marker wins.
var DefaultTemplates = []Template{
	{Marker: "saiga_llama3_8b", Format: Llama3},
}

// Llama3 renders the Llama-3 instruct template with a system turn
func Llama3(persona, prompt string) string {
	return "<|begin_of_text|><|start_header_id|>system<|end_header_id|>\n" +
		persona + "\n" +
		"<|eot_id|><|start_header_id|>user<|end_header_id|>\n" +
		prompt + "\n" +
		"<|eot_id|><|start_header_id|>assistant<|end_header_id|>\n"
}

// FormatPrompt wraps prompt with the first template whose marker occurs in
// model, or returns it unchanged.
func FormatPrompt(templates []Template, model, persona, prompt string) string {
	m := strings.ToLower(model)
	for _, t := range templates {
		if t.Marker != "" && strings.Contains(m, strings.ToLower(t.Marker)) {
			return t.Format(persona, prompt)
		}
	}
	return prompt
}
