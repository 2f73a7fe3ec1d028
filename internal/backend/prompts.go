package backend

import (
	"strings"

	"github.com/oukeidos/transpop/internal/command"
)

// Placeholders substituted into prompt templates.
const (
	SourcePlaceholder = "{original_lang}"
	TargetPlaceholder = "{target_lang}"
)

// FallbackLanguage fills a placeholder whose language was not sent.
const FallbackLanguage = "English"

const DefaultTranslationPrompt = `
    You're a good translator.
    Only answer the translated text with the following rules and do not showing your thought:
    - put your answer in <ans></ans> block and do not include anything else because only the text inside <ans></ans> block will be extracted.
    Example 1:
        Original langue: English, Target language: Tiếng Việt
        Input: I'm running
        Your answer: <ans>Tôi đang chạy bộ</ans>
    Example 2:
        Original langue: English, Target language: Español
        Input: I'm running
        Your answer: <ans>Estoy corriendo</ans>
    Please translate the text in original language {original_lang} in the the text block below to {target_lang}:
`

const DefaultCorrectionPrompt = `
    You're a teacher and you're correcting a student's homework.
    Only answer the correct text without explanation,
    put your answer in <ans></ans> block and do not include anything else because only the text inside <ans></ans> block will be extracted.
    Example:
        Input: I running
        Your answer: <ans>I'm running</ans>
    Please check grammar correct it in the text block below and answer in {target_lang} language: `

const DefaultRefinePrompt = `
    You're a good editor.
    Only answer without explanation,
    put your answer in <ans></ans> block and do not include anything else because only the text inside <ans></ans> block will be extracted.
    Example:
        Input: Hello, how are you?
        Your answer: <ans>What's up!</ans>
    Please rewrite the text in text block below with conversational style in {target_lang} language:
`

// DefaultPrompt returns the built-in template for a text command.
func DefaultPrompt(name string) string {
	switch name {
	case command.Correct:
		return DefaultCorrectionPrompt
	case command.Refine:
		return DefaultRefinePrompt
	default:
		return DefaultTranslationPrompt
	}
}

// BuildPrompt fills template and appends text in a <text> block.
func BuildPrompt(template, source, target, text string) string {
	if strings.TrimSpace(source) == "" {
		source = FallbackLanguage
	}
	if strings.TrimSpace(target) == "" {
		target = FallbackLanguage
	}
	filled := strings.NewReplacer(SourcePlaceholder, source, TargetPlaceholder, target).Replace(template)
	return filled + "<text>" + text + "<text>. Your answer: "
}

// ExtractAnswer returns the contents of the first <ans> block with stray
// <text> tags removed, or the trimmed reply when there is no block.
func ExtractAnswer(reply string) string {
	_, after, ok := strings.Cut(reply, "<ans>")
	if !ok {
		return strings.TrimSpace(reply)
	}
	ans, _, _ := strings.Cut(after, "</ans>")
	ans = strings.NewReplacer("<text>", "", "</text>", "").Replace(ans)
	return strings.TrimSpace(ans)
}
