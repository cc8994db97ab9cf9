package chat

import "strings"

// Detector decides whether inbound message text is addressed to the bot and
// extracts the residual command text.
type Detector struct {
	Prefix         string
	PrefixEnabled  bool
	DefaultBotName string
}

// Detect classifies one message.
//
// First match wins, in this order:
//  1. direct messages are always addressed, with the full text as command;
//  2. an enabled command prefix claims the message when stripping exactly one
//     leading occurrence leaves non-empty text;
//  3. a leading bot-name mention (case-insensitive) claims the message, with
//     one leading ':' and surrounding whitespace stripped from the remainder.
//
// A post-mention command may be empty while still addressed; callers decide
// whether an empty command is actionable.
func (d Detector) Detect(text string, isDM bool, botName string) (command string, addressed bool) {
	if isDM {
		return text, true
	}

	if d.PrefixEnabled && d.Prefix != "" && strings.HasPrefix(text, d.Prefix) {
		stripped := strings.TrimPrefix(text, d.Prefix)
		if stripped != "" && stripped != text {
			return stripped, true
		}
	}

	name := strings.TrimSpace(botName)
	if name == "" {
		name = strings.TrimSpace(d.DefaultBotName)
	}
	if name == "" {
		return "", false
	}

	textRunes := []rune(text)
	nameRunes := []rune(name)
	if len(textRunes) < len(nameRunes) {
		return "", false
	}
	if !strings.EqualFold(string(textRunes[:len(nameRunes)]), name) {
		return "", false
	}

	rest := string(textRunes[len(nameRunes):])
	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, ":")
	rest = strings.TrimSpace(rest)

	return rest, true
}
