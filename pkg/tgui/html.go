package tgui

import (
	"html"
	"strings"
)

// H represents HTML that is safe to pass to Telegram when ParseMode="HTML".
// Values of type H should be treated as already-escaped.
type H string

func (h H) String() string { return string(h) }

// Esc escapes text for Telegram HTML parse mode.
func Esc(s string) H { return H(html.EscapeString(s)) }

func wrap(tag string, inner H) H { return H("<" + tag + ">" + inner.String() + "</" + tag + ">") }

func B(s string) H { return wrap("b", Esc(s)) }
func I(s string) H { return wrap("i", Esc(s)) }

// JoinH joins safe HTML parts with sep, skipping blank parts.
func JoinH(sep string, parts ...H) H {
	ss := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p.String()) == "" {
			continue
		}
		ss = append(ss, p.String())
	}
	return H(strings.Join(ss, sep))
}

// Reminder renders a reminder as a bold title over an escaped body. Both
// parts are truncated so the message stays under Telegram's text limit.
func Reminder(title, body string) H {
	title = TruncRunes(strings.TrimSpace(title), MaxTitleRunes)
	body = TruncRunes(strings.TrimSpace(body), MaxTextRunes-MaxTitleRunes-1)
	if title == "" {
		return Esc(body)
	}
	return JoinH("\n", B(title), Esc(body))
}
