package tgui

import (
	"errors"
	"strings"
)

// MaxCallbackDataLen is Telegram's callback_data size limit in bytes.
const MaxCallbackDataLen = 64

var ErrCallbackDataTooLong = errors.New("tgui: callback_data too long")

// Data formats the callback_data of a reminder button: "<action>|<id>".
func Data(action, id string) (string, error) {
	s := strings.TrimSpace(action) + "|" + strings.TrimSpace(id)
	if len(s) > MaxCallbackDataLen {
		return "", ErrCallbackDataTooLong
	}
	return s, nil
}

// ParseData reverses Data. ok is false for anything that is not
// "<action>|<id>" with both parts set.
func ParseData(data string) (action, id string, ok bool) {
	action, id, ok = strings.Cut(strings.TrimSpace(data), "|")
	if !ok || action == "" || id == "" {
		return "", "", false
	}
	return action, id, true
}
