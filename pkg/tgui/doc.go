// Package tgui holds the Telegram rendering helpers used by the reminder
// gateway: HTML-safe message text, inline keyboards and the compact
// "action|id" callback data carried by reminder buttons.
package tgui
