// Package platform defines the Notification Platform Gateway: the narrow
// surface the reminder engine uses to create channels, ask for permission,
// register point-in-time triggers and receive delivered/action events.
//
// Drivers live in subpackages (local, telegram). They share Timetable, an
// in-process trigger table backed by versioned timers.
package platform
