package platform

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrClosed           = errors.New("platform: gateway closed")
	ErrUnknownTrigger   = errors.New("platform: unknown notification")
	ErrNotAuthorized    = errors.New("platform: notifications not authorized")
	ErrPastFireTime     = errors.New("platform: fire time is not in the future")
	ErrMissingTriggerID = errors.New("platform: notification id is required")
)

type Importance int

const (
	ImportanceDefault Importance = iota
	ImportanceHigh
)

type Channel struct {
	ID         string
	Name       string
	Importance Importance
}

type AuthStatus int

const (
	AuthNotDetermined AuthStatus = iota
	AuthDenied
	AuthAuthorized
	AuthProvisional
)

func (s AuthStatus) String() string {
	switch s {
	case AuthDenied:
		return "denied"
	case AuthAuthorized:
		return "authorized"
	case AuthProvisional:
		return "provisional"
	default:
		return "not_determined"
	}
}

// Granted reports whether notifications can be shown.
func (s AuthStatus) Granted() bool { return s == AuthAuthorized || s == AuthProvisional }

// ParseAuthStatus maps config strings; unknown values read as not determined.
func ParseAuthStatus(s string) AuthStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "denied":
		return AuthDenied
	case "authorized", "granted":
		return AuthAuthorized
	case "provisional":
		return AuthProvisional
	default:
		return AuthNotDetermined
	}
}

// Action is a button shown with a notification.
type Action struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Notification is the payload of a trigger.
type Notification struct {
	ID        string            `json:"id"`
	ChannelID string            `json:"channel_id,omitempty"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Actions   []Action          `json:"actions,omitempty"`
}

// Clone returns a copy that does not share the data map or action slice.
func (n Notification) Clone() Notification {
	cp := n
	if n.Data != nil {
		cp.Data = make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			cp.Data[k] = v
		}
	}
	cp.Actions = append([]Action(nil), n.Actions...)
	return cp
}

type TimestampTrigger struct {
	FireAt         time.Time
	AllowWhileIdle bool
}

// Pending is one live trigger.
type Pending struct {
	Notification Notification `json:"notification"`
	FireAt       time.Time    `json:"fire_at"`
}

type EventType int

const (
	EventUnknown EventType = iota
	EventDelivered
	EventActionPressed
	EventDismissed
)

func (t EventType) String() string {
	switch t {
	case EventDelivered:
		return "delivered"
	case EventActionPressed:
		return "action_pressed"
	case EventDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

type PressAction struct {
	ID string
}

type EventDetail struct {
	Notification *Notification
	PressAction  *PressAction
}

type Event struct {
	Type   EventType
	Detail EventDetail
}

// Handler receives gateway events. It must not block for long.
type Handler func(ctx context.Context, ev Event)

// Gateway is the host notification facility.
//
// CreateTrigger with an id that already exists replaces it. Cancel of an
// unknown id is not an error. Each delivery reaches exactly one context:
// foreground handlers while the process is in the foreground, the background
// handler otherwise.
type Gateway interface {
	CreateChannel(ctx context.Context, ch Channel) (string, error)
	AuthorizationStatus(ctx context.Context) (AuthStatus, error)
	RequestAuthorization(ctx context.Context) (AuthStatus, error)
	CreateTrigger(ctx context.Context, n Notification, trig TimestampTrigger) (string, error)
	Cancel(ctx context.Context, id string) error
	TriggerIDs(ctx context.Context) ([]string, error)
	Pending(ctx context.Context) ([]Pending, error)
	OnForegroundEvent(h Handler) (unsubscribe func())
	OnBackgroundEvent(h Handler)
	OpenSettings(ctx context.Context) error
	Close() error
}

// Starter is implemented by gateways that own background loops (polling,
// send workers). The daemon runs Start under its supervisor.
type Starter interface {
	Start(ctx context.Context) error
}
