package debughttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	hpprof "net/http/pprof"
	"sort"
	"strings"
	"time"

	"nutricare/internal/history"
	"nutricare/internal/platform"
	"nutricare/internal/reminder"
	logx "nutricare/pkg/logx"
)

// HistorySource is the part of history.Store the server reads.
type HistorySource interface {
	ReadAll(ctx context.Context) []history.Item
	Subscribe(cb func(items []history.Item)) (unsubscribe func())
}

type Acknowledger interface {
	OnAcknowledge(ctx context.Context, f reminder.Family, subKey string, date reminder.Date) error
}

type PendingLister interface {
	Pending(ctx context.Context) ([]platform.Pending, error)
}

// Presser simulates an action button press (local gateway only).
type Presser interface {
	Press(ctx context.Context, id, action string) error
}

// Deps are the components behind the endpoints. Nil members disable their
// endpoints with 501.
type Deps struct {
	Metrics  http.Handler
	History  HistorySource
	Ack      Acknowledger
	Triggers PendingLister
	Presser  Presser
	// Health returns extra state for /healthz (supervisor snapshots).
	Health   func() any
	Location *time.Location
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type handler struct {
	deps Deps
	log  logx.Logger
}

// NewHandler builds the router. A non-empty token guards every route.
func NewHandler(deps Deps, token string, log logx.Logger) http.Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	h := &handler{deps: deps.withDefaults(), log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.healthz)

	mux.HandleFunc("/debug/pprof/", hpprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", hpprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", hpprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", hpprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", hpprof.Trace)

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	} else {
		mux.HandleFunc("GET /metrics", notImplemented)
	}
	mux.HandleFunc("GET /history", h.history)
	mux.HandleFunc("GET /history/ws", h.historyWS)
	mux.HandleFunc("GET /triggers", h.triggers)
	mux.HandleFunc("POST /ack", h.ack)
	mux.HandleFunc("POST /press", h.press)

	return withAuth(token, mux)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "runtime": h.deps.Health()})
}

type historyResponse struct {
	Count    int               `json:"count"`
	Items    []history.Item    `json:"items"`
	Sections []history.Section `json:"sections"`
}

func (h *handler) snapshot(items []history.Item) historyResponse {
	if items == nil {
		items = []history.Item{}
	}
	return historyResponse{
		Count:    len(items),
		Items:    items,
		Sections: history.GroupByDay(items, h.deps.Now().In(h.deps.Location)),
	}
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		notImplemented(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot(h.deps.History.ReadAll(r.Context())))
}

type triggerView struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	FireAt time.Time         `json:"fire_at"`
	Data   map[string]string `json:"data,omitempty"`
}

func (h *handler) triggers(w http.ResponseWriter, r *http.Request) {
	if h.deps.Triggers == nil {
		notImplemented(w, r)
		return
	}
	pending, err := h.deps.Triggers.Pending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]triggerView, 0, len(pending))
	for _, p := range pending {
		out = append(out, triggerView{ID: p.Notification.ID, Title: p.Notification.Title, FireAt: p.FireAt.In(h.deps.Location), Data: p.Notification.Data})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].ID < out[j].ID
	})
	writeJSON(w, http.StatusOK, out)
}

// ack: POST /ack?family=meal-pre&key=lunch&date=2024-05-01
func (h *handler) ack(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ack == nil {
		notImplemented(w, r)
		return
	}
	q := r.URL.Query()
	f, err := reminder.ParseFamily(q.Get("family"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	date := reminder.DateOf(h.deps.Now().In(h.deps.Location))
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		if date, err = reminder.ParseDate(raw); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	key := strings.TrimSpace(q.Get("key"))
	if err := h.deps.Ack.OnAcknowledge(r.Context(), f, key, date); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, reminder.ErrUnknownSlot) || errors.Is(err, reminder.ErrUnknownFamily) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	h.log.Info("acknowledged via debug http", logx.String("family", string(f)), logx.String("key", key), logx.String("date", date.String()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "family": string(f), "key": key, "date": date.String()})
}

// press: POST /press?id=meal_lunch_20240501_post&action=done
func (h *handler) press(w http.ResponseWriter, r *http.Request) {
	if h.deps.Presser == nil {
		notImplemented(w, r)
		return
	}
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, platform.ErrMissingTriggerID)
		return
	}
	action := strings.TrimSpace(q.Get("action"))
	if action == "" {
		action = reminder.ActionDone
	}
	if err := h.deps.Presser.Press(r.Context(), id, action); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, platform.ErrUnknownTrigger) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "id": id, "action": action})
}

func withAuth(token string, next http.Handler) http.Handler {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Accept either "Authorization: Bearer <token>" or ?token=<token>
		// (browsers cannot set headers on websocket upgrades).
		if got := r.URL.Query().Get("token"); got != "" {
			if got == tok {
				next.ServeHTTP(w, r)
				return
			}
			unauthorized(w)
			return
		}
		const p = "Bearer "
		if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, p) && strings.TrimSpace(strings.TrimPrefix(ah, p)) == tok {
			next.ServeHTTP(w, r)
			return
		}
		unauthorized(w)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func notImplemented(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "not available with this configuration", http.StatusNotImplemented)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
