package gateway

import "github.com/rs/zerolog/log"

type EventKind string

const (
	SignedIn         EventKind = "signed_in"
	SignedOut        EventKind = "signed_out"
	SessionRefreshed EventKind = "session_refreshed"
	PasswordUpdated  EventKind = "password_updated"
)

// Event announces an auth state change. IdentityID may be empty when the session was unknown.
type Event struct {
	Kind       EventKind
	IdentityID string
}

// Subscribe registers fn to be called synchronously for every published event.
func (g *Gateway) Subscribe(fn func(Event)) {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	g.subscribers = append(g.subscribers, fn)
}

func (g *Gateway) publish(e Event) {
	g.subMu.RLock()
	subscribers := append([]func(Event){}, g.subscribers...)
	g.subMu.RUnlock()

	for _, fn := range subscribers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("event", string(e.Kind)).Msg("event subscriber panicked")
				}
			}()
			fn(e)
		}()
	}
}
